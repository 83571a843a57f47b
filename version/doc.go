// Package version reports the build faultline is running. Values are set
// with -ldflags and otherwise read from the module's VCS stamp:
//
//	go build -ldflags "-X github.com/kbukum/faultline/version.Version=1.4.0" ./cmd/faultline
package version

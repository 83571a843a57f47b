package database

import "strings"

var connectionErrorPatterns = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"i/o timeout",
	"no route to host",
	"network is unreachable",
	"connection closed",
	"connection lost",
	"driver: bad connection",
	"invalid connection",
	"too many connections",
	"database is locked",
}

// IsConnectionError reports whether err looks like a connection failure
// that a later attempt may not hit.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range connectionErrorPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

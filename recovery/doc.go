// Package recovery assembles faultline into one Service: the error log,
// the notification bridge, the retry engine, the optional remote reporter
// and the diagnostics HTTP API, all started and stopped through a
// component registry.
//
//	var cfg recovery.Config
//	_ = config.LoadConfig("faultline", &cfg)
//	svc, err := recovery.New(cfg)
//	...
//	err = svc.Run(ctx)
//
// Application code reports failures through Handle and runs fallible
// operations through Execute or Retry.
package recovery

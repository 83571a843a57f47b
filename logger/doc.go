// Package logger provides structured logging on top of zerolog.
//
// It supports JSON and console output, level configuration, rotated file
// output and component-scoped loggers with structured fields.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//	  output: "file"
//	  file: "/var/log/faultline/faultline.log"
//
// # Usage
//
//	log := logger.Get("logstore")
//	log.Warn("persist failed", logger.Fields(logger.FieldError, err.Error()))
package logger

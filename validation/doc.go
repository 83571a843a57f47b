// Package validation checks configuration structs and inbound API payloads.
//
// Struct tags go through go-playground/validator; programmatic checks
// collect field errors. Both report failures as a validation-kind
// *errors.ClassifiedError whose context data carries the field list under
// "fields".
//
//	type ReportConfig struct {
//	    Endpoint string `validate:"required,url"`
//	}
//	err := validation.Validate(cfg)
//
//	err := validation.New().
//	    Required("message", req.Message).
//	    OneOf("level", req.Level, []string{"error", "warning", "info"}).
//	    Err()
package validation

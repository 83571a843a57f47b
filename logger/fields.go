package logger

// Field keys shared across packages so log queries stay stable.
const (
	FieldService   = "service"
	FieldComponent = "component"
	FieldTraceID   = "trace_id"
	FieldSpanID    = "span_id"
	FieldRequestID = "request_id"
	FieldSessionID = "session_id"
	FieldOperation = "operation"
	FieldAction    = "action"
	FieldError     = "error"
	FieldErrorID   = "error_id"
	FieldKind      = "kind"
	FieldEntryID   = "entry_id"
	FieldAttempt   = "attempt"
	FieldDelay     = "delay_ms"
)

// Fields pairs up alternating keys and values. Non-string keys and a
// trailing key without a value are dropped.
//
//	log.Info("entry stored", logger.Fields(logger.FieldEntryID, id, logger.FieldKind, kind))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i+1 < len(kvs); i += 2 {
		if k, ok := kvs[i].(string); ok {
			m[k] = kvs[i+1]
		}
	}
	return m
}

// ErrorFields describes a failed operation.
func ErrorFields(op string, err error) map[string]interface{} {
	return Fields(FieldOperation, op, FieldError, err.Error())
}

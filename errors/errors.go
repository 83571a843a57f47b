package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
)

// ClassifiedError is the normalized, immutable record of a failure.
// Use the accessors; copies are made with WithContext.
type ClassifiedError struct {
	id          string
	kind        Kind
	rawMessage  string
	userMessage string
	context     Context
	retryable   bool
	action      SuggestedAction
	status      int
	cause       error
}

// ID returns the process-unique identifier.
func (e *ClassifiedError) ID() string { return e.id }

// Kind returns the normalized category.
func (e *ClassifiedError) Kind() Kind { return e.kind }

// RawMessage returns the message of the original failure.
func (e *ClassifiedError) RawMessage() string { return e.rawMessage }

// UserMessage returns the message suitable for showing to an end user.
func (e *ClassifiedError) UserMessage() string { return e.userMessage }

// Context returns a copy of the attached context.
func (e *ClassifiedError) Context() Context { return e.context.Clone() }

// Retryable reports whether retrying the operation may succeed.
func (e *ClassifiedError) Retryable() bool { return e.retryable }

// SuggestedAction returns the recovery step offered to the user, if any.
func (e *ClassifiedError) SuggestedAction() SuggestedAction { return e.action }

// StatusCode returns the HTTP status that produced the error, or 0.
func (e *ClassifiedError) StatusCode() int { return e.status }

// Cause returns the original failure, if it was an error.
func (e *ClassifiedError) Cause() error { return e.cause }

// Error returns the string representation of the error.
func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("%s: %s", e.kind, e.rawMessage)
}

// Unwrap returns the underlying cause of the error. It is nil-safe so a nil
// *ClassifiedError wrapped in another error does not break errors.Is.
func (e *ClassifiedError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// WithContext returns a copy of the error with ctx merged over its context
// and a fresh ID.
func (e *ClassifiedError) WithContext(ctx Context) *ClassifiedError {
	return defaultClassifier.reissue(e, ctx)
}

type classifiedJSON struct {
	ID              string          `json:"id"`
	Type            Kind            `json:"type"`
	Message         string          `json:"message"`
	UserMessage     string          `json:"userMessage"`
	Context         Context         `json:"context"`
	Retryable       bool            `json:"retryable"`
	SuggestedAction SuggestedAction `json:"suggestedAction,omitempty"`
	StatusCode      int             `json:"statusCode,omitempty"`
}

// MarshalJSON renders the error in the camelCase wire shape.
func (e *ClassifiedError) MarshalJSON() ([]byte, error) {
	return json.Marshal(classifiedJSON{
		ID:              e.id,
		Type:            e.kind,
		Message:         e.rawMessage,
		UserMessage:     e.userMessage,
		Context:         e.context,
		Retryable:       e.retryable,
		SuggestedAction: e.action,
		StatusCode:      e.status,
	})
}

// New creates a classified error of the given kind using the kind's default
// retryability, user message and suggested action.
func New(kind Kind, message string) *ClassifiedError {
	return defaultClassifier.build(draft{
		kind:      kind,
		raw:       message,
		user:      DefaultMessage(kind),
		retryable: IsRetryableKind(kind),
		action:    DefaultAction(kind),
	}, Context{})
}

// NewValidation creates a validation error with details stored in the
// context's additional data.
func NewValidation(message string, details map[string]any) *ClassifiedError {
	ctx := Context{}
	for k, v := range details {
		ctx = ctx.WithData(k, v)
	}
	return defaultClassifier.build(draft{
		kind:   KindValidation,
		raw:    message,
		user:   message,
		action: ActionCheckInput,
	}, ctx)
}

// AsClassified extracts a *ClassifiedError from an error chain.
func AsClassified(err error) (*ClassifiedError, bool) {
	var ce *ClassifiedError
	if stderrors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// IsClassified reports whether err wraps a *ClassifiedError.
func IsClassified(err error) bool {
	_, ok := AsClassified(err)
	return ok
}

// IsRetryable reports whether err should be retried. Unclassified errors are
// classified with the default classifier.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if ce, ok := AsClassified(err); ok {
		return ce.retryable
	}
	return Classify(err, Context{}).retryable
}

// KindOf returns the kind of err, classifying it if necessary.
func KindOf(err error) Kind {
	if ce, ok := AsClassified(err); ok {
		return ce.kind
	}
	return Classify(err, Context{}).kind
}

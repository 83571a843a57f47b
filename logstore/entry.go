package logstore

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"time"

	"github.com/kbukum/faultline/errors"
)

// Level is the severity of a log entry.
type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// StoredCause is the persisted projection of an error's original cause.
type StoredCause struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// Entry is one record in the log. Only Resolved and ReportedToService
// change after the entry is appended.
type Entry struct {
	ID                string                 `json:"id"`
	Kind              errors.Kind            `json:"type,omitempty"`
	Message           string                 `json:"message"`
	UserMessage       string                 `json:"userMessage,omitempty"`
	Context           errors.Context         `json:"context"`
	Retryable         bool                   `json:"retryable"`
	SuggestedAction   errors.SuggestedAction `json:"suggestedAction,omitempty"`
	StatusCode        int                    `json:"statusCode,omitempty"`
	Cause             *StoredCause           `json:"originalError,omitempty"`
	Level             Level                  `json:"level"`
	SessionID         string                 `json:"sessionId"`
	Resolved          bool                   `json:"resolved"`
	ReportedToService bool                   `json:"reportedToService"`
}

// Timestamp returns when the entry was created.
func (e Entry) Timestamp() time.Time { return e.Context.Timestamp }

// IsError reports whether the entry is error-level.
func (e Entry) IsError() bool { return e.Level == LevelError }

// clone returns a copy that shares no mutable state with e.
func (e Entry) clone() Entry {
	e.Context = e.Context.Clone()
	if e.Cause != nil {
		c := *e.Cause
		e.Cause = &c
	}
	return e
}

// effectiveKind is the stored kind, or the kind the message classifies to
// when an older snapshot carried none.
func (e Entry) effectiveKind() errors.Kind {
	if e.Kind.Valid() {
		return e.Kind
	}
	return errors.KindForMessage(e.Message)
}

func entryFromClassified(ce *errors.ClassifiedError, level Level, session string) Entry {
	return Entry{
		ID:              ce.ID(),
		Kind:            ce.Kind(),
		Message:         ce.RawMessage(),
		UserMessage:     ce.UserMessage(),
		Context:         ce.Context(),
		Retryable:       ce.Retryable(),
		SuggestedAction: ce.SuggestedAction(),
		StatusCode:      ce.StatusCode(),
		Cause:           storedCause(ce.Cause()),
		Level:           level,
		SessionID:       session,
	}
}

type stacker interface {
	Stack() string
}

// storedCause projects err to name, message and stack. Classified wrappers
// are skipped so the name describes the underlying failure.
func storedCause(err error) *StoredCause {
	if err == nil {
		return nil
	}
	for {
		ce, ok := err.(*errors.ClassifiedError)
		if !ok || ce.Cause() == nil {
			break
		}
		err = ce.Cause()
	}
	sc := &StoredCause{Name: causeName(err), Message: err.Error()}
	var st stacker
	if stderrors.As(err, &st) {
		sc.Stack = st.Stack()
	}
	return sc
}

func causeName(err error) string {
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return fmt.Sprintf("%T", err)
	}
	return t.Name()
}

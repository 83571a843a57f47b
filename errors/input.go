package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net"
	"reflect"
	"strings"
)

// Input is the closed set of shapes the classifier understands.
// Implementations: HTTPError, ConnectivityError, GenericError, Unknown.
type Input interface {
	input()
}

// HTTPError is a failure that carries a response status code.
// A zero Status means no response was received.
type HTTPError struct {
	Status int
	Body   []byte
	Err    error
}

// ConnectivityError is a failure where the request never got a response.
type ConnectivityError struct {
	Err error
}

// GenericError is a plain error without transport information.
type GenericError struct {
	Name    string
	Message string
	Err     error
}

// Unknown wraps any value that is not an error.
type Unknown struct {
	Value any
}

func (HTTPError) input()         {}
func (ConnectivityError) input() {}
func (GenericError) input()      {}
func (Unknown) input()           {}

// Adapter is implemented by transport errors that know how to describe
// themselves to the classifier.
type Adapter interface {
	ClassifierInput() Input
}

// Adapt converts an arbitrary value into a classifier Input.
// A nil pointer held in a non-nil interface adapts to Unknown{}.
func Adapt(v any) Input {
	if isNilPointer(v) {
		return Unknown{}
	}
	switch x := v.(type) {
	case nil:
		return Unknown{}
	case Input:
		return x
	case Adapter:
		return x.ClassifierInput()
	case error:
		return adaptError(x)
	default:
		return Unknown{Value: v}
	}
}

func adaptError(err error) Input {
	var ad Adapter
	if stderrors.As(err, &ad) && !isNilPointer(ad) {
		return ad.ClassifierInput()
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return ConnectivityError{Err: err}
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return ConnectivityError{Err: err}
	}
	return GenericError{Name: errorName(err), Message: err.Error(), Err: err}
}

func isNilPointer(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

func errorName(err error) string {
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return "Error"
	}
	return t.Name()
}

func (h HTTPError) rawMessage() string {
	if h.Err != nil {
		return h.Err.Error()
	}
	if msg := BodyMessage(h.Body); msg != "" {
		return fmt.Sprintf("HTTP %d: %s", h.Status, msg)
	}
	return fmt.Sprintf("HTTP %d", h.Status)
}

func (c ConnectivityError) rawMessage() string {
	if c.Err != nil {
		return c.Err.Error()
	}
	return "network request failed"
}

func (u Unknown) rawMessage() string {
	if u.Value == nil {
		return "unknown error"
	}
	return fmt.Sprint(u.Value)
}

// BodyMessage extracts a server-provided message from a response body.
// JSON bodies are searched for "message", "error" and "detail" (also nested
// under "error"); short plain-text bodies are returned as is.
func BodyMessage(body []byte) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return ""
	}
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		if strings.HasPrefix(text, "<") || len(text) > 200 {
			return ""
		}
		return text
	}
	return messageField(doc)
}

func messageField(doc map[string]any) string {
	for _, key := range []string{"message", "error", "detail"} {
		switch v := doc[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case map[string]any:
			if msg := messageField(v); msg != "" {
				return msg
			}
		}
	}
	return ""
}

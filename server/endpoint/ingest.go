package endpoint

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/faultline/auth"
	"github.com/kbukum/faultline/auth/authctx"
	"github.com/kbukum/faultline/errors"
	"github.com/kbukum/faultline/notify"
	"github.com/kbukum/faultline/validation"
)

// ErrorHandler classifies a failure, logs it, and notifies the user.
type ErrorHandler interface {
	Handle(ctx context.Context, v any, ectx errors.Context, opts ...notify.Option) *errors.ClassifiedError
}

// ClientError is a failure reported by a browser tab.
type ClientError struct {
	// Name is the JavaScript error name, e.g. "TypeError".
	Name    string `json:"name"`
	Message string `json:"message"`
	// StatusCode is set when the failure was an HTTP response.
	StatusCode int             `json:"statusCode"`
	Body       json.RawMessage `json:"body,omitempty"`
	// Offline marks a request that never got a response.
	Offline bool `json:"offline"`

	Component string         `json:"component"`
	Action    string         `json:"action"`
	URL       string         `json:"url"`
	AccountID string         `json:"accountId"`
	VideoID   string         `json:"videoId"`
	Data      map[string]any `json:"data"`
}

func (e ClientError) validate() error {
	return validation.New().
		Custom(e.Message != "" || e.StatusCode > 0, "message", "is required without a status code").
		HTTPStatus("statusCode", e.StatusCode).
		MaxLength("message", e.Message, 4096).
		Err()
}

// ClassifierInput maps the report onto the classifier's input variants.
func (e ClientError) ClassifierInput() errors.Input {
	switch {
	case e.StatusCode > 0:
		var err error
		if e.Message != "" {
			err = stderrors.New(e.Message)
		}
		return errors.HTTPError{Status: e.StatusCode, Body: e.Body, Err: err}
	case e.Offline:
		return errors.ConnectivityError{Err: stderrors.New(e.Message)}
	default:
		return errors.GenericError{Name: e.Name, Message: e.Message}
	}
}

func (e ClientError) context() errors.Context {
	return errors.Context{
		Component:      e.Component,
		Action:         e.Action,
		URL:            e.URL,
		AccountID:      e.AccountID,
		VideoID:        e.VideoID,
		AdditionalData: e.Data,
	}
}

// IngestError accepts a ClientError and answers 201 with the classified error.
// An authenticated caller's subject is recorded as additionalData.reportedBy.
func IngestError(h ErrorHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var report ClientError
		if err := c.ShouldBindJSON(&report); err != nil {
			respondError(c, errors.NewValidation(fmt.Sprintf("invalid error report: %v", err), nil))
			return
		}
		if err := report.validate(); err != nil {
			ce, _ := errors.AsClassified(err)
			respondError(c, ce)
			return
		}
		ectx := report.context()
		if p, ok := authctx.Get[*auth.Principal](c.Request.Context()); ok {
			if ectx.AdditionalData == nil {
				ectx.AdditionalData = make(map[string]any, 1)
			}
			ectx.AdditionalData["reportedBy"] = p.Subject
		}
		ce := h.Handle(c.Request.Context(), report, ectx)
		c.JSON(http.StatusCreated, gin.H{"data": ce})
	}
}

// UserAction is an audit record of something the user did.
type UserAction struct {
	Action    string         `json:"action"`
	Component string         `json:"component"`
	Data      map[string]any `json:"data"`
}

// RecordAction appends a UserAction to the log as an info entry.
func RecordAction(store LogStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var ua UserAction
		if err := c.ShouldBindJSON(&ua); err != nil {
			respondError(c, errors.NewValidation(fmt.Sprintf("invalid action: %v", err), nil))
			return
		}
		if err := validation.New().Required("action", ua.Action).MaxLength("action", ua.Action, 256).Validate(); err != nil {
			respondError(c, err)
			return
		}
		entry := store.LogUserAction(c.Request.Context(), ua.Action, ua.Component, ua.Data)
		c.JSON(http.StatusCreated, gin.H{"data": entry})
	}
}

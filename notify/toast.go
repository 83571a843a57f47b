// Package notify turns classified errors into user-facing toasts and
// critical pattern alerts.
package notify

import (
	"context"
	"time"
)

// Level is the severity a toast is shown with.
type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
)

// ActionKind identifies the single action button a toast may carry.
type ActionKind string

const (
	ActionRetry          ActionKind = "retry"
	ActionGoBack         ActionKind = "go_back"
	ActionReload         ActionKind = "reload"
	ActionContactSupport ActionKind = "contact_support"
	ActionLogin          ActionKind = "login"
	ActionViewDetails    ActionKind = "view_details"
)

// Action is the optional recovery affordance of a toast.
type Action struct {
	Kind  ActionKind `json:"kind"`
	Label string     `json:"label"`
	// Target is a URL for navigation actions (login page, mailto link).
	Target string `json:"target,omitempty"`
	// Detail carries the payload shown by a View Details action.
	Detail map[string]any `json:"detail,omitempty"`
	// Run is the in-process callback of a retry action.
	Run func() `json:"-"`
}

// Toast is one transient notification.
type Toast struct {
	Level       Level         `json:"level"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Action      *Action       `json:"action,omitempty"`
	Critical    bool          `json:"critical,omitempty"`
	ErrorID     string        `json:"errorId,omitempty"`
	Duration    time.Duration `json:"-"`
}

// Toaster displays toasts.
type Toaster interface {
	Show(ctx context.Context, t Toast) error
}

// ToasterFunc adapts a function to Toaster.
type ToasterFunc func(ctx context.Context, t Toast) error

// Show calls f.
func (f ToasterFunc) Show(ctx context.Context, t Toast) error { return f(ctx, t) }

package validation

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/kbukum/faultline/errors"
)

// FieldError is one failed check.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (f FieldError) String() string { return f.Field + ": " + f.Message }

// Validator accumulates field errors from chained checks:
//
//	err := validation.New().
//		Required("action", a.Action).
//		MaxLength("action", a.Action, 256).
//		Err()
type Validator struct {
	failed []FieldError
}

func New() *Validator { return &Validator{} }

// AddError records message against field.
func (v *Validator) AddError(field, message string) {
	v.failed = append(v.failed, FieldError{Field: field, Message: message})
}

func (v *Validator) HasErrors() bool { return len(v.failed) > 0 }

func (v *Validator) Errors() []FieldError { return v.failed }

// Validate is nil when every check passed. Otherwise it is a validation
// error whose message lists each failure and whose context carries the
// FieldErrors under "fields".
func (v *Validator) Validate() *errors.ClassifiedError {
	if len(v.failed) == 0 {
		return nil
	}
	parts := make([]string, 0, len(v.failed))
	for _, f := range v.failed {
		parts = append(parts, f.String())
	}
	return errors.NewValidation(strings.Join(parts, "; "), map[string]any{"fields": v.failed})
}

// Err is Validate without the typed nil trap.
func (v *Validator) Err() error {
	if ce := v.Validate(); ce != nil {
		return ce
	}
	return nil
}

// Custom fails field with message unless ok.
func (v *Validator) Custom(ok bool, field, message string) *Validator {
	if !ok {
		v.AddError(field, message)
	}
	return v
}

// Required fails on empty or whitespace-only values.
func (v *Validator) Required(field, value string) *Validator {
	return v.Custom(strings.TrimSpace(value) != "", field, "is required")
}

// MaxLength limits value to max characters.
func (v *Validator) MaxLength(field, value string, max int) *Validator {
	return v.Custom(utf8.RuneCountInString(value) <= max, field, fmt.Sprintf("must be %d characters or less", max))
}

// Range requires lo <= value <= hi.
func (v *Validator) Range(field string, value, lo, hi int) *Validator {
	return v.Custom(value >= lo && value <= hi, field, fmt.Sprintf("must be between %d and %d", lo, hi))
}

// OneOf requires value to be in allowed. Empty values pass; pair with
// Required when the field is mandatory.
func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	return v.Custom(value == "" || slices.Contains(allowed, value), field, "must be one of: "+strings.Join(allowed, ", "))
}

// HTTPStatus accepts zero (absent) or a code in 100..599.
func (v *Validator) HTTPStatus(field string, code int) *Validator {
	return v.Custom(code == 0 || (code >= 100 && code <= 599), field, "must be a valid HTTP status")
}

package validation

import (
	"strings"
	"testing"

	"github.com/kbukum/faultline/errors"
)

func TestValidator_Checks(t *testing.T) {
	tests := []struct {
		name    string
		run     func(v *Validator)
		wantErr bool
	}{
		{name: "required ok", run: func(v *Validator) { v.Required("message", "boom") }},
		{name: "required blank", run: func(v *Validator) { v.Required("message", "  ") }, wantErr: true},
		{name: "max length ok", run: func(v *Validator) { v.MaxLength("id", "abc", 3) }},
		{name: "max length exceeded", run: func(v *Validator) { v.MaxLength("id", "abcd", 3) }, wantErr: true},
		{name: "range ok", run: func(v *Validator) { v.Range("limit", 10, 1, 100) }},
		{name: "range below", run: func(v *Validator) { v.Range("limit", 0, 1, 100) }, wantErr: true},
		{name: "one of ok", run: func(v *Validator) { v.OneOf("level", "error", []string{"error", "info"}) }},
		{name: "one of empty skipped", run: func(v *Validator) { v.OneOf("level", "", []string{"error"}) }},
		{name: "one of rejected", run: func(v *Validator) { v.OneOf("level", "fatal", []string{"error", "info"}) }, wantErr: true},
		{name: "custom false", run: func(v *Validator) { v.Custom(false, "range", "from after to") }, wantErr: true},
		{name: "max length counts runes", run: func(v *Validator) { v.MaxLength("title", "héé", 3) }},
		{name: "status absent", run: func(v *Validator) { v.HTTPStatus("statusCode", 0) }},
		{name: "status ok", run: func(v *Validator) { v.HTTPStatus("statusCode", 503) }},
		{name: "status out of range", run: func(v *Validator) { v.HTTPStatus("statusCode", 600) }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			tt.run(v)
			if v.HasErrors() != tt.wantErr {
				t.Errorf("HasErrors = %v, want %v (%v)", v.HasErrors(), tt.wantErr, v.Errors())
			}
		})
	}
}

func TestValidator_ValidateReturnsClassified(t *testing.T) {
	if New().Required("a", "x").Err() != nil {
		t.Fatal("expected nil error when valid")
	}

	ce := New().Required("message", "").OneOf("level", "x", []string{"error"}).Validate()
	if ce == nil {
		t.Fatal("expected error")
	}
	if ce.Kind() != errors.KindValidation {
		t.Errorf("kind = %s", ce.Kind())
	}
	if ce.Retryable() {
		t.Error("validation errors are not retryable")
	}
	if !strings.Contains(ce.RawMessage(), "message: is required") || !strings.Contains(ce.RawMessage(), "level: must be one of: error") {
		t.Errorf("message = %q", ce.RawMessage())
	}
	fields, ok := ce.Context().AdditionalData["fields"].([]FieldError)
	if !ok || len(fields) != 2 {
		t.Errorf("fields = %#v", ce.Context().AdditionalData["fields"])
	}
}

type endpointConfig struct {
	Endpoint string `yaml:"endpoint" validate:"required,url"`
	Email    string `yaml:"support_email" validate:"omitempty,email"`
	Limit    int    `validate:"gte=1"`
}

type outerConfig struct {
	Report endpointConfig `yaml:"report"`
}

func TestValidate_Struct(t *testing.T) {
	if err := Validate(endpointConfig{Endpoint: "https://collector.example.com", Limit: 1}); err != nil {
		t.Fatalf("valid struct: %v", err)
	}

	err := Validate(endpointConfig{Endpoint: "not a url", Email: "nope", Limit: 0})
	ce, ok := errors.AsClassified(err)
	if !ok {
		t.Fatalf("expected classified error, got %T", err)
	}
	for _, want := range []string{"endpoint: must be a valid URL", "support_email: must be a valid email address", "limit: must be greater than or equal to 1"} {
		if !strings.Contains(ce.RawMessage(), want) {
			t.Errorf("message %q missing %q", ce.RawMessage(), want)
		}
	}
}

func TestValidate_NestedFieldPath(t *testing.T) {
	err := Validate(outerConfig{})
	ce, ok := errors.AsClassified(err)
	if !ok {
		t.Fatalf("expected classified error, got %v", err)
	}
	if !strings.Contains(ce.RawMessage(), "report.endpoint: is required") {
		t.Errorf("message = %q", ce.RawMessage())
	}
}

func TestSnake(t *testing.T) {
	tests := map[string]string{"Limit": "limit", "MaxEntries": "max_entries", "a": "a"}
	for in, want := range tests {
		if got := snake(in); got != want {
			t.Errorf("snake(%q) = %q, want %q", in, got, want)
		}
	}
}

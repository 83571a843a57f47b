package validation

import (
	stderrors "errors"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Validate checks s against its `validate` struct tags and reports every
// failing field under its yaml name. The result is nil or a validation
// ClassifiedError.
func Validate(s any) error {
	err := structValidator().Struct(s)
	if err == nil {
		return nil
	}
	var failed validator.ValidationErrors
	if !stderrors.As(err, &failed) {
		return New().Custom(false, "struct", err.Error()).Err()
	}
	v := New()
	for _, fe := range failed {
		v.AddError(fieldPath(fe), describe(fe))
	}
	return v.Err()
}

var structValidator = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(configKey)
	return v
})

// configKey names a field the way the config file does: its yaml key, then
// its json key, then the field name in snake case.
func configKey(f reflect.StructField) string {
	for _, tag := range [...]string{"yaml", "json"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return snake(f.Name)
}

// fieldPath drops the root struct from the namespace: "report.endpoint".
func fieldPath(fe validator.FieldError) string {
	if _, rest, ok := strings.Cut(fe.Namespace(), "."); ok {
		return rest
	}
	return fe.Field()
}

var tagMessages = map[string]string{
	"required": "is required",
	"email":    "must be a valid email address",
	"url":      "must be a valid URL",
	"min":      "must be at least ",
	"max":      "must be at most ",
	"gte":      "must be greater than or equal to ",
	"gtefield": "must be greater than or equal to ",
	"oneof":    "must be one of: ",
}

func describe(fe validator.FieldError) string {
	msg, ok := tagMessages[fe.Tag()]
	if !ok {
		return "is invalid"
	}
	if strings.HasSuffix(msg, " ") {
		msg += fe.Param()
	}
	return msg
}

func snake(name string) string {
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

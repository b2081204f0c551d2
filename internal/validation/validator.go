// Package validation validates decoded request structs with
// go-playground/validator and turns failures into readable messages.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/OCAVIT/podsos-crowdsource-server/internal/confighash"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError is a single failed rule.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// Error collects every failed rule of one struct.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return strings.Join(msgs, "; ")
}

// Validator returns the shared validator instance.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report JSON names rather than Go field names.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		// Parameters are joined with the hash separator, so it may not
		// appear inside one.
		_ = validate.RegisterValidation("zapretarg", func(fl validator.FieldLevel) bool {
			return !strings.Contains(fl.Field().String(), confighash.Separator)
		})
	})
	return validate
}

// Struct validates s.  It returns nil or an *Error.
func Struct(s any) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &Error{Fields: []FieldError{{Field: "unknown", Tag: "unknown", Message: err.Error()}}}
	}

	out := &Error{Fields: make([]FieldError, len(verrs))}
	for i, fe := range verrs {
		out.Fields[i] = FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Message: translate(fe),
		}
	}
	return out
}

func translate(fe validator.FieldError) string {
	field, param := fe.Field(), fe.Param()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, lengthOrValue(fe, param))
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, lengthOrValue(fe, param))
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "zapretarg":
		return fmt.Sprintf("%s must not contain %q", field, confighash.Separator)
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}

func lengthOrValue(fe validator.FieldError, param string) string {
	switch fe.Kind().String() {
	case "string":
		return param + " characters"
	case "slice", "array":
		return param + " items"
	}
	return param
}

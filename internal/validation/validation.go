// Package validation checks request shapes and reports the first violated
// rule as a single human-readable message.
//
// Fields declare their rules in a `validate` tag and their message in a
// `msg` tag:
//
//	Email string `json:"email" validate:"required,email,corporate" msg:"Email inválido"`
//
// The custom "corporate" rule requires the configured corporate suffix and
// reports its own message naming that suffix.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalid matches every *Error through errors.Is.
var ErrInvalid = errors.New("invalid input")

// Error is a validation failure carrying the message shown to the client.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Is(target error) bool { return target == ErrInvalid }

// Errorf builds an *Error for checks done outside struct tags.
func Errorf(field, format string, args ...any) error {
	return &Error{Field: field, Message: fmt.Sprintf(format, args...)}
}

type Validator struct {
	v      *validator.Validate
	domain string
}

// New returns a Validator whose "corporate" rule requires domain as the
// email suffix (for example "@dominospizza.cl").
func New(domain string) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	out := &Validator{v: v, domain: domain}
	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("corporate", func(fl validator.FieldLevel) bool {
		return out.IsCorporate(fl.Field().String())
	})
	return out
}

// IsCorporate reports whether email ends with the corporate suffix.
func (v *Validator) IsCorporate(email string) bool {
	return v.domain != "" && strings.HasSuffix(email, v.domain)
}

// CorporateMessage is the message reported by the "corporate" rule.
func (v *Validator) CorporateMessage() string {
	return fmt.Sprintf("Solo emails corporativos %s permitidos", v.domain)
}

// Struct validates s and returns the first violation as *Error, or nil.
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &Error{Message: "Datos inválidos"}
	}
	fe := fieldErrs[0]
	if fe.Tag() == "corporate" {
		return &Error{Field: fe.Field(), Message: v.CorporateMessage()}
	}
	return &Error{Field: fe.Field(), Message: messageFor(s, fe)}
}

func messageFor(s any, fe validator.FieldError) string {
	t := reflect.TypeOf(s)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t != nil && t.Kind() == reflect.Struct {
		if f, ok := t.FieldByName(fe.StructField()); ok {
			if msg := f.Tag.Get("msg"); msg != "" {
				return msg
			}
		}
	}
	return fmt.Sprintf("%s inválido", fe.Field())
}

// Package validation checks form input with go-playground/validator and
// reports failures per form field, with Spanish messages.
package validation

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/bquezada-bit/Silvacentinel/internal/config"

	"github.com/go-playground/validator/v10"
)

var (
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	phoneRe    = regexp.MustCompile(`^(\+56)?9\d{8}$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their form name.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("cl_phone", func(fl validator.FieldLevel) bool {
		return phoneRe.MatchString(NormalizePhone(fl.Field().String()))
	})
	_ = v.RegisterValidation("password_strength", func(fl validator.FieldLevel) bool {
		return StrongPassword(fl.Field().String())
	})
	_ = v.RegisterValidation("evidence_ext", func(fl validator.FieldLevel) bool {
		return AllowedEvidence(fl.Field().String())
	})
	return v
}

// Error maps form field names to a message.
type Error struct {
	Fields map[string]string `json:"errores"`

	cause error
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validación: " + strings.Join(parts, "; ")
}

// Field builds an Error for a single field.
func Field(name, message string) *Error {
	return &Error{Fields: map[string]string{name: message}}
}

// Wrap reports cause as the message of field name; errors.Is still matches
// cause.
func Wrap(name string, cause error) *Error {
	return &Error{Fields: map[string]string{name: cause.Error()}, cause: cause}
}

// As unwraps err into a validation Error.
func As(err error) (*Error, bool) {
	var ve *Error
	ok := errors.As(err, &ve)
	return ve, ok
}

// Struct validates s and returns a *Error describing every failing field.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &Error{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		if _, seen := out.Fields[fe.Field()]; seen {
			continue
		}
		out.Fields[fe.Field()] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_with":
		return "Este campo es obligatorio."
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Debe tener al menos %s caracteres.", fe.Param())
		}
		return fmt.Sprintf("Debe ser mayor o igual a %s.", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("No puede superar %s caracteres.", fe.Param())
		}
		return fmt.Sprintf("Debe ser menor o igual a %s.", fe.Param())
	case "email":
		return "Ingresa un correo electrónico válido."
	case "url":
		return "Ingresa una URL válida."
	case "eqfield":
		return "Las contraseñas no coinciden."
	case "username":
		return "Solo letras, números y guion bajo."
	case "cl_phone":
		return "Formato de teléfono inválido. Usa +56912345678 o 912345678."
	case "password_strength":
		return "La contraseña debe contener al menos una letra y un número."
	case "evidence_ext":
		return "Tipo de archivo no permitido. Usa: jpg, jpeg, png, gif, pdf, mp4, mov."
	case "oneof":
		return "Opción inválida."
	}
	return fmt.Sprintf("No cumple la regla %q.", fe.Tag())
}

// NormalizePhone drops spaces and dashes.
func NormalizePhone(raw string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(raw))
}

// StrongPassword requires at least one letter and one digit.
func StrongPassword(p string) bool {
	var letter, digit bool
	for _, r := range p {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return letter && digit
}

// AllowedEvidence checks the file extension against the allow-list.
func AllowedEvidence(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	return config.EvidenceExtensions[ext]
}

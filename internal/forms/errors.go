// Package forms holds the field specifications of the article and registration
// forms and validates raw submitted values into ready-to-persist data.
package forms

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// FieldErrors maps a form field name to its first error message
type FieldErrors map[string]string

// Add records msg for field unless an earlier error is already set
func (fe FieldErrors) Add(field, msg string) {
	if _, exists := fe[field]; !exists {
		fe[field] = msg
	}
}

// Has reports whether field has an error
func (fe FieldErrors) Has(field string) bool {
	_, ok := fe[field]
	return ok
}

// Get returns the error message for field or ""
func (fe FieldErrors) Get(field string) string {
	return fe[field]
}

// Valid reports whether no field failed
func (fe FieldErrors) Valid() bool {
	return len(fe) == 0
}

func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for field, msg := range fe {
		parts = append(parts, field+": "+msg)
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// validatorInstance returns the shared validator; field names in errors come from the form tag
func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// collect runs struct validation on v and translates failures into FieldErrors
func collect(v interface{}, fe FieldErrors) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate %T: %w", v, err)
	}
	for _, ferr := range verrs {
		fe.Add(ferr.Field(), message(ferr))
	}
	return nil
}

// message renders a validator failure as the user-facing French message
func message(ferr validator.FieldError) string {
	switch ferr.Tag() {
	case "required":
		return "Cette valeur ne doit pas être vide."
	case "email":
		return "Cette valeur n'est pas une adresse email valide."
	case "max":
		return fmt.Sprintf("Cette chaîne est trop longue. Elle doit avoir au maximum %s caractères.", ferr.Param())
	case "min":
		return fmt.Sprintf("Cette chaîne est trop courte. Elle doit avoir au minimum %s caractères.", ferr.Param())
	case "numeric", "number":
		return "Cette valeur n'est pas valide."
	default:
		return "Cette valeur n'est pas valide."
	}
}

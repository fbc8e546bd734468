// Package validation turns go-playground/validator results into per-field messages.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldErrors maps a field name to one or more human-readable messages.
type FieldErrors map[string][]string

func (e FieldErrors) Add(field, message string) {
	e[field] = append(e[field], message)
}

// Error lists fields in name order so the text is stable.
func (e FieldErrors) Error() string {
	names := make([]string, 0, len(e))
	for name := range e {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+strings.Join(e[name], " "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// New returns a validator that reports fields by their json tag name.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	// maxbytes bounds the encoded length in bytes, which is what bcrypt limits
	_ = v.RegisterValidation("maxbytes", maxBytes)
	return v
}

func maxBytes(fl validator.FieldLevel) bool {
	n, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= n
}

// Struct validates s and returns nil when it passes.
// Errors that are not validation failures are returned unchanged.
func Struct(v *validator.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := FieldErrors{}
	for _, fe := range verrs {
		field := fe.Field()
		if fe.Tag() == "eqfield" {
			field = strings.ToLower(fe.Param())
		}
		fields.Add(field, Message(field, fe.Tag(), fe.Param()))
	}
	return fields
}

// Var validates a single value under the given field name, appending any failures to e.
func (e FieldErrors) Var(v *validator.Validate, field string, value any, tag string) {
	err := v.Var(value, tag)
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		e.Add(field, fmt.Sprintf("The %s is invalid.", display(field)))
		return
	}
	for _, fe := range verrs {
		e.Add(field, Message(field, fe.Tag(), fe.Param()))
	}
}

// Message renders the text for one failed rule.
func Message(field, tag, param string) string {
	name := display(field)
	switch tag {
	case "required":
		return fmt.Sprintf("The %s field is required.", name)
	case "email":
		return fmt.Sprintf("The %s must be a valid email address.", name)
	case "max":
		return fmt.Sprintf("The %s may not be greater than %s characters.", name, param)
	case "maxbytes":
		return fmt.Sprintf("The %s may not be greater than %s bytes.", name, param)
	case "min":
		return fmt.Sprintf("The %s must be at least %s characters.", name, param)
	case "eqfield":
		return fmt.Sprintf("The %s confirmation does not match.", name)
	default:
		return fmt.Sprintf("The %s is invalid.", name)
	}
}

func display(field string) string {
	return strings.ReplaceAll(field, "_", " ")
}

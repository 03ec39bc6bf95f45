package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// validatorInstance returns the shared validator. Field names in errors are taken
// from json tags so they match what the user typed into.
func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// FieldError is one failed form field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FormError collects every failed field of a form.
type FormError struct {
	Fields []FieldError
}

func (e *FormError) Error() string {
	var sb strings.Builder
	sb.WriteString("invalid form:")
	for _, f := range e.Fields {
		sb.WriteString(fmt.Sprintf(" %s: %s;", f.Field, f.Message))
	}
	return strings.TrimSuffix(sb.String(), ";")
}

// Message returns the message for a field, or "" when the field passed.
func (e *FormError) Message(field string) string {
	for _, f := range e.Fields {
		if f.Field == field {
			return f.Message
		}
	}
	return ""
}

// Struct validates a form struct by its validate tags. Failures are returned
// as *FormError with one readable message per field; other errors pass through.
func Struct(form any) error {
	err := validatorInstance().Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &FormError{}
	seen := make(map[string]bool)
	for _, fe := range verrs {
		field := fe.Field()
		if seen[field] {
			continue
		}
		seen[field] = true
		out.Fields = append(out.Fields, FieldError{Field: field, Message: message(fe)})
	}
	return out
}

// labels maps json field names to display labels.
var labels = map[string]string{
	"full_name":        "Full name",
	"email":            "Email",
	"password":         "Password",
	"confirm_password": "Password confirmation",
	"jobDescription":   "Job description",
	"jobUrl":           "Job URL",
	"cvId":             "CV",
	"style":            "Style",
	"tone":             "Tone",
}

func label(field string) string {
	if l, ok := labels[field]; ok {
		return l
	}
	return field
}

func message(fe validator.FieldError) string {
	name := label(fe.Field())
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "required_without":
		return fmt.Sprintf("%s or %s is required", name, strings.ToLower(label(jsonName(fe.Param()))))
	case "email":
		return "Invalid email address"
	case "url", "http_url":
		return "Invalid URL"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", name, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", name, fe.Param())
	case "containsany":
		return passwordRule(fe.Param())
	case "eqfield":
		return "Passwords don't match"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", name, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s failed %s", name, fe.Tag())
	}
}

func passwordRule(charset string) string {
	switch {
	case strings.ContainsAny(charset, "ABCDEFGHIJKLMNOPQRSTUVWXYZ"):
		return "Password must contain at least one uppercase letter"
	case strings.ContainsAny(charset, "abcdefghijklmnopqrstuvwxyz"):
		return "Password must contain at least one lowercase letter"
	default:
		return "Password must contain at least one number"
	}
}

// jsonName maps a Go field name used in a cross-field tag to its json name.
func jsonName(goField string) string {
	switch goField {
	case "JobURL":
		return "jobUrl"
	case "JobDescription":
		return "jobDescription"
	default:
		return goField
	}
}

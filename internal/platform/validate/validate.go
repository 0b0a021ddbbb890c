package validate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var v = validator.New(validator.WithRequiredStructEnabled())

// Struct validates s using go-playground/validator tags.
func Struct(s any) error {
	if err := v.Struct(s); err != nil {
		if ves, ok := err.(validator.ValidationErrors); ok {
			return &Error{Errors: ves}
		}
		return err
	}
	return nil
}

// Error wraps validator.ValidationErrors with user-facing messages.
type Error struct {
	Errors validator.ValidationErrors
}

func (e *Error) Error() string {
	var msgs []string
	for _, fe := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("%s %s", fe.Field(), msgForTag(fe)))
	}
	return strings.Join(msgs, "; ")
}

// Fields returns field name -> message, for display next to form inputs.
func (e *Error) Fields() map[string]string {
	out := make(map[string]string, len(e.Errors))
	for _, fe := range e.Errors {
		out[fe.Field()] = msgForTag(fe)
	}
	return out
}

// FieldNames returns the failing field names in sorted order.
func (e *Error) FieldNames() []string {
	out := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		out = append(out, fe.Field())
	}
	sort.Strings(out)
	return out
}

func msgForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_without":
		return fmt.Sprintf("is required when %s is empty", fe.Param())
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gtfield":
		return fmt.Sprintf("must be after %s", fe.Param())
	case "nefield":
		return fmt.Sprintf("must differ from %s", fe.Param())
	case "e164":
		return "must be a phone number in international format"
	default:
		return fmt.Sprintf("failed on '%s' validation", fe.Tag())
	}
}

package validate

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Struct validates a struct using go-playground/validator tags. On failure it
// returns a *FieldErrors describing every violated constraint.
func Struct(s any) error {
	if err := validate.Struct(s); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			return &FieldErrors{errs: verrs}
		}
		return err
	}
	return nil
}

// FieldErrors wraps validator.ValidationErrors with readable messages. The
// underlying tags still distinguish missing ("required") from out-of-range
// ("min"/"max") even though callers render a single message.
type FieldErrors struct {
	errs validator.ValidationErrors
}

func (e *FieldErrors) Error() string {
	msgs := make([]string, 0, len(e.errs))
	for _, fe := range e.errs {
		msgs = append(msgs, fmt.Sprintf("%s %s", fieldName(fe), msgForTag(fe)))
	}
	return strings.Join(msgs, "; ")
}

// Fields returns a field-name to message map for structured error responses.
func (e *FieldErrors) Fields() map[string]string {
	fields := make(map[string]string, len(e.errs))
	for _, fe := range e.errs {
		fields[fieldName(fe)] = msgForTag(fe)
	}
	return fields
}

func fieldName(fe validator.FieldError) string {
	name := fe.Field()
	if name == "" {
		return fe.StructField()
	}
	// Lower-case the leading rune so messages match the JSON payload names.
	return strings.ToLower(name[:1]) + name[1:]
}

func msgForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "latitude":
		return "must be a valid latitude"
	case "longitude":
		return "must be a valid longitude"
	default:
		return fmt.Sprintf("failed on %q validation", fe.Tag())
	}
}

package apperror

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks s against its `validate` struct tags and returns a
// ValidationError describing the first failing field, or nil.
// messages maps "Field.tag" (or just "Field") to user-facing text; fields without
// an entry get a generic sentence.
func Validate(s any, messages map[string]string) error {
	err := validatorInstance().Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return NewValidationError("Invalid input", err)
	}
	fe := fieldErrs[0]
	if msg, ok := messages[fe.StructField()+"."+fe.Tag()]; ok {
		return NewValidationError(msg, err)
	}
	if msg, ok := messages[fe.StructField()]; ok {
		return NewValidationError(msg, err)
	}
	return NewValidationError(genericFieldMessage(fe), err)
}

func genericFieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.StructField())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Please enter a %s", field)
	case "email":
		return "Please enter a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.StructField(), fe.Param())
	case "max":
		return fmt.Sprintf("%s cannot exceed %s characters", fe.StructField(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.StructField(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.StructField())
	}
}

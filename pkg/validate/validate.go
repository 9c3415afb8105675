// Package validate wraps go-playground/validator with readable error
// rendering for request DTOs.
package validate

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Struct validates a request struct against its validate tags.
func Struct[T any](value T) error {
	if err := validate.Struct(value); err != nil {
		return toReadableError(value, err)
	}
	return nil
}

func toReadableError(input any, err error) error {
	if verrs, ok := err.(validator.ValidationErrors); ok {
		msg := ""
		for _, fe := range verrs {
			msg += fmt.Sprintf("\n • Failed %T validation for field '%s': rule '%s' expected '%s', got '%v'.", input, fe.StructField(), fe.Tag(), fe.Param(), fe.Value())
		}
		return errors.New(msg)
	}
	return err
}

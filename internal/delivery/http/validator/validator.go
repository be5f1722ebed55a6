// Package validator adapts go-playground/validator to Echo's Validator
// interface.
package validator

import (
	playground "github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// CustomValidator wraps the go-playground validator for Echo.
type CustomValidator struct {
	validate *playground.Validate
}

// New creates the request validator.
func New() *CustomValidator {
	return &CustomValidator{
		validate: playground.New(playground.WithRequiredStructEnabled()),
	}
}

// Validate implements echo.Validator.
func (v *CustomValidator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		return errors.WithStack(err)
	}

	return nil
}

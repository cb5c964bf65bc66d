// Package validate checks ingested records against their struct tags.
package validate

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validator wraps a shared validator instance. The zero value is not
// usable; construct one with New.
type Validator struct {
	v *validator.Validate
}

// New returns a Validator with the standard tag set.
func New() *Validator {
	return &Validator{v: validator.New()}
}

// Struct validates s field by field and reports the first violation.
func (v *Validator) Struct(s any) error {
	if err := v.v.Struct(s); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	return nil
}

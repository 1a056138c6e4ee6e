package user

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iota-uz/campus-feed/pkg/constants"
)

type RegisterDTO struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Phone    string `json:"phone" validate:"omitempty,min=5"`
}

func (d *RegisterDTO) Normalize() {
	d.Email = NormalizeEmail(d.Email)
	d.Phone = strings.TrimSpace(d.Phone)
}

// Ok validates the DTO and returns field-keyed messages for anything
// invalid.
func (d *RegisterDTO) Ok() (map[string]string, bool) {
	d.Normalize()

	errs := constants.Validate.Struct(d)
	if errs == nil {
		return map[string]string{}, true
	}

	out := make(map[string]string)
	for _, err := range errs.(validator.ValidationErrors) {
		out[err.Field()] = err.Tag()
	}
	return out, false
}

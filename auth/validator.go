package auth

import (
	"chat-hub/errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type RegisterRequest struct {
	UserName    string `validate:"required,min=3,max=20"`
	Password    string `validate:"required,min=6"`
	DisplayName string `validate:"omitempty,max=30"`
}

type LoginRequest struct {
	UserName string `validate:"required"`
	Password string `validate:"required"`
}

func ValidateRegister(req RegisterRequest) error {
	if err := validate.Struct(req); err != nil {
		return errors.Validation{Field: "register request", Cause: err}
	}
	return nil
}

func ValidateLogin(req LoginRequest) error {
	if err := validate.Struct(req); err != nil {
		return errors.Validation{Field: "login request", Cause: err}
	}
	return nil
}

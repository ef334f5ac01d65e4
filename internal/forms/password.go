package forms

import "strings"

// ForgotPasswordInput requests a reset link.
type ForgotPasswordInput struct {
	Email string `json:"email" form:"email" validate:"required,email"`
}

// Validate checks the input before any request is made.
func (in *ForgotPasswordInput) Validate() error {
	in.Email = strings.TrimSpace(in.Email)
	if err := validate.Struct(in); err != nil {
		return FromValidation(err, in)
	}
	return nil
}

// ResetPasswordInput sets a new password from a reset token.
type ResetPasswordInput struct {
	Token           string `json:"token" form:"token" validate:"required"`
	Password        string `json:"password" form:"password" validate:"required,min=8,max=128"`
	PasswordConfirm string `json:"password_confirm" form:"password_confirm" validate:"required"`
}

// Validate rejects mismatched passwords with ErrPasswordMismatch and other
// problems with FieldErrors.
func (in *ResetPasswordInput) Validate() error {
	if in.Password != in.PasswordConfirm {
		return ErrPasswordMismatch
	}
	if err := validate.Struct(in); err != nil {
		return FromValidation(err, in)
	}
	return nil
}

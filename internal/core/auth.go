package core

import (
	"errors"
	"net/mail"
	"strings"
)

// MinPasswordLength applies to registration, password changes and resets.
const MinPasswordLength = 8

var (
	ErrEmptyUsername = errors.New("username is required")
	ErrInvalidEmail  = errors.New("invalid email address")
	ErrShortPassword = errors.New("password must be at least 8 characters long")
)

// Registration is the sign-up input.
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r Registration) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return ErrEmptyUsername
	}
	if err := ValidateEmail(r.Email); err != nil {
		return err
	}
	return ValidatePassword(r.Password)
}

// PasswordReset completes a reset started by e-mail. UID and Token come from
// the reset link.
type PasswordReset struct {
	UID         string `json:"uid"`
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func ValidateEmail(s string) error {
	if _, err := mail.ParseAddress(strings.TrimSpace(s)); err != nil {
		return ErrInvalidEmail
	}
	return nil
}

func ValidatePassword(s string) error {
	if len(s) < MinPasswordLength {
		return ErrShortPassword
	}
	return nil
}

package auth

import (
	"strings"
	"unicode/utf8"

	"github.com/user/blogdesk-go/apperror"
)

// LoginRequest is the login payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the registration payload. ConfirmPassword is checked
// locally and never sent.
type RegisterRequest struct {
	Name            string `json:"name" validate:"required,min=2,max=50"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"-" validate:"eqfield=Password"`
	Bio             string `json:"bio,omitempty" validate:"max=500"`
}

// AuthResponse is the data payload of a successful login or registration.
type AuthResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

var loginMessages = map[string]string{
	"Email.required":    "Email address is required",
	"Email.email":       "Please enter a valid email address",
	"Password.required": "Password is required",
}

var registerMessages = map[string]string{
	"Name.required":           "Full name is required",
	"Name.min":                "Name must be at least 2 characters",
	"Name.max":                "Name cannot exceed 50 characters",
	"Email.required":          "Email address is required",
	"Email.email":             "Please enter a valid email address",
	"Password.required":       "Password is required",
	"Password.min":            "Password must be at least 6 characters",
	"ConfirmPassword.eqfield": "Passwords do not match",
	"Bio.max":                 "Bio cannot exceed 500 characters",
}

// minPasswordStrength is the weakest password registration accepts.
const minPasswordStrength = 3

func (r *LoginRequest) validate() error {
	r.Email = strings.TrimSpace(r.Email)
	return apperror.Validate(r, loginMessages)
}

func (r *RegisterRequest) validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Bio = strings.TrimSpace(r.Bio)
	if r.ConfirmPassword == "" {
		r.ConfirmPassword = r.Password
	}
	if err := apperror.Validate(r, registerMessages); err != nil {
		return err
	}
	if PasswordStrength(r.Password) < minPasswordStrength {
		return apperror.NewValidationError("Password is too weak. Use a mix of letters, numbers, and symbols", nil)
	}
	return nil
}

// PasswordStrength scores a password from 0 to 5: one point for a length of at
// least six characters, and one each for a-z, A-Z, 0-9 and anything else.
// Letters outside ASCII count as symbols.
func PasswordStrength(password string) int {
	var lower, upper, digit, symbol bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			symbol = true
		}
	}
	score := 0
	for _, ok := range []bool{utf8.RuneCountInString(password) >= 6, lower, upper, digit, symbol} {
		if ok {
			score++
		}
	}
	return score
}

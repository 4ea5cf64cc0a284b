package auth

import (
	"regexp"
	"unicode"

	"github.com/go-playground/validator/v10"
)

const (
	// MinUsernameLength and MaxUsernameLength bound the username shape
	MinUsernameLength = 3
	MaxUsernameLength = 20
	// MinPasswordLength is the minimum required password length
	MinPasswordLength = 6
)

// usernameRegex allows letters, digits and underscores only
var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// validate is the shared validator instance with auth-specific rules registered
var validate *validator.Validate

func init() {
	validate = validator.New()
	// Errors are impossible here: both functions are non-nil.
	_ = validate.RegisterValidation("username_chars", validUsernameChars)
	_ = validate.RegisterValidation("password_strength", validPasswordStrength)
}

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=20,username_chars"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,password_strength"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LogoutRequest represents the logout request payload
type LogoutRequest struct {
	SessionToken string `json:"session_token"`
}

// validUsernameChars restricts usernames to alphanumerics and underscores
func validUsernameChars(fl validator.FieldLevel) bool {
	return usernameRegex.MatchString(fl.Field().String())
}

// validPasswordStrength requires at least one letter and one digit
func validPasswordStrength(fl validator.FieldLevel) bool {
	var hasLetter, hasDigit bool
	for _, r := range fl.Field().String() {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}

// ValidateRegisterRequest checks the registration payload against the
// username/email/password rules and returns one entry per rejected field.
// No store access happens here.
func ValidateRegisterRequest(req RegisterRequest) []ValidationError {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []ValidationError{{Field: "request", Reason: "invalid request"}}
	}

	out := make([]ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, ValidationError{
			Field:  fieldName(fe.Field()),
			Reason: reasonFor(fe),
		})
	}
	return out
}

// fieldName maps struct field names to their JSON names
func fieldName(field string) string {
	switch field {
	case "Username":
		return "username"
	case "Email":
		return "email"
	case "Password":
		return "password"
	}
	return field
}

// reasonFor renders a human-readable reason for a failed rule
func reasonFor(fe validator.FieldError) string {
	switch fe.Field() {
	case "Username":
		switch fe.Tag() {
		case "required":
			return "username is required"
		case "min", "max":
			return "username must be 3-20 characters"
		case "username_chars":
			return "username may contain only letters, digits and underscores"
		}
	case "Email":
		switch fe.Tag() {
		case "required":
			return "email is required"
		case "email":
			return "invalid email address"
		}
	case "Password":
		switch fe.Tag() {
		case "required":
			return "password is required"
		case "min":
			return "password must be at least 6 characters"
		case "password_strength":
			return "password must contain at least one letter and one digit"
		}
	}
	return "invalid value"
}

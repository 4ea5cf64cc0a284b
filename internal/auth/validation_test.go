package auth

import (
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func validRequest() RegisterRequest {
	return RegisterRequest{
		Username: "alice_01",
		Email:    "alice@example.com",
		Password: "hunter42",
	}
}

func TestValidateRegisterRequest_Valid(t *testing.T) {
	if errs := ValidateRegisterRequest(validRequest()); len(errs) != 0 {
		t.Errorf("ValidateRegisterRequest() = %v, want no errors", errs)
	}
}

func TestValidateRegisterRequest_Username(t *testing.T) {
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"minimum length", "abc", false},
		{"maximum length", strings.Repeat("a", 20), false},
		{"underscores and digits", "user_123", false},
		{"empty", "", true},
		{"too short", "ab", true},
		{"too long", strings.Repeat("a", 21), true},
		{"contains hyphen", "user-name", true},
		{"contains space", "user name", true},
		{"contains dot", "user.name", true},
		{"non-ascii", "usér", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			req.Username = tt.username

			errs := ValidateRegisterRequest(req)
			gotErr := hasFieldError(errs, "username")
			if gotErr != tt.wantErr {
				t.Errorf("username %q: got error = %v, want %v (errs: %v)", tt.username, gotErr, tt.wantErr, errs)
			}
		})
	}
}

func TestValidateRegisterRequest_Email(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"valid", "bob@example.com", false},
		{"valid with subdomain", "bob@mail.example.com", false},
		{"empty", "", true},
		{"missing at", "bobexample.com", true},
		{"missing domain", "bob@", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			req.Email = tt.email

			errs := ValidateRegisterRequest(req)
			gotErr := hasFieldError(errs, "email")
			if gotErr != tt.wantErr {
				t.Errorf("email %q: got error = %v, want %v (errs: %v)", tt.email, gotErr, tt.wantErr, errs)
			}
		})
	}
}

func TestValidateRegisterRequest_Password(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"letter and digit", "abc123", false},
		{"digit embedded", "passw0rd", false},
		{"empty", "", true},
		{"too short", "a1b2c", true},
		{"letters only", "abcdef", true},
		{"digits only", "123456", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			req.Password = tt.password

			errs := ValidateRegisterRequest(req)
			gotErr := hasFieldError(errs, "password")
			if gotErr != tt.wantErr {
				t.Errorf("password %q: got error = %v, want %v (errs: %v)", tt.password, gotErr, tt.wantErr, errs)
			}
		})
	}
}

func TestValidateRegisterRequest_MultipleFields(t *testing.T) {
	errs := ValidateRegisterRequest(RegisterRequest{
		Username: "a",
		Email:    "not-an-email",
		Password: "short",
	})

	for _, field := range []string{"username", "email", "password"} {
		if !hasFieldError(errs, field) {
			t.Errorf("expected an error for field %q, got %v", field, errs)
		}
	}
}

// Property: any username built from the allowed alphabet at an allowed length
// passes, regardless of composition.
func TestValidateRegisterRequest_UsernameProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		username := rapid.StringMatching(`[a-zA-Z0-9_]{3,20}`).Draw(t, "username")

		req := validRequest()
		req.Username = username

		if errs := ValidateRegisterRequest(req); hasFieldError(errs, "username") {
			t.Fatalf("username %q rejected: %v", username, errs)
		}
	})
}

func hasFieldError(errs []ValidationError, field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}

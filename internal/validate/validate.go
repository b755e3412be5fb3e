package validate

import (
	"fmt"
	"net/mail"
	"strings"
)

const (
	usernameMinLen = 5
	usernameMaxLen = 50
	passwordMinLen = 5
	passwordMaxLen = 200
)

// ValidationError reports the first registration field that failed
// validation. The message is safe to show to the client.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Registration checks the shape of registration input. Checks run in
// order and the first failure wins. It has no side effects.
func Registration(name, email, username, password string) *ValidationError {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "name", Message: "Name is required"}
	}
	if strings.TrimSpace(email) == "" {
		return &ValidationError{Field: "email", Message: "Email is required"}
	}
	if strings.TrimSpace(username) == "" {
		return &ValidationError{Field: "username", Message: "Username is required"}
	}
	if password == "" {
		return &ValidationError{Field: "password", Message: "Password is required"}
	}
	if !IsEmail(email) {
		return &ValidationError{Field: "email", Message: "Invalid email format"}
	}
	if len(username) < usernameMinLen {
		return &ValidationError{Field: "username", Message: "Username too short"}
	}
	if len(username) > usernameMaxLen {
		return &ValidationError{Field: "username", Message: "Username too long"}
	}
	if len(password) < passwordMinLen {
		return &ValidationError{Field: "password", Message: "Password too short"}
	}
	if len(password) > passwordMaxLen {
		return &ValidationError{Field: "password", Message: "Password too long"}
	}
	return nil
}

// IsEmail reports whether s is a bare address under RFC 5322 grammar.
// Display names ("Alice <a@x.com>") do not count: login and registration
// accept only the address itself.
func IsEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	return addr.Address == s
}

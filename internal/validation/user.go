package validation

import (
	"net/mail"
	"strings"

	"github.com/iliyamo/water-network-api/internal/apperr"
	"github.com/iliyamo/water-network-api/internal/model"
)

// NormalizeEmail trims and lower-cases an address so the unique index
// compares like with like.
func NormalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Email checks that s parses as a bare address.
func Email(s string) error {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return apperr.ValidationFailed("A valid email is required")
	}
	return nil
}

// MaxPasswordBytes is the longest password bcrypt will hash.
const MaxPasswordBytes = 72

// Password rejects empty passwords and ones bcrypt cannot hash.
func Password(s string) error {
	if s == "" {
		return apperr.ValidationFailed("Password is required")
	}
	if len(s) > MaxPasswordBytes {
		return apperr.ValidationFailed("Password must be at most 72 bytes")
	}
	return nil
}

// Registration validates a sign-up request and resolves the role, which
// defaults to user when blank.
func Registration(name, email, password, role string) (model.Role, error) {
	if strings.TrimSpace(name) == "" {
		return "", apperr.ValidationFailed("Name is required")
	}
	if err := Email(email); err != nil {
		return "", err
	}
	if err := Password(password); err != nil {
		return "", err
	}
	r := model.Role(strings.ToLower(strings.TrimSpace(role)))
	if r == "" {
		r = model.RoleUser
	}
	if !r.Valid() {
		return "", apperr.ValidationFailed("Role must be user or admin")
	}
	return r, nil
}

package service

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound covers both missing and not-owned resources so callers
	// cannot distinguish them.
	ErrNotFound = errors.New("not found")

	ErrUserNotExist    = errors.New("user does not exist")
	ErrInvalidPassword = errors.New("invalid password")
	ErrInactiveAccount = errors.New("user account is inactive")
	// ErrNotProvisioned is returned when a valid account has no profile
	// yet; an admin must register it before login is possible.
	ErrNotProvisioned = errors.New("user account is not provisioned")

	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

// FieldErrors enumerates per-field validation problems; it serializes as the
// field→messages map of a 400 response.
type FieldErrors map[string][]string

func (f FieldErrors) Error() string {
	var parts []string
	for field, msgs := range f {
		parts = append(parts, field+": "+strings.Join(msgs, "; "))
	}
	return strings.Join(parts, ", ")
}

func (f FieldErrors) Add(field, msg string) {
	f[field] = append(f[field], msg)
}

// AsFieldErrors unwraps err into FieldErrors when possible.
func AsFieldErrors(err error) (FieldErrors, bool) {
	var fe FieldErrors
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

package errors

import (
	"errors"
	"fmt"
)

// Common error types for the session client
var (
	// Configuration errors
	ErrConfigMissing = errors.New("configuration value missing")

	// Storage errors
	ErrStorage        = errors.New("storage error")
	ErrStorageLocked  = errors.New("secure storage is not available")
	ErrInvalidRecord  = errors.New("invalid stored session record")
	ErrDecryptFailed  = errors.New("unable to decrypt stored value")
	ErrUnknownBackend = errors.New("unknown storage backend")

	// Provider errors
	ErrProvider        = errors.New("identity provider error")
	ErrNoSession       = errors.New("no session")
	ErrInvalidToken    = errors.New("invalid token")
	ErrMissingVerifier = errors.New("pkce code verifier not found")

	// Flow errors
	ErrCanceled      = errors.New("canceled by user")
	ErrQueryParams   = errors.New("error getting query params from url")
	ErrInvalidNonce  = errors.New("invalid nonce")
	ErrStateMismatch = errors.New("state mismatch")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New is errors.New, re-exported so callers need a single errors import
func New(text string) error {
	return errors.New(text)
}

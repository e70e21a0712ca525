package sessions

import (
	autherrors "github.com/jrsteele09/go-auth-session/internal/errors"
)

var (
	ErrMissingIdentityToken = autherrors.New("could not get identity token from credential")
	ErrNoSession            = autherrors.ErrNoSession
)

// SignInError is returned when the identity provider rejects a sign-in.
type SignInError struct {
	Message       string
	OriginalError error
}

func (e *SignInError) Error() string {
	if e.OriginalError == nil {
		return e.Message
	}
	return e.Message + ": " + e.OriginalError.Error()
}

func (e *SignInError) Unwrap() error {
	return e.OriginalError
}

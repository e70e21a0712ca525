package apple

import (
	"context"
	"fmt"

	autherrors "github.com/jrsteele09/go-auth-session/internal/errors"
)

// CodeCanceled is the error code reported when the user backs out of the Apple prompt.
const CodeCanceled = "ERR_REQUEST_CANCELED"

// Scope of the user data requested from Apple.
type Scope string

const (
	ScopeFullName Scope = "name"
	ScopeEmail    Scope = "email"
)

// Request describes a credential request.
type Request struct {
	Scopes []Scope
}

// Credential is the result of a successful Apple authorization. Email and
// FullName are only populated the first time a user authorizes the app.
// Nonce is the raw nonce whose hash was sent to Apple, it has to accompany the
// identity token when it is exchanged.
type Credential struct {
	IdentityToken     string
	AuthorizationCode string
	User              string
	Email             string
	FullName          string
	Nonce             string
}

// Requester obtains an Apple identity credential.
type Requester interface {
	SignIn(ctx context.Context, request Request) (Credential, error)
}

// Error is a coded failure from the credential flow.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("apple sign in: %s", e.Code)
	}
	return fmt.Sprintf("apple sign in: %s: %s", e.Code, e.Message)
}

// Is matches autherrors.ErrCanceled for cancellation codes.
func (e *Error) Is(target error) bool {
	return target == autherrors.ErrCanceled && e.Code == CodeCanceled
}

// IsCanceled reports whether err is the user canceling the Apple prompt.
func IsCanceled(err error) bool {
	return autherrors.Is(err, autherrors.ErrCanceled)
}

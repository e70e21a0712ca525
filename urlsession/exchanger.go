package urlsession

import (
	"context"
	"fmt"
	"net/url"

	autherrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/provider"
	"github.com/rs/zerolog/log"
)

// CodeExchanger trades an authorization code for a session.
type CodeExchanger interface {
	ExchangeCodeForSession(ctx context.Context, code string) (*provider.Session, error)
}

// Exchanger turns an OAuth redirect URL into a session.
type Exchanger struct {
	auth CodeExchanger
}

// NewExchanger returns an Exchanger that trades codes through auth.
func NewExchanger(auth CodeExchanger) *Exchanger {
	return &Exchanger{auth: auth}
}

// CreateSessionFromURL reads the authorization code from the redirect URL and
// exchanges it. A URL without a code yields (nil, nil). Exchange failures are
// returned unchanged.
func (e *Exchanger) CreateSessionFromURL(ctx context.Context, rawURL string) (*provider.Session, error) {
	params, err := QueryParams(rawURL)
	if err != nil {
		return nil, autherrors.Wrapf(autherrors.ErrQueryParams, "%v", err)
	}

	if errorCode := ErrorCode(params); errorCode != "" {
		if desc := params.Get("error_description"); desc != "" {
			return nil, fmt.Errorf("%w - %s: %s", autherrors.ErrQueryParams, errorCode, desc)
		}
		return nil, fmt.Errorf("%w - %s", autherrors.ErrQueryParams, errorCode)
	}

	code := params.Get("code")
	if code == "" {
		log.Info().Msg("Authorization code not found in URL parameters")
		return nil, nil
	}

	session, err := e.auth.ExchangeCodeForSession(ctx, code)
	if err != nil {
		log.Error().Err(err).Msg("Error exchanging code for session")
		return nil, err
	}
	return session, nil
}

// QueryParams merges the query string and the fragment of rawURL. Fragment
// values take precedence, providers that use the implicit flow put tokens there.
func QueryParams(rawURL string) (url.Values, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	params := u.Query()
	if u.Fragment != "" {
		fragment, err := url.ParseQuery(u.Fragment)
		if err != nil {
			return nil, err
		}
		for k, v := range fragment {
			params[k] = v
		}
	}
	return params, nil
}

// ErrorCode returns the provider error carried by the redirect, if any.
func ErrorCode(params url.Values) string {
	if code := params.Get("errorCode"); code != "" {
		return code
	}
	return params.Get("error")
}

package apple

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-session/browser"
	autherrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	Issuer       = "https://appleid.apple.com"
	AuthorizeURL = Issuer + "/auth/authorize"
	TokenURL     = Issuer + "/auth/token"
	KeysURL      = Issuer + "/auth/keys"

	// Apple redirects with this error when the user closes the consent page
	userCanceledError = "user_cancelled_authorize"
)

var _ Requester = (*WebRequester)(nil)

// TokenVerifier checks an identity token signature, issuer, audience and expiry.
// *oidc.IDTokenVerifier satisfies it.
type TokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)
}

// NewVerifier verifies identity tokens against Apple's published signing keys.
// Keys are fetched lazily on the first verification.
func NewVerifier(ctx context.Context, clientID string) *oidc.IDTokenVerifier {
	keySet := oidc.NewRemoteKeySet(ctx, KeysURL)
	return oidc.NewVerifier(Issuer, keySet, &oidc.Config{ClientID: clientID})
}

// WebRequester runs Sign in with Apple for the web in a browser session. Apple
// posts the result back (response_mode=form_post) to the redirect URI.
type WebRequester struct {
	oauth    *oauth2.Config
	session  browser.AuthSession
	verifier TokenVerifier
}

func NewWebRequester(clientID, redirectURI string, session browser.AuthSession, verifier TokenVerifier) *WebRequester {
	return &WebRequester{
		oauth: &oauth2.Config{
			ClientID:    clientID,
			RedirectURL: redirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:  AuthorizeURL,
				TokenURL: TokenURL,
			},
		},
		session:  session,
		verifier: verifier,
	}
}

func (r *WebRequester) SignIn(ctx context.Context, request Request) (Credential, error) {
	rawNonce := generateRandomString(32)
	hashedNonce := hashNonce(rawNonce)
	state := uuid.NewString()

	cfg := *r.oauth
	cfg.Scopes = scopeStrings(request.Scopes)
	authURL := cfg.AuthCodeURL(state,
		oauth2.SetAuthURLParam("response_type", "code id_token"),
		oauth2.SetAuthURLParam("response_mode", "form_post"),
		oauth2.SetAuthURLParam("nonce", hashedNonce),
	)

	result, err := r.session.OpenAuthSession(ctx, authURL, r.oauth.RedirectURL)
	if err != nil {
		return Credential{}, err
	}
	if result.Type != browser.ResultSuccess {
		return Credential{}, &Error{Code: CodeCanceled, Message: "the authorization attempt was canceled"}
	}

	u, err := url.Parse(result.URL)
	if err != nil {
		return Credential{}, autherrors.Wrapf(err, "parsing apple callback")
	}
	params := u.Query()

	if errorParam := params.Get("error"); errorParam != "" {
		if errorParam == userCanceledError {
			return Credential{}, &Error{Code: CodeCanceled, Message: errorParam}
		}
		return Credential{}, &Error{Code: errorParam, Message: params.Get("error_description")}
	}
	if params.Get("state") != state {
		return Credential{}, autherrors.ErrStateMismatch
	}

	credential := Credential{
		AuthorizationCode: params.Get("code"),
		Nonce:             rawNonce,
	}

	rawIDToken := params.Get("id_token")
	if rawIDToken == "" {
		return credential, nil
	}

	idToken, err := r.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return Credential{}, autherrors.Wrapf(autherrors.ErrInvalidToken, "identity token verification failed: %v", err)
	}
	if idToken.Nonce != hashedNonce {
		return Credential{}, autherrors.ErrInvalidNonce
	}

	var claims struct {
		Email string `json:"email"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return Credential{}, autherrors.Wrapf(err, "reading identity token claims")
	}

	credential.IdentityToken = rawIDToken
	credential.User = idToken.Subject
	credential.Email = claims.Email

	// user is only posted on the first authorization
	if rawUser := params.Get("user"); rawUser != "" {
		var user appleUser
		if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
			log.Warn().Err(err).Msg("Ignoring malformed apple user payload")
		} else {
			credential.FullName = user.fullName()
			if credential.Email == "" {
				credential.Email = user.Email
			}
		}
	}
	return credential, nil
}

type appleUser struct {
	Name struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	} `json:"name"`
	Email string `json:"email"`
}

func (u appleUser) fullName() string {
	return strings.TrimSpace(u.Name.FirstName + " " + u.Name.LastName)
}

func scopeStrings(scopes []Scope) []string {
	out := make([]string, 0, len(scopes))
	for _, s := range scopes {
		out = append(out, string(s))
	}
	return out
}

// generateRandomString creates a random base64url string
func generateRandomString(length int) string {
	b := make([]byte, length)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

func hashNonce(nonce string) string {
	sum := sha256.Sum256([]byte(nonce))
	return hex.EncodeToString(sum[:])
}

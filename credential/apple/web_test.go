package apple_test

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"net/url"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-auth-session/browser"
	"github.com/jrsteele09/go-auth-session/credential/apple"
	autherrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/stretchr/testify/require"
)

const (
	testClientID    = "com.launchtoday.expo.web"
	testRedirectURI = "http://127.0.0.1:8765/callback"
)

type fakeSession struct {
	respond func(authURL, returnURL string) (browser.Result, error)
	authURL string
}

func (f *fakeSession) OpenAuthSession(_ context.Context, authURL, returnURL string) (browser.Result, error) {
	f.authURL = authURL
	return f.respond(authURL, returnURL)
}

type fixture struct {
	key      *rsa.PrivateKey
	verifier *oidc.IDTokenVerifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	keySet := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{key.Public()}}
	return &fixture{
		key:      key,
		verifier: oidc.NewVerifier(apple.Issuer, keySet, &oidc.Config{ClientID: testClientID}),
	}
}

func (f *fixture) sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(f.key)
	require.NoError(t, err)
	return token
}

func (f *fixture) idToken(t *testing.T, nonce string) string {
	return f.sign(t, jwt.MapClaims{
		"iss":   apple.Issuer,
		"aud":   testClientID,
		"sub":   "001234.apple-user",
		"email": "jane@privaterelay.appleid.com",
		"nonce": nonce,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
}

// callback builds the redirect Apple would post back for the given authorize URL.
func callback(t *testing.T, authURL, returnURL string, extra url.Values) browser.Result {
	t.Helper()
	auth, err := url.Parse(authURL)
	require.NoError(t, err)
	q := url.Values{"state": {auth.Query().Get("state")}, "code": {"auth-code"}}
	for k, v := range extra {
		q[k] = v
	}
	return browser.Result{Type: browser.ResultSuccess, URL: returnURL + "?" + q.Encode()}
}

func TestWebRequester_SignIn(t *testing.T) {
	f := newFixture(t)
	session := &fakeSession{}
	session.respond = func(authURL, returnURL string) (browser.Result, error) {
		nonce, _ := url.Parse(authURL)
		return callback(t, authURL, returnURL, url.Values{
			"id_token": {f.idToken(t, nonce.Query().Get("nonce"))},
			"user":     {`{"name":{"firstName":"Jane","lastName":"Appleseed"},"email":"jane@privaterelay.appleid.com"}`},
		}), nil
	}

	r := apple.NewWebRequester(testClientID, testRedirectURI, session, f.verifier)
	cred, err := r.SignIn(context.Background(), apple.Request{Scopes: []apple.Scope{apple.ScopeFullName, apple.ScopeEmail}})
	require.NoError(t, err)
	require.NotEmpty(t, cred.IdentityToken)
	require.Equal(t, "auth-code", cred.AuthorizationCode)
	require.Equal(t, "001234.apple-user", cred.User)
	require.Equal(t, "jane@privaterelay.appleid.com", cred.Email)
	require.Equal(t, "Jane Appleseed", cred.FullName)
	require.NotEmpty(t, cred.Nonce)

	auth, err := url.Parse(session.authURL)
	require.NoError(t, err)
	require.Equal(t, "appleid.apple.com", auth.Host)
	q := auth.Query()
	require.Equal(t, "code id_token", q.Get("response_type"))
	require.Equal(t, "form_post", q.Get("response_mode"))
	require.Equal(t, "name email", q.Get("scope"))
	require.Equal(t, testClientID, q.Get("client_id"))
	require.Equal(t, testRedirectURI, q.Get("redirect_uri"))
	require.NotEqual(t, cred.Nonce, q.Get("nonce"), "apple only sees the hashed nonce")
}

func TestWebRequester_CancelResult(t *testing.T) {
	f := newFixture(t)
	session := &fakeSession{respond: func(string, string) (browser.Result, error) {
		return browser.Result{Type: browser.ResultCancel}, nil
	}}

	_, err := apple.NewWebRequester(testClientID, testRedirectURI, session, f.verifier).SignIn(context.Background(), apple.Request{})
	require.Error(t, err)
	require.True(t, apple.IsCanceled(err))

	var appleErr *apple.Error
	require.ErrorAs(t, err, &appleErr)
	require.Equal(t, apple.CodeCanceled, appleErr.Code)
}

func TestWebRequester_UserCanceledOnConsentPage(t *testing.T) {
	f := newFixture(t)
	session := &fakeSession{}
	session.respond = func(authURL, returnURL string) (browser.Result, error) {
		return callback(t, authURL, returnURL, url.Values{"error": {"user_cancelled_authorize"}}), nil
	}

	_, err := apple.NewWebRequester(testClientID, testRedirectURI, session, f.verifier).SignIn(context.Background(), apple.Request{})
	require.True(t, apple.IsCanceled(err))
}

func TestWebRequester_ProviderError(t *testing.T) {
	f := newFixture(t)
	session := &fakeSession{}
	session.respond = func(authURL, returnURL string) (browser.Result, error) {
		return callback(t, authURL, returnURL, url.Values{"error": {"invalid_client"}}), nil
	}

	_, err := apple.NewWebRequester(testClientID, testRedirectURI, session, f.verifier).SignIn(context.Background(), apple.Request{})
	require.Error(t, err)
	require.False(t, apple.IsCanceled(err))
	require.Contains(t, err.Error(), "invalid_client")
}

func TestWebRequester_StateMismatch(t *testing.T) {
	f := newFixture(t)
	session := &fakeSession{respond: func(_, returnURL string) (browser.Result, error) {
		return browser.Result{Type: browser.ResultSuccess, URL: returnURL + "?state=forged&code=x"}, nil
	}}

	_, err := apple.NewWebRequester(testClientID, testRedirectURI, session, f.verifier).SignIn(context.Background(), apple.Request{})
	require.ErrorIs(t, err, autherrors.ErrStateMismatch)
}

func TestWebRequester_NonceMismatch(t *testing.T) {
	f := newFixture(t)
	session := &fakeSession{}
	session.respond = func(authURL, returnURL string) (browser.Result, error) {
		return callback(t, authURL, returnURL, url.Values{"id_token": {f.idToken(t, "replayed-nonce")}}), nil
	}

	_, err := apple.NewWebRequester(testClientID, testRedirectURI, session, f.verifier).SignIn(context.Background(), apple.Request{})
	require.ErrorIs(t, err, autherrors.ErrInvalidNonce)
}

func TestWebRequester_WrongAudience(t *testing.T) {
	f := newFixture(t)
	session := &fakeSession{}
	session.respond = func(authURL, returnURL string) (browser.Result, error) {
		auth, _ := url.Parse(authURL)
		token := f.sign(t, jwt.MapClaims{
			"iss":   apple.Issuer,
			"aud":   "someone.else",
			"sub":   "u",
			"nonce": auth.Query().Get("nonce"),
			"exp":   time.Now().Add(time.Hour).Unix(),
		})
		return callback(t, authURL, returnURL, url.Values{"id_token": {token}}), nil
	}

	_, err := apple.NewWebRequester(testClientID, testRedirectURI, session, f.verifier).SignIn(context.Background(), apple.Request{})
	require.ErrorIs(t, err, autherrors.ErrInvalidToken)
}

func TestWebRequester_MissingIdentityToken(t *testing.T) {
	f := newFixture(t)
	session := &fakeSession{}
	session.respond = func(authURL, returnURL string) (browser.Result, error) {
		return callback(t, authURL, returnURL, nil), nil
	}

	cred, err := apple.NewWebRequester(testClientID, testRedirectURI, session, f.verifier).SignIn(context.Background(), apple.Request{})
	require.NoError(t, err)
	require.Empty(t, cred.IdentityToken)
	require.Equal(t, "auth-code", cred.AuthorizationCode)
}

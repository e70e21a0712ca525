package provider

import (
	"context"
	"time"
)

// User is the identity attached to a Session.
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email,omitempty"`
	Aud          string         `json:"aud,omitempty"`
	Role         string         `json:"role,omitempty"`
	AppMetadata  map[string]any `json:"app_metadata,omitempty"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
}

// Session is the token set issued by the identity provider.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	ExpiresAt    int64  `json:"expires_at,omitempty"` // epoch seconds
	User         User   `json:"user"`
}

// Expiry returns the access token expiry, or the zero time when unknown.
func (s *Session) Expiry() time.Time {
	if s == nil || s.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.Unix(s.ExpiresAt, 0)
}

// ExpiresWithin reports whether the access token expires before now+margin.
// Sessions without an expiry never do.
func (s *Session) ExpiresWithin(now time.Time, margin time.Duration) bool {
	exp := s.Expiry()
	if exp.IsZero() {
		return false
	}
	return !now.Add(margin).Before(exp)
}

// AuthChangeEvent names a provider-pushed auth state transition.
type AuthChangeEvent string

const (
	SignedIn       AuthChangeEvent = "SIGNED_IN"
	TokenRefreshed AuthChangeEvent = "TOKEN_REFRESHED"
	SignedOut      AuthChangeEvent = "SIGNED_OUT"
)

// AuthStateListener receives auth state changes. session is nil for SignedOut.
type AuthStateListener func(event AuthChangeEvent, session *Session)

// IDTokenCredentials is a third-party identity token to trade for a session.
type IDTokenCredentials struct {
	Provider    string // e.g. "apple"
	Token       string
	Nonce       string
	AccessToken string
}

// SignInWithOAuthOptions configures the authorize URL for a redirect based sign-in.
type SignInWithOAuthOptions struct {
	Provider            string
	RedirectTo          string
	Scopes              string
	QueryParams         map[string]string
	SkipBrowserRedirect bool
}

// OAuthResponse carries the URL the user agent must visit to sign in.
type OAuthResponse struct {
	Provider string
	URL      string
}

// Auth is the set of identity provider operations the session layer depends on.
type Auth interface {
	SetSession(ctx context.Context, accessToken, refreshToken string) (*Session, error)
	GetSession(ctx context.Context) (*Session, error)
	SignInWithIDToken(ctx context.Context, credentials IDTokenCredentials) (*Session, error)
	SignInWithOAuth(ctx context.Context, options SignInWithOAuthOptions) (*OAuthResponse, error)
	ExchangeCodeForSession(ctx context.Context, code string) (*Session, error)
	SignOut(ctx context.Context) error
	OnAuthStateChange(listener AuthStateListener) *Subscription
}

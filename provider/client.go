package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	autherrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/internal/utils"
	"github.com/jrsteele09/go-auth-session/storage"
	"github.com/jrsteele09/go-auth-session/storage/memory"
	"github.com/rs/zerolog/log"
	gotrue "github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/gotrue-go/types"
	"golang.org/x/oauth2"
)

const (
	authPath          = "/auth/v1"
	verifierKeySuffix = "-code-verifier"
	maxErrorBody      = 64 * 1024
	apiStatusPrefix   = "response status code "
)

var _ Auth = (*Client)(nil)

// Client talks to a GoTrue compatible auth API and keeps the current session in
// memory. Every change to that session is pushed to OnAuthStateChange listeners.
type Client struct {
	baseURL       string
	anonKey       string
	httpClient    *http.Client
	verifiers     storage.Backend
	storageKey    string
	refreshMargin time.Duration
	openBrowser   func(url string) error
	nowTime       func() time.Time
	gotrue        gotrue.Client

	mu      sync.Mutex
	session *Session
	events  *Emitter
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithStorage sets where PKCE code verifiers are kept between SignInWithOAuth
// and ExchangeCodeForSession.
func WithStorage(backend storage.Backend, storageKey string) Option {
	return func(c *Client) {
		c.verifiers = backend
		if storageKey != "" {
			c.storageKey = storageKey
		}
	}
}

// WithRefreshMargin sets how long before expiry a session is refreshed.
func WithRefreshMargin(d time.Duration) Option {
	return func(c *Client) {
		c.refreshMargin = d
	}
}

// WithBrowserOpener is used by SignInWithOAuth unless SkipBrowserRedirect is set.
func WithBrowserOpener(open func(url string) error) Option {
	return func(c *Client) {
		c.openBrowser = open
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(c *Client) {
		c.nowTime = nowFunc
	}
}

// New creates a Client for the project at projectURL. Empty credentials are
// accepted; requests will fail when they are made.
func New(projectURL, anonKey string, options ...Option) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(projectURL, "/") + authPath,
		anonKey:       anonKey,
		httpClient:    &http.Client{Timeout: 15 * time.Second},
		verifiers:     memory.New(),
		storageKey:    "session",
		refreshMargin: 30 * time.Second,
		nowTime:       time.Now,
		events:        NewEmitter(),
	}
	for _, opt := range options {
		opt(c)
	}
	c.gotrue = gotrue.New("", anonKey).WithCustomGoTrueURL(c.baseURL)
	return c
}

func (c *Client) OnAuthStateChange(listener AuthStateListener) *Subscription {
	return c.events.Subscribe(listener)
}

// SetSession adopts an existing token pair. An access token that is expired (or
// about to be) is refreshed first; otherwise the user is loaded with it.
func (c *Client) SetSession(ctx context.Context, accessToken, refreshToken string) (*Session, error) {
	if accessToken == "" || refreshToken == "" {
		return nil, autherrors.Wrapf(autherrors.ErrNoSession, "access and refresh tokens are required")
	}

	claims, err := decodeAccessToken(accessToken)
	if err != nil {
		return nil, err
	}

	now := c.nowTime()
	if !now.Add(c.refreshMargin).Before(claims.expiresAt()) {
		return c.refresh(ctx, refreshToken)
	}

	api, cancel := c.api(ctx, accessToken)
	resp, err := api.GetUser()
	cancel()
	if err != nil {
		return nil, fromAPIError(err)
	}

	session := &Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresAt:    claims.expiresAt().Unix(),
		ExpiresIn:    int64(claims.expiresAt().Sub(now).Seconds()),
		User:         userFromAPI(resp.User),
	}
	c.saveSession(session)
	c.events.Emit(SignedIn, session)
	return utils.Clone(session), nil
}

// GetSession returns the current session, refreshing it first when it is due.
// It returns nil without error when nobody is signed in.
func (c *Client) GetSession(ctx context.Context) (*Session, error) {
	c.mu.Lock()
	current := utils.Clone(c.session)
	c.mu.Unlock()

	if current == nil {
		return nil, nil
	}
	if current.ExpiresWithin(c.nowTime(), c.refreshMargin) {
		return c.refresh(ctx, current.RefreshToken)
	}
	return current, nil
}

// RefreshSession trades the current refresh token for a new session.
func (c *Client) RefreshSession(ctx context.Context) (*Session, error) {
	c.mu.Lock()
	current := utils.Clone(c.session)
	c.mu.Unlock()

	if current == nil {
		return nil, autherrors.ErrNoSession
	}
	return c.refresh(ctx, current.RefreshToken)
}

func (c *Client) refresh(ctx context.Context, refreshToken string) (*Session, error) {
	api, cancel := c.api(ctx, c.anonKey)
	resp, err := api.RefreshToken(refreshToken)
	cancel()
	if err != nil {
		return nil, fromAPIError(err)
	}
	session := sessionFromAPI(resp.Session)
	c.fillExpiry(&session)
	c.saveSession(&session)
	c.events.Emit(TokenRefreshed, &session)
	return utils.Clone(&session), nil
}

// SignInWithIDToken posts the id_token grant directly; the gotrue client only
// accepts the password, refresh_token and pkce grants.
func (c *Client) SignInWithIDToken(ctx context.Context, credentials IDTokenCredentials) (*Session, error) {
	var session Session
	q := url.Values{"grant_type": {"id_token"}}
	body := map[string]string{
		"provider": credentials.Provider,
		"id_token": credentials.Token,
	}
	if credentials.Nonce != "" {
		body["nonce"] = credentials.Nonce
	}
	if credentials.AccessToken != "" {
		body["access_token"] = credentials.AccessToken
	}
	if err := c.do(ctx, http.MethodPost, "/token", q, body, &session); err != nil {
		return nil, err
	}
	return c.signedIn(&session), nil
}

// SignInWithOAuth builds the provider authorize URL for the PKCE flow and keeps
// the code verifier for the later ExchangeCodeForSession call. The URL is built
// locally since it must carry redirect_to and provider specific query params.
func (c *Client) SignInWithOAuth(ctx context.Context, options SignInWithOAuthOptions) (*OAuthResponse, error) {
	verifier := oauth2.GenerateVerifier()
	if err := c.verifiers.Set(ctx, c.verifierKey(), verifier); err != nil {
		return nil, autherrors.Wrapf(err, "storing code verifier")
	}

	q := url.Values{}
	q.Set("provider", options.Provider)
	if options.RedirectTo != "" {
		q.Set("redirect_to", options.RedirectTo)
	}
	if options.Scopes != "" {
		q.Set("scopes", options.Scopes)
	}
	q.Set("code_challenge", oauth2.S256ChallengeFromVerifier(verifier))
	q.Set("code_challenge_method", "s256")
	for k, v := range options.QueryParams {
		q.Set(k, v)
	}

	authorizeURL := c.baseURL + "/authorize?" + q.Encode()
	if !options.SkipBrowserRedirect && c.openBrowser != nil {
		if err := c.openBrowser(authorizeURL); err != nil {
			return nil, autherrors.Wrapf(err, "opening browser")
		}
	}
	return &OAuthResponse{Provider: options.Provider, URL: authorizeURL}, nil
}

// ExchangeCodeForSession trades an auth code and the stored verifier for a
// session. GoTrue expects the code as auth_code.
func (c *Client) ExchangeCodeForSession(ctx context.Context, code string) (*Session, error) {
	verifier, found, err := c.verifiers.Get(ctx, c.verifierKey())
	if err != nil {
		return nil, autherrors.Wrapf(err, "reading code verifier")
	}
	if !found {
		return nil, autherrors.ErrMissingVerifier
	}

	var session Session
	q := url.Values{"grant_type": {"pkce"}}
	body := map[string]string{"auth_code": code, "code_verifier": verifier}
	if err := c.do(ctx, http.MethodPost, "/token", q, body, &session); err != nil {
		return nil, err
	}

	if err := c.verifiers.Delete(ctx, c.verifierKey()); err != nil {
		log.Warn().Err(err).Msg("Failed to remove used code verifier")
	}
	return c.signedIn(&session), nil
}

// SignOut revokes the session at the provider. A session the provider no longer
// knows about counts as signed out; any other failure leaves the local session in place.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	current := utils.Clone(c.session)
	c.mu.Unlock()

	if current != nil {
		api, cancel := c.api(ctx, current.AccessToken)
		err := fromAPIError(api.Logout())
		cancel()
		var perr *Error
		if err != nil && !(autherrors.As(err, &perr) && isGoneStatus(perr.Status)) {
			return err
		}
	}

	c.saveSession(nil)
	if err := c.verifiers.Delete(ctx, c.verifierKey()); err != nil {
		log.Warn().Err(err).Msg("Failed to remove code verifier on sign out")
	}
	c.events.Emit(SignedOut, nil)
	return nil
}

// StartAutoRefresh refreshes the session in the background shortly before it
// expires until ctx is done.
func (c *Client) StartAutoRefresh(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.mu.Lock()
				current := utils.Clone(c.session)
				c.mu.Unlock()
				if current == nil || !current.ExpiresWithin(c.nowTime(), c.refreshMargin) {
					continue
				}
				if _, err := c.refresh(ctx, current.RefreshToken); err != nil {
					log.Error().Err(err).Msg("Auto refresh failed")
				}
			}
		}
	}()
}

func (c *Client) signedIn(session *Session) *Session {
	c.fillExpiry(session)
	c.saveSession(session)
	c.events.Emit(SignedIn, session)
	return utils.Clone(session)
}

func (c *Client) saveSession(session *Session) {
	c.mu.Lock()
	c.session = utils.Clone(session)
	c.mu.Unlock()
}

func (c *Client) fillExpiry(session *Session) {
	if session.ExpiresAt == 0 && session.ExpiresIn > 0 {
		session.ExpiresAt = c.nowTime().Add(time.Duration(session.ExpiresIn) * time.Second).Unix()
	}
}

func (c *Client) verifierKey() string {
	return c.storageKey + verifierKeySuffix
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+c.anonKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return decodeError(resp.StatusCode, raw)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// api returns a gotrue client whose requests carry ctx and, when set, token.
// The client timeout is applied to ctx since the transport replaces the request context.
// Calls must finish before cancel is called.
func (c *Client) api(ctx context.Context, token string) (gotrue.Client, context.CancelFunc) {
	cancel := context.CancelFunc(func() {})
	if c.httpClient.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
	}
	hc := *c.httpClient
	hc.Transport = contextTransport{ctx: ctx, base: hc.Transport}
	api := c.gotrue.WithClient(hc)
	if token != "" {
		api = api.WithToken(token)
	}
	return api, cancel
}

// contextTransport attaches ctx to requests built without one.
type contextTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req.WithContext(t.ctx))
}

// fromAPIError turns the gotrue "response status code N: body" errors into *Error.
func fromAPIError(err error) error {
	if err == nil {
		return nil
	}
	if rest, ok := strings.CutPrefix(err.Error(), apiStatusPrefix); ok {
		code, body, _ := strings.Cut(rest, ": ")
		if status, convErr := strconv.Atoi(code); convErr == nil {
			return decodeError(status, []byte(body))
		}
	}
	return fmt.Errorf("executing request: %w", err)
}

func sessionFromAPI(s types.Session) Session {
	return Session{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    s.TokenType,
		ExpiresIn:    int64(s.ExpiresIn),
		ExpiresAt:    s.ExpiresAt,
		User:         userFromAPI(s.User),
	}
}

func userFromAPI(u types.User) User {
	return User{
		ID:           u.ID.String(),
		Email:        u.Email,
		Aud:          u.Aud,
		Role:         u.Role,
		AppMetadata:  u.AppMetadata,
		UserMetadata: u.UserMetadata,
	}
}

func isGoneStatus(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden || status == http.StatusNotFound
}

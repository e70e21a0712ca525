package sessions

import (
	"context"
	"errors"
	"sync"

	"github.com/jrsteele09/go-auth-session/browser"
	"github.com/jrsteele09/go-auth-session/credential/apple"
	"github.com/jrsteele09/go-auth-session/internal/config"
	"github.com/jrsteele09/go-auth-session/internal/metrics"
	"github.com/jrsteele09/go-auth-session/internal/utils"
	"github.com/jrsteele09/go-auth-session/provider"
	"github.com/jrsteele09/go-auth-session/router"
	"github.com/jrsteele09/go-auth-session/storage"
	"github.com/jrsteele09/go-auth-session/urlsession"
	"github.com/rs/zerolog/log"
)

const (
	providerApple  = "apple"
	providerGoogle = "google"
)

// Navigator switches the visible screen.
type Navigator interface {
	Replace(route string)
}

// URLExchanger creates a session from an OAuth redirect URL.
type URLExchanger interface {
	CreateSessionFromURL(ctx context.Context, rawURL string) (*provider.Session, error)
}

// Deps are the collaborators a Manager needs.
type Deps struct {
	Auth      provider.Auth
	Storage   *storage.State
	Apple     apple.Requester
	Browser   browser.AuthSession
	Navigator Navigator
}

// State is what consumers read from the Manager.
type State struct {
	Session   *provider.Session
	User      *provider.User
	IsLoading bool
}

// Manager owns the signed-in session for the lifetime of the app. It restores
// the persisted session once storage is loaded, keeps it in sync with provider
// auth events and runs the sign-in and sign-out flows.
type Manager struct {
	auth        provider.Auth
	store       *storage.State
	apple       apple.Requester
	browser     browser.AuthSession
	nav         Navigator
	exchanger   URLExchanger
	redirectURI string
	googleQuery map[string]string

	mu             sync.Mutex
	session        *provider.Session
	user           *provider.User
	storageLoading bool
	initializing   bool
	listeners      map[uint64]func(State)
	nextID         uint64

	mountOnce    sync.Once
	unmountOnce  sync.Once
	restoreOnce  sync.Once
	restored     chan struct{}
	authSub      *provider.Subscription
	storageUnsub func()
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithRedirectURI sets the URI the OAuth provider redirects back to.
func WithRedirectURI(uri string) ManagerOption {
	return func(m *Manager) {
		m.redirectURI = uri
	}
}

// WithGoogleQueryParams sets the extra authorize parameters sent for Google.
func WithGoogleQueryParams(params map[string]string) ManagerOption {
	return func(m *Manager) {
		m.googleQuery = params
	}
}

// WithExchanger replaces the exchanger that turns a redirect URL into a session.
func WithExchanger(exchanger URLExchanger) ManagerOption {
	return func(m *Manager) {
		m.exchanger = exchanger
	}
}

// NewManager returns an unmounted Manager; every field of deps is required.
func NewManager(deps Deps, options ...ManagerOption) (*Manager, error) {
	// Validate required parameters
	if deps.Auth == nil {
		return nil, errors.New("[NewManager] Auth provider is required")
	}
	if deps.Storage == nil {
		return nil, errors.New("[NewManager] Storage is required")
	}
	if deps.Apple == nil {
		return nil, errors.New("[NewManager] Apple requester is required")
	}
	if deps.Browser == nil {
		return nil, errors.New("[NewManager] Browser session is required")
	}
	if deps.Navigator == nil {
		return nil, errors.New("[NewManager] Navigator is required")
	}

	storageLoading, _ := deps.Storage.Snapshot()
	m := &Manager{
		auth:           deps.Auth,
		store:          deps.Storage,
		apple:          deps.Apple,
		browser:        deps.Browser,
		nav:            deps.Navigator,
		exchanger:      urlsession.NewExchanger(deps.Auth),
		redirectURI:    config.DefaultRedirectURI,
		googleQuery:    map[string]string{"access_type": "offline", "prompt": "select_account consent"},
		storageLoading: storageLoading,
		initializing:   true,
		listeners:      make(map[uint64]func(State)),
		restored:       make(chan struct{}),
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// Mount subscribes to auth events and storage, and starts loading the stored
// session. The stored session is restored once, when storage first becomes ready.
func (m *Manager) Mount(ctx context.Context) {
	m.mountOnce.Do(func() {
		m.authSub = m.auth.OnAuthStateChange(m.handleAuthStateChange)
		m.storageUnsub = m.store.Subscribe(func(snap storage.Snapshot) {
			m.handleStorage(ctx, snap)
		})
		if loading, value := m.store.Snapshot(); !loading {
			m.handleStorage(ctx, storage.Snapshot{Phase: storage.Ready, Value: value})
		}
		m.store.Load(ctx)
	})
}

// Unmount releases the auth and storage subscriptions.
func (m *Manager) Unmount() {
	m.unmountOnce.Do(func() {
		m.authSub.Unsubscribe()
		if m.storageUnsub != nil {
			m.storageUnsub()
		}
	})
}

// WaitUntilRestored blocks until the initial restore has finished.
func (m *Manager) WaitUntilRestored(ctx context.Context) error {
	select {
	case <-m.restored:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns a copy of the current session, user and loading flag.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

// Subscribe registers fn for every state change. The returned function removes
// it and is safe to call more than once.
func (m *Manager) Subscribe(fn func(State)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.listeners, id)
			m.mu.Unlock()
		})
	}
}

func (m *Manager) handleStorage(ctx context.Context, snap storage.Snapshot) {
	loading := snap.IsLoading()
	m.mu.Lock()
	changed := m.storageLoading != loading
	m.storageLoading = loading
	m.mu.Unlock()
	if changed {
		m.notify()
	}

	if !loading {
		m.restoreOnce.Do(func() {
			go m.restore(ctx, snap.Value)
		})
	}
}

func (m *Manager) restore(ctx context.Context, raw *string) {
	defer func() {
		m.mu.Lock()
		m.initializing = false
		m.mu.Unlock()
		close(m.restored)
		m.notify()
	}()

	if raw == nil {
		metrics.Restores.WithLabelValues(metrics.OutcomeEmpty).Inc()
		return
	}

	record, err := ParseStoredSession(*raw)
	if err != nil {
		log.Error().Err(err).Msg("Error loading session")
		metrics.Restores.WithLabelValues(metrics.OutcomeError).Inc()
		m.store.Set(nil)
		return
	}

	if _, err := m.auth.SetSession(ctx, record.AccessToken, record.RefreshToken); err != nil {
		log.Error().Err(err).Msg("Error loading session")
		metrics.Restores.WithLabelValues(metrics.OutcomeError).Inc()
		m.store.Set(nil)
		return
	}

	session, err := m.auth.GetSession(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Error loading session")
		metrics.Restores.WithLabelValues(metrics.OutcomeError).Inc()
		m.store.Set(nil)
		return
	}
	if session == nil {
		metrics.Restores.WithLabelValues(metrics.OutcomeEmpty).Inc()
		return
	}

	m.setSession(session)
	metrics.Restores.WithLabelValues(metrics.OutcomeSuccess).Inc()
}

func (m *Manager) handleAuthStateChange(event provider.AuthChangeEvent, session *provider.Session) {
	switch event {
	case provider.SignedIn, provider.TokenRefreshed:
		if session == nil {
			return
		}
		m.persist(session)
		m.setSession(session)
	case provider.SignedOut:
		m.store.Set(nil)
		m.clearSession()
	}
}

// SignInWithApple requests an Apple identity token and exchanges it with the
// provider. A canceled prompt is not an error. setLoading may be nil.
func (m *Manager) SignInWithApple(ctx context.Context, setLoading func(bool)) error {
	loadingDone := startLoading(setLoading)
	defer loadingDone()

	credential, err := m.apple.SignIn(ctx, apple.Request{
		Scopes: []apple.Scope{apple.ScopeFullName, apple.ScopeEmail},
	})
	if err != nil {
		if apple.IsCanceled(err) {
			metrics.SignIns.WithLabelValues(providerApple, metrics.OutcomeCanceled).Inc()
			return nil
		}
		log.Error().Err(err).Str("provider", providerApple).Msg("There was a problem signing in the user")
		metrics.SignIns.WithLabelValues(providerApple, metrics.OutcomeError).Inc()
		return &SignInError{Message: "apple credential request failed", OriginalError: err}
	}

	if credential.IdentityToken == "" {
		log.Error().Str("provider", providerApple).Msg("Could not get identityToken from credential")
		metrics.SignIns.WithLabelValues(providerApple, metrics.OutcomeError).Inc()
		return ErrMissingIdentityToken
	}

	session, err := m.auth.SignInWithIDToken(ctx, provider.IDTokenCredentials{
		Provider: providerApple,
		Token:    credential.IdentityToken,
		Nonce:    credential.Nonce,
	})
	if err != nil {
		log.Error().Err(err).Str("provider", providerApple).Msg("There was a problem signing in the user")
		metrics.SignIns.WithLabelValues(providerApple, metrics.OutcomeError).Inc()
		return &SignInError{Message: "apple sign in failed", OriginalError: err}
	}
	if session == nil {
		log.Error().Str("provider", providerApple).Msg("No session returned from identity token sign in")
		metrics.SignIns.WithLabelValues(providerApple, metrics.OutcomeError).Inc()
		return ErrNoSession
	}

	m.persist(session)
	m.setSession(session)
	loadingDone()
	metrics.SignIns.WithLabelValues(providerApple, metrics.OutcomeSuccess).Inc()
	m.nav.Replace(router.RouteDashboard)
	return nil
}

// SignInWithGoogle runs the provider's PKCE redirect flow in the browser
// session. A canceled browser session is not an error. setLoading may be nil.
func (m *Manager) SignInWithGoogle(ctx context.Context, setLoading func(bool)) error {
	loadingDone := startLoading(setLoading)
	defer loadingDone()

	resp, err := m.auth.SignInWithOAuth(ctx, provider.SignInWithOAuthOptions{
		Provider:            providerGoogle,
		RedirectTo:          m.redirectURI,
		QueryParams:         m.googleQuery,
		SkipBrowserRedirect: true,
	})
	if err != nil {
		log.Error().Err(err).Str("provider", providerGoogle).Msg("There was a problem signing in the user")
		metrics.SignIns.WithLabelValues(providerGoogle, metrics.OutcomeError).Inc()
		return &SignInError{Message: "google sign in failed", OriginalError: err}
	}

	result, err := m.browser.OpenAuthSession(ctx, resp.URL, m.redirectURI)
	if err != nil {
		log.Error().Err(err).Str("provider", providerGoogle).Msg("Browser session failed")
		metrics.SignIns.WithLabelValues(providerGoogle, metrics.OutcomeError).Inc()
		return &SignInError{Message: "google sign in failed", OriginalError: err}
	}
	if result.Type != browser.ResultSuccess {
		metrics.SignIns.WithLabelValues(providerGoogle, metrics.OutcomeCanceled).Inc()
		return nil
	}

	session, err := m.exchanger.CreateSessionFromURL(ctx, result.URL)
	if err != nil {
		log.Error().Err(err).Str("provider", providerGoogle).Msg("There was a problem signing in the user")
		metrics.SignIns.WithLabelValues(providerGoogle, metrics.OutcomeError).Inc()
		return &SignInError{Message: "google sign in failed", OriginalError: err}
	}
	if session == nil {
		metrics.SignIns.WithLabelValues(providerGoogle, metrics.OutcomeEmpty).Inc()
		return nil
	}

	m.persist(session)
	m.setSession(session)
	metrics.SignIns.WithLabelValues(providerGoogle, metrics.OutcomeSuccess).Inc()
	m.nav.Replace(router.RouteDashboard)
	return nil
}

// SignOut ends the session at the provider. On failure the local session is
// left untouched.
func (m *Manager) SignOut(ctx context.Context) error {
	if err := m.auth.SignOut(ctx); err != nil {
		log.Error().Err(err).Msg("Could not sign out user")
		metrics.SignOuts.WithLabelValues(metrics.OutcomeError).Inc()
		return err
	}

	m.nav.Replace(router.RouteSignIn)
	m.store.Set(nil)
	m.clearSession()
	metrics.SignOuts.WithLabelValues(metrics.OutcomeSuccess).Inc()
	return nil
}

func (m *Manager) persist(session *provider.Session) {
	value, err := NewStoredSession(session).Encode()
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode session for storage")
		return
	}
	m.store.Set(value)
}

func (m *Manager) setSession(session *provider.Session) {
	m.mu.Lock()
	m.session = utils.Clone(session)
	m.user = utils.Clone(&session.User)
	m.mu.Unlock()
	m.notify()
}

func (m *Manager) clearSession() {
	m.mu.Lock()
	m.session = nil
	m.user = nil
	m.mu.Unlock()
	m.notify()
}

func (m *Manager) stateLocked() State {
	return State{
		Session:   utils.Clone(m.session),
		User:      utils.Clone(m.user),
		IsLoading: m.storageLoading || m.initializing,
	}
}

func (m *Manager) notify() {
	m.mu.Lock()
	state := m.stateLocked()
	listeners := make([]func(State), 0, len(m.listeners))
	for _, fn := range m.listeners {
		listeners = append(listeners, fn)
	}
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(state)
	}
}

// startLoading flips the loading flag on and returns a function that flips it
// off exactly once.
func startLoading(setLoading func(bool)) func() {
	if setLoading == nil {
		return func() {}
	}
	setLoading(true)
	return sync.OnceFunc(func() { setLoading(false) })
}

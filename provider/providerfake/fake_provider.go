package providerfake

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-auth-session/provider"
)

var _ provider.Auth = (*FakeProvider)(nil)

// Call names recorded by FakeProvider
const (
	CallSetSession             = "SetSession"
	CallGetSession             = "GetSession"
	CallSignInWithIDToken      = "SignInWithIDToken"
	CallSignInWithOAuth        = "SignInWithOAuth"
	CallExchangeCodeForSession = "ExchangeCodeForSession"
	CallSignOut                = "SignOut"
)

// FakeProvider is a scriptable in-memory provider.Auth. Results are configured
// through the exported fields before use; it does not emit events on its own,
// tests drive the auth state stream with Emit.
type FakeProvider struct {
	lock   sync.Mutex
	calls  map[string]int
	events *provider.Emitter

	SetSessionErr error

	GetSessionResult *provider.Session
	GetSessionErr    error

	IDTokenSession *provider.Session
	IDTokenErr     error

	OAuthURL string
	OAuthErr error

	ExchangeSession *provider.Session
	ExchangeErr     error

	SignOutErr error

	LastIDToken      provider.IDTokenCredentials
	LastOAuthOptions provider.SignInWithOAuthOptions
	LastCode         string
	LastTokens       [2]string
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		calls:    make(map[string]int),
		events:   provider.NewEmitter(),
		OAuthURL: "https://auth.example.test/auth/v1/authorize?provider=google",
	}
}

func (f *FakeProvider) record(name string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls[name]++
}

// Calls returns how many times the named operation was invoked.
func (f *FakeProvider) Calls(name string) int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.calls[name]
}

// Emit pushes an auth state change to every subscriber.
func (f *FakeProvider) Emit(event provider.AuthChangeEvent, session *provider.Session) {
	f.events.Emit(event, session)
}

// Subscribers returns the number of live OnAuthStateChange registrations.
func (f *FakeProvider) Subscribers() int {
	return f.events.Len()
}

func (f *FakeProvider) SetSession(_ context.Context, accessToken, refreshToken string) (*provider.Session, error) {
	f.record(CallSetSession)
	f.lock.Lock()
	f.LastTokens = [2]string{accessToken, refreshToken}
	f.lock.Unlock()
	if f.SetSessionErr != nil {
		return nil, f.SetSessionErr
	}
	return f.GetSessionResult, nil
}

func (f *FakeProvider) GetSession(_ context.Context) (*provider.Session, error) {
	f.record(CallGetSession)
	return f.GetSessionResult, f.GetSessionErr
}

func (f *FakeProvider) SignInWithIDToken(_ context.Context, credentials provider.IDTokenCredentials) (*provider.Session, error) {
	f.record(CallSignInWithIDToken)
	f.lock.Lock()
	f.LastIDToken = credentials
	f.lock.Unlock()
	return f.IDTokenSession, f.IDTokenErr
}

func (f *FakeProvider) SignInWithOAuth(_ context.Context, options provider.SignInWithOAuthOptions) (*provider.OAuthResponse, error) {
	f.record(CallSignInWithOAuth)
	f.lock.Lock()
	f.LastOAuthOptions = options
	f.lock.Unlock()
	if f.OAuthErr != nil {
		return nil, f.OAuthErr
	}
	return &provider.OAuthResponse{Provider: options.Provider, URL: f.OAuthURL}, nil
}

func (f *FakeProvider) ExchangeCodeForSession(_ context.Context, code string) (*provider.Session, error) {
	f.record(CallExchangeCodeForSession)
	f.lock.Lock()
	f.LastCode = code
	f.lock.Unlock()
	return f.ExchangeSession, f.ExchangeErr
}

func (f *FakeProvider) SignOut(_ context.Context) error {
	f.record(CallSignOut)
	return f.SignOutErr
}

func (f *FakeProvider) OnAuthStateChange(listener provider.AuthStateListener) *provider.Subscription {
	return f.events.Subscribe(listener)
}

package provider_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-session/provider"
	"github.com/stretchr/testify/require"
)

func TestEmitter_DeliversInRegistrationOrder(t *testing.T) {
	e := provider.NewEmitter()
	var order []string
	a := e.Subscribe(func(provider.AuthChangeEvent, *provider.Session) { order = append(order, "a") })
	b := e.Subscribe(func(provider.AuthChangeEvent, *provider.Session) { order = append(order, "b") })
	require.NotEqual(t, a.ID, b.ID)

	e.Emit(provider.SignedIn, &provider.Session{AccessToken: "x"})
	require.Equal(t, []string{"a", "b"}, order)

	a.Unsubscribe()
	e.Emit(provider.SignedOut, nil)
	require.Equal(t, []string{"a", "b", "b"}, order)
	require.Equal(t, 1, e.Len())
}

func TestEmitter_ListenersGetTheirOwnCopy(t *testing.T) {
	e := provider.NewEmitter()
	e.Subscribe(func(_ provider.AuthChangeEvent, s *provider.Session) { s.AccessToken = "mutated" })

	session := &provider.Session{AccessToken: "original"}
	e.Emit(provider.TokenRefreshed, session)
	require.Equal(t, "original", session.AccessToken)
}

func TestEmitter_ListenerMayUnsubscribeItself(t *testing.T) {
	e := provider.NewEmitter()
	calls := 0
	var sub *provider.Subscription
	sub = e.Subscribe(func(provider.AuthChangeEvent, *provider.Session) {
		calls++
		sub.Unsubscribe()
	})

	e.Emit(provider.SignedIn, nil)
	e.Emit(provider.SignedIn, nil)
	require.Equal(t, 1, calls)
}

func TestNilSubscriptionUnsubscribe(t *testing.T) {
	var sub *provider.Subscription
	require.NotPanics(t, sub.Unsubscribe)
}

func TestSession_ExpiresWithin(t *testing.T) {
	s := &provider.Session{ExpiresAt: testNow.Add(time.Minute).Unix()}
	require.False(t, s.ExpiresWithin(testNow, 30*time.Second))
	require.True(t, s.ExpiresWithin(testNow, time.Minute))
	require.False(t, (&provider.Session{}).ExpiresWithin(testNow, time.Hour))
}

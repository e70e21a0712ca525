package router_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jrsteele09/go-auth-session/router"
	"github.com/jrsteele09/go-auth-session/sessions"
	"github.com/stretchr/testify/require"
)

var _ sessions.Navigator = (*router.Router)(nil)

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		isLoading  bool
		hasSession bool
		want       router.Decision
	}{
		{"loading without session", true, false, router.Decision{Loading: true}},
		{"loading with session", true, true, router.Decision{Loading: true}},
		{"signed in", false, true, router.Decision{Redirect: router.RouteDashboard}},
		{"signed out", false, false, router.Decision{Redirect: router.RouteSignIn}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, router.Resolve(tt.isLoading, tt.hasSession))
		})
	}
}

func TestRouter_Replace(t *testing.T) {
	r := router.New()
	require.Equal(t, router.RouteIndex, r.Current())

	var seen []string
	unsubscribe := r.OnChange(func(route string) { seen = append(seen, route) })

	r.Replace(router.RouteSignIn)
	r.Replace(router.RouteDashboard)
	require.Equal(t, router.RouteDashboard, r.Current())
	require.Equal(t, []string{router.RouteSignIn, router.RouteDashboard}, seen)

	unsubscribe()
	unsubscribe()
	r.Replace(router.RouteSignIn)
	require.Len(t, seen, 2)
	require.Equal(t, []string{router.RouteIndex, router.RouteSignIn, router.RouteDashboard, router.RouteSignIn}, r.History())
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, router.Render(&buf, router.RouteSignIn, ""))
	require.Contains(t, buf.String(), "Sign in with Apple or Google")

	buf.Reset()
	require.NoError(t, router.Render(&buf, router.RouteDashboard, "jane@example.com"))
	require.Contains(t, buf.String(), "Welcome!")
	require.Contains(t, buf.String(), "jane@example.com")

	buf.Reset()
	require.NoError(t, router.Render(&buf, router.RouteIndex, ""))
	require.Contains(t, buf.String(), "Loading")
}

func TestRender_Colours(t *testing.T) {
	tests := []struct {
		route  string
		colour string
	}{
		{router.RouteIndex, router.Gray},
		{router.RouteSignIn, router.CyanInverse},
		{router.RouteDashboard, router.GreenInverse},
		{"/(settings)", router.Red},
	}
	for _, tt := range tests {
		t.Run(tt.route, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, router.Render(&buf, tt.route, "jane@example.com"))
			require.True(t, strings.HasPrefix(buf.String(), tt.colour), "got %q", buf.String())
			require.Contains(t, buf.String(), router.ResetColor)
		})
	}
}

package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/jrsteele09/go-auth-session/router"
	"github.com/stretchr/testify/require"
)

// memoryEnv points the app at an in-memory store with no provider configured.
func memoryEnv(t *testing.T) {
	t.Helper()
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("AUTH_PROJECT_URL", "")
	t.Setenv("AUTH_ANON_KEY", "")
	t.Setenv("METRICS_ADDR", "")
	t.Setenv("LOG_LEVEL", "error")
}

func TestParseProvider(t *testing.T) {
	name, err := parseProvider("Apple")
	require.NoError(t, err)
	require.Equal(t, "apple", name)

	name, err = parseProvider("google")
	require.NoError(t, err)
	require.Equal(t, "google", name)

	_, err = parseProvider("github")
	require.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	require.Equal(t, version+"\n", out.String())
}

func TestSignInCommand_RejectsUnknownProvider(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"signin", "github"})
	require.Error(t, root.Execute())
}

func TestStatusCommand_NoStoredSession(t *testing.T) {
	memoryEnv(t)
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"status"})

	require.NoError(t, root.Execute())
	require.Contains(t, out.String(), `"route": "/(auth)"`)

	var got status
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.False(t, got.SignedIn)
	require.Equal(t, router.RouteSignIn, got.Route)
	require.Empty(t, got.UserID)
	require.Nil(t, got.ExpiresAt)
}

func TestRunCommand_ShowsSignInScreen(t *testing.T) {
	memoryEnv(t)
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"run"})

	require.NoError(t, root.Execute())
	require.Contains(t, out.String(), "Sign in with Apple or Google")
}

package config_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-session/internal/config"
	"github.com/stretchr/testify/require"
)

func TestValidate_ReportsMissingCredentials(t *testing.T) {
	t.Setenv("AUTH_PROJECT_URL", "")
	t.Setenv("AUTH_ANON_KEY", "")

	missing := config.Validate(config.New())
	require.Equal(t, []string{"AUTH_PROJECT_URL", "AUTH_ANON_KEY"}, missing)
}

func TestValidate_AllPresent(t *testing.T) {
	t.Setenv("AUTH_PROJECT_URL", "https://example.supabase.co")
	t.Setenv("AUTH_ANON_KEY", "anon")

	require.Empty(t, config.Validate(config.New()))
}

func TestDefaults(t *testing.T) {
	t.Setenv("AUTH_REDIRECT_URI", "")
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("REDIS_DB", "not-a-number")
	t.Setenv("AUTH_REFRESH_MARGIN", "bogus")

	c := config.New()
	require.Equal(t, config.DefaultRedirectURI, c.GetRedirectURI())
	require.Equal(t, "secure", c.GetStorageBackend())
	require.Equal(t, 0, c.GetRedisDB())
	require.Equal(t, 30*time.Second, c.GetRefreshMargin())
	require.Equal(t, "offline", c.GetGoogleQueryParams()["access_type"])
}

func TestOverrides(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "redis")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("AUTH_BROWSER_TIMEOUT", "90s")

	c := config.New()
	require.Equal(t, "redis", c.GetStorageBackend())
	require.Equal(t, 3, c.GetRedisDB())
	require.Equal(t, 90*time.Second, c.GetBrowserTimeout())
}

func TestAppleRedirectURI(t *testing.T) {
	t.Setenv("AUTH_REDIRECT_URI", "")
	t.Setenv("AUTH_CALLBACK_ADDR", "127.0.0.1:9999")
	t.Setenv("APPLE_REDIRECT_URI", "")

	c := config.New()
	require.Equal(t, "http://127.0.0.1:9999/apple-callback", c.GetAppleRedirectURI())
	require.NotEqual(t, c.GetRedirectURI(), c.GetAppleRedirectURI())

	t.Setenv("APPLE_REDIRECT_URI", "https://auth.example.com/apple")
	require.Equal(t, "https://auth.example.com/apple", config.New().GetAppleRedirectURI())
}

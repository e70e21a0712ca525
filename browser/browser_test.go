package browser_test

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-session/browser"
	"github.com/stretchr/testify/require"
)

func TestCallbackPath(t *testing.T) {
	tests := []struct {
		returnURL string
		want      string
	}{
		{"com.launchtoday.expo://login-callback", "/login-callback"},
		{"http://127.0.0.1:8765/login-callback", "/login-callback"},
		{"myapp://", "/"},
		{"https://app.example.com", "/"},
	}
	for _, tt := range tests {
		u, err := url.Parse(tt.returnURL)
		require.NoError(t, err)
		require.Equal(t, tt.want, browser.CallbackPath(u), tt.returnURL)
	}
}

func TestLoopbackSession_SuccessWithQuery(t *testing.T) {
	var session *browser.LoopbackSession
	session = browser.NewLoopbackSession("127.0.0.1:0", browser.WithOpener(func(authURL string) error {
		require.Equal(t, "https://auth.example.test/authorize", authURL)
		go func() {
			resp, err := http.Get("http://" + session.Addr() + "/login-callback?code=abc123")
			if err == nil {
				resp.Body.Close()
			}
		}()
		return nil
	}))

	res, err := session.OpenAuthSession(context.Background(), "https://auth.example.test/authorize", "com.launchtoday.expo://login-callback")
	require.NoError(t, err)
	require.Equal(t, browser.ResultSuccess, res.Type)
	require.Equal(t, "com.launchtoday.expo://login-callback?code=abc123", res.URL)
}

func TestLoopbackSession_FormPost(t *testing.T) {
	var session *browser.LoopbackSession
	session = browser.NewLoopbackSession("127.0.0.1:0", browser.WithOpener(func(string) error {
		go func() {
			form := url.Values{"code": {"c"}, "id_token": {"tok"}, "state": {"s"}}
			resp, err := http.Post("http://"+session.Addr()+"/callback", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
			if err == nil {
				resp.Body.Close()
			}
		}()
		return nil
	}))

	res, err := session.OpenAuthSession(context.Background(), "https://appleid.apple.com/auth/authorize", "http://127.0.0.1/callback")
	require.NoError(t, err)
	require.Equal(t, browser.ResultSuccess, res.Type)

	u, err := url.Parse(res.URL)
	require.NoError(t, err)
	require.Equal(t, "tok", u.Query().Get("id_token"))
	require.Equal(t, "s", u.Query().Get("state"))
}

func TestLoopbackSession_TimeoutIsCancel(t *testing.T) {
	session := browser.NewLoopbackSession("127.0.0.1:0",
		browser.WithOpener(func(string) error { return nil }),
		browser.WithTimeout(20*time.Millisecond),
	)

	res, err := session.OpenAuthSession(context.Background(), "https://auth.example.test", "myapp://cb")
	require.NoError(t, err)
	require.Equal(t, browser.ResultCancel, res.Type)
	require.Empty(t, res.URL)
}

func TestLoopbackSession_ContextCancelIsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	session := browser.NewLoopbackSession("127.0.0.1:0", browser.WithOpener(func(string) error {
		cancel()
		return nil
	}))

	res, err := session.OpenAuthSession(ctx, "https://auth.example.test", "myapp://cb")
	require.NoError(t, err)
	require.Equal(t, browser.ResultCancel, res.Type)
}

func TestLoopbackSession_OpenFailureIsCancel(t *testing.T) {
	session := browser.NewLoopbackSession("127.0.0.1:0", browser.WithOpener(func(string) error {
		return errors.New("no display")
	}))

	res, err := session.OpenAuthSession(context.Background(), "https://auth.example.test", "myapp://cb")
	require.NoError(t, err)
	require.Equal(t, browser.ResultCancel, res.Type)
}

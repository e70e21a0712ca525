package config

import "time"

// DefaultRedirectURI is the custom URL scheme registered for the OAuth redirect callback.
const DefaultRedirectURI = "com.launchtoday.expo://login-callback"

type OAuthConfig interface {
	GetRedirectURI() string
	GetCallbackAddr() string
	GetBrowserTimeout() time.Duration
	GetAppleClientID() string
	GetAppleRedirectURI() string
	GetGoogleQueryParams() map[string]string
}

type OAuth struct{}

var _ OAuthConfig = OAuth{}

func (OAuth) GetRedirectURI() string {
	return GetEnv("AUTH_REDIRECT_URI", DefaultRedirectURI)
}

// GetCallbackAddr is the loopback address the browser session listens on for redirects
func (OAuth) GetCallbackAddr() string {
	return GetEnv("AUTH_CALLBACK_ADDR", "127.0.0.1:8765")
}

func (OAuth) GetBrowserTimeout() time.Duration {
	return GetDuration("AUTH_BROWSER_TIMEOUT", 5*time.Minute)
}

func (OAuth) GetAppleClientID() string {
	return GetEnv("APPLE_CLIENT_ID", "")
}

// GetAppleRedirectURI is where Apple form_posts its response. It must be a web URL,
// so it defaults to a path on the loopback callback listener.
func (o OAuth) GetAppleRedirectURI() string {
	return GetEnv("APPLE_REDIRECT_URI", "http://"+o.GetCallbackAddr()+"/apple-callback")
}

func (OAuth) GetGoogleQueryParams() map[string]string {
	return map[string]string{
		"access_type": "offline",
		"prompt":      "select_account consent",
	}
}

package config

import (
	"os"
	"time"
)

const (
	appNameVar     = "APP_NAME"
	envVar         = "ENV"
	logLevelVar    = "LOG_LEVEL"
	metricsAddrVar = "METRICS_ADDR"

	projectURLVar = "AUTH_PROJECT_URL"
	anonKeyVar    = "AUTH_ANON_KEY"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Expo Auth")
}

func (EnvVars) GetEnv() string {
	return GetEnv(envVar, "DEV")
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

// GetMetricsAddr returns the listen address for the prometheus endpoint. Empty disables it.
func (EnvVars) GetMetricsAddr() string {
	return GetEnv(metricsAddrVar, "")
}

type Provider struct{}

var _ ProviderConfig = Provider{}

// GetProjectURL returns the identity provider project URL (e.g. "https://xyz.supabase.co")
func (Provider) GetProjectURL() string {
	return GetEnv(projectURLVar, "")
}

func (Provider) GetAnonKey() string {
	return GetEnv(anonKeyVar, "")
}

func (Provider) GetRequestTimeout() time.Duration {
	return GetDuration("AUTH_REQUEST_TIMEOUT", 15*time.Second)
}

// GetRefreshMargin is how long before expiry a session is considered due for refresh
func (Provider) GetRefreshMargin() time.Duration {
	return GetDuration("AUTH_REFRESH_MARGIN", 30*time.Second)
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetDuration(envVar string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

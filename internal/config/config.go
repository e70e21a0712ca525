package config

import (
	"time"

	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	ProviderConfig
	OAuthConfig
	StorageConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetMetricsAddr() string
}

type ProviderConfig interface {
	GetProjectURL() string
	GetAnonKey() string
	GetRequestTimeout() time.Duration
	GetRefreshMargin() time.Duration
}

type mainConfig struct {
	EnvVars
	Provider
	OAuth
	Storage
}

// New loads an optional .env file from the working directory and returns a Config
// backed by environment variables.
func New() Config {
	_ = godotenv.Load()
	return mainConfig{}
}

// Validate reports the names of required variables that are not set. Missing values
// are not fatal: the client is built with empty strings and fails on first use.
func Validate(c Config) []string {
	var missing []string
	if c.GetProjectURL() == "" {
		missing = append(missing, projectURLVar)
	}
	if c.GetAnonKey() == "" {
		missing = append(missing, anonKeyVar)
	}
	return missing
}

// Package config assembles runtime configuration in layers: built-in
// defaults, then a JSON config file, then environment variables (a local
// .env file is honored), then command-line flags. Later layers win.
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/ezcar24/dealersync/internal/timex"
)

type Config struct {
	// DatabaseDSN is the SQLite database location.
	DatabaseDSN string `json:"database_dsn"`

	// RemoteBaseURL is the root of the multi-tenant sync backend.
	RemoteBaseURL string `json:"remote_base_url"`

	// RequestTimeout bounds each remote call.
	RequestTimeout timex.Duration `json:"request_timeout"`

	// SyncInterval is the period of the background sync trigger.
	SyncInterval timex.Duration `json:"sync_interval"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level"`

	// Object storage for vehicle photos.
	MediaEndpoint      string `json:"media_endpoint"`
	MediaRegion        string `json:"media_region"`
	MediaBucket        string `json:"media_bucket"`
	MediaAccessKey     string `json:"media_access_key"`
	MediaSecretKey     string `json:"media_secret_key"`
	MediaPublicBaseURL string `json:"media_public_base_url"`
}

func LoadDefaults() *Config {
	return &Config{
		DatabaseDSN:    "dealersync.db",
		RemoteBaseURL:  "http://localhost:8080",
		RequestTimeout: timex.Duration{Duration: 30 * time.Second},
		SyncInterval:   timex.Duration{Duration: 5 * time.Minute},
		LogLevel:       "info",
		MediaRegion:    "us-east-1",
		MediaBucket:    "dealersync-media",
	}
}

// Load builds the effective configuration.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := LoadDefaults()

	if err := cfg.applyJSON(); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	if err := cfg.applyFlags(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.DatabaseDSN, "DEALERSYNC_DATABASE_DSN")
	setString(&c.RemoteBaseURL, "DEALERSYNC_REMOTE_BASE_URL")
	setDuration(&c.RequestTimeout, "DEALERSYNC_REQUEST_TIMEOUT")
	setDuration(&c.SyncInterval, "DEALERSYNC_SYNC_INTERVAL")
	setString(&c.LogLevel, "DEALERSYNC_LOG_LEVEL")
	setString(&c.MediaEndpoint, "DEALERSYNC_MEDIA_ENDPOINT")
	setString(&c.MediaRegion, "DEALERSYNC_MEDIA_REGION")
	setString(&c.MediaBucket, "DEALERSYNC_MEDIA_BUCKET")
	setString(&c.MediaAccessKey, "DEALERSYNC_MEDIA_ACCESS_KEY")
	setString(&c.MediaSecretKey, "DEALERSYNC_MEDIA_SECRET_KEY")
	setString(&c.MediaPublicBaseURL, "DEALERSYNC_MEDIA_PUBLIC_BASE_URL")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setDuration(dst *timex.Duration, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

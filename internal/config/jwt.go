package config

import (
	"fmt"
	"time"
)

// TriggerAuthConfig holds what the trigger endpoint needs to authenticate callers.
type TriggerAuthConfig struct {
	Secret   string
	TokenTTL time.Duration
	// AllowUnauthenticated skips auth entirely; only set in development without a secret
	AllowUnauthenticated bool
}

// TriggerAuth derives the trigger auth configuration
func (c *Config) TriggerAuth() (*TriggerAuthConfig, error) {
	auth := &TriggerAuthConfig{
		Secret:   c.CronSecret,
		TokenTTL: c.TokenTTL.Std(),
	}
	if auth.Secret == "" && c.IsDevelopment() {
		auth.AllowUnauthenticated = true
	}

	if err := auth.normalize(); err != nil {
		return nil, err
	}
	return auth, nil
}

// normalize validates the configuration.
func (a *TriggerAuthConfig) normalize() error {
	if a.TokenTTL <= 0 {
		a.TokenTTL = DefaultTokenTTL
	}
	if a.AllowUnauthenticated {
		return nil
	}
	if a.Secret == "" {
		return fmt.Errorf("CRON_SECRET is required outside development")
	}
	if len(a.Secret) < 16 {
		return fmt.Errorf("CRON_SECRET must be at least 16 characters, got: %d", len(a.Secret))
	}
	return nil
}

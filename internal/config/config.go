// Package config loads newsroom configuration from defaults, an optional JSON file,
// and environment variables, in that order of precedence (env wins).
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Defaults
const (
	DefaultPort             = 8080
	DefaultApp              = "part-time"
	DefaultProvider         = "gateway"
	DefaultCommitMode       = "transactional"
	DefaultRoundupLimit     = 5
	DefaultGeneratorTimeout = 90 * time.Second
	DefaultMinRunInterval   = time.Hour
	DefaultSpotlightWindow  = 7 * 24 * time.Hour
	DefaultRoundupWindow    = 14 * 24 * time.Hour
	DefaultTokenTTL         = 24 * time.Hour
	DefaultRateLimitRPS     = 0.2
	DefaultRateLimitBurst   = 3
)

// Duration is a time.Duration that reads "90s" strings or integer seconds from JSON
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var secs float64
	if err := json.Unmarshal(b, &secs); err != nil {
		return fmt.Errorf("duration must be a string or number of seconds")
	}
	*d = Duration(time.Duration(secs * float64(time.Second)))
	return nil
}

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the full newsroom configuration
type Config struct {
	DatabaseURL string `json:"database_url,omitempty"`
	AppEnv      string `json:"app_env,omitempty"`
	LogLevel    string `json:"log_level,omitempty" validate:"omitempty,oneof=debug info warn error"`
	Port        int    `json:"port,omitempty" validate:"min=1,max=65535"`

	// Trigger auth
	CronSecret string   `json:"cron_secret,omitempty"`
	TokenTTL   Duration `json:"token_ttl,omitempty" validate:"gte=0"`

	// Generator
	GeneratorProvider string   `json:"generator_provider,omitempty" validate:"oneof=gateway gemini"`
	GatewayURL        string   `json:"gateway_url,omitempty" validate:"omitempty,url"`
	GatewayAPIKey     string   `json:"gateway_api_key,omitempty"`
	GeminiAPIKey      string   `json:"gemini_api_key,omitempty"`
	GeneratorModel    string   `json:"generator_model,omitempty"`
	GeneratorTimeout  Duration `json:"generator_timeout,omitempty" validate:"gt=0"`

	// Pipeline
	ArticleApp      string   `json:"article_app,omitempty" validate:"required"`
	CommitMode      string   `json:"commit_mode,omitempty" validate:"oneof=transactional sequential"`
	RoundupLimit    int      `json:"roundup_limit,omitempty" validate:"min=1,max=50"`
	MinRunInterval  Duration `json:"min_run_interval,omitempty" validate:"gt=0"`
	SpotlightWindow Duration `json:"spotlight_window,omitempty" validate:"gt=0"`
	RoundupWindow   Duration `json:"roundup_window,omitempty" validate:"gt=0"`

	// Trigger endpoint throttle, per client
	RateLimitEnabled   bool    `json:"rate_limit_enabled,omitempty"`
	RateLimitRPS       float64 `json:"rate_limit_rps,omitempty" validate:"gt=0"`
	RateLimitBurst     int     `json:"rate_limit_burst,omitempty" validate:"min=1"`
	RateLimitWhitelist string  `json:"rate_limit_whitelist,omitempty"`
}

// Defaults returns a Config with every default applied
func Defaults() *Config {
	return &Config{
		AppEnv:            "production",
		LogLevel:          "info",
		Port:              DefaultPort,
		TokenTTL:          Duration(DefaultTokenTTL),
		GeneratorProvider: DefaultProvider,
		GeneratorTimeout:  Duration(DefaultGeneratorTimeout),
		ArticleApp:        DefaultApp,
		CommitMode:        DefaultCommitMode,
		RoundupLimit:      DefaultRoundupLimit,
		MinRunInterval:    Duration(DefaultMinRunInterval),
		SpotlightWindow:   Duration(DefaultSpotlightWindow),
		RoundupWindow:     Duration(DefaultRoundupWindow),
		RateLimitEnabled:  true,
		RateLimitRPS:      DefaultRateLimitRPS,
		RateLimitBurst:    DefaultRateLimitBurst,
	}
}

// Load builds the configuration: defaults, then the JSON file at path (if non-empty),
// then environment variables. The result is normalized and validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFile overlays the JSON file onto c. Absent keys keep their current values.
func (c *Config) mergeFile(path string) error {
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config JSON: %w", err)
	}
	return nil
}

// applyEnv overlays environment variables. lookup is os.LookupEnv outside tests.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %v", key, err))
				return
			}
			*dst = b
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %v", key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := lookup(key); ok && v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %v", key, err))
				return
			}
			*dst = f
		}
	}
	duration := func(key string, dst *Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := parseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %v", key, err))
				return
			}
			*dst = Duration(d)
		}
	}

	str("DATABASE_URL", &c.DatabaseURL)
	str("APP_ENV", &c.AppEnv)
	str("LOG_LEVEL", &c.LogLevel)
	integer("PORT", &c.Port)
	str("CRON_SECRET", &c.CronSecret)
	duration("TOKEN_TTL", &c.TokenTTL)
	str("GENERATOR_PROVIDER", &c.GeneratorProvider)
	str("GATEWAY_URL", &c.GatewayURL)
	str("PYDANTIC_AI_GATEWAY_API_KEY", &c.GatewayAPIKey)
	str("GEMINI_API_KEY", &c.GeminiAPIKey)
	str("GENERATOR_MODEL", &c.GeneratorModel)
	duration("GENERATOR_TIMEOUT", &c.GeneratorTimeout)
	str("ARTICLE_APP", &c.ArticleApp)
	str("COMMIT_MODE", &c.CommitMode)
	integer("ROUNDUP_LIMIT", &c.RoundupLimit)
	duration("MIN_RUN_INTERVAL", &c.MinRunInterval)
	duration("SPOTLIGHT_WINDOW", &c.SpotlightWindow)
	duration("ROUNDUP_WINDOW", &c.RoundupWindow)
	boolean("RATE_LIMIT_ENABLED", &c.RateLimitEnabled)
	float("RATE_LIMIT_RPS", &c.RateLimitRPS)
	integer("RATE_LIMIT_BURST", &c.RateLimitBurst)
	str("RATE_LIMIT_WHITELIST", &c.RateLimitWhitelist)

	return errors.Join(errs...)
}

// parseDuration accepts Go durations ("90s", "1h") and plain integer seconds
func parseDuration(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}

// normalize canonicalizes enum-like values before validation
func (c *Config) normalize() {
	c.AppEnv = strings.ToLower(strings.TrimSpace(c.AppEnv))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.GeneratorProvider = strings.ToLower(strings.TrimSpace(c.GeneratorProvider))
	c.CommitMode = strings.ToLower(strings.TrimSpace(c.CommitMode))
	c.CronSecret = strings.TrimSpace(c.CronSecret)
	c.ArticleApp = strings.TrimSpace(c.ArticleApp)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and reports every violation
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config error: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (value: %v)", fe.Field(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("config error: %s", strings.Join(msgs, "; "))
}

// IsDevelopment reports whether APP_ENV names a local development environment
func (c *Config) IsDevelopment() bool {
	switch c.AppEnv {
	case "development", "dev", "local":
		return true
	}
	return false
}

// GeneratorAPIKey returns the API key for the configured provider
func (c *Config) GeneratorAPIKey() string {
	if c.GeneratorProvider == "gemini" {
		return c.GeminiAPIKey
	}
	return c.GatewayAPIKey
}

// RequireDatabase fails when no DATABASE_URL is configured
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

// RequireGenerator fails when the configured provider has no API key
func (c *Config) RequireGenerator() error {
	if c.GeneratorAPIKey() == "" {
		if c.GeneratorProvider == "gemini" {
			return fmt.Errorf("GEMINI_API_KEY is required for the gemini provider")
		}
		return fmt.Errorf("PYDANTIC_AI_GATEWAY_API_KEY is required for the gateway provider")
	}
	return nil
}

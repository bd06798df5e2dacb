package ratelimit

import (
	"strings"
	"time"
)

// Config holds rate limiting configuration for the trigger route.
type Config struct {
	Enabled bool
	// RPS is the steady refill rate in requests per second
	RPS float64
	// Burst is the bucket capacity
	Burst           int
	CleanupInterval time.Duration
	// IdleTTL is how long an unused client bucket is kept
	IdleTTL   time.Duration
	Whitelist map[string]bool
	Blacklist map[string]bool
}

// DefaultConfig allows a burst of 3 and one request every five seconds afterwards.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		RPS:             0.2,
		Burst:           3,
		CleanupInterval: 5 * time.Minute,
		IdleTTL:         time.Hour,
		Whitelist:       make(map[string]bool),
		Blacklist:       make(map[string]bool),
	}
}

// normalize fills zero values from DefaultConfig.
func (c *Config) normalize() {
	def := DefaultConfig()
	if c.RPS <= 0 {
		c.RPS = def.RPS
	}
	if c.Burst <= 0 {
		c.Burst = def.Burst
	}
	if c.IdleTTL <= 0 {
		c.IdleTTL = def.IdleTTL
	}
	if c.Whitelist == nil {
		c.Whitelist = make(map[string]bool)
	}
	if c.Blacklist == nil {
		c.Blacklist = make(map[string]bool)
	}
}

// ParseIPList parses a comma-separated list of IP addresses into a set.
func ParseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	if list == "" {
		return result
	}

	for _, ip := range strings.Split(list, ",") {
		ip = strings.TrimSpace(ip)
		if ip != "" {
			result[ip] = true
		}
	}
	return result
}

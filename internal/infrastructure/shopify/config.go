package shopify

import (
	"errors"
	"time"
)

var (
	// ErrConfigInvalidTimeout indicates a non-positive request timeout.
	ErrConfigInvalidTimeout = errors.New("shopify: timeout must be positive")
	// ErrConfigInvalidAttempts indicates a non-positive retry ceiling.
	ErrConfigInvalidAttempts = errors.New("shopify: max attempts must be positive")
)

// Config holds adapter-level settings. Shop credentials are supplied per
// request, not here, so one adapter serves any number of shops.
type Config struct {
	// APIVersion is the Admin API version segment, e.g. "2024-01".
	APIVersion string
	// TimeoutSeconds is the per-request transport timeout.
	TimeoutSeconds int

	// RateLimitBaseDelay is the base for exponential backoff after a 429
	// without a Retry-After hint.
	RateLimitBaseDelay time.Duration
	// RateLimitMaxAttempts is the per-page attempt ceiling for 429s.
	RateLimitMaxAttempts int
	// TransientRetryDelay is the fixed delay before the single retry of a
	// non-rate-limit upstream error.
	TransientRetryDelay time.Duration
	// CooldownDelay is inserted before the next request once reported
	// quota usage crosses CooldownThreshold.
	CooldownDelay time.Duration
	// CooldownThreshold is the used/quota ratio that triggers a cooldown.
	CooldownThreshold float64
}

// Validate validates the configuration and applies defaults.
func (c *Config) Validate() error {
	if c.APIVersion == "" {
		c.APIVersion = "2024-01"
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 30
	}
	if c.TimeoutSeconds < 0 {
		return ErrConfigInvalidTimeout
	}
	if c.RateLimitBaseDelay == 0 {
		c.RateLimitBaseDelay = 2 * time.Second
	}
	if c.RateLimitMaxAttempts == 0 {
		c.RateLimitMaxAttempts = 3
	}
	if c.RateLimitMaxAttempts < 0 {
		return ErrConfigInvalidAttempts
	}
	if c.TransientRetryDelay == 0 {
		c.TransientRetryDelay = time.Second
	}
	if c.CooldownDelay == 0 {
		c.CooldownDelay = 500 * time.Millisecond
	}
	if c.CooldownThreshold == 0 {
		c.CooldownThreshold = 0.8
	}
	return nil
}

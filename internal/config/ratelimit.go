package config

import "time"

// RateLimitConfig controls the Redis fixed-window request limiter.
// A window of Limit requests per Window duration is tracked per key;
// KeyStrategy decides whether the key is the client IP, the authenticated
// user, the route, or a combination.
type RateLimitConfig struct {
	Enabled     bool
	Limit       int
	Window      time.Duration
	KeyStrategy string
	Prefix      string
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables with conservative
// defaults: 60 requests per minute keyed by ip+user+route.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:     envBool("RATE_LIMIT_ENABLED", true),
		Limit:       envInt("RATE_LIMIT_LIMIT", 60),
		Window:      envDur("RATE_LIMIT_WINDOW", time.Minute),
		KeyStrategy: envStr("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
		Prefix:      envStr("RATE_LIMIT_PREFIX", "rl"),
	}
	if cfg.Limit < 1 {
		cfg.Limit = 1
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return cfg
}

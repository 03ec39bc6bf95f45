package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Rule is the limit applied to requests matching a method and path.
type Rule struct {
	Path   string        // Exact path, or a prefix when it ends with "/"
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	// IdleTTL is how long an unused bucket is kept before cleanup drops it.
	IdleTTL   time.Duration
	Whitelist map[string]bool
	Blacklist map[string]bool
	Rules     []Rule
}

// LoadConfig loads rate limiting configuration from the RATE_LIMIT_* environment variables.
func LoadConfig() *Config {
	return LoadConfigFrom(os.Getenv)
}

// LoadConfigFrom is LoadConfig reading variables through getenv.
// Malformed values fall back to their defaults.
func LoadConfigFrom(getenv func(string) string) *Config {
	env := envReader(getenv)
	if !env.bool("RATE_LIMIT_ENABLED", true) {
		return &Config{Enabled: false}
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    env.int("RATE_LIMIT_DEFAULT_LIMIT", 600),
		DefaultWindow:   env.duration("RATE_LIMIT_DEFAULT_WINDOW", time.Minute),
		CleanupInterval: env.duration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		IdleTTL:         time.Hour,
		Whitelist:       parseIPList(getenv("RATE_LIMIT_WHITELIST")),
		Blacklist:       parseIPList(getenv("RATE_LIMIT_BLACKLIST")),
		Rules:           DefaultRules(env.int("RATE_LIMIT_RENDER_LIMIT", 30)),
	}
}

// DefaultRules returns the editor server's limits. renderLimit is the
// per-minute allowance for preview and export, which hit the rendering backend.
func DefaultRules(renderLimit int) []Rule {
	return []Rule{
		// Expensive: rendering on the backend
		{Path: "/cv/draft/preview", Method: "POST", Limit: renderLimit, Window: time.Minute, Burst: 3},
		{Path: "/cv/draft/export/", Method: "POST", Limit: renderLimit, Window: time.Minute, Burst: 3},

		// Credentials
		{Path: "/auth/login", Method: "POST", Limit: 10, Window: time.Minute, Burst: 5},

		// Saves reach the backend but are cheap
		{Path: "/cv/draft/save", Method: "POST", Limit: 60, Window: time.Minute, Burst: 10},

		// Edits are local; they share the default limit.
		// Health and the event stream are unlimited, see Match.
	}
}

type envReader func(string) string

func (e envReader) int(key string, def int) int {
	if v, err := strconv.Atoi(e(key)); err == nil {
		return v
	}
	return def
}

func (e envReader) bool(key string, def bool) bool {
	if v, err := strconv.ParseBool(e(key)); err == nil {
		return v
	}
	return def
}

func (e envReader) duration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(e(key)); err == nil {
		return v
	}
	return def
}

// parseIPList parses a comma-separated list of IP addresses into a set.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}

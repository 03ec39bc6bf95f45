package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(t *testing.T, cfg *Config) (*Limiter, *clock) {
	t.Helper()
	l := NewLimiter(cfg)
	t.Cleanup(l.Stop)
	c := &clock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	l.now = c.Now
	return l, c
}

func TestLimiter_DefaultLimit(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 10, DefaultWindow: time.Minute})

	for i := 0; i < 10; i++ {
		allowed, info := l.Allow("127.0.0.1", "/cv/draft", "GET")
		require.True(t, allowed, "request %d", i+1)
		assert.Equal(t, 10, info.Limit)
		assert.Equal(t, 9-i, info.Remaining)
	}

	allowed, info := l.Allow("127.0.0.1", "/cv/draft", "GET")
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.InDelta(t, float64(6*time.Second), float64(info.RetryAfter), float64(time.Millisecond))

	// other clients have their own buckets
	allowed, _ = l.Allow("127.0.0.2", "/cv/draft", "GET")
	assert.True(t, allowed)
}

func TestLimiter_Refill(t *testing.T) {
	l, c := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 60, DefaultWindow: time.Minute})

	for i := 0; i < 60; i++ {
		l.Allow("c", "/x", "GET")
	}
	allowed, _ := l.Allow("c", "/x", "GET")
	require.False(t, allowed)

	c.Advance(time.Second)
	allowed, _ = l.Allow("c", "/x", "GET")
	assert.True(t, allowed)
	allowed, _ = l.Allow("c", "/x", "GET")
	assert.False(t, allowed)
}

func TestLimiter_RenderTierSharedAcrossFormats(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{
		Enabled:       true,
		DefaultLimit:  1000,
		DefaultWindow: time.Minute,
		Rules:         DefaultRules(30),
	})

	for _, path := range []string{"/cv/draft/export/pdf", "/cv/draft/export/docx", "/cv/draft/export/pdf"} {
		allowed, info := l.Allow("c", path, "POST")
		require.True(t, allowed, path)
		assert.Equal(t, 30, info.Limit)
	}
	allowed, _ := l.Allow("c", "/cv/draft/export/docx", "POST")
	assert.False(t, allowed, "burst of 3 is shared by every export format")

	// preview has its own bucket in the same tier
	allowed, info := l.Allow("c", "/cv/draft/preview", "POST")
	assert.True(t, allowed)
	assert.Equal(t, 30, info.Limit)

	// edits fall back to the default limit
	allowed, info = l.Allow("c", "/cv/draft/sections", "POST")
	assert.True(t, allowed)
	assert.Equal(t, 1000, info.Limit)
}

func TestLimiter_WhitelistBlacklistDisabled(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{
		Enabled:       true,
		DefaultLimit:  1,
		DefaultWindow: time.Minute,
		Whitelist:     map[string]bool{"10.0.0.1": true},
		Blacklist:     map[string]bool{"10.0.0.2": true},
	})
	for i := 0; i < 5; i++ {
		allowed, info := l.Allow("10.0.0.1", "/x", "GET")
		assert.True(t, allowed)
		assert.Zero(t, info.Limit)
	}
	allowed, _ := l.Allow("10.0.0.2", "/x", "GET")
	assert.False(t, allowed)

	off, _ := newTestLimiter(t, &Config{Enabled: false})
	for i := 0; i < 5; i++ {
		allowed, _ := off.Allow("c", "/x", "GET")
		assert.True(t, allowed)
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Minute})
	for i := 0; i < 5; i++ {
		allowed, _ := l.Allow("c", "/health", "GET")
		assert.True(t, allowed)
		allowed, _ = l.Allow("c", "/cv/draft/events", "GET")
		assert.True(t, allowed)
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 100, DefaultWindow: time.Minute})

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow("c", "/x", "GET"); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, allowed)
}

func TestLimiter_CleanupDropsIdleBuckets(t *testing.T) {
	l, c := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 10, DefaultWindow: time.Minute, IdleTTL: time.Hour})

	for i := 0; i < 4; i++ {
		l.Allow(fmt.Sprintf("10.0.0.%d", i), "/x", "GET")
	}
	c.Advance(30 * time.Minute)
	l.Allow("10.0.0.0", "/x", "GET")
	c.Advance(45 * time.Minute)

	l.cleanup()
	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Len(t, l.buckets, 1)
	assert.Contains(t, l.buckets, "10.0.0.0:GET:/x")
}

func TestLimiter_StopTwice(t *testing.T) {
	l := NewLimiter(nil)
	l.Stop()
	l.Stop()
}

func TestMatch(t *testing.T) {
	rules := DefaultRules(30)

	assert.Same(t, unlimited, Match("/health", "GET", rules))
	assert.Equal(t, "/cv/draft/preview", Match("/cv/draft/preview", "POST", rules).Path)
	assert.Equal(t, "/cv/draft/export/", Match("/cv/draft/export/pdf", "POST", rules).Path)
	assert.Equal(t, "/auth/login", Match("/auth/login", "POST", rules).Path)
	assert.Nil(t, Match("/auth/login", "GET", rules))
	assert.Nil(t, Match("/cv/draft", "PUT", rules))
}

func TestLoadConfigFrom(t *testing.T) {
	env := map[string]string{
		"RATE_LIMIT_DEFAULT_LIMIT":    "50",
		"RATE_LIMIT_DEFAULT_WINDOW":   "30s",
		"RATE_LIMIT_RENDER_LIMIT":     "5",
		"RATE_LIMIT_WHITELIST":        "127.0.0.1, ::1",
		"RATE_LIMIT_CLEANUP_INTERVAL": "bogus",
	}
	cfg := LoadConfigFrom(func(k string) string { return env[k] })

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 50, cfg.DefaultLimit)
	assert.Equal(t, 30*time.Second, cfg.DefaultWindow)
	assert.Equal(t, 5*time.Minute, cfg.CleanupInterval)
	assert.Equal(t, map[string]bool{"127.0.0.1": true, "::1": true}, cfg.Whitelist)
	assert.Empty(t, cfg.Blacklist)
	assert.Equal(t, 5, cfg.Rules[0].Limit)

	disabled := LoadConfigFrom(func(k string) string {
		if k == "RATE_LIMIT_ENABLED" {
			return "false"
		}
		return ""
	})
	assert.False(t, disabled.Enabled)
}

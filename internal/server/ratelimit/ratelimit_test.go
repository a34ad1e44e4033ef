package ratelimit

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testConfig(limit int, rules ...EndpointConfig) *Config {
	return &Config{
		Enabled:         true,
		DefaultLimit:    limit,
		DefaultWindow:   time.Minute,
		EndpointConfigs: rules,
	}
}

func TestBucket_TakeAndRefill(t *testing.T) {
	clock := newFakeClock()
	b := newBucket(10, 1.0, clock.Now())

	for i := 0; i < 10; i++ {
		ok, remaining, _, _ := b.take(clock.Now())
		require.True(t, ok, "request %d", i+1)
		assert.Equal(t, 9-i, remaining)
	}
	ok, _, full, wait := b.take(clock.Now())
	assert.False(t, ok)
	assert.Equal(t, clock.Now().Add(10*time.Second), full)
	assert.Equal(t, time.Second, wait)

	clock.Advance(time.Second)
	ok, _, _, _ = b.take(clock.Now())
	assert.True(t, ok)
	ok, _, _, _ = b.take(clock.Now())
	assert.False(t, ok)
}

func TestBucket_RefillCapsAtCapacity(t *testing.T) {
	clock := newFakeClock()
	b := newBucket(3, 1.0, clock.Now())
	b.take(clock.Now())

	clock.Advance(time.Hour)
	_, remaining, full, _ := b.take(clock.Now())
	assert.Equal(t, 2, remaining)
	assert.True(t, full.After(clock.Now()))
}

func TestLimiter_Allow(t *testing.T) {
	clock := newFakeClock()
	limiter := NewLimiter(testConfig(10), WithClock(clock.Now))
	defer limiter.Stop()

	for i := 0; i < 10; i++ {
		allowed, info := limiter.Allow("127.0.0.1", "/api/profile", "GET")
		require.True(t, allowed, "request %d", i+1)
		assert.Equal(t, 10, info.Limit)
		assert.Equal(t, 9-i, info.Remaining)
	}

	allowed, info := limiter.Allow("127.0.0.1", "/api/profile", "GET")
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.InDelta(t, 6.0, info.RetryAfter.Seconds(), 0.001)

	// another client has its own bucket
	allowed, _ = limiter.Allow("10.0.0.2", "/api/profile", "GET")
	assert.True(t, allowed)

	clock.Advance(7 * time.Second)
	allowed, _ = limiter.Allow("127.0.0.1", "/api/profile", "GET")
	assert.True(t, allowed)
}

func TestLimiter_WhitelistAndBlacklist(t *testing.T) {
	cfg := testConfig(1)
	cfg.Whitelist = map[string]bool{"127.0.0.1": true}
	cfg.Blacklist = map[string]bool{"192.168.1.1": true}
	limiter := NewLimiter(cfg)
	defer limiter.Stop()

	for i := 0; i < 50; i++ {
		allowed, info := limiter.Allow("127.0.0.1", "/api/profile", "GET")
		require.True(t, allowed)
		assert.Equal(t, 0, info.Limit)
	}

	allowed, _ := limiter.Allow("192.168.1.1", "/api/profile", "GET")
	assert.False(t, allowed)
}

func TestLimiter_Disabled(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: false})
	defer limiter.Stop()

	for i := 0; i < 100; i++ {
		allowed, info := limiter.Allow("127.0.0.1", "/api/tailor", "POST")
		require.True(t, allowed)
		assert.Equal(t, 0, info.Limit)
	}
	assert.Equal(t, 0, limiter.Len())
}

func TestLimiter_EndpointSpecific(t *testing.T) {
	limiter := NewLimiter(testConfig(1000,
		EndpointConfig{Path: "/api/tailor", Method: "POST", Limit: 5, Window: time.Hour},
	))
	defer limiter.Stop()

	for i := 0; i < 5; i++ {
		allowed, info := limiter.Allow("127.0.0.1", "/api/tailor", "POST")
		require.True(t, allowed, "request %d", i+1)
		assert.Equal(t, 5, info.Limit)
	}
	allowed, _ := limiter.Allow("127.0.0.1", "/api/tailor", "POST")
	assert.False(t, allowed)

	allowed, info := limiter.Allow("127.0.0.1", "/api/applications", "GET")
	assert.True(t, allowed)
	assert.Equal(t, 1000, info.Limit)
}

func TestLimiter_PrefixRuleSharesBucket(t *testing.T) {
	limiter := NewLimiter(testConfig(1000,
		EndpointConfig{Path: "/api/applications/", Method: "PATCH", Limit: 2, Window: time.Minute},
	))
	defer limiter.Stop()

	allowed, _ := limiter.Allow("127.0.0.1", "/api/applications/1/status", "PATCH")
	assert.True(t, allowed)
	allowed, _ = limiter.Allow("127.0.0.1", "/api/applications/2/status", "PATCH")
	assert.True(t, allowed)
	allowed, _ = limiter.Allow("127.0.0.1", "/api/applications/3/status", "PATCH")
	assert.False(t, allowed)
}

func TestLimiter_Burst(t *testing.T) {
	limiter := NewLimiter(testConfig(10,
		EndpointConfig{Path: "/api/parse-jd", Method: "POST", Limit: 10, Window: time.Minute, Burst: 5},
	))
	defer limiter.Stop()

	for i := 0; i < 5; i++ {
		allowed, _ := limiter.Allow("127.0.0.1", "/api/parse-jd", "POST")
		require.True(t, allowed, "burst request %d", i+1)
	}
	allowed, _ := limiter.Allow("127.0.0.1", "/api/parse-jd", "POST")
	assert.False(t, allowed)
}

func TestLimiter_Concurrent(t *testing.T) {
	clock := newFakeClock()
	limiter := NewLimiter(testConfig(100), WithClock(clock.Now))
	defer limiter.Stop()

	var wg sync.WaitGroup
	var allowed atomic.Int32
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := limiter.Allow("127.0.0.1", "/api/profile", "GET"); ok {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(100), allowed.Load())
}

func TestLimiter_Sweep(t *testing.T) {
	clock := newFakeClock()
	limiter := NewLimiter(testConfig(10), WithClock(clock.Now))
	defer limiter.Stop()

	for i := 0; i < 10; i++ {
		limiter.Allow(fmt.Sprintf("127.0.0.%d", i+1), "/api/profile", "GET")
	}
	clock.Advance(30 * time.Minute)
	for i := 0; i < 4; i++ {
		limiter.Allow(fmt.Sprintf("127.0.0.%d", i+1), "/api/profile", "GET")
	}
	clock.Advance(45 * time.Minute)

	assert.Equal(t, 6, limiter.Sweep(time.Hour))
	assert.Equal(t, 4, limiter.Len())
}

func TestLimiter_StopTwice(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Second, CleanupInterval: time.Millisecond})
	limiter.Stop()
	assert.NotPanics(t, limiter.Stop)
}

func TestNewLimiter_NilConfig(t *testing.T) {
	limiter := NewLimiter(nil)
	defer limiter.Stop()

	allowed, info := limiter.Allow("127.0.0.1", "/api/profile", "GET")
	assert.True(t, allowed)
	assert.Equal(t, 1000, info.Limit)
}

func TestMatchEndpoint(t *testing.T) {
	rules := DefaultEndpointConfigs()

	tests := []struct {
		name      string
		path      string
		method    string
		wantLimit int
		wantNil   bool
	}{
		{name: "health unlimited", path: "/api/health", method: "GET", wantLimit: 0},
		{name: "metrics unlimited", path: "/metrics", method: "GET", wantLimit: 0},
		{name: "suggestions exact", path: "/api/tailor/suggestions", method: "POST", wantLimit: 20},
		{name: "one-shot tailor", path: "/api/tailor", method: "POST", wantLimit: 10},
		{name: "application prefix", path: "/api/applications/7/status", method: "PATCH", wantLimit: 100},
		{name: "method must match", path: "/api/tailor", method: "GET", wantNil: true},
		{name: "unknown path", path: "/api/files/x.pdf", method: "GET", wantNil: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchEndpoint(tt.path, tt.method, rules)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantLimit, got.Limit)
		})
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig(true, 50, 30*time.Second, "127.0.0.1", "")

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 50, cfg.DefaultLimit)
	assert.Equal(t, 30*time.Second, cfg.DefaultWindow)
	assert.Equal(t, map[string]bool{"127.0.0.1": true}, cfg.Whitelist)
	assert.NotEmpty(t, cfg.EndpointConfigs)
}

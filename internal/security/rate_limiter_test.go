package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/unai-app/unai/internal/config"
)

func newTestLimiter(cfg config.RateLimitConfig) (*RateLimiter, *time.Time) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewRateLimiter(&cfg)
	r.now = func() time.Time { return clock }
	return r, &clock
}

func TestRateLimiter_Burst(t *testing.T) {
	r, _ := newTestLimiter(config.RateLimitConfig{Enabled: true, RequestsPerMin: 60, Burst: 3})

	for i := 0; i < 3; i++ {
		assert.True(t, r.Allow("10.0.0.1"), "request %d", i)
	}
	assert.False(t, r.Allow("10.0.0.1"))
	assert.True(t, r.Allow("10.0.0.2"), "clients are limited independently")
	assert.Equal(t, 0, r.Remaining("10.0.0.1"))
	assert.Equal(t, 3, r.Remaining("10.0.0.9"))
}

func TestRateLimiter_Refill(t *testing.T) {
	r, clock := newTestLimiter(config.RateLimitConfig{Enabled: true, RequestsPerMin: 60, Burst: 1})

	assert.True(t, r.Allow("ip"))
	assert.False(t, r.Allow("ip"))

	*clock = clock.Add(time.Second)
	assert.True(t, r.Allow("ip"))
}

func TestRateLimiter_Disabled(t *testing.T) {
	r, _ := newTestLimiter(config.RateLimitConfig{Enabled: false, RequestsPerMin: 1, Burst: 1})

	for i := 0; i < 10; i++ {
		assert.True(t, r.Allow("ip"))
	}
	assert.Equal(t, 0, r.Clients())
}

func TestRateLimiter_DefaultBurst(t *testing.T) {
	r, _ := newTestLimiter(config.RateLimitConfig{Enabled: true, RequestsPerMin: 2})

	assert.True(t, r.Allow("ip"))
	assert.True(t, r.Allow("ip"))
	assert.False(t, r.Allow("ip"))
}

func TestRateLimiter_Cleanup(t *testing.T) {
	r, clock := newTestLimiter(config.RateLimitConfig{Enabled: true, RequestsPerMin: 30, Burst: 5})

	r.Allow("old")
	*clock = clock.Add(2 * time.Hour)
	r.Allow("new")

	assert.Equal(t, 1, r.CleanupOldClients(time.Hour))
	assert.Equal(t, 1, r.Clients())
}

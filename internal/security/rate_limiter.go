package security

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/unai-app/unai/internal/config"
)

// RateLimiter implements per-client token bucket rate limiting
type RateLimiter struct {
	config  *config.RateLimitConfig
	clients map[string]*client
	mu      sync.RWMutex
	now     func() time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(cfg *config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		config:  cfg,
		clients: make(map[string]*client),
		now:     time.Now,
	}
}

// Allow checks if a request from the given client IP is allowed
func (r *RateLimiter) Allow(clientIP string) bool {
	if !r.config.Enabled {
		return true
	}

	now := r.now()
	return r.getClient(clientIP, now).limiter.AllowN(now, 1)
}

// Remaining returns the number of requests the client may still burst
func (r *RateLimiter) Remaining(clientIP string) int {
	r.mu.RLock()
	c, exists := r.clients[clientIP]
	r.mu.RUnlock()

	if !exists {
		return r.burst()
	}
	return max(0, int(c.limiter.TokensAt(r.now())))
}

// Clients returns the number of tracked clients
func (r *RateLimiter) Clients() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// getClient gets or creates the limiter for a client IP
func (r *RateLimiter) getClient(clientIP string, now time.Time) *client {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, exists := r.clients[clientIP]
	if !exists {
		c = &client{
			limiter: rate.NewLimiter(rate.Limit(float64(r.config.RequestsPerMin)/60.0), r.burst()),
		}
		r.clients[clientIP] = c
	}
	c.lastSeen = now
	return c
}

func (r *RateLimiter) burst() int {
	if r.config.Burst > 0 {
		return r.config.Burst
	}
	return max(1, r.config.RequestsPerMin)
}

// CleanupOldClients removes clients not seen within maxIdle
func (r *RateLimiter) CleanupOldClients(maxIdle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-maxIdle)
	removed := 0
	for ip, c := range r.clients {
		if c.lastSeen.Before(cutoff) {
			delete(r.clients, ip)
			removed++
		}
	}
	return removed
}

// StartCleanupRoutine periodically drops idle clients until ctx is done
func (r *RateLimiter) StartCleanupRoutine(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.CleanupOldClients(time.Hour)
			}
		}
	}()
}

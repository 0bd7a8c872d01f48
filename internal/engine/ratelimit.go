package engine

import (
	"sync"
	"time"

	"github.com/PortNumber53/simple-publish-engine/internal/platforms"
)

// rateWindow is the rolling window over which per-platform publish attempts
// are counted.
const rateWindow = time.Hour

type rateLimitState struct {
	count     int
	resetTime time.Time
}

// RateLimiter tracks publish attempts per platform in fixed one-hour windows.
// Expired windows are discarded lazily when consulted. This is the engine's
// own hourly publish quota; the per-request pacing of the HTTP adapters is a
// separate rate.Limiter inside each adapter.
type RateLimiter struct {
	mu      sync.Mutex
	states  map[string]rateLimitState
	ceiling func(platform string) int
	now     func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return NewRateLimiterWithClock(time.Now)
}

// NewRateLimiterWithClock builds a limiter on a caller-supplied clock, so the
// limiter can share the engine's notion of time.
func NewRateLimiterWithClock(now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{
		states:  make(map[string]rateLimitState),
		ceiling: platforms.HourlyCeiling,
		now:     now,
	}
}

// IsLimited reports whether the platform's hourly ceiling is currently
// exhausted. A platform with no recorded state, or whose window has expired,
// is not limited.
func (r *RateLimiter) IsLimited(platform string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.states[platform]
	if !ok {
		return false
	}
	if r.now().After(st.resetTime) {
		delete(r.states, platform)
		return false
	}
	return st.count >= r.ceiling(platform)
}

// RecordAttempt consumes one unit of the platform's quota. Call it only when
// a publish request actually reached the platform; validation failures and
// limiter blocks do not consume quota.
func (r *RateLimiter) RecordAttempt(platform string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.states[platform]
	if !ok || r.now().After(st.resetTime) {
		r.states[platform] = rateLimitState{count: 1, resetTime: r.now().Add(rateWindow)}
		return
	}
	st.count++
	r.states[platform] = st
}

// Remaining reports how much of the hourly quota is left; used by the HTTP
// status surface.
func (r *RateLimiter) Remaining(platform string) int {
	ceiling := r.ceiling(platform)
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.states[platform]
	if !ok || r.now().After(st.resetTime) {
		return ceiling
	}
	left := ceiling - st.count
	if left < 0 {
		return 0
	}
	return left
}

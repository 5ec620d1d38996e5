package auth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterCleanupInterval = 5 * time.Minute

// emailLimiter pairs a token bucket with its last access time so idle
// entries can be evicted.
type emailLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// attemptLimiter throttles sign-in attempts per email address. Exceeding the
// budget surfaces as the too-many-requests provider code.
type attemptLimiter struct {
	rate  rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*emailLimiter
	stopCh   chan struct{}
}

func newAttemptLimiter(attemptsPerMin, burst int) *attemptLimiter {
	if attemptsPerMin <= 0 {
		attemptsPerMin = 10
	}
	if burst <= 0 {
		burst = 5
	}

	al := &attemptLimiter{
		rate:     rate.Limit(float64(attemptsPerMin) / 60.0),
		burst:    burst,
		limiters: make(map[string]*emailLimiter),
		stopCh:   make(chan struct{}),
	}

	go al.cleanupLoop()

	return al
}

// Allow reports whether another attempt for the email may proceed now.
func (al *attemptLimiter) Allow(email string) bool {
	al.mu.Lock()
	defer al.mu.Unlock()

	el, ok := al.limiters[email]
	if !ok {
		el = &emailLimiter{limiter: rate.NewLimiter(al.rate, al.burst)}
		al.limiters[email] = el
	}
	el.lastAccess = time.Now()

	return el.limiter.Allow()
}

// Stop terminates the background cleanup goroutine.
func (al *attemptLimiter) Stop() {
	close(al.stopCh)
}

func (al *attemptLimiter) cleanupLoop() {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			al.cleanup()
		case <-al.stopCh:
			return
		}
	}
}

// cleanup drops entries idle for more than twice the cleanup interval.
func (al *attemptLimiter) cleanup() {
	ttl := limiterCleanupInterval * 2
	now := time.Now()

	al.mu.Lock()
	defer al.mu.Unlock()
	for email, el := range al.limiters {
		if now.Sub(el.lastAccess) > ttl {
			delete(al.limiters, email)
		}
	}
}

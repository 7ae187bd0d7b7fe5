package services

import (
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"simplekanban/internal/models"
)

// Throttler gates inbound board commands.
type Throttler interface {
	// Allow reports whether another command may run right now for the
	// (command, client, user, board) tuple. Returns a throttled client
	// error when not.
	Allow(command, clientIP, boardSlug, userSlug string) error
}

// CommandThrottler applies a token-bucket limit keyed by command,
// client IP, board and user. Buckets live in an expiring cache so idle
// sessions do not accumulate.
type CommandThrottler struct {
	limiters *cache.Cache
	rate     rate.Limit
	burst    int
}

// NewCommandThrottler creates a throttler allowing perSecond sustained
// commands with the given burst per (command, client, user, board)
// tuple.
func NewCommandThrottler(perSecond float64, burst int) *CommandThrottler {
	return &CommandThrottler{
		limiters: cache.New(10*time.Minute, 15*time.Minute),
		rate:     rate.Limit(perSecond),
		burst:    burst,
	}
}

func (t *CommandThrottler) limiter(key string) *rate.Limiter {
	if cached, found := t.limiters.Get(key); found {
		return cached.(*rate.Limiter)
	}
	limiter := rate.NewLimiter(t.rate, t.burst)
	t.limiters.SetDefault(key, limiter)
	return limiter
}

// Allow consumes one token for the tuple, or reports throttling.
func (t *CommandThrottler) Allow(command, clientIP, boardSlug, userSlug string) error {
	key := fmt.Sprintf("%s:%s:%s:%s", command, clientIP, boardSlug, userSlug)
	if !t.limiter(key).Allow() {
		return models.NewThrottled(command)
	}
	return nil
}

// NoopThrottler never throttles. Used in tests.
type NoopThrottler struct{}

// Allow always permits the command.
func (NoopThrottler) Allow(command, clientIP, boardSlug, userSlug string) error {
	return nil
}

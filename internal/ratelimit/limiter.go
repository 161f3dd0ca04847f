// Package ratelimit throttles MCP tool calls with one token bucket per tool.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter keeps a token bucket per key. It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
	nowFunc func() time.Time
}

// NewLimiter creates a limiter refilling perSecond tokens per second. Every
// key starts with a full bucket of burst tokens.
func NewLimiter(perSecond float64, burst int) *Limiter {
	return &Limiter{
		buckets: make(map[string]*rate.Limiter),
		limit:   rate.Limit(perSecond),
		burst:   burst,
		nowFunc: time.Now,
	}
}

// Allow takes one token from key's bucket, reporting false when it is empty.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = rate.NewLimiter(l.limit, l.burst)
		l.buckets[key] = b
	}
	now := l.nowFunc()
	l.mu.Unlock()

	return b.AllowN(now, 1)
}

// ToolLimiters maps tool names to their limiters.
type ToolLimiters map[string]*Limiter

// NewToolLimiters returns the default limits. Simulations are the expensive
// call; listing and showing stored runs only touches the database.
func NewToolLimiters() ToolLimiters {
	return ToolLimiters{
		"pedigree_simulate": NewLimiter(6.0/60.0, 2),  // 6/minute, burst 2
		"pedigree_runs":     NewLimiter(1.0, 10),      // 60/minute, burst 10
		"pedigree_show":     NewLimiter(1.0, 10),      // 60/minute, burst 10
		"pedigree_delete":   NewLimiter(10.0/60.0, 3), // 10/minute, burst 3
		"pedigree_backup":   NewLimiter(5.0/60.0, 2),  // 5/minute, burst 2
		"pedigree_restore":  NewLimiter(5.0/60.0, 2),  // 5/minute, burst 2
	}
}

// CheckLimit returns an error when toolName is over its limit. Tools without
// a limiter are never throttled.
func CheckLimit(limiters ToolLimiters, toolName string) error {
	limiter, ok := limiters[toolName]
	if !ok {
		return nil
	}
	if !limiter.Allow(toolName) {
		return fmt.Errorf("rate limit exceeded for %s, please try again shortly", toolName)
	}
	return nil
}

package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// TokenLimiter is a fixed-window budget of tokens per minute, used for
// exchange request weights.
type TokenLimiter struct {
	sync.Mutex
	capacity     int           // max token per minute
	remaining    int           // sisa token saat ini
	refillPeriod time.Duration // biasanya 1 menit
	lastRefill   time.Time
	pollInterval time.Duration
}

func NewTokenLimiter(tokensPerMinute int) *TokenLimiter {
	return &TokenLimiter{
		capacity:     tokensPerMinute,
		remaining:    tokensPerMinute,
		refillPeriod: time.Minute,
		lastRefill:   time.Now(),
		pollInterval: 100 * time.Millisecond,
	}
}

// Wait blocks until tokens are available in the current window or ctx ends.
func (l *TokenLimiter) Wait(ctx context.Context, tokens int) error {
	if tokens > l.capacity {
		return fmt.Errorf("request of %d tokens exceeds capacity %d", tokens, l.capacity)
	}
	for {
		if l.take(tokens) {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.pollInterval):
			// Retry sebentar lagi
		}
	}
}

func (l *TokenLimiter) take(tokens int) bool {
	l.Lock()
	defer l.Unlock()

	now := time.Now()
	if now.Sub(l.lastRefill) >= l.refillPeriod {
		l.remaining = l.capacity
		l.lastRefill = now
	}
	if l.remaining < tokens {
		return false
	}
	l.remaining -= tokens
	return true
}

func (l *TokenLimiter) GetRemaining() int {
	l.Lock()
	defer l.Unlock()
	return l.remaining
}

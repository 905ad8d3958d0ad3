package service

import (
	"context"
	"sync"
	"time"
)

// DispatchLimiter paces outbound sends per account so a large pending batch
// cannot hammer the delivery provider. Unlike an admission limiter it never
// rejects: callers wait for the next window, because every pending
// notification must still be attempted exactly once per batch.
type DispatchLimiter struct {
	mu sync.Mutex

	maxSendsPerMinute int
	windows           map[string]*sendWindow
}

type sendWindow struct {
	count     int
	windowEnd time.Time
}

// NewDispatchLimiter creates a limiter; maxSendsPerMinute <= 0 disables pacing
func NewDispatchLimiter(maxSendsPerMinute int) *DispatchLimiter {
	return &DispatchLimiter{
		maxSendsPerMinute: maxSendsPerMinute,
		windows:           make(map[string]*sendWindow),
	}
}

// reserve claims a send slot, returning how long the caller must wait before
// trying again. Zero means the slot was granted.
func (l *DispatchLimiter) reserve(accountID string, now time.Time) time.Duration {
	if l.maxSendsPerMinute <= 0 {
		return 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	window, exists := l.windows[accountID]
	if !exists || now.After(window.windowEnd) {
		l.windows[accountID] = &sendWindow{
			count:     1,
			windowEnd: now.Add(1 * time.Minute),
		}
		return 0
	}

	if window.count < l.maxSendsPerMinute {
		window.count++
		return 0
	}

	return window.windowEnd.Sub(now)
}

// Wait blocks until a send slot is available for the account or the context
// is done.
func (l *DispatchLimiter) Wait(ctx context.Context, accountID string) error {
	for {
		wait := l.reserve(accountID, time.Now())
		if wait <= 0 {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

package service

import (
	"context"
	"sync"
	"time"
)

// AttemptLimiter counts verification attempts per key within a window.
// RecordFailure must increment and return the new count in one atomic step;
// callers reserve an attempt with it before checking a code.
type AttemptLimiter interface {
	Failures(ctx context.Context, key string) (int, error)
	RecordFailure(ctx context.Context, key string, window time.Duration) (int, error)
	Reset(ctx context.Context, key string) error
}

type attemptWindow struct {
	count   int
	expires time.Time
}

// MemoryAttemptLimiter keeps attempt counters in process memory.
type MemoryAttemptLimiter struct {
	mu      sync.Mutex
	entries map[string]attemptWindow
	now     func() time.Time
}

// NewMemoryAttemptLimiter builds an empty limiter. A nil clock uses time.Now.
func NewMemoryAttemptLimiter(clock func() time.Time) *MemoryAttemptLimiter {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryAttemptLimiter{entries: make(map[string]attemptWindow), now: clock}
}

func (l *MemoryAttemptLimiter) Failures(_ context.Context, key string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[key]
	if !ok {
		return 0, nil
	}
	if !entry.expires.IsZero() && !l.now().Before(entry.expires) {
		delete(l.entries, key)
		return 0, nil
	}
	return entry.count, nil
}

// RecordFailure increments the counter and restarts its expiry window.
func (l *MemoryAttemptLimiter) RecordFailure(_ context.Context, key string, window time.Duration) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	entry, ok := l.entries[key]
	if !ok || (!entry.expires.IsZero() && !now.Before(entry.expires)) {
		entry = attemptWindow{}
	}
	entry.expires = time.Time{}
	if window > 0 {
		entry.expires = now.Add(window)
	}
	entry.count++
	l.entries[key] = entry
	return entry.count, nil
}

func (l *MemoryAttemptLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
	return nil
}

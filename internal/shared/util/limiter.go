package util

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Limiter wraps rate.Limiter to provide a simpler interface.
type Limiter struct {
	inner *rate.Limiter
}

// NewLimiter creates a new token bucket limiter.
// r: tokens per second.
// b: burst size.
func NewLimiter(r float64, b int) *Limiter {
	return &Limiter{
		inner: rate.NewLimiter(rate.Limit(r), b),
	}
}

// Allow reports whether an event with weight n may happen at time now.
func (l *Limiter) Allow(n int) bool {
	return l.inner.AllowN(time.Now(), n)
}

// Wait blocks until n tokens are available.
func (l *Limiter) Wait(ctx context.Context, n int) error {
	return l.inner.WaitN(ctx, n)
}

// ThrottledLogger drops log lines once its limiter is exhausted and reports
// how many were dropped on the next line that gets through.
type ThrottledLogger struct {
	limiter    *Limiter
	suppressed atomic.Int64
}

func NewThrottledLogger(perSecond float64, burst int) *ThrottledLogger {
	return &ThrottledLogger{limiter: NewLimiter(perSecond, burst)}
}

func (t *ThrottledLogger) Warn(msg string, args ...any) bool {
	if !t.limiter.Allow(1) {
		t.suppressed.Add(1)
		return false
	}
	if n := t.suppressed.Swap(0); n > 0 {
		args = append(args, "suppressed", n)
	}
	slog.Warn(msg, args...)
	return true
}

func (t *ThrottledLogger) Suppressed() int64 {
	return t.suppressed.Load()
}

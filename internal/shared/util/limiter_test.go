package util

import (
	"context"
	"testing"
	"time"
)

func TestLimiter(t *testing.T) {
	// 10 tokens per second, burst of 2
	l := NewLimiter(10, 2)

	if !l.Allow(1) {
		t.Error("expected first token to be allowed")
	}
	if !l.Allow(1) {
		t.Error("expected second token to be allowed (burst)")
	}
	if l.Allow(1) {
		t.Error("expected third token to be rejected (burst exhausted)")
	}

	time.Sleep(150 * time.Millisecond)
	if !l.Allow(1) {
		t.Error("expected token to be refilled after wait")
	}
}

func TestLimiter_Wait(t *testing.T) {
	l := NewLimiter(100, 1)
	l.Allow(1) // consume burst

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := l.Wait(ctx, 1)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if time.Since(start) < 5*time.Millisecond {
		t.Error("Wait returned too early")
	}
}

func TestThrottledLogger(t *testing.T) {
	logger := NewThrottledLogger(0.001, 2)

	if !logger.Warn("load failed", "uri", "file:///a.css") {
		t.Fatal("expected first line to be emitted")
	}
	if !logger.Warn("load failed", "uri", "file:///b.css") {
		t.Fatal("expected second line to be emitted (burst)")
	}
	if logger.Warn("load failed", "uri", "file:///c.css") {
		t.Fatal("expected third line to be suppressed")
	}
	if got := logger.Suppressed(); got != 1 {
		t.Fatalf("expected 1 suppressed line, got %d", got)
	}
}

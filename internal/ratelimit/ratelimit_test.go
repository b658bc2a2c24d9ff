package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestNoopAlwaysAllows(t *testing.T) {
	limiter := Noop{}
	for i := 0; i < 100; i++ {
		allowed, err := limiter.Allow(context.Background(), "client-1")
		if err != nil || !allowed {
			t.Fatalf("Allow() = %v, %v", allowed, err)
		}
	}
}

func TestWindowKeyStableWithinWindow(t *testing.T) {
	window := time.Minute
	base := time.Date(2026, time.August, 25, 12, 0, 5, 0, time.UTC)

	first := windowKey("client-1", base, window)
	second := windowKey("client-1", base.Add(30*time.Second), window)
	if first != second {
		t.Fatalf("keys differ within one window: %q vs %q", first, second)
	}

	next := windowKey("client-1", base.Add(window), window)
	if next == first {
		t.Fatalf("key did not roll over to the next window: %q", next)
	}
}

func TestWindowKeySeparatesClients(t *testing.T) {
	now := time.Now()
	if windowKey("a", now, time.Minute) == windowKey("b", now, time.Minute) {
		t.Fatal("different clients share a window key")
	}
}

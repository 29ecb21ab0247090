package ratelimit

import (
	"testing"
	"time"
)

func TestAllowRefills(t *testing.T) {
	l := New(2, time.Second)
	defer l.Close()
	clock := time.Unix(0, 0)
	l.now = func() time.Time { return clock }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatal("first two requests rejected")
	}
	if l.Allow("a") {
		t.Fatal("third request allowed")
	}
	if !l.Allow("b") {
		t.Error("keys are not independent")
	}

	clock = clock.Add(500 * time.Millisecond)
	if !l.Allow("a") {
		t.Error("token not refilled after half a window")
	}
	if l.Allow("a") {
		t.Error("refilled more than one token")
	}
}

func TestEvictIdle(t *testing.T) {
	l := New(1, time.Second)
	defer l.Close()
	clock := time.Unix(0, 0)
	l.now = func() time.Time { return clock }

	l.Allow("a")
	clock = clock.Add(3 * time.Second)
	l.evictIdle()
	if len(l.buckets) != 0 {
		t.Errorf("idle bucket kept: %v", l.buckets)
	}
}

func TestRetryAfter(t *testing.T) {
	l := New(60, time.Minute)
	l.Close()
	l.Close()
	if got := l.RetryAfter(); got != time.Second {
		t.Errorf("RetryAfter() = %v", got)
	}
}

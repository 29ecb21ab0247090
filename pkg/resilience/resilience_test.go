package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/errors"
)

var errBoom = errors.New("boom")

func TestWithTimeoutExpires(t *testing.T) {
	err := WithTimeout(context.Background(), 10*time.Millisecond, "slow", func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
	if !errors.Is(err, apperrors.ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
}

func TestWithTimeoutPassesResult(t *testing.T) {
	err := WithTimeout(context.Background(), time.Second, "fast", func(ctx context.Context) error {
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Errorf("got %v", err)
	}
	if err := WithTimeout(context.Background(), 0, "inline", func(context.Context) error { return nil }); err != nil {
		t.Errorf("inline run returned %v", err)
	}
}

func TestRetrySucceedsEventually(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "flaky", RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond}, func() error {
		calls++
		if calls < 3 {
			return errBoom
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Errorf("err=%v calls=%d", err, calls)
	}
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	cfg := RetryConfig{
		MaxAttempts:  5,
		InitialDelay: time.Millisecond,
		Retryable:    func(err error) bool { return !errors.Is(err, apperrors.ErrInvalidInput) },
	}
	err := Retry(context.Background(), "permanent", cfg, func() error {
		calls++
		return apperrors.ErrInvalidInput
	})
	if calls != 1 || !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("err=%v calls=%d", err, calls)
	}
}

func TestRetryExhausted(t *testing.T) {
	err := Retry(context.Background(), "always", RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond}, func() error {
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Errorf("got %v", err)
	}
}

func TestCircuitBreakerTransitions(t *testing.T) {
	var states []State
	cb := NewCircuitBreaker("cache", CircuitBreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     20 * time.Millisecond,
		OnStateChange:    func(_ string, to State) { states = append(states, to) },
	})
	fail := func() error { return errBoom }

	cb.Execute(fail)
	cb.Execute(fail)
	if cb.GetState() != StateOpen {
		t.Fatalf("state = %v, want open", cb.GetState())
	}
	if err := cb.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("open breaker let a call through: %v", err)
	}

	time.Sleep(30 * time.Millisecond)
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("half-open probe failed: %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Errorf("state = %v, want closed", cb.GetState())
	}
	want := []State{StateOpen, StateHalfOpen, StateClosed}
	if len(states) != len(want) {
		t.Fatalf("transitions = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("transition %d = %v, want %v", i, states[i], want[i])
		}
	}
}

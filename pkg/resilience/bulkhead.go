package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	apperrors "github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Uncertain-TopK-Mining-Platform/pkg/logger"
)

// Bulkhead caps how many functions run at once. A slot stays taken until fn
// returns, including when Run has already given up on it after its timeout,
// so abandoned work still counts against the limit.
//
// A nil *Bulkhead applies no limit.
type Bulkhead struct {
	name     string
	size     int64
	wait     time.Duration
	sem      *semaphore.Weighted
	inFlight atomic.Int64
	rejected atomic.Int64
	logger   *slog.Logger
}

// NewBulkhead allows size concurrent runs. Callers wait at most wait for a
// slot; a non-positive wait blocks until the caller's context ends. A
// non-positive size returns nil.
func NewBulkhead(name string, size int, wait time.Duration) *Bulkhead {
	if size <= 0 {
		return nil
	}
	return &Bulkhead{
		name:   name,
		size:   int64(size),
		wait:   wait,
		sem:    semaphore.NewWeighted(int64(size)),
		logger: logger.WithComponent("bulkhead").With("name", name),
	}
}

// Run takes a slot and then behaves like WithTimeout. It returns
// ErrOverloaded when no slot frees up in time.
func (b *Bulkhead) Run(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if b == nil {
		return WithTimeout(ctx, timeout, name, fn)
	}
	if err := b.acquire(ctx); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s: waiting for a run slot: %w", name, ctx.Err())
		}
		b.rejected.Add(1)
		b.logger.Warn("run rejected, all slots busy", "run", name, "in_flight", b.inFlight.Load())
		return fmt.Errorf("%s: %w (limit: %d)", name, apperrors.ErrOverloaded, b.size)
	}
	b.inFlight.Add(1)
	return WithTimeout(ctx, timeout, name, func(ctx context.Context) error {
		defer func() {
			b.inFlight.Add(-1)
			b.sem.Release(1)
		}()
		return fn(ctx)
	})
}

func (b *Bulkhead) acquire(ctx context.Context) error {
	if b.wait <= 0 {
		return b.sem.Acquire(ctx, 1)
	}
	waitCtx, cancel := context.WithTimeout(ctx, b.wait)
	defer cancel()
	return b.sem.Acquire(waitCtx, 1)
}

// InFlight returns the number of runs holding a slot.
func (b *Bulkhead) InFlight() int64 {
	if b == nil {
		return 0
	}
	return b.inFlight.Load()
}

// Rejected returns how many runs failed with ErrOverloaded.
func (b *Bulkhead) Rejected() int64 {
	if b == nil {
		return 0
	}
	return b.rejected.Load()
}

// Size returns the slot count, or 0 for an unbounded bulkhead.
func (b *Bulkhead) Size() int {
	if b == nil {
		return 0
	}
	return int(b.size)
}

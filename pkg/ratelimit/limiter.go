package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DefaultCapacity is the number of page downloads allowed in flight across a run
const DefaultCapacity = 12

// Limiter bounds the number of concurrent operations
type Limiter interface {
	// Acquire blocks until a slot is free or ctx is done
	Acquire(ctx context.Context) error
	// Release returns a slot taken by Acquire
	Release()
	// Capacity reports the fixed number of slots
	Capacity() int
}

// Semaphore is a counting limiter with a fixed capacity
type Semaphore struct {
	sem      *semaphore.Weighted
	capacity int
	inFlight atomic.Int64
}

// NewSemaphore creates a limiter with the given capacity.
// A capacity of zero or less uses DefaultCapacity.
func NewSemaphore(capacity int) *Semaphore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Semaphore{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: capacity,
	}
}

// Acquire takes one slot, waiting until one is free
func (s *Semaphore) Acquire(ctx context.Context) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	s.inFlight.Add(1)
	return nil
}

// Release gives back one slot
func (s *Semaphore) Release() {
	s.inFlight.Add(-1)
	s.sem.Release(1)
}

// Capacity returns the fixed number of slots
func (s *Semaphore) Capacity() int {
	return s.capacity
}

// InFlight returns the number of slots currently held
func (s *Semaphore) InFlight() int {
	return int(s.inFlight.Load())
}

// Do runs fn while holding one slot of l
func Do(ctx context.Context, l Limiter, fn func() error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn()
}

// Go acquires a slot synchronously, then runs fn in a new goroutine that
// releases the slot when fn returns or panics. wg, when non-nil, tracks the
// goroutine. An acquisition error is returned and fn is not started.
func Go(ctx context.Context, l Limiter, wg *sync.WaitGroup, fn func()) error {
	return GoThen(ctx, l, wg, fn, nil)
}

// GoThen is Go with a follow-up: then runs in the same goroutine after fn
// has returned and the slot has been released, so slow bookkeeping does not
// hold capacity. then is skipped when fn panics.
func GoThen(ctx context.Context, l Limiter, wg *sync.WaitGroup, fn, then func()) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	if wg != nil {
		wg.Add(1)
	}
	go func() {
		if wg != nil {
			defer wg.Done()
		}
		func() {
			defer l.Release()
			fn()
		}()
		if then != nil {
			then()
		}
	}()
	return nil
}

package ai

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"bookdesk/metrics"
)

// RateGate bounds the number of simultaneous outbound LLM calls. One gate is
// built per process and shared by every Gateway.
type RateGate struct {
	sem      *semaphore.Weighted
	capacity int
	holders  atomic.Int32
}

func NewRateGate(capacity int) *RateGate {
	if capacity < 1 {
		capacity = 1
	}
	return &RateGate{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: capacity,
	}
}

// Acquire blocks until a slot is free or ctx is done. The returned release
// func is safe to call more than once; only the first call frees the slot.
func (g *RateGate) Acquire(ctx context.Context) (func(), error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return func() {}, err
	}
	g.holders.Add(1)
	metrics.GateHolders.Inc()

	var once sync.Once
	return func() {
		once.Do(func() {
			g.holders.Add(-1)
			metrics.GateHolders.Dec()
			g.sem.Release(1)
		})
	}, nil
}

// Holders is the number of slots currently held.
func (g *RateGate) Holders() int { return int(g.holders.Load()) }

func (g *RateGate) Capacity() int { return g.capacity }

// Package view holds the derived view state shown in the header: badge
// counts and the cart dropdown. Surfaces here never push to each other;
// each one re-derives its numbers from the services after its own
// actions, which is what keeps independently rendered badges in
// agreement.
package view

import (
	"context"
	"sync"

	"github.com/trademart/storefront/internal/auth"
	"github.com/trademart/storefront/internal/session"
)

// Counter is the narrow query a badge re-derives its number from.
type Counter interface {
	Count(ctx context.Context) int
}

// CounterFunc adapts a function to Counter.
type CounterFunc func(ctx context.Context) int

func (f CounterFunc) Count(ctx context.Context) int { return f(ctx) }

// Badge displays an aggregate count. It re-derives the count on every
// Refresh, clears on sign-out, and refreshes on sign-in, so any surface
// holding a badge converges after a refresh cycle.
type Badge struct {
	counter Counter

	mu    sync.RWMutex
	count int

	unsub auth.Unsubscribe
}

// NewBadge creates a badge over the given counter and ties its
// lifecycle to the session manager's state changes.
func NewBadge(m *session.Manager, counter Counter) *Badge {
	b := &Badge{counter: counter}
	b.unsub = m.OnChange(func(snap session.Snapshot) {
		if snap.IsLoading {
			return
		}
		if !snap.IsAuthenticated {
			b.set(0)
			return
		}
		b.Refresh(context.Background())
	})
	return b
}

// Refresh re-derives the count from the underlying query.
func (b *Badge) Refresh(ctx context.Context) {
	b.set(b.counter.Count(ctx))
}

// Count returns the last derived count.
func (b *Badge) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Close detaches the badge from session changes.
func (b *Badge) Close() {
	if b.unsub != nil {
		b.unsub()
		b.unsub = nil
	}
}

func (b *Badge) set(n int) {
	b.mu.Lock()
	b.count = n
	b.mu.Unlock()
}

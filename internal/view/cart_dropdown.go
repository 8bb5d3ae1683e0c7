package view

import (
	"context"
	"sync"

	"github.com/trademart/storefront/internal/cart"
)

// CartOperations is what the dropdown needs from the cart service.
type CartOperations interface {
	Items(ctx context.Context) []cart.Item
	Remove(ctx context.Context, itemID string) bool
}

// CartDropdown is the header's cart preview. It refreshes lazily: the
// item list is fetched when the dropdown opens, not kept in sync while
// closed. Removal is optimistic — the row disappears immediately — but
// the authoritative refetch that follows wins on any mismatch, so a
// failed delete reappears.
type CartDropdown struct {
	ops   CartOperations
	badge *Badge

	mu    sync.RWMutex
	open  bool
	items []cart.Item
}

// NewCartDropdown creates a dropdown over the cart service. badge may
// be nil when no badge shares the surface; when set, the dropdown
// triggers a recount after its mutations.
func NewCartDropdown(ops CartOperations, badge *Badge) *CartDropdown {
	return &CartDropdown{ops: ops, badge: badge}
}

// Open shows the dropdown and fetches a fresh item list.
func (d *CartDropdown) Open(ctx context.Context) {
	items := d.ops.Items(ctx)

	d.mu.Lock()
	d.open = true
	d.items = items
	d.mu.Unlock()
}

// Close hides the dropdown. The stale item list stays until the next
// Open refetches it.
func (d *CartDropdown) Close() {
	d.mu.Lock()
	d.open = false
	d.mu.Unlock()
}

// IsOpen reports whether the dropdown is showing.
func (d *CartDropdown) IsOpen() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.open
}

// Items returns the currently displayed items.
func (d *CartDropdown) Items() []cart.Item {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.items
}

// Subtotal is the displayed subtotal, re-derived from the displayed
// items.
func (d *CartDropdown) Subtotal() float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return cart.Subtotal(d.items)
}

// Remove deletes a line item: optimistic local removal first, then the
// remote delete, then an authoritative refetch and recount so every
// surface converges on the store's truth.
func (d *CartDropdown) Remove(ctx context.Context, itemID string) {
	d.mu.Lock()
	kept := d.items[:0]
	for _, item := range d.items {
		if item.ID != itemID {
			kept = append(kept, item)
		}
	}
	d.items = kept
	d.mu.Unlock()

	d.ops.Remove(ctx, itemID)

	items := d.ops.Items(ctx)
	d.mu.Lock()
	d.items = items
	d.mu.Unlock()

	if d.badge != nil {
		d.badge.Refresh(ctx)
	}
}

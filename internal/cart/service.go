// Package cart keeps the cart's line items and their derived aggregates
// (badge count, subtotal) mutually consistent across the UI surfaces
// that display them. There is no shared cart state: every surface
// re-queries after its own mutations, and all surfaces converge because
// both the item list and the count derive from the same rows.
package cart

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/trademart/storefront/internal/catalog"
	"github.com/trademart/storefront/internal/store"
)

// itemColumns joins line items with their product projections.
const itemColumns = "*, product:products(*, images:product_images(id, image_url, is_primary))"

// Identity resolves the current user. The session manager implements it.
type Identity interface {
	CurrentUserID() (string, bool)
	Authorize(ctx context.Context) context.Context
}

// Item is a cart line item joined with its product. Quantity is always
// at least 1; a row that would drop below 1 is removed, not updated.
type Item struct {
	ID        string           `json:"id"`
	ProductID string           `json:"product_id"`
	UserID    string           `json:"user_id"`
	Quantity  int              `json:"quantity"`
	Product   *catalog.Product `json:"product,omitempty"`
}

// Service executes cart queries and commands for the signed-in user.
type Service struct {
	store    store.Store
	identity Identity
	logger   *zap.Logger
}

// NewService creates a cart service.
func NewService(st store.Store, identity Identity, logger *zap.Logger) *Service {
	return &Service{store: st, identity: identity, logger: logger}
}

// Items returns the user's line items with product projections, newest
// first. Unauthenticated callers and backend failures get an empty
// list, not an error.
func (s *Service) Items(ctx context.Context) []Item {
	userID, ok := s.identity.CurrentUserID()
	if !ok {
		return []Item{}
	}

	var items []Item
	err := s.store.Select(s.identity.Authorize(ctx), store.CollectionCartItems, store.Query{
		Columns: itemColumns,
		Filters: []store.Filter{store.Eq("user_id", userID)},
		Order:   &store.Order{Column: "created_at", Ascending: false},
	}, &items)
	if err != nil {
		s.logger.Error("fetch cart items failed", zap.Error(err))
		return []Item{}
	}
	if items == nil {
		items = []Item{}
	}
	return items
}

// Add puts quantity units of a product in the cart. A line item already
// holding the product has its quantity incremented; the cart never
// carries two rows for the same (user, product) pair.
func (s *Service) Add(ctx context.Context, productID string, quantity int) bool {
	if quantity < 1 {
		return false
	}

	userID, ok := s.identity.CurrentUserID()
	if !ok {
		return false
	}
	ctx = s.identity.Authorize(ctx)

	var existing struct {
		ID       string `json:"id"`
		Quantity int    `json:"quantity"`
	}
	err := s.store.SelectSingle(ctx, store.CollectionCartItems, store.Query{
		Columns: "id, quantity",
		Filters: []store.Filter{
			store.Eq("user_id", userID),
			store.Eq("product_id", productID),
		},
	}, &existing)

	switch {
	case err == nil:
		patch := map[string]any{"quantity": existing.Quantity + quantity}
		if err := s.store.Update(ctx, store.CollectionCartItems, []store.Filter{store.Eq("id", existing.ID)}, patch); err != nil {
			s.logger.Error("update cart item failed", zap.String("item_id", existing.ID), zap.Error(err))
			return false
		}
	case errors.Is(err, store.ErrNotFound):
		row := map[string]any{
			"user_id":    userID,
			"product_id": productID,
			"quantity":   quantity,
		}
		if err := s.store.Insert(ctx, store.CollectionCartItems, row); err != nil {
			s.logger.Error("insert cart item failed", zap.String("product_id", productID), zap.Error(err))
			return false
		}
	default:
		s.logger.Error("check existing cart item failed", zap.String("product_id", productID), zap.Error(err))
		return false
	}

	return true
}

// SetQuantity overwrites a line item's quantity. Quantities below 1 are
// rejected before any remote call.
func (s *Service) SetQuantity(ctx context.Context, itemID string, quantity int) bool {
	if quantity < 1 {
		return false
	}

	patch := map[string]any{"quantity": quantity}
	err := s.store.Update(s.identity.Authorize(ctx), store.CollectionCartItems, []store.Filter{store.Eq("id", itemID)}, patch)
	if err != nil {
		s.logger.Error("update cart quantity failed", zap.String("item_id", itemID), zap.Error(err))
		return false
	}
	return true
}

// Remove deletes a line item.
func (s *Service) Remove(ctx context.Context, itemID string) bool {
	err := s.store.Delete(s.identity.Authorize(ctx), store.CollectionCartItems, []store.Filter{store.Eq("id", itemID)})
	if err != nil {
		s.logger.Error("remove cart item failed", zap.String("item_id", itemID), zap.Error(err))
		return false
	}
	return true
}

// Count returns the sum of quantities across the user's line items. It
// fetches only the quantity column; the badge needs the number, not the
// rows. Count and Items always agree because both read the same rows.
func (s *Service) Count(ctx context.Context) int {
	userID, ok := s.identity.CurrentUserID()
	if !ok {
		return 0
	}

	var rows []struct {
		Quantity int `json:"quantity"`
	}
	err := s.store.Select(s.identity.Authorize(ctx), store.CollectionCartItems, store.Query{
		Columns: "quantity",
		Filters: []store.Filter{store.Eq("user_id", userID)},
	}, &rows)
	if err != nil {
		s.logger.Error("fetch cart count failed", zap.Error(err))
		return 0
	}

	total := 0
	for _, row := range rows {
		total += row.Quantity
	}
	return total
}

package cart

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trademart/storefront/internal/store"
	"github.com/trademart/storefront/pkg/testutil"
)

// staticIdentity pins the current user for service tests.
type staticIdentity struct {
	userID string
}

func (s staticIdentity) CurrentUserID() (string, bool) {
	return s.userID, s.userID != ""
}

func (s staticIdentity) Authorize(ctx context.Context) context.Context { return ctx }

func newTestService(userID string) (*Service, *testutil.MemoryStore) {
	st := testutil.NewMemoryStore()
	return NewService(st, staticIdentity{userID: userID}, zap.NewNop()), st
}

// ============================================================
// Add
// ============================================================

func TestAddMergesIntoExistingLineItem(t *testing.T) {
	svc, st := newTestService("user-1")
	ctx := context.Background()

	require.True(t, svc.Add(ctx, "prod-1", 2))
	require.True(t, svc.Add(ctx, "prod-1", 3))

	rows := st.Rows(store.CollectionCartItems)
	require.Len(t, rows, 1, "one row per (user, product) pair")
	assert.EqualValues(t, 5, rows[0]["quantity"])
}

func TestAddDistinctProducts(t *testing.T) {
	svc, st := newTestService("user-1")
	ctx := context.Background()

	require.True(t, svc.Add(ctx, "prod-1", 1))
	require.True(t, svc.Add(ctx, "prod-2", 1))

	assert.Len(t, st.Rows(store.CollectionCartItems), 2)
}

func TestAddRejectsNonPositiveQuantity(t *testing.T) {
	svc, st := newTestService("user-1")
	ctx := context.Background()

	assert.False(t, svc.Add(ctx, "prod-1", 0))
	assert.False(t, svc.Add(ctx, "prod-1", -3))
	assert.Empty(t, st.Rows(store.CollectionCartItems))
}

func TestAddRequiresAuthentication(t *testing.T) {
	svc, st := newTestService("")

	assert.False(t, svc.Add(context.Background(), "prod-1", 1))
	assert.Empty(t, st.Rows(store.CollectionCartItems))
}

// ============================================================
// SetQuantity / Remove
// ============================================================

func TestSetQuantityRejectsBelowOne(t *testing.T) {
	svc, st := newTestService("user-1")
	ctx := context.Background()
	require.True(t, svc.Add(ctx, "prod-1", 2))
	itemID := st.Rows(store.CollectionCartItems)[0]["id"].(string)

	// Rejected before any remote call; the row keeps its quantity.
	st.SetError(assert.AnError)
	assert.False(t, svc.SetQuantity(ctx, itemID, 0))
	assert.False(t, svc.SetQuantity(ctx, itemID, -1))
	st.SetError(nil)

	assert.EqualValues(t, 2, st.Rows(store.CollectionCartItems)[0]["quantity"])
}

func TestSetQuantityOverwrites(t *testing.T) {
	svc, st := newTestService("user-1")
	ctx := context.Background()
	require.True(t, svc.Add(ctx, "prod-1", 2))
	itemID := st.Rows(store.CollectionCartItems)[0]["id"].(string)

	require.True(t, svc.SetQuantity(ctx, itemID, 7))
	assert.EqualValues(t, 7, st.Rows(store.CollectionCartItems)[0]["quantity"])
}

func TestRemoveDeletesLineItem(t *testing.T) {
	svc, st := newTestService("user-1")
	ctx := context.Background()
	require.True(t, svc.Add(ctx, "prod-1", 1))
	require.True(t, svc.Add(ctx, "prod-2", 1))
	itemID := st.Rows(store.CollectionCartItems)[0]["id"].(string)

	require.True(t, svc.Remove(ctx, itemID))
	assert.Len(t, st.Rows(store.CollectionCartItems), 1)
	assert.Equal(t, 1, svc.Count(ctx))
}

// ============================================================
// Count / Items agreement
// ============================================================

func TestCountSumsQuantities(t *testing.T) {
	svc, _ := newTestService("user-1")
	ctx := context.Background()

	assert.Equal(t, 0, svc.Count(ctx), "empty cart counts zero")

	require.True(t, svc.Add(ctx, "prod-1", 2))
	require.True(t, svc.Add(ctx, "prod-2", 1))
	require.True(t, svc.Add(ctx, "prod-1", 1))

	assert.Equal(t, 4, svc.Count(ctx))
}

func TestCountAgreesWithItemsAfterAnyOperationSequence(t *testing.T) {
	svc, st := newTestService("user-1")
	ctx := context.Background()

	check := func() {
		t.Helper()
		total := 0
		for _, item := range svc.Items(ctx) {
			require.GreaterOrEqual(t, item.Quantity, 1)
			total += item.Quantity
		}
		assert.Equal(t, total, svc.Count(ctx))
	}

	check()
	svc.Add(ctx, "prod-1", 2)
	check()
	svc.Add(ctx, "prod-2", 5)
	check()
	svc.Add(ctx, "prod-1", 1)
	check()

	itemID := st.Rows(store.CollectionCartItems)[0]["id"].(string)
	svc.SetQuantity(ctx, itemID, 9)
	check()
	svc.SetQuantity(ctx, itemID, 0) // rejected, state unchanged
	check()
	svc.Remove(ctx, itemID)
	check()
}

func TestItemsEmptyForAnonymousAndOnFailure(t *testing.T) {
	anon, _ := newTestService("")
	assert.Empty(t, anon.Items(context.Background()))
	assert.Equal(t, 0, anon.Count(context.Background()))

	svc, st := newTestService("user-1")
	require.True(t, svc.Add(context.Background(), "prod-1", 1))
	st.SetError(assert.AnError)
	assert.Empty(t, svc.Items(context.Background()), "backend failure degrades to empty")
	assert.Equal(t, 0, svc.Count(context.Background()))
}

func TestItemsScopedToUser(t *testing.T) {
	svc, st := newTestService("user-1")
	ctx := context.Background()
	require.True(t, svc.Add(ctx, "prod-1", 1))
	st.Seed(store.CollectionCartItems, map[string]any{
		"id": "other", "user_id": "user-2", "product_id": "prod-9", "quantity": 4,
	})

	items := svc.Items(ctx)
	require.Len(t, items, 1)
	assert.Equal(t, "user-1", items[0].UserID)
	assert.Equal(t, 1, svc.Count(ctx))
}

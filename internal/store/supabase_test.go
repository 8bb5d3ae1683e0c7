package store

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trademart/storefront/supabase/client"
)

func newTestStore(t *testing.T, handler http.HandlerFunc) *SupabaseStore {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := client.New(client.Config{URL: srv.URL, APIKey: "anon-key"})
	require.NoError(t, err)
	return NewSupabaseStore(c)
}

func TestSelectBuildsPostgRESTQuery(t *testing.T) {
	var gotPath string
	var gotQuery map[string][]string
	st := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		w.Write([]byte(`[{"id":"n1","title":"hello"},{"id":"n2","title":"again"}]`))
	})

	var rows []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	err := st.Select(context.Background(), CollectionNotifications, Query{
		Columns: "id, title",
		Filters: []Filter{Eq("user_id", "u1")},
		Order:   &Order{Column: "created_at", Ascending: false},
		Limit:   10,
	}, &rows)
	require.NoError(t, err)

	assert.Equal(t, "/rest/v1/notifications", gotPath)
	assert.Equal(t, []string{"id, title"}, gotQuery["select"])
	assert.Equal(t, []string{"eq.u1"}, gotQuery["user_id"])
	assert.Equal(t, []string{"created_at.desc"}, gotQuery["order"])
	assert.Equal(t, []string{"10"}, gotQuery["limit"])

	require.Len(t, rows, 2)
	assert.Equal(t, "hello", rows[0].Title)
}

func TestSelectSingleMissingRowIsErrNotFound(t *testing.T) {
	st := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"JSON object requested, multiple (or no) rows returned"}`, http.StatusNotAcceptable)
	})

	var row struct{ ID string }
	err := st.SelectSingle(context.Background(), CollectionProfiles, Query{
		Filters: []Filter{Eq("id", "missing")},
	}, &row)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSelectSingleDecodesObject(t *testing.T) {
	st := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"u1","name":"Maya"}`))
	})

	var row struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	err := st.SelectSingle(context.Background(), CollectionProfiles, Query{
		Filters: []Filter{Eq("id", "u1")},
	}, &row)
	require.NoError(t, err)
	assert.Equal(t, "Maya", row.Name)
}

func TestCountReadsContentRange(t *testing.T) {
	var gotMethod string
	st := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.Header().Set("Content-Range", "*/4")
	})

	count, err := st.Count(context.Background(), CollectionNotifications, []Filter{
		Eq("user_id", "u1"),
		Eq("is_read", false),
	})
	require.NoError(t, err)
	assert.Equal(t, http.MethodHead, gotMethod)
	assert.Equal(t, 4, count)
}

func TestAccessTokenFromContextAuthorizesRequest(t *testing.T) {
	var gotAuth string
	st := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	})

	ctx := WithAccessToken(context.Background(), "user-token")
	var rows []struct{}
	require.NoError(t, st.Select(ctx, CollectionCartItems, Query{}, &rows))
	assert.Equal(t, "Bearer user-token", gotAuth)

	require.NoError(t, st.Select(context.Background(), CollectionCartItems, Query{}, &rows))
	assert.Equal(t, "Bearer anon-key", gotAuth, "unauthorized context falls back to anon")
}

func TestUpdateAndDeleteScopeByFilters(t *testing.T) {
	var gotMethods []string
	var gotIDs []string
	st := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethods = append(gotMethods, r.Method)
		gotIDs = append(gotIDs, r.URL.Query().Get("id"))
		w.Write([]byte(`[]`))
	})

	require.NoError(t, st.Update(context.Background(), CollectionCartItems,
		[]Filter{Eq("id", "item-1")}, map[string]any{"quantity": 3}))
	require.NoError(t, st.Delete(context.Background(), CollectionCartItems,
		[]Filter{Eq("id", "item-2")}))

	assert.Equal(t, []string{http.MethodPatch, http.MethodDelete}, gotMethods)
	assert.Equal(t, []string{"eq.item-1", "eq.item-2"}, gotIDs)
}

func TestServerErrorSurfaces(t *testing.T) {
	st := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"permission denied for table cart_items"}`, http.StatusForbidden)
	})

	var rows []struct{}
	err := st.Select(context.Background(), CollectionCartItems, Query{}, &rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}

package store

import (
	"context"
	"fmt"
	"net/http"

	"github.com/trademart/storefront/supabase/client"
)

// SupabaseStore implements Store over the Supabase PostgREST API.
type SupabaseStore struct {
	client *client.Client
}

// NewSupabaseStore creates a store backed by the given Supabase client.
func NewSupabaseStore(c *client.Client) *SupabaseStore {
	return &SupabaseStore{client: c}
}

// Select decodes all matching rows into dest.
func (s *SupabaseStore) Select(ctx context.Context, collection string, q Query, dest any) error {
	resp, err := s.builder(ctx, collection, q).Execute(ctx)
	if err != nil {
		return err
	}
	if err := resp.Error(); err != nil {
		return err
	}
	return resp.JSON(dest)
}

// SelectSingle decodes at most one matching row into dest.
func (s *SupabaseStore) SelectSingle(ctx context.Context, collection string, q Query, dest any) error {
	resp, err := s.builder(ctx, collection, q).MaybeSingle().Execute(ctx)
	if err != nil {
		return err
	}
	if err := resp.Error(); err != nil {
		return err
	}
	if len(resp.Body) == 0 {
		return ErrNotFound
	}
	return resp.JSON(dest)
}

// Insert adds a row.
func (s *SupabaseStore) Insert(ctx context.Context, collection string, row any) error {
	qb := s.authorize(ctx, s.client.From(collection))
	resp, err := qb.ExecuteInsert(ctx, row)
	if err != nil {
		return err
	}
	return resp.Error()
}

// Update patches all rows matching the filters.
func (s *SupabaseStore) Update(ctx context.Context, collection string, filters []Filter, patch any) error {
	qb := s.authorize(ctx, s.client.From(collection))
	applyFilters(qb, filters)
	resp, err := qb.ExecuteUpdate(ctx, patch)
	if err != nil {
		return err
	}
	return resp.Error()
}

// Delete removes all rows matching the filters.
func (s *SupabaseStore) Delete(ctx context.Context, collection string, filters []Filter) error {
	qb := s.authorize(ctx, s.client.From(collection))
	applyFilters(qb, filters)
	resp, err := qb.ExecuteDelete(ctx)
	if err != nil {
		return err
	}
	return resp.Error()
}

// Count returns the number of matching rows via a HEAD request; the
// total rides on the Content-Range header.
func (s *SupabaseStore) Count(ctx context.Context, collection string, filters []Filter) (int, error) {
	qb := s.authorize(ctx, s.client.From(collection)).Select("id").Head().Count("exact")
	applyFilters(qb, filters)
	resp, err := qb.Execute(ctx)
	if err != nil {
		return 0, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return 0, fmt.Errorf("supabase error: status %d", resp.StatusCode)
	}
	return resp.ContentRangeCount(), nil
}

func (s *SupabaseStore) builder(ctx context.Context, collection string, q Query) *client.QueryBuilder {
	qb := s.authorize(ctx, s.client.From(collection))
	if q.Columns != "" {
		qb.Select(q.Columns)
	}
	applyFilters(qb, q.Filters)
	if q.Order != nil {
		qb.Order(q.Order.Column, q.Order.Ascending)
	}
	if q.Limit > 0 {
		qb.Limit(q.Limit)
	}
	return qb
}

func (s *SupabaseStore) authorize(ctx context.Context, qb *client.QueryBuilder) *client.QueryBuilder {
	if tok, ok := AccessTokenFromContext(ctx); ok {
		qb.WithAccessToken(tok)
	}
	return qb
}

func applyFilters(qb *client.QueryBuilder, filters []Filter) {
	for _, f := range filters {
		switch f.Op {
		case "eq", "":
			qb.Eq(f.Column, f.Value)
		case "neq":
			qb.Neq(f.Column, f.Value)
		case "is":
			qb.Is(f.Column, f.Value)
		case "gt":
			qb.Gt(f.Column, f.Value)
		case "gte":
			qb.Gte(f.Column, f.Value)
		case "lt":
			qb.Lt(f.Column, f.Value)
		case "lte":
			qb.Lte(f.Column, f.Value)
		}
	}
}

// Package testutil provides common testing utilities and mock
// implementations of the storefront's external boundaries.
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trademart/storefront/internal/store"
)

// MemoryStore is an in-memory store.Store. Rows are stored as decoded
// JSON objects; embedded-resource selects return whatever the inserted
// row already holds (tests insert rows with their joins inlined).
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]map[string]any
	err         error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string][]map[string]any)}
}

// SetError makes every subsequent operation fail with err until cleared
// with SetError(nil).
func (m *MemoryStore) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Seed inserts a row without generating ids or timestamps.
func (m *MemoryStore) Seed(collection string, row map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[collection] = append(m.collections[collection], cloneRow(row))
}

// Rows returns a copy of a collection's rows, for assertions.
func (m *MemoryStore) Rows(collection string) []map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows := make([]map[string]any, 0, len(m.collections[collection]))
	for _, row := range m.collections[collection] {
		rows = append(rows, cloneRow(row))
	}
	return rows
}

// Select decodes all matching rows into dest.
func (m *MemoryStore) Select(ctx context.Context, collection string, q store.Query, dest any) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return m.err
	}

	rows := m.match(collection, q.Filters)
	if q.Order != nil {
		sortRows(rows, *q.Order)
	}
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	return decodeInto(rows, dest)
}

// SelectSingle decodes the first matching row into dest.
func (m *MemoryStore) SelectSingle(ctx context.Context, collection string, q store.Query, dest any) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return m.err
	}

	rows := m.match(collection, q.Filters)
	if len(rows) == 0 {
		return store.ErrNotFound
	}
	return decodeInto(rows[0], dest)
}

// Insert adds a row, generating an id and created_at when absent.
func (m *MemoryStore) Insert(ctx context.Context, collection string, row any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}

	decoded, err := toRow(row)
	if err != nil {
		return err
	}
	if _, ok := decoded["id"]; !ok {
		decoded["id"] = uuid.NewString()
	}
	if _, ok := decoded["created_at"]; !ok {
		decoded["created_at"] = time.Now().UTC().Format(time.RFC3339)
	}
	m.collections[collection] = append(m.collections[collection], decoded)
	return nil
}

// Update patches all matching rows.
func (m *MemoryStore) Update(ctx context.Context, collection string, filters []store.Filter, patch any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}

	decoded, err := toRow(patch)
	if err != nil {
		return err
	}
	for _, row := range m.collections[collection] {
		if matches(row, filters) {
			for k, v := range decoded {
				row[k] = v
			}
		}
	}
	return nil
}

// Delete removes all matching rows.
func (m *MemoryStore) Delete(ctx context.Context, collection string, filters []store.Filter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}

	kept := m.collections[collection][:0]
	for _, row := range m.collections[collection] {
		if !matches(row, filters) {
			kept = append(kept, row)
		}
	}
	m.collections[collection] = kept
	return nil
}

// Count returns the number of matching rows.
func (m *MemoryStore) Count(ctx context.Context, collection string, filters []store.Filter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return 0, m.err
	}
	return len(m.match(collection, filters)), nil
}

func (m *MemoryStore) match(collection string, filters []store.Filter) []map[string]any {
	var rows []map[string]any
	for _, row := range m.collections[collection] {
		if matches(row, filters) {
			rows = append(rows, row)
		}
	}
	return rows
}

func matches(row map[string]any, filters []store.Filter) bool {
	for _, f := range filters {
		got, ok := row[f.Column]
		switch f.Op {
		case "eq", "is", "":
			if !ok || normalize(got) != normalize(f.Value) {
				return false
			}
		case "neq":
			if ok && normalize(got) == normalize(f.Value) {
				return false
			}
		default:
			// numeric comparisons
			a, aok := asFloat(got)
			b, bok := asFloat(f.Value)
			if !ok || !aok || !bok {
				return false
			}
			switch f.Op {
			case "gt":
				if !(a > b) {
					return false
				}
			case "gte":
				if !(a >= b) {
					return false
				}
			case "lt":
				if !(a < b) {
					return false
				}
			case "lte":
				if !(a <= b) {
					return false
				}
			}
		}
	}
	return true
}

func sortRows(rows []map[string]any, order store.Order) {
	// insertion sort; test datasets are tiny
	for i := 1; i < len(rows); i++ {
		for j := i; j > 0; j-- {
			a := normalize(rows[j-1][order.Column])
			b := normalize(rows[j][order.Column])
			swap := false
			if order.Ascending {
				swap = a > b
			} else {
				swap = a < b
			}
			if !swap {
				break
			}
			rows[j-1], rows[j] = rows[j], rows[j-1]
		}
	}
}

func normalize(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func toRow(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal row: %w", err)
	}
	var row map[string]any
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, fmt.Errorf("unmarshal row: %w", err)
	}
	return row, nil
}

func cloneRow(row map[string]any) map[string]any {
	cloned, err := toRow(row)
	if err != nil {
		cloned = make(map[string]any, len(row))
		for k, v := range row {
			cloned[k] = v
		}
	}
	return cloned
}

func decodeInto(src, dest any) error {
	data, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("marshal rows: %w", err)
	}
	return json.Unmarshal(data, dest)
}

// Package store defines the storefront's data-store boundary: row-level
// reads and writes over named collections, with filter, order and limit.
// The hosted backend implements it over PostgREST; tests implement it in
// memory.
package store

import (
	"context"
	"errors"
	"fmt"
)

// Collection names consumed by the storefront.
const (
	CollectionProfiles       = "profiles"
	CollectionCartItems      = "cart_items"
	CollectionNotifications  = "notifications"
	CollectionProducts       = "products"
	CollectionCategories     = "categories"
	CollectionProductImages  = "product_images"
	CollectionSpecifications = "product_specifications"
)

// ErrNotFound is returned by SelectSingle when no row matches.
var ErrNotFound = errors.New("row not found")

// Filter narrows a query to rows matching a column condition.
type Filter struct {
	Column string
	Op     string // eq, neq, is, gt, gte, lt, lte
	Value  any
}

// Eq builds an equality filter.
func Eq(column string, value any) Filter {
	return Filter{Column: column, Op: "eq", Value: value}
}

// Is builds an IS filter (NULL, TRUE, FALSE).
func Is(column string, value any) Filter {
	return Filter{Column: column, Op: "is", Value: value}
}

func (f Filter) String() string {
	return fmt.Sprintf("%s=%s.%v", f.Column, f.Op, f.Value)
}

// Order sorts query results by a column.
type Order struct {
	Column    string
	Ascending bool
}

// Query describes a filtered read over a collection.
type Query struct {
	// Columns is the PostgREST select list; empty means all columns.
	// Embedded resources are allowed, e.g.
	// "*, images:product_images(id, image_url, is_primary)".
	Columns string
	Filters []Filter
	Order   *Order
	Limit   int
}

// Store executes reads and writes against named collections. Every call
// is a single remote operation with no client-side locking; a lost
// update between two concurrent sessions is accepted (no version check).
type Store interface {
	// Select decodes all matching rows into dest, which must be a
	// pointer to a slice.
	Select(ctx context.Context, collection string, q Query, dest any) error

	// SelectSingle decodes at most one matching row into dest. Returns
	// ErrNotFound when no row matches.
	SelectSingle(ctx context.Context, collection string, q Query, dest any) error

	// Insert adds a row.
	Insert(ctx context.Context, collection string, row any) error

	// Update patches all rows matching the filters.
	Update(ctx context.Context, collection string, filters []Filter, patch any) error

	// Delete removes all rows matching the filters.
	Delete(ctx context.Context, collection string, filters []Filter) error

	// Count returns the number of rows matching the filters without
	// fetching them.
	Count(ctx context.Context, collection string, filters []Filter) (int, error)
}

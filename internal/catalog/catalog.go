// Package catalog provides read-only product and category queries. Every
// operation is a pass-through to the data store; a backend failure
// degrades to an empty result, never an error to the caller.
package catalog

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/trademart/storefront/internal/store"
)

// productColumns selects products joined with their images.
const productColumns = "*, images:product_images(id, image_url, is_primary)"

// productDetailColumns additionally joins specifications.
const productDetailColumns = "*, images:product_images(id, image_url, is_primary), specifications:product_specifications(id, name, value)"

// Image is a product image row.
type Image struct {
	ID        string `json:"id"`
	ImageURL  string `json:"image_url"`
	IsPrimary bool   `json:"is_primary"`
}

// Specification is a product specification row.
type Specification struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Product is the read-only product projection.
type Product struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Slug            string          `json:"slug"`
	Description     *string         `json:"description"`
	Price           float64         `json:"price"`
	DiscountedPrice *float64        `json:"discounted_price"`
	CategoryID      string          `json:"category_id"`
	Brand           *string         `json:"brand"`
	SKU             *string         `json:"sku"`
	InStock         bool            `json:"in_stock"`
	Rating          *float64        `json:"rating"`
	ReviewCount     int             `json:"review_count"`
	VendorID        *string         `json:"vendor_id"`
	Images          []Image         `json:"images"`
	Specifications  []Specification `json:"specifications,omitempty"`
}

// Category is a category row.
type Category struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Description *string `json:"description"`
}

// Service executes catalog queries.
type Service struct {
	store  store.Store
	logger *zap.Logger
}

// NewService creates a catalog service.
func NewService(st store.Store, logger *zap.Logger) *Service {
	return &Service{store: st, logger: logger}
}

// Categories lists all categories ordered by name.
func (s *Service) Categories(ctx context.Context) []Category {
	var categories []Category
	err := s.store.Select(ctx, store.CollectionCategories, store.Query{
		Order: &store.Order{Column: "name", Ascending: true},
	}, &categories)
	if err != nil {
		s.logger.Error("fetch categories failed", zap.Error(err))
		return []Category{}
	}
	if categories == nil {
		categories = []Category{}
	}
	return categories
}

// ProductsByCategory lists the products of the category with the given
// slug, ordered by name. An unknown slug yields an empty list.
func (s *Service) ProductsByCategory(ctx context.Context, categorySlug string) []Product {
	var category Category
	err := s.store.SelectSingle(ctx, store.CollectionCategories, store.Query{
		Columns: "id",
		Filters: []store.Filter{store.Eq("slug", categorySlug)},
	}, &category)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Error("fetch category failed", zap.String("slug", categorySlug), zap.Error(err))
		}
		return []Product{}
	}

	var products []Product
	err = s.store.Select(ctx, store.CollectionProducts, store.Query{
		Columns: productColumns,
		Filters: []store.Filter{store.Eq("category_id", category.ID)},
		Order:   &store.Order{Column: "name", Ascending: true},
	}, &products)
	if err != nil {
		s.logger.Error("fetch products by category failed", zap.String("slug", categorySlug), zap.Error(err))
		return []Product{}
	}
	if products == nil {
		products = []Product{}
	}
	return products
}

// ProductDetail fetches one product with images and specifications, or
// nil when it does not exist.
func (s *Service) ProductDetail(ctx context.Context, productID string) *Product {
	var product Product
	err := s.store.SelectSingle(ctx, store.CollectionProducts, store.Query{
		Columns: productDetailColumns,
		Filters: []store.Filter{store.Eq("id", productID)},
	}, &product)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Error("fetch product detail failed", zap.String("product_id", productID), zap.Error(err))
		}
		return nil
	}
	return &product
}

// FeaturedProducts lists the top-rated products, at most limit of them.
func (s *Service) FeaturedProducts(ctx context.Context, limit int) []Product {
	if limit <= 0 {
		limit = 6
	}

	var products []Product
	err := s.store.Select(ctx, store.CollectionProducts, store.Query{
		Columns: productColumns,
		Order:   &store.Order{Column: "rating", Ascending: false},
		Limit:   limit,
	}, &products)
	if err != nil {
		s.logger.Error("fetch featured products failed", zap.Error(err))
		return []Product{}
	}
	if products == nil {
		products = []Product{}
	}
	return products
}

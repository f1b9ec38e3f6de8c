package models

import "strings"

// FeatureDimensions is the fixed length D of a product's binary feature
// vector (category 0-4, color 5-12, occasion 13-16, season 17-20, style
// 21-25).
const FeatureDimensions = 26

// Product is an immutable catalog row, read-only after ingestion.
type Product struct {
	ProductID     string    `json:"product_id" db:"product_id"`
	Brand         string    `json:"brand" db:"brand"`
	CategoryMain  string    `json:"category_main" db:"category_main"`
	PrimaryColor  string    `json:"primary_color" db:"primary_color"`
	Occasion      string    `json:"occasion" db:"occasion"`
	Season        string    `json:"season" db:"season"`
	Style         string    `json:"style" db:"style"`
	Price         float64   `json:"price" db:"price"`
	DisplayName   string    `json:"display_name" db:"display_name"`
	ImageURL      string    `json:"image_url,omitempty" db:"image_url"`
	FeatureVector []float64 `json:"feature_vector" db:"feature_vector"`
}

// ProductQuery describes the predicate the candidate pool is sampled
// against: price range, category filter, avoidance facets, and the
// exclusion set built from recent history.
type ProductQuery struct {
	MinPrice      *float64
	MaxPrice      *float64
	Category      string
	ExcludeIDs    map[string]struct{}
	AvoidCategory string
	AvoidColor    string
	AvoidBrand    string
}

// Matches reports whether p satisfies q. Used by both the sampling store
// implementation and in-memory test fixtures so the predicate has a
// single definition.
func (q ProductQuery) Matches(p *Product) bool {
	if _, excluded := q.ExcludeIDs[p.ProductID]; excluded {
		return false
	}
	if q.Category != "" && !strings.EqualFold(p.CategoryMain, q.Category) {
		return false
	}
	if q.MinPrice != nil && p.Price < *q.MinPrice {
		return false
	}
	if q.MaxPrice != nil && p.Price > *q.MaxPrice {
		return false
	}
	if q.AvoidCategory != "" && strings.EqualFold(p.CategoryMain, q.AvoidCategory) {
		return false
	}
	if q.AvoidColor != "" && strings.EqualFold(p.PrimaryColor, q.AvoidColor) {
		return false
	}
	if q.AvoidBrand != "" && strings.EqualFold(p.Brand, q.AvoidBrand) {
		return false
	}
	return true
}

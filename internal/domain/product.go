package domain

import (
	"time"
)

// Product status constants.
const (
	ProductStatusDraft     = "draft"
	ProductStatusPublished = "published"
	ProductStatusArchived  = "archived"
)

// Product represents a product in the catalog. Prices are in cents.
type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	Description   string    `json:"description"`
	Category      string    `json:"category"`
	Status        string    `json:"status"`
	Price         int64     `json:"price"`
	OriginalPrice *int64    `json:"original_price,omitempty"`
	Currency      string    `json:"currency"`
	Images        []string  `json:"images"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ProductVariant represents a purchasable variant of a product. A nil Price
// means the variant sells at the product price.
type ProductVariant struct {
	ID         string            `json:"id"`
	ProductID  string            `json:"product_id"`
	SKU        string            `json:"sku"`
	Name       string            `json:"name"`
	Price      *int64            `json:"price,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Stock      int               `json:"stock"`
	IsActive   bool              `json:"is_active"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// EffectivePrice returns the variant price if set, otherwise the product price.
func (v *ProductVariant) EffectivePrice(product *Product) int64 {
	if v.Price != nil {
		return *v.Price
	}
	return product.Price
}

// ProductDetail is a product with its variants and live review summary.
type ProductDetail struct {
	Product  Product          `json:"product"`
	Variants []ProductVariant `json:"variants"`
	Rating   ReviewSummary    `json:"rating"`
}

// ProductFilter narrows catalog listings.
type ProductFilter struct {
	Category string
	Search   string
	Status   string
	MinPrice *int64
	MaxPrice *int64
}

// ValidStatuses returns the set of valid product statuses.
func ValidStatuses() []string {
	return []string{ProductStatusDraft, ProductStatusPublished, ProductStatusArchived}
}

// IsValidStatus checks whether the given status is a valid product status.
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

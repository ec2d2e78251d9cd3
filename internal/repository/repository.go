// Package repository defines the persistence interfaces consumed by the
// service layer. Implementations live in the postgres and redis subpackages.
package repository

import (
	"context"

	"github.com/vymjay/aprylo/internal/domain"
	"github.com/vymjay/aprylo/pkg/pagination"
)

// ProductRepository persists catalog products and variants.
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, filter domain.ProductFilter, params pagination.Params) ([]domain.Product, int, error)
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id string) error

	ListVariants(ctx context.Context, productID string) ([]domain.ProductVariant, error)
	GetVariant(ctx context.Context, variantID string) (*domain.ProductVariant, error)
	SetVariantStock(ctx context.Context, variantID string, stock int) error
	// DecrementStock atomically subtracts quantity from the variant's stock
	// and reports whether enough stock was available.
	DecrementStock(ctx context.Context, variantID string, quantity int) (bool, error)
	RestoreStock(ctx context.Context, variantID string, quantity int) error
}

// ReviewRepository persists reviews and their upvotes.
type ReviewRepository interface {
	Create(ctx context.Context, review *domain.Review) error
	GetByID(ctx context.Context, id string) (*domain.Review, error)
	// ListByProduct returns one keyset page ordered by (created_at DESC,
	// id DESC), with per-review upvote counts and the viewer's upvote
	// flag. The bool reports whether more rows follow the page.
	ListByProduct(ctx context.Context, productID, viewerID string, cursor pagination.Cursor, limit int) ([]domain.ReviewWithVotes, bool, error)
	Update(ctx context.Context, review *domain.Review) error
	// Delete removes a review. A missing id is not an error.
	Delete(ctx context.Context, id string) error
	Summary(ctx context.Context, productID string) (domain.ReviewSummary, error)

	// AddUpvote records an upvote, once per (review, user). Reports whether
	// a row was inserted.
	AddUpvote(ctx context.Context, reviewID, userID string) (bool, error)
	// RemoveUpvote deletes the user's upvote. Reports whether a row existed.
	RemoveUpvote(ctx context.Context, reviewID, userID string) (bool, error)
	CountUpvotes(ctx context.Context, reviewID string) (int, error)
}

// CartRepository stores per-user carts.
type CartRepository interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	Save(ctx context.Context, cart *domain.Cart) error
	// SaveIfVersion saves only when the stored cart still has the given
	// version, returning apperrors.ErrConflict otherwise.
	SaveIfVersion(ctx context.Context, cart *domain.Cart, expectedVersion int) error
	Delete(ctx context.Context, userID string) error
}

// OrderRepository persists order snapshots.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string, params pagination.Params) ([]domain.Order, int, error)
	UpdateStatus(ctx context.Context, id, status string) error
	UpdatePayment(ctx context.Context, id, paymentStatus, paymentRef string) error
}

// CheckoutRepository runs the transactional half of checkout: decrement stock
// for every line and insert the order snapshot, all or nothing.
type CheckoutRepository interface {
	// PlaceOrder returns apperrors.ErrConflict when any line has
	// insufficient stock; no partial decrement survives.
	PlaceOrder(ctx context.Context, order *domain.Order) error
}

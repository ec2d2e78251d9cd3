package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vymjay/aprylo/internal/domain"
	apperrors "github.com/vymjay/aprylo/pkg/errors"
)

func newCartService(repo *mockCartRepository, products *mockProductRepository, events *mockPublisher) *CartService {
	return NewCartService(repo, products, events, newTestLogger())
}

func publishedProduct() *domain.Product {
	return &domain.Product{
		ID:       "prod-1",
		Name:     "Canvas Tote",
		Status:   domain.ProductStatusPublished,
		Price:    2499,
		Currency: "USD",
		Images:   []string{"https://cdn.example.com/tote.jpg"},
	}
}

func activeVariant(stock int) *domain.ProductVariant {
	return &domain.ProductVariant{
		ID:        "var-1",
		ProductID: "prod-1",
		SKU:       "TOTE-NAT",
		Name:      "Natural",
		Stock:     stock,
		IsActive:  true,
	}
}

func storedCart(userID string, version int, items ...domain.CartItem) *domain.Cart {
	now := time.Now().UTC()
	return &domain.Cart{
		ID:        "cart-1",
		UserID:    userID,
		Items:     items,
		Currency:  "USD",
		Version:   version,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(cartTTL),
	}
}

func TestGetCart_MissingReturnsEmpty(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newCartService(repo, new(mockProductRepository), new(mockPublisher))
	ctx := context.Background()

	repo.On("Get", ctx, "user-1").Return(nil, apperrors.NotFound("cart", "user-1"))

	cart, err := svc.Get(ctx, "user-1")

	require.NoError(t, err)
	assert.Equal(t, "user-1", cart.UserID)
	assert.Empty(t, cart.Items)
	assert.Equal(t, 0, cart.Version)

	repo.AssertExpectations(t)
}

func TestAddItem_NewLineCapturesPrice(t *testing.T) {
	repo := new(mockCartRepository)
	products := new(mockProductRepository)
	events := new(mockPublisher)
	svc := newCartService(repo, products, events)
	ctx := context.Background()

	products.On("GetByID", ctx, "prod-1").Return(publishedProduct(), nil)
	products.On("GetVariant", ctx, "var-1").Return(activeVariant(10), nil)
	repo.On("Get", ctx, "user-1").Return(nil, apperrors.NotFound("cart", "user-1"))
	repo.On("SaveIfVersion", ctx, mock.AnythingOfType("*domain.Cart"), 0).Return(nil)
	events.On("PublishCartUpdated", ctx, mock.AnythingOfType("*domain.Cart")).Return(nil)

	cart, err := svc.AddItem(ctx, "user-1", "prod-1", "var-1", 2)

	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int64(2499), cart.Items[0].Price)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.Equal(t, "TOTE-NAT", cart.Items[0].SKU)
	assert.Equal(t, 1, cart.Version)

	repo.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestAddItem_MergesExistingLine(t *testing.T) {
	repo := new(mockCartRepository)
	products := new(mockProductRepository)
	events := new(mockPublisher)
	svc := newCartService(repo, products, events)
	ctx := context.Background()

	existing := storedCart("user-1", 3, domain.CartItem{
		ProductID: "prod-1", VariantID: "var-1", SKU: "TOTE-NAT", Price: 2499, Quantity: 2,
	})

	products.On("GetByID", ctx, "prod-1").Return(publishedProduct(), nil)
	products.On("GetVariant", ctx, "var-1").Return(activeVariant(10), nil)
	repo.On("Get", ctx, "user-1").Return(existing, nil)
	repo.On("SaveIfVersion", ctx, mock.AnythingOfType("*domain.Cart"), 3).Return(nil)
	events.On("PublishCartUpdated", ctx, mock.AnythingOfType("*domain.Cart")).Return(nil)

	cart, err := svc.AddItem(ctx, "user-1", "prod-1", "var-1", 3)

	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
	assert.Equal(t, 4, cart.Version)

	repo.AssertExpectations(t)
}

// Asking for more units than the variant has in stock fills the line up to
// the stock level instead of failing.
func TestAddItem_QuantityClampedToStock(t *testing.T) {
	repo := new(mockCartRepository)
	products := new(mockProductRepository)
	events := new(mockPublisher)
	svc := newCartService(repo, products, events)
	ctx := context.Background()

	products.On("GetByID", ctx, "prod-1").Return(publishedProduct(), nil)
	products.On("GetVariant", ctx, "var-1").Return(activeVariant(4), nil)
	repo.On("Get", ctx, "user-1").Return(nil, apperrors.NotFound("cart", "user-1"))
	repo.On("SaveIfVersion", ctx, mock.AnythingOfType("*domain.Cart"), 0).Return(nil)
	events.On("PublishCartUpdated", ctx, mock.AnythingOfType("*domain.Cart")).Return(nil)

	cart, err := svc.AddItem(ctx, "user-1", "prod-1", "var-1", 9)

	require.NoError(t, err)
	assert.Equal(t, 4, cart.Items[0].Quantity)
}

func TestAddItem_OutOfStock(t *testing.T) {
	repo := new(mockCartRepository)
	products := new(mockProductRepository)
	svc := newCartService(repo, products, new(mockPublisher))
	ctx := context.Background()

	products.On("GetByID", ctx, "prod-1").Return(publishedProduct(), nil)
	products.On("GetVariant", ctx, "var-1").Return(activeVariant(0), nil)

	_, err := svc.AddItem(ctx, "user-1", "prod-1", "var-1", 1)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
	repo.AssertNotCalled(t, "SaveIfVersion")
}

func TestAddItem_UnpublishedProduct(t *testing.T) {
	products := new(mockProductRepository)
	svc := newCartService(new(mockCartRepository), products, new(mockPublisher))
	ctx := context.Background()

	draft := publishedProduct()
	draft.Status = domain.ProductStatusDraft
	products.On("GetByID", ctx, "prod-1").Return(draft, nil)

	_, err := svc.AddItem(ctx, "user-1", "prod-1", "var-1", 1)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestAddItem_VariantMismatch(t *testing.T) {
	products := new(mockProductRepository)
	svc := newCartService(new(mockCartRepository), products, new(mockPublisher))
	ctx := context.Background()

	other := activeVariant(10)
	other.ProductID = "prod-2"
	products.On("GetByID", ctx, "prod-1").Return(publishedProduct(), nil)
	products.On("GetVariant", ctx, "var-1").Return(other, nil)

	_, err := svc.AddItem(ctx, "user-1", "prod-1", "var-1", 1)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

// A concurrent writer bumping the version makes the first save fail; the
// service reloads and retries against the new version.
func TestAddItem_RetriesOnVersionConflict(t *testing.T) {
	repo := new(mockCartRepository)
	products := new(mockProductRepository)
	events := new(mockPublisher)
	svc := newCartService(repo, products, events)
	ctx := context.Background()

	products.On("GetByID", ctx, "prod-1").Return(publishedProduct(), nil)
	products.On("GetVariant", ctx, "var-1").Return(activeVariant(10), nil)

	repo.On("Get", ctx, "user-1").Return(storedCart("user-1", 1), nil).Once()
	repo.On("SaveIfVersion", ctx, mock.AnythingOfType("*domain.Cart"), 1).
		Return(apperrors.Conflict("version mismatch")).Once()
	repo.On("Get", ctx, "user-1").Return(storedCart("user-1", 2), nil).Once()
	repo.On("SaveIfVersion", ctx, mock.AnythingOfType("*domain.Cart"), 2).Return(nil).Once()
	events.On("PublishCartUpdated", ctx, mock.AnythingOfType("*domain.Cart")).Return(nil)

	cart, err := svc.AddItem(ctx, "user-1", "prod-1", "var-1", 1)

	require.NoError(t, err)
	assert.Equal(t, 3, cart.Version)

	repo.AssertExpectations(t)
}

func TestAddItem_ConflictAfterRetriesExhausted(t *testing.T) {
	repo := new(mockCartRepository)
	products := new(mockProductRepository)
	svc := newCartService(repo, products, new(mockPublisher))
	ctx := context.Background()

	stored := storedCart("user-1", 1)
	products.On("GetByID", ctx, "prod-1").Return(publishedProduct(), nil)
	products.On("GetVariant", ctx, "var-1").Return(activeVariant(10), nil)
	repo.On("Get", ctx, "user-1").Return(stored, nil).Times(maxCartSaveRetries)
	repo.On("SaveIfVersion", ctx, mock.AnythingOfType("*domain.Cart"), 1).
		Return(apperrors.Conflict("version mismatch")).Times(maxCartSaveRetries)

	_, err := svc.AddItem(ctx, "user-1", "prod-1", "var-1", 1)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))

	// Every attempt patched a copy, so the repository-owned cart is intact.
	assert.Equal(t, 1, stored.Version)
	assert.Empty(t, stored.Items)

	repo.AssertExpectations(t)
}

func TestUpdateItemQuantity_ZeroRemovesLine(t *testing.T) {
	repo := new(mockCartRepository)
	products := new(mockProductRepository)
	events := new(mockPublisher)
	svc := newCartService(repo, products, events)
	ctx := context.Background()

	existing := storedCart("user-1", 1, domain.CartItem{
		ProductID: "prod-1", VariantID: "var-1", Quantity: 2, Price: 2499,
	})
	repo.On("Get", ctx, "user-1").Return(existing, nil)
	repo.On("SaveIfVersion", ctx, mock.AnythingOfType("*domain.Cart"), 1).Return(nil)
	events.On("PublishCartUpdated", ctx, mock.AnythingOfType("*domain.Cart")).Return(nil)

	cart, err := svc.UpdateItemQuantity(ctx, "user-1", "prod-1", "var-1", 0)

	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	products.AssertNotCalled(t, "GetVariant")
}

func TestUpdateItemQuantity_LineNotFound(t *testing.T) {
	repo := new(mockCartRepository)
	products := new(mockProductRepository)
	svc := newCartService(repo, products, new(mockPublisher))
	ctx := context.Background()

	products.On("GetVariant", ctx, "var-9").Return(activeVariant(10), nil)
	repo.On("Get", ctx, "user-1").Return(storedCart("user-1", 1), nil)

	_, err := svc.UpdateItemQuantity(ctx, "user-1", "prod-1", "var-9", 2)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	repo.AssertNotCalled(t, "SaveIfVersion")
}

func TestClearCart(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newCartService(repo, new(mockProductRepository), new(mockPublisher))
	ctx := context.Background()

	repo.On("Delete", ctx, "user-1").Return(nil)

	require.NoError(t, svc.Clear(ctx, "user-1"))
	repo.AssertExpectations(t)
}

func TestClearCart_AlreadyEmpty(t *testing.T) {
	repo := new(mockCartRepository)
	svc := newCartService(repo, new(mockProductRepository), new(mockPublisher))
	ctx := context.Background()

	repo.On("Delete", ctx, "user-1").Return(apperrors.NotFound("cart", "user-1"))

	require.NoError(t, svc.Clear(ctx, "user-1"))
}

// Decrementing a line at quantity 1 keeps it at 1. The line only disappears
// through an explicit remove or a zero-quantity update.
func TestDecrementItem_FloorsAtOne(t *testing.T) {
	repo := new(mockCartRepository)
	events := new(mockPublisher)
	svc := newCartService(repo, new(mockProductRepository), events)
	ctx := context.Background()

	existing := storedCart("user-1", 1, domain.CartItem{
		ProductID: "prod-1", VariantID: "var-1", Quantity: 1, Price: 2499,
	})
	repo.On("Get", ctx, "user-1").Return(existing, nil)
	repo.On("SaveIfVersion", ctx, mock.AnythingOfType("*domain.Cart"), 1).Return(nil)
	events.On("PublishCartUpdated", ctx, mock.AnythingOfType("*domain.Cart")).Return(nil)

	cart, err := svc.DecrementItem(ctx, "user-1", "prod-1", "var-1")

	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 1, cart.Items[0].Quantity)
}

func TestDecrementItem_LowersQuantity(t *testing.T) {
	repo := new(mockCartRepository)
	events := new(mockPublisher)
	svc := newCartService(repo, new(mockProductRepository), events)
	ctx := context.Background()

	existing := storedCart("user-1", 1, domain.CartItem{
		ProductID: "prod-1", VariantID: "var-1", Quantity: 3, Price: 2499,
	})
	repo.On("Get", ctx, "user-1").Return(existing, nil)
	repo.On("SaveIfVersion", ctx, mock.AnythingOfType("*domain.Cart"), 1).Return(nil)
	events.On("PublishCartUpdated", ctx, mock.AnythingOfType("*domain.Cart")).Return(nil)

	cart, err := svc.DecrementItem(ctx, "user-1", "prod-1", "var-1")

	require.NoError(t, err)
	assert.Equal(t, 2, cart.Items[0].Quantity)
}

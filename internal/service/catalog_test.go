package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vymjay/aprylo/internal/domain"
	apperrors "github.com/vymjay/aprylo/pkg/errors"
	"github.com/vymjay/aprylo/pkg/pagination"
)

func newCatalogService(t *testing.T, products *mockProductRepository, reviews *mockReviewRepository) *CatalogService {
	t.Helper()
	return NewCatalogService(products, reviews, newDetailCache(t), newTestLogger())
}

func TestListProducts(t *testing.T) {
	products := new(mockProductRepository)
	svc := newCatalogService(t, products, new(mockReviewRepository))
	ctx := context.Background()

	filter := domain.ProductFilter{Status: domain.ProductStatusPublished, Category: "bags"}
	params := pagination.Params{Page: 2, PerPage: 10, Offset: 10}
	products.On("List", ctx, filter, params).
		Return([]domain.Product{{ID: "prod-1"}, {ID: "prod-2"}}, 25, nil)

	result, err := svc.List(ctx, filter, params)

	require.NoError(t, err)
	assert.Len(t, result.Data, 2)
	assert.Equal(t, 25, result.TotalCount)
	assert.Equal(t, 3, result.TotalPages)
	assert.True(t, result.HasNext)
	assert.True(t, result.HasPrev)
}

// The detail page carries the rating aggregate computed from review rows at
// load time, so a product with new reviews shows the new average once the
// cached entry goes stale.
func TestGetProduct_DetailWithLiveRating(t *testing.T) {
	products := new(mockProductRepository)
	reviews := new(mockReviewRepository)
	svc := newCatalogService(t, products, reviews)
	ctx := context.Background()

	products.On("GetByID", ctx, "prod-1").Return(publishedProduct(), nil).Once()
	products.On("ListVariants", ctx, "prod-1").
		Return([]domain.ProductVariant{*activeVariant(10)}, nil).Once()
	reviews.On("Summary", ctx, "prod-1").
		Return(domain.ReviewSummary{AverageRating: 4.2, TotalCount: 17}, nil).Once()

	detail, err := svc.Get(ctx, "prod-1")

	require.NoError(t, err)
	assert.Equal(t, "prod-1", detail.Product.ID)
	require.Len(t, detail.Variants, 1)
	assert.InDelta(t, 4.2, detail.Rating.AverageRating, 0.001)
	assert.Equal(t, 17, detail.Rating.TotalCount)

	// Second read hits the cache; the Once expectations above would fail
	// if the repositories were touched again.
	_, err = svc.Get(ctx, "prod-1")
	require.NoError(t, err)

	products.AssertExpectations(t)
	reviews.AssertExpectations(t)
}

func TestGetProduct_NotFound(t *testing.T) {
	products := new(mockProductRepository)
	svc := newCatalogService(t, products, new(mockReviewRepository))
	ctx := context.Background()

	products.On("GetByID", ctx, "nope").Return(nil, apperrors.NotFound("product", "nope"))

	_, err := svc.Get(ctx, "nope")

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestCreateProduct(t *testing.T) {
	products := new(mockProductRepository)
	svc := newCatalogService(t, products, new(mockReviewRepository))
	ctx := context.Background()

	products.On("Create", ctx, mock.AnythingOfType("*domain.Product")).Return(nil)

	product, err := svc.Create(ctx, &CreateProductInput{
		Name:     "Canvas Tote — Large",
		Category: "bags",
		Status:   domain.ProductStatusPublished,
		Price:    2499,
	})

	require.NoError(t, err)
	assert.NotEmpty(t, product.ID)
	assert.Equal(t, "canvas-tote-large", product.Slug)
	assert.Equal(t, "USD", product.Currency)
}

func TestCreateProduct_Validation(t *testing.T) {
	svc := newCatalogService(t, new(mockProductRepository), new(mockReviewRepository))
	ctx := context.Background()

	_, err := svc.Create(ctx, &CreateProductInput{Price: 100})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	_, err = svc.Create(ctx, &CreateProductInput{Name: "X", Price: -1})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	_, err = svc.Create(ctx, &CreateProductInput{Name: "X", Price: 1, Status: "bogus"})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestUpdateProduct_InvalidatesCachedDetail(t *testing.T) {
	products := new(mockProductRepository)
	reviews := new(mockReviewRepository)
	svc := newCatalogService(t, products, reviews)
	ctx := context.Background()

	products.On("GetByID", ctx, "prod-1").Return(publishedProduct(), nil)
	products.On("ListVariants", ctx, "prod-1").Return([]domain.ProductVariant{}, nil)
	reviews.On("Summary", ctx, "prod-1").Return(domain.ReviewSummary{}, nil)

	_, err := svc.Get(ctx, "prod-1")
	require.NoError(t, err)

	products.On("Update", ctx, mock.AnythingOfType("*domain.Product")).Return(nil)

	updated, err := svc.Update(ctx, &UpdateProductInput{
		ID:     "prod-1",
		Name:   "Canvas Tote v2",
		Status: domain.ProductStatusPublished,
		Price:  2699,
	})

	require.NoError(t, err)
	assert.Equal(t, "canvas-tote-v2", updated.Slug)
	assert.Equal(t, int64(2699), updated.Price)
}

func TestDeleteProduct(t *testing.T) {
	products := new(mockProductRepository)
	svc := newCatalogService(t, products, new(mockReviewRepository))
	ctx := context.Background()

	products.On("Delete", ctx, "prod-1").Return(nil)

	require.NoError(t, svc.Delete(ctx, "prod-1"))
	products.AssertExpectations(t)
}

func TestSetVariantStock(t *testing.T) {
	products := new(mockProductRepository)
	svc := newCatalogService(t, products, new(mockReviewRepository))
	ctx := context.Background()

	products.On("GetVariant", ctx, "var-1").Return(activeVariant(3), nil)
	products.On("SetVariantStock", ctx, "var-1", 25).Return(nil)

	variant, err := svc.SetVariantStock(ctx, "prod-1", "var-1", 25)

	require.NoError(t, err)
	assert.Equal(t, 25, variant.Stock)
}

func TestSetVariantStock_WrongProduct(t *testing.T) {
	products := new(mockProductRepository)
	svc := newCatalogService(t, products, new(mockReviewRepository))
	ctx := context.Background()

	products.On("GetVariant", ctx, "var-1").Return(activeVariant(3), nil)

	_, err := svc.SetVariantStock(ctx, "prod-other", "var-1", 25)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	products.AssertNotCalled(t, "SetVariantStock")
}

func TestSetVariantStock_Negative(t *testing.T) {
	products := new(mockProductRepository)
	svc := newCatalogService(t, products, new(mockReviewRepository))

	_, err := svc.SetVariantStock(context.Background(), "prod-1", "var-1", -1)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	products.AssertNotCalled(t, "SetVariantStock")
}

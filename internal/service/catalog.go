package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vymjay/aprylo/internal/domain"
	"github.com/vymjay/aprylo/internal/repository"
	"github.com/vymjay/aprylo/pkg/cache"
	apperrors "github.com/vymjay/aprylo/pkg/errors"
	"github.com/vymjay/aprylo/pkg/pagination"
	"github.com/vymjay/aprylo/pkg/slug"
)

// CreateProductInput holds the parameters for creating a catalog product.
type CreateProductInput struct {
	Name          string
	Description   string
	Category      string
	Status        string
	Price         int64
	OriginalPrice *int64
	Currency      string
	Images        []string
}

// UpdateProductInput holds the parameters for editing a catalog product.
type UpdateProductInput struct {
	ID            string
	Name          string
	Description   string
	Category      string
	Status        string
	Price         int64
	OriginalPrice *int64
	Images        []string
}

// CatalogService serves product listings and detail pages and carries the
// admin mutations. Detail reads go through the query cache keyed
// `product:{id}`; admin writes invalidate that prefix.
type CatalogService struct {
	products repository.ProductRepository
	reviews  repository.ReviewRepository
	cache    *cache.Cache[*domain.ProductDetail]
	logger   *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(products repository.ProductRepository, reviews repository.ReviewRepository, detailCache *cache.Cache[*domain.ProductDetail], logger *slog.Logger) *CatalogService {
	return &CatalogService{
		products: products,
		reviews:  reviews,
		cache:    detailCache,
		logger:   logger,
	}
}

func productCacheKey(id string) string { return "product:" + id }

// List returns one page of the catalog. Unauthenticated browsing only sees
// published products; the handler passes the filter accordingly.
func (s *CatalogService) List(ctx context.Context, filter domain.ProductFilter, params pagination.Params) (*pagination.Result[domain.Product], error) {
	products, total, err := s.products.List(ctx, filter, params)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	result := pagination.NewResult(products, total, params)
	return &result, nil
}

// Get returns a product with its variants and live rating summary. The rating
// is computed from review rows on every load, never stored on the product, so
// it cannot drift from the reviews.
func (s *CatalogService) Get(ctx context.Context, productID string) (*domain.ProductDetail, error) {
	return s.cache.GetOrLoad(ctx, productCacheKey(productID), func(ctx context.Context) (*domain.ProductDetail, error) {
		return s.loadDetail(ctx, productID)
	})
}

func (s *CatalogService) loadDetail(ctx context.Context, productID string) (*domain.ProductDetail, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	variants, err := s.products.ListVariants(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}

	summary, err := s.reviews.Summary(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get review summary: %w", err)
	}

	return &domain.ProductDetail{
		Product:  *product,
		Variants: variants,
		Rating:   summary,
	}, nil
}

// Create adds a product to the catalog. The slug is derived from the name; a
// duplicate slug surfaces as a 409.
func (s *CatalogService) Create(ctx context.Context, input *CreateProductInput) (*domain.Product, error) {
	if input.Name == "" {
		return nil, apperrors.InvalidInput("name is required")
	}
	if input.Price < 0 {
		return nil, apperrors.InvalidInput("price must not be negative")
	}
	status := input.Status
	if status == "" {
		status = domain.ProductStatusDraft
	}
	if !domain.IsValidStatus(status) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid status %q", status))
	}
	currency := input.Currency
	if currency == "" {
		currency = "USD"
	}

	now := time.Now().UTC()
	product := &domain.Product{
		ID:            uuid.New().String(),
		Name:          input.Name,
		Slug:          slug.Generate(input.Name),
		Description:   input.Description,
		Category:      input.Category,
		Status:        status,
		Price:         input.Price,
		OriginalPrice: input.OriginalPrice,
		Currency:      currency,
		Images:        input.Images,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.String("slug", product.Slug),
	)

	return product, nil
}

// Update edits a product's fields. The slug follows the name.
func (s *CatalogService) Update(ctx context.Context, input *UpdateProductInput) (*domain.Product, error) {
	if input.Name == "" {
		return nil, apperrors.InvalidInput("name is required")
	}
	if input.Price < 0 {
		return nil, apperrors.InvalidInput("price must not be negative")
	}
	if !domain.IsValidStatus(input.Status) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid status %q", input.Status))
	}

	product, err := s.products.GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	product.Name = input.Name
	product.Slug = slug.Generate(input.Name)
	product.Description = input.Description
	product.Category = input.Category
	product.Status = input.Status
	product.Price = input.Price
	product.OriginalPrice = input.OriginalPrice
	product.Images = input.Images
	product.UpdatedAt = time.Now().UTC()

	if err := s.products.Update(ctx, product); err != nil {
		return nil, err
	}

	s.cache.Invalidate(productCacheKey(product.ID))

	return product, nil
}

// Delete removes a product and, via the schema's cascades, its variants and
// reviews.
func (s *CatalogService) Delete(ctx context.Context, productID string) error {
	if err := s.products.Delete(ctx, productID); err != nil {
		return err
	}

	s.cache.Delete(productCacheKey(productID))

	s.logger.InfoContext(ctx, "product deleted", slog.String("product_id", productID))
	return nil
}

// SetVariantStock overwrites a variant's stock level. The variant must
// belong to the named product; a mismatched pair is not found.
func (s *CatalogService) SetVariantStock(ctx context.Context, productID, variantID string, stock int) (*domain.ProductVariant, error) {
	if stock < 0 {
		return nil, apperrors.InvalidInput("stock must not be negative")
	}

	variant, err := s.products.GetVariant(ctx, variantID)
	if err != nil {
		return nil, err
	}
	if variant.ProductID != productID {
		return nil, apperrors.NotFound("variant", variantID)
	}

	if err := s.products.SetVariantStock(ctx, variantID, stock); err != nil {
		return nil, err
	}
	variant.Stock = stock
	variant.UpdatedAt = time.Now().UTC()

	s.cache.Invalidate(productCacheKey(productID))

	return variant, nil
}


package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vymjay/aprylo/internal/domain"
	"github.com/vymjay/aprylo/internal/event"
	"github.com/vymjay/aprylo/internal/repository"
	apperrors "github.com/vymjay/aprylo/pkg/errors"
)

const (
	// cartTTL bounds how long an untouched cart survives in Redis.
	cartTTL = 30 * 24 * time.Hour

	// maxCartSaveRetries bounds the reload-and-retry loop when a concurrent
	// save bumps the cart version under us.
	maxCartSaveRetries = 3

	maxCartLineQuantity = 99
)

// CartService manages per-user carts. Saves are guarded by the cart version;
// a concurrent writer triggers a reload and a bounded retry before the
// conflict is surfaced to the caller.
type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	events   event.Publisher
	logger   *slog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(carts repository.CartRepository, products repository.ProductRepository, events event.Publisher, logger *slog.Logger) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		events:   events,
		logger:   logger,
	}
}

// Get returns the user's cart. A user with no stored cart gets an empty one
// rather than a 404.
func (s *CartService) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return s.emptyCart(userID), nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

// AddItem puts quantity units of a variant into the cart, merging with an
// existing line for the same variant. The line price is captured from the
// catalog at add time. Quantity is clamped to the variant's current stock;
// checkout re-verifies stock authoritatively.
func (s *CartService) AddItem(ctx context.Context, userID, productID, variantID string, quantity int) (*domain.Cart, error) {
	if quantity <= 0 {
		return nil, apperrors.InvalidInput("quantity must be positive")
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.Status != domain.ProductStatusPublished {
		return nil, apperrors.InvalidInput("product is not available")
	}

	variant, err := s.products.GetVariant(ctx, variantID)
	if err != nil {
		return nil, err
	}
	if variant.ProductID != productID {
		return nil, apperrors.InvalidInput("variant does not belong to product")
	}
	if !variant.IsActive {
		return nil, apperrors.InvalidInput("variant is not available")
	}
	if variant.Stock <= 0 {
		return nil, apperrors.Conflict(fmt.Sprintf("variant %s is out of stock", variant.SKU))
	}

	return s.mutate(ctx, userID, func(cart *domain.Cart) error {
		idx := cart.FindItemIndex(productID, variantID)
		if idx >= 0 {
			cart.Items[idx].Quantity = clampQuantity(cart.Items[idx].Quantity+quantity, variant.Stock)
			return nil
		}

		imageURL := ""
		if len(product.Images) > 0 {
			imageURL = product.Images[0]
		}
		cart.Items = append(cart.Items, domain.CartItem{
			ProductID: productID,
			VariantID: variantID,
			Name:      product.Name,
			SKU:       variant.SKU,
			Price:     variant.EffectivePrice(product),
			Quantity:  clampQuantity(quantity, variant.Stock),
			ImageURL:  imageURL,
		})
		return nil
	})
}

// UpdateItemQuantity sets a line's quantity. Zero removes the line.
func (s *CartService) UpdateItemQuantity(ctx context.Context, userID, productID, variantID string, quantity int) (*domain.Cart, error) {
	if quantity < 0 {
		return nil, apperrors.InvalidInput("quantity must not be negative")
	}
	if quantity == 0 {
		return s.RemoveItem(ctx, userID, productID, variantID)
	}

	variant, err := s.products.GetVariant(ctx, variantID)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, userID, func(cart *domain.Cart) error {
		idx := cart.FindItemIndex(productID, variantID)
		if idx < 0 {
			return apperrors.NotFound("cart item", variantID)
		}
		cart.Items[idx].Quantity = clampQuantity(quantity, variant.Stock)
		return nil
	})
}

// DecrementItem lowers a line's quantity by one, flooring at 1. Hitting the
// floor is not an error and does not remove the line.
func (s *CartService) DecrementItem(ctx context.Context, userID, productID, variantID string) (*domain.Cart, error) {
	return s.mutate(ctx, userID, func(cart *domain.Cart) error {
		idx := cart.FindItemIndex(productID, variantID)
		if idx < 0 {
			return apperrors.NotFound("cart item", variantID)
		}
		if cart.Items[idx].Quantity > 1 {
			cart.Items[idx].Quantity--
		}
		return nil
	})
}

// RemoveItem deletes a line from the cart.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID, variantID string) (*domain.Cart, error) {
	return s.mutate(ctx, userID, func(cart *domain.Cart) error {
		idx := cart.FindItemIndex(productID, variantID)
		if idx < 0 {
			return apperrors.NotFound("cart item", variantID)
		}
		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
		return nil
	})
}

// Clear empties the user's cart.
func (s *CartService) Clear(ctx context.Context, userID string) error {
	if err := s.carts.Delete(ctx, userID); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// mutate loads the cart, applies fn, and saves it guarded by the loaded
// version. A version conflict reloads and retries up to maxCartSaveRetries
// times before surfacing the 409.
func (s *CartService) mutate(ctx context.Context, userID string, fn func(*domain.Cart) error) (*domain.Cart, error) {
	for attempt := 0; attempt < maxCartSaveRetries; attempt++ {
		loaded, err := s.carts.Get(ctx, userID)
		if err != nil {
			if !errors.Is(err, apperrors.ErrNotFound) {
				return nil, fmt.Errorf("get cart: %w", err)
			}
			loaded = s.emptyCart(userID)
		}

		// Patch a copy so the loaded cart stays pristine for the next
		// attempt if the save loses the version race.
		cart := loaded.Clone()
		expectedVersion := cart.Version
		if err := fn(cart); err != nil {
			return nil, err
		}

		now := time.Now().UTC()
		cart.Version = expectedVersion + 1
		cart.UpdatedAt = now
		cart.ExpiresAt = now.Add(cartTTL)

		err = s.carts.SaveIfVersion(ctx, cart, expectedVersion)
		if err == nil {
			s.publishUpdated(ctx, cart)
			return cart, nil
		}
		if !errors.Is(err, apperrors.ErrConflict) {
			return nil, fmt.Errorf("save cart: %w", err)
		}
	}

	return nil, apperrors.Conflict("cart was modified concurrently, retry the request")
}

func (s *CartService) publishUpdated(ctx context.Context, cart *domain.Cart) {
	if err := s.events.PublishCartUpdated(ctx, cart); err != nil {
		s.logger.WarnContext(ctx, "failed to publish cart.updated",
			slog.String("user_id", cart.UserID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *CartService) emptyCart(userID string) *domain.Cart {
	now := time.Now().UTC()
	return &domain.Cart{
		ID:        uuid.New().String(),
		UserID:    userID,
		Items:     []domain.CartItem{},
		Currency:  "USD",
		Version:   0,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(cartTTL),
	}
}

func clampQuantity(quantity, stock int) int {
	if quantity > stock {
		quantity = stock
	}
	if quantity > maxCartLineQuantity {
		quantity = maxCartLineQuantity
	}
	return quantity
}

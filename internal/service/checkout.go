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
	"github.com/vymjay/aprylo/internal/payment"
	"github.com/vymjay/aprylo/internal/repository"
	"github.com/vymjay/aprylo/pkg/cache"
	apperrors "github.com/vymjay/aprylo/pkg/errors"
)

// lowStockThreshold triggers a product.low_stock event when a variant's stock
// drops to or below it after checkout.
const lowStockThreshold = 5

// CheckoutService turns a cart into an order. Stock is decremented and the
// order snapshot inserted in one database transaction; the charge happens
// after commit, and a declined charge compensates by restoring stock and
// marking the order failed.
type CheckoutService struct {
	checkout repository.CheckoutRepository
	orders   repository.OrderRepository
	carts    repository.CartRepository
	products repository.ProductRepository
	gateway  payment.Gateway
	cache    *cache.Cache[*domain.ProductDetail]
	events   event.Publisher
	logger   *slog.Logger
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(
	checkout repository.CheckoutRepository,
	orders repository.OrderRepository,
	carts repository.CartRepository,
	products repository.ProductRepository,
	gateway payment.Gateway,
	detailCache *cache.Cache[*domain.ProductDetail],
	events event.Publisher,
	logger *slog.Logger,
) *CheckoutService {
	return &CheckoutService{
		checkout: checkout,
		orders:   orders,
		carts:    carts,
		products: products,
		gateway:  gateway,
		cache:    detailCache,
		events:   events,
		logger:   logger,
	}
}

// Checkout places an order from the user's cart. Insufficient stock on any
// line fails the whole attempt with a 409 and leaves every stock level
// untouched. A declined charge returns a 422 with the stock already restored.
func (s *CheckoutService) Checkout(ctx context.Context, userID string) (*domain.Order, error) {
	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.InvalidInput("cart is empty")
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if len(cart.Items) == 0 {
		return nil, apperrors.InvalidInput("cart is empty")
	}

	order := buildOrder(userID, cart)

	if err := s.checkout.PlaceOrder(ctx, order); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", order.ID),
		slog.String("user_id", userID),
		slog.Int64("total_amount", order.TotalAmount),
	)

	result, err := s.gateway.Charge(ctx, payment.ChargeRequest{
		OrderID:  order.ID,
		UserID:   userID,
		Amount:   order.TotalAmount,
		Currency: order.Currency,
	})
	if err != nil {
		s.compensate(ctx, order)
		if errors.Is(err, apperrors.ErrPaymentFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("charge order %s: %w", order.ID, err)
	}

	if err := s.orders.UpdatePayment(ctx, order.ID, domain.PaymentStatusPaid, result.Reference); err != nil {
		return nil, fmt.Errorf("record payment for order %s: %w", order.ID, err)
	}
	order.PaymentStatus = domain.PaymentStatusPaid
	order.PaymentRef = result.Reference

	if err := s.orders.UpdateStatus(ctx, order.ID, domain.OrderStatusProcessing); err != nil {
		return nil, fmt.Errorf("update status for order %s: %w", order.ID, err)
	}
	order.Status = domain.OrderStatusProcessing

	if err := s.carts.Delete(ctx, userID); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		s.logger.WarnContext(ctx, "failed to clear cart after checkout",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	s.invalidateProducts(order)

	if err := s.events.PublishOrderCreated(ctx, order); err != nil {
		s.logger.WarnContext(ctx, "failed to publish order.created",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	s.checkLowStock(ctx, order)

	return order, nil
}

// compensate undoes the stock decrement after a failed charge and marks the
// order failed. Each step is independent so one failure does not stop the
// rest; leftovers are logged for manual follow-up.
func (s *CheckoutService) compensate(ctx context.Context, order *domain.Order) {
	for _, item := range order.Items {
		if err := s.products.RestoreStock(ctx, item.VariantID, item.Quantity); err != nil {
			s.logger.ErrorContext(ctx, "failed to restore stock during compensation",
				slog.String("order_id", order.ID),
				slog.String("variant_id", item.VariantID),
				slog.Int("quantity", item.Quantity),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.orders.UpdatePayment(ctx, order.ID, domain.PaymentStatusFailed, ""); err != nil {
		s.logger.ErrorContext(ctx, "failed to mark payment failed",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}
	if err := s.orders.UpdateStatus(ctx, order.ID, domain.OrderStatusFailed); err != nil {
		s.logger.ErrorContext(ctx, "failed to mark order failed",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	s.invalidateProducts(order)
}

// invalidateProducts marks the cached detail pages of every ordered product
// stale so the next read sees the new stock levels.
func (s *CheckoutService) invalidateProducts(order *domain.Order) {
	seen := make(map[string]struct{}, len(order.Items))
	for _, item := range order.Items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		s.cache.Invalidate(productCacheKey(item.ProductID))
	}
}

func (s *CheckoutService) checkLowStock(ctx context.Context, order *domain.Order) {
	for _, item := range order.Items {
		variant, err := s.products.GetVariant(ctx, item.VariantID)
		if err != nil {
			s.logger.WarnContext(ctx, "failed to read variant for low stock check",
				slog.String("variant_id", item.VariantID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if variant.Stock > lowStockThreshold {
			continue
		}
		if err := s.events.PublishProductLowStock(ctx, variant); err != nil {
			s.logger.WarnContext(ctx, "failed to publish product.low_stock",
				slog.String("variant_id", variant.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

func buildOrder(userID string, cart *domain.Cart) *domain.Order {
	now := time.Now().UTC()
	orderID := uuid.New().String()

	items := make([]domain.OrderItem, 0, len(cart.Items))
	for _, line := range cart.Items {
		items = append(items, domain.OrderItem{
			ID:        uuid.New().String(),
			OrderID:   orderID,
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			Name:      line.Name,
			SKU:       line.SKU,
			Price:     line.Price,
			Quantity:  line.Quantity,
		})
	}

	return &domain.Order{
		ID:            orderID,
		UserID:        userID,
		Status:        domain.OrderStatusPending,
		PaymentStatus: domain.PaymentStatusPending,
		Items:         items,
		TotalAmount:   cart.TotalAmount(),
		Currency:      cart.Currency,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

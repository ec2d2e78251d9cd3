package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vymjay/aprylo/internal/domain"
	"github.com/vymjay/aprylo/internal/event"
	"github.com/vymjay/aprylo/internal/repository"
	apperrors "github.com/vymjay/aprylo/pkg/errors"
	"github.com/vymjay/aprylo/pkg/pagination"
)

// OrderService serves order history and the admin status workflow.
type OrderService struct {
	orders repository.OrderRepository
	events event.Publisher
	logger *slog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(orders repository.OrderRepository, events event.Publisher, logger *slog.Logger) *OrderService {
	return &OrderService{
		orders: orders,
		events: events,
		logger: logger,
	}
}

// ListByUser returns one page of the user's order history, newest first.
func (s *OrderService) ListByUser(ctx context.Context, userID string, params pagination.Params) (*pagination.Result[domain.Order], error) {
	orders, total, err := s.orders.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	result := pagination.NewResult(orders, total, params)
	return &result, nil
}

// Get returns one order. Only the owner or an admin may read it.
func (s *OrderService) Get(ctx context.Context, orderID, userID string, isAdmin bool) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID && !isAdmin {
		return nil, apperrors.NotOwner("order")
	}
	return order, nil
}

// UpdateStatus moves an order through its status machine. An illegal
// transition is a 409, not a validation error, because it usually means two
// operators raced.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID, status string) (*domain.Order, error) {
	if !domain.IsValidOrderStatus(status) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid order status %q", status))
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !domain.CanTransition(order.Status, status) {
		return nil, apperrors.Conflict(fmt.Sprintf("order cannot move from %s to %s", order.Status, status))
	}

	if err := s.orders.UpdateStatus(ctx, orderID, status); err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	from := order.Status
	order.Status = status

	if err := s.events.PublishOrderStatusChanged(ctx, orderID, from, status); err != nil {
		s.logger.WarnContext(ctx, "failed to publish order.status_changed",
			slog.String("order_id", orderID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order status changed",
		slog.String("order_id", orderID),
		slog.String("from", from),
		slog.String("to", status),
	)

	return order, nil
}

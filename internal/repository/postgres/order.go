package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vymjay/aprylo/internal/domain"
	"github.com/vymjay/aprylo/pkg/database"
	apperrors "github.com/vymjay/aprylo/pkg/errors"
	"github.com/vymjay/aprylo/pkg/pagination"
)

// OrderRepository implements order persistence using PostgreSQL.
type OrderRepository struct {
	db database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(db database.DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts an order and its items.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	return insertOrder(ctx, r.db, order)
}

// insertOrder writes the order header and line rows with the given executor,
// which may be a pool or an open transaction.
func insertOrder(ctx context.Context, db database.DBTX, order *domain.Order) error {
	query := `
		INSERT INTO orders (id, user_id, status, payment_status, payment_ref, total_amount, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := db.Exec(ctx, query,
		order.ID,
		order.UserID,
		order.Status,
		order.PaymentStatus,
		order.PaymentRef,
		order.TotalAmount,
		order.Currency,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, product_id, variant_id, name, sku, price, quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	for _, item := range order.Items {
		if _, err := db.Exec(ctx, itemQuery,
			item.ID,
			item.OrderID,
			item.ProductID,
			item.VariantID,
			item.Name,
			item.SKU,
			item.Price,
			item.Quantity,
		); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	return nil
}

// GetByID returns an order with its items.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `
		SELECT id, user_id, status, payment_status, payment_ref, total_amount, currency, created_at, updated_at
		FROM orders
		WHERE id = $1`

	var o domain.Order
	err := r.db.QueryRow(ctx, query, id).Scan(
		&o.ID,
		&o.UserID,
		&o.Status,
		&o.PaymentStatus,
		&o.PaymentRef,
		&o.TotalAmount,
		&o.Currency,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", id)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	items, err := r.listItems(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Items = items

	return &o, nil
}

func (r *OrderRepository) listItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, variant_id, name, sku, price, quantity
		FROM order_items
		WHERE order_id = $1
		ORDER BY name`

	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(
			&it.ID,
			&it.OrderID,
			&it.ProductID,
			&it.VariantID,
			&it.Name,
			&it.SKU,
			&it.Price,
			&it.Quantity,
		); err != nil {
			return nil, fmt.Errorf("scan order item row: %w", err)
		}
		items = append(items, it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order item rows: %w", err)
	}

	if items == nil {
		items = []domain.OrderItem{}
	}

	return items, nil
}

// ListByUser returns the user's orders, newest first, with the total count.
// Items are not loaded for list views.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string, params pagination.Params) ([]domain.Order, int, error) {
	query := `
		SELECT id, user_id, status, payment_status, payment_ref, total_amount, currency, created_at, updated_at,
		       count(*) OVER() AS total_count
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, userID, params.PerPage, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var (
		orders     []domain.Order
		totalCount int
	)

	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(
			&o.ID,
			&o.UserID,
			&o.Status,
			&o.PaymentStatus,
			&o.PaymentRef,
			&o.TotalAmount,
			&o.Currency,
			&o.CreatedAt,
			&o.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}

	if orders == nil {
		orders = []domain.Order{}
	}

	return orders, totalCount, nil
}

// UpdateStatus sets an order's status.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id, status string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("order", id)
	}
	return nil
}

// UpdatePayment sets an order's payment status and gateway reference.
func (r *OrderRepository) UpdatePayment(ctx context.Context, id, paymentStatus, paymentRef string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE orders SET payment_status = $2, payment_ref = $3, updated_at = NOW() WHERE id = $1`,
		id, paymentStatus, paymentRef,
	)
	if err != nil {
		return fmt.Errorf("update order payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("order", id)
	}
	return nil
}

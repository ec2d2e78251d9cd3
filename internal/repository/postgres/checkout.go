package postgres

import (
	"context"
	"fmt"

	"github.com/vymjay/aprylo/internal/domain"
	"github.com/vymjay/aprylo/pkg/database"
	apperrors "github.com/vymjay/aprylo/pkg/errors"
)

// CheckoutRepository runs the transactional half of checkout.
type CheckoutRepository struct {
	db database.DBTX
}

// NewCheckoutRepository creates a new PostgreSQL-backed checkout repository.
func NewCheckoutRepository(db database.DBTX) *CheckoutRepository {
	return &CheckoutRepository{db: db}
}

// PlaceOrder decrements stock for every order line and inserts the order
// snapshot in one transaction. Any line with insufficient stock rolls the
// whole transaction back and returns a conflict, so no partial decrement
// ever becomes visible.
func (r *CheckoutRepository) PlaceOrder(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin checkout tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, item := range order.Items {
		tag, err := tx.Exec(ctx,
			`UPDATE product_variants
			 SET stock = stock - $2, updated_at = NOW()
			 WHERE id = $1 AND stock >= $2`,
			item.VariantID, item.Quantity,
		)
		if err != nil {
			return fmt.Errorf("decrement stock for %s: %w", item.VariantID, err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.Conflict(fmt.Sprintf("insufficient stock for %s", item.SKU))
		}
	}

	if err := insertOrder(ctx, tx, order); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit checkout tx: %w", err)
	}

	return nil
}

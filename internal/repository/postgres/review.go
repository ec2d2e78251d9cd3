package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"

	"github.com/vymjay/aprylo/internal/domain"
	"github.com/vymjay/aprylo/pkg/database"
	apperrors "github.com/vymjay/aprylo/pkg/errors"
	"github.com/vymjay/aprylo/pkg/pagination"
)

// ReviewRepository implements review and upvote persistence using PostgreSQL.
type ReviewRepository struct {
	db database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(db database.DBTX) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create inserts a new review.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	query := `
		INSERT INTO reviews (id, product_id, user_id, rating, title, body, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, query,
		review.ID,
		review.ProductID,
		review.UserID,
		review.Rating,
		review.Title,
		review.Body,
		review.CreatedAt,
		review.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}

	return nil
}

// GetByID returns a single review by ID.
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	query := `
		SELECT id, product_id, user_id, rating, title, body, created_at, updated_at
		FROM reviews
		WHERE id = $1`

	var rv domain.Review
	err := r.db.QueryRow(ctx, query, id).Scan(
		&rv.ID,
		&rv.ProductID,
		&rv.UserID,
		&rv.Rating,
		&rv.Title,
		&rv.Body,
		&rv.CreatedAt,
		&rv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("review", id)
		}
		return nil, fmt.Errorf("get review: %w", err)
	}

	return &rv, nil
}

// ListByProduct returns one keyset page of a product's reviews, newest first,
// ordered by (created_at DESC, id DESC) so the cursor stays stable while rows
// are inserted or deleted. Upvote counts and the viewer's upvote flag are
// derived from review_upvotes on every read. A zero cursor starts at the top.
func (r *ReviewRepository) ListByProduct(ctx context.Context, productID, viewerID string, cursor pagination.Cursor, limit int) ([]domain.ReviewWithVotes, bool, error) {
	if limit <= 0 {
		limit = 10
	}

	args := []any{productID, viewerID}
	cursorCond := ""
	if !cursor.IsZero() {
		args = append(args, cursor.CreatedAt, cursor.ID)
		cursorCond = "AND (r.created_at, r.id) < ($3, $4)"
	}
	// Fetch one extra row to learn whether another page follows.
	args = append(args, limit+1)

	query := fmt.Sprintf(`
		SELECT r.id, r.product_id, r.user_id, r.rating, r.title, r.body, r.created_at, r.updated_at,
		       (SELECT COUNT(*) FROM review_upvotes u WHERE u.review_id = r.id) AS upvotes,
		       EXISTS(SELECT 1 FROM review_upvotes u WHERE u.review_id = r.id AND u.user_id = $2) AS has_upvoted
		FROM reviews r
		WHERE r.product_id = $1
		%s
		ORDER BY r.created_at DESC, r.id DESC
		LIMIT $%d`, cursorCond, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []domain.ReviewWithVotes

	for rows.Next() {
		var rv domain.ReviewWithVotes
		if err := rows.Scan(
			&rv.ID,
			&rv.ProductID,
			&rv.UserID,
			&rv.Rating,
			&rv.Title,
			&rv.Body,
			&rv.CreatedAt,
			&rv.UpdatedAt,
			&rv.Upvotes,
			&rv.HasUpvoted,
		); err != nil {
			return nil, false, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, rv)
	}

	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate review rows: %w", err)
	}

	hasMore := len(reviews) > limit
	if hasMore {
		reviews = reviews[:limit]
	}

	if reviews == nil {
		reviews = []domain.ReviewWithVotes{}
	}

	return reviews, hasMore, nil
}

// CountByProduct returns the total number of reviews for a product.
func (r *ReviewRepository) CountByProduct(ctx context.Context, productID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM reviews WHERE product_id = $1`, productID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count reviews: %w", err)
	}
	return count, nil
}

// Update replaces a review's rating, title, and body.
func (r *ReviewRepository) Update(ctx context.Context, review *domain.Review) error {
	query := `
		UPDATE reviews
		SET rating = $2, title = $3, body = $4, updated_at = $5
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		review.ID,
		review.Rating,
		review.Title,
		review.Body,
		review.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("review", review.ID)
	}

	return nil
}

// Delete removes a review and, via cascade, its upvotes. Deleting a missing
// review is not an error.
func (r *ReviewRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	return nil
}

// Summary returns the average rating and total review count for a product.
func (r *ReviewRepository) Summary(ctx context.Context, productID string) (domain.ReviewSummary, error) {
	query := `
		SELECT COALESCE(AVG(rating), 0), COUNT(*)
		FROM reviews
		WHERE product_id = $1`

	var summary domain.ReviewSummary
	err := r.db.QueryRow(ctx, query, productID).Scan(
		&summary.AverageRating,
		&summary.TotalCount,
	)
	if err != nil {
		return domain.ReviewSummary{}, fmt.Errorf("get review summary: %w", err)
	}

	summary.AverageRating = math.Round(summary.AverageRating*10) / 10

	return summary, nil
}

// AddUpvote records an upvote. The unique index on (review_id, user_id) plus
// ON CONFLICT DO NOTHING makes a repeat upvote a no-op; the return value
// reports whether a row was actually inserted.
func (r *ReviewRepository) AddUpvote(ctx context.Context, reviewID, userID string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`INSERT INTO review_upvotes (review_id, user_id, created_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (review_id, user_id) DO NOTHING`,
		reviewID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("add upvote: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// RemoveUpvote deletes the user's upvote, reporting whether one existed.
func (r *ReviewRepository) RemoveUpvote(ctx context.Context, reviewID, userID string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM review_upvotes WHERE review_id = $1 AND user_id = $2`,
		reviewID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("remove upvote: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// CountUpvotes returns the current upvote count for a review.
func (r *ReviewRepository) CountUpvotes(ctx context.Context, reviewID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM review_upvotes WHERE review_id = $1`, reviewID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count upvotes: %w", err)
	}
	return count, nil
}

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
	"github.com/vymjay/aprylo/pkg/cache"
	apperrors "github.com/vymjay/aprylo/pkg/errors"
	"github.com/vymjay/aprylo/pkg/pagination"
)

const (
	reviewDefaultLimit = 10
	reviewMaxLimit     = 50
)

// CreateReviewInput holds the parameters for creating a review.
type CreateReviewInput struct {
	ProductID string
	UserID    string
	Title     string
	Body      string
	Rating    int
}

// UpdateReviewInput holds the parameters for editing a review.
type UpdateReviewInput struct {
	ReviewID string
	UserID   string
	Title    string
	Body     string
	Rating   int
}

// UpvoteResult reports the derived upvote state after a toggle.
type UpvoteResult struct {
	ReviewID   string `json:"review_id"`
	Upvotes    int    `json:"upvotes"`
	HasUpvoted bool   `json:"has_upvoted"`
}

// ReviewService implements the review feed and its mutations. List reads go
// through the query cache keyed per (product, viewer, cursor, limit); every
// mutation invalidates the product's prefix so all viewers converge on the
// next read.
type ReviewService struct {
	repo   repository.ReviewRepository
	cache  *cache.Cache[*domain.ReviewPage]
	events event.Publisher
	logger *slog.Logger
}

// NewReviewService creates a new review service.
func NewReviewService(repo repository.ReviewRepository, pageCache *cache.Cache[*domain.ReviewPage], events event.Publisher, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		repo:   repo,
		cache:  pageCache,
		events: events,
		logger: logger,
	}
}

func reviewCacheKey(productID, viewerID, cursorToken string, limit int) string {
	return fmt.Sprintf("reviews:%s:%s:%s:%d", productID, viewerID, cursorToken, limit)
}

func reviewCachePrefix(productID string) string {
	return "reviews:" + productID + ":"
}

// List returns one page of a product's review feed. An empty cursor starts
// at the newest review. viewerID may be empty for anonymous callers, whose
// has_upvoted is always false.
func (s *ReviewService) List(ctx context.Context, productID, viewerID, cursorToken string, limit int) (*domain.ReviewPage, error) {
	if limit <= 0 {
		limit = reviewDefaultLimit
	}
	if limit > reviewMaxLimit {
		limit = reviewMaxLimit
	}

	cursor, err := pagination.DecodeCursor(cursorToken)
	if err != nil {
		return nil, apperrors.InvalidInput("malformed cursor")
	}

	key := reviewCacheKey(productID, viewerID, cursorToken, limit)
	return s.cache.GetOrLoad(ctx, key, func(ctx context.Context) (*domain.ReviewPage, error) {
		return s.loadPage(ctx, productID, viewerID, cursor, limit)
	})
}

func (s *ReviewService) loadPage(ctx context.Context, productID, viewerID string, cursor pagination.Cursor, limit int) (*domain.ReviewPage, error) {
	reviews, hasMore, err := s.repo.ListByProduct(ctx, productID, viewerID, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	summary, err := s.repo.Summary(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get review summary: %w", err)
	}

	page := &domain.ReviewPage{
		Reviews:    reviews,
		Summary:    summary,
		HasMore:    hasMore,
		TotalCount: summary.TotalCount,
	}
	if hasMore && len(reviews) > 0 {
		last := reviews[len(reviews)-1]
		page.NextCursor = pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
	}

	return page, nil
}

// Create adds a review. The author comes from the authenticated identity,
// never from the request body.
func (s *ReviewService) Create(ctx context.Context, input *CreateReviewInput) (*domain.Review, error) {
	if input.ProductID == "" {
		return nil, apperrors.InvalidInput("product_id is required")
	}
	if input.UserID == "" {
		return nil, apperrors.Unauthorized("authentication required")
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, apperrors.InvalidInput("rating must be between 1 and 5")
	}
	if input.Body == "" {
		return nil, apperrors.InvalidInput("body is required")
	}

	now := time.Now().UTC()
	review := &domain.Review{
		ID:        uuid.New().String(),
		ProductID: input.ProductID,
		UserID:    input.UserID,
		Rating:    input.Rating,
		Title:     input.Title,
		Body:      input.Body,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	s.cache.Invalidate(reviewCachePrefix(review.ProductID))

	if err := s.events.PublishReviewCreated(ctx, review); err != nil {
		s.logger.WarnContext(ctx, "failed to publish review.created",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review created",
		slog.String("review_id", review.ID),
		slog.String("product_id", review.ProductID),
		slog.Int("rating", review.Rating),
	)

	return review, nil
}

// Update edits a review's rating, title, and body. Only the author may edit.
func (s *ReviewService) Update(ctx context.Context, input *UpdateReviewInput) (*domain.Review, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, apperrors.InvalidInput("rating must be between 1 and 5")
	}

	review, err := s.repo.GetByID(ctx, input.ReviewID)
	if err != nil {
		return nil, err
	}
	if review.UserID != input.UserID {
		return nil, apperrors.NotOwner("review")
	}

	review.Rating = input.Rating
	review.Title = input.Title
	review.Body = input.Body
	review.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, review); err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}

	s.cache.Invalidate(reviewCachePrefix(review.ProductID))

	return review, nil
}

// Delete removes a review. Deleting a review that no longer exists succeeds,
// so a retried delete is safe. A review owned by someone else is still
// forbidden.
func (s *ReviewService) Delete(ctx context.Context, reviewID, userID string) error {
	review, err := s.repo.GetByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		return err
	}
	if review.UserID != userID {
		return apperrors.NotOwner("review")
	}

	if err := s.repo.Delete(ctx, reviewID); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}

	s.cache.Invalidate(reviewCachePrefix(review.ProductID))

	s.logger.InfoContext(ctx, "review deleted",
		slog.String("review_id", reviewID),
		slog.String("product_id", review.ProductID),
	)

	return nil
}

// Upvote records the caller's upvote. The caller's cached pages are patched
// optimistically and rolled back if the write fails; counts returned to the
// caller are always re-derived from the rows.
func (s *ReviewService) Upvote(ctx context.Context, reviewID, userID string) (*UpvoteResult, error) {
	return s.toggleUpvote(ctx, reviewID, userID, true)
}

// RemoveUpvote removes the caller's upvote. Removing an upvote that was
// never recorded is a no-op.
func (s *ReviewService) RemoveUpvote(ctx context.Context, reviewID, userID string) (*UpvoteResult, error) {
	return s.toggleUpvote(ctx, reviewID, userID, false)
}

func (s *ReviewService) toggleUpvote(ctx context.Context, reviewID, userID string, add bool) (*UpvoteResult, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("authentication required")
	}

	review, err := s.repo.GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}

	rollback := s.cache.MutateAll(reviewCachePrefix(review.ProductID)+userID+":", func(page *domain.ReviewPage) *domain.ReviewPage {
		return patchUpvote(page, reviewID, add)
	})

	if add {
		_, err = s.repo.AddUpvote(ctx, reviewID, userID)
	} else {
		_, err = s.repo.RemoveUpvote(ctx, reviewID, userID)
	}
	if err != nil {
		rollback()
		return nil, fmt.Errorf("toggle upvote: %w", err)
	}

	// Other viewers converge via invalidation on their next read.
	s.cache.Invalidate(reviewCachePrefix(review.ProductID))

	count, err := s.repo.CountUpvotes(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("count upvotes: %w", err)
	}

	return &UpvoteResult{
		ReviewID:   reviewID,
		Upvotes:    count,
		HasUpvoted: add,
	}, nil
}

// patchUpvote returns a copy of page with the named review's vote state
// toggled. The copy keeps cached values read-only for concurrent readers.
func patchUpvote(page *domain.ReviewPage, reviewID string, add bool) *domain.ReviewPage {
	patched := *page
	patched.Reviews = append([]domain.ReviewWithVotes(nil), page.Reviews...)
	for i := range patched.Reviews {
		if patched.Reviews[i].ID != reviewID {
			continue
		}
		switch {
		case add && !patched.Reviews[i].HasUpvoted:
			patched.Reviews[i].HasUpvoted = true
			patched.Reviews[i].Upvotes++
		case !add && patched.Reviews[i].HasUpvoted:
			patched.Reviews[i].HasUpvoted = false
			patched.Reviews[i].Upvotes--
		}
	}
	return &patched
}

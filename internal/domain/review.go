package domain

import "time"

// Review is a customer review of a product.
type Review struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	UserID    string    `json:"user_id"`
	Rating    int       `json:"rating"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReviewWithVotes is a review decorated with its upvote count and whether the
// requesting user has upvoted it. Both are derived from the upvote rows at
// read time.
type ReviewWithVotes struct {
	Review
	Upvotes    int  `json:"upvotes"`
	HasUpvoted bool `json:"has_upvoted"`
}

// ReviewSummary is the live rating aggregate for a product.
type ReviewSummary struct {
	AverageRating float64 `json:"average_rating"`
	TotalCount    int     `json:"total_count"`
}

// ReviewPage is one keyset-paginated slice of a product's review feed.
type ReviewPage struct {
	Reviews    []ReviewWithVotes `json:"reviews"`
	Summary    ReviewSummary     `json:"summary"`
	NextCursor string            `json:"next_cursor,omitempty"`
	HasMore    bool              `json:"has_more"`
	TotalCount int               `json:"total_count"`
}

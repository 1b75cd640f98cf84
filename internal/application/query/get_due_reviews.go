package query

import (
	"context"
	"fmt"
	"time"

	"github.com/studyhub/progression-core/internal/domain/review"
	"github.com/studyhub/progression-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DUE REVIEWS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetDueReviewsQuery requests a student's review queue.
type GetDueReviewsQuery struct {
	StudentID string

	// AsOf defaults to now if zero.
	AsOf time.Time

	// Limit bounds the queue size; zero means the default.
	Limit int
}

// DefaultDueReviewLimit bounds a review session when the caller does not
// specify one.
const DefaultDueReviewLimit = 50

// DueReview is one queue entry.
type DueReview struct {
	ItemID         string
	SubjectID      string
	Prompt         string
	IntervalDays   int
	Repetitions    int
	NextReviewDate time.Time

	// OverdueDays is how many whole days past due the item is.
	OverdueDays int
}

// DueReviewQueue is the read model for a review session.
type DueReviewQueue struct {
	StudentID string
	AsOf      time.Time
	Items     []DueReview
}

// GetDueReviewsHandler handles the GetDueReviewsQuery.
type GetDueReviewsHandler struct {
	itemRepo review.ItemRepository
	clock    shared.Clock
}

// NewGetDueReviewsHandler creates a new GetDueReviewsHandler.
func NewGetDueReviewsHandler(itemRepo review.ItemRepository, clock shared.Clock) *GetDueReviewsHandler {
	if clock == nil {
		clock = shared.SystemClock
	}
	return &GetDueReviewsHandler{itemRepo: itemRepo, clock: clock}
}

// Handle lists the items due at AsOf, most overdue first. The answer
// side is deliberately omitted from the queue.
func (h *GetDueReviewsHandler) Handle(ctx context.Context, q GetDueReviewsQuery) (*DueReviewQueue, error) {
	studentID := shared.StudentID(q.StudentID)
	if err := studentID.Validate(); err != nil {
		return nil, fmt.Errorf("get_due_reviews: %w", err)
	}

	asOf := q.AsOf
	if asOf.IsZero() {
		asOf = h.clock()
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultDueReviewLimit
	}

	items, err := h.itemRepo.ListDueByStudent(ctx, studentID, asOf, limit)
	if err != nil {
		return nil, fmt.Errorf("get_due_reviews: %w", err)
	}

	queue := &DueReviewQueue{StudentID: q.StudentID, AsOf: asOf}
	for _, item := range items {
		entry := DueReview{
			ItemID:         item.ID.String(),
			SubjectID:      string(item.SubjectID),
			Prompt:         item.Prompt,
			IntervalDays:   item.Scheduling.IntervalDays,
			Repetitions:    item.Scheduling.Repetitions,
			NextReviewDate: item.Scheduling.NextReviewDate,
		}
		if !item.Scheduling.NextReviewDate.IsZero() && item.Scheduling.NextReviewDate.Before(asOf) {
			entry.OverdueDays = int(asOf.Sub(item.Scheduling.NextReviewDate).Hours() / 24)
		}
		queue.Items = append(queue.Items, entry)
	}
	return queue, nil
}

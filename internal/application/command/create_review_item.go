package command

import (
	"context"
	"fmt"
	"time"

	"github.com/studyhub/progression-core/internal/domain/review"
	"github.com/studyhub/progression-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE REVIEW ITEM COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// CreateReviewItemCommand adds a flashcard to a student's review deck.
type CreateReviewItemCommand struct {
	StudentID string
	Subject   string
	Prompt    string
	Answer    string

	// CreatedAt defaults to now if zero.
	CreatedAt time.Time
}

// CreateReviewItemResult reports the created item.
type CreateReviewItemResult struct {
	ItemID         string
	NextReviewDate time.Time
}

// CreateReviewItemHandler handles the CreateReviewItemCommand.
type CreateReviewItemHandler struct {
	itemRepo review.ItemRepository
	clock    shared.Clock
}

// NewCreateReviewItemHandler creates a new CreateReviewItemHandler.
func NewCreateReviewItemHandler(itemRepo review.ItemRepository, clock shared.Clock) *CreateReviewItemHandler {
	if clock == nil {
		clock = shared.SystemClock
	}
	return &CreateReviewItemHandler{itemRepo: itemRepo, clock: clock}
}

// Handle creates the item. New items start unscheduled and are due
// immediately, so the next review run picks them up.
func (h *CreateReviewItemHandler) Handle(ctx context.Context, cmd CreateReviewItemCommand) (*CreateReviewItemResult, error) {
	createdAt := cmd.CreatedAt
	if createdAt.IsZero() {
		createdAt = h.clock()
	}

	item, err := review.NewReviewableItem(
		shared.StudentID(cmd.StudentID),
		shared.SubjectID(cmd.Subject),
		cmd.Prompt,
		cmd.Answer,
		createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create_review_item: %w", err)
	}

	if err := h.itemRepo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("create_review_item: persist item: %w", err)
	}

	return &CreateReviewItemResult{
		ItemID:         item.ID.String(),
		NextReviewDate: item.Scheduling.NextReviewDate,
	}, nil
}

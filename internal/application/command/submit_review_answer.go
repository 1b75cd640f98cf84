package command

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/studyhub/progression-core/internal/domain/review"
	"github.com/studyhub/progression-core/internal/domain/shared"
	"github.com/studyhub/progression-core/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBMIT REVIEW ANSWER COMMAND
// Grades one flashcard answer and reschedules the item.
// ══════════════════════════════════════════════════════════════════════════════

// SubmitReviewAnswerCommand carries one graded flashcard answer.
type SubmitReviewAnswerCommand struct {
	// ItemID is the reviewable item's UUID.
	ItemID string

	// StudentID is the answering student's UUID.
	StudentID string

	// Grade is the recall quality, 0 through 5.
	Grade int

	// AnsweredAt is when the answer was given (defaults to now if zero).
	AnsweredAt time.Time

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c SubmitReviewAnswerCommand) Validate() error {
	if _, err := uuid.Parse(c.ItemID); err != nil {
		return fmt.Errorf("submit_review_answer: item id: %w", shared.ErrInvalidID)
	}
	if err := shared.StudentID(c.StudentID).Validate(); err != nil {
		return fmt.Errorf("submit_review_answer: %w", err)
	}
	if _, err := shared.NewGrade(c.Grade); err != nil {
		return fmt.Errorf("submit_review_answer: %w", err)
	}
	return nil
}

// SubmitReviewAnswerResult reports the rescheduling outcome.
type SubmitReviewAnswerResult struct {
	ItemID    string
	StudentID string
	Grade     int

	// Passed is false for grades below the passing threshold.
	Passed bool

	// IntervalDays and NextReviewDate describe the new schedule.
	IntervalDays   int
	EaseFactor     float64
	Repetitions    int
	NextReviewDate time.Time

	AnsweredAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// SubmitReviewAnswerHandler handles the SubmitReviewAnswerCommand.
type SubmitReviewAnswerHandler struct {
	itemRepo       review.ItemRepository
	eventRepo      review.EventRepository
	eventPublisher shared.EventPublisher
	clock          shared.Clock
	log            *logger.Logger
}

// NewSubmitReviewAnswerHandler creates a new SubmitReviewAnswerHandler.
func NewSubmitReviewAnswerHandler(
	itemRepo review.ItemRepository,
	eventRepo review.EventRepository,
	eventPublisher shared.EventPublisher,
	clock shared.Clock,
	log *logger.Logger,
) *SubmitReviewAnswerHandler {
	if clock == nil {
		clock = shared.SystemClock
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &SubmitReviewAnswerHandler{
		itemRepo:       itemRepo,
		eventRepo:      eventRepo,
		eventPublisher: eventPublisher,
		clock:          clock,
		log:            log.With("handler", "submit_review_answer"),
	}
}

// Handle grades the answer, reschedules the item and appends the review
// to the item's history. The item update and the history append are not
// transactionally coupled; the item is the source of truth and the
// history is an audit trail, so a failed append surfaces an error but
// does not undo the reschedule.
func (h *SubmitReviewAnswerHandler) Handle(ctx context.Context, cmd SubmitReviewAnswerCommand) (*SubmitReviewAnswerResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	answeredAt := cmd.AnsweredAt
	if answeredAt.IsZero() {
		answeredAt = h.clock()
	}

	itemID, err := uuid.Parse(cmd.ItemID)
	if err != nil {
		return nil, fmt.Errorf("submit_review_answer: %w", shared.ErrInvalidID)
	}

	item, err := h.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("submit_review_answer: load item: %w", err)
	}
	if item.StudentID != shared.StudentID(cmd.StudentID) {
		return nil, fmt.Errorf("submit_review_answer: item belongs to another student: %w", shared.ErrItemNotFound)
	}

	grade, err := shared.NewGrade(cmd.Grade)
	if err != nil {
		return nil, fmt.Errorf("submit_review_answer: %w", err)
	}

	reviewEvent, err := item.RecordAnswer(grade, answeredAt)
	if err != nil {
		return nil, fmt.Errorf("submit_review_answer: %w", err)
	}

	if err := h.itemRepo.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("submit_review_answer: persist item: %w", err)
	}
	if err := h.eventRepo.Append(ctx, reviewEvent); err != nil {
		return nil, fmt.Errorf("submit_review_answer: append history: %w", err)
	}

	event := shared.NewReviewScheduledEvent(
		cmd.ItemID,
		cmd.StudentID,
		cmd.Grade,
		item.Scheduling.IntervalDays,
		item.Scheduling.NextReviewDate,
	)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	// The reschedule is already persisted; a failed publish is logged
	// and the command still succeeds.
	if err := h.eventPublisher.Publish(event); err != nil {
		h.log.Error("event publish failed",
			"event_type", event.EventType(),
			"item_id", cmd.ItemID,
			"student_id", cmd.StudentID,
			"error", err,
		)
	}

	return &SubmitReviewAnswerResult{
		ItemID:         cmd.ItemID,
		StudentID:      cmd.StudentID,
		Grade:          cmd.Grade,
		Passed:         !grade.IsFailure(),
		IntervalDays:   item.Scheduling.IntervalDays,
		EaseFactor:     item.Scheduling.EaseFactor,
		Repetitions:    item.Scheduling.Repetitions,
		NextReviewDate: item.Scheduling.NextReviewDate,
		AnsweredAt:     answeredAt,
	}, nil
}

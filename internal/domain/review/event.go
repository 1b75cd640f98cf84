package review

import (
	"time"

	"github.com/google/uuid"

	"github.com/studyhub/progression-core/internal/domain/shared"
)

// ReviewEvent is the immutable append-only record of one review answer.
// It captures the full scheduling state before and after the answer so
// history can be replayed or audited without recomputation.
type ReviewEvent struct {
	// ID is the unique event identifier.
	ID uuid.UUID

	// ItemID references the reviewed item.
	ItemID uuid.UUID

	// StudentID is the answering student.
	StudentID shared.StudentID

	// Grade is the recall quality of the answer (0-5).
	Grade shared.Grade

	// Before is the scheduling state prior to this answer.
	Before SchedulingState

	// After is the scheduling state produced by this answer.
	After SchedulingState

	// AnsweredAt is when the answer was submitted.
	AnsweredAt time.Time
}

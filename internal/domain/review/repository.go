package review

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/studyhub/progression-core/internal/domain/shared"
)

// ItemRepository defines persistence for reviewable items. Item updates
// are independent per item; single-row update semantics are sufficient
// and no cross-item locking is required.
type ItemRepository interface {
	// Create stores a new item.
	Create(ctx context.Context, item *ReviewableItem) error

	// GetByID returns an item by ID.
	// Returns shared.ErrItemNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*ReviewableItem, error)

	// Update persists a modified item.
	Update(ctx context.Context, item *ReviewableItem) error

	// ListDueByStudent returns the student's items due at or before the
	// given time, most overdue first. limit <= 0 means no limit.
	ListDueByStudent(ctx context.Context, studentID shared.StudentID, asOf time.Time, limit int) ([]*ReviewableItem, error)
}

// EventRepository defines append-only persistence for review events.
// Events are never updated or deleted.
type EventRepository interface {
	// Append stores a new review event.
	Append(ctx context.Context, event *ReviewEvent) error

	// ListByItem returns events for one item, newest first.
	// limit <= 0 means no limit.
	ListByItem(ctx context.Context, itemID uuid.UUID, limit int) ([]*ReviewEvent, error)
}

// Package review contains the reviewable-item aggregate and the
// spaced-repetition scheduling engine. A reviewable item is a single
// prompt/answer pair owned by one student within one subject; answering
// it feeds the SM-2 scheduler and appends an immutable ReviewEvent.
package review

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/studyhub/progression-core/internal/domain/shared"
)

// ReviewableItem is one flashcard-style prompt/answer pair with its
// scheduling state. Created manually or by generation; mutated only
// through Answer.
type ReviewableItem struct {
	// ID is the unique item identifier.
	ID uuid.UUID

	// StudentID is the owning student.
	StudentID shared.StudentID

	// SubjectID is the subject this item belongs to (opaque catalog ref).
	SubjectID shared.SubjectID

	// Prompt is the question side.
	Prompt string

	// Answer is the expected answer side.
	Answer string

	// Scheduling is the current spaced-repetition state.
	Scheduling SchedulingState

	// CreatedAt is when the item was created.
	CreatedAt time.Time

	// UpdatedAt is when the item was last modified.
	UpdatedAt time.Time
}

// NewReviewableItem creates a new item with default scheduling state.
func NewReviewableItem(studentID shared.StudentID, subjectID shared.SubjectID, prompt, answer string, createdAt time.Time) (*ReviewableItem, error) {
	if studentID.IsEmpty() {
		return nil, shared.NewDomainError("review", "NewReviewableItem", shared.ErrEmptyValue, "student ID is required")
	}
	if subjectID.IsEmpty() {
		return nil, shared.NewDomainError("review", "NewReviewableItem", shared.ErrEmptyValue, "subject ID is required")
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, shared.NewDomainError("review", "NewReviewableItem", shared.ErrEmptyValue, "prompt is required")
	}
	if strings.TrimSpace(answer) == "" {
		return nil, shared.NewDomainError("review", "NewReviewableItem", shared.ErrEmptyValue, "answer is required")
	}

	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return &ReviewableItem{
		ID:         uuid.New(),
		StudentID:  studentID,
		SubjectID:  subjectID,
		Prompt:     prompt,
		Answer:     answer,
		Scheduling: NewSchedulingState(),
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}, nil
}

// IsDue reports whether the item is due for review at the given time.
func (i *ReviewableItem) IsDue(t time.Time) bool {
	return i.Scheduling.IsDue(t)
}

// RecordAnswer applies one graded answer: the scheduler computes the new
// state, the item is updated in place, and an immutable ReviewEvent
// capturing the before/after states is returned for appending.
func (i *ReviewableItem) RecordAnswer(grade shared.Grade, answeredAt time.Time) (*ReviewEvent, error) {
	before := i.Scheduling

	after, err := Schedule(before, grade, answeredAt)
	if err != nil {
		return nil, err
	}

	i.Scheduling = after
	i.UpdatedAt = answeredAt

	return &ReviewEvent{
		ID:         uuid.New(),
		ItemID:     i.ID,
		StudentID:  i.StudentID,
		Grade:      grade,
		Before:     before,
		After:      after,
		AnsweredAt: answeredAt,
	}, nil
}

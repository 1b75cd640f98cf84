package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/studyhub/progression-core/internal/domain/review"
	"github.com/studyhub/progression-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REVIEW ITEM REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// ReviewItemRepository persists reviewable items with their scheduling
// state. Implements review.ItemRepository.
type ReviewItemRepository struct {
	conn *Connection
}

// NewReviewItemRepository creates a new ReviewItemRepository.
func NewReviewItemRepository(conn *Connection) *ReviewItemRepository {
	return &ReviewItemRepository{conn: conn}
}

const itemColumns = `
	id, student_id, subject_id, prompt, answer,
	interval_days, ease_factor, repetitions, next_review_date,
	created_at, updated_at`

// Create inserts a new item.
func (r *ReviewItemRepository) Create(ctx context.Context, item *review.ReviewableItem) error {
	query := `
		INSERT INTO review_items (` + itemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.conn.Exec(ctx, query,
		item.ID,
		string(item.StudentID),
		string(item.SubjectID),
		item.Prompt,
		item.Answer,
		item.Scheduling.IntervalDays,
		item.Scheduling.EaseFactor,
		item.Scheduling.Repetitions,
		nullableDate(item.Scheduling.NextReviewDate),
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create review item: %w", err)
	}
	return nil
}

// GetByID loads one item.
func (r *ReviewItemRepository) GetByID(ctx context.Context, id uuid.UUID) (*review.ReviewableItem, error) {
	query := `SELECT` + itemColumns + ` FROM review_items WHERE id = $1`

	item, err := scanItem(r.conn.QueryRow(ctx, query, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrItemNotFound
		}
		return nil, fmt.Errorf("postgres: get review item: %w", err)
	}
	return item, nil
}

// Update writes an item's scheduling state back.
func (r *ReviewItemRepository) Update(ctx context.Context, item *review.ReviewableItem) error {
	query := `
		UPDATE review_items SET
			prompt = $2,
			answer = $3,
			interval_days = $4,
			ease_factor = $5,
			repetitions = $6,
			next_review_date = $7,
			updated_at = $8
		WHERE id = $1`

	tag, err := r.conn.Exec(ctx, query,
		item.ID,
		item.Prompt,
		item.Answer,
		item.Scheduling.IntervalDays,
		item.Scheduling.EaseFactor,
		item.Scheduling.Repetitions,
		nullableDate(item.Scheduling.NextReviewDate),
		item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: update review item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrItemNotFound
	}
	return nil
}

// ListDueByStudent returns the student's due items, most overdue first.
// Unscheduled items (NULL next_review_date) are due immediately and sort
// ahead of everything else.
func (r *ReviewItemRepository) ListDueByStudent(ctx context.Context, studentID shared.StudentID, asOf time.Time, limit int) ([]*review.ReviewableItem, error) {
	query := `SELECT` + itemColumns + `
		FROM review_items
		WHERE student_id = $1
		  AND (next_review_date IS NULL OR next_review_date <= $2)
		ORDER BY next_review_date ASC NULLS FIRST
		LIMIT $3`

	rows, err := r.conn.Query(ctx, query, string(studentID), asOf, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list due items: %w", err)
	}
	defer rows.Close()

	var items []*review.ReviewableItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan review item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanItem(row rowScanner) (*review.ReviewableItem, error) {
	var (
		item       review.ReviewableItem
		studentID  string
		subjectID  string
		nextReview *time.Time
	)

	err := row.Scan(
		&item.ID,
		&studentID,
		&subjectID,
		&item.Prompt,
		&item.Answer,
		&item.Scheduling.IntervalDays,
		&item.Scheduling.EaseFactor,
		&item.Scheduling.Repetitions,
		&nextReview,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.StudentID = shared.StudentID(studentID)
	item.SubjectID = shared.SubjectID(subjectID)
	if nextReview != nil {
		item.Scheduling.NextReviewDate = *nextReview
	}
	return &item, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REVIEW EVENT REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// ReviewEventRepository is the append-only review history. Implements
// review.EventRepository.
type ReviewEventRepository struct {
	conn *Connection
}

// NewReviewEventRepository creates a new ReviewEventRepository.
func NewReviewEventRepository(conn *Connection) *ReviewEventRepository {
	return &ReviewEventRepository{conn: conn}
}

// Append stores one graded answer. Rows are never updated or deleted.
func (r *ReviewEventRepository) Append(ctx context.Context, event *review.ReviewEvent) error {
	query := `
		INSERT INTO review_events (
			id, item_id, student_id, grade,
			before_interval, before_ease, before_reps,
			after_interval, after_ease, after_reps,
			next_review_date, answered_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.conn.Exec(ctx, query,
		event.ID,
		event.ItemID,
		string(event.StudentID),
		int(event.Grade),
		event.Before.IntervalDays,
		event.Before.EaseFactor,
		event.Before.Repetitions,
		event.After.IntervalDays,
		event.After.EaseFactor,
		event.After.Repetitions,
		nullableDate(event.After.NextReviewDate),
		event.AnsweredAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: append review event: %w", err)
	}
	return nil
}

// ListByItem returns an item's history, newest first. limit <= 0 returns
// the full history.
func (r *ReviewEventRepository) ListByItem(ctx context.Context, itemID uuid.UUID, limit int) ([]*review.ReviewEvent, error) {
	query := `
		SELECT id, item_id, student_id, grade,
		       before_interval, before_ease, before_reps,
		       after_interval, after_ease, after_reps,
		       next_review_date, answered_at
		FROM review_events
		WHERE item_id = $1
		ORDER BY answered_at DESC`

	args := []interface{}{itemID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list review events: %w", err)
	}
	defer rows.Close()

	var events []*review.ReviewEvent
	for rows.Next() {
		var (
			event      review.ReviewEvent
			studentID  string
			grade      int
			nextReview *time.Time
		)
		err := rows.Scan(
			&event.ID,
			&event.ItemID,
			&studentID,
			&grade,
			&event.Before.IntervalDays,
			&event.Before.EaseFactor,
			&event.Before.Repetitions,
			&event.After.IntervalDays,
			&event.After.EaseFactor,
			&event.After.Repetitions,
			&nextReview,
			&event.AnsweredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan review event: %w", err)
		}
		event.StudentID = shared.StudentID(studentID)
		event.Grade = shared.Grade(grade)
		if nextReview != nil {
			event.After.NextReviewDate = *nextReview
		}
		events = append(events, &event)
	}
	return events, rows.Err()
}

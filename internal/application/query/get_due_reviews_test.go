package query

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/progression-core/internal/domain/review"
	"github.com/studyhub/progression-core/internal/domain/shared"
	"github.com/studyhub/progression-core/pkg/timeutil"
)

type fakeItemRepo struct {
	items []*review.ReviewableItem
}

func (r *fakeItemRepo) Create(_ context.Context, item *review.ReviewableItem) error {
	r.items = append(r.items, item)
	return nil
}

func (r *fakeItemRepo) GetByID(_ context.Context, id uuid.UUID) (*review.ReviewableItem, error) {
	for _, item := range r.items {
		if item.ID == id {
			return item, nil
		}
	}
	return nil, shared.ErrItemNotFound
}

func (r *fakeItemRepo) Update(_ context.Context, item *review.ReviewableItem) error {
	for i, existing := range r.items {
		if existing.ID == item.ID {
			r.items[i] = item
			return nil
		}
	}
	return shared.ErrItemNotFound
}

func (r *fakeItemRepo) ListDueByStudent(_ context.Context, studentID shared.StudentID, asOf time.Time, limit int) ([]*review.ReviewableItem, error) {
	var due []*review.ReviewableItem
	for _, item := range r.items {
		if len(due) >= limit {
			break
		}
		if item.StudentID == studentID && item.IsDue(asOf) {
			due = append(due, item)
		}
	}
	return due, nil
}

func TestGetDueReviews(t *testing.T) {
	repo := &fakeItemRepo{}
	created := timeutil.Date(2026, 3, 1)

	dueItem, err := review.NewReviewableItem(shared.StudentID(testStudent), "math-y7", "7 x 8", "56", created)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), dueItem))

	// A second item already answered and scheduled out past AsOf.
	futureItem, err := review.NewReviewableItem(shared.StudentID(testStudent), "math-y7", "9 x 9", "81", created)
	require.NoError(t, err)
	_, err = futureItem.RecordAnswer(shared.Grade(5), timeutil.Date(2026, 3, 10))
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), futureItem))

	handler := NewGetDueReviewsHandler(repo, func() time.Time { return timeutil.Date(2026, 3, 10) })
	queue, err := handler.Handle(context.Background(), GetDueReviewsQuery{StudentID: testStudent})
	require.NoError(t, err)

	require.Len(t, queue.Items, 1)
	assert.Equal(t, dueItem.ID.String(), queue.Items[0].ItemID)
	assert.Equal(t, "7 x 8", queue.Items[0].Prompt)
}

func TestGetDueReviewsHonorsLimit(t *testing.T) {
	repo := &fakeItemRepo{}
	for i := 0; i < 5; i++ {
		item, err := review.NewReviewableItem(shared.StudentID(testStudent), "math-y7", "prompt", "answer", timeutil.Date(2026, 3, 1))
		require.NoError(t, err)
		require.NoError(t, repo.Create(context.Background(), item))
	}

	handler := NewGetDueReviewsHandler(repo, shared.SystemClock)
	queue, err := handler.Handle(context.Background(), GetDueReviewsQuery{StudentID: testStudent, Limit: 3})
	require.NoError(t, err)

	assert.Len(t, queue.Items, 3)
}

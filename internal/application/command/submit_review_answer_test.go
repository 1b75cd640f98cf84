package command

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
	items map[uuid.UUID]*review.ReviewableItem
}

func newFakeItemRepo() *fakeItemRepo {
	return &fakeItemRepo{items: make(map[uuid.UUID]*review.ReviewableItem)}
}

func (r *fakeItemRepo) Create(_ context.Context, item *review.ReviewableItem) error {
	r.items[item.ID] = item
	return nil
}

func (r *fakeItemRepo) GetByID(_ context.Context, id uuid.UUID) (*review.ReviewableItem, error) {
	item, ok := r.items[id]
	if !ok {
		return nil, shared.ErrItemNotFound
	}
	clone := *item
	return &clone, nil
}

func (r *fakeItemRepo) Update(_ context.Context, item *review.ReviewableItem) error {
	r.items[item.ID] = item
	return nil
}

func (r *fakeItemRepo) ListDueByStudent(_ context.Context, studentID shared.StudentID, asOf time.Time, limit int) ([]*review.ReviewableItem, error) {
	var due []*review.ReviewableItem
	for _, item := range r.items {
		if item.StudentID == studentID && item.IsDue(asOf) {
			due = append(due, item)
		}
		if len(due) >= limit {
			break
		}
	}
	return due, nil
}

var (
	_ review.ItemRepository  = (*fakeItemRepo)(nil)
	_ review.EventRepository = (*fakeEventRepo)(nil)
)

type fakeEventRepo struct {
	appended []*review.ReviewEvent
}

func (r *fakeEventRepo) Append(_ context.Context, event *review.ReviewEvent) error {
	r.appended = append(r.appended, event)
	return nil
}

func (r *fakeEventRepo) ListByItem(_ context.Context, itemID uuid.UUID, limit int) ([]*review.ReviewEvent, error) {
	var out []*review.ReviewEvent
	for i := len(r.appended) - 1; i >= 0; i-- {
		if r.appended[i].ItemID != itemID {
			continue
		}
		out = append(out, r.appended[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func seedItem(t *testing.T, repo *fakeItemRepo) *review.ReviewableItem {
	t.Helper()
	item, err := review.NewReviewableItem(
		shared.StudentID(testStudent), "math-y7", "7 x 8", "56", timeutil.Date(2026, 3, 1))
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), item))
	return item
}

func TestSubmitReviewAnswerReschedulesItem(t *testing.T) {
	itemRepo := newFakeItemRepo()
	eventRepo := &fakeEventRepo{}
	pub := &fakePublisher{}
	handler := NewSubmitReviewAnswerHandler(itemRepo, eventRepo, pub, fixedClock(timeutil.Date(2026, 3, 10)), nil)
	item := seedItem(t, itemRepo)

	result, err := handler.Handle(context.Background(), SubmitReviewAnswerCommand{
		ItemID:    item.ID.String(),
		StudentID: testStudent,
		Grade:     5,
	})
	require.NoError(t, err)

	assert.True(t, result.Passed)
	assert.Equal(t, 1, result.IntervalDays, "first successful review schedules one day out")
	assert.Equal(t, 1, result.Repetitions)
	assert.Equal(t, timeutil.Date(2026, 3, 11), result.NextReviewDate)

	stored, err := itemRepo.GetByID(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Scheduling.Repetitions)

	require.Len(t, eventRepo.appended, 1)
	assert.Equal(t, item.ID, eventRepo.appended[0].ItemID)
	assert.Contains(t, pub.typesSeen(), shared.EventReviewScheduled)
}

func TestSubmitReviewAnswerFailingGrade(t *testing.T) {
	itemRepo := newFakeItemRepo()
	eventRepo := &fakeEventRepo{}
	handler := NewSubmitReviewAnswerHandler(itemRepo, eventRepo, &fakePublisher{}, fixedClock(timeutil.Date(2026, 3, 10)), nil)
	item := seedItem(t, itemRepo)

	// Build up some history first.
	for _, grade := range []int{5, 5, 5} {
		_, err := handler.Handle(context.Background(), SubmitReviewAnswerCommand{
			ItemID:    item.ID.String(),
			StudentID: testStudent,
			Grade:     grade,
		})
		require.NoError(t, err)
	}

	result, err := handler.Handle(context.Background(), SubmitReviewAnswerCommand{
		ItemID:    item.ID.String(),
		StudentID: testStudent,
		Grade:     1,
	})
	require.NoError(t, err)

	assert.False(t, result.Passed)
	assert.Equal(t, 1, result.IntervalDays, "failure restarts the interval")
	assert.Equal(t, 0, result.Repetitions)
	assert.Len(t, eventRepo.appended, 4, "failures are history too")

	// History reads newest first and honors the limit.
	history, err := eventRepo.ListByItem(context.Background(), item.ID, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, shared.Grade(1), history[0].Grade)
	assert.Equal(t, shared.Grade(5), history[1].Grade)

	all, err := eventRepo.ListByItem(context.Background(), item.ID, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestSubmitReviewAnswerRejectsWrongStudent(t *testing.T) {
	itemRepo := newFakeItemRepo()
	handler := NewSubmitReviewAnswerHandler(itemRepo, &fakeEventRepo{}, &fakePublisher{}, nil, nil)
	item := seedItem(t, itemRepo)

	_, err := handler.Handle(context.Background(), SubmitReviewAnswerCommand{
		ItemID:    item.ID.String(),
		StudentID: "2c5f39cb-3fb2-22e3-994f-1127e4ddb538",
		Grade:     4,
	})

	assert.ErrorIs(t, err, shared.ErrNotFound, "another student's items look absent")
}

func TestSubmitReviewAnswerItemNotFound(t *testing.T) {
	handler := NewSubmitReviewAnswerHandler(newFakeItemRepo(), &fakeEventRepo{}, &fakePublisher{}, nil, nil)

	_, err := handler.Handle(context.Background(), SubmitReviewAnswerCommand{
		ItemID:    uuid.NewString(),
		StudentID: testStudent,
		Grade:     4,
	})

	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSubmitReviewAnswerValidation(t *testing.T) {
	handler := NewSubmitReviewAnswerHandler(newFakeItemRepo(), &fakeEventRepo{}, &fakePublisher{}, nil, nil)

	_, err := handler.Handle(context.Background(), SubmitReviewAnswerCommand{
		ItemID: "nope", StudentID: testStudent, Grade: 4,
	})
	assert.ErrorIs(t, err, shared.ErrInvalidID)

	_, err = handler.Handle(context.Background(), SubmitReviewAnswerCommand{
		ItemID: uuid.NewString(), StudentID: testStudent, Grade: 6,
	})
	assert.ErrorIs(t, err, shared.ErrValueOutOfRange)
}

func TestCreateReviewItem(t *testing.T) {
	itemRepo := newFakeItemRepo()
	handler := NewCreateReviewItemHandler(itemRepo, fixedClock(timeutil.Date(2026, 3, 10)))

	result, err := handler.Handle(context.Background(), CreateReviewItemCommand{
		StudentID: testStudent,
		Subject:   "math-y7",
		Prompt:    "7 x 8",
		Answer:    "56",
	})
	require.NoError(t, err)

	id, err := uuid.Parse(result.ItemID)
	require.NoError(t, err)

	stored, err := itemRepo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, stored.IsDue(timeutil.Date(2026, 3, 10)), "new items are due immediately")
}

package command

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/progression-core/pkg/timeutil"
)

func TestCreateReviewItemHandler_CreatesUnscheduledItem(t *testing.T) {
	repo := newFakeItemRepo()
	now := timeutil.Date(2025, 3, 1)
	h := NewCreateReviewItemHandler(repo, func() time.Time { return now })

	result, err := h.Handle(context.Background(), CreateReviewItemCommand{
		StudentID: testStudent,
		Subject:   "geometry",
		Prompt:    "Sum of interior angles of a triangle?",
		Answer:    "180 degrees",
	})
	require.NoError(t, err)

	id, err := uuid.Parse(result.ItemID)
	require.NoError(t, err)

	stored, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "geometry", string(stored.SubjectID))
	assert.Equal(t, 0, stored.Scheduling.Repetitions)

	// A fresh card is due immediately.
	assert.True(t, stored.IsDue(now))
	assert.False(t, result.NextReviewDate.After(now))
}

func TestCreateReviewItemHandler_RejectsInvalidInput(t *testing.T) {
	repo := newFakeItemRepo()
	h := NewCreateReviewItemHandler(repo, nil)

	cases := []struct {
		name string
		cmd  CreateReviewItemCommand
	}{
		{"empty student id", CreateReviewItemCommand{Subject: "math", Prompt: "p", Answer: "a"}},
		{"empty subject", CreateReviewItemCommand{StudentID: testStudent, Prompt: "p", Answer: "a"}},
		{"empty prompt", CreateReviewItemCommand{StudentID: testStudent, Subject: "math", Answer: "a"}},
		{"empty answer", CreateReviewItemCommand{StudentID: testStudent, Subject: "math", Prompt: "p"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.Handle(context.Background(), tc.cmd)
			require.Error(t, err)
			assert.Empty(t, repo.items)
		})
	}
}

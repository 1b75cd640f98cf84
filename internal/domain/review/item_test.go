package review

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/progression-core/internal/domain/shared"
	"github.com/studyhub/progression-core/pkg/timeutil"
)

const testStudentID = shared.StudentID("1b4e28ba-2fa1-11d2-883f-0016d3cca427")

func newTestItem(t *testing.T) *ReviewableItem {
	t.Helper()
	item, err := NewReviewableItem(testStudentID, "math-y7", "7 x 8", "56", timeutil.Date(2025, time.March, 1))
	require.NoError(t, err)
	return item
}

func TestNewReviewableItem_Validation(t *testing.T) {
	tests := []struct {
		name            string
		student         shared.StudentID
		subject         shared.SubjectID
		prompt, answer  string
	}{
		{"missing student", "", "math-y7", "q", "a"},
		{"missing subject", testStudentID, "", "q", "a"},
		{"blank prompt", testStudentID, "math-y7", "   ", "a"},
		{"blank answer", testStudentID, "math-y7", "q", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReviewableItem(tt.student, tt.subject, tt.prompt, tt.answer, time.Time{})
			assert.ErrorIs(t, err, shared.ErrEmptyValue)
		})
	}
}

func TestNewReviewableItem_Defaults(t *testing.T) {
	item := newTestItem(t)

	assert.NotEqual(t, item.ID.String(), "00000000-0000-0000-0000-000000000000")
	assert.Equal(t, DefaultEaseFactor, item.Scheduling.EaseFactor)
	assert.Equal(t, 0, item.Scheduling.Repetitions)
	assert.True(t, item.IsDue(time.Now()), "new items are due immediately")
}

func TestRecordAnswer_UpdatesStateAndEmitsEvent(t *testing.T) {
	item := newTestItem(t)
	answeredAt := timeutil.Date(2025, time.March, 10)

	event, err := item.RecordAnswer(shared.Grade(5), answeredAt)
	require.NoError(t, err)

	assert.Equal(t, item.ID, event.ItemID)
	assert.Equal(t, testStudentID, event.StudentID)
	assert.Equal(t, shared.Grade(5), event.Grade)
	assert.Equal(t, 0, event.Before.Repetitions)
	assert.Equal(t, 1, event.After.Repetitions)
	assert.Equal(t, event.After, item.Scheduling, "item carries the post-answer state")
	assert.Equal(t, answeredAt, item.UpdatedAt)
}

func TestRecordAnswer_InvalidGradeLeavesItemUntouched(t *testing.T) {
	item := newTestItem(t)
	before := item.Scheduling

	_, err := item.RecordAnswer(shared.Grade(7), time.Now())

	assert.ErrorIs(t, err, shared.ErrInvalidGrade)
	assert.Equal(t, before, item.Scheduling)
}

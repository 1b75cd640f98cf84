package review

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/progression-core/internal/domain/shared"
	"github.com/studyhub/progression-core/pkg/timeutil"
)

var testToday = timeutil.Date(2025, time.March, 10)

func TestSchedule_RejectsInvalidGrade(t *testing.T) {
	state := NewSchedulingState()

	for _, grade := range []int{-1, 6, 99} {
		_, err := Schedule(state, shared.Grade(grade), testToday)
		assert.ErrorIs(t, err, shared.ErrInvalidGrade, "grade %d", grade)
	}
}

func TestSchedule_EaseFactorNeverBelowFloor(t *testing.T) {
	// Hammer an item with blackout answers; the ease factor must stop at
	// the floor and never dip under it.
	state := NewSchedulingState()
	for i := 0; i < 20; i++ {
		var err error
		state, err = Schedule(state, shared.Grade(0), testToday)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, state.EaseFactor, MinEaseFactor)
	}
	assert.Equal(t, MinEaseFactor, state.EaseFactor)
}

func TestSchedule_AllGradesKeepFloor(t *testing.T) {
	for grade := 0; grade <= 5; grade++ {
		state := SchedulingState{IntervalDays: 6, EaseFactor: MinEaseFactor, Repetitions: 2}
		next, err := Schedule(state, shared.Grade(grade), testToday)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, next.EaseFactor, MinEaseFactor, "grade %d", grade)
	}
}

func TestSchedule_PerfectSequenceNonDecreasingIntervals(t *testing.T) {
	state := NewSchedulingState()
	prev := 0
	for i := 0; i < 12; i++ {
		var err error
		state, err = Schedule(state, shared.Grade(5), testToday)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, state.IntervalDays, prev, "repetition %d", i)
		prev = state.IntervalDays
	}
}

func TestSchedule_OnboardingSequence(t *testing.T) {
	state := NewSchedulingState()

	state, err := Schedule(state, shared.Grade(4), testToday)
	require.NoError(t, err)
	assert.Equal(t, 1, state.IntervalDays)
	assert.Equal(t, 1, state.Repetitions)

	state, err = Schedule(state, shared.Grade(4), testToday)
	require.NoError(t, err)
	assert.Equal(t, 6, state.IntervalDays)
	assert.Equal(t, 2, state.Repetitions)
}

func TestSchedule_FailureResetsInterval(t *testing.T) {
	tests := []struct {
		name  string
		state SchedulingState
		grade int
	}{
		{"long interval, blackout", SchedulingState{IntervalDays: 120, EaseFactor: 2.8, Repetitions: 7}, 0},
		{"long interval, barely failed", SchedulingState{IntervalDays: 365, EaseFactor: 2.5, Repetitions: 10}, 2},
		{"short interval", SchedulingState{IntervalDays: 6, EaseFactor: 2.5, Repetitions: 2}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := Schedule(tt.state, shared.Grade(tt.grade), testToday)
			require.NoError(t, err)
			assert.Equal(t, 1, next.IntervalDays)
			assert.Equal(t, 0, next.Repetitions)
			// Failure still adjusts ease by the shared formula.
			assert.Less(t, next.EaseFactor, tt.state.EaseFactor)
		})
	}
}

func TestSchedule_WorkedExample(t *testing.T) {
	// ease 2.5, interval 6, third successful repetition, grade 5:
	// ease' = 2.5 + 0.1 = 2.6, interval' = round(6 * 2.6) = 16.
	state := SchedulingState{IntervalDays: 6, EaseFactor: 2.5, Repetitions: 3}

	next, err := Schedule(state, shared.Grade(5), testToday)
	require.NoError(t, err)

	assert.InDelta(t, 2.6, next.EaseFactor, 1e-9)
	assert.Equal(t, 16, next.IntervalDays)
	assert.Equal(t, 4, next.Repetitions)
	assert.Equal(t, timeutil.AddDays(testToday, 16), next.NextReviewDate)
}

func TestSchedule_Grade4Adjustment(t *testing.T) {
	// grade 4: ease' = ease + (0.1 - 1*(0.08 + 1*0.02)) = ease.
	state := SchedulingState{IntervalDays: 10, EaseFactor: 2.0, Repetitions: 5}

	next, err := Schedule(state, shared.Grade(4), testToday)
	require.NoError(t, err)

	assert.InDelta(t, 2.0, next.EaseFactor, 1e-9)
	assert.Equal(t, 20, next.IntervalDays)
}

func TestSchedule_Grade3Adjustment(t *testing.T) {
	// grade 3: ease' = ease + (0.1 - 2*(0.08 + 2*0.02)) = ease - 0.14.
	state := SchedulingState{IntervalDays: 10, EaseFactor: 2.5, Repetitions: 5}

	next, err := Schedule(state, shared.Grade(3), testToday)
	require.NoError(t, err)

	assert.InDelta(t, 2.36, next.EaseFactor, 1e-9)
}

func TestSchedule_NextReviewCrossesMonthBoundary(t *testing.T) {
	jan31 := timeutil.Date(2025, time.January, 31)
	state := NewSchedulingState()

	next, err := Schedule(state, shared.Grade(5), jan31)
	require.NoError(t, err)

	assert.Equal(t, timeutil.Date(2025, time.February, 1), next.NextReviewDate)
}

func TestSchedule_Deterministic(t *testing.T) {
	state := SchedulingState{IntervalDays: 14, EaseFactor: 2.21, Repetitions: 4}

	first, err := Schedule(state, shared.Grade(4), testToday)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		again, err := Schedule(state, shared.Grade(4), testToday)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestSchedule_DoesNotMutateInput(t *testing.T) {
	state := SchedulingState{IntervalDays: 6, EaseFactor: 2.5, Repetitions: 3}
	orig := state

	_, err := Schedule(state, shared.Grade(5), testToday)
	require.NoError(t, err)

	assert.Equal(t, orig, state)
}

func TestSchedule_PanicsOnCorruptEase(t *testing.T) {
	// A state below the floor can only come from a programming error and
	// must fail loudly, not get silently repaired.
	state := SchedulingState{IntervalDays: 6, EaseFactor: 1.0, Repetitions: 2}

	assert.Panics(t, func() {
		_, _ = Schedule(state, shared.Grade(4), testToday)
	})
}

func TestSchedulingState_IsDue(t *testing.T) {
	fresh := NewSchedulingState()
	assert.True(t, fresh.IsDue(testToday), "never-reviewed items are always due")

	scheduled := SchedulingState{NextReviewDate: timeutil.AddDays(testToday, 3)}
	assert.False(t, scheduled.IsDue(testToday))
	assert.True(t, scheduled.IsDue(timeutil.AddDays(testToday, 3)))
	assert.True(t, scheduled.IsDue(timeutil.AddDays(testToday, 10)))
}

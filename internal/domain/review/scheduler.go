package review

import (
	"math"
	"time"

	"github.com/studyhub/progression-core/internal/domain/shared"
	"github.com/studyhub/progression-core/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULING ENGINE (SM-2 variant)
// Pure function computing the next review interval and ease factor from a
// recall grade. No randomness: identical (state, grade, today) inputs give
// identical outputs.
// ══════════════════════════════════════════════════════════════════════════════

const (
	// MinEaseFactor is the hard floor for the ease factor. The floor is
	// the single documented clamp point of the engine and is never
	// bypassed, on success or failure.
	MinEaseFactor = 1.3

	// DefaultEaseFactor is the ease factor assigned to new items.
	DefaultEaseFactor = 2.5

	// firstInterval and secondInterval are the fixed onboarding intervals
	// (in days) for the first two successful repetitions. Only from the
	// third success onward does the interval grow multiplicatively.
	firstInterval  = 1
	secondInterval = 6
)

// SchedulingState is the spaced-repetition state of one reviewable item.
type SchedulingState struct {
	// IntervalDays is the current interval until the next review.
	IntervalDays int `json:"interval_days"`

	// EaseFactor governs interval growth. Always >= MinEaseFactor.
	EaseFactor float64 `json:"ease_factor"`

	// Repetitions counts consecutive successful reviews. Reset to zero
	// by any failed recall.
	Repetitions int `json:"repetitions"`

	// NextReviewDate is the calendar day the item becomes due.
	NextReviewDate time.Time `json:"next_review_date"`
}

// NewSchedulingState returns the state for a freshly created item:
// never reviewed, default ease, due immediately.
func NewSchedulingState() SchedulingState {
	return SchedulingState{
		IntervalDays: 0,
		EaseFactor:   DefaultEaseFactor,
		Repetitions:  0,
	}
}

// IsDue reports whether the item is due for review at the given time.
// Items with a zero NextReviewDate (never reviewed) are always due.
func (s SchedulingState) IsDue(t time.Time) bool {
	if s.NextReviewDate.IsZero() {
		return true
	}
	return !timeutil.DateOf(t).Before(timeutil.DateOf(s.NextReviewDate))
}

// Schedule applies one review answer to the scheduling state and returns
// the new state. The input state is not modified.
//
// Failed recall (grade < 3) resets the interval to one day and the
// repetition count to zero; the ease factor is still adjusted by the same
// formula as on success so repeated struggling keeps lowering it towards
// the floor. Successful recall walks the onboarding sequence (1 day, then
// 6 days) and thereafter multiplies the previous interval by the adjusted
// ease factor.
func Schedule(state SchedulingState, grade shared.Grade, today time.Time) (SchedulingState, error) {
	if !grade.IsValid() {
		return SchedulingState{}, shared.ErrInvalidGrade
	}
	shared.Assert(state.EaseFactor >= MinEaseFactor,
		"scheduling state has ease factor %v below floor", state.EaseFactor)

	next := state
	next.EaseFactor = adjustEase(state.EaseFactor, grade)

	if grade.IsFailure() {
		next.IntervalDays = firstInterval
		next.Repetitions = 0
	} else {
		switch state.Repetitions {
		case 0:
			next.IntervalDays = firstInterval
		case 1:
			next.IntervalDays = secondInterval
		default:
			next.IntervalDays = int(math.Round(float64(state.IntervalDays) * next.EaseFactor))
		}
		next.Repetitions = state.Repetitions + 1
	}

	next.NextReviewDate = timeutil.AddDays(timeutil.DateOf(today), next.IntervalDays)

	shared.Assert(next.EaseFactor >= MinEaseFactor,
		"schedule produced ease factor %v below floor", next.EaseFactor)
	return next, nil
}

// adjustEase applies the SM-2 ease adjustment for the given grade and
// clamps the result at the floor. The same formula runs for every grade;
// only the clamp keeps the factor from collapsing.
func adjustEase(ease float64, grade shared.Grade) float64 {
	q := float64(grade.Int())
	adjusted := ease + (0.1 - (5-q)*(0.08+(5-q)*0.02))
	if adjusted < MinEaseFactor {
		return MinEaseFactor
	}
	return adjusted
}

package progression

import (
	"time"

	"github.com/studyhub/progression-core/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK (consecutive active days)
// ══════════════════════════════════════════════════════════════════════════════

// DefaultMilestones are the streak lengths that trigger a milestone
// notification when crossed.
var DefaultMilestones = []int{7, 30, 60, 90, 180}

// StreakState tracks a student's run of consecutive active calendar days.
type StreakState struct {
	// Current is the length of the active streak. Never negative.
	Current int `json:"current"`

	// Longest is the best streak ever reached.
	Longest int `json:"longest"`

	// LastActiveDate is the most recent day with qualifying activity,
	// stored at start-of-day. Only ever moves forward: a late-arriving
	// older event cannot regress it.
	LastActiveDate time.Time `json:"last_active_date"`
}

// StreakUpdate describes the outcome of applying one activity date.
type StreakUpdate struct {
	// Previous is the streak length before the update.
	Previous int

	// Current is the streak length after the update.
	Current int

	// Longest is the best streak after the update.
	Longest int

	// Reset is true when a gap broke the previous streak.
	Reset bool

	// Milestones are the configured thresholds crossed by this update,
	// each reported exactly once: values in (Previous, Current].
	Milestones []int
}

// Changed reports whether the update moved the streak at all.
func (u StreakUpdate) Changed() bool {
	return u.Current != u.Previous
}

// Update applies one day of activity to the streak.
//
// Same-day repeat activity is a no-op (no double count). Activity on the
// day immediately after LastActiveDate extends the streak by one; any
// larger gap resets it to 1. Dates older than LastActiveDate are ignored
// entirely, which guards against out-of-order event delivery. All day
// arithmetic goes through timeutil so month and year boundaries behave.
func (s *StreakState) Update(activityDate time.Time, milestones []int) StreakUpdate {
	day := timeutil.DateOf(activityDate)
	update := StreakUpdate{
		Previous: s.Current,
		Current:  s.Current,
		Longest:  s.Longest,
	}

	switch {
	case s.LastActiveDate.IsZero():
		// First ever activity.
		s.Current = 1
		s.LastActiveDate = day

	case day.Before(s.LastActiveDate):
		// Late-arriving older event: ignore.
		return update

	case timeutil.SameDay(day, s.LastActiveDate):
		// Same-day repeat: dedup.
		return update

	case timeutil.IsNextDay(s.LastActiveDate, day):
		s.Current++
		s.LastActiveDate = day

	default:
		// Missed at least one full day.
		s.Current = 1
		s.LastActiveDate = day
		update.Reset = update.Previous > 0
	}

	if s.Current > s.Longest {
		s.Longest = s.Current
	}

	update.Current = s.Current
	update.Longest = s.Longest
	update.Milestones = crossedMilestones(update.Previous, update.Current, milestones)
	return update
}

// AtRisk reports whether the streak breaks unless the student is active
// on the given day: the last activity was exactly yesterday.
func (s *StreakState) AtRisk(today time.Time) bool {
	if s.Current == 0 || s.LastActiveDate.IsZero() {
		return false
	}
	return timeutil.IsNextDay(s.LastActiveDate, today)
}

// crossedMilestones returns the thresholds in (old, new], in ascending
// order. A threshold is reported only on the update that crosses it.
func crossedMilestones(old, new int, thresholds []int) []int {
	if new <= old {
		return nil
	}
	var crossed []int
	for _, t := range thresholds {
		if t > old && t <= new {
			crossed = append(crossed, t)
		}
	}
	return crossed
}

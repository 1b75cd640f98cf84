package progression

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/studyhub/progression-core/pkg/timeutil"
)

func TestStreakFirstActivity(t *testing.T) {
	var s StreakState
	update := s.Update(timeutil.Date(2026, 3, 10), DefaultMilestones)

	assert.Equal(t, 1, update.Current)
	assert.Equal(t, 0, update.Previous)
	assert.Equal(t, 1, s.Longest)
	assert.False(t, update.Reset)
	assert.Empty(t, update.Milestones)
}

func TestStreakSameDayDedup(t *testing.T) {
	var s StreakState
	day := timeutil.Date(2026, 3, 10)
	s.Update(day, DefaultMilestones)

	// Second activity on the same day, at a later wall-clock time.
	update := s.Update(day.Add(14*time.Hour), DefaultMilestones)

	assert.Equal(t, 1, update.Current)
	assert.False(t, update.Changed())
	assert.Empty(t, update.Milestones)
}

func TestStreakConsecutiveDays(t *testing.T) {
	var s StreakState
	day := timeutil.Date(2026, 3, 1)
	for i := 0; i < 5; i++ {
		s.Update(timeutil.AddDays(day, i), DefaultMilestones)
	}

	assert.Equal(t, 5, s.Current)
	assert.Equal(t, 5, s.Longest)
}

func TestStreakAcrossMonthBoundary(t *testing.T) {
	var s StreakState
	s.Update(timeutil.Date(2026, 1, 31), DefaultMilestones)
	update := s.Update(timeutil.Date(2026, 2, 1), DefaultMilestones)

	assert.Equal(t, 2, update.Current)
	assert.False(t, update.Reset)
}

func TestStreakAcrossYearBoundary(t *testing.T) {
	var s StreakState
	s.Update(timeutil.Date(2025, 12, 31), DefaultMilestones)
	update := s.Update(timeutil.Date(2026, 1, 1), DefaultMilestones)

	assert.Equal(t, 2, update.Current)
}

func TestStreakGapResets(t *testing.T) {
	var s StreakState
	day := timeutil.Date(2026, 3, 1)
	for i := 0; i < 9; i++ {
		s.Update(timeutil.AddDays(day, i), DefaultMilestones)
	}
	assert.Equal(t, 9, s.Current)

	// Two-day gap.
	update := s.Update(timeutil.AddDays(day, 11), DefaultMilestones)

	assert.Equal(t, 1, update.Current)
	assert.True(t, update.Reset)
	assert.Equal(t, 9, s.Longest, "longest survives the reset")
	assert.Empty(t, update.Milestones)
}

func TestStreakIgnoresOutOfOrderDates(t *testing.T) {
	var s StreakState
	s.Update(timeutil.Date(2026, 3, 10), DefaultMilestones)
	s.Update(timeutil.Date(2026, 3, 11), DefaultMilestones)

	update := s.Update(timeutil.Date(2026, 3, 5), DefaultMilestones)

	assert.Equal(t, 2, update.Current)
	assert.False(t, update.Changed())
	assert.Equal(t, timeutil.Date(2026, 3, 11), s.LastActiveDate)
}

func TestStreakMilestoneCrossing(t *testing.T) {
	var s StreakState
	day := timeutil.Date(2026, 3, 1)

	var fired []int
	for i := 0; i < 30; i++ {
		update := s.Update(timeutil.AddDays(day, i), DefaultMilestones)
		fired = append(fired, update.Milestones...)
	}

	assert.Equal(t, []int{7, 30}, fired, "each milestone fires exactly once")
}

func TestCrossedMilestonesRange(t *testing.T) {
	tests := []struct {
		name string
		old  int
		new  int
		want []int
	}{
		{"crossing seven", 6, 7, []int{7}},
		{"crossing thirty", 29, 30, []int{30}},
		{"jump over several", 6, 31, []int{7, 30}},
		{"no crossing", 7, 8, nil},
		{"reset", 10, 1, nil},
		{"unchanged", 7, 7, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, crossedMilestones(tt.old, tt.new, DefaultMilestones))
		})
	}
}

func TestStreakAtRisk(t *testing.T) {
	var s StreakState
	s.Update(timeutil.Date(2026, 3, 10), DefaultMilestones)

	assert.False(t, s.AtRisk(timeutil.Date(2026, 3, 10)), "active today")
	assert.True(t, s.AtRisk(timeutil.Date(2026, 3, 11)), "breaks without activity today")
	assert.False(t, s.AtRisk(timeutil.Date(2026, 3, 12)), "already broken")

	var fresh StreakState
	assert.False(t, fresh.AtRisk(timeutil.Date(2026, 3, 11)), "no streak to lose")
}

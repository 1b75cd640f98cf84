package progression

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/progression-core/internal/domain/shared"
	"github.com/studyhub/progression-core/pkg/timeutil"
)

func TestNewRequirementBuildsEveryKind(t *testing.T) {
	kinds := []RequirementKind{
		KindSessionsCompleted, KindStreakDays, KindLevel, KindTotalXP,
		KindOutcomesMastered, KindPerfectSessions, KindFlashcardsReviewed,
	}
	for _, kind := range kinds {
		req, err := NewRequirement(kind, 10, "")
		require.NoError(t, err, "kind %s", kind)
		assert.Equal(t, kind, req.Kind())
		assert.Equal(t, 10, req.Target())
	}

	req, err := NewRequirement(KindSubjectSessions, 5, "physics")
	require.NoError(t, err)
	scoped, ok := req.(SubjectScoped)
	require.True(t, ok)
	assert.Equal(t, shared.SubjectID("physics"), scoped.Subject())
}

func TestNewRequirementRejectsBadInput(t *testing.T) {
	_, err := NewRequirement(KindLevel, 0, "")
	assert.ErrorIs(t, err, shared.ErrValueOutOfRange)

	_, err = NewRequirement(KindSubjectSessions, 5, "")
	assert.ErrorIs(t, err, shared.ErrEmptyValue)

	_, err = NewRequirement(RequirementKind("vibes"), 5, "")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestRequirementCurrentValues(t *testing.T) {
	stats := StudentStats{
		SessionsCompleted:  12,
		PerfectSessions:    3,
		FlashcardsReviewed: 240,
		OutcomesMastered:   7,
		StreakDays:         9,
		Level:              4,
		TotalXP:            1150,
		SubjectSessions:    map[shared.SubjectID]int{"chemistry": 5},
	}

	tests := []struct {
		req  Requirement
		want int
	}{
		{SessionsCompletedRequirement{TargetCount: 25}, 12},
		{StreakDaysRequirement{TargetDays: 30}, 9},
		{LevelRequirement{TargetLevel: 10}, 4},
		{TotalXPRequirement{TargetXP: 10000}, 1150},
		{OutcomesMasteredRequirement{TargetCount: 10}, 7},
		{PerfectSessionsRequirement{TargetCount: 5}, 3},
		{FlashcardsReviewedRequirement{TargetCount: 500}, 240},
		{SubjectSessionsRequirement{SubjectRef: "chemistry", TargetCount: 10}, 5},
		{SubjectSessionsRequirement{SubjectRef: "biology", TargetCount: 10}, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.req.CurrentValue(stats), "%s", tt.req.Kind())
	}
}

func TestProgressForLocked(t *testing.T) {
	def := AchievementDefinition{
		ID:          "sessions_25",
		Name:        "Regular",
		Requirement: SessionsCompletedRequirement{TargetCount: 25},
		Active:      true,
	}
	stats := StudentStats{SessionsCompleted: 12}

	progress := ProgressFor(def, stats, time.Time{}, false)

	assert.Equal(t, 48, progress.Percent)
	assert.Equal(t, "12/25", progress.Display)
	assert.False(t, progress.Unlocked)
}

func TestProgressForUnlockedAlwaysFull(t *testing.T) {
	def := AchievementDefinition{
		ID:          "streak_7",
		Name:        "One Week Strong",
		Requirement: StreakDaysRequirement{TargetDays: 7},
		Active:      true,
	}
	unlockedAt := timeutil.Date(2026, 2, 14)

	// Streak has since reset to 1; the unlock must not regress.
	progress := ProgressFor(def, StudentStats{StreakDays: 1}, unlockedAt, true)

	assert.Equal(t, 100, progress.Percent)
	assert.Equal(t, "7/7", progress.Display)
	assert.True(t, progress.Unlocked)
	assert.Equal(t, unlockedAt, progress.UnlockedAt)
}

func TestProgressForClampsOvershoot(t *testing.T) {
	def := AchievementDefinition{
		ID:          "xp_10000",
		Requirement: TotalXPRequirement{TargetXP: 10000},
		Active:      true,
	}

	// Qualified but not yet unlocked (evaluation races are possible when
	// definitions activate later). Progress still tops out at 100.
	progress := ProgressFor(def, StudentStats{TotalXP: 15000}, time.Time{}, false)

	assert.Equal(t, 100, progress.Percent)
	assert.Equal(t, "10000/10000", progress.Display)
}

func TestNewlyQualified(t *testing.T) {
	profile := newTestProfile(t)
	now := timeutil.Date(2026, 3, 1)
	defs := []AchievementDefinition{
		{ID: "first_session", Requirement: SessionsCompletedRequirement{TargetCount: 1}, RewardXP: 50, Active: true},
		{ID: "sessions_25", Requirement: SessionsCompletedRequirement{TargetCount: 25}, RewardXP: 200, Active: true},
		{ID: "inactive", Requirement: SessionsCompletedRequirement{TargetCount: 1}, RewardXP: 10, Active: false},
	}
	stats := StudentStats{SessionsCompleted: 1}

	unlocks := NewlyQualified(profile, stats, defs, now)

	require.Len(t, unlocks, 1)
	assert.Equal(t, AchievementID("first_session"), unlocks[0].Definition.ID)
	assert.Equal(t, now, unlocks[0].UnlockedAt)
}

func TestNewlyQualifiedSkipsAlreadyUnlocked(t *testing.T) {
	profile := newTestProfile(t)
	now := timeutil.Date(2026, 3, 1)
	profile.Unlock("first_session", timeutil.Date(2026, 2, 1))

	defs := []AchievementDefinition{
		{ID: "first_session", Requirement: SessionsCompletedRequirement{TargetCount: 1}, Active: true},
	}

	unlocks := NewlyQualified(profile, StudentStats{SessionsCompleted: 40}, defs, now)
	assert.Empty(t, unlocks, "an achievement unlocks at most once")
}

func TestUnlockIsMonotonic(t *testing.T) {
	profile := newTestProfile(t)
	first := timeutil.Date(2026, 2, 1)

	assert.True(t, profile.Unlock("streak_7", first))
	assert.False(t, profile.Unlock("streak_7", timeutil.Date(2026, 3, 1)))
	assert.Equal(t, first, profile.Unlocked["streak_7"], "original unlock time kept")
}

func TestDefaultDefinitionsAreValid(t *testing.T) {
	defs := DefaultDefinitions()
	require.NotEmpty(t, defs)

	seen := make(map[AchievementID]bool)
	for _, def := range defs {
		assert.NoError(t, def.Validate(), "definition %s", def.ID)
		assert.False(t, seen[def.ID], "duplicate id %s", def.ID)
		seen[def.ID] = true
	}
}

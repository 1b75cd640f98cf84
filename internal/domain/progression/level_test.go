package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/studyhub/progression-core/internal/domain/shared"
)

func TestLevelThresholdsStrictlyIncrease(t *testing.T) {
	for i := 1; i < len(levelThresholds); i++ {
		assert.Greater(t, levelThresholds[i], levelThresholds[i-1],
			"threshold for level %d must exceed level %d", i+1, i)
	}
	assert.Equal(t, 0, levelThresholds[0], "level 1 starts at zero XP")
}

func TestLevelForXP(t *testing.T) {
	tests := []struct {
		xp   int
		want shared.Level
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{249, 2},
		{250, 3},
		{900, 5},
		{levelThresholds[len(levelThresholds)-1], MaxLevel},
		{levelThresholds[len(levelThresholds)-1] * 2, MaxLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelForXP(shared.XP(tt.xp)), "xp=%d", tt.xp)
	}
}

func TestThresholdForLevelRoundTrips(t *testing.T) {
	for level := shared.MinLevel; level <= MaxLevel; level++ {
		threshold := ThresholdForLevel(level)
		assert.Equal(t, level, LevelForXP(threshold), "level %d at its own threshold", level)
	}
}

func TestCheckLevelUpSingleStep(t *testing.T) {
	up, ok := CheckLevelUp(shared.XP(0), shared.XP(100))

	assert.True(t, ok)
	assert.Equal(t, shared.Level(1), up.From)
	assert.Equal(t, shared.Level(2), up.To)
}

func TestCheckLevelUpMultiLevelJumpReportsFinalLevel(t *testing.T) {
	// A large reward can cross several thresholds in one award.
	up, ok := CheckLevelUp(shared.XP(0), ThresholdForLevel(5))

	assert.True(t, ok)
	assert.Equal(t, shared.Level(5), up.To)
	assert.Equal(t, "Apprentice", up.Title)
}

func TestCheckLevelUpNoChange(t *testing.T) {
	_, ok := CheckLevelUp(shared.XP(120), shared.XP(180))
	assert.False(t, ok)
}

func TestTitleForLevelPersistsBetweenMilestones(t *testing.T) {
	assert.Equal(t, "Novice", TitleForLevel(1))
	assert.Equal(t, "Novice", TitleForLevel(4))
	assert.Equal(t, "Apprentice", TitleForLevel(5))
	assert.Equal(t, "Apprentice", TitleForLevel(9))
	assert.Equal(t, "Scholar", TitleForLevel(10))
	assert.Equal(t, "Grandmaster", TitleForLevel(MaxLevel))
}

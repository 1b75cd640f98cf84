package progression

import (
	"github.com/studyhub/progression-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEVELS AND TITLES
// ══════════════════════════════════════════════════════════════════════════════

// levelThresholds[i] is the cumulative XP required to reach level i+1.
// The table is strictly increasing; level 1 starts at zero. XP beyond the
// last entry stays at the top level.
var levelThresholds = []int{
	0,      // 1
	100,    // 2
	250,    // 3
	500,    // 4
	900,    // 5
	1400,   // 6
	2100,   // 7
	3000,   // 8
	4100,   // 9
	5400,   // 10
	7000,   // 11
	9000,   // 12
	11500,  // 13
	14500,  // 14
	18000,  // 15
	22000,  // 16
	26500,  // 17
	31500,  // 18
	37000,  // 19
	43000,  // 20
	50000,  // 21
	58000,  // 22
	67000,  // 23
	77000,  // 24
	88000,  // 25
	100000, // 26
	113000, // 27
	127000, // 28
	142000, // 29
	158000, // 30
}

// levelTitles maps milestone levels to display titles. Between milestones
// the last reached title persists.
var levelTitles = []struct {
	level int
	title string
}{
	{1, "Novice"},
	{5, "Apprentice"},
	{10, "Scholar"},
	{15, "Specialist"},
	{20, "Expert"},
	{25, "Master"},
	{30, "Grandmaster"},
}

// MaxLevel is the highest level the threshold table defines.
var MaxLevel = shared.Level(len(levelThresholds))

// LevelForXP returns the level a cumulative XP total corresponds to.
func LevelForXP(xp shared.XP) shared.Level {
	level := shared.MinLevel
	for i, threshold := range levelThresholds {
		if int(xp) < threshold {
			break
		}
		level = shared.Level(i + 1)
	}
	return level
}

// ThresholdForLevel returns the cumulative XP required to reach the given
// level. Levels beyond the table return the top threshold.
func ThresholdForLevel(level shared.Level) shared.XP {
	if level < shared.MinLevel {
		level = shared.MinLevel
	}
	if int(level) > len(levelThresholds) {
		level = MaxLevel
	}
	return shared.XP(levelThresholds[int(level)-1])
}

// TitleForLevel returns the display title for a level. Titles are sparse:
// between milestones the most recently earned title applies.
func TitleForLevel(level shared.Level) string {
	title := levelTitles[0].title
	for _, entry := range levelTitles {
		if int(level) < entry.level {
			break
		}
		title = entry.title
	}
	return title
}

// LevelUp describes a level change caused by an XP award. A single large
// award can jump several levels at once; only the final landing level is
// reported.
type LevelUp struct {
	From  shared.Level
	To    shared.Level
	Title string
}

// CheckLevelUp compares the levels implied by two XP totals and reports
// the transition, if any.
func CheckLevelUp(oldXP, newXP shared.XP) (LevelUp, bool) {
	from := LevelForXP(oldXP)
	to := LevelForXP(newXP)
	if to <= from {
		return LevelUp{}, false
	}
	return LevelUp{From: from, To: to, Title: TitleForLevel(to)}, true
}

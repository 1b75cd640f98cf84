package progression

import (
	"math"
	"time"

	"github.com/studyhub/progression-core/internal/domain/shared"
	"github.com/studyhub/progression-core/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACTIVITY TYPES AND XP RULES
// ══════════════════════════════════════════════════════════════════════════════

// ActivityType identifies a kind of qualifying student activity.
type ActivityType string

const (
	ActivityFlashcardReview ActivityType = "flashcard_review"
	ActivityStudySession    ActivityType = "study_session"
	ActivityPracticeQuiz    ActivityType = "practice_quiz"
	ActivityNotesUpload     ActivityType = "notes_upload"
	ActivityTutorSession    ActivityType = "tutor_session"
)

// XPRule defines how one activity type earns XP.
type XPRule struct {
	// BaseXP is awarded per activity regardless of performance.
	BaseXP int

	// PerCorrect is awarded per correct answer within the activity.
	PerCorrect int

	// DailyCap bounds the XP this activity type can earn per student per
	// day. Zero means uncapped.
	DailyCap int
}

// RuleTable maps activity types to their XP rules.
type RuleTable map[ActivityType]XPRule

// DefaultRules returns the standard rule table.
func DefaultRules() RuleTable {
	return RuleTable{
		ActivityFlashcardReview: {BaseXP: 10, PerCorrect: 2, DailyCap: 500},
		ActivityStudySession:    {BaseXP: 50, PerCorrect: 5, DailyCap: 1000},
		ActivityPracticeQuiz:    {BaseXP: 30, PerCorrect: 5, DailyCap: 600},
		ActivityNotesUpload:     {BaseXP: 20, PerCorrect: 0, DailyCap: 100},
		ActivityTutorSession:    {BaseXP: 75, PerCorrect: 0, DailyCap: 300},
	}
}

// Rule looks up the rule for an activity type.
func (t RuleTable) Rule(activityType ActivityType) (XPRule, error) {
	rule, ok := t[activityType]
	if !ok {
		return XPRule{}, shared.ErrUnknownActivityType
	}
	return rule, nil
}

// BaseAmount computes the raw XP an activity earns before streak
// multipliers and daily caps.
func (t RuleTable) BaseAmount(activityType ActivityType, correct int) (int, error) {
	rule, err := t.Rule(activityType)
	if err != nil {
		return 0, err
	}
	if correct < 0 {
		correct = 0
	}
	return rule.BaseXP + rule.PerCorrect*correct, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// STREAK MULTIPLIER
// ══════════════════════════════════════════════════════════════════════════════

// MaxStreakMultiplier bounds the streak bonus.
const MaxStreakMultiplier = 1.5

// MultiplierStep is one rung of the streak multiplier ladder.
type MultiplierStep struct {
	MinStreak int
	Factor    float64
}

// DefaultMultiplierSteps returns the standard ladder, ascending by streak.
func DefaultMultiplierSteps() []MultiplierStep {
	return []MultiplierStep{
		{MinStreak: 3, Factor: 1.1},
		{MinStreak: 7, Factor: 1.2},
		{MinStreak: 14, Factor: 1.3},
		{MinStreak: 30, Factor: 1.5},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// XP LEDGER
// ══════════════════════════════════════════════════════════════════════════════

// Ledger awards XP according to a rule table and a streak multiplier
// ladder, enforcing per-activity daily caps.
type Ledger struct {
	rules RuleTable
	steps []MultiplierStep
}

// NewLedger builds a ledger. Nil rules or steps fall back to the defaults.
func NewLedger(rules RuleTable, steps []MultiplierStep) *Ledger {
	if rules == nil {
		rules = DefaultRules()
	}
	if steps == nil {
		steps = DefaultMultiplierSteps()
	}
	for i, step := range steps {
		shared.Assert(step.Factor >= 1.0 && step.Factor <= MaxStreakMultiplier,
			"multiplier step %d factor %.2f out of range", i, step.Factor)
		if i > 0 {
			shared.Assert(step.MinStreak > steps[i-1].MinStreak,
				"multiplier steps must ascend by streak")
			shared.Assert(step.Factor >= steps[i-1].Factor,
				"multiplier steps must not decrease")
		}
	}
	return &Ledger{rules: rules, steps: steps}
}

// Rules exposes the ledger's rule table.
func (l *Ledger) Rules() RuleTable {
	return l.rules
}

// MultiplierFor returns the streak bonus factor for a streak length.
func (l *Ledger) MultiplierFor(streak int) float64 {
	factor := 1.0
	for _, step := range l.steps {
		if streak < step.MinStreak {
			break
		}
		factor = step.Factor
	}
	return factor
}

// Grant is the outcome of one XP award.
type Grant struct {
	ActivityType ActivityType

	// Requested is the amount after the streak multiplier, before the cap.
	Requested int

	// Granted is the amount actually credited. Zero when the cap was
	// already exhausted.
	Granted int

	// Capped is true when the daily cap trimmed the award.
	Capped bool

	// Multiplier is the streak factor that was applied.
	Multiplier float64
}

// Award applies the streak multiplier to a base amount, enforces the
// activity type's daily cap against the profile's ledger for the current
// day, and credits whatever remains. When the cap leaves partial room the
// remainder is granted; when it is exhausted nothing is credited but the
// call still succeeds so the rest of the activity outcome (streak,
// achievements) proceeds.
//
// The cap day boundary is the fixed reference zone midnight, so a student
// cannot reset their allowance by changing device timezone.
func (l *Ledger) Award(profile *EngagementProfile, activityType ActivityType, baseAmount int, subject shared.SubjectID, streak int, now time.Time) (Grant, error) {
	rule, err := l.rules.Rule(activityType)
	if err != nil {
		return Grant{}, err
	}
	if baseAmount < 0 {
		return Grant{}, shared.NewDomainError("progression", "Award", shared.ErrNegativeValue, "base amount must be non-negative")
	}

	multiplier := l.MultiplierFor(streak)
	requested := int(math.Round(float64(baseAmount) * multiplier))

	grant := Grant{
		ActivityType: activityType,
		Requested:    requested,
		Granted:      requested,
		Multiplier:   multiplier,
	}

	day := timeutil.DateOf(now)
	profile.Daily.rollover(day)

	if rule.DailyCap > 0 {
		remaining := rule.DailyCap - profile.Daily.earnedFor(activityType)
		if remaining < 0 {
			remaining = 0
		}
		if requested > remaining {
			grant.Granted = remaining
			grant.Capped = true
		}
	}
	shared.Assert(grant.Granted >= 0, "grant must be non-negative, got %d", grant.Granted)

	profile.credit(activityType, subject, grant.Granted)
	return grant, nil
}

package progression

import (
	"time"

	"github.com/studyhub/progression-core/internal/domain/shared"
	"github.com/studyhub/progression-core/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENGAGEMENT PROFILE (aggregate root)
// ══════════════════════════════════════════════════════════════════════════════

// EngagementProfile is the per-student progression aggregate: XP totals,
// level, streak, daily cap ledger, lifetime counters and unlocked
// achievements. It is persisted atomically with optimistic concurrency;
// Version is the guard column.
type EngagementProfile struct {
	StudentID shared.StudentID
	TotalXP   shared.XP
	Level     shared.Level

	// SubjectXP tracks cumulative XP per subject for per-subject stats.
	SubjectXP map[shared.SubjectID]shared.XP

	Streak StreakState

	// Daily is the cap ledger for the current reference-zone day.
	Daily DailyLedger

	// Unlocked maps achievement IDs to their unlock time. Entries are
	// never removed: unlocks are monotonic.
	Unlocked map[AchievementID]time.Time

	Totals ActivityTotals

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewProfile creates a fresh profile for a student who has no recorded
// activity yet.
func NewProfile(studentID shared.StudentID, now time.Time) (*EngagementProfile, error) {
	if err := studentID.Validate(); err != nil {
		return nil, err
	}
	return &EngagementProfile{
		StudentID: studentID,
		TotalXP:   shared.MinXP,
		Level:     shared.MinLevel,
		SubjectXP: make(map[shared.SubjectID]shared.XP),
		Unlocked:  make(map[AchievementID]time.Time),
		Totals:    NewActivityTotals(),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsUnlocked reports whether an achievement has already been unlocked.
func (p *EngagementProfile) IsUnlocked(id AchievementID) bool {
	_, ok := p.Unlocked[id]
	return ok
}

// Unlock records an achievement unlock. Returns false if it was already
// unlocked; an unlocked achievement never re-fires.
func (p *EngagementProfile) Unlock(id AchievementID, at time.Time) bool {
	if p.IsUnlocked(id) {
		return false
	}
	if p.Unlocked == nil {
		p.Unlocked = make(map[AchievementID]time.Time)
	}
	p.Unlocked[id] = at
	return true
}

// credit adds granted XP to the running totals and the daily ledger.
// Zero grants are recorded as activity but add nothing.
func (p *EngagementProfile) credit(activityType ActivityType, subject shared.SubjectID, granted int) {
	if granted <= 0 {
		return
	}
	p.TotalXP = p.TotalXP.Add(granted)
	if subject != "" {
		if p.SubjectXP == nil {
			p.SubjectXP = make(map[shared.SubjectID]shared.XP)
		}
		p.SubjectXP[subject] = p.SubjectXP[subject].Add(granted)
	}
	p.Daily.add(activityType, granted)
}

// CreditReward adds achievement reward XP directly, outside the daily cap
// ledger. Rewards are one-shot and do not count against activity caps.
func (p *EngagementProfile) CreditReward(amount shared.XP) {
	if amount <= 0 {
		return
	}
	p.TotalXP = p.TotalXP.Add(int(amount))
}

// RecordActivityOutcome updates the lifetime counters for one processed
// activity. Sessions and quizzes count toward session totals and the
// perfect-session counter; flashcard reviews accumulate the reviewed-card
// counter. Mastered outcomes accumulate for every activity type.
func (p *EngagementProfile) RecordActivityOutcome(activityType ActivityType, subject shared.SubjectID, metrics ActivityMetrics) {
	switch activityType {
	case ActivityStudySession, ActivityPracticeQuiz, ActivityTutorSession:
		p.Totals.SessionsCompleted++
		if subject != "" {
			p.Totals.SubjectSessions[subject]++
		}
		if metrics.IsPerfect() {
			p.Totals.PerfectSessions++
		}
	case ActivityFlashcardReview:
		p.Totals.FlashcardsReviewed += metrics.ItemsReviewed
	}
	for _, outcome := range metrics.MasteredOutcomes {
		p.Totals.OutcomesMastered[outcome] = struct{}{}
	}
}

// Stats snapshots the profile into the flat counters achievement
// requirements evaluate against.
func (p *EngagementProfile) Stats() StudentStats {
	subjectSessions := make(map[shared.SubjectID]int, len(p.Totals.SubjectSessions))
	for subject, count := range p.Totals.SubjectSessions {
		subjectSessions[subject] = count
	}
	return StudentStats{
		SessionsCompleted:  p.Totals.SessionsCompleted,
		PerfectSessions:    p.Totals.PerfectSessions,
		FlashcardsReviewed: p.Totals.FlashcardsReviewed,
		OutcomesMastered:   len(p.Totals.OutcomesMastered),
		StreakDays:         p.Streak.Current,
		Level:              int(p.Level),
		TotalXP:            int(p.TotalXP),
		SubjectSessions:    subjectSessions,
	}
}

// Touch bumps the modification timestamp.
func (p *EngagementProfile) Touch(now time.Time) {
	p.UpdatedAt = now
}

// ══════════════════════════════════════════════════════════════════════════════
// DAILY CAP LEDGER
// ══════════════════════════════════════════════════════════════════════════════

// DailyLedger records XP earned per activity type for a single
// reference-zone day. It rolls over lazily on the first award of a new
// day, so no midnight job is needed.
type DailyLedger struct {
	Date   time.Time            `json:"date"`
	Earned map[ActivityType]int `json:"earned"`
}

// EarnedOn reports the XP already earned for an activity type on a given
// day. Days other than the ledger's current day report zero.
func (d *DailyLedger) EarnedOn(day time.Time, activityType ActivityType) int {
	if d.Earned == nil || !timeutil.SameDay(d.Date, timeutil.DateOf(day)) {
		return 0
	}
	return d.Earned[activityType]
}

func (d *DailyLedger) earnedFor(activityType ActivityType) int {
	if d.Earned == nil {
		return 0
	}
	return d.Earned[activityType]
}

// rollover advances the ledger to day. The ledger only moves forward: a
// late-arriving award dated before the current day draws on the current
// day's remaining allowance instead of reopening a spent one, so a spent
// cap stays spent no matter how events are ordered.
func (d *DailyLedger) rollover(day time.Time) {
	if d.Earned == nil {
		d.Date = day
		d.Earned = make(map[ActivityType]int)
		return
	}
	if day.After(d.Date) {
		d.Date = day
		d.Earned = make(map[ActivityType]int)
	}
}

func (d *DailyLedger) add(activityType ActivityType, amount int) {
	if d.Earned == nil {
		d.Earned = make(map[ActivityType]int)
	}
	d.Earned[activityType] += amount
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFETIME COUNTERS
// ══════════════════════════════════════════════════════════════════════════════

// ActivityTotals are the monotonically growing lifetime counters the
// achievement requirements read.
type ActivityTotals struct {
	SessionsCompleted  int
	PerfectSessions    int
	FlashcardsReviewed int
	OutcomesMastered   map[shared.OutcomeID]struct{}
	SubjectSessions    map[shared.SubjectID]int
}

// NewActivityTotals returns zeroed counters with initialized maps.
func NewActivityTotals() ActivityTotals {
	return ActivityTotals{
		OutcomesMastered: make(map[shared.OutcomeID]struct{}),
		SubjectSessions:  make(map[shared.SubjectID]int),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ACTIVITY METRICS
// ══════════════════════════════════════════════════════════════════════════════

// ActivityMetrics carries the performance numbers of one activity event.
type ActivityMetrics struct {
	// Attempted and Correct are question counts for graded activities.
	Attempted int
	Correct   int

	// ItemsReviewed is the number of flashcards touched in a review run.
	ItemsReviewed int

	// MasteredOutcomes are curriculum outcomes this activity mastered.
	MasteredOutcomes []shared.OutcomeID
}

// IsPerfect reports whether the activity was a perfect session: at least
// one question attempted and every answer correct. Zero attempts never
// count as perfect.
func (m ActivityMetrics) IsPerfect() bool {
	return m.Attempted > 0 && m.Correct == m.Attempted
}

// Validate checks the metric counts for internal consistency.
func (m ActivityMetrics) Validate() error {
	if m.Attempted < 0 || m.Correct < 0 || m.ItemsReviewed < 0 {
		return shared.NewDomainError("progression", "ActivityMetrics", shared.ErrNegativeValue, "metric counts must be non-negative")
	}
	if m.Correct > m.Attempted {
		return shared.NewDomainError("progression", "ActivityMetrics", shared.ErrInvalidInput, "correct count exceeds attempted count")
	}
	return nil
}

package progression

import (
	"fmt"
	"time"

	"github.com/studyhub/progression-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT REQUIREMENTS (closed union)
// ══════════════════════════════════════════════════════════════════════════════

// AchievementID identifies an achievement definition.
type AchievementID string

// RequirementKind discriminates the requirement union.
type RequirementKind string

const (
	KindSessionsCompleted  RequirementKind = "sessions_completed"
	KindStreakDays         RequirementKind = "streak_days"
	KindLevel              RequirementKind = "level"
	KindTotalXP            RequirementKind = "total_xp"
	KindOutcomesMastered   RequirementKind = "outcomes_mastered"
	KindPerfectSessions    RequirementKind = "perfect_sessions"
	KindFlashcardsReviewed RequirementKind = "flashcards_reviewed"
	KindSubjectSessions    RequirementKind = "subject_sessions"
)

// Requirement is one achievement criterion. The set of implementations is
// closed: adding a kind means adding a type here and a case to
// NewRequirement, so an unknown kind can never evaluate silently.
type Requirement interface {
	Kind() RequirementKind
	Target() int

	// CurrentValue extracts the relevant counter from a stats snapshot.
	CurrentValue(stats StudentStats) int
}

// SubjectScoped is implemented by requirements bound to one subject.
type SubjectScoped interface {
	Subject() shared.SubjectID
}

type SessionsCompletedRequirement struct{ TargetCount int }

func (r SessionsCompletedRequirement) Kind() RequirementKind { return KindSessionsCompleted }
func (r SessionsCompletedRequirement) Target() int           { return r.TargetCount }
func (r SessionsCompletedRequirement) CurrentValue(stats StudentStats) int {
	return stats.SessionsCompleted
}

type StreakDaysRequirement struct{ TargetDays int }

func (r StreakDaysRequirement) Kind() RequirementKind                { return KindStreakDays }
func (r StreakDaysRequirement) Target() int                          { return r.TargetDays }
func (r StreakDaysRequirement) CurrentValue(stats StudentStats) int  { return stats.StreakDays }

type LevelRequirement struct{ TargetLevel int }

func (r LevelRequirement) Kind() RequirementKind               { return KindLevel }
func (r LevelRequirement) Target() int                         { return r.TargetLevel }
func (r LevelRequirement) CurrentValue(stats StudentStats) int { return stats.Level }

type TotalXPRequirement struct{ TargetXP int }

func (r TotalXPRequirement) Kind() RequirementKind               { return KindTotalXP }
func (r TotalXPRequirement) Target() int                         { return r.TargetXP }
func (r TotalXPRequirement) CurrentValue(stats StudentStats) int { return stats.TotalXP }

type OutcomesMasteredRequirement struct{ TargetCount int }

func (r OutcomesMasteredRequirement) Kind() RequirementKind { return KindOutcomesMastered }
func (r OutcomesMasteredRequirement) Target() int           { return r.TargetCount }
func (r OutcomesMasteredRequirement) CurrentValue(stats StudentStats) int {
	return stats.OutcomesMastered
}

type PerfectSessionsRequirement struct{ TargetCount int }

func (r PerfectSessionsRequirement) Kind() RequirementKind { return KindPerfectSessions }
func (r PerfectSessionsRequirement) Target() int           { return r.TargetCount }
func (r PerfectSessionsRequirement) CurrentValue(stats StudentStats) int {
	return stats.PerfectSessions
}

type FlashcardsReviewedRequirement struct{ TargetCount int }

func (r FlashcardsReviewedRequirement) Kind() RequirementKind { return KindFlashcardsReviewed }
func (r FlashcardsReviewedRequirement) Target() int           { return r.TargetCount }
func (r FlashcardsReviewedRequirement) CurrentValue(stats StudentStats) int {
	return stats.FlashcardsReviewed
}

type SubjectSessionsRequirement struct {
	SubjectRef  shared.SubjectID
	TargetCount int
}

func (r SubjectSessionsRequirement) Kind() RequirementKind      { return KindSubjectSessions }
func (r SubjectSessionsRequirement) Target() int                { return r.TargetCount }
func (r SubjectSessionsRequirement) Subject() shared.SubjectID  { return r.SubjectRef }
func (r SubjectSessionsRequirement) CurrentValue(stats StudentStats) int {
	return stats.SessionsIn(r.SubjectRef)
}

// NewRequirement constructs a requirement from its stored representation.
// The switch is exhaustive over the closed union; unknown kinds are
// rejected rather than treated as never-satisfiable.
func NewRequirement(kind RequirementKind, target int, subject shared.SubjectID) (Requirement, error) {
	if target <= 0 {
		return nil, shared.NewDomainError("progression", "NewRequirement", shared.ErrValueOutOfRange, "requirement target must be positive")
	}
	switch kind {
	case KindSessionsCompleted:
		return SessionsCompletedRequirement{TargetCount: target}, nil
	case KindStreakDays:
		return StreakDaysRequirement{TargetDays: target}, nil
	case KindLevel:
		return LevelRequirement{TargetLevel: target}, nil
	case KindTotalXP:
		return TotalXPRequirement{TargetXP: target}, nil
	case KindOutcomesMastered:
		return OutcomesMasteredRequirement{TargetCount: target}, nil
	case KindPerfectSessions:
		return PerfectSessionsRequirement{TargetCount: target}, nil
	case KindFlashcardsReviewed:
		return FlashcardsReviewedRequirement{TargetCount: target}, nil
	case KindSubjectSessions:
		if subject == "" {
			return nil, shared.NewDomainError("progression", "NewRequirement", shared.ErrEmptyValue, "subject_sessions requirement needs a subject")
		}
		return SubjectSessionsRequirement{SubjectRef: subject, TargetCount: target}, nil
	default:
		return nil, shared.NewDomainError("progression", "NewRequirement", shared.ErrInvalidInput, fmt.Sprintf("unknown requirement kind %q", kind))
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// DEFINITIONS
// ══════════════════════════════════════════════════════════════════════════════

// AchievementDefinition is the catalog entry for one achievement.
type AchievementDefinition struct {
	ID          AchievementID
	Name        string
	Description string
	Icon        string
	Requirement Requirement

	// RewardXP is credited once on unlock, outside the daily caps.
	RewardXP shared.XP

	// Active definitions are the only ones evaluated and listed.
	// Deactivating a definition hides it but never revokes past unlocks.
	Active bool
}

// Validate checks the definition is well formed.
func (d AchievementDefinition) Validate() error {
	if d.ID == "" {
		return shared.NewDomainError("progression", "AchievementDefinition", shared.ErrEmptyValue, "achievement id is required")
	}
	if d.Name == "" {
		return shared.NewDomainError("progression", "AchievementDefinition", shared.ErrEmptyValue, "achievement name is required")
	}
	if d.Requirement == nil {
		return shared.NewDomainError("progression", "AchievementDefinition", shared.ErrEmptyValue, "achievement requirement is required")
	}
	if d.RewardXP < 0 {
		return shared.NewDomainError("progression", "AchievementDefinition", shared.ErrNegativeValue, "reward XP must be non-negative")
	}
	return nil
}

// DefaultDefinitions returns the built-in achievement catalog, used to
// seed an empty definitions table.
func DefaultDefinitions() []AchievementDefinition {
	return []AchievementDefinition{
		{ID: "first_session", Name: "First Steps", Description: "Complete your first study session", Icon: "footprints", Requirement: SessionsCompletedRequirement{TargetCount: 1}, RewardXP: 50, Active: true},
		{ID: "sessions_25", Name: "Regular", Description: "Complete 25 study sessions", Icon: "calendar", Requirement: SessionsCompletedRequirement{TargetCount: 25}, RewardXP: 200, Active: true},
		{ID: "sessions_100", Name: "Dedicated", Description: "Complete 100 study sessions", Icon: "medal", Requirement: SessionsCompletedRequirement{TargetCount: 100}, RewardXP: 500, Active: true},
		{ID: "streak_7", Name: "One Week Strong", Description: "Keep a 7 day streak", Icon: "flame", Requirement: StreakDaysRequirement{TargetDays: 7}, RewardXP: 100, Active: true},
		{ID: "streak_30", Name: "Month of Momentum", Description: "Keep a 30 day streak", Icon: "fire", Requirement: StreakDaysRequirement{TargetDays: 30}, RewardXP: 400, Active: true},
		{ID: "level_5", Name: "Apprentice", Description: "Reach level 5", Icon: "star", Requirement: LevelRequirement{TargetLevel: 5}, RewardXP: 150, Active: true},
		{ID: "level_10", Name: "Scholar", Description: "Reach level 10", Icon: "graduation-cap", Requirement: LevelRequirement{TargetLevel: 10}, RewardXP: 300, Active: true},
		{ID: "xp_10000", Name: "Ten Thousand", Description: "Earn 10,000 total XP", Icon: "gem", Requirement: TotalXPRequirement{TargetXP: 10000}, RewardXP: 250, Active: true},
		{ID: "outcomes_10", Name: "Outcome Hunter", Description: "Master 10 curriculum outcomes", Icon: "target", Requirement: OutcomesMasteredRequirement{TargetCount: 10}, RewardXP: 200, Active: true},
		{ID: "perfect_5", Name: "Flawless Five", Description: "Finish 5 perfect sessions", Icon: "sparkles", Requirement: PerfectSessionsRequirement{TargetCount: 5}, RewardXP: 250, Active: true},
		{ID: "flashcards_500", Name: "Card Shark", Description: "Review 500 flashcards", Icon: "layers", Requirement: FlashcardsReviewedRequirement{TargetCount: 500}, RewardXP: 300, Active: true},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS AND UNLOCK DETECTION
// ══════════════════════════════════════════════════════════════════════════════

// AchievementProgress is the display state of one achievement for one
// student.
type AchievementProgress struct {
	DefinitionID AchievementID
	Name         string
	Description  string
	Icon         string
	Percent      int
	Display      string
	Unlocked     bool
	UnlockedAt   time.Time
}

// ProgressFor computes display progress for a definition. An unlocked
// achievement always reports 100 percent regardless of current counters,
// so a streak reset cannot visually revoke a streak achievement.
func ProgressFor(def AchievementDefinition, stats StudentStats, unlockedAt time.Time, unlocked bool) AchievementProgress {
	progress := AchievementProgress{
		DefinitionID: def.ID,
		Name:         def.Name,
		Description:  def.Description,
		Icon:         def.Icon,
		Unlocked:     unlocked,
		UnlockedAt:   unlockedAt,
	}
	target := def.Requirement.Target()
	if unlocked {
		progress.Percent = 100
		progress.Display = fmt.Sprintf("%d/%d", target, target)
		return progress
	}
	current := def.Requirement.CurrentValue(stats)
	if current < 0 {
		current = 0
	}
	if current > target {
		current = target
	}
	progress.Percent = current * 100 / target
	progress.Display = fmt.Sprintf("%d/%d", current, target)
	return progress
}

// Unlock records a newly earned achievement.
type Unlock struct {
	Definition AchievementDefinition
	UnlockedAt time.Time
}

// NewlyQualified returns the active definitions the student now satisfies
// but has not unlocked yet. It reads only the stats snapshot, so every
// requirement in the batch sees the same post-activity state. The caller
// applies the unlocks and reward XP to the profile.
func NewlyQualified(profile *EngagementProfile, stats StudentStats, defs []AchievementDefinition, now time.Time) []Unlock {
	var unlocks []Unlock
	for _, def := range defs {
		if !def.Active || def.Requirement == nil {
			continue
		}
		if profile.IsUnlocked(def.ID) {
			continue
		}
		if def.Requirement.CurrentValue(stats) >= def.Requirement.Target() {
			unlocks = append(unlocks, Unlock{Definition: def, UnlockedAt: now})
		}
	}
	return unlocks
}

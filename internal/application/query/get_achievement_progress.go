package query

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/studyhub/progression-core/internal/domain/progression"
	"github.com/studyhub/progression-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT PROGRESS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetAchievementProgressQuery requests a student's progress against every
// active achievement.
type GetAchievementProgressQuery struct {
	StudentID string

	// UnlockedOnly restricts the listing to earned achievements.
	UnlockedOnly bool
}

// AchievementProgressList is the read model: one entry per active
// definition, unlocked first, then by descending percent.
type AchievementProgressList struct {
	StudentID     string
	UnlockedCount int
	TotalCount    int
	Achievements  []progression.AchievementProgress
}

// GetAchievementProgressHandler handles the GetAchievementProgressQuery.
type GetAchievementProgressHandler struct {
	profileRepo    progression.ProfileRepository
	definitionRepo progression.DefinitionRepository
}

// NewGetAchievementProgressHandler creates a new GetAchievementProgressHandler.
func NewGetAchievementProgressHandler(
	profileRepo progression.ProfileRepository,
	definitionRepo progression.DefinitionRepository,
) *GetAchievementProgressHandler {
	return &GetAchievementProgressHandler{
		profileRepo:    profileRepo,
		definitionRepo: definitionRepo,
	}
}

// Handle evaluates every active definition against the student's current
// stats. Unlocked achievements always report full progress, whatever the
// live counters say now.
func (h *GetAchievementProgressHandler) Handle(ctx context.Context, q GetAchievementProgressQuery) (*AchievementProgressList, error) {
	studentID := shared.StudentID(q.StudentID)
	if err := studentID.Validate(); err != nil {
		return nil, fmt.Errorf("get_achievement_progress: %w", err)
	}

	defs, err := h.definitionRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("get_achievement_progress: load definitions: %w", err)
	}

	var stats progression.StudentStats
	var profile *progression.EngagementProfile
	profile, err = h.profileRepo.GetByStudent(ctx, studentID)
	if err != nil {
		if !shared.IsNotFound(err) {
			return nil, fmt.Errorf("get_achievement_progress: load profile: %w", err)
		}
		profile = nil
	} else {
		stats = profile.Stats()
	}

	result := &AchievementProgressList{
		StudentID:  q.StudentID,
		TotalCount: len(defs),
	}
	for _, def := range defs {
		unlocked := false
		var unlockedAt time.Time
		if profile != nil {
			if at, ok := profile.Unlocked[def.ID]; ok {
				unlocked = true
				unlockedAt = at
			}
		}
		if unlocked {
			result.UnlockedCount++
		}
		if q.UnlockedOnly && !unlocked {
			continue
		}
		result.Achievements = append(result.Achievements, progression.ProgressFor(def, stats, unlockedAt, unlocked))
	}

	sort.SliceStable(result.Achievements, func(i, j int) bool {
		a, b := result.Achievements[i], result.Achievements[j]
		if a.Unlocked != b.Unlocked {
			return a.Unlocked
		}
		return a.Percent > b.Percent
	})
	return result, nil
}

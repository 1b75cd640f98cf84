// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"fmt"
	"time"

	"github.com/studyhub/progression-core/internal/domain/progression"
	"github.com/studyhub/progression-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE SNAPSHOT QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetProfileSnapshotQuery requests a student's progression overview.
type GetProfileSnapshotQuery struct {
	StudentID string
}

// ProfileSnapshot is the read model for a student's progression state.
type ProfileSnapshot struct {
	StudentID string

	TotalXP int
	Level   int
	Title   string

	// XPIntoLevel and XPForNextLevel describe progress within the
	// current level. At the top level XPForNextLevel is zero.
	XPIntoLevel    int
	XPForNextLevel int

	CurrentStreak  int
	LongestStreak  int
	LastActiveDate time.Time

	SubjectXP map[string]int

	SessionsCompleted    int
	PerfectSessions      int
	FlashcardsReviewed   int
	OutcomesMastered     int
	AchievementsUnlocked int
}

// GetProfileSnapshotHandler handles the GetProfileSnapshotQuery.
type GetProfileSnapshotHandler struct {
	profileRepo progression.ProfileRepository
}

// NewGetProfileSnapshotHandler creates a new GetProfileSnapshotHandler.
func NewGetProfileSnapshotHandler(profileRepo progression.ProfileRepository) *GetProfileSnapshotHandler {
	return &GetProfileSnapshotHandler{profileRepo: profileRepo}
}

// Handle builds the snapshot. A student with no recorded activity yet
// gets a zeroed level-1 snapshot rather than a not-found error.
func (h *GetProfileSnapshotHandler) Handle(ctx context.Context, q GetProfileSnapshotQuery) (*ProfileSnapshot, error) {
	studentID := shared.StudentID(q.StudentID)
	if err := studentID.Validate(); err != nil {
		return nil, fmt.Errorf("get_profile_snapshot: %w", err)
	}

	profile, err := h.profileRepo.GetByStudent(ctx, studentID)
	if err != nil {
		if shared.IsNotFound(err) {
			return emptySnapshot(q.StudentID), nil
		}
		return nil, fmt.Errorf("get_profile_snapshot: %w", err)
	}

	snapshot := &ProfileSnapshot{
		StudentID:            q.StudentID,
		TotalXP:              int(profile.TotalXP),
		Level:                int(profile.Level),
		Title:                progression.TitleForLevel(profile.Level),
		CurrentStreak:        profile.Streak.Current,
		LongestStreak:        profile.Streak.Longest,
		LastActiveDate:       profile.Streak.LastActiveDate,
		SubjectXP:            make(map[string]int, len(profile.SubjectXP)),
		SessionsCompleted:    profile.Totals.SessionsCompleted,
		PerfectSessions:      profile.Totals.PerfectSessions,
		FlashcardsReviewed:   profile.Totals.FlashcardsReviewed,
		OutcomesMastered:     len(profile.Totals.OutcomesMastered),
		AchievementsUnlocked: len(profile.Unlocked),
	}
	for subject, xp := range profile.SubjectXP {
		snapshot.SubjectXP[string(subject)] = int(xp)
	}

	fillLevelProgress(snapshot, profile.TotalXP, profile.Level)
	return snapshot, nil
}

func emptySnapshot(studentID string) *ProfileSnapshot {
	snapshot := &ProfileSnapshot{
		StudentID: studentID,
		Level:     int(shared.MinLevel),
		Title:     progression.TitleForLevel(shared.MinLevel),
		SubjectXP: make(map[string]int),
	}
	fillLevelProgress(snapshot, shared.MinXP, shared.MinLevel)
	return snapshot
}

func fillLevelProgress(snapshot *ProfileSnapshot, totalXP shared.XP, level shared.Level) {
	floor := progression.ThresholdForLevel(level)
	snapshot.XPIntoLevel = int(totalXP - floor)
	if level < progression.MaxLevel {
		snapshot.XPForNextLevel = int(progression.ThresholdForLevel(level+1) - floor)
	}
}

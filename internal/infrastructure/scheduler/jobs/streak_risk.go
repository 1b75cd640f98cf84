// Package jobs contains implementations of scheduled jobs for the
// progression engine.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/studyhub/progression-core/internal/domain/progression"
	"github.com/studyhub/progression-core/internal/domain/shared"
	"github.com/studyhub/progression-core/pkg/logger"
	"github.com/studyhub/progression-core/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK RISK JOB
// ══════════════════════════════════════════════════════════════════════════════

// StreakRiskJob scans for students whose streak ends today unless they
// study, and publishes a streak-at-risk event for each. The notification
// dispatcher downstream turns those into reminders.
//
// A student is at risk when their last active day is exactly yesterday:
// active today means the streak is safe, inactive for longer means the
// streak is already gone.
type StreakRiskJob struct {
	profileRepo    progression.ProfileRepository
	eventPublisher shared.EventPublisher
	marker         RiskMarker
	clock          shared.Clock
	log            *logger.Logger
	config         StreakRiskConfig
}

// RiskMarker deduplicates reminders across restarts and instances.
// *redis.Cache satisfies it; a nil marker disables dedup.
type RiskMarker interface {
	SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
}

// StreakRiskConfig contains configuration for the streak risk job.
type StreakRiskConfig struct {
	// MinStreak is the smallest streak worth a reminder. A one-day
	// streak is not much of a loss.
	MinStreak int

	// MarkerTTL is how long dedup markers live.
	MarkerTTL time.Duration

	// Timeout is the maximum duration for the job.
	Timeout time.Duration
}

// DefaultStreakRiskConfig returns sensible defaults.
func DefaultStreakRiskConfig() StreakRiskConfig {
	return StreakRiskConfig{
		MinStreak: 3,
		MarkerTTL: 48 * time.Hour,
		Timeout:   2 * time.Minute,
	}
}

// NewStreakRiskJob creates a new streak risk job.
func NewStreakRiskJob(
	profileRepo progression.ProfileRepository,
	eventPublisher shared.EventPublisher,
	marker RiskMarker,
	clock shared.Clock,
	log *logger.Logger,
	config StreakRiskConfig,
) *StreakRiskJob {
	if clock == nil {
		clock = shared.SystemClock
	}
	if log == nil {
		log = logger.NewNop()
	}
	if config.MinStreak <= 0 {
		config.MinStreak = DefaultStreakRiskConfig().MinStreak
	}
	if config.MarkerTTL <= 0 {
		config.MarkerTTL = DefaultStreakRiskConfig().MarkerTTL
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultStreakRiskConfig().Timeout
	}

	return &StreakRiskJob{
		profileRepo:    profileRepo,
		eventPublisher: eventPublisher,
		marker:         marker,
		clock:          clock,
		log:            log.With("job", "streak_risk"),
		config:         config,
	}
}

// Name implements scheduler.Job.
func (j *StreakRiskJob) Name() string {
	return "streak_risk"
}

// Description implements scheduler.Job.
func (j *StreakRiskJob) Description() string {
	return "publishes at-risk events for streaks that break without activity today"
}

// Run implements scheduler.Job.
func (j *StreakRiskJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	today := timeutil.DateOf(j.clock())

	profiles, err := j.profileRepo.ListStreakAtRisk(ctx, today)
	if err != nil {
		return fmt.Errorf("list streak at risk: %w", err)
	}

	var published, skipped int
	for _, profile := range profiles {
		if profile.Streak.Current < j.config.MinStreak {
			continue
		}
		if !profile.Streak.AtRisk(today) {
			continue
		}

		if j.marker != nil {
			key := fmt.Sprintf("streakrisk:%s:%s", profile.StudentID, timeutil.DateKey(today))
			fresh, err := j.marker.SetNX(ctx, key, "1", j.config.MarkerTTL)
			if err != nil {
				// Dedup is best effort. A duplicate reminder beats
				// a missed one.
				j.log.Warn("risk marker failed", "student_id", profile.StudentID, "error", err)
			} else if !fresh {
				skipped++
				continue
			}
		}

		event := shared.NewStreakAtRiskEvent(
			string(profile.StudentID),
			profile.Streak.Current,
			profile.Streak.LastActiveDate,
		)
		if err := j.eventPublisher.Publish(event); err != nil {
			j.log.Error("publish at-risk event failed", "student_id", profile.StudentID, "error", err)
			continue
		}
		published++
	}

	j.log.Info("streak risk scan complete",
		"day", timeutil.DateKey(today),
		"candidates", len(profiles),
		"published", published,
		"skipped", skipped,
	)

	return nil
}

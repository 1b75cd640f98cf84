// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"fmt"
	"time"

	"github.com/studyhub/progression-core/internal/domain/progression"
	"github.com/studyhub/progression-core/internal/domain/shared"
	"github.com/studyhub/progression-core/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETE ACTIVITY COMMAND
// Processes one student activity event end to end: streak, XP with caps,
// level, lifetime counters and achievement unlocks, persisted atomically.
// ══════════════════════════════════════════════════════════════════════════════

// CompleteActivityCommand carries one finished activity.
type CompleteActivityCommand struct {
	// StudentID is the student's UUID.
	StudentID string

	// ActivityType is the kind of activity completed.
	ActivityType progression.ActivityType

	// Subject optionally attributes the activity to a subject.
	Subject string

	// Metrics are the performance numbers of the activity.
	Metrics progression.ActivityMetrics

	// OccurredAt is when the activity finished (defaults to now if zero).
	// Callers are responsible for not submitting the same event twice.
	OccurredAt time.Time

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c CompleteActivityCommand) Validate() error {
	if err := shared.StudentID(c.StudentID).Validate(); err != nil {
		return fmt.Errorf("complete_activity: %w", err)
	}
	if c.ActivityType == "" {
		return fmt.Errorf("complete_activity: %w", shared.ErrUnknownActivityType)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("complete_activity: %w", err)
	}
	return nil
}

// CompleteActivityResult reports everything the activity changed.
type CompleteActivityResult struct {
	StudentID string

	// ProfileCreated is true when this was the student's first activity.
	ProfileCreated bool

	// Grant is the XP award outcome, including cap trimming.
	Grant progression.Grant

	// Streak is the streak transition caused by this activity.
	Streak progression.StreakUpdate

	// LeveledUp and Level describe the level after the activity, with
	// reward XP included. A multi-level jump reports the landing level.
	LeveledUp bool
	Level     int
	Title     string

	// Unlocks are the achievements this activity earned.
	Unlocks []progression.Unlock

	// TotalXP is the profile total after awards and rewards.
	TotalXP int

	ProcessedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// CompleteActivityHandler handles the CompleteActivityCommand.
type CompleteActivityHandler struct {
	profileRepo    progression.ProfileRepository
	definitionRepo progression.DefinitionRepository
	ledger         *progression.Ledger
	eventPublisher shared.EventPublisher

	milestones []int
	clock      shared.Clock
	log        *logger.Logger
}

// CompleteActivityHandlerConfig contains configuration for the handler.
type CompleteActivityHandlerConfig struct {
	// Milestones are the streak thresholds that emit milestone events.
	Milestones []int

	// Clock overrides the time source (tests).
	Clock shared.Clock

	// Logger for structured logging.
	Logger *logger.Logger
}

// NewCompleteActivityHandler creates a new CompleteActivityHandler.
func NewCompleteActivityHandler(
	profileRepo progression.ProfileRepository,
	definitionRepo progression.DefinitionRepository,
	ledger *progression.Ledger,
	eventPublisher shared.EventPublisher,
	config CompleteActivityHandlerConfig,
) *CompleteActivityHandler {
	if config.Milestones == nil {
		config.Milestones = progression.DefaultMilestones
	}
	if config.Clock == nil {
		config.Clock = shared.SystemClock
	}
	if config.Logger == nil {
		config.Logger = logger.NewNop()
	}
	return &CompleteActivityHandler{
		profileRepo:    profileRepo,
		definitionRepo: definitionRepo,
		ledger:         ledger,
		eventPublisher: eventPublisher,
		milestones:     config.Milestones,
		clock:          config.Clock,
		log:            config.Logger.With("handler", "complete_activity"),
	}
}

// Handle executes the complete activity command.
//
// The profile is mutated in memory and persisted in a single versioned
// write, so a mid-flight failure leaves the stored profile untouched.
// When a concurrent writer won the version race the error unwraps to
// shared.ErrConcurrentModification and the caller retries the whole
// command against fresh state. Events are published only after the
// persist succeeds.
func (h *CompleteActivityHandler) Handle(ctx context.Context, cmd CompleteActivityCommand) (*CompleteActivityResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	now := cmd.OccurredAt
	if now.IsZero() {
		now = h.clock()
	}

	studentID := shared.StudentID(cmd.StudentID)
	subject := shared.SubjectID(cmd.Subject)

	// Load or lazily create the profile.
	created := false
	profile, err := h.profileRepo.GetByStudent(ctx, studentID)
	if err != nil {
		if !shared.IsNotFound(err) {
			return nil, fmt.Errorf("complete_activity: load profile: %w", err)
		}
		profile, err = progression.NewProfile(studentID, now)
		if err != nil {
			return nil, fmt.Errorf("complete_activity: %w", err)
		}
		created = true
	}

	// Base XP from the rule table. An unknown activity type fails before
	// any state changes.
	baseAmount, err := h.ledger.Rules().BaseAmount(cmd.ActivityType, cmd.Metrics.Correct)
	if err != nil {
		return nil, fmt.Errorf("complete_activity: %w", err)
	}

	oldXP := profile.TotalXP

	// Streak first: today's activity extends the streak before the
	// multiplier is read, so day N of a streak earns day N's bonus.
	streakUpdate := profile.Streak.Update(now, h.milestones)

	grant, err := h.ledger.Award(profile, cmd.ActivityType, baseAmount, subject, profile.Streak.Current, now)
	if err != nil {
		return nil, fmt.Errorf("complete_activity: award: %w", err)
	}

	profile.Level = progression.LevelForXP(profile.TotalXP)
	profile.RecordActivityOutcome(cmd.ActivityType, subject, cmd.Metrics)

	// Achievement evaluation runs against one post-activity snapshot so
	// every requirement sees the same state.
	stats := profile.Stats()
	defs, err := h.definitionRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("complete_activity: load definitions: %w", err)
	}
	unlocks := progression.NewlyQualified(profile, stats, defs, now)
	for _, unlock := range unlocks {
		profile.Unlock(unlock.Definition.ID, unlock.UnlockedAt)
		profile.CreditReward(unlock.Definition.RewardXP)
	}

	// Reward XP can cross further thresholds; the level and the event
	// report the final landing level.
	profile.Level = progression.LevelForXP(profile.TotalXP)
	levelUp, leveledUp := progression.CheckLevelUp(oldXP, profile.TotalXP)

	profile.Touch(now)

	if created {
		err = h.profileRepo.Create(ctx, profile)
	} else {
		err = h.profileRepo.Update(ctx, profile)
	}
	if err != nil {
		return nil, fmt.Errorf("complete_activity: persist profile: %w", err)
	}

	h.publishEvents(cmd, profile, grant, streakUpdate, levelUp, leveledUp, unlocks)

	return &CompleteActivityResult{
		StudentID:      cmd.StudentID,
		ProfileCreated: created,
		Grant:          grant,
		Streak:         streakUpdate,
		LeveledUp:      leveledUp,
		Level:          int(profile.Level),
		Title:          progression.TitleForLevel(profile.Level),
		Unlocks:        unlocks,
		TotalXP:        int(profile.TotalXP),
		ProcessedAt:    now,
	}, nil
}

func (h *CompleteActivityHandler) publishEvents(
	cmd CompleteActivityCommand,
	profile *progression.EngagementProfile,
	grant progression.Grant,
	streakUpdate progression.StreakUpdate,
	levelUp progression.LevelUp,
	leveledUp bool,
	unlocks []progression.Unlock,
) {
	var events []shared.Event

	if grant.Granted > 0 {
		event := shared.NewXPGainedEvent(cmd.StudentID, string(cmd.ActivityType), grant.Granted, int(profile.TotalXP))
		event.SubjectID = cmd.Subject
		event.Capped = grant.Capped
		if cmd.CorrelationID != "" {
			event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		events = append(events, event)
	}
	if streakUpdate.Changed() {
		events = append(events, shared.NewStreakUpdatedEvent(
			cmd.StudentID, streakUpdate.Previous, streakUpdate.Current, streakUpdate.Longest, streakUpdate.Reset))
	}
	for _, milestone := range streakUpdate.Milestones {
		events = append(events, shared.NewStreakMilestoneEvent(cmd.StudentID, milestone, streakUpdate.Current))
	}
	if leveledUp {
		events = append(events, shared.NewLevelUpEvent(cmd.StudentID, int(levelUp.From), int(levelUp.To), levelUp.Title))
	}
	for _, unlock := range unlocks {
		events = append(events, shared.NewAchievementUnlockedEvent(
			cmd.StudentID,
			string(unlock.Definition.ID),
			unlock.Definition.Name,
			int(unlock.Definition.RewardXP),
			unlock.UnlockedAt,
		))
	}

	for _, event := range events {
		// The profile is already persisted; a failed publish loses the
		// notification, not the progression, so it is logged and the
		// command still succeeds.
		if err := h.eventPublisher.Publish(event); err != nil {
			h.log.Error("event publish failed",
				"event_type", event.EventType(),
				"student_id", cmd.StudentID,
				"error", err,
			)
		}
	}
}

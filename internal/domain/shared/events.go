package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Each event represents something significant that
// happened in the domain; the notification layer consumes them for
// delivery, which is outside this core.
const (
	// Progression events
	EventXPGained            EventType = "progression.xp_gained"
	EventLevelUp             EventType = "progression.level_up"
	EventStreakUpdated       EventType = "progression.streak_updated"
	EventStreakMilestone     EventType = "progression.streak_milestone"
	EventStreakAtRisk        EventType = "progression.streak_at_risk"
	EventAchievementUnlocked EventType = "progression.achievement_unlocked"

	// Review events
	EventReviewScheduled EventType = "review.scheduled"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Progression Events
// ═══════════════════════════════════════════════════════════════════════════

// XPGainedEvent is emitted when a student earns XP from an activity.
type XPGainedEvent struct {
	BaseEvent
	StudentID    string `json:"student_id"`
	ActivityType string `json:"activity_type"`
	Amount       int    `json:"amount"`
	TotalXP      int    `json:"total_xp"`
	SubjectID    string `json:"subject_id,omitempty"`
	Capped       bool   `json:"capped"`
}

// Payload implements Event interface.
func (e XPGainedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":    e.StudentID,
		"activity_type": e.ActivityType,
		"amount":        e.Amount,
		"total_xp":      e.TotalXP,
		"subject_id":    e.SubjectID,
		"capped":        e.Capped,
	}
}

// NewXPGainedEvent creates a new XPGainedEvent.
func NewXPGainedEvent(studentID, activityType string, amount, totalXP int) XPGainedEvent {
	return XPGainedEvent{
		BaseEvent:    NewBaseEvent(EventXPGained, studentID),
		StudentID:    studentID,
		ActivityType: activityType,
		Amount:       amount,
		TotalXP:      totalXP,
	}
}

// LevelUpEvent is emitted when a student's level increases. On a
// multi-level jump NewLevel is the final landing level.
type LevelUpEvent struct {
	BaseEvent
	StudentID string `json:"student_id"`
	OldLevel  int    `json:"old_level"`
	NewLevel  int    `json:"new_level"`
	Title     string `json:"title"`
}

// Payload implements Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.StudentID,
		"old_level":  e.OldLevel,
		"new_level":  e.NewLevel,
		"title":      e.Title,
	}
}

// NewLevelUpEvent creates a new LevelUpEvent.
func NewLevelUpEvent(studentID string, oldLevel, newLevel int, title string) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent: NewBaseEvent(EventLevelUp, studentID),
		StudentID: studentID,
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
		Title:     title,
	}
}

// StreakUpdatedEvent is emitted when a student's daily streak changes.
type StreakUpdatedEvent struct {
	BaseEvent
	StudentID      string `json:"student_id"`
	PreviousStreak int    `json:"previous_streak"`
	CurrentStreak  int    `json:"current_streak"`
	LongestStreak  int    `json:"longest_streak"`
	Reset          bool   `json:"reset"`
}

// Payload implements Event interface.
func (e StreakUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":      e.StudentID,
		"previous_streak": e.PreviousStreak,
		"current_streak":  e.CurrentStreak,
		"longest_streak":  e.LongestStreak,
		"reset":           e.Reset,
	}
}

// NewStreakUpdatedEvent creates a new StreakUpdatedEvent.
func NewStreakUpdatedEvent(studentID string, previous, current, longest int, reset bool) StreakUpdatedEvent {
	return StreakUpdatedEvent{
		BaseEvent:      NewBaseEvent(EventStreakUpdated, studentID),
		StudentID:      studentID,
		PreviousStreak: previous,
		CurrentStreak:  current,
		LongestStreak:  longest,
		Reset:          reset,
	}
}

// StreakMilestoneEvent is emitted once per crossed milestone threshold.
type StreakMilestoneEvent struct {
	BaseEvent
	StudentID string `json:"student_id"`
	Milestone int    `json:"milestone"`
	Streak    int    `json:"streak"`
}

// Payload implements Event interface.
func (e StreakMilestoneEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.StudentID,
		"milestone":  e.Milestone,
		"streak":     e.Streak,
	}
}

// NewStreakMilestoneEvent creates a new StreakMilestoneEvent.
func NewStreakMilestoneEvent(studentID string, milestone, streak int) StreakMilestoneEvent {
	return StreakMilestoneEvent{
		BaseEvent: NewBaseEvent(EventStreakMilestone, studentID),
		StudentID: studentID,
		Milestone: milestone,
		Streak:    streak,
	}
}

// StreakAtRiskEvent is emitted by the background scan for students whose
// streak breaks unless they are active today.
type StreakAtRiskEvent struct {
	BaseEvent
	StudentID      string    `json:"student_id"`
	CurrentStreak  int       `json:"current_streak"`
	LastActiveDate time.Time `json:"last_active_date"`
}

// Payload implements Event interface.
func (e StreakAtRiskEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":       e.StudentID,
		"current_streak":   e.CurrentStreak,
		"last_active_date": e.LastActiveDate.Format(time.RFC3339),
	}
}

// NewStreakAtRiskEvent creates a new StreakAtRiskEvent.
func NewStreakAtRiskEvent(studentID string, streak int, lastActive time.Time) StreakAtRiskEvent {
	return StreakAtRiskEvent{
		BaseEvent:      NewBaseEvent(EventStreakAtRisk, studentID),
		StudentID:      studentID,
		CurrentStreak:  streak,
		LastActiveDate: lastActive,
	}
}

// AchievementUnlockedEvent is emitted when a student unlocks an
// achievement. Unlocks are monotonic; this event fires at most once per
// (student, achievement) pair.
type AchievementUnlockedEvent struct {
	BaseEvent
	StudentID     string    `json:"student_id"`
	AchievementID string    `json:"achievement_id"`
	Name          string    `json:"name"`
	RewardXP      int       `json:"reward_xp"`
	UnlockedAt    time.Time `json:"unlocked_at"`
}

// Payload implements Event interface.
func (e AchievementUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":     e.StudentID,
		"achievement_id": e.AchievementID,
		"name":           e.Name,
		"reward_xp":      e.RewardXP,
		"unlocked_at":    e.UnlockedAt.Format(time.RFC3339),
	}
}

// NewAchievementUnlockedEvent creates a new AchievementUnlockedEvent.
func NewAchievementUnlockedEvent(studentID, achievementID, name string, rewardXP int, unlockedAt time.Time) AchievementUnlockedEvent {
	return AchievementUnlockedEvent{
		BaseEvent:     NewBaseEvent(EventAchievementUnlocked, studentID),
		StudentID:     studentID,
		AchievementID: achievementID,
		Name:          name,
		RewardXP:      rewardXP,
		UnlockedAt:    unlockedAt,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Review Events
// ═══════════════════════════════════════════════════════════════════════════

// ReviewScheduledEvent is emitted when a review answer reschedules an item.
type ReviewScheduledEvent struct {
	BaseEvent
	ItemID       string    `json:"item_id"`
	StudentID    string    `json:"student_id"`
	Grade        int       `json:"grade"`
	IntervalDays int       `json:"interval_days"`
	NextReview   time.Time `json:"next_review"`
}

// Payload implements Event interface.
func (e ReviewScheduledEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"item_id":       e.ItemID,
		"student_id":    e.StudentID,
		"grade":         e.Grade,
		"interval_days": e.IntervalDays,
		"next_review":   e.NextReview.Format(time.RFC3339),
	}
}

// NewReviewScheduledEvent creates a new ReviewScheduledEvent.
func NewReviewScheduledEvent(itemID, studentID string, grade, intervalDays int, nextReview time.Time) ReviewScheduledEvent {
	return ReviewScheduledEvent{
		BaseEvent:    NewBaseEvent(EventReviewScheduled, itemID),
		ItemID:       itemID,
		StudentID:    studentID,
		Grade:        grade,
		IntervalDays: intervalDays,
		NextReview:   nextReview,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}

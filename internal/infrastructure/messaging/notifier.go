package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/studyhub/progression-core/internal/domain/shared"
	"github.com/studyhub/progression-core/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATIONS
// ══════════════════════════════════════════════════════════════════════════════

// Notification is a student-facing message derived from a progression event.
type Notification struct {
	StudentID string
	Kind      string
	Title     string
	Body      string
	SentAt    time.Time
}

// Notifier delivers notifications to students. Implementations may push to
// mobile, email, or an outbox table; LogNotifier is the default sink.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the structured log. It stands in for
// a real delivery channel in development and in the worker's default setup.
type LogNotifier struct {
	log *logger.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	if log == nil {
		log = logger.NewNop()
	}
	return &LogNotifier{log: log.With("component", "notifier")}
}

// Send logs the notification.
func (n *LogNotifier) Send(_ context.Context, note Notification) error {
	n.log.Info("notification",
		"student_id", note.StudentID,
		"kind", note.Kind,
		"title", note.Title,
		"body", note.Body,
	)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION DISPATCHER
// ══════════════════════════════════════════════════════════════════════════════

// NotificationGate decides whether a notification of the given kind goes
// out to the given student. Wired from feature flags so kinds can be
// rolled out gradually.
type NotificationGate func(kind, studentID string) bool

// NotificationDispatcher subscribes to progression events and turns the
// student-visible ones into notifications. Events it does not recognize
// are ignored.
type NotificationDispatcher struct {
	notifier Notifier
	gate     NotificationGate
	log      *logger.Logger
}

// NewNotificationDispatcher creates a dispatcher delivering through notifier.
func NewNotificationDispatcher(notifier Notifier, log *logger.Logger) *NotificationDispatcher {
	if log == nil {
		log = logger.NewNop()
	}
	return &NotificationDispatcher{
		notifier: notifier,
		log:      log.With("component", "notification_dispatcher"),
	}
}

// SetGate installs a delivery gate. A nil gate allows everything.
func (d *NotificationDispatcher) SetGate(gate NotificationGate) {
	d.gate = gate
}

// Attach subscribes the dispatcher to the event types it renders.
func (d *NotificationDispatcher) Attach(bus shared.EventSubscriber) error {
	for _, eventType := range []shared.EventType{
		shared.EventLevelUp,
		shared.EventStreakMilestone,
		shared.EventStreakAtRisk,
		shared.EventAchievementUnlocked,
	} {
		if err := bus.Subscribe(eventType, d.Handle); err != nil {
			return fmt.Errorf("subscribe %s: %w", eventType, err)
		}
	}
	return nil
}

// Handle renders an event into a notification and delivers it.
func (d *NotificationDispatcher) Handle(event shared.Event) error {
	note, ok := d.render(event)
	if !ok {
		return nil
	}
	if d.gate != nil && !d.gate(note.Kind, note.StudentID) {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := d.notifier.Send(ctx, note); err != nil {
		d.log.Error("notification delivery failed",
			"student_id", note.StudentID,
			"kind", note.Kind,
			"error", err,
		)
		return err
	}
	return nil
}

func (d *NotificationDispatcher) render(event shared.Event) (Notification, bool) {
	payload := event.Payload()
	studentID, _ := payload["student_id"].(string)
	if studentID == "" {
		return Notification{}, false
	}

	note := Notification{
		StudentID: studentID,
		SentAt:    event.OccurredAt(),
	}

	switch event.EventType() {
	case shared.EventLevelUp:
		note.Kind = "level_up"
		note.Title = "Level up!"
		note.Body = fmt.Sprintf("You reached level %v: %v", payload["new_level"], payload["title"])

	case shared.EventStreakMilestone:
		note.Kind = "streak_milestone"
		note.Title = "Streak milestone"
		note.Body = fmt.Sprintf("%v days in a row. Keep it going!", payload["milestone"])

	case shared.EventStreakAtRisk:
		note.Kind = "streak_at_risk"
		note.Title = "Your streak is at risk"
		note.Body = fmt.Sprintf("Study today to keep your %v-day streak alive.", payload["current_streak"])

	case shared.EventAchievementUnlocked:
		note.Kind = "achievement_unlocked"
		note.Title = "Achievement unlocked"
		note.Body = fmt.Sprintf("You earned %q", payload["name"])

	default:
		return Notification{}, false
	}

	return note, true
}

// Package queue implements the activity intake queue. Upstream services
// push completed activities onto a Redis list; the worker pops them and
// runs the progression pipeline.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/studyhub/progression-core/internal/application/command"
	"github.com/studyhub/progression-core/internal/domain/progression"
	"github.com/studyhub/progression-core/internal/domain/shared"
	"github.com/studyhub/progression-core/pkg/logger"
	"github.com/studyhub/progression-core/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// QUEUE
// ══════════════════════════════════════════════════════════════════════════════

// Queue hands out raw activity payloads. Pop returns an empty string
// when nothing arrived within the timeout.
type Queue interface {
	Pop(ctx context.Context, timeout time.Duration) (string, error)
	PushDead(ctx context.Context, payload string) error
}

// RedisQueue is a Redis list backed Queue. Producers LPUSH onto the
// activity key; the consumer BRPOPs so delivery is first-in first-out.
type RedisQueue struct {
	client  *goredis.Client
	key     string
	deadKey string
}

// DefaultActivityQueueKey is the list producers push completions onto.
const DefaultActivityQueueKey = "queue:activities"

// NewRedisQueue creates a RedisQueue on the given list key.
func NewRedisQueue(client *goredis.Client, key string) *RedisQueue {
	if key == "" {
		key = DefaultActivityQueueKey
	}
	return &RedisQueue{
		client:  client,
		key:     key,
		deadKey: key + ":dead",
	}
}

// Pop blocks up to timeout for the next payload.
func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) (string, error) {
	res, err := q.client.BRPop(ctx, timeout, q.key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", nil
		}
		return "", err
	}
	// BRPop returns [key, value].
	if len(res) != 2 {
		return "", nil
	}
	return res[1], nil
}

// PushDead parks an unprocessable payload on the dead-letter list.
func (q *RedisQueue) PushDead(ctx context.Context, payload string) error {
	return q.client.LPush(ctx, q.deadKey, payload).Err()
}

// ══════════════════════════════════════════════════════════════════════════════
// PAYLOAD
// ══════════════════════════════════════════════════════════════════════════════

// activityPayload is the wire form of a completed activity.
type activityPayload struct {
	StudentID     string    `json:"student_id"`
	ActivityType  string    `json:"activity_type"`
	Subject       string    `json:"subject,omitempty"`
	Attempted     int       `json:"attempted"`
	Correct       int       `json:"correct"`
	ItemsReviewed int       `json:"items_reviewed"`
	Outcomes      []string  `json:"outcomes,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

func (p activityPayload) toCommand() command.CompleteActivityCommand {
	outcomes := make([]shared.OutcomeID, 0, len(p.Outcomes))
	for _, o := range p.Outcomes {
		outcomes = append(outcomes, shared.OutcomeID(o))
	}

	return command.CompleteActivityCommand{
		StudentID:    p.StudentID,
		ActivityType: progression.ActivityType(p.ActivityType),
		Subject:      p.Subject,
		Metrics: progression.ActivityMetrics{
			Attempted:        p.Attempted,
			Correct:          p.Correct,
			ItemsReviewed:    p.ItemsReviewed,
			MasteredOutcomes: outcomes,
		},
		OccurredAt:    p.OccurredAt,
		CorrelationID: p.CorrelationID,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CONSUMER
// ══════════════════════════════════════════════════════════════════════════════

// ActivityHandler is the slice of the command handler the consumer needs.
type ActivityHandler interface {
	Handle(ctx context.Context, cmd command.CompleteActivityCommand) (*command.CompleteActivityResult, error)
}

// ActivityConsumer pops completed activities off the queue and runs them
// through the progression pipeline. Version conflicts on the profile row
// are retried with fresh state; payloads that can never succeed go to
// the dead-letter list.
type ActivityConsumer struct {
	queue   Queue
	handler ActivityHandler
	retry   retry.Config
	log     *logger.Logger

	popTimeout time.Duration
}

// ActivityConsumerConfig contains configuration for the consumer.
type ActivityConsumerConfig struct {
	// Retry governs re-running a completion after a version conflict.
	Retry retry.Config

	// PopTimeout is how long a single blocking pop waits.
	PopTimeout time.Duration

	// Logger for structured logging.
	Logger *logger.Logger
}

// NewActivityConsumer creates a consumer over the given queue and handler.
func NewActivityConsumer(q Queue, handler ActivityHandler, cfg ActivityConsumerConfig) *ActivityConsumer {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	if cfg.PopTimeout <= 0 {
		cfg.PopTimeout = time.Second
	}
	if cfg.Retry.RetryIf == nil {
		cfg.Retry.RetryIf = shared.IsConcurrentModification
	}

	return &ActivityConsumer{
		queue:      q,
		handler:    handler,
		retry:      cfg.Retry,
		log:        cfg.Logger.With("component", "activity_consumer"),
		popTimeout: cfg.PopTimeout,
	}
}

// Run consumes until the context is cancelled.
func (c *ActivityConsumer) Run(ctx context.Context) error {
	c.log.Info("activity consumer started")

	for {
		select {
		case <-ctx.Done():
			c.log.Info("activity consumer stopped")
			return nil
		default:
		}

		payload, err := c.queue.Pop(ctx, c.popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Error("queue pop failed", "error", err)
			// Back off a little so a dead Redis does not spin the loop.
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}
		if payload == "" {
			continue
		}

		c.process(ctx, payload)
	}
}

// process runs one payload through the pipeline.
func (c *ActivityConsumer) process(ctx context.Context, payload string) {
	var p activityPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		c.log.Warn("malformed activity payload", "error", err)
		c.deadLetter(ctx, payload)
		return
	}

	cmd := p.toCommand()

	var result *command.CompleteActivityResult
	err := retry.Do(ctx, c.retry, func(ctx context.Context) error {
		var handleErr error
		result, handleErr = c.handler.Handle(ctx, cmd)
		if handleErr != nil && !shared.IsConcurrentModification(handleErr) {
			return retry.Permanent(handleErr)
		}
		return handleErr
	})
	if err != nil {
		if shared.IsValidation(err) {
			// Bad input never succeeds on retry.
			c.log.Warn("rejected activity", "student_id", cmd.StudentID, "error", err)
			c.deadLetter(ctx, payload)
			return
		}
		c.log.Error("activity processing failed",
			"student_id", cmd.StudentID,
			"activity_type", cmd.ActivityType,
			"error", err,
		)
		return
	}

	c.log.Info("activity processed",
		"student_id", cmd.StudentID,
		"activity_type", cmd.ActivityType,
		"granted_xp", result.Grant.Granted,
		"streak", result.Streak.Current,
		"level", result.Level,
		"unlocks", len(result.Unlocks),
	)
}

func (c *ActivityConsumer) deadLetter(ctx context.Context, payload string) {
	if err := c.queue.PushDead(ctx, payload); err != nil {
		c.log.Error("dead-letter push failed", "error", err)
	}
}

// Enqueue marshals a completion and pushes it for the consumer. Used by
// producers and tests; the worker only consumes.
func Enqueue(ctx context.Context, client *goredis.Client, key string, cmd command.CompleteActivityCommand) error {
	if key == "" {
		key = DefaultActivityQueueKey
	}

	outcomes := make([]string, 0, len(cmd.Metrics.MasteredOutcomes))
	for _, o := range cmd.Metrics.MasteredOutcomes {
		outcomes = append(outcomes, string(o))
	}

	p := activityPayload{
		StudentID:     cmd.StudentID,
		ActivityType:  string(cmd.ActivityType),
		Subject:       cmd.Subject,
		Attempted:     cmd.Metrics.Attempted,
		Correct:       cmd.Metrics.Correct,
		ItemsReviewed: cmd.Metrics.ItemsReviewed,
		Outcomes:      outcomes,
		OccurredAt:    cmd.OccurredAt,
		CorrelationID: cmd.CorrelationID,
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal activity: %w", err)
	}

	return client.LPush(ctx, key, string(data)).Err()
}

package queue

import (
	"context"
	"encoding/json"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/studyhub/progression-core/internal/application/command"
	"github.com/studyhub/progression-core/internal/domain/shared"
	"github.com/studyhub/progression-core/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REVIEW INTAKE
// ══════════════════════════════════════════════════════════════════════════════

// DefaultReviewQueueKey is the list producers push review messages onto.
const DefaultReviewQueueKey = "queue:reviews"

// Review message kinds.
const (
	reviewKindAnswer     = "answer"
	reviewKindCreateItem = "create_item"
)

// reviewPayload is the wire form of a review message. Kind selects which
// of the two operations the message carries.
type reviewPayload struct {
	Kind string `json:"kind"`

	// answer fields
	ItemID     string    `json:"item_id,omitempty"`
	Grade      int       `json:"grade,omitempty"`
	AnsweredAt time.Time `json:"answered_at,omitempty"`

	// create_item fields
	Subject   string    `json:"subject,omitempty"`
	Prompt    string    `json:"prompt,omitempty"`
	Answer    string    `json:"answer,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`

	// shared fields
	StudentID     string `json:"student_id"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// AnswerHandler is the slice of the command handler grading answers.
type AnswerHandler interface {
	Handle(ctx context.Context, cmd command.SubmitReviewAnswerCommand) (*command.SubmitReviewAnswerResult, error)
}

// CreateItemHandler is the slice of the command handler creating items.
type CreateItemHandler interface {
	Handle(ctx context.Context, cmd command.CreateReviewItemCommand) (*command.CreateReviewItemResult, error)
}

// ReviewConsumer pops review messages off the queue and dispatches them
// to the answer or create-item handler by kind. Review items have no
// version column, so there is no conflict retry here; validation
// failures and unknown kinds go to the dead-letter list.
type ReviewConsumer struct {
	queue      Queue
	answers    AnswerHandler
	creates    CreateItemHandler
	log        *logger.Logger
	popTimeout time.Duration
}

// ReviewConsumerConfig contains configuration for the consumer.
type ReviewConsumerConfig struct {
	// PopTimeout is how long a single blocking pop waits.
	PopTimeout time.Duration

	// Logger for structured logging.
	Logger *logger.Logger
}

// NewReviewConsumer creates a consumer over the given queue and handlers.
func NewReviewConsumer(q Queue, answers AnswerHandler, creates CreateItemHandler, cfg ReviewConsumerConfig) *ReviewConsumer {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	if cfg.PopTimeout <= 0 {
		cfg.PopTimeout = time.Second
	}

	return &ReviewConsumer{
		queue:      q,
		answers:    answers,
		creates:    creates,
		log:        cfg.Logger.With("component", "review_consumer"),
		popTimeout: cfg.PopTimeout,
	}
}

// Run consumes until the context is cancelled.
func (c *ReviewConsumer) Run(ctx context.Context) error {
	c.log.Info("review consumer started")

	for {
		select {
		case <-ctx.Done():
			c.log.Info("review consumer stopped")
			return nil
		default:
		}

		payload, err := c.queue.Pop(ctx, c.popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Error("queue pop failed", "error", err)
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

func (c *ReviewConsumer) process(ctx context.Context, raw string) {
	var p reviewPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		c.log.Warn("malformed review payload", "error", err)
		c.deadLetter(ctx, raw)
		return
	}

	switch p.Kind {
	case reviewKindAnswer:
		c.processAnswer(ctx, raw, p)
	case reviewKindCreateItem:
		c.processCreate(ctx, raw, p)
	default:
		c.log.Warn("unknown review message kind", "kind", p.Kind)
		c.deadLetter(ctx, raw)
	}
}

func (c *ReviewConsumer) processAnswer(ctx context.Context, raw string, p reviewPayload) {
	result, err := c.answers.Handle(ctx, command.SubmitReviewAnswerCommand{
		ItemID:        p.ItemID,
		StudentID:     p.StudentID,
		Grade:         p.Grade,
		AnsweredAt:    p.AnsweredAt,
		CorrelationID: p.CorrelationID,
	})
	if err != nil {
		if shared.IsValidation(err) || shared.IsNotFound(err) {
			c.log.Warn("review answer rejected",
				"item_id", p.ItemID,
				"student_id", p.StudentID,
				"error", err,
			)
			c.deadLetter(ctx, raw)
			return
		}
		c.log.Error("review answer failed",
			"item_id", p.ItemID,
			"student_id", p.StudentID,
			"error", err,
		)
		return
	}

	c.log.Info("review answer graded",
		"item_id", result.ItemID,
		"student_id", result.StudentID,
		"grade", result.Grade,
		"passed", result.Passed,
		"interval_days", result.IntervalDays,
		"next_review", result.NextReviewDate.Format("2006-01-02"),
	)
}

func (c *ReviewConsumer) processCreate(ctx context.Context, raw string, p reviewPayload) {
	result, err := c.creates.Handle(ctx, command.CreateReviewItemCommand{
		StudentID: p.StudentID,
		Subject:   p.Subject,
		Prompt:    p.Prompt,
		Answer:    p.Answer,
		CreatedAt: p.CreatedAt,
	})
	if err != nil {
		if shared.IsValidation(err) {
			c.log.Warn("review item rejected",
				"student_id", p.StudentID,
				"error", err,
			)
			c.deadLetter(ctx, raw)
			return
		}
		c.log.Error("review item creation failed",
			"student_id", p.StudentID,
			"error", err,
		)
		return
	}

	c.log.Info("review item created",
		"item_id", result.ItemID,
		"student_id", p.StudentID,
		"subject", p.Subject,
	)
}

func (c *ReviewConsumer) deadLetter(ctx context.Context, raw string) {
	if err := c.queue.PushDead(ctx, raw); err != nil {
		c.log.Error("dead letter push failed", "error", err)
	}
}

// EnqueueAnswer pushes a graded answer onto the review queue. Exposed so
// other services in the monorepo can produce without importing handlers.
func EnqueueAnswer(ctx context.Context, client *goredis.Client, key string, cmd command.SubmitReviewAnswerCommand) error {
	if key == "" {
		key = DefaultReviewQueueKey
	}
	data, err := json.Marshal(reviewPayload{
		Kind:          reviewKindAnswer,
		ItemID:        cmd.ItemID,
		StudentID:     cmd.StudentID,
		Grade:         cmd.Grade,
		AnsweredAt:    cmd.AnsweredAt,
		CorrelationID: cmd.CorrelationID,
	})
	if err != nil {
		return err
	}
	return client.LPush(ctx, key, string(data)).Err()
}

// EnqueueCreateItem pushes an item creation onto the review queue.
func EnqueueCreateItem(ctx context.Context, client *goredis.Client, key string, cmd command.CreateReviewItemCommand) error {
	if key == "" {
		key = DefaultReviewQueueKey
	}
	data, err := json.Marshal(reviewPayload{
		Kind:      reviewKindCreateItem,
		StudentID: cmd.StudentID,
		Subject:   cmd.Subject,
		Prompt:    cmd.Prompt,
		Answer:    cmd.Answer,
		CreatedAt: cmd.CreatedAt,
	})
	if err != nil {
		return err
	}
	return client.LPush(ctx, key, string(data)).Err()
}

package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/progression-core/internal/application/command"
	"github.com/studyhub/progression-core/internal/domain/shared"
)

const reviewTestItem = "6ba7b810-9dad-11d1-80b4-00c04fd430c8"

// ═══════════════════════════════════════════════════════════════════════════
// Fakes
// ═══════════════════════════════════════════════════════════════════════════

type fakeAnswerHandler struct {
	calls   int
	err     error
	lastCmd command.SubmitReviewAnswerCommand
}

func (h *fakeAnswerHandler) Handle(_ context.Context, cmd command.SubmitReviewAnswerCommand) (*command.SubmitReviewAnswerResult, error) {
	h.calls++
	h.lastCmd = cmd
	if h.err != nil {
		return nil, h.err
	}
	return &command.SubmitReviewAnswerResult{
		ItemID:         cmd.ItemID,
		StudentID:      cmd.StudentID,
		Grade:          cmd.Grade,
		Passed:         cmd.Grade >= 3,
		IntervalDays:   1,
		NextReviewDate: time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC),
	}, nil
}

type fakeCreateHandler struct {
	calls   int
	err     error
	lastCmd command.CreateReviewItemCommand
}

func (h *fakeCreateHandler) Handle(_ context.Context, cmd command.CreateReviewItemCommand) (*command.CreateReviewItemResult, error) {
	h.calls++
	h.lastCmd = cmd
	if h.err != nil {
		return nil, h.err
	}
	return &command.CreateReviewItemResult{ItemID: reviewTestItem}, nil
}

func answerPayload(t *testing.T, grade int) string {
	t.Helper()
	data, err := json.Marshal(map[string]interface{}{
		"kind":       "answer",
		"item_id":    reviewTestItem,
		"student_id": consumerTestStudent,
		"grade":      grade,
	})
	require.NoError(t, err)
	return string(data)
}

func createPayload(t *testing.T) string {
	t.Helper()
	data, err := json.Marshal(map[string]interface{}{
		"kind":       "create_item",
		"student_id": consumerTestStudent,
		"subject":    "geometry",
		"prompt":     "Sum of interior angles of a triangle?",
		"answer":     "180 degrees",
	})
	require.NoError(t, err)
	return string(data)
}

// ═══════════════════════════════════════════════════════════════════════════
// Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestReviewConsumer_DispatchesAnswer(t *testing.T) {
	q := &fakeQueue{}
	answers := &fakeAnswerHandler{}
	creates := &fakeCreateHandler{}
	c := NewReviewConsumer(q, answers, creates, ReviewConsumerConfig{})

	c.process(context.Background(), answerPayload(t, 4))

	assert.Equal(t, 1, answers.calls)
	assert.Equal(t, 0, creates.calls)
	assert.Equal(t, reviewTestItem, answers.lastCmd.ItemID)
	assert.Equal(t, consumerTestStudent, answers.lastCmd.StudentID)
	assert.Equal(t, 4, answers.lastCmd.Grade)
	assert.Empty(t, q.dead)
}

func TestReviewConsumer_DispatchesCreateItem(t *testing.T) {
	q := &fakeQueue{}
	answers := &fakeAnswerHandler{}
	creates := &fakeCreateHandler{}
	c := NewReviewConsumer(q, answers, creates, ReviewConsumerConfig{})

	c.process(context.Background(), createPayload(t))

	assert.Equal(t, 0, answers.calls)
	assert.Equal(t, 1, creates.calls)
	assert.Equal(t, "geometry", creates.lastCmd.Subject)
	assert.Equal(t, "180 degrees", creates.lastCmd.Answer)
	assert.Empty(t, q.dead)
}

func TestReviewConsumer_UnknownKindDeadLetters(t *testing.T) {
	q := &fakeQueue{}
	answers := &fakeAnswerHandler{}
	creates := &fakeCreateHandler{}
	c := NewReviewConsumer(q, answers, creates, ReviewConsumerConfig{})

	c.process(context.Background(), `{"kind":"bulk_import","student_id":"x"}`)

	assert.Equal(t, 0, answers.calls)
	assert.Equal(t, 0, creates.calls)
	assert.Len(t, q.dead, 1)
}

func TestReviewConsumer_MalformedPayloadDeadLetters(t *testing.T) {
	q := &fakeQueue{}
	c := NewReviewConsumer(q, &fakeAnswerHandler{}, &fakeCreateHandler{}, ReviewConsumerConfig{})

	c.process(context.Background(), "{not json")

	assert.Len(t, q.dead, 1)
}

func TestReviewConsumer_MissingItemDeadLetters(t *testing.T) {
	q := &fakeQueue{}
	answers := &fakeAnswerHandler{err: shared.ErrItemNotFound}
	c := NewReviewConsumer(q, answers, &fakeCreateHandler{}, ReviewConsumerConfig{})

	c.process(context.Background(), answerPayload(t, 5))

	assert.Equal(t, 1, answers.calls)
	assert.Len(t, q.dead, 1)
}

func TestReviewConsumer_TransientErrorDoesNotDeadLetter(t *testing.T) {
	q := &fakeQueue{}
	answers := &fakeAnswerHandler{err: context.DeadlineExceeded}
	c := NewReviewConsumer(q, answers, &fakeCreateHandler{}, ReviewConsumerConfig{})

	c.process(context.Background(), answerPayload(t, 5))

	// A storage timeout is not the payload's fault, so the message
	// must not land on the dead list.
	assert.Empty(t, q.dead)
}

func TestReviewConsumer_RunStopsOnCancel(t *testing.T) {
	q := &fakeQueue{payloads: []string{answerPayload(t, 3)}}
	answers := &fakeAnswerHandler{}
	c := NewReviewConsumer(q, answers, &fakeCreateHandler{}, ReviewConsumerConfig{PopTimeout: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.Run(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop after cancel")
	}
	assert.Equal(t, 1, answers.calls)
}

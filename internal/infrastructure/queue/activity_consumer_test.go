package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/progression-core/internal/application/command"
	"github.com/studyhub/progression-core/internal/domain/progression"
	"github.com/studyhub/progression-core/internal/domain/shared"
	"github.com/studyhub/progression-core/pkg/retry"
)

const consumerTestStudent = "1b4e28ba-2fa1-11d2-883f-0016d3cca427"

// ═══════════════════════════════════════════════════════════════════════════
// Fakes
// ═══════════════════════════════════════════════════════════════════════════

type fakeQueue struct {
	payloads []string
	dead     []string
}

func (q *fakeQueue) Pop(_ context.Context, _ time.Duration) (string, error) {
	if len(q.payloads) == 0 {
		return "", nil
	}
	p := q.payloads[0]
	q.payloads = q.payloads[1:]
	return p, nil
}

func (q *fakeQueue) PushDead(_ context.Context, payload string) error {
	q.dead = append(q.dead, payload)
	return nil
}

type fakeHandler struct {
	calls    int
	failWith []error // error per call, nil entries succeed
	lastCmd  command.CompleteActivityCommand
}

func (h *fakeHandler) Handle(_ context.Context, cmd command.CompleteActivityCommand) (*command.CompleteActivityResult, error) {
	h.calls++
	h.lastCmd = cmd
	if h.calls <= len(h.failWith) {
		if err := h.failWith[h.calls-1]; err != nil {
			return nil, err
		}
	}
	return &command.CompleteActivityResult{
		Grant: progression.Grant{Granted: 50},
		Level: 1,
	}, nil
}

func fastRetry() retry.Config {
	cfg := retry.DefaultConfig()
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = time.Millisecond
	return cfg
}

func validPayload(t *testing.T) string {
	t.Helper()
	data, err := json.Marshal(map[string]interface{}{
		"student_id":    consumerTestStudent,
		"activity_type": "study_session",
		"subject":       "algebra",
		"attempted":     10,
		"correct":       10,
		"occurred_at":   "2025-03-01T14:00:00Z",
	})
	require.NoError(t, err)
	return string(data)
}

// ═══════════════════════════════════════════════════════════════════════════
// Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestActivityConsumer_ProcessesPayload(t *testing.T) {
	q := &fakeQueue{}
	h := &fakeHandler{}
	c := NewActivityConsumer(q, h, ActivityConsumerConfig{Retry: fastRetry()})

	c.process(context.Background(), validPayload(t))

	assert.Equal(t, 1, h.calls)
	assert.Equal(t, consumerTestStudent, h.lastCmd.StudentID)
	assert.Equal(t, progression.ActivityStudySession, h.lastCmd.ActivityType)
	assert.Equal(t, "algebra", h.lastCmd.Subject)
	assert.Equal(t, 10, h.lastCmd.Metrics.Attempted)
	assert.Empty(t, q.dead)
}

func TestActivityConsumer_RetriesVersionConflicts(t *testing.T) {
	q := &fakeQueue{}
	h := &fakeHandler{failWith: []error{shared.ErrStaleProfile, shared.ErrStaleProfile}}
	c := NewActivityConsumer(q, h, ActivityConsumerConfig{Retry: fastRetry()})

	c.process(context.Background(), validPayload(t))

	// Two conflicts, third attempt lands.
	assert.Equal(t, 3, h.calls)
	assert.Empty(t, q.dead)
}

func TestActivityConsumer_MalformedPayloadGoesToDeadLetter(t *testing.T) {
	q := &fakeQueue{}
	h := &fakeHandler{}
	c := NewActivityConsumer(q, h, ActivityConsumerConfig{Retry: fastRetry()})

	c.process(context.Background(), "{not json")

	assert.Zero(t, h.calls)
	require.Len(t, q.dead, 1)
}

func TestActivityConsumer_ValidationFailureGoesToDeadLetter(t *testing.T) {
	q := &fakeQueue{}
	h := &fakeHandler{failWith: []error{shared.ErrUnknownActivityType}}
	c := NewActivityConsumer(q, h, ActivityConsumerConfig{Retry: fastRetry()})

	c.process(context.Background(), validPayload(t))

	// Permanent failure, no retries.
	assert.Equal(t, 1, h.calls)
	require.Len(t, q.dead, 1)
}

func TestActivityConsumer_RunStopsOnCancel(t *testing.T) {
	q := &fakeQueue{payloads: []string{validPayload(t)}}
	h := &fakeHandler{}
	c := NewActivityConsumer(q, h, ActivityConsumerConfig{Retry: fastRetry(), PopTimeout: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.Run(ctx)
	}()

	// Give the loop a moment to drain the queue, then stop it.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop after cancel")
	}

	assert.Equal(t, 1, h.calls)
}

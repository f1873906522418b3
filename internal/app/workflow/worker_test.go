package workflow_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonlabs/halcyon/internal/adapters/events"
	"github.com/halcyonlabs/halcyon/internal/adapters/llm"
	"github.com/halcyonlabs/halcyon/internal/app/session"
	"github.com/halcyonlabs/halcyon/internal/app/workflow"
	"github.com/halcyonlabs/halcyon/internal/domain"
)

func testEvent() domain.TurnEvent {
	return domain.TurnEvent{
		ID:           "evt-1",
		Name:         domain.TurnEventName,
		SessionID:    "sess-1",
		UserID:       "user-1",
		Message:      "work has been heavy lately",
		Memory:       domain.NewMemory(),
		SystemPrompt: session.SystemPrompt,
		OccurredAt:   time.Now(),
	}
}

func TestProcessReplaysFullSequence(t *testing.T) {
	ctx := context.Background()
	mock := llm.NewMockLLM()
	mock.Enqueue(
		`{"emotionalState":"tired","themes":["work"],"riskLevel":2,"recommendedApproach":"supportive","progressIndicators":[]}`,
		"It makes sense that you feel drained.",
	)

	store := events.NewMemoryCheckpointStore()
	w := workflow.NewWorker(mock, store, workflow.Config{})

	res, err := w.Process(ctx, testEvent())
	require.NoError(t, err)

	assert.Equal(t, "It makes sense that you feel drained.", res.Response)
	assert.Equal(t, "tired", res.Analysis.EmotionalState)
	assert.Equal(t, []string{"tired"}, res.UpdatedMemory.UserProfile.EmotionalState)
	assert.Equal(t, float64(2), res.UpdatedMemory.UserProfile.RiskLevel)

	// Every step left a checkpoint; risk stayed below the threshold.
	for _, step := range []string{workflow.StepAnalyze, workflow.StepMemory, workflow.StepRespond} {
		_, ok, err := store.Load(ctx, "evt-1", step)
		require.NoError(t, err)
		assert.True(t, ok, "missing checkpoint for %s", step)
	}
	_, ok, _ := store.Load(ctx, "evt-1", workflow.StepRiskAlert)
	assert.False(t, ok)
}

func TestProcessResumesFromCheckpoint(t *testing.T) {
	ctx := context.Background()
	store := events.NewMemoryCheckpointStore()

	checkpointed := domain.Analysis{
		EmotionalState:      "anxious",
		Themes:              []string{"deadlines"},
		RiskLevel:           3,
		RecommendedApproach: "grounding",
		ProgressIndicators:  []string{},
	}
	raw, err := json.Marshal(checkpointed)
	require.NoError(t, err)
	require.NoError(t, store.Store(ctx, "evt-1", workflow.StepAnalyze, raw))

	mock := llm.NewMockLLM()
	mock.Enqueue("Let's slow things down together.")

	w := workflow.NewWorker(mock, store, workflow.Config{})
	res, err := w.Process(ctx, testEvent())
	require.NoError(t, err)

	// Only the response step hit the model: the analysis was resumed.
	assert.Equal(t, 1, mock.Calls())
	assert.Equal(t, "anxious", res.Analysis.EmotionalState)
	assert.Equal(t, "Let's slow things down together.", res.Response)
}

func TestProcessRerunsStepOnUndecodableCheckpoint(t *testing.T) {
	ctx := context.Background()
	store := events.NewMemoryCheckpointStore()
	require.NoError(t, store.Store(ctx, "evt-1", workflow.StepAnalyze, json.RawMessage("{not json")))

	mock := llm.NewMockLLM()
	mock.Enqueue(
		`{"emotionalState":"weary","themes":[],"riskLevel":1,"recommendedApproach":"supportive","progressIndicators":[]}`,
		"Rest is allowed too.",
	)

	w := workflow.NewWorker(mock, store, workflow.Config{})
	res, err := w.Process(ctx, testEvent())
	require.NoError(t, err)

	// The broken checkpoint is ignored: the step re-runs and overwrites it.
	assert.Equal(t, 2, mock.Calls())
	assert.Equal(t, "weary", res.Analysis.EmotionalState)

	raw, ok, err := store.Load(ctx, "evt-1", workflow.StepAnalyze)
	require.NoError(t, err)
	require.True(t, ok)
	var stored domain.Analysis
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Equal(t, "weary", stored.EmotionalState)
}

func TestHandleReportsProcessFailure(t *testing.T) {
	ctx := context.Background()

	mock := llm.NewMockLLM()
	w := workflow.NewWorker(mock, failingCheckpointStore{}, workflow.Config{})

	err := w.Handle(ctx, testEvent())
	require.Error(t, err)
}

type failingCheckpointStore struct{}

func (failingCheckpointStore) Load(ctx context.Context, eventID, step string) (json.RawMessage, bool, error) {
	return nil, false, nil
}

func (failingCheckpointStore) Store(ctx context.Context, eventID, step string, result json.RawMessage) error {
	return errors.New("checkpoint store unavailable")
}

func TestProcessHighRiskRecordsAlertStep(t *testing.T) {
	ctx := context.Background()
	store := events.NewMemoryCheckpointStore()

	mock := llm.NewMockLLM()
	mock.Enqueue(
		`{"emotionalState":"distressed","themes":[],"riskLevel":7,"recommendedApproach":"safety planning","progressIndicators":[]}`,
		"You're not alone in this.",
	)

	w := workflow.NewWorker(mock, store, workflow.Config{})
	_, err := w.Process(ctx, testEvent())
	require.NoError(t, err)

	_, ok, err := store.Load(ctx, "evt-1", workflow.StepRiskAlert)
	require.NoError(t, err)
	assert.True(t, ok, "expected risk alert checkpoint")
}

func TestProcessModelFailureFallsBack(t *testing.T) {
	ctx := context.Background()
	store := events.NewMemoryCheckpointStore()

	mock := llm.NewMockLLM()
	mock.EnqueueError(errors.New("model down"))
	mock.EnqueueError(errors.New("model down"))

	w := workflow.NewWorker(mock, store, workflow.Config{})
	res, err := w.Process(ctx, testEvent())
	require.NoError(t, err)

	assert.Equal(t, session.FallbackReply, res.Response)
	assert.Equal(t, "neutral", res.Analysis.EmotionalState)
}

func TestRunConsumesQueue(t *testing.T) {
	queue := events.NewMemoryQueue(4)
	store := events.NewMemoryCheckpointStore()
	w := workflow.NewWorker(llm.NewMockLLM(), store, workflow.Config{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx, queue.Events())
		close(done)
	}()

	require.NoError(t, queue.Publish(ctx, testEvent()))

	// The respond checkpoint is written last, so its presence means the
	// whole sequence ran.
	require.Eventually(t, func() bool {
		_, ok, _ := store.Load(context.Background(), "evt-1", workflow.StepRespond)
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on cancellation")
	}
}

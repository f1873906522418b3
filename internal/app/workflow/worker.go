package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/halcyonlabs/halcyon/internal/app/session"
	"github.com/halcyonlabs/halcyon/internal/domain"
	"github.com/halcyonlabs/halcyon/internal/observability"
)

// Step names double as checkpoint keys: event id + step name identifies
// one completed unit of work.
const (
	StepAnalyze   = "analyze-message"
	StepMemory    = "update-memory"
	StepRiskAlert = "trigger-risk-alert"
	StepRespond   = "generate-response"
)

// Config carries the worker tunables. Zero values fall back to defaults.
type Config struct {
	ModelTimeout  time.Duration
	RiskThreshold float64
}

// Worker replays turn events as a durable workflow: every step result is
// checkpointed before the next step runs, so a crashed worker resumes a
// half-finished event without repeating completed model calls. Output is
// audit-only; the synchronous pipeline owns the conversation record.
type Worker struct {
	llm         domain.LLMClient
	checkpoints domain.CheckpointStore

	modelTimeout  time.Duration
	riskThreshold float64
}

func NewWorker(llm domain.LLMClient, checkpoints domain.CheckpointStore, cfg Config) *Worker {
	if cfg.ModelTimeout <= 0 {
		cfg.ModelTimeout = 30 * time.Second
	}
	if cfg.RiskThreshold <= 0 {
		cfg.RiskThreshold = 4
	}

	return &Worker{
		llm:           llm,
		checkpoints:   checkpoints,
		modelTimeout:  cfg.ModelTimeout,
		riskThreshold: cfg.RiskThreshold,
	}
}

// Run consumes events until the context is cancelled or the channel
// closes. Failures are logged per event; the loop keeps going.
func (w *Worker) Run(ctx context.Context, events <-chan domain.TurnEvent) {
	log := observability.Logger().With("component", "workflow_worker")
	log.Info("worker started")

	for {
		select {
		case <-ctx.Done():
			log.Info("worker stopping", "reason", ctx.Err())
			return
		case ev, ok := <-events:
			if !ok {
				log.Info("event channel closed, worker stopping")
				return
			}

			if err := w.Handle(ctx, ev); err != nil {
				log.Error("event replay failed", "event_id", ev.ID, "error", err)
			}
		}
	}
}

// Handle runs one event with the in-flight gauge held. A non-nil error
// means the event was not fully processed and should be redelivered.
func (w *Worker) Handle(ctx context.Context, ev domain.TurnEvent) error {
	observability.WorkerEventsInFlight.Inc()
	defer observability.WorkerEventsInFlight.Dec()

	_, err := w.Process(ctx, ev)
	return err
}

// Result is what one fully replayed event produced.
type Result struct {
	Response      string          `json:"response"`
	Analysis      domain.Analysis `json:"analysis"`
	UpdatedMemory domain.Memory   `json:"updatedMemory"`
}

// Process runs the step sequence for one event. Model failures inside the
// analyze/respond steps degrade to the same local fallbacks as the
// synchronous pipeline; only checkpoint-store failures abort, leaving the
// event replayable.
func (w *Worker) Process(ctx context.Context, ev domain.TurnEvent) (*Result, error) {
	log := observability.Logger().With(
		"event_id", ev.ID,
		"session_id", ev.SessionID,
	)
	log.Info("processing turn event", "history_len", len(ev.History))

	analysis, err := runStep(ctx, w.checkpoints, log, ev.ID, StepAnalyze,
		func(ctx context.Context) (domain.Analysis, error) {
			raw, err := w.complete(ctx, session.BuildAnalysisPrompt(ev.Message, ev.Memory, ev.Goals))
			if err != nil {
				observability.ModelFailures.WithLabelValues("analyze").Inc()
				log.Error("analysis failed, using neutral fallback", "error", err)
				return domain.DefaultAnalysis(), nil
			}
			a, err := domain.ParseAnalysis(raw)
			if err != nil {
				observability.ModelFailures.WithLabelValues("analyze").Inc()
				log.Error("analysis undecodable, using neutral fallback", "error", err)
				return domain.DefaultAnalysis(), nil
			}
			return a, nil
		})
	if err != nil {
		return nil, err
	}

	memory, err := runStep(ctx, w.checkpoints, log, ev.ID, StepMemory,
		func(ctx context.Context) (domain.Memory, error) {
			mem := ev.Memory.Clone()
			mem.Merge(analysis)
			return mem, nil
		})
	if err != nil {
		return nil, err
	}

	if analysis.RiskLevel > w.riskThreshold {
		if _, err := runStep(ctx, w.checkpoints, log, ev.ID, StepRiskAlert,
			func(ctx context.Context) (bool, error) {
				observability.RiskAlerts.Inc()
				log.Warn("high risk level detected in replayed message",
					"risk_level", analysis.RiskLevel,
					"message", observability.Preview(ev.Message),
				)
				return true, nil
			}); err != nil {
			return nil, err
		}
	}

	response, err := runStep(ctx, w.checkpoints, log, ev.ID, StepRespond,
		func(ctx context.Context) (string, error) {
			raw, err := w.complete(ctx, session.BuildResponsePrompt(ev.SystemPrompt, ev.Message, analysis, memory, ev.Goals))
			if err != nil {
				observability.ModelFailures.WithLabelValues("respond").Inc()
				log.Error("response generation failed, using fallback reply", "error", err)
				return session.FallbackReply, nil
			}
			if raw = strings.TrimSpace(raw); raw == "" {
				return session.FallbackReply, nil
			}
			return raw, nil
		})
	if err != nil {
		return nil, err
	}

	log.Info("turn event replayed", "risk_level", analysis.RiskLevel)

	return &Result{
		Response:      response,
		Analysis:      analysis,
		UpdatedMemory: memory,
	}, nil
}

func (w *Worker) complete(ctx context.Context, prompt string) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, w.modelTimeout)
	defer cancel()

	start := time.Now()
	text, err := w.llm.Complete(cctx, prompt)
	observability.ModelCallDuration.Observe(time.Since(start).Seconds())
	return text, err
}

// runStep executes one checkpointed step: a stored result short-circuits
// the step, a fresh result is persisted before the caller moves on.
func runStep[T any](
	ctx context.Context,
	store domain.CheckpointStore,
	log *slog.Logger,
	eventID, step string,
	fn func(ctx context.Context) (T, error),
) (T, error) {
	var zero T

	raw, ok, err := store.Load(ctx, eventID, step)
	if err != nil {
		log.Error("checkpoint load failed, re-running step", "step", step, "error", err)
	} else if ok {
		var out T
		if uerr := json.Unmarshal(raw, &out); uerr != nil {
			log.Error("checkpoint undecodable, re-running step", "step", step, "error", uerr)
		} else {
			log.Info("step resumed from checkpoint", "step", step)
			return out, nil
		}
	}

	start := time.Now()
	out, err := fn(ctx)
	if err != nil {
		return zero, fmt.Errorf("step %s: %w", step, err)
	}

	encoded, err := json.Marshal(out)
	if err != nil {
		return zero, fmt.Errorf("encoding %s result: %w", step, err)
	}
	if err := store.Store(ctx, eventID, step, encoded); err != nil {
		return zero, fmt.Errorf("checkpointing %s: %w", step, err)
	}

	log.Info("step completed", "step", step, "elapsed_ms", time.Since(start).Milliseconds())
	return out, nil
}

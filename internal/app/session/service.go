package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/halcyonlabs/halcyon/internal/app/stressgate"
	"github.com/halcyonlabs/halcyon/internal/domain"
	"github.com/halcyonlabs/halcyon/internal/observability"
)

const (
	defaultModelTimeout  = 30 * time.Second
	defaultRiskThreshold = 4
)

// Config carries the tunables of the pipeline. Zero values fall back to
// sensible defaults.
type Config struct {
	ModelTimeout  time.Duration
	RiskThreshold float64
	Rand          func(n int) int // stress gate activity selection
}

// Service runs the turn pipeline: gate check, analysis, memory merge,
// risk check, response generation, persistence.
type Service struct {
	llm       domain.LLMClient
	sessions  domain.SessionStore
	publisher domain.EventPublisher
	gate      *stressgate.Gate
	now       func() time.Time

	modelTimeout  time.Duration
	riskThreshold float64
	goals         []string

	mu    sync.Mutex
	locks map[domain.SessionID]*sync.Mutex
}

func NewService(
	llm domain.LLMClient,
	sessions domain.SessionStore,
	publisher domain.EventPublisher,
	cfg Config,
) *Service {
	if cfg.ModelTimeout <= 0 {
		cfg.ModelTimeout = defaultModelTimeout
	}
	if cfg.RiskThreshold <= 0 {
		cfg.RiskThreshold = defaultRiskThreshold
	}

	return &Service{
		llm:           llm,
		sessions:      sessions,
		publisher:     publisher,
		gate:          stressgate.New(cfg.Rand),
		now:           time.Now,
		modelTimeout:  cfg.ModelTimeout,
		riskThreshold: cfg.RiskThreshold,
		locks:         make(map[domain.SessionID]*sync.Mutex),
	}
}

type StartSessionInput struct {
	UserID domain.UserID
}

type StartSessionOutput struct {
	Session *domain.ChatSession
}

func (s *Service) StartSession(ctx context.Context, in StartSessionInput) (*StartSessionOutput, error) {
	if in.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrUnauthenticated)
	}

	now := s.now()

	log := observability.LoggerFromContext(ctx).With("user_id", in.UserID)
	log.Info("starting new chat session")

	session := &domain.ChatSession{
		SessionID: domain.SessionID(uuid.NewString()),
		UserID:    in.UserID,
		Status:    domain.StatusActive,
		Messages:  []domain.Message{},
		Memory:    domain.NewMemory(),
		StartTime: now,
		UpdatedAt: now,
	}

	if err := s.sessions.CreateSession(session); err != nil {
		log.Error("failed to create session", "error", err)
		return nil, err
	}

	log.Info("session started", "session_id", session.SessionID)

	return &StartSessionOutput{Session: session}, nil
}

type ProcessTurnInput struct {
	SessionID domain.SessionID
	UserID    domain.UserID
	Message   string
}

type ProcessTurnOutput struct {
	// StressSignal is set when the gate short-circuited the turn. No model
	// call was made and nothing was persisted; the other fields are empty.
	StressSignal *stressgate.Signal

	Reply    string
	Analysis domain.Analysis
	Memory   domain.Memory
}

// ProcessTurn turns one incoming user message into a persisted, analyzed
// and responded-to conversation turn.
func (s *Service) ProcessTurn(ctx context.Context, in ProcessTurnInput) (*ProcessTurnOutput, error) {
	if in.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrUnauthenticated)
	}
	if strings.TrimSpace(in.Message) == "" {
		return nil, fmt.Errorf("%w: message is required", domain.ErrInvalidArgument)
	}

	log := observability.LoggerFromContext(ctx).With(
		"session_id", in.SessionID,
		"user_id", in.UserID,
	)

	// Gate check runs before anything else: a match means the message never
	// reaches the pipeline for this turn.
	if sig := s.gate.Classify(in.Message); sig != nil {
		observability.StressGateHits.Inc()
		log.Info("stress signal detected", "trigger", sig.Trigger, "activity", sig.Activity.Type)
		return &ProcessTurnOutput{StressSignal: sig}, nil
	}

	// Message appends are not commutative: at most one in-flight turn per
	// session, so user/assistant pairs stay adjacent.
	lock := s.sessionLock(in.SessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.sessions.FindBySessionID(in.SessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != in.UserID {
		return nil, domain.ErrForbidden
	}
	if session.Status == domain.StatusClosed {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionClosed, session.SessionID)
	}

	log.Info("processing message", "message", observability.Preview(in.Message))

	s.publishTurnEvent(ctx, log, session, in.Message)

	analysis := s.analyze(ctx, log, in.Message, session.Memory)

	session.Memory.Merge(analysis)

	if session.Memory.UserProfile.RiskLevel > s.riskThreshold {
		observability.RiskAlerts.Inc()
		log.Warn("high risk level detected in chat message",
			"risk_level", session.Memory.UserProfile.RiskLevel,
			"message", observability.Preview(in.Message),
		)
	}

	reply := s.respond(ctx, log, in.Message, analysis, session.Memory)

	now := s.now()
	session.Messages = append(session.Messages,
		domain.Message{
			Role:      domain.RoleUser,
			Content:   in.Message,
			Timestamp: now,
		},
		domain.Message{
			Role:      domain.RoleAssistant,
			Content:   reply,
			Timestamp: s.now(),
			Metadata: &domain.MessageMetadata{
				Technique: analysis.RecommendedApproach,
				Analysis:  &analysis,
				Progress: &domain.Progress{
					EmotionalState: analysis.EmotionalState,
					RiskLevel:      analysis.RiskLevel,
				},
			},
		},
	)
	session.UpdatedAt = s.now()

	if err := s.sessions.Save(session); err != nil {
		observability.TurnsProcessed.WithLabelValues("persist_error").Inc()
		// The reply was already computed; it is lost from the record here.
		log.Error("failed to persist turn", "error", err, "reply", observability.Preview(reply))
		return nil, fmt.Errorf("saving session: %w", err)
	}

	observability.TurnsProcessed.WithLabelValues("ok").Inc()
	log.Info("turn completed", "risk_level", analysis.RiskLevel)

	return &ProcessTurnOutput{
		Reply:    reply,
		Analysis: analysis,
		Memory:   session.Memory.Clone(),
	}, nil
}

// GetSession returns the session with its full timeline, enforcing
// ownership.
func (s *Service) GetSession(ctx context.Context, sessionID domain.SessionID, userID domain.UserID) (*domain.ChatSession, error) {
	session, err := s.sessions.FindBySessionID(sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, domain.ErrForbidden
	}
	return session, nil
}

func (s *Service) ListSessions(ctx context.Context, userID domain.UserID, limit int) ([]*domain.ChatSession, error) {
	return s.sessions.ListSessionsByUser(userID, limit)
}

// CloseSession flips the session status. Closed sessions reject new turns.
func (s *Service) CloseSession(ctx context.Context, sessionID domain.SessionID, userID domain.UserID) (*domain.ChatSession, error) {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.sessions.FindBySessionID(sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, domain.ErrForbidden
	}
	if session.Status == domain.StatusClosed {
		return session, nil
	}

	session.Status = domain.StatusClosed
	session.UpdatedAt = s.now()

	if err := s.sessions.Save(session); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}

	observability.LoggerFromContext(ctx).Info("session closed", "session_id", sessionID)
	return session, nil
}

// ---- pipeline steps ----

func (s *Service) publishTurnEvent(ctx context.Context, log *slog.Logger, session *domain.ChatSession, message string) {
	if s.publisher == nil {
		return
	}

	ev := domain.TurnEvent{
		ID:           uuid.NewString(),
		Name:         domain.TurnEventName,
		SessionID:    session.SessionID,
		UserID:       session.UserID,
		Message:      message,
		History:      append([]domain.Message(nil), session.Messages...),
		Memory:       session.Memory.Clone(),
		Goals:        append([]string(nil), s.goals...),
		SystemPrompt: SystemPrompt,
		OccurredAt:   s.now(),
	}

	// Fire and forget: the durable path is an independent observer.
	if err := s.publisher.Publish(ctx, ev); err != nil {
		log.Error("failed to publish turn event", "error", err, "event_id", ev.ID)
	}
}

func (s *Service) analyze(ctx context.Context, log *slog.Logger, message string, memory domain.Memory) domain.Analysis {
	raw, err := s.complete(ctx, BuildAnalysisPrompt(message, memory, s.goals))
	if err != nil {
		observability.ModelFailures.WithLabelValues("analyze").Inc()
		log.Error("message analysis failed, using neutral fallback", "error", err)
		return domain.DefaultAnalysis()
	}

	analysis, err := domain.ParseAnalysis(raw)
	if err != nil {
		observability.ModelFailures.WithLabelValues("analyze").Inc()
		log.Error("analysis output undecodable, using neutral fallback", "error", err)
		return domain.DefaultAnalysis()
	}
	return analysis
}

func (s *Service) respond(ctx context.Context, log *slog.Logger, message string, analysis domain.Analysis, memory domain.Memory) string {
	reply, err := s.complete(ctx, BuildResponsePrompt(SystemPrompt, message, analysis, memory, s.goals))
	if err != nil {
		observability.ModelFailures.WithLabelValues("respond").Inc()
		log.Error("response generation failed, using fallback reply", "error", err)
		return FallbackReply
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return FallbackReply
	}
	return reply
}

// complete wraps the model call with the configured timeout. A timeout is
// treated exactly like any other model failure.
func (s *Service) complete(ctx context.Context, prompt string) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, s.modelTimeout)
	defer cancel()

	start := time.Now()
	text, err := s.llm.Complete(cctx, prompt)
	observability.ModelCallDuration.Observe(time.Since(start).Seconds())
	return text, err
}

func (s *Service) sessionLock(id domain.SessionID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}

package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/halcyonlabs/halcyon/internal/domain"
)

type Store struct {
	client *firestore.Client
}

// NewStore creates a Firestore store.
// Uses the project passed (HALCYON_GCP_PROJECT).
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) sessionsCol() *firestore.CollectionRef {
	return s.client.Collection("chat_sessions")
}

func (s *Store) sessionDocRef(id domain.SessionID) *firestore.DocumentRef {
	return s.sessionsCol().Doc(string(id))
}

func (s *Store) activitiesCol() *firestore.CollectionRef {
	return s.client.Collection("activities")
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

// The whole session lives in one document: messages, memory and status are
// written together with a single Set, so a turn is either fully recorded or
// not at all.
type sessionDoc struct {
	UserID    string       `firestore:"user_id"`
	Status    string       `firestore:"status"`
	Messages  []messageDoc `firestore:"messages"`
	Memory    memoryDoc    `firestore:"memory"`
	StartTime time.Time    `firestore:"start_time"`
	UpdatedAt time.Time    `firestore:"updated_at"`
}

type messageDoc struct {
	Role      string       `firestore:"role"`
	Content   string       `firestore:"content"`
	Timestamp time.Time    `firestore:"timestamp"`
	Metadata  *metadataDoc `firestore:"metadata"`
}

type metadataDoc struct {
	Technique string       `firestore:"technique"`
	Goal      string       `firestore:"goal"`
	Analysis  *analysisDoc `firestore:"analysis"`
	Progress  *progressDoc `firestore:"progress"`
}

type analysisDoc struct {
	EmotionalState      string   `firestore:"emotional_state"`
	Themes              []string `firestore:"themes"`
	RiskLevel           float64  `firestore:"risk_level"`
	RecommendedApproach string   `firestore:"recommended_approach"`
	ProgressIndicators  []string `firestore:"progress_indicators"`
}

type progressDoc struct {
	EmotionalState string  `firestore:"emotional_state"`
	RiskLevel      float64 `firestore:"risk_level"`
}

type memoryDoc struct {
	EmotionalState     []string          `firestore:"emotional_state"`
	RiskLevel          float64           `firestore:"risk_level"`
	Preferences        map[string]string `firestore:"preferences"`
	ConversationThemes []string          `firestore:"conversation_themes"`
	CurrentTechnique   string            `firestore:"current_technique"`
}

type activityDoc struct {
	UserID      string    `firestore:"user_id"`
	Type        string    `firestore:"type"`
	Name        string    `firestore:"name"`
	Description string    `firestore:"description"`
	Timestamp   time.Time `firestore:"timestamp"`
	Duration    int       `firestore:"duration"`
	Completed   bool      `firestore:"completed"`
	MoodScore   *int      `firestore:"mood_score"`
	MoodNote    string    `firestore:"mood_note"`
}

// ─────────────────────────────────────────
// Encoding
// ─────────────────────────────────────────

func encodeSession(session *domain.ChatSession) sessionDoc {
	messages := make([]messageDoc, 0, len(session.Messages))
	for _, m := range session.Messages {
		messages = append(messages, encodeMessage(m))
	}

	return sessionDoc{
		UserID:   string(session.UserID),
		Status:   string(session.Status),
		Messages: messages,
		Memory: memoryDoc{
			EmotionalState:     session.Memory.UserProfile.EmotionalState,
			RiskLevel:          session.Memory.UserProfile.RiskLevel,
			Preferences:        session.Memory.UserProfile.Preferences,
			ConversationThemes: session.Memory.SessionContext.ConversationThemes,
			CurrentTechnique:   session.Memory.SessionContext.CurrentTechnique,
		},
		StartTime: session.StartTime,
		UpdatedAt: session.UpdatedAt,
	}
}

func encodeMessage(m domain.Message) messageDoc {
	doc := messageDoc{
		Role:      string(m.Role),
		Content:   m.Content,
		Timestamp: m.Timestamp,
	}
	if m.Metadata == nil {
		return doc
	}

	meta := &metadataDoc{
		Technique: m.Metadata.Technique,
		Goal:      m.Metadata.Goal,
	}
	if a := m.Metadata.Analysis; a != nil {
		meta.Analysis = &analysisDoc{
			EmotionalState:      a.EmotionalState,
			Themes:              a.Themes,
			RiskLevel:           a.RiskLevel,
			RecommendedApproach: a.RecommendedApproach,
			ProgressIndicators:  a.ProgressIndicators,
		}
	}
	if p := m.Metadata.Progress; p != nil {
		meta.Progress = &progressDoc{
			EmotionalState: p.EmotionalState,
			RiskLevel:      p.RiskLevel,
		}
	}
	doc.Metadata = meta
	return doc
}

func decodeSession(id domain.SessionID, doc sessionDoc) *domain.ChatSession {
	messages := make([]domain.Message, 0, len(doc.Messages))
	for _, m := range doc.Messages {
		messages = append(messages, decodeMessage(m))
	}

	return &domain.ChatSession{
		SessionID: id,
		UserID:    domain.UserID(doc.UserID),
		Status:    domain.SessionStatus(doc.Status),
		Messages:  messages,
		Memory: domain.Memory{
			UserProfile: domain.UserProfile{
				EmotionalState: doc.Memory.EmotionalState,
				RiskLevel:      doc.Memory.RiskLevel,
				Preferences:    doc.Memory.Preferences,
			},
			SessionContext: domain.SessionContext{
				ConversationThemes: doc.Memory.ConversationThemes,
				CurrentTechnique:   doc.Memory.CurrentTechnique,
			},
		},
		StartTime: doc.StartTime,
		UpdatedAt: doc.UpdatedAt,
	}
}

func decodeMessage(doc messageDoc) domain.Message {
	m := domain.Message{
		Role:      domain.Role(doc.Role),
		Content:   doc.Content,
		Timestamp: doc.Timestamp,
	}
	if doc.Metadata == nil {
		return m
	}

	meta := &domain.MessageMetadata{
		Technique: doc.Metadata.Technique,
		Goal:      doc.Metadata.Goal,
	}
	if a := doc.Metadata.Analysis; a != nil {
		meta.Analysis = &domain.Analysis{
			EmotionalState:      a.EmotionalState,
			Themes:              a.Themes,
			RiskLevel:           a.RiskLevel,
			RecommendedApproach: a.RecommendedApproach,
			ProgressIndicators:  a.ProgressIndicators,
		}
	}
	if p := doc.Metadata.Progress; p != nil {
		meta.Progress = &domain.Progress{
			EmotionalState: p.EmotionalState,
			RiskLevel:      p.RiskLevel,
		}
	}
	m.Metadata = meta
	return m
}

// ─────────────────────────────────────────
// SessionStore implementation
// ─────────────────────────────────────────

func (s *Store) CreateSession(session *domain.ChatSession) error {
	ctx := context.Background()

	_, err := s.sessionDocRef(session.SessionID).Create(ctx, encodeSession(session))
	if err != nil {
		return fmt.Errorf("firestore CreateSession: %w", err)
	}
	return nil
}

func (s *Store) FindBySessionID(id domain.SessionID) (*domain.ChatSession, error) {
	ctx := context.Background()

	snap, err := s.sessionDocRef(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
		}
		return nil, fmt.Errorf("firestore FindBySessionID: %w", err)
	}

	var doc sessionDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore FindBySessionID decode: %w", err)
	}

	return decodeSession(id, doc), nil
}

func (s *Store) Save(session *domain.ChatSession) error {
	ctx := context.Background()

	_, err := s.sessionDocRef(session.SessionID).Set(ctx, encodeSession(session))
	if err != nil {
		return fmt.Errorf("firestore Save: %w", err)
	}
	return nil
}

func (s *Store) ListSessionsByUser(userID domain.UserID, limit int) ([]*domain.ChatSession, error) {
	ctx := context.Background()

	q := s.sessionsCol().Where("user_id", "==", string(userID)).OrderBy("start_time", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []*domain.ChatSession
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore ListSessionsByUser: %w", err)
		}

		var doc sessionDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode sessionDoc: %w", err)
		}

		out = append(out, decodeSession(domain.SessionID(snap.Ref.ID), doc))
	}
	return out, nil
}

// ─────────────────────────────────────────
// ActivityStore implementation
// ─────────────────────────────────────────

func (s *Store) AppendActivity(activity *domain.Activity) error {
	ctx := context.Background()

	doc := activityDoc{
		UserID:      string(activity.UserID),
		Type:        activity.Type,
		Name:        activity.Name,
		Description: activity.Description,
		Timestamp:   activity.Timestamp,
		Duration:    activity.Duration,
		Completed:   activity.Completed,
		MoodScore:   activity.MoodScore,
		MoodNote:    activity.MoodNote,
	}

	_, err := s.activitiesCol().Doc(string(activity.ID)).Set(ctx, doc)
	if err != nil {
		return fmt.Errorf("firestore AppendActivity: %w", err)
	}
	return nil
}

func (s *Store) ListActivitiesByUser(userID domain.UserID) ([]*domain.Activity, error) {
	ctx := context.Background()

	q := s.activitiesCol().Where("user_id", "==", string(userID)).OrderBy("timestamp", firestore.Asc)

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []*domain.Activity
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore ListActivitiesByUser: %w", err)
		}

		var doc activityDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode activityDoc: %w", err)
		}

		out = append(out, &domain.Activity{
			ID:          domain.ActivityID(snap.Ref.ID),
			UserID:      domain.UserID(doc.UserID),
			Type:        doc.Type,
			Name:        doc.Name,
			Description: doc.Description,
			Timestamp:   doc.Timestamp,
			Duration:    doc.Duration,
			Completed:   doc.Completed,
			MoodScore:   doc.MoodScore,
			MoodNote:    doc.MoodNote,
		})
	}
	return out, nil
}

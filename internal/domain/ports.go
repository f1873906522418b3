package domain

import (
	"context"
	"encoding/json"
)

// LLMClient defines how the core application talks to the generative model:
// one prompt in, one text completion out. No retries at this boundary; the
// pipeline degrades to local fallbacks instead.
type LLMClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// SessionStore defines chat session persistence. Save must be atomic for
// the message append plus the UpdatedAt touch.
type SessionStore interface {
	CreateSession(session *ChatSession) error
	FindBySessionID(id SessionID) (*ChatSession, error)
	Save(session *ChatSession) error
	ListSessionsByUser(userID UserID, limit int) ([]*ChatSession, error)
}

// ActivityStore defines the append-only activity log.
type ActivityStore interface {
	AppendActivity(activity *Activity) error
	ListActivitiesByUser(userID UserID) ([]*Activity, error)
}

// EventPublisher hands a turn event to the asynchronous execution facility.
// Best-effort: the synchronous caller logs failures and moves on.
type EventPublisher interface {
	Publish(ctx context.Context, event TurnEvent) error
}

// CheckpointStore persists per-step results for the durable workflow,
// keyed by event id + step name so a resumed event skips completed steps.
type CheckpointStore interface {
	Load(ctx context.Context, eventID, step string) (json.RawMessage, bool, error)
	Store(ctx context.Context, eventID, step string, result json.RawMessage) error
}

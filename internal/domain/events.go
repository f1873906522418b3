package domain

import "time"

// TurnEventName is the event published for every message that passes the
// stress gate. The durable worker subscribes to it.
const TurnEventName = "therapy/session.message"

// TurnEvent carries everything the durable worker needs to replay a turn
// independently of the synchronous pipeline.
type TurnEvent struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	SessionID    SessionID `json:"sessionId"`
	UserID       UserID    `json:"userId"`
	Message      string    `json:"message"`
	History      []Message `json:"history"`
	Memory       Memory    `json:"memory"`
	Goals        []string  `json:"goals"`
	SystemPrompt string    `json:"systemPrompt"`
	OccurredAt   time.Time `json:"occurredAt"`
}

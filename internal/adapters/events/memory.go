package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/halcyonlabs/halcyon/internal/domain"
	"github.com/halcyonlabs/halcyon/internal/observability"
)

// MemoryQueue is an in-process event queue: a buffered channel between the
// pipeline and the workflow worker. Best-effort by design: a full buffer
// drops the event with a log line instead of blocking the request path.
type MemoryQueue struct {
	ch   chan domain.TurnEvent
	once sync.Once
}

func NewMemoryQueue(buffer int) *MemoryQueue {
	if buffer <= 0 {
		buffer = 128
	}
	return &MemoryQueue{ch: make(chan domain.TurnEvent, buffer)}
}

func (q *MemoryQueue) Publish(ctx context.Context, event domain.TurnEvent) error {
	select {
	case q.ch <- event:
		return nil
	default:
		observability.Logger().Error("event queue full, dropping event", "event_id", event.ID)
		return fmt.Errorf("event queue full")
	}
}

// Events is the worker's end of the queue.
func (q *MemoryQueue) Events() <-chan domain.TurnEvent {
	return q.ch
}

func (q *MemoryQueue) Close() {
	q.once.Do(func() { close(q.ch) })
}

// MemoryCheckpointStore keeps step checkpoints in a map. Suitable for
// local mode; a process crash loses them, which only costs a full replay.
type MemoryCheckpointStore struct {
	mu     sync.RWMutex
	events map[string]map[string]json.RawMessage
}

func NewMemoryCheckpointStore() *MemoryCheckpointStore {
	return &MemoryCheckpointStore{
		events: make(map[string]map[string]json.RawMessage),
	}
}

func (s *MemoryCheckpointStore) Load(ctx context.Context, eventID, step string) (json.RawMessage, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	steps, ok := s.events[eventID]
	if !ok {
		return nil, false, nil
	}
	raw, ok := steps[step]
	return raw, ok, nil
}

func (s *MemoryCheckpointStore) Store(ctx context.Context, eventID, step string, result json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	steps, ok := s.events[eventID]
	if !ok {
		steps = make(map[string]json.RawMessage)
		s.events[eventID] = steps
	}
	steps[step] = append(json.RawMessage(nil), result...)
	return nil
}

package memory

import (
	"sync"

	"github.com/halcyonlabs/halcyon/internal/domain"
)

// ActivityStore is a simple in-memory implementation of
// domain.ActivityStore. Append-only, insertion order preserved.
type ActivityStore struct {
	mu       sync.RWMutex
	byUserID map[domain.UserID][]*domain.Activity
}

func NewActivityStore() *ActivityStore {
	return &ActivityStore{
		byUserID: make(map[domain.UserID][]*domain.Activity),
	}
}

func (s *ActivityStore) AppendActivity(activity *domain.Activity) error {
	if activity == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *activity
	s.byUserID[activity.UserID] = append(s.byUserID[activity.UserID], &cp)
	return nil
}

func (s *ActivityStore) ListActivitiesByUser(userID domain.UserID) ([]*domain.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.byUserID[userID]
	out := make([]*domain.Activity, 0, len(entries))
	for _, a := range entries {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

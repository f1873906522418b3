package memory

import (
	"errors"
	"fmt"
	"sync"

	"github.com/halcyonlabs/halcyon/internal/domain"
)

// SessionStore keeps chat sessions in a map. NOT persistent, only suitable
// for development / local mode and tests.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*domain.ChatSession
	byUser   map[domain.UserID][]domain.SessionID
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[domain.SessionID]*domain.ChatSession),
		byUser:   make(map[domain.UserID][]domain.SessionID),
	}
}

func (s *SessionStore) CreateSession(session *domain.ChatSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.SessionID]; exists {
		return errors.New("session already exists")
	}

	s.sessions[session.SessionID] = session.Clone()
	s.byUser[session.UserID] = append(s.byUser[session.UserID], session.SessionID)
	return nil
}

func (s *SessionStore) FindBySessionID(id domain.SessionID) (*domain.ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}

	// Callers get a copy: the stored session only changes through Save.
	return sess.Clone(), nil
}

// Save replaces the stored session atomically (message append plus
// UpdatedAt touch land together).
func (s *SessionStore) Save(session *domain.ChatSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.SessionID]; !exists {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, session.SessionID)
	}

	s.sessions[session.SessionID] = session.Clone()
	return nil
}

func (s *SessionStore) ListSessionsByUser(userID domain.UserID, limit int) ([]*domain.ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byUser[userID]
	result := make([]*domain.ChatSession, 0, len(ids))
	for _, id := range ids {
		if sess, ok := s.sessions[id]; ok {
			result = append(result, sess.Clone())
			if limit > 0 && len(result) >= limit {
				break
			}
		}
	}

	return result, nil
}

package activity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/halcyonlabs/halcyon/internal/domain"
	"github.com/halcyonlabs/halcyon/internal/observability"
)

// Service owns the append-only activity log: manual activity entries and
// mood submissions both land here.
type Service struct {
	store domain.ActivityStore
	now   func() time.Time
}

func NewService(store domain.ActivityStore) *Service {
	return &Service{
		store: store,
		now:   time.Now,
	}
}

type LogActivityInput struct {
	UserID      domain.UserID
	Type        string
	Name        string
	Description string
	Duration    int
}

func (s *Service) LogActivity(ctx context.Context, in LogActivityInput) (*domain.Activity, error) {
	if in.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrUnauthenticated)
	}
	if strings.TrimSpace(in.Type) == "" || strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: type and name are required", domain.ErrInvalidArgument)
	}

	entry := &domain.Activity{
		ID:          domain.ActivityID(uuid.NewString()),
		UserID:      in.UserID,
		Type:        in.Type,
		Name:        in.Name,
		Description: in.Description,
		Timestamp:   s.now(),
		Duration:    in.Duration,
		Completed:   true,
	}

	if err := s.store.AppendActivity(entry); err != nil {
		return nil, fmt.Errorf("appending activity: %w", err)
	}

	observability.LoggerFromContext(ctx).Info("activity logged",
		"user_id", in.UserID,
		"type", in.Type,
	)

	return entry, nil
}

type SubmitMoodInput struct {
	UserID domain.UserID
	Score  int
	Note   string
}

func (s *Service) SubmitMood(ctx context.Context, in SubmitMoodInput) (*domain.Activity, error) {
	if in.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrUnauthenticated)
	}
	if in.Score < 0 || in.Score > 100 {
		return nil, fmt.Errorf("%w: mood score must be between 0 and 100", domain.ErrInvalidArgument)
	}

	score := in.Score
	entry := &domain.Activity{
		ID:        domain.ActivityID(uuid.NewString()),
		UserID:    in.UserID,
		Type:      domain.ActivityMood,
		Name:      "Mood Check",
		Timestamp: s.now(),
		Completed: true,
		MoodScore: &score,
		MoodNote:  in.Note,
	}

	if err := s.store.AppendActivity(entry); err != nil {
		return nil, fmt.Errorf("appending mood entry: %w", err)
	}

	observability.LoggerFromContext(ctx).Info("mood entry created", "user_id", in.UserID)

	return entry, nil
}

func (s *Service) ListActivities(ctx context.Context, userID domain.UserID) ([]*domain.Activity, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrUnauthenticated)
	}
	return s.store.ListActivitiesByUser(userID)
}

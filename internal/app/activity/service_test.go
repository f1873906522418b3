package activity_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonlabs/halcyon/internal/adapters/storage/memory"
	"github.com/halcyonlabs/halcyon/internal/app/activity"
	"github.com/halcyonlabs/halcyon/internal/domain"
)

func TestLogActivityValidation(t *testing.T) {
	svc := activity.NewService(memory.NewActivityStore())
	ctx := context.Background()

	_, err := svc.LogActivity(ctx, activity.LogActivityInput{UserID: "u1", Name: "Walk"})
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument), "missing type: %v", err)

	_, err = svc.LogActivity(ctx, activity.LogActivityInput{UserID: "u1", Type: "game"})
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument), "missing name: %v", err)

	_, err = svc.LogActivity(ctx, activity.LogActivityInput{Type: "game", Name: "Walk"})
	assert.True(t, errors.Is(err, domain.ErrUnauthenticated), "missing user: %v", err)

	entry, err := svc.LogActivity(ctx, activity.LogActivityInput{
		UserID: "u1", Type: "meditation", Name: "Evening sit", Duration: 10,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.True(t, entry.Completed)
}

func TestSubmitMoodBounds(t *testing.T) {
	svc := activity.NewService(memory.NewActivityStore())
	ctx := context.Background()

	for _, score := range []int{-1, 101} {
		_, err := svc.SubmitMood(ctx, activity.SubmitMoodInput{UserID: "u1", Score: score})
		assert.True(t, errors.Is(err, domain.ErrInvalidArgument), "score %d: %v", score, err)
	}

	entry, err := svc.SubmitMood(ctx, activity.SubmitMoodInput{UserID: "u1", Score: 72, Note: "better"})
	require.NoError(t, err)
	assert.Equal(t, domain.ActivityMood, entry.Type)
	require.NotNil(t, entry.MoodScore)
	assert.Equal(t, 72, *entry.MoodScore)
}

func TestListActivitiesKeepsInsertionOrder(t *testing.T) {
	svc := activity.NewService(memory.NewActivityStore())
	ctx := context.Background()

	names := []string{"one", "two", "three"}
	for _, n := range names {
		_, err := svc.LogActivity(ctx, activity.LogActivityInput{UserID: "u1", Type: "game", Name: n})
		require.NoError(t, err)
	}

	list, err := svc.ListActivities(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i, n := range names {
		assert.Equal(t, n, list[i].Name)
	}

	other, err := svc.ListActivities(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

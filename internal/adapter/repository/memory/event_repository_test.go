package memory_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/srgjo27/scalable_rsvp/internal/adapter/repository/memory"
	"github.com/srgjo27/scalable_rsvp/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttendeeCounter_StaysWithinBounds(t *testing.T) {
	repo := memory.NewEventRepository()
	ctx := context.Background()
	event := &domain.Event{ID: uuid.New(), MaxAttendees: 2}
	require.NoError(t, repo.Create(ctx, event))

	require.NoError(t, repo.IncrementAttendees(ctx, event.ID))
	require.NoError(t, repo.IncrementAttendees(ctx, event.ID))
	assert.ErrorIs(t, repo.IncrementAttendees(ctx, event.ID), domain.ErrCapacityExceeded)

	for i := 0; i < 2; i++ {
		released, err := repo.DecrementAttendees(ctx, event.ID)
		require.NoError(t, err)
		assert.True(t, released)
	}

	released, err := repo.DecrementAttendees(ctx, event.ID)
	require.NoError(t, err)
	assert.False(t, released)

	stored, err := repo.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.CurrentAttendees)
}

func TestAttendeeCounter_UnknownEvent(t *testing.T) {
	repo := memory.NewEventRepository()

	assert.ErrorIs(t, repo.IncrementAttendees(context.Background(), uuid.New()), domain.ErrEventNotFound)

	_, err := repo.DecrementAttendees(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
}

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketgate/gate-api/internal/cache"
	"github.com/ticketgate/gate-api/internal/domain"
	"github.com/ticketgate/gate-api/internal/repository/repotest"
)

func newEventRepository(t *testing.T) (*EventRepository, *repotest.Store) {
	t.Helper()

	backend := cache.NewMemoryBackend(0)
	t.Cleanup(backend.Close)
	store := repotest.NewStore()

	return NewEventRepository(store.Events(), cache.New(backend, cache.Options{NotFoundTTL: time.Minute})), store
}

func TestEventRepository_UpsertAndFind(t *testing.T) {
	ctx := context.Background()
	repo, store := newEventRepository(t)
	grace := 90 * time.Minute
	ends := time.Date(2026, 5, 14, 23, 0, 0, 0, time.UTC)

	_, err := repo.FindByID(ctx, 5)
	assert.ErrorIs(t, err, ErrEventNotFound)

	_, err = repo.Upsert(ctx, domain.Event{ID: 5, Name: "Expo", EndsAt: &ends, GraceWindow: &grace, ScansEnabled: true})
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "Expo", found.Name)
	require.NotNil(t, found.GraceWindow)
	assert.Equal(t, grace, *found.GraceWindow)
	assert.True(t, ends.Equal(*found.EndsAt))

	_, err = repo.FindByID(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, store.Calls("FindEvent"))
}

func TestEventRepository_TicketTypes(t *testing.T) {
	ctx := context.Background()
	repo, store := newEventRepository(t)

	_, err := repo.FindTicketType(ctx, 5, "VIP")
	assert.ErrorIs(t, err, ErrTicketTypeNotFound)

	stored, err := repo.UpsertTicketType(ctx, domain.TicketType{EventID: 5, Name: "VIP", AllowedCheckins: 3, DailyLimit: 1})
	require.NoError(t, err)
	assert.NotZero(t, stored.ID)

	found, err := repo.FindTicketType(ctx, 5, "VIP")
	require.NoError(t, err)
	assert.Equal(t, 1, found.DailyLimit)

	_, err = repo.UpsertTicketType(ctx, domain.TicketType{EventID: 5, Name: "VIP", AllowedCheckins: 3, DailyLimit: 2})
	require.NoError(t, err)

	found, err = repo.FindTicketType(ctx, 5, "VIP")
	require.NoError(t, err)
	assert.Equal(t, 2, found.DailyLimit)
	assert.Equal(t, stored.ID, found.ID)
	assert.Equal(t, 3, store.Calls("FindTicketType"))
}

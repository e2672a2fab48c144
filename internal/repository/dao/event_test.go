package dao

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventDAO_UpsertAndFind(t *testing.T) {
	db := requireDB(t)
	d := NewEventDAO(db)
	ctx := context.Background()

	_, err := d.FindByID(ctx, 42)
	assert.ErrorIs(t, err, ErrEventNotFound)

	start := time.Date(2026, 7, 1, 18, 0, 0, 0, time.UTC)
	_, err = d.Upsert(ctx, Event{ID: 42, Name: "Summer Fest", StartsAt: &start, ScansEnabled: true, Capacity: 500})
	require.NoError(t, err)

	_, err = d.Upsert(ctx, Event{ID: 42, Name: "Summer Fest 2026", StartsAt: &start, ScansEnabled: false, Capacity: 800})
	require.NoError(t, err)

	found, err := d.FindByID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "Summer Fest 2026", found.Name)
	assert.False(t, found.ScansEnabled)
	assert.Equal(t, 800, found.Capacity)
}

func TestEventDAO_TicketTypes(t *testing.T) {
	db := requireDB(t)
	d := NewEventDAO(db)
	ctx := context.Background()

	_, err := d.FindTicketType(ctx, 42, "vip")
	assert.ErrorIs(t, err, ErrTicketTypeNotFound)

	_, err = d.UpsertTicketType(ctx, TicketType{EventID: 42, Name: "vip", AllowedCheckins: 3, DailyLimit: 1})
	require.NoError(t, err)
	updated, err := d.UpsertTicketType(ctx, TicketType{EventID: 42, Name: "vip", AllowedCheckins: 4, DailyLimit: 2})
	require.NoError(t, err)
	assert.NotZero(t, updated.ID)

	found, err := d.FindTicketType(ctx, 42, "vip")
	require.NoError(t, err)
	assert.Equal(t, 4, found.AllowedCheckins)
	assert.Equal(t, 2, found.DailyLimit)
}

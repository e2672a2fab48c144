package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ticketgate/gate-api/internal/domain"
	"github.com/ticketgate/gate-api/internal/repository/dao"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) FetchRoster(ctx context.Context, eventID uint) ([]domain.Attendee, error) {
	args := m.Called(ctx, eventID)
	roster, _ := args.Get(0).([]domain.Attendee)
	return roster, args.Error(1)
}

func TestSyncService_ImportRoster(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	stored, err := h.sync.ImportRoster(ctx, testEventID, []domain.Attendee{
		{TicketCode: " T-1 ", Name: "Ada", AllowedCheckins: 3, PaymentStatus: "PAID"},
		{TicketCode: "T-2", Name: "Grace", AllowedCheckins: 1},
	})
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "T-1", stored[0].TicketCode)
	assert.Equal(t, 3, stored[0].CheckinsRemaining)
	assert.Equal(t, "paid", stored[0].PaymentStatus)

	// Use two check-ins, then raise the allowance.
	for i := 0; i < 2; i++ {
		require.Equal(t, domain.StatusSuccess, h.admission.Admit(ctx, scan("T-1", domain.DirectionEntry)).Status)
	}

	stored, err = h.sync.ImportRoster(ctx, testEventID, []domain.Attendee{
		{TicketCode: "T-1", Name: "Ada Lovelace", AllowedCheckins: 5, PaymentStatus: "paid"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, stored[0].CheckinsRemaining)
	assert.True(t, stored[0].IsCurrentlyInside)

	found, err := h.roster.FindAttendee(ctx, testEventID, "T-1")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", found.Name)
	assert.Equal(t, 3, found.CheckinsRemaining)
}

func TestSyncService_ImportRosterMakesNegativeCacheVisible(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.roster.FindAttendee(ctx, testEventID, "T-LATE")
	require.ErrorIs(t, err, ErrAttendeeNotFound)

	_, err = h.sync.ImportRoster(ctx, testEventID, []domain.Attendee{{TicketCode: "T-LATE", AllowedCheckins: 1}})
	require.NoError(t, err)

	found, err := h.roster.FindAttendee(ctx, testEventID, "T-LATE")
	require.NoError(t, err)
	assert.Equal(t, 1, found.CheckinsRemaining)
}

func TestSyncService_ImportRosterRejects(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		eventID   uint
		attendees []domain.Attendee
		setup     func(h *harness)
		wantErr   error
	}{
		{
			name:      "invalid ticket code",
			eventID:   testEventID,
			attendees: []domain.Attendee{{TicketCode: "!!"}},
			wantErr:   ErrInvalidInput,
		},
		{
			name:      "duplicate ticket code",
			eventID:   testEventID,
			attendees: []domain.Attendee{{TicketCode: "T-1"}, {TicketCode: "T-1 "}},
			wantErr:   ErrInvalidInput,
		},
		{
			name:      "negative allowance",
			eventID:   testEventID,
			attendees: []domain.Attendee{{TicketCode: "T-1", AllowedCheckins: -1}},
			wantErr:   ErrInvalidInput,
		},
		{
			name:      "missing event",
			eventID:   404,
			attendees: []domain.Attendee{{TicketCode: "T-1"}},
			wantErr:   ErrEventNotFound,
		},
		{
			name:      "archived event",
			eventID:   testEventID,
			attendees: []domain.Attendee{{TicketCode: "T-1"}},
			setup:     func(h *harness) { h.clock.Set(eventEnd.Add(24 * time.Hour)) },
			wantErr:   ErrEventArchived,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			if tt.setup != nil {
				tt.setup(h)
			}

			_, err := h.sync.ImportRoster(ctx, tt.eventID, tt.attendees)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 0, h.store.Calls("Upsert"))
		})
	}
}

func TestSyncService_Sync(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.sync.Sync(ctx, testEventID)
	assert.ErrorIs(t, err, ErrNoProvider)

	provider := &mockProvider{}
	provider.On("FetchRoster", mock.Anything, uint(testEventID)).
		Return([]domain.Attendee{{TicketCode: "T-P1", AllowedCheckins: 2}}, nil).Once()
	provider.On("FetchRoster", mock.Anything, uint(testEventID)).
		Return(nil, errors.New("provider timeout")).Once()
	h.sync = NewSyncService(h.attendees, h.events, NewEventGate(h.events, h.clock, time.Hour), provider)

	stored, err := h.sync.Sync(ctx, testEventID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "T-P1", stored[0].TicketCode)

	_, err = h.sync.Sync(ctx, testEventID)
	assert.ErrorContains(t, err, "provider timeout")

	_, err = h.sync.Sync(ctx, 404)
	assert.ErrorIs(t, err, ErrEventNotFound)

	provider.AssertExpectations(t)
}

func TestSyncService_UpsertTicketType(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.sync.UpsertTicketType(ctx, domain.TicketType{EventID: testEventID, Name: "VIP", DailyLimit: -1})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = h.sync.UpsertTicketType(ctx, domain.TicketType{EventID: 404, Name: "VIP"})
	assert.ErrorIs(t, err, ErrEventNotFound)

	stored, err := h.sync.UpsertTicketType(ctx, domain.TicketType{EventID: testEventID, Name: " VIP ", AllowedCheckins: 2, DailyLimit: 1})
	require.NoError(t, err)
	assert.Equal(t, "VIP", stored.Name)

	found, err := h.events.FindTicketType(ctx, testEventID, "VIP")
	require.NoError(t, err)
	assert.Equal(t, 1, found.DailyLimit)
}

func TestSyncService_UpsertEvent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	start, end := eventStart, eventEnd
	negative := -time.Minute

	tests := []struct {
		name  string
		event domain.Event
	}{
		{name: "missing id", event: domain.Event{Name: "Fair"}},
		{name: "missing name", event: domain.Event{ID: 3, Name: "  "}},
		{name: "ends before start", event: domain.Event{ID: 3, Name: "Fair", StartsAt: &end, EndsAt: &start}},
		{name: "negative grace", event: domain.Event{ID: 3, Name: "Fair", GraceWindow: &negative}},
		{name: "negative capacity", event: domain.Event{ID: 3, Name: "Fair", Capacity: -5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.sync.UpsertEvent(ctx, tt.event)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	// A cached event is refreshed by the upsert.
	gate, err := h.sync.gate.CanAdmit(ctx, testEventID)
	require.NoError(t, err)
	assert.Equal(t, GateOpen, gate.Verdict)

	_, err = h.sync.UpsertEvent(ctx, domain.Event{ID: testEventID, Name: "Spring Fair", StartsAt: &start, EndsAt: &end})
	require.NoError(t, err)

	gate, err = h.sync.gate.CanAdmit(ctx, testEventID)
	require.NoError(t, err)
	assert.Equal(t, GateDisabled, gate.Verdict)
}

func TestRosterService(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.store.PutAttendee(dao.Attendee{EventID: testEventID, TicketCode: "T-R1", AllowedCheckins: 1, CheckinsRemaining: 1})

	_, err := h.roster.FindAttendee(ctx, testEventID, "x")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = h.roster.FindAttendee(ctx, testEventID, "T-R2")
	assert.ErrorIs(t, err, ErrAttendeeNotFound)

	h.admission.Admit(ctx, scan("T-R1", domain.DirectionEntry))
	h.admission.Admit(ctx, scan("T-R1", domain.DirectionEntry))

	history, err := h.roster.History(ctx, testEventID, "T-R1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.AuditSuccess, history[0].Status)
	assert.Equal(t, domain.AuditDuplicate, history[1].Status)
	require.NotNil(t, history[0].AttendeeID)
}

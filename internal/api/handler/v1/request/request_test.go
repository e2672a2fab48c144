package request

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketgate/gate-api/internal/domain"
)

func TestScanRequest(t *testing.T) {
	req := ScanRequest{TicketCode: "T-100", EntranceName: "North Gate"}
	require.NoError(t, req.Validate())

	scan := req.ToDomain(7, "north-gate")
	assert.Equal(t, domain.ScanRequest{
		EventID:      7,
		TicketCode:   "T-100",
		EntranceName: "North Gate",
		OperatorName: "north-gate",
	}, scan)

	req.OperatorName = "Sam"
	assert.Equal(t, "Sam", req.ToDomain(7, "north-gate").OperatorName)

	assert.Error(t, (&ScanRequest{EntranceName: "North Gate"}).Validate())
	assert.Error(t, (&ScanRequest{TicketCode: "T-100"}).Validate())
}

func TestBulkScanRequest(t *testing.T) {
	assert.Error(t, (&BulkScanRequest{}).Validate())

	req := BulkScanRequest{Items: []BulkScanItem{
		{TicketCode: "T-1", EntranceName: "North Gate"},
		{TicketCode: "T-2", Direction: "exit", EntranceName: "North Gate", OperatorName: "Sam"},
	}}
	require.NoError(t, req.Validate())

	items := req.ToDomain("north-gate")
	require.Len(t, items, 2)
	assert.Equal(t, "north-gate", items[0].OperatorName)
	assert.Equal(t, "Sam", items[1].OperatorName)
	assert.Equal(t, domain.DirectionExit, items[1].Direction)
}

func TestImportRosterRequest(t *testing.T) {
	assert.Error(t, (&ImportRosterRequest{}).Validate())

	req := ImportRosterRequest{Attendees: []AttendeeInput{
		{TicketCode: "T-1", Email: "ada@example.com", AllowedCheckins: 2},
		{TicketCode: "T-2"},
	}}
	require.NoError(t, req.Validate())
	assert.Len(t, req.ToDomain(), 2)

	req.Attendees[1].Email = "nope"
	assert.ErrorContains(t, req.Validate(), "attendees[1]")

	req.Attendees[1].Email = ""
	req.Attendees[0].AllowedCheckins = -1
	assert.ErrorContains(t, req.Validate(), "attendees[0]")
}

func TestTicketTypeRequest(t *testing.T) {
	req := TicketTypeRequest{AllowedCheckins: 3, DailyLimit: 1}
	require.NoError(t, req.Validate())
	assert.Equal(t, domain.TicketType{
		EventID:         7,
		Name:            "VIP",
		AllowedCheckins: 3,
		DailyLimit:      1,
	}, req.ToDomain(7, "VIP"))

	assert.Error(t, (&TicketTypeRequest{MonthlyLimit: -1}).Validate())
}

func TestEventRequest(t *testing.T) {
	starts := time.Date(2026, 5, 14, 12, 0, 0, 0, time.UTC)
	grace := 45
	disabled := false

	req := EventRequest{Name: "Spring Fair", StartsAt: &starts, GraceWindowMinutes: &grace}
	require.NoError(t, req.Validate())

	event := req.ToDomain(7)
	assert.Equal(t, uint(7), event.ID)
	assert.True(t, event.ScansEnabled)
	require.NotNil(t, event.GraceWindow)
	assert.Equal(t, 45*time.Minute, *event.GraceWindow)

	req.ScansEnabled = &disabled
	assert.False(t, req.ToDomain(7).ScansEnabled)

	negative := -5
	assert.Error(t, (&EventRequest{Name: "Spring Fair", GraceWindowMinutes: &negative}).Validate())
	assert.Error(t, (&EventRequest{}).Validate())
}

package service

import (
	"sync"
	"testing"
	"time"

	"github.com/ticketgate/gate-api/internal/cache"
	"github.com/ticketgate/gate-api/internal/domain"
	"github.com/ticketgate/gate-api/internal/pkg/clock"
	"github.com/ticketgate/gate-api/internal/pkg/keylock"
	"github.com/ticketgate/gate-api/internal/repository"
	"github.com/ticketgate/gate-api/internal/repository/dao"
	"github.com/ticketgate/gate-api/internal/repository/repotest"
)

const testEventID = 1

var (
	eventStart = time.Date(2026, 5, 14, 12, 0, 0, 0, time.UTC)
	eventEnd   = time.Date(2026, 5, 14, 23, 0, 0, 0, time.UTC)
)

type recordingNotifier struct {
	mu      sync.Mutex
	changes []domain.OccupancyChange
}

func (n *recordingNotifier) Notify(change domain.OccupancyChange) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, change)
}

func (n *recordingNotifier) Changes() []domain.OccupancyChange {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.OccupancyChange(nil), n.changes...)
}

type harness struct {
	store     *repotest.Store
	attendees *repository.AttendeeRepository
	events    *repository.EventRepository
	clock     *clock.FakeClock
	locks     *keylock.Registry
	notifier  *recordingNotifier
	admission *AdmissionService
	sync      *SyncService
	roster    *RosterService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	backend := cache.NewMemoryBackend(0)
	t.Cleanup(backend.Close)

	return newHarnessWithBackend(t, backend)
}

func newHarnessWithBackend(t *testing.T, backend cache.Backend) *harness {
	t.Helper()

	h := &harness{
		store:    repotest.NewStore(),
		clock:    clock.Fake(time.Date(2026, 5, 14, 18, 0, 0, 0, time.UTC)),
		locks:    keylock.New(),
		notifier: &recordingNotifier{},
	}

	c := cache.New(backend, cache.Options{NotFoundTTL: time.Minute})
	h.attendees = repository.NewAttendeeRepository(h.store.Attendees(), c)
	h.events = repository.NewEventRepository(h.store.Events(), c)

	conf := AdmissionConfig{DefaultGraceWindow: 2 * time.Hour, MaxBulkItems: 5}
	h.admission = NewAdmissionService(h.attendees, h.events, h.locks, h.notifier, h.clock, conf)
	h.sync = NewSyncService(h.attendees, h.events, NewEventGate(h.events, h.clock, conf.DefaultGraceWindow), nil)
	h.roster = NewRosterService(h.attendees)

	start, end := eventStart, eventEnd
	h.store.PutEvent(dao.Event{ID: testEventID, Name: "Spring Fair", StartsAt: &start, EndsAt: &end, ScansEnabled: true})

	return h
}

func (h *harness) addAttendee(code string, allowed int) dao.Attendee {
	return h.store.PutAttendee(dao.Attendee{
		EventID:           testEventID,
		TicketCode:        code,
		TicketType:        "General",
		Name:              "Guest " + code,
		AllowedCheckins:   allowed,
		CheckinsRemaining: allowed,
		PaymentStatus:     "paid",
	})
}

func (h *harness) row(code string) dao.Attendee {
	a, _ := h.store.Attendee(testEventID, code)
	return a
}

func (h *harness) auditStatuses(code string) []string {
	var statuses []string
	for _, c := range h.store.CheckIns() {
		if c.TicketCode == code {
			statuses = append(statuses, c.Status)
		}
	}
	return statuses
}

func (h *harness) openSessions(attendeeID uint) int {
	var open int
	for _, s := range h.store.Sessions() {
		if s.AttendeeID == attendeeID && s.ExitedAt == nil {
			open++
		}
	}
	return open
}

func scan(code string, direction domain.Direction) domain.ScanRequest {
	return domain.ScanRequest{
		EventID:      testEventID,
		TicketCode:   code,
		Direction:    direction,
		EntranceName: "North Gate",
		OperatorName: "alice",
	}
}

// Package repotest provides an in-memory record store implementing the
// repository DAO interfaces, with transaction rollback, row lock and
// failure injection hooks for service tests.
package repotest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ticketgate/gate-api/internal/repository/dao"
)

type txKey struct{}

type state struct {
	attendees   map[uint]dao.Attendee
	sessions    map[uint]dao.CheckInSession
	checkIns    []dao.CheckIn
	entrances   map[string]dao.Entrance
	events      map[uint]dao.Event
	ticketTypes map[uint]dao.TicketType
	nextID      uint
}

func (s state) clone() state {
	c := state{
		attendees:   make(map[uint]dao.Attendee, len(s.attendees)),
		sessions:    make(map[uint]dao.CheckInSession, len(s.sessions)),
		checkIns:    append([]dao.CheckIn(nil), s.checkIns...),
		entrances:   make(map[string]dao.Entrance, len(s.entrances)),
		events:      make(map[uint]dao.Event, len(s.events)),
		ticketTypes: make(map[uint]dao.TicketType, len(s.ticketTypes)),
		nextID:      s.nextID,
	}
	for k, v := range s.attendees {
		c.attendees[k] = v
	}
	for k, v := range s.sessions {
		c.sessions[k] = v
	}
	for k, v := range s.entrances {
		c.entrances[k] = v
	}
	for k, v := range s.events {
		c.events[k] = v
	}
	for k, v := range s.ticketTypes {
		c.ticketTypes[k] = v
	}
	return c
}

// Store is the shared state behind AttendeeDAO and EventDAO. Transactions
// are serialized; a failed transaction restores the state it started from.
type Store struct {
	txMu sync.Mutex

	mu       sync.Mutex
	data     state
	failures map[string]error
	locked   map[string]bool
	calls    map[string]int
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		data: state{
			attendees:   make(map[uint]dao.Attendee),
			sessions:    make(map[uint]dao.CheckInSession),
			entrances:   make(map[string]dao.Entrance),
			events:      make(map[uint]dao.Event),
			ticketTypes: make(map[uint]dao.TicketType),
		},
		failures: make(map[string]error),
		locked:   make(map[string]bool),
		calls:    make(map[string]int),
		now:      time.Now,
	}
}

func (s *Store) Attendees() *AttendeeDAO {
	return &AttendeeDAO{s: s}
}

func (s *Store) Events() *EventDAO {
	return &EventDAO{s: s}
}

// FailOn makes every later call of the named DAO method return err until
// ClearFailures is called.
func (s *Store) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = err
}

func (s *Store) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = make(map[string]error)
}

// LockRow simulates another instance holding the row lock of a ticket.
func (s *Store) LockRow(eventID uint, ticketCode string, locked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locked[rowKey(eventID, ticketCode)] = locked
}

// Calls reports how many times the named DAO method ran.
func (s *Store) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

func (s *Store) CheckIns() []dao.CheckIn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]dao.CheckIn(nil), s.data.checkIns...)
}

func (s *Store) Sessions() []dao.CheckInSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := make([]dao.CheckInSession, 0, len(s.data.sessions))
	for _, session := range s.data.sessions {
		sessions = append(sessions, session)
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].ID < sessions[j].ID })
	return sessions
}

func (s *Store) Entrances() []dao.Entrance {
	s.mu.Lock()
	defer s.mu.Unlock()

	entrances := make([]dao.Entrance, 0, len(s.data.entrances))
	for _, e := range s.data.entrances {
		entrances = append(entrances, e)
	}
	sort.Slice(entrances, func(i, j int) bool { return entrances[i].ID < entrances[j].ID })
	return entrances
}

// Attendee reads a row directly, bypassing transactions and failures.
func (s *Store) Attendee(eventID uint, ticketCode string) (dao.Attendee, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findAttendee(eventID, ticketCode)
}

// PutAttendee inserts or replaces a row directly and returns it with its id.
func (s *Store) PutAttendee(a dao.Attendee) dao.Attendee {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.findAttendee(a.EventID, a.TicketCode); ok {
		a.ID = existing.ID
	}
	if a.ID == 0 {
		a.ID = s.id()
	}
	s.data.attendees[a.ID] = a
	return a
}

func (s *Store) PutEvent(e dao.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.events[e.ID] = e
}

func (s *Store) PutTicketType(t dao.TicketType) dao.TicketType {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, existing := range s.data.ticketTypes {
		if existing.EventID == t.EventID && existing.Name == t.Name {
			t.ID = id
		}
	}
	if t.ID == 0 {
		t.ID = s.id()
	}
	s.data.ticketTypes[t.ID] = t
	return t
}

func (s *Store) transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	saved := s.data.clone()
	s.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.data = saved
		s.mu.Unlock()
		return err
	}
	return nil
}

// write runs fn under the data lock, inside the caller's transaction or a
// single-statement one.
func (s *Store) write(ctx context.Context, method string, fn func() error) error {
	return s.transaction(ctx, func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if err := s.enter(method); err != nil {
			return err
		}
		return fn()
	})
}

// read runs fn under the data lock.
func (s *Store) read(ctx context.Context, method string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(method); err != nil {
		return err
	}
	return fn()
}

func (s *Store) enter(method string) error {
	s.calls[method]++
	if err := s.failures[method]; err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

func (s *Store) id() uint {
	s.data.nextID++
	return s.data.nextID
}

func (s *Store) findAttendee(eventID uint, ticketCode string) (dao.Attendee, bool) {
	for _, a := range s.data.attendees {
		if a.EventID == eventID && a.TicketCode == ticketCode {
			return a, true
		}
	}
	return dao.Attendee{}, false
}

func rowKey(eventID uint, ticketCode string) string {
	return fmt.Sprintf("%d/%s", eventID, ticketCode)
}

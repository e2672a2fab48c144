package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ticketgate/gate-api/internal/cache"
	"github.com/ticketgate/gate-api/internal/domain"
	"github.com/ticketgate/gate-api/internal/repository/dao"
)

var (
	ErrAttendeeNotFound = dao.ErrAttendeeNotFound
	ErrAttendeeLocked   = dao.ErrAttendeeLocked
	ErrSessionNotFound  = dao.ErrSessionNotFound
	ErrSessionConflict  = dao.ErrSessionConflict
)

type AttendeeDAO interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
	FindForUpdate(ctx context.Context, eventID uint, ticketCode string) (dao.Attendee, error)
	FindByTicketCode(ctx context.Context, eventID uint, ticketCode string) (dao.Attendee, error)
	FindByID(ctx context.Context, id uint) (dao.Attendee, error)
	ListByEvent(ctx context.Context, eventID uint) ([]dao.Attendee, error)
	Update(ctx context.Context, attendee dao.Attendee) (dao.Attendee, error)
	Upsert(ctx context.Context, attendees []dao.Attendee) ([]dao.Attendee, error)
	FindOpenSession(ctx context.Context, attendeeID uint) (dao.CheckInSession, error)
	InsertSession(ctx context.Context, session dao.CheckInSession) (dao.CheckInSession, error)
	UpdateSession(ctx context.Context, session dao.CheckInSession) (dao.CheckInSession, error)
	InsertCheckIn(ctx context.Context, checkIn dao.CheckIn) (dao.CheckIn, error)
	ListCheckIns(ctx context.Context, eventID uint, ticketCode string) ([]dao.CheckIn, error)
	UpsertEntrance(ctx context.Context, eventID uint, name string, seenAt time.Time) error
	CountByEvent(ctx context.Context, eventID uint) (int64, error)
	CountInside(ctx context.Context, eventID uint) (int64, error)
	EntranceTallies(ctx context.Context, eventID uint) ([]dao.EntranceTally, error)
}

type AttendeeRepository struct {
	dao   AttendeeDAO
	cache *cache.Cache
}

func NewAttendeeRepository(dao AttendeeDAO, c *cache.Cache) *AttendeeRepository {
	return &AttendeeRepository{
		dao:   dao,
		cache: c,
	}
}

// WithinTx runs fn in one record store transaction. Repository calls made
// with the ctx handed to fn take part in it; returning an error rolls back.
func (r *AttendeeRepository) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.dao.Transaction(ctx, fn)
}

// LockAttendee reads the attendee row under an exclusive row lock. It must
// be called inside WithinTx.
func (r *AttendeeRepository) LockAttendee(ctx context.Context, eventID uint, ticketCode string) (domain.Attendee, error) {
	found, err := r.dao.FindForUpdate(ctx, eventID, ticketCode)
	if err != nil {
		return domain.Attendee{}, fmt.Errorf("r.dao.FindForUpdate -> %w", err)
	}

	return r.daoToDomain(found), nil
}

func (r *AttendeeRepository) SaveAttendee(ctx context.Context, attendee domain.Attendee) (domain.Attendee, error) {
	updated, err := r.dao.Update(ctx, r.domainToDAO(attendee))
	if err != nil {
		return domain.Attendee{}, fmt.Errorf("r.dao.Update -> %w", err)
	}

	return r.daoToDomain(updated), nil
}

func (r *AttendeeRepository) FindByTicketCode(ctx context.Context, eventID uint, ticketCode string) (domain.Attendee, error) {
	found, err := cache.ReadThrough(ctx, r.cache, cache.AttendeeByTicketKey(eventID, ticketCode), ErrAttendeeNotFound,
		func(ctx context.Context) (domain.Attendee, error) {
			found, err := r.dao.FindByTicketCode(ctx, eventID, ticketCode)
			if err != nil {
				return domain.Attendee{}, err
			}
			return r.daoToDomain(found), nil
		})
	if err != nil {
		return domain.Attendee{}, fmt.Errorf("r.dao.FindByTicketCode -> %w", err)
	}

	return found, nil
}

func (r *AttendeeRepository) FindByID(ctx context.Context, id uint) (domain.Attendee, error) {
	found, err := cache.ReadThrough(ctx, r.cache, cache.AttendeeByIDKey(id), ErrAttendeeNotFound,
		func(ctx context.Context) (domain.Attendee, error) {
			found, err := r.dao.FindByID(ctx, id)
			if err != nil {
				return domain.Attendee{}, err
			}
			return r.daoToDomain(found), nil
		})
	if err != nil {
		return domain.Attendee{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	return found, nil
}

// ListByEvent returns the event roster ordered by ticket code.
func (r *AttendeeRepository) ListByEvent(ctx context.Context, eventID uint) ([]domain.Attendee, error) {
	roster, err := cache.ReadThrough(ctx, r.cache, cache.RosterKey(eventID), nil,
		func(ctx context.Context) ([]domain.Attendee, error) {
			found, err := r.dao.ListByEvent(ctx, eventID)
			if err != nil {
				return nil, err
			}

			roster := make([]domain.Attendee, 0, len(found))
			for _, a := range found {
				roster = append(roster, r.daoToDomain(a))
			}
			return roster, nil
		})
	if err != nil {
		return nil, fmt.Errorf("r.dao.ListByEvent -> %w", err)
	}

	return roster, nil
}

// UpsertRoster inserts or refreshes attendees of one event, keeping the
// check-ins they already used, and drops their cached entries.
func (r *AttendeeRepository) UpsertRoster(ctx context.Context, eventID uint, attendees []domain.Attendee) ([]domain.Attendee, error) {
	rows := make([]dao.Attendee, 0, len(attendees))
	for _, a := range attendees {
		row := r.domainToDAO(a)
		row.ID = 0
		row.EventID = eventID
		row.CheckinsRemaining = row.AllowedCheckins
		rows = append(rows, row)
	}

	stored, err := r.dao.Upsert(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("r.dao.Upsert -> %w", err)
	}

	result := make([]domain.Attendee, 0, len(stored))
	keys := make([]string, 0, 2*len(stored)+1)
	for _, row := range stored {
		a := r.daoToDomain(row)
		result = append(result, a)
		keys = append(keys, cache.AttendeeByTicketKey(eventID, a.TicketCode), cache.AttendeeByIDKey(a.ID))
	}
	keys = append(keys, cache.RosterKey(eventID), cache.OccupancyKey(eventID))
	r.cache.Invalidate(ctx, keys...)

	return result, nil
}

// InvalidateAttendee drops every cached view the attendee appears in.
func (r *AttendeeRepository) InvalidateAttendee(ctx context.Context, attendee domain.Attendee) {
	keys := []string{
		cache.AttendeeByTicketKey(attendee.EventID, attendee.TicketCode),
		cache.RosterKey(attendee.EventID),
		cache.OccupancyKey(attendee.EventID),
	}
	if attendee.ID != 0 {
		keys = append(keys, cache.AttendeeByIDKey(attendee.ID))
	}
	r.cache.Invalidate(ctx, keys...)
}

func (r *AttendeeRepository) FindOpenSession(ctx context.Context, attendeeID uint) (domain.CheckInSession, error) {
	found, err := r.dao.FindOpenSession(ctx, attendeeID)
	if err != nil {
		return domain.CheckInSession{}, fmt.Errorf("r.dao.FindOpenSession -> %w", err)
	}

	return r.sessionDAOToDomain(found), nil
}

// OpenSession starts a session at entrance, or refreshes the one already
// open, so an attendee never has more than one open session.
func (r *AttendeeRepository) OpenSession(ctx context.Context, attendee domain.Attendee, entrance string, at time.Time) (domain.CheckInSession, error) {
	open, err := r.dao.FindOpenSession(ctx, attendee.ID)
	switch {
	case err == nil:
		open.Entrance = entrance
		open.EnteredAt = at
		updated, err := r.dao.UpdateSession(ctx, open)
		if err != nil {
			return domain.CheckInSession{}, fmt.Errorf("r.dao.UpdateSession -> %w", err)
		}
		return r.sessionDAOToDomain(updated), nil
	case !errors.Is(err, dao.ErrSessionNotFound):
		return domain.CheckInSession{}, fmt.Errorf("r.dao.FindOpenSession -> %w", err)
	}

	created, err := r.dao.InsertSession(ctx, dao.CheckInSession{
		AttendeeID: attendee.ID,
		EventID:    attendee.EventID,
		Entrance:   entrance,
		EnteredAt:  at,
	})
	if err != nil {
		return domain.CheckInSession{}, fmt.Errorf("r.dao.InsertSession -> %w", err)
	}

	return r.sessionDAOToDomain(created), nil
}

// CloseSession stamps the exit time on the open session. ErrSessionNotFound
// is returned when there is none.
func (r *AttendeeRepository) CloseSession(ctx context.Context, attendeeID uint, at time.Time) (domain.CheckInSession, error) {
	open, err := r.dao.FindOpenSession(ctx, attendeeID)
	if err != nil {
		return domain.CheckInSession{}, fmt.Errorf("r.dao.FindOpenSession -> %w", err)
	}

	open.ExitedAt = &at
	updated, err := r.dao.UpdateSession(ctx, open)
	if err != nil {
		return domain.CheckInSession{}, fmt.Errorf("r.dao.UpdateSession -> %w", err)
	}

	return r.sessionDAOToDomain(updated), nil
}

func (r *AttendeeRepository) RecordCheckIn(ctx context.Context, checkIn domain.CheckIn) (domain.CheckIn, error) {
	created, err := r.dao.InsertCheckIn(ctx, dao.CheckIn{
		EventID:    checkIn.EventID,
		TicketCode: checkIn.TicketCode,
		AttendeeID: checkIn.AttendeeID,
		Direction:  string(checkIn.Direction),
		Entrance:   checkIn.Entrance,
		Operator:   checkIn.Operator,
		Status:     string(checkIn.Status),
		Message:    checkIn.Message,
		CreatedAt:  checkIn.CreatedAt,
	})
	if err != nil {
		return domain.CheckIn{}, fmt.Errorf("r.dao.InsertCheckIn -> %w", err)
	}

	return r.checkInDAOToDomain(created), nil
}

// ListCheckIns returns the audit trail of one ticket, oldest first.
func (r *AttendeeRepository) ListCheckIns(ctx context.Context, eventID uint, ticketCode string) ([]domain.CheckIn, error) {
	found, err := r.dao.ListCheckIns(ctx, eventID, ticketCode)
	if err != nil {
		return nil, fmt.Errorf("r.dao.ListCheckIns -> %w", err)
	}

	checkIns := make([]domain.CheckIn, 0, len(found))
	for _, c := range found {
		checkIns = append(checkIns, r.checkInDAOToDomain(c))
	}

	return checkIns, nil
}

func (r *AttendeeRepository) TouchEntrance(ctx context.Context, eventID uint, name string, at time.Time) error {
	if err := r.dao.UpsertEntrance(ctx, eventID, name, at); err != nil {
		return fmt.Errorf("r.dao.UpsertEntrance -> %w", err)
	}

	return nil
}

// OccupancyBreakdown computes the authoritative occupancy of an event from
// the record store. Percentage and ComputedAt are left to the caller.
func (r *AttendeeRepository) OccupancyBreakdown(ctx context.Context, eventID uint) (domain.OccupancySnapshot, error) {
	inside, err := r.dao.CountInside(ctx, eventID)
	if err != nil {
		return domain.OccupancySnapshot{}, fmt.Errorf("r.dao.CountInside -> %w", err)
	}

	total, err := r.dao.CountByEvent(ctx, eventID)
	if err != nil {
		return domain.OccupancySnapshot{}, fmt.Errorf("r.dao.CountByEvent -> %w", err)
	}

	tallies, err := r.dao.EntranceTallies(ctx, eventID)
	if err != nil {
		return domain.OccupancySnapshot{}, fmt.Errorf("r.dao.EntranceTallies -> %w", err)
	}

	snapshot := domain.OccupancySnapshot{
		EventID:        eventID,
		Inside:         int(inside),
		TotalAttendees: int(total),
		ByEntrance:     make(map[string]domain.EntranceTally),
	}
	for _, t := range tallies {
		tally := snapshot.ByEntrance[t.Entrance]
		switch domain.AuditStatus(t.Status) {
		case domain.AuditSuccess:
			tally.Entries += int(t.Count)
			snapshot.Entries += int(t.Count)
		case domain.AuditCheckedOut:
			tally.Exits += int(t.Count)
			snapshot.Exits += int(t.Count)
		}
		snapshot.ByEntrance[t.Entrance] = tally
	}

	return snapshot, nil
}

func (r *AttendeeRepository) daoToDomain(a dao.Attendee) domain.Attendee {
	return domain.Attendee{
		ID:                a.ID,
		EventID:           a.EventID,
		TicketCode:        a.TicketCode,
		TicketType:        a.TicketType,
		Name:              a.Name,
		Email:             a.Email,
		AllowedCheckins:   a.AllowedCheckins,
		CheckinsRemaining: a.CheckinsRemaining,
		PaymentStatus:     a.PaymentStatus,
		IsCurrentlyInside: a.IsCurrentlyInside,
		LastEntrance:      a.LastEntrance,
		CheckedInAt:       a.CheckedInAt,
		CheckedOutAt:      a.CheckedOutAt,
		DailyScans:        a.DailyScans,
		WeeklyScans:       a.WeeklyScans,
		MonthlyScans:      a.MonthlyScans,
		CountersResetAt:   a.CountersResetAt,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

func (r *AttendeeRepository) domainToDAO(a domain.Attendee) dao.Attendee {
	return dao.Attendee{
		ID:                a.ID,
		EventID:           a.EventID,
		TicketCode:        a.TicketCode,
		TicketType:        a.TicketType,
		Name:              a.Name,
		Email:             a.Email,
		AllowedCheckins:   a.AllowedCheckins,
		CheckinsRemaining: a.CheckinsRemaining,
		PaymentStatus:     a.PaymentStatus,
		IsCurrentlyInside: a.IsCurrentlyInside,
		LastEntrance:      a.LastEntrance,
		CheckedInAt:       a.CheckedInAt,
		CheckedOutAt:      a.CheckedOutAt,
		DailyScans:        a.DailyScans,
		WeeklyScans:       a.WeeklyScans,
		MonthlyScans:      a.MonthlyScans,
		CountersResetAt:   a.CountersResetAt,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

func (r *AttendeeRepository) sessionDAOToDomain(s dao.CheckInSession) domain.CheckInSession {
	return domain.CheckInSession{
		ID:         s.ID,
		AttendeeID: s.AttendeeID,
		EventID:    s.EventID,
		Entrance:   s.Entrance,
		EnteredAt:  s.EnteredAt,
		ExitedAt:   s.ExitedAt,
	}
}

func (r *AttendeeRepository) checkInDAOToDomain(c dao.CheckIn) domain.CheckIn {
	return domain.CheckIn{
		ID:         c.ID,
		EventID:    c.EventID,
		TicketCode: c.TicketCode,
		AttendeeID: c.AttendeeID,
		Direction:  domain.Direction(c.Direction),
		Entrance:   c.Entrance,
		Operator:   c.Operator,
		Status:     domain.AuditStatus(c.Status),
		Message:    c.Message,
		CreatedAt:  c.CreatedAt,
	}
}

package repotest

import (
	"context"
	"sort"
	"time"

	"github.com/ticketgate/gate-api/internal/repository/dao"
)

type AttendeeDAO struct {
	s *Store
}

func (d *AttendeeDAO) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return d.s.transaction(ctx, fn)
}

func (d *AttendeeDAO) FindForUpdate(ctx context.Context, eventID uint, ticketCode string) (dao.Attendee, error) {
	var found dao.Attendee
	err := d.s.read(ctx, "FindForUpdate", func() error {
		if d.s.locked[rowKey(eventID, ticketCode)] {
			return dao.ErrAttendeeLocked
		}
		a, ok := d.s.findAttendee(eventID, ticketCode)
		if !ok {
			return dao.ErrAttendeeNotFound
		}
		found = a
		return nil
	})
	return found, err
}

func (d *AttendeeDAO) FindByTicketCode(ctx context.Context, eventID uint, ticketCode string) (dao.Attendee, error) {
	var found dao.Attendee
	err := d.s.read(ctx, "FindByTicketCode", func() error {
		a, ok := d.s.findAttendee(eventID, ticketCode)
		if !ok {
			return dao.ErrAttendeeNotFound
		}
		found = a
		return nil
	})
	return found, err
}

func (d *AttendeeDAO) FindByID(ctx context.Context, id uint) (dao.Attendee, error) {
	var found dao.Attendee
	err := d.s.read(ctx, "FindByID", func() error {
		a, ok := d.s.data.attendees[id]
		if !ok {
			return dao.ErrAttendeeNotFound
		}
		found = a
		return nil
	})
	return found, err
}

func (d *AttendeeDAO) ListByEvent(ctx context.Context, eventID uint) ([]dao.Attendee, error) {
	var found []dao.Attendee
	err := d.s.read(ctx, "ListByEvent", func() error {
		for _, a := range d.s.data.attendees {
			if a.EventID == eventID {
				found = append(found, a)
			}
		}
		sort.Slice(found, func(i, j int) bool { return found[i].TicketCode < found[j].TicketCode })
		return nil
	})
	return found, err
}

func (d *AttendeeDAO) Update(ctx context.Context, attendee dao.Attendee) (dao.Attendee, error) {
	err := d.s.write(ctx, "Update", func() error {
		existing, ok := d.s.data.attendees[attendee.ID]
		if !ok {
			return dao.ErrAttendeeNotFound
		}
		attendee.CreatedAt = existing.CreatedAt
		attendee.UpdatedAt = d.s.now()
		d.s.data.attendees[attendee.ID] = attendee
		return nil
	})
	if err != nil {
		return dao.Attendee{}, err
	}
	return attendee, nil
}

func (d *AttendeeDAO) Upsert(ctx context.Context, attendees []dao.Attendee) ([]dao.Attendee, error) {
	stored := make([]dao.Attendee, 0, len(attendees))
	err := d.s.write(ctx, "Upsert", func() error {
		now := d.s.now()
		for _, a := range attendees {
			existing, ok := d.s.findAttendee(a.EventID, a.TicketCode)
			if !ok {
				a.ID = d.s.id()
				a.CreatedAt = now
				a.UpdatedAt = now
				d.s.data.attendees[a.ID] = a
				stored = append(stored, a)
				continue
			}

			used := existing.AllowedCheckins - existing.CheckinsRemaining
			existing.Name = a.Name
			existing.Email = a.Email
			existing.TicketType = a.TicketType
			existing.PaymentStatus = a.PaymentStatus
			existing.AllowedCheckins = a.AllowedCheckins
			existing.CheckinsRemaining = max(0, min(a.AllowedCheckins, a.AllowedCheckins-used))
			existing.UpdatedAt = now
			d.s.data.attendees[existing.ID] = existing
			stored = append(stored, existing)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func (d *AttendeeDAO) FindOpenSession(ctx context.Context, attendeeID uint) (dao.CheckInSession, error) {
	var found dao.CheckInSession
	err := d.s.read(ctx, "FindOpenSession", func() error {
		for _, session := range d.s.data.sessions {
			if session.AttendeeID == attendeeID && session.ExitedAt == nil {
				found = session
				return nil
			}
		}
		return dao.ErrSessionNotFound
	})
	return found, err
}

func (d *AttendeeDAO) InsertSession(ctx context.Context, session dao.CheckInSession) (dao.CheckInSession, error) {
	err := d.s.write(ctx, "InsertSession", func() error {
		for _, existing := range d.s.data.sessions {
			if existing.AttendeeID == session.AttendeeID && existing.ExitedAt == nil && session.ExitedAt == nil {
				return dao.ErrSessionConflict
			}
		}
		session.ID = d.s.id()
		d.s.data.sessions[session.ID] = session
		return nil
	})
	if err != nil {
		return dao.CheckInSession{}, err
	}
	return session, nil
}

func (d *AttendeeDAO) UpdateSession(ctx context.Context, session dao.CheckInSession) (dao.CheckInSession, error) {
	err := d.s.write(ctx, "UpdateSession", func() error {
		if _, ok := d.s.data.sessions[session.ID]; !ok {
			return dao.ErrSessionNotFound
		}
		d.s.data.sessions[session.ID] = session
		return nil
	})
	if err != nil {
		return dao.CheckInSession{}, err
	}
	return session, nil
}

func (d *AttendeeDAO) InsertCheckIn(ctx context.Context, checkIn dao.CheckIn) (dao.CheckIn, error) {
	err := d.s.write(ctx, "InsertCheckIn", func() error {
		checkIn.ID = d.s.id()
		if checkIn.CreatedAt.IsZero() {
			checkIn.CreatedAt = d.s.now()
		}
		d.s.data.checkIns = append(d.s.data.checkIns, checkIn)
		return nil
	})
	if err != nil {
		return dao.CheckIn{}, err
	}
	return checkIn, nil
}

func (d *AttendeeDAO) ListCheckIns(ctx context.Context, eventID uint, ticketCode string) ([]dao.CheckIn, error) {
	var found []dao.CheckIn
	err := d.s.read(ctx, "ListCheckIns", func() error {
		for _, c := range d.s.data.checkIns {
			if c.EventID == eventID && c.TicketCode == ticketCode {
				found = append(found, c)
			}
		}
		return nil
	})
	return found, err
}

func (d *AttendeeDAO) UpsertEntrance(ctx context.Context, eventID uint, name string, seenAt time.Time) error {
	return d.s.write(ctx, "UpsertEntrance", func() error {
		key := rowKey(eventID, name)
		entrance, ok := d.s.data.entrances[key]
		if !ok {
			entrance = dao.Entrance{ID: d.s.id(), EventID: eventID, Name: name, FirstSeenAt: seenAt}
		}
		entrance.LastSeenAt = seenAt
		d.s.data.entrances[key] = entrance
		return nil
	})
}

func (d *AttendeeDAO) CountByEvent(ctx context.Context, eventID uint) (int64, error) {
	var count int64
	err := d.s.read(ctx, "CountByEvent", func() error {
		for _, a := range d.s.data.attendees {
			if a.EventID == eventID {
				count++
			}
		}
		return nil
	})
	return count, err
}

func (d *AttendeeDAO) CountInside(ctx context.Context, eventID uint) (int64, error) {
	var count int64
	err := d.s.read(ctx, "CountInside", func() error {
		for _, a := range d.s.data.attendees {
			if a.EventID == eventID && a.IsCurrentlyInside {
				count++
			}
		}
		return nil
	})
	return count, err
}

func (d *AttendeeDAO) EntranceTallies(ctx context.Context, eventID uint) ([]dao.EntranceTally, error) {
	var tallies []dao.EntranceTally
	err := d.s.read(ctx, "EntranceTallies", func() error {
		index := make(map[[2]string]int)
		for _, c := range d.s.data.checkIns {
			if c.EventID != eventID || (c.Status != "success" && c.Status != "checked_out") {
				continue
			}
			key := [2]string{c.Entrance, c.Status}
			i, ok := index[key]
			if !ok {
				i = len(tallies)
				index[key] = i
				tallies = append(tallies, dao.EntranceTally{Entrance: c.Entrance, Status: c.Status})
			}
			tallies[i].Count++
		}
		return nil
	})
	return tallies, err
}

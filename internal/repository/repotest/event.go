package repotest

import (
	"context"

	"github.com/ticketgate/gate-api/internal/repository/dao"
)

type EventDAO struct {
	s *Store
}

func (d *EventDAO) FindByID(ctx context.Context, id uint) (dao.Event, error) {
	var found dao.Event
	err := d.s.read(ctx, "FindEvent", func() error {
		e, ok := d.s.data.events[id]
		if !ok {
			return dao.ErrEventNotFound
		}
		found = e
		return nil
	})
	return found, err
}

func (d *EventDAO) Upsert(ctx context.Context, event dao.Event) (dao.Event, error) {
	err := d.s.write(ctx, "UpsertEvent", func() error {
		now := d.s.now()
		if existing, ok := d.s.data.events[event.ID]; ok {
			event.CreatedAt = existing.CreatedAt
		} else {
			event.CreatedAt = now
		}
		event.UpdatedAt = now
		d.s.data.events[event.ID] = event
		return nil
	})
	if err != nil {
		return dao.Event{}, err
	}
	return event, nil
}

func (d *EventDAO) FindTicketType(ctx context.Context, eventID uint, name string) (dao.TicketType, error) {
	var found dao.TicketType
	err := d.s.read(ctx, "FindTicketType", func() error {
		for _, t := range d.s.data.ticketTypes {
			if t.EventID == eventID && t.Name == name {
				found = t
				return nil
			}
		}
		return dao.ErrTicketTypeNotFound
	})
	return found, err
}

func (d *EventDAO) UpsertTicketType(ctx context.Context, ticketType dao.TicketType) (dao.TicketType, error) {
	err := d.s.write(ctx, "UpsertTicketType", func() error {
		now := d.s.now()
		for id, existing := range d.s.data.ticketTypes {
			if existing.EventID == ticketType.EventID && existing.Name == ticketType.Name {
				ticketType.ID = id
				ticketType.CreatedAt = existing.CreatedAt
			}
		}
		if ticketType.ID == 0 {
			ticketType.ID = d.s.id()
			ticketType.CreatedAt = now
		}
		ticketType.UpdatedAt = now
		d.s.data.ticketTypes[ticketType.ID] = ticketType
		return nil
	})
	if err != nil {
		return dao.TicketType{}, err
	}
	return ticketType, nil
}

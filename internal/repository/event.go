package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/ticketgate/gate-api/internal/cache"
	"github.com/ticketgate/gate-api/internal/domain"
	"github.com/ticketgate/gate-api/internal/repository/dao"
)

var (
	ErrEventNotFound      = dao.ErrEventNotFound
	ErrTicketTypeNotFound = dao.ErrTicketTypeNotFound
)

type EventDAO interface {
	FindByID(ctx context.Context, id uint) (dao.Event, error)
	Upsert(ctx context.Context, event dao.Event) (dao.Event, error)
	FindTicketType(ctx context.Context, eventID uint, name string) (dao.TicketType, error)
	UpsertTicketType(ctx context.Context, ticketType dao.TicketType) (dao.TicketType, error)
}

type EventRepository struct {
	dao   EventDAO
	cache *cache.Cache
}

func NewEventRepository(dao EventDAO, c *cache.Cache) *EventRepository {
	return &EventRepository{
		dao:   dao,
		cache: c,
	}
}

func (r *EventRepository) FindByID(ctx context.Context, id uint) (domain.Event, error) {
	found, err := cache.ReadThrough(ctx, r.cache, cache.EventKey(id), ErrEventNotFound,
		func(ctx context.Context) (domain.Event, error) {
			found, err := r.dao.FindByID(ctx, id)
			if err != nil {
				return domain.Event{}, err
			}
			return r.daoToDomain(found), nil
		})
	if err != nil {
		return domain.Event{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	return found, nil
}

func (r *EventRepository) Upsert(ctx context.Context, event domain.Event) (domain.Event, error) {
	stored, err := r.dao.Upsert(ctx, r.domainToDAO(event))
	if err != nil {
		return domain.Event{}, fmt.Errorf("r.dao.Upsert -> %w", err)
	}
	r.cache.Invalidate(ctx, cache.EventKey(stored.ID))

	return r.daoToDomain(stored), nil
}

func (r *EventRepository) FindTicketType(ctx context.Context, eventID uint, name string) (domain.TicketType, error) {
	found, err := cache.ReadThrough(ctx, r.cache, cache.TicketTypeKey(eventID, name), ErrTicketTypeNotFound,
		func(ctx context.Context) (domain.TicketType, error) {
			found, err := r.dao.FindTicketType(ctx, eventID, name)
			if err != nil {
				return domain.TicketType{}, err
			}
			return r.ticketTypeDAOToDomain(found), nil
		})
	if err != nil {
		return domain.TicketType{}, fmt.Errorf("r.dao.FindTicketType -> %w", err)
	}

	return found, nil
}

func (r *EventRepository) UpsertTicketType(ctx context.Context, ticketType domain.TicketType) (domain.TicketType, error) {
	stored, err := r.dao.UpsertTicketType(ctx, dao.TicketType{
		EventID:         ticketType.EventID,
		Name:            ticketType.Name,
		AllowedCheckins: ticketType.AllowedCheckins,
		DailyLimit:      ticketType.DailyLimit,
		WeeklyLimit:     ticketType.WeeklyLimit,
		MonthlyLimit:    ticketType.MonthlyLimit,
	})
	if err != nil {
		return domain.TicketType{}, fmt.Errorf("r.dao.UpsertTicketType -> %w", err)
	}
	r.cache.Invalidate(ctx, cache.TicketTypeKey(stored.EventID, stored.Name))

	return r.ticketTypeDAOToDomain(stored), nil
}

func (r *EventRepository) daoToDomain(e dao.Event) domain.Event {
	event := domain.Event{
		ID:           e.ID,
		Name:         e.Name,
		StartsAt:     e.StartsAt,
		EndsAt:       e.EndsAt,
		ScansEnabled: e.ScansEnabled,
		Capacity:     e.Capacity,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
	if e.GraceWindowSeconds != nil {
		grace := time.Duration(*e.GraceWindowSeconds) * time.Second
		event.GraceWindow = &grace
	}

	return event
}

func (r *EventRepository) domainToDAO(e domain.Event) dao.Event {
	event := dao.Event{
		ID:           e.ID,
		Name:         e.Name,
		StartsAt:     e.StartsAt,
		EndsAt:       e.EndsAt,
		ScansEnabled: e.ScansEnabled,
		Capacity:     e.Capacity,
	}
	if e.GraceWindow != nil {
		seconds := int64(*e.GraceWindow / time.Second)
		event.GraceWindowSeconds = &seconds
	}

	return event
}

func (r *EventRepository) ticketTypeDAOToDomain(t dao.TicketType) domain.TicketType {
	return domain.TicketType{
		ID:              t.ID,
		EventID:         t.EventID,
		Name:            t.Name,
		AllowedCheckins: t.AllowedCheckins,
		DailyLimit:      t.DailyLimit,
		WeeklyLimit:     t.WeeklyLimit,
		MonthlyLimit:    t.MonthlyLimit,
		UpdatedAt:       t.UpdatedAt,
	}
}

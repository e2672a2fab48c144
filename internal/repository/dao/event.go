package dao

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrEventNotFound      = errors.New("event not found")
	ErrTicketTypeNotFound = errors.New("ticket type not found")
)

type Event struct {
	ID                 uint   `gorm:"primaryKey;autoIncrement:false"`
	Name               string `gorm:"not null"`
	StartsAt           *time.Time
	EndsAt             *time.Time
	GraceWindowSeconds *int64
	ScansEnabled       bool `gorm:"not null"`
	Capacity           int  `gorm:"not null"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type TicketType struct {
	ID              uint   `gorm:"primaryKey"`
	EventID         uint   `gorm:"not null;uniqueIndex:idx_ticket_types_event_name,priority:1"`
	Name            string `gorm:"not null;size:100;uniqueIndex:idx_ticket_types_event_name,priority:2"`
	AllowedCheckins int    `gorm:"not null"`
	DailyLimit      int    `gorm:"not null"`
	WeeklyLimit     int    `gorm:"not null"`
	MonthlyLimit    int    `gorm:"not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type EventDAO struct {
	db *gorm.DB
}

func NewEventDAO(db *gorm.DB) *EventDAO {
	return &EventDAO{
		db: db,
	}
}

func (d *EventDAO) FindByID(ctx context.Context, id uint) (Event, error) {
	var event Event

	result := conn(ctx, d.db).First(&event, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Event{}, ErrEventNotFound
		}

		return Event{}, result.Error
	}

	return event, nil
}

// Upsert stores provider-supplied event metadata. Event ids are assigned by
// the provider, not generated locally.
func (d *EventDAO) Upsert(ctx context.Context, event Event) (Event, error) {
	result := conn(ctx, d.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "starts_at", "ends_at", "grace_window_seconds", "scans_enabled", "capacity", "updated_at",
			}),
		}).
		Create(&event)
	if result.Error != nil {
		return Event{}, result.Error
	}

	return event, nil
}

func (d *EventDAO) FindTicketType(ctx context.Context, eventID uint, name string) (TicketType, error) {
	var ticketType TicketType

	result := conn(ctx, d.db).Where("event_id = ? AND name = ?", eventID, name).First(&ticketType)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return TicketType{}, ErrTicketTypeNotFound
		}

		return TicketType{}, result.Error
	}

	return ticketType, nil
}

func (d *EventDAO) UpsertTicketType(ctx context.Context, ticketType TicketType) (TicketType, error) {
	result := conn(ctx, d.db).
		Clauses(
			clause.OnConflict{
				Columns: []clause.Column{{Name: "event_id"}, {Name: "name"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"allowed_checkins", "daily_limit", "weekly_limit", "monthly_limit", "updated_at",
				}),
			},
			clause.Returning{},
		).
		Create(&ticketType)
	if result.Error != nil {
		return TicketType{}, result.Error
	}

	return ticketType, nil
}

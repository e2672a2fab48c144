package request

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/ticketgate/gate-api/internal/domain"
)

const maxImportSize = 10000

type ImportRosterRequest struct {
	Attendees []AttendeeInput `json:"attendees"`
}

func (req *ImportRosterRequest) Validate() error {
	err := validation.ValidateStruct(
		req,
		validation.Field(&req.Attendees, validation.Required, validation.Length(1, maxImportSize)),
	)
	if err != nil {
		return err
	}

	for i := range req.Attendees {
		if err = req.Attendees[i].Validate(); err != nil {
			return fmt.Errorf("attendees[%d]: %w", i, err)
		}
	}

	return nil
}

func (req *ImportRosterRequest) ToDomain() []domain.Attendee {
	attendees := make([]domain.Attendee, 0, len(req.Attendees))
	for _, in := range req.Attendees {
		attendees = append(attendees, domain.Attendee{
			TicketCode:      in.TicketCode,
			TicketType:      in.TicketType,
			Name:            in.Name,
			Email:           in.Email,
			AllowedCheckins: in.AllowedCheckins,
			PaymentStatus:   in.PaymentStatus,
		})
	}
	return attendees
}

type AttendeeInput struct {
	TicketCode      string `json:"ticket_code"`
	TicketType      string `json:"ticket_type"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	AllowedCheckins int    `json:"allowed_checkins"`
	PaymentStatus   string `json:"payment_status"`
}

func (in *AttendeeInput) Validate() error {
	return validation.ValidateStruct(
		in,
		validation.Field(&in.TicketCode, validation.Required),
		validation.Field(&in.Name, validation.Length(0, 200)),
		validation.Field(&in.Email, is.Email),
		validation.Field(&in.AllowedCheckins, validation.Min(0)),
		validation.Field(&in.PaymentStatus, validation.Length(0, 32)),
	)
}

type TicketTypeRequest struct {
	AllowedCheckins int `json:"allowed_checkins"`
	DailyLimit      int `json:"daily_limit"`
	WeeklyLimit     int `json:"weekly_limit"`
	MonthlyLimit    int `json:"monthly_limit"`
}

func (req *TicketTypeRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.AllowedCheckins, validation.Min(0)),
		validation.Field(&req.DailyLimit, validation.Min(0)),
		validation.Field(&req.WeeklyLimit, validation.Min(0)),
		validation.Field(&req.MonthlyLimit, validation.Min(0)),
	)
}

func (req *TicketTypeRequest) ToDomain(eventID uint, name string) domain.TicketType {
	return domain.TicketType{
		EventID:         eventID,
		Name:            name,
		AllowedCheckins: req.AllowedCheckins,
		DailyLimit:      req.DailyLimit,
		WeeklyLimit:     req.WeeklyLimit,
		MonthlyLimit:    req.MonthlyLimit,
	}
}

type EventRequest struct {
	Name               string     `json:"name"`
	StartsAt           *time.Time `json:"starts_at"`
	EndsAt             *time.Time `json:"ends_at"`
	GraceWindowMinutes *int       `json:"grace_window_minutes"`
	ScansEnabled       *bool      `json:"scans_enabled"`
	Capacity           int        `json:"capacity"`
}

func (req *EventRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&req.GraceWindowMinutes, validation.Min(0)),
		validation.Field(&req.Capacity, validation.Min(0)),
	)
}

// ToDomain builds the event. Scans are enabled unless the body says
// otherwise.
func (req *EventRequest) ToDomain(eventID uint) domain.Event {
	event := domain.Event{
		ID:           eventID,
		Name:         req.Name,
		StartsAt:     req.StartsAt,
		EndsAt:       req.EndsAt,
		ScansEnabled: true,
		Capacity:     req.Capacity,
	}
	if req.ScansEnabled != nil {
		event.ScansEnabled = *req.ScansEnabled
	}
	if req.GraceWindowMinutes != nil {
		grace := time.Duration(*req.GraceWindowMinutes) * time.Minute
		event.GraceWindow = &grace
	}
	return event
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"go.uber.org/zap"

	"github.com/ticketgate/gate-api/internal/domain"
)

var (
	ErrEventArchived = errors.New("event is archived")
	ErrNoProvider    = errors.New("no ticket provider configured")
)

// Provider fetches the roster of an event from the ticketing platform.
type Provider interface {
	FetchRoster(ctx context.Context, eventID uint) ([]domain.Attendee, error)
}

type SyncService struct {
	attendees AttendeeRepository
	events    EventRepository
	gate      *EventGate
	provider  Provider
}

func NewSyncService(attendees AttendeeRepository, events EventRepository, gate *EventGate, provider Provider) *SyncService {
	return &SyncService{
		attendees: attendees,
		events:    events,
		gate:      gate,
		provider:  provider,
	}
}

// ImportRoster upserts attendees of an event. Check-ins already used by a
// known ticket are kept when its allowance changes.
func (s *SyncService) ImportRoster(ctx context.Context, eventID uint, attendees []domain.Attendee) ([]domain.Attendee, error) {
	if err := validateRoster(attendees); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if err := s.requireImportable(ctx, eventID); err != nil {
		return nil, err
	}

	stored, err := s.attendees.UpsertRoster(ctx, eventID, normalizeRoster(attendees))
	if err != nil {
		return nil, fmt.Errorf("s.attendees.UpsertRoster -> %w", err)
	}

	zap.L().Info("roster imported", zap.Uint("event_id", eventID), zap.Int("attendees", len(stored)))

	return stored, nil
}

// Sync pulls the roster from the provider and imports it.
func (s *SyncService) Sync(ctx context.Context, eventID uint) ([]domain.Attendee, error) {
	if s.provider == nil {
		return nil, ErrNoProvider
	}

	if err := s.requireImportable(ctx, eventID); err != nil {
		return nil, err
	}

	roster, err := s.provider.FetchRoster(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("s.provider.FetchRoster -> %w", err)
	}

	return s.ImportRoster(ctx, eventID, roster)
}

func (s *SyncService) UpsertEvent(ctx context.Context, event domain.Event) (domain.Event, error) {
	event.Name = strings.TrimSpace(event.Name)
	err := validation.ValidateStruct(
		&event,
		validation.Field(&event.ID, validation.Required),
		validation.Field(&event.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&event.Capacity, validation.Min(0)),
	)
	if err != nil {
		return domain.Event{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if event.StartsAt != nil && event.EndsAt != nil && event.EndsAt.Before(*event.StartsAt) {
		return domain.Event{}, fmt.Errorf("%w: ends_at is before starts_at", ErrInvalidInput)
	}
	if event.GraceWindow != nil && *event.GraceWindow < 0 {
		return domain.Event{}, fmt.Errorf("%w: grace_window is negative", ErrInvalidInput)
	}

	stored, err := s.events.Upsert(ctx, event)
	if err != nil {
		return domain.Event{}, fmt.Errorf("s.events.Upsert -> %w", err)
	}

	return stored, nil
}

func (s *SyncService) UpsertTicketType(ctx context.Context, ticketType domain.TicketType) (domain.TicketType, error) {
	ticketType.Name = strings.TrimSpace(ticketType.Name)
	err := validation.ValidateStruct(
		&ticketType,
		validation.Field(&ticketType.EventID, validation.Required),
		validation.Field(&ticketType.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&ticketType.AllowedCheckins, validation.Min(0)),
		validation.Field(&ticketType.DailyLimit, validation.Min(0)),
		validation.Field(&ticketType.WeeklyLimit, validation.Min(0)),
		validation.Field(&ticketType.MonthlyLimit, validation.Min(0)),
	)
	if err != nil {
		return domain.TicketType{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if err = s.requireImportable(ctx, ticketType.EventID); err != nil {
		return domain.TicketType{}, err
	}

	stored, err := s.events.UpsertTicketType(ctx, ticketType)
	if err != nil {
		return domain.TicketType{}, fmt.Errorf("s.events.UpsertTicketType -> %w", err)
	}

	return stored, nil
}

func (s *SyncService) requireImportable(ctx context.Context, eventID uint) error {
	gate, err := s.gate.CanAdmit(ctx, eventID)
	if err != nil {
		return fmt.Errorf("s.gate.CanAdmit -> %w", err)
	}

	switch gate.Verdict {
	case GateMissing:
		return ErrEventNotFound
	case GateArchived:
		return ErrEventArchived
	}

	return nil
}

func validateRoster(attendees []domain.Attendee) error {
	seen := make(map[string]int, len(attendees))
	for i, a := range attendees {
		code := strings.TrimSpace(a.TicketCode)
		if err := ValidateTicketCode(code); err != nil {
			return fmt.Errorf("attendees[%d].ticket_code: %v", i, err)
		}
		if a.AllowedCheckins < 0 {
			return fmt.Errorf("attendees[%d].allowed_checkins: must be no less than 0", i)
		}
		if j, dup := seen[code]; dup {
			return fmt.Errorf("attendees[%d].ticket_code: duplicates attendees[%d]", i, j)
		}
		seen[code] = i
	}

	return nil
}

func normalizeRoster(attendees []domain.Attendee) []domain.Attendee {
	normalized := make([]domain.Attendee, 0, len(attendees))
	for _, a := range attendees {
		normalized = append(normalized, domain.Attendee{
			TicketCode:      strings.TrimSpace(a.TicketCode),
			TicketType:      strings.TrimSpace(a.TicketType),
			Name:            strings.TrimSpace(a.Name),
			Email:           strings.TrimSpace(a.Email),
			AllowedCheckins: a.AllowedCheckins,
			PaymentStatus:   strings.ToLower(strings.TrimSpace(a.PaymentStatus)),
		})
	}

	return normalized
}

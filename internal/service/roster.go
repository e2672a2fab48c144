package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/ticketgate/gate-api/internal/domain"
)

// RosterService serves the read side of the roster: cached lookups and the
// audit trail of a ticket.
type RosterService struct {
	attendees AttendeeRepository
}

func NewRosterService(attendees AttendeeRepository) *RosterService {
	return &RosterService{
		attendees: attendees,
	}
}

func (s *RosterService) FindAttendee(ctx context.Context, eventID uint, ticketCode string) (domain.Attendee, error) {
	ticketCode = strings.TrimSpace(ticketCode)
	if err := ValidateTicketCode(ticketCode); err != nil {
		return domain.Attendee{}, fmt.Errorf("%w: ticket_code: %v", ErrInvalidInput, err)
	}

	attendee, err := s.attendees.FindByTicketCode(ctx, eventID, ticketCode)
	if err != nil {
		return domain.Attendee{}, fmt.Errorf("s.attendees.FindByTicketCode -> %w", err)
	}

	return attendee, nil
}

func (s *RosterService) ListAttendees(ctx context.Context, eventID uint) ([]domain.Attendee, error) {
	attendees, err := s.attendees.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("s.attendees.ListByEvent -> %w", err)
	}

	return attendees, nil
}

// History returns every scan recorded for a ticket, oldest first.
func (s *RosterService) History(ctx context.Context, eventID uint, ticketCode string) ([]domain.CheckIn, error) {
	ticketCode = strings.TrimSpace(ticketCode)
	if err := ValidateTicketCode(ticketCode); err != nil {
		return nil, fmt.Errorf("%w: ticket_code: %v", ErrInvalidInput, err)
	}

	checkIns, err := s.attendees.ListCheckIns(ctx, eventID, ticketCode)
	if err != nil {
		return nil, fmt.Errorf("s.attendees.ListCheckIns -> %w", err)
	}

	return checkIns, nil
}

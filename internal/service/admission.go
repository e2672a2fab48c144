package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ticketgate/gate-api/internal/domain"
	"github.com/ticketgate/gate-api/internal/pkg/clock"
	"github.com/ticketgate/gate-api/internal/pkg/keylock"
	"github.com/ticketgate/gate-api/internal/repository"
)

var (
	ErrAttendeeNotFound   = repository.ErrAttendeeNotFound
	ErrEventNotFound      = repository.ErrEventNotFound
	ErrTicketTypeNotFound = repository.ErrTicketTypeNotFound
)

type AttendeeRepository interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	LockAttendee(ctx context.Context, eventID uint, ticketCode string) (domain.Attendee, error)
	SaveAttendee(ctx context.Context, attendee domain.Attendee) (domain.Attendee, error)
	FindByTicketCode(ctx context.Context, eventID uint, ticketCode string) (domain.Attendee, error)
	ListByEvent(ctx context.Context, eventID uint) ([]domain.Attendee, error)
	UpsertRoster(ctx context.Context, eventID uint, attendees []domain.Attendee) ([]domain.Attendee, error)
	InvalidateAttendee(ctx context.Context, attendee domain.Attendee)
	FindOpenSession(ctx context.Context, attendeeID uint) (domain.CheckInSession, error)
	OpenSession(ctx context.Context, attendee domain.Attendee, entrance string, at time.Time) (domain.CheckInSession, error)
	CloseSession(ctx context.Context, attendeeID uint, at time.Time) (domain.CheckInSession, error)
	RecordCheckIn(ctx context.Context, checkIn domain.CheckIn) (domain.CheckIn, error)
	ListCheckIns(ctx context.Context, eventID uint, ticketCode string) ([]domain.CheckIn, error)
	TouchEntrance(ctx context.Context, eventID uint, name string, at time.Time) error
}

type EventRepository interface {
	FindByID(ctx context.Context, id uint) (domain.Event, error)
	Upsert(ctx context.Context, event domain.Event) (domain.Event, error)
	FindTicketType(ctx context.Context, eventID uint, name string) (domain.TicketType, error)
	UpsertTicketType(ctx context.Context, ticketType domain.TicketType) (domain.TicketType, error)
}

// OccupancyNotifier receives committed entries and exits. Notify must not
// block.
type OccupancyNotifier interface {
	Notify(change domain.OccupancyChange)
}

type AdmissionConfig struct {
	DefaultGraceWindow time.Duration
	MaxBulkItems       int
}

type AdmissionService struct {
	attendees AttendeeRepository
	events    EventRepository
	gate      *EventGate
	locks     *keylock.Registry
	occupancy OccupancyNotifier
	clock     clock.Clock
	conf      AdmissionConfig
}

func NewAdmissionService(
	attendees AttendeeRepository,
	events EventRepository,
	locks *keylock.Registry,
	occupancy OccupancyNotifier,
	clk clock.Clock,
	conf AdmissionConfig,
) *AdmissionService {
	return &AdmissionService{
		attendees: attendees,
		events:    events,
		gate:      NewEventGate(events, clk, conf.DefaultGraceWindow),
		locks:     locks,
		occupancy: occupancy,
		clock:     clk,
		conf:      conf,
	}
}

// Admit decides an entry or exit scan. Every path returns an outcome; no
// storage or cache error escapes.
func (s *AdmissionService) Admit(ctx context.Context, req domain.ScanRequest) domain.Outcome {
	return s.admit(ctx, req, false)
}

// AdmitAdvanced is Admit plus the per ticket type rules: an allowed
// check-ins override and daily, weekly and monthly limits.
func (s *AdmissionService) AdmitAdvanced(ctx context.Context, req domain.ScanRequest) domain.Outcome {
	return s.admit(ctx, req, true)
}

// BulkAdmit runs Admit for each item in order. Items are independent: a
// failed item does not undo or stop the ones around it.
func (s *AdmissionService) BulkAdmit(ctx context.Context, eventID uint, items []domain.BulkItem) []domain.ItemResult {
	results := make([]domain.ItemResult, 0, len(items))

	if s.conf.MaxBulkItems > 0 && len(items) > s.conf.MaxBulkItems {
		msg := fmt.Sprintf("batch of %d items exceeds the limit of %d", len(items), s.conf.MaxBulkItems)
		for i, item := range items {
			results = append(results, domain.ItemResult{
				Index:      i,
				TicketCode: item.TicketCode,
				Outcome:    domain.Outcome{Status: domain.StatusValidationError, Message: msg},
			})
		}
		return results
	}

	for i, item := range items {
		outcome := s.Admit(ctx, domain.ScanRequest{
			EventID:      eventID,
			TicketCode:   item.TicketCode,
			Direction:    item.Direction,
			EntranceName: item.EntranceName,
			OperatorName: item.OperatorName,
		})
		results = append(results, domain.ItemResult{
			Index:      i,
			TicketCode: item.TicketCode,
			Outcome:    outcome,
		})
	}

	return results
}

// ResetCounters clears the daily, weekly and monthly scan counters of one
// ticket.
func (s *AdmissionService) ResetCounters(ctx context.Context, eventID uint, ticketCode string) domain.Outcome {
	req := normalizeScan(domain.ScanRequest{EventID: eventID, TicketCode: ticketCode})
	if err := ValidateTicketCode(req.TicketCode); err != nil {
		return validationOutcome(req, fmt.Errorf("ticket_code: %w", err))
	}

	gate, err := s.gate.CanAdmit(ctx, eventID)
	if err != nil {
		return s.failure(req, "s.gate.CanAdmit", err)
	}
	if gate.Verdict == GateMissing {
		return domain.Outcome{Status: domain.StatusScansDisabled, Message: fmt.Sprintf("event %d does not exist", eventID)}
	}

	release, ok := s.locks.TryLock(lockKey(eventID, req.TicketCode))
	if !ok {
		return ticketInUse()
	}
	defer release()

	var (
		outcome domain.Outcome
		changed *domain.Attendee
	)
	err = s.attendees.WithinTx(ctx, func(ctx context.Context) error {
		attendee, err := s.attendees.LockAttendee(ctx, eventID, req.TicketCode)
		if err != nil {
			if errors.Is(err, repository.ErrAttendeeNotFound) {
				outcome = domain.Outcome{Status: domain.StatusInvalid, Message: "ticket not found"}
				return nil
			}
			return err
		}

		attendee.ResetCounters(s.clock.Now())
		saved, err := s.attendees.SaveAttendee(ctx, attendee)
		if err != nil {
			return err
		}

		changed = &saved
		outcome = domain.Outcome{Status: domain.StatusSuccess, Message: "scan counters reset", Attendee: &saved}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrAttendeeLocked) {
			return ticketInUse()
		}
		return s.failure(req, "s.attendees.WithinTx", err)
	}

	if changed != nil {
		s.attendees.InvalidateAttendee(ctx, *changed)
	}

	return outcome
}

func (s *AdmissionService) admit(ctx context.Context, req domain.ScanRequest, advanced bool) domain.Outcome {
	req = normalizeScan(req)
	if err := ValidateScan(req); err != nil {
		return validationOutcome(req, err)
	}

	gate, err := s.gate.CanAdmit(ctx, req.EventID)
	if err != nil {
		return s.failure(req, "s.gate.CanAdmit", err)
	}
	switch gate.Verdict {
	case GateMissing:
		return domain.Outcome{Status: domain.StatusScansDisabled, Message: fmt.Sprintf("event %d does not exist", req.EventID)}
	case GateArchived:
		return s.rejectAtGate(ctx, req, domain.AuditArchived, domain.StatusArchivedEvent,
			fmt.Sprintf("event %q is archived", gate.Event.Name))
	case GateDisabled:
		return s.rejectAtGate(ctx, req, domain.AuditScansDisabled, domain.StatusScansDisabled,
			fmt.Sprintf("scanning is disabled for event %q", gate.Event.Name))
	}

	release, ok := s.locks.TryLock(lockKey(req.EventID, req.TicketCode))
	if !ok {
		return ticketInUse()
	}
	defer release()

	var (
		outcome   domain.Outcome
		changed   *domain.Attendee
		wasInside bool
	)
	err = s.attendees.WithinTx(ctx, func(ctx context.Context) error {
		attendee, err := s.attendees.LockAttendee(ctx, req.EventID, req.TicketCode)
		if err != nil {
			if errors.Is(err, repository.ErrAttendeeNotFound) {
				outcome, err = s.reject(ctx, req, nil, domain.AuditInvalid, domain.StatusInvalid, "ticket not found")
			}
			return err
		}
		wasInside = attendee.IsCurrentlyInside

		if req.Direction == domain.DirectionExit {
			outcome, changed, err = s.exit(ctx, req, attendee)
		} else {
			outcome, changed, err = s.entry(ctx, req, attendee, advanced)
		}
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrAttendeeLocked) {
			return ticketInUse()
		}
		return s.failure(req, "s.attendees.WithinTx", err)
	}

	if changed != nil {
		s.attendees.InvalidateAttendee(ctx, *changed)
		s.occupancy.Notify(domain.OccupancyChange{
			EventID:   req.EventID,
			Direction: req.Direction,
			Entrance:  req.EntranceName,
			WasInside: wasInside,
		})
	}

	return outcome
}

func (s *AdmissionService) entry(
	ctx context.Context,
	req domain.ScanRequest,
	attendee domain.Attendee,
	advanced bool,
) (domain.Outcome, *domain.Attendee, error) {
	if !attendee.PaymentAccepted() {
		outcome, err := s.reject(ctx, req, &attendee, domain.AuditPaymentInvalid, domain.StatusPaymentInvalid,
			fmt.Sprintf("payment status %q does not allow entry", attendee.PaymentStatus))
		return outcome, nil, err
	}

	var ticketType *domain.TicketType
	if advanced && attendee.TicketType != "" {
		found, err := s.events.FindTicketType(ctx, req.EventID, attendee.TicketType)
		switch {
		case err == nil:
			ticketType = &found
		case !errors.Is(err, repository.ErrTicketTypeNotFound):
			return domain.Outcome{}, nil, fmt.Errorf("s.events.FindTicketType -> %w", err)
		}
	}
	if ticketType != nil && ticketType.AllowedCheckins > 0 {
		attendee.RebaseQuota(ticketType.AllowedCheckins)
	}

	if attendee.CheckinsRemaining <= 0 {
		if attendee.IsCurrentlyInside {
			msg := "already checked in"
			if attendee.CheckedInAt != nil {
				msg = fmt.Sprintf("already checked in at %s", attendee.CheckedInAt.Format(time.RFC3339))
			}
			outcome, err := s.reject(ctx, req, &attendee, domain.AuditDuplicate, domain.StatusDuplicate, msg)
			return outcome, nil, err
		}

		outcome, err := s.reject(ctx, req, &attendee, domain.AuditLimitExceeded, domain.StatusLimitExceeded,
			fmt.Sprintf("all %d check-ins have been used", attendee.AllowedCheckins))
		return outcome, nil, err
	}

	now := s.clock.Now()
	if ticketType != nil {
		if msg := periodLimitReached(attendee, *ticketType, now); msg != "" {
			outcome, err := s.reject(ctx, req, &attendee, domain.AuditLimitExceeded, domain.StatusLimitExceeded, msg)
			return outcome, nil, err
		}
	}

	attendee.RecordEntry(now, req.EntranceName)
	saved, err := s.attendees.SaveAttendee(ctx, attendee)
	if err != nil {
		return domain.Outcome{}, nil, fmt.Errorf("s.attendees.SaveAttendee -> %w", err)
	}

	if _, err = s.attendees.OpenSession(ctx, saved, req.EntranceName, now); err != nil {
		return domain.Outcome{}, nil, fmt.Errorf("s.attendees.OpenSession -> %w", err)
	}

	if err = s.attendees.TouchEntrance(ctx, req.EventID, req.EntranceName, now); err != nil {
		return domain.Outcome{}, nil, fmt.Errorf("s.attendees.TouchEntrance -> %w", err)
	}

	msg := fmt.Sprintf("welcome, %d check-ins remaining", saved.CheckinsRemaining)
	if err = s.audit(ctx, req, &saved, domain.AuditSuccess, msg, now); err != nil {
		return domain.Outcome{}, nil, err
	}

	return domain.Outcome{Status: domain.StatusSuccess, Message: msg, Attendee: &saved}, &saved, nil
}

func (s *AdmissionService) exit(
	ctx context.Context,
	req domain.ScanRequest,
	attendee domain.Attendee,
) (domain.Outcome, *domain.Attendee, error) {
	hasSession := true
	if _, err := s.attendees.FindOpenSession(ctx, attendee.ID); err != nil {
		if !errors.Is(err, repository.ErrSessionNotFound) {
			return domain.Outcome{}, nil, fmt.Errorf("s.attendees.FindOpenSession -> %w", err)
		}
		hasSession = false
	}

	if !attendee.IsCurrentlyInside && !hasSession && !attendee.HasOpenCheckin() {
		outcome, err := s.reject(ctx, req, &attendee, domain.AuditNotCheckedIn, domain.StatusNotCheckedIn,
			"ticket is not checked in")
		return outcome, nil, err
	}

	now := s.clock.Now()
	attendee.RecordExit(now)
	saved, err := s.attendees.SaveAttendee(ctx, attendee)
	if err != nil {
		return domain.Outcome{}, nil, fmt.Errorf("s.attendees.SaveAttendee -> %w", err)
	}

	if hasSession {
		if _, err = s.attendees.CloseSession(ctx, saved.ID, now); err != nil {
			return domain.Outcome{}, nil, fmt.Errorf("s.attendees.CloseSession -> %w", err)
		}
	}

	msg := "checked out"
	if err = s.audit(ctx, req, &saved, domain.AuditCheckedOut, msg, now); err != nil {
		return domain.Outcome{}, nil, err
	}

	return domain.Outcome{Status: domain.StatusCheckedOut, Message: msg, Attendee: &saved}, &saved, nil
}

// reject appends the audit row of a business rule rejection. The attendee
// row is left untouched.
func (s *AdmissionService) reject(
	ctx context.Context,
	req domain.ScanRequest,
	attendee *domain.Attendee,
	audit domain.AuditStatus,
	status domain.OutcomeStatus,
	msg string,
) (domain.Outcome, error) {
	if err := s.audit(ctx, req, attendee, audit, msg, s.clock.Now()); err != nil {
		return domain.Outcome{}, err
	}

	return domain.Outcome{Status: status, Message: msg, Attendee: attendee}, nil
}

func (s *AdmissionService) rejectAtGate(
	ctx context.Context,
	req domain.ScanRequest,
	audit domain.AuditStatus,
	status domain.OutcomeStatus,
	msg string,
) domain.Outcome {
	if err := s.audit(ctx, req, nil, audit, msg, s.clock.Now()); err != nil {
		return s.failure(req, "s.audit", err)
	}

	return domain.Outcome{Status: status, Message: msg}
}

func (s *AdmissionService) audit(
	ctx context.Context,
	req domain.ScanRequest,
	attendee *domain.Attendee,
	status domain.AuditStatus,
	msg string,
	at time.Time,
) error {
	checkIn := domain.CheckIn{
		EventID:    req.EventID,
		TicketCode: req.TicketCode,
		Direction:  req.Direction,
		Entrance:   req.EntranceName,
		Operator:   req.OperatorName,
		Status:     status,
		Message:    msg,
		CreatedAt:  at,
	}
	if attendee != nil && attendee.ID != 0 {
		id := attendee.ID
		checkIn.AttendeeID = &id
	}

	if _, err := s.attendees.RecordCheckIn(ctx, checkIn); err != nil {
		return fmt.Errorf("s.attendees.RecordCheckIn -> %w", err)
	}

	return nil
}

func (s *AdmissionService) failure(req domain.ScanRequest, op string, err error) domain.Outcome {
	zap.L().Error("admission failed",
		zap.Uint("event_id", req.EventID),
		zap.String("ticket_code", req.TicketCode),
		zap.String("direction", string(req.Direction)),
		zap.String("op", op),
		zap.Error(err),
	)

	return domain.Outcome{Status: domain.StatusError, Message: "the scan could not be recorded, please retry"}
}

func periodLimitReached(attendee domain.Attendee, ticketType domain.TicketType, now time.Time) string {
	daily, weekly, monthly := attendee.ScansInPeriod(now)
	switch {
	case ticketType.DailyLimit > 0 && daily >= ticketType.DailyLimit:
		return fmt.Sprintf("daily limit of %d check-ins reached", ticketType.DailyLimit)
	case ticketType.WeeklyLimit > 0 && weekly >= ticketType.WeeklyLimit:
		return fmt.Sprintf("weekly limit of %d check-ins reached", ticketType.WeeklyLimit)
	case ticketType.MonthlyLimit > 0 && monthly >= ticketType.MonthlyLimit:
		return fmt.Sprintf("monthly limit of %d check-ins reached", ticketType.MonthlyLimit)
	}

	return ""
}

func validationOutcome(req domain.ScanRequest, err error) domain.Outcome {
	zap.L().Debug("scan rejected by validation",
		zap.Uint("event_id", req.EventID),
		zap.String("ticket_code", req.TicketCode),
		zap.Error(err),
	)

	return domain.Outcome{Status: domain.StatusValidationError, Message: err.Error()}
}

func ticketInUse() domain.Outcome {
	return domain.Outcome{Status: domain.StatusTicketInUse, Message: "ticket is being processed at another entrance, retry"}
}

func lockKey(eventID uint, ticketCode string) string {
	return fmt.Sprintf("%d:%s", eventID, ticketCode)
}

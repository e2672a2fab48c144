package domain

import "time"

type Direction string

const (
	DirectionEntry Direction = "entry"
	DirectionExit  Direction = "exit"
)

func (d Direction) Valid() bool {
	return d == DirectionEntry || d == DirectionExit
}

// AuditStatus is the outcome stored on a CheckIn audit row.
type AuditStatus string

const (
	AuditSuccess        AuditStatus = "success"
	AuditCheckedOut     AuditStatus = "checked_out"
	AuditInvalid        AuditStatus = "invalid"
	AuditPaymentInvalid AuditStatus = "payment_invalid"
	AuditDuplicate      AuditStatus = "duplicate"
	AuditLimitExceeded  AuditStatus = "limit_exceeded"
	AuditNotCheckedIn   AuditStatus = "not_checked_in"
	AuditArchived       AuditStatus = "archived"
	AuditScansDisabled  AuditStatus = "scans_disabled"
)

// CheckIn is an append-only audit entry for one admission attempt.
type CheckIn struct {
	ID         uint        `json:"id"`
	EventID    uint        `json:"event_id"`
	TicketCode string      `json:"ticket_code"`
	AttendeeID *uint       `json:"attendee_id,omitempty"`
	Direction  Direction   `json:"direction"`
	Entrance   string      `json:"entrance"`
	Operator   string      `json:"operator"`
	Status     AuditStatus `json:"status"`
	Message    string      `json:"message"`
	CreatedAt  time.Time   `json:"created_at"`
}

// CheckInSession is one continuous stay inside the venue.
type CheckInSession struct {
	ID         uint       `json:"id"`
	AttendeeID uint       `json:"attendee_id"`
	EventID    uint       `json:"event_id"`
	Entrance   string     `json:"entrance"`
	EnteredAt  time.Time  `json:"entered_at"`
	ExitedAt   *time.Time `json:"exited_at,omitempty"`
}

func (s CheckInSession) Open() bool {
	return s.ExitedAt == nil
}

// Duration returns how long the session lasted, or how long it has lasted
// so far when still open.
func (s CheckInSession) Duration(now time.Time) time.Duration {
	if s.ExitedAt != nil {
		return s.ExitedAt.Sub(s.EnteredAt)
	}
	return now.Sub(s.EnteredAt)
}

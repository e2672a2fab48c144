package domain

import (
	"strings"
	"time"
)

// Payment statuses accepted at the gate. An empty status means the provider
// did not report one.
var acceptedPaymentStatuses = map[string]struct{}{
	"":          {},
	"paid":      {},
	"completed": {},
	"free":      {},
}

type Attendee struct {
	ID                uint       `json:"id"`
	EventID           uint       `json:"event_id"`
	TicketCode        string     `json:"ticket_code"`
	TicketType        string     `json:"ticket_type,omitempty"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	AllowedCheckins   int        `json:"allowed_checkins"`
	CheckinsRemaining int        `json:"checkins_remaining"`
	PaymentStatus     string     `json:"payment_status"`
	IsCurrentlyInside bool       `json:"is_currently_inside"`
	LastEntrance      string     `json:"last_entrance,omitempty"`
	CheckedInAt       *time.Time `json:"checked_in_at,omitempty"`
	CheckedOutAt      *time.Time `json:"checked_out_at,omitempty"`
	DailyScans        int        `json:"daily_scans"`
	WeeklyScans       int        `json:"weekly_scans"`
	MonthlyScans      int        `json:"monthly_scans"`
	CountersResetAt   *time.Time `json:"counters_reset_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (a *Attendee) PaymentAccepted() bool {
	_, ok := acceptedPaymentStatuses[strings.ToLower(strings.TrimSpace(a.PaymentStatus))]
	return ok
}

// UsedCheckins is the number of quota slots already consumed.
func (a *Attendee) UsedCheckins() int {
	return a.AllowedCheckins - a.CheckinsRemaining
}

// HasOpenCheckin reports whether the attendee has a check-in that no later
// check-out closed.
func (a *Attendee) HasOpenCheckin() bool {
	if a.CheckedInAt == nil {
		return false
	}
	return a.CheckedOutAt == nil || a.CheckedOutAt.Before(*a.CheckedInAt)
}

// RebaseQuota applies a new allowed check-ins value while keeping the
// number of consumed check-ins.
func (a *Attendee) RebaseQuota(allowed int) {
	if allowed < 0 {
		allowed = 0
	}
	used := a.UsedCheckins()
	a.AllowedCheckins = allowed
	a.CheckinsRemaining = clamp(allowed-used, 0, allowed)
}

// RecordEntry mutates the attendee for a successful entry at now.
func (a *Attendee) RecordEntry(now time.Time, entrance string) {
	a.advanceCounters(now)

	a.CheckinsRemaining = clamp(a.CheckinsRemaining-1, 0, a.AllowedCheckins)
	a.IsCurrentlyInside = true
	a.CheckedOutAt = nil
	a.LastEntrance = entrance
	checkedIn := now
	a.CheckedInAt = &checkedIn
}

// RecordExit mutates the attendee for a successful exit at now.
func (a *Attendee) RecordExit(now time.Time) {
	a.IsCurrentlyInside = false
	checkedOut := now
	a.CheckedOutAt = &checkedOut
}

func (a *Attendee) ResetCounters(now time.Time) {
	a.DailyScans = 0
	a.WeeklyScans = 0
	a.MonthlyScans = 0
	reset := now
	a.CountersResetAt = &reset
}

// ScansInPeriod returns the daily, weekly and monthly counters as they
// stand at now, treating counters from an earlier period as zero.
func (a *Attendee) ScansInPeriod(now time.Time) (daily, weekly, monthly int) {
	if a.CheckedInAt == nil {
		return 0, 0, 0
	}
	last := a.CheckedInAt.In(now.Location())
	if sameDay(last, now) {
		daily = a.DailyScans
	}
	if sameISOWeek(last, now) {
		weekly = a.WeeklyScans
	}
	if sameMonth(last, now) {
		monthly = a.MonthlyScans
	}
	return daily, weekly, monthly
}

func (a *Attendee) advanceCounters(now time.Time) {
	daily, weekly, monthly := a.ScansInPeriod(now)
	if a.CountersResetAt == nil || (daily == 0 && a.DailyScans != 0) {
		reset := now
		a.CountersResetAt = &reset
	}
	a.DailyScans = daily + 1
	a.WeeklyScans = weekly + 1
	a.MonthlyScans = monthly + 1
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func sameISOWeek(a, b time.Time) bool {
	ay, aw := a.ISOWeek()
	by, bw := b.ISOWeek()
	return ay == by && aw == bw
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

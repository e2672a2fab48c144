package domain

import "time"

type LifecycleState string

const (
	LifecycleUnknown  LifecycleState = "unknown"
	LifecycleUpcoming LifecycleState = "upcoming"
	LifecycleActive   LifecycleState = "active"
	LifecycleGrace    LifecycleState = "grace"
	LifecycleArchived LifecycleState = "archived"
)

type Event struct {
	ID           uint           `json:"id"`
	Name         string         `json:"name"`
	StartsAt     *time.Time     `json:"starts_at,omitempty"`
	EndsAt       *time.Time     `json:"ends_at,omitempty"`
	GraceWindow  *time.Duration `json:"grace_window,omitempty"`
	ScansEnabled bool           `json:"scans_enabled"`
	Capacity     int            `json:"capacity"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Lifecycle derives the event phase from its dates at now. The event's own
// grace window wins over defaultGrace when set. An event without an end
// date never leaves the active state once started.
func (e Event) Lifecycle(now time.Time, defaultGrace time.Duration) LifecycleState {
	if e.StartsAt == nil && e.EndsAt == nil {
		return LifecycleUnknown
	}
	if e.StartsAt != nil && now.Before(*e.StartsAt) {
		return LifecycleUpcoming
	}
	if e.EndsAt == nil || !now.After(*e.EndsAt) {
		return LifecycleActive
	}

	grace := defaultGrace
	if e.GraceWindow != nil {
		grace = *e.GraceWindow
	}
	if !now.After(e.EndsAt.Add(grace)) {
		return LifecycleGrace
	}
	return LifecycleArchived
}

// TicketType carries per-type admission rules. Zero limits mean unlimited;
// a zero AllowedCheckins means the attendee's own quota applies.
type TicketType struct {
	ID              uint      `json:"id"`
	EventID         uint      `json:"event_id"`
	Name            string    `json:"name"`
	AllowedCheckins int       `json:"allowed_checkins"`
	DailyLimit      int       `json:"daily_limit"`
	WeeklyLimit     int       `json:"weekly_limit"`
	MonthlyLimit    int       `json:"monthly_limit"`
	UpdatedAt       time.Time `json:"updated_at"`
}

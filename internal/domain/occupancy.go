package domain

import "time"

type EntranceTally struct {
	Entries int `json:"entries"`
	Exits   int `json:"exits"`
}

// OccupancySnapshot is the "currently inside" view of an event.
type OccupancySnapshot struct {
	EventID        uint                     `json:"event_id"`
	Inside         int                      `json:"inside"`
	Entries        int                      `json:"entries"`
	Exits          int                      `json:"exits"`
	TotalAttendees int                      `json:"total_attendees"`
	Percentage     float64                  `json:"percentage"`
	ByEntrance     map[string]EntranceTally `json:"by_entrance"`
	ComputedAt     time.Time                `json:"computed_at"`
}

// OccupancyChange is one committed entry or exit, as fed to the aggregator.
// WasInside is the inside flag of the attendee before the scan; only a
// change that flips it moves the inside count.
type OccupancyChange struct {
	EventID   uint
	Direction Direction
	Entrance  string
	WasInside bool
}

package dao

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrAttendeeNotFound = errors.New("attendee not found")
	ErrAttendeeLocked   = errors.New("attendee row is locked by another admission")
	ErrSessionNotFound  = errors.New("no open session")
	ErrSessionConflict  = errors.New("attendee already has an open session")
)

type Attendee struct {
	ID                uint   `gorm:"primaryKey"`
	EventID           uint   `gorm:"not null;uniqueIndex:idx_attendees_event_ticket,priority:1"`
	TicketCode        string `gorm:"not null;size:100;uniqueIndex:idx_attendees_event_ticket,priority:2"`
	TicketType        string `gorm:"size:100"`
	Name              string
	Email             string
	AllowedCheckins   int    `gorm:"not null"`
	CheckinsRemaining int    `gorm:"not null"`
	PaymentStatus     string `gorm:"size:32"`
	IsCurrentlyInside bool   `gorm:"not null;index"`
	LastEntrance      string `gorm:"size:100"`
	CheckedInAt       *time.Time
	CheckedOutAt      *time.Time
	DailyScans        int `gorm:"not null"`
	WeeklyScans       int `gorm:"not null"`
	MonthlyScans      int `gorm:"not null"`
	CountersResetAt   *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type CheckIn struct {
	ID         uint   `gorm:"primaryKey"`
	EventID    uint   `gorm:"not null;index:idx_checkins_event_status,priority:1"`
	TicketCode string `gorm:"not null;size:100;index"`
	AttendeeID *uint  `gorm:"index"`
	Direction  string `gorm:"not null;size:8"`
	Entrance   string `gorm:"size:100"`
	Operator   string `gorm:"size:100"`
	Status     string `gorm:"not null;size:32;index:idx_checkins_event_status,priority:2"`
	Message    string
	CreatedAt  time.Time `gorm:"not null"`
}

func (CheckIn) TableName() string {
	return "checkins"
}

type CheckInSession struct {
	ID         uint      `gorm:"primaryKey"`
	AttendeeID uint      `gorm:"not null;uniqueIndex:idx_sessions_open,where:exited_at IS NULL"`
	EventID    uint      `gorm:"not null;index"`
	Entrance   string    `gorm:"size:100"`
	EnteredAt  time.Time `gorm:"not null"`
	ExitedAt   *time.Time
}

func (CheckInSession) TableName() string {
	return "checkin_sessions"
}

type Entrance struct {
	ID          uint      `gorm:"primaryKey"`
	EventID     uint      `gorm:"not null;uniqueIndex:idx_entrances_event_name,priority:1"`
	Name        string    `gorm:"not null;size:100;uniqueIndex:idx_entrances_event_name,priority:2"`
	FirstSeenAt time.Time `gorm:"not null"`
	LastSeenAt  time.Time `gorm:"not null"`
}

// EntranceTally is one row of the per-entrance audit aggregation.
type EntranceTally struct {
	Entrance string
	Status   string
	Count    int64
}

type AttendeeDAO struct {
	db *gorm.DB
}

func NewAttendeeDAO(db *gorm.DB) *AttendeeDAO {
	return &AttendeeDAO{
		db: db,
	}
}

func (d *AttendeeDAO) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return transaction(ctx, d.db, fn)
}

// FindForUpdate reads the attendee row with an exclusive lock held until
// the surrounding transaction ends. The lock is taken with NOWAIT: if
// another transaction holds it, ErrAttendeeLocked is returned at once.
func (d *AttendeeDAO) FindForUpdate(ctx context.Context, eventID uint, ticketCode string) (Attendee, error) {
	var attendee Attendee

	result := conn(ctx, d.db).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "NOWAIT"}).
		Where("event_id = ? AND ticket_code = ?", eventID, ticketCode).
		First(&attendee)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Attendee{}, ErrAttendeeNotFound
		}
		if isLockNotAvailable(result.Error) {
			return Attendee{}, ErrAttendeeLocked
		}

		return Attendee{}, result.Error
	}

	return attendee, nil
}

func (d *AttendeeDAO) FindByTicketCode(ctx context.Context, eventID uint, ticketCode string) (Attendee, error) {
	var attendee Attendee

	result := conn(ctx, d.db).Where("event_id = ? AND ticket_code = ?", eventID, ticketCode).First(&attendee)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Attendee{}, ErrAttendeeNotFound
		}

		return Attendee{}, result.Error
	}

	return attendee, nil
}

func (d *AttendeeDAO) FindByID(ctx context.Context, id uint) (Attendee, error) {
	var attendee Attendee

	result := conn(ctx, d.db).First(&attendee, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Attendee{}, ErrAttendeeNotFound
		}

		return Attendee{}, result.Error
	}

	return attendee, nil
}

func (d *AttendeeDAO) ListByEvent(ctx context.Context, eventID uint) ([]Attendee, error) {
	var attendees []Attendee

	result := conn(ctx, d.db).Where("event_id = ?", eventID).Order("ticket_code").Find(&attendees)
	if result.Error != nil {
		return nil, result.Error
	}

	return attendees, nil
}

// Update writes every column of the attendee row.
func (d *AttendeeDAO) Update(ctx context.Context, attendee Attendee) (Attendee, error) {
	result := conn(ctx, d.db).Model(&attendee).Select("*").Omit("created_at").Updates(&attendee)
	if result.Error != nil {
		return Attendee{}, result.Error
	}
	if result.RowsAffected == 0 {
		return Attendee{}, ErrAttendeeNotFound
	}

	return attendee, nil
}

// Upsert inserts the roster rows, refreshing existing (event, ticket) rows.
// A refreshed row keeps its consumed check-ins: the remaining count is
// re-based on the new allowance instead of being overwritten.
func (d *AttendeeDAO) Upsert(ctx context.Context, attendees []Attendee) ([]Attendee, error) {
	if len(attendees) == 0 {
		return nil, nil
	}

	result := conn(ctx, d.db).
		Clauses(
			clause.OnConflict{
				Columns: []clause.Column{{Name: "event_id"}, {Name: "ticket_code"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"name":             gorm.Expr("EXCLUDED.name"),
					"email":            gorm.Expr("EXCLUDED.email"),
					"ticket_type":      gorm.Expr("EXCLUDED.ticket_type"),
					"payment_status":   gorm.Expr("EXCLUDED.payment_status"),
					"allowed_checkins": gorm.Expr("EXCLUDED.allowed_checkins"),
					"checkins_remaining": gorm.Expr(
						"GREATEST(0, LEAST(EXCLUDED.allowed_checkins, " +
							"EXCLUDED.allowed_checkins - (attendees.allowed_checkins - attendees.checkins_remaining)))",
					),
					"updated_at": gorm.Expr("EXCLUDED.updated_at"),
				}),
			},
			clause.Returning{},
		).
		Create(&attendees)
	if result.Error != nil {
		return nil, result.Error
	}

	return attendees, nil
}

func (d *AttendeeDAO) FindOpenSession(ctx context.Context, attendeeID uint) (CheckInSession, error) {
	var session CheckInSession

	result := conn(ctx, d.db).
		Where("attendee_id = ? AND exited_at IS NULL", attendeeID).
		Order("entered_at DESC").
		First(&session)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return CheckInSession{}, ErrSessionNotFound
		}

		return CheckInSession{}, result.Error
	}

	return session, nil
}

func (d *AttendeeDAO) InsertSession(ctx context.Context, session CheckInSession) (CheckInSession, error) {
	result := conn(ctx, d.db).Create(&session)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return CheckInSession{}, ErrSessionConflict
		}

		return CheckInSession{}, result.Error
	}

	return session, nil
}

func (d *AttendeeDAO) UpdateSession(ctx context.Context, session CheckInSession) (CheckInSession, error) {
	result := conn(ctx, d.db).Save(&session)
	if result.Error != nil {
		return CheckInSession{}, result.Error
	}

	return session, nil
}

func (d *AttendeeDAO) InsertCheckIn(ctx context.Context, checkIn CheckIn) (CheckIn, error) {
	result := conn(ctx, d.db).Create(&checkIn)
	if result.Error != nil {
		return CheckIn{}, result.Error
	}

	return checkIn, nil
}

func (d *AttendeeDAO) ListCheckIns(ctx context.Context, eventID uint, ticketCode string) ([]CheckIn, error) {
	var checkIns []CheckIn

	result := conn(ctx, d.db).
		Where("event_id = ? AND ticket_code = ?", eventID, ticketCode).
		Order("created_at, id").
		Find(&checkIns)
	if result.Error != nil {
		return nil, result.Error
	}

	return checkIns, nil
}

// UpsertEntrance records that the entrance was used at seenAt.
func (d *AttendeeDAO) UpsertEntrance(ctx context.Context, eventID uint, name string, seenAt time.Time) error {
	entrance := Entrance{
		EventID:     eventID,
		Name:        name,
		FirstSeenAt: seenAt,
		LastSeenAt:  seenAt,
	}

	result := conn(ctx, d.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}, {Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_seen_at"}),
		}).
		Create(&entrance)

	return result.Error
}

func (d *AttendeeDAO) CountByEvent(ctx context.Context, eventID uint) (int64, error) {
	var count int64

	result := conn(ctx, d.db).Model(&Attendee{}).Where("event_id = ?", eventID).Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}

	return count, nil
}

func (d *AttendeeDAO) CountInside(ctx context.Context, eventID uint) (int64, error) {
	var count int64

	result := conn(ctx, d.db).
		Model(&Attendee{}).
		Where("event_id = ? AND is_currently_inside", eventID).
		Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}

	return count, nil
}

// EntranceTallies groups successful entries and exits by entrance.
func (d *AttendeeDAO) EntranceTallies(ctx context.Context, eventID uint) ([]EntranceTally, error) {
	var tallies []EntranceTally

	result := conn(ctx, d.db).
		Model(&CheckIn{}).
		Select("entrance, status, COUNT(*) AS count").
		Where("event_id = ? AND status IN ?", eventID, []string{"success", "checked_out"}).
		Group("entrance, status").
		Scan(&tallies)
	if result.Error != nil {
		return nil, result.Error
	}

	return tallies, nil
}

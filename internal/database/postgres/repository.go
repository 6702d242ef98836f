package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bookwell/bookwell/internal/entity"
)

// BookingCreateParams is the full aggregate written by one serialized
// booking transaction: the booking row, its attendees, resource links,
// the audit entry, and optionally the round-robin counter bump.
type BookingCreateParams struct {
	Booking        *entity.Booking
	Attendees      []*entity.Attendee
	ResourceIDs    []string
	Audit          *entity.BookingAuditLog
	BumpRoundRobin bool
}

type BookingRepository interface {
	// Create inserts the aggregate inside a serializable transaction,
	// re-verifying host and resource overlap under a per-host advisory
	// lock. Conflicts surface as entity.ErrSlotConflict or
	// entity.ErrResourceConflict.
	Create(ctx context.Context, params *BookingCreateParams) error

	GetByID(ctx context.Context, id string) (*entity.Booking, error)
	GetByUID(ctx context.Context, uid string) (*entity.Booking, error)

	// UpdateStatus writes the booking's status fields and the audit entry
	// in one transaction.
	UpdateStatus(ctx context.Context, booking *entity.Booking, audit *entity.BookingAuditLog) error

	ListActiveForHostInRange(ctx context.Context, hostID string, from, to time.Time) ([]*entity.Booking, error)
	ListAttendees(ctx context.Context, bookingID string) ([]*entity.Attendee, error)
	ListAuditLogs(ctx context.Context, bookingID string) ([]*entity.BookingAuditLog, error)
	ListResourceIDs(ctx context.Context, bookingID string) ([]string, error)

	// CompletePast moves confirmed bookings whose end time has passed to
	// completed status and returns the number of rows changed.
	CompletePast(ctx context.Context, before time.Time) (int64, error)

	// ListStalePending returns pending bookings whose start time has
	// passed without confirmation.
	ListStalePending(ctx context.Context, before time.Time) ([]*entity.Booking, error)
}

type ScheduleRepository interface {
	Create(ctx context.Context, schedule *entity.UserSchedule) error
	GetByID(ctx context.Context, id string) (*entity.UserSchedule, error)

	// GetForUser returns the user's default schedule, or any schedule when
	// no default exists. entity.ErrScheduleNotFound when the user has none.
	GetForUser(ctx context.Context, userID string) (*entity.UserSchedule, error)

	ListWindows(ctx context.Context, scheduleID string) ([]*entity.ScheduleWindow, error)
	AddWindow(ctx context.Context, window *entity.ScheduleWindow) error
	DeleteWindow(ctx context.Context, scheduleID, windowID string) error
}

type EventTypeRepository interface {
	GetByID(ctx context.Context, id string) (*entity.EventType, error)
	GetBySlug(ctx context.Context, organizationID, slug string) (*entity.EventType, error)

	// ListActiveHosts returns the active host rows for an event type in
	// round-robin fairness order: booking_count asc, last_booked_at asc
	// nulls first, priority desc.
	ListActiveHosts(ctx context.Context, eventTypeID string) ([]*entity.EventTypeHost, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
}

type OrganizationRepository interface {
	Create(ctx context.Context, org *entity.Organization) error
	GetByID(ctx context.Context, id string) (*entity.Organization, error)
	GetBySlug(ctx context.Context, slug string) (*entity.Organization, error)
}

type BusyBlockRepository interface {
	Create(ctx context.Context, block *entity.BusyBlock) error
	ListForUserInRange(ctx context.Context, userID string, from, to time.Time) ([]*entity.BusyBlock, error)
}

type ResourceRepository interface {
	Create(ctx context.Context, resource *entity.Resource) error
	GetByID(ctx context.Context, id string) (*entity.Resource, error)
}

// Store bundles the repositories over one database handle.
type Store struct {
	Bookings      BookingRepository
	Schedules     ScheduleRepository
	EventTypes    EventTypeRepository
	Users         UserRepository
	Organizations OrganizationRepository
	BusyBlocks    BusyBlockRepository
	Resources     ResourceRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		Bookings:      NewBookingRepository(db),
		Schedules:     NewScheduleRepository(db),
		EventTypes:    NewEventTypeRepository(db),
		Users:         NewUserRepository(db),
		Organizations: NewOrganizationRepository(db),
		BusyBlocks:    NewBusyBlockRepository(db),
		Resources:     NewResourceRepository(db),
	}
}

// withTx runs fn inside a transaction with the given options.
func withTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

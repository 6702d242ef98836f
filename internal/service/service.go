package service

import (
	"context"
	"time"

	"github.com/bookwell/bookwell/internal/entity"
	"github.com/bookwell/bookwell/pkg/queue"
)

// AvailabilityService computes bookable slots for an event type.
type AvailabilityService interface {
	GetSlots(ctx context.Context, req *AvailabilityRequest) ([]*entity.Slot, error)
}

// BookingService handles the booking lifecycle.
type BookingService interface {
	CreateBooking(ctx context.Context, req *CreateBookingRequest) (*entity.Booking, error)
	ConfirmBooking(ctx context.Context, bookingID string) (*entity.Booking, error)
	CancelBooking(ctx context.Context, bookingID, reason string) (*entity.Booking, error)
	RescheduleBooking(ctx context.Context, bookingID string, req *RescheduleRequest) (*entity.Booking, error)
	GetBooking(ctx context.Context, id string) (*BookingDetails, error)
	GetBookingByUID(ctx context.Context, uid string) (*BookingDetails, error)

	// CancelByAttendee cancels via the public surface: the caller proves
	// ownership with the booking uid plus an attendee email.
	CancelByAttendee(ctx context.Context, uid, email, reason string) (*entity.Booking, error)

	CompletePastBookings(ctx context.Context) (int64, error)
	CancelStalePending(ctx context.Context) (int, error)
}

// ScheduleService manages user schedules and their windows.
type ScheduleService interface {
	CreateSchedule(ctx context.Context, req *CreateScheduleRequest) (*entity.UserSchedule, error)
	GetSchedule(ctx context.Context, id string) (*ScheduleDetails, error)
	AddWindow(ctx context.Context, scheduleID string, req *AddWindowRequest) (*entity.ScheduleWindow, error)
	DeleteWindow(ctx context.Context, scheduleID, windowID string) error
}

// AvailabilityRequest addresses either an event type or an explicit host
// set with a duration. Exactly one of the two forms is meaningful.
type AvailabilityRequest struct {
	EventTypeID     string    `json:"event_type_id"`
	UserIDs         []string  `json:"user_ids"`
	DurationMinutes int       `json:"duration_minutes"`
	From            time.Time `json:"from" binding:"required"`
	To              time.Time `json:"to" binding:"required"`
	Timezone        string    `json:"timezone"`
}

type AttendeeInput struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone"`
}

// CreateBookingRequest books an event type slot or, without an event
// type, a direct slot against an explicit host with an explicit end.
type CreateBookingRequest struct {
	EventTypeID string          `json:"event_type_id"`
	HostID      string          `json:"host_id"`
	StartTime   time.Time       `json:"start_time" binding:"required"`
	EndTime     time.Time       `json:"end_time"`
	Timezone    string          `json:"timezone"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Attendees   []AttendeeInput `json:"attendees" binding:"required,min=1,dive"`
	ResourceIDs []string        `json:"resource_ids"`
	Source      string          `json:"source" binding:"omitempty,oneof=web api internal"`
}

type RescheduleRequest struct {
	StartTime time.Time `json:"start_time" binding:"required"`
	Reason    string    `json:"reason"`
}

type CreateScheduleRequest struct {
	UserID             string `json:"user_id" binding:"required"`
	Name               string `json:"name" binding:"required"`
	IsDefault          bool   `json:"is_default"`
	BufferBefore       int    `json:"buffer_before" binding:"min=0,max=120"`
	BufferAfter        int    `json:"buffer_after" binding:"min=0,max=120"`
	MinimumNoticeHours int    `json:"minimum_notice_hours" binding:"min=0,max=720"`
	MaxBookingsPerDay  *int   `json:"max_bookings_per_day"`
	MaxBookingsPerWeek *int   `json:"max_bookings_per_week"`
}

type AddWindowRequest struct {
	DayOfWeek    int        `json:"day_of_week" binding:"min=0,max=6"`
	StartTime    string     `json:"start_time" binding:"required"`
	EndTime      string     `json:"end_time" binding:"required"`
	SpecificDate *time.Time `json:"specific_date"`
	IsAvailable  *bool      `json:"is_available"`
}

// BookingDetails bundles a booking with its related rows.
type BookingDetails struct {
	Booking     *entity.Booking            `json:"booking"`
	Attendees   []*entity.Attendee         `json:"attendees"`
	ResourceIDs []string                   `json:"resource_ids,omitempty"`
	AuditLogs   []*entity.BookingAuditLog  `json:"audit_logs,omitempty"`
}

type ScheduleDetails struct {
	Schedule *entity.UserSchedule     `json:"schedule"`
	Windows  []*entity.ScheduleWindow `json:"windows"`
}

// SlotLocker guards the booking critical section. An empty token from
// Acquire means the lock store was unavailable and the caller proceeds
// without a lock.
type SlotLocker interface {
	Acquire(ctx context.Context, hostID string, start, end time.Time) (string, error)
	Release(ctx context.Context, hostID string, start, end time.Time, token string)
}

// JobSink enqueues async jobs for out-of-process workers.
type JobSink interface {
	Add(ctx context.Context, name string, payload interface{}, opts *queue.Options) error
	Remove(ctx context.Context, jobID string) error
}

// WebhookSink publishes webhook delivery jobs.
type WebhookSink interface {
	Publish(ctx context.Context, message interface{}) error
}

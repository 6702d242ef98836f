package entity

import "errors"

var (
	// Not found
	ErrBookingNotFound      = errors.New("booking not found")
	ErrEventTypeNotFound    = errors.New("event type not found")
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrScheduleNotFound     = errors.New("schedule not found")
	ErrResourceNotFound     = errors.New("resource not found")

	// Validation
	ErrInvalidTimeRange   = errors.New("start time must be before end time")
	ErrInvalidTimezone    = errors.New("invalid timezone")
	ErrInvalidDuration    = errors.New("invalid duration")
	ErrInvalidWindow      = errors.New("window end time must be after start time")
	ErrNotPending         = errors.New("only pending bookings can be confirmed")
	ErrAlreadyCancelled   = errors.New("booking is already cancelled")
	ErrAttendeeMismatch   = errors.New("attendee email does not match booking")
	ErrMinimumNotice      = errors.New("booking violates minimum notice")
	ErrInvalidInput       = errors.New("invalid input")

	// Conflict
	ErrSlotConflict     = errors.New("time slot conflicts with an existing booking")
	ErrResourceConflict = errors.New("resource is booked for an overlapping interval")
	ErrSlotBeingBooked  = errors.New("slot is currently being booked")
	ErrDuplicateSlug    = errors.New("slug already exists")

	// Tenancy
	ErrForbidden = errors.New("forbidden")
)

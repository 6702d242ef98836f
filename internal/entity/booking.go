package entity

import (
	"time"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusNoShow    BookingStatus = "no_show"
)

// IsActive reports whether a booking in this status still occupies its slot.
func (s BookingStatus) IsActive() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

type BookingSource string

const (
	BookingSourceWeb      BookingSource = "web"
	BookingSourceAPI      BookingSource = "api"
	BookingSourceInternal BookingSource = "internal"
)

type CancelledBy string

const (
	CancelledByHost     CancelledBy = "host"
	CancelledByAttendee CancelledBy = "attendee"
	CancelledBySystem   CancelledBy = "system"
)

type Booking struct {
	ID              string        `json:"id" db:"id"`
	UID             string        `json:"uid" db:"uid"`
	OrganizationID  string        `json:"organization_id" db:"organization_id"`
	EventTypeID     *string       `json:"event_type_id,omitempty" db:"event_type_id"`
	HostID          string        `json:"host_id" db:"host_id"`
	StartTime       time.Time     `json:"start_time" db:"start_time"`
	EndTime         time.Time     `json:"end_time" db:"end_time"`
	Timezone        string        `json:"timezone" db:"timezone"`
	Title           string        `json:"title,omitempty" db:"title"`
	Description     string        `json:"description,omitempty" db:"description"`
	MeetingURL      string        `json:"meeting_url,omitempty" db:"meeting_url"`
	Status          BookingStatus `json:"status" db:"status"`
	Source          BookingSource `json:"source" db:"source"`
	RescheduledFrom *string       `json:"rescheduled_from,omitempty" db:"rescheduled_from"`
	CancelledAt     *time.Time    `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CancelReason    string        `json:"cancel_reason,omitempty" db:"cancel_reason"`
	CancelledBy     CancelledBy   `json:"cancelled_by,omitempty" db:"cancelled_by"`
	CreatedBy       *string       `json:"created_by,omitempty" db:"created_by"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at" db:"updated_at"`
}

type AttendeeResponse string

const (
	AttendeeResponseAccepted AttendeeResponse = "accepted"
	AttendeeResponseDeclined AttendeeResponse = "declined"
	AttendeeResponsePending  AttendeeResponse = "pending"
)

type Attendee struct {
	ID             string           `json:"id" db:"id"`
	BookingID      string           `json:"booking_id" db:"booking_id"`
	Email          string           `json:"email" db:"email"`
	Name           string           `json:"name" db:"name"`
	Phone          string           `json:"phone,omitempty" db:"phone"`
	UserID         *string          `json:"user_id,omitempty" db:"user_id"`
	ResponseStatus AttendeeResponse `json:"response_status" db:"response_status"`
	IsHost         bool             `json:"is_host" db:"is_host"`
}

// Slot is a bookable interval of exactly the requested duration,
// together with the host(s) that would serve it.
type Slot struct {
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	HostIDs []string  `json:"host_ids"`
}

package entity

import (
	"time"
)

type AssignmentType string

const (
	AssignmentSingle     AssignmentType = "single"
	AssignmentRoundRobin AssignmentType = "round_robin"
	AssignmentCollective AssignmentType = "collective"
)

type LocationType string

const (
	LocationMeet     LocationType = "meet"
	LocationPhone    LocationType = "phone"
	LocationInPerson LocationType = "in_person"
	LocationCustom   LocationType = "custom"
)

type EventType struct {
	ID                   string         `json:"id" db:"id"`
	OrganizationID       string         `json:"organization_id" db:"organization_id"`
	OwnerID              *string        `json:"owner_id,omitempty" db:"owner_id"`
	Slug                 string         `json:"slug" db:"slug"`
	Title                string         `json:"title" db:"title"`
	DurationMinutes      int            `json:"duration_minutes" db:"duration_minutes"`
	AssignmentType       AssignmentType `json:"assignment_type" db:"assignment_type"`
	LocationType         LocationType   `json:"location_type" db:"location_type"`
	RequiresConfirmation bool           `json:"requires_confirmation" db:"requires_confirmation"`
	BufferBefore         *int           `json:"buffer_before,omitempty" db:"buffer_before"`
	BufferAfter          *int           `json:"buffer_after,omitempty" db:"buffer_after"`
	MinimumNoticeHours   *int           `json:"minimum_notice_hours,omitempty" db:"minimum_notice_hours"`
	MaxBookingsPerDay    *int           `json:"max_bookings_per_day,omitempty" db:"max_bookings_per_day"`
	IsActive             bool           `json:"is_active" db:"is_active"`
	IsPublic             bool           `json:"is_public" db:"is_public"`
	DeletedAt            *time.Time     `json:"deleted_at,omitempty" db:"deleted_at"`
	CreatedAt            time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at" db:"updated_at"`
}

// EventTypeHost links a host to an event type and carries the round-robin
// fairness counters.
type EventTypeHost struct {
	EventTypeID  string     `json:"event_type_id" db:"event_type_id"`
	UserID       string     `json:"user_id" db:"user_id"`
	Priority     int        `json:"priority" db:"priority"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	BookingCount int        `json:"booking_count" db:"booking_count"`
	LastBookedAt *time.Time `json:"last_booked_at,omitempty" db:"last_booked_at"`
}

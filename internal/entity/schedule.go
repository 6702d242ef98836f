package entity

import (
	"time"
)

type UserSchedule struct {
	ID                 string    `json:"id" db:"id"`
	UserID             string    `json:"user_id" db:"user_id"`
	Name               string    `json:"name" db:"name"`
	IsDefault          bool      `json:"is_default" db:"is_default"`
	BufferBefore       int       `json:"buffer_before" db:"buffer_before"`
	BufferAfter        int       `json:"buffer_after" db:"buffer_after"`
	MinimumNoticeHours int       `json:"minimum_notice_hours" db:"minimum_notice_hours"`
	MaxBookingsPerDay  *int      `json:"max_bookings_per_day,omitempty" db:"max_bookings_per_day"`
	MaxBookingsPerWeek *int      `json:"max_bookings_per_week,omitempty" db:"max_bookings_per_week"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// ScheduleWindow is a weekday-plus-time range (or a date-specific override)
// defining when a user is nominally available. Times are "HH:MM" strings
// interpreted in the availability query's timezone.
type ScheduleWindow struct {
	ID           string     `json:"id" db:"id"`
	ScheduleID   string     `json:"schedule_id" db:"schedule_id"`
	DayOfWeek    int        `json:"day_of_week" db:"day_of_week"`
	StartTime    string     `json:"start_time" db:"start_time"`
	EndTime      string     `json:"end_time" db:"end_time"`
	SpecificDate *time.Time `json:"specific_date,omitempty" db:"specific_date"`
	IsAvailable  bool       `json:"is_available" db:"is_available"`
}

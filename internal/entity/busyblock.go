package entity

import "time"

// BusyBlock is externally-sourced unavailability for a user, typically from
// calendar sync. The availability engine treats it as additional busy time.
type BusyBlock struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	StartTime time.Time `json:"start_time" db:"start_time"`
	EndTime   time.Time `json:"end_time" db:"end_time"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

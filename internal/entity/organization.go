package entity

import "time"

type Organization struct {
	ID              string    `json:"id" db:"id"`
	Slug            string    `json:"slug" db:"slug"`
	Name            string    `json:"name" db:"name"`
	DefaultTimezone string    `json:"default_timezone" db:"default_timezone"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

package entity

import "time"

// Resource is a bookable asset (room, chair, device) with the same overlap
// exclusivity as a host.
type Resource struct {
	ID             string    `json:"id" db:"id"`
	OrganizationID string    `json:"organization_id" db:"organization_id"`
	Name           string    `json:"name" db:"name"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

type BookingResource struct {
	BookingID  string `json:"booking_id" db:"booking_id"`
	ResourceID string `json:"resource_id" db:"resource_id"`
}

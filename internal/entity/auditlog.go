package entity

import "time"

type AuditAction string

const (
	AuditActionCreated     AuditAction = "created"
	AuditActionConfirmed   AuditAction = "confirmed"
	AuditActionCancelled   AuditAction = "cancelled"
	AuditActionRescheduled AuditAction = "rescheduled"
)

type ActorType string

const (
	ActorTypeUser    ActorType = "user"
	ActorTypeAPIKey  ActorType = "api_key"
	ActorTypeSystem  ActorType = "system"
	ActorTypeWebhook ActorType = "webhook"
)

// BookingAuditLog is append-only: one entry per booking state transition.
type BookingAuditLog struct {
	ID        string      `json:"id" db:"id"`
	BookingID string      `json:"booking_id" db:"booking_id"`
	Action    AuditAction `json:"action" db:"action"`
	ActorID   *string     `json:"actor_id,omitempty" db:"actor_id"`
	ActorType ActorType   `json:"actor_type" db:"actor_type"`
	Details   string      `json:"details,omitempty" db:"details"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}

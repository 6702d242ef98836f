package queue

import (
	"fmt"
	"time"
)

// Job names carried on the notification queue.
const (
	JobBookingCreated   = "BOOKING_CREATED"
	JobBookingConfirmed = "BOOKING_CONFIRMED"
	JobBookingCancelled = "BOOKING_CANCELLED"
	JobBookingReminder  = "BOOKING_REMINDER"
)

// Webhook event names.
const (
	WebhookBookingCreated   = "booking.created"
	WebhookBookingCancelled = "booking.cancelled"
)

// Reminder offsets before a booking's start time.
var ReminderOffsets = map[string]time.Duration{
	"24h": 24 * time.Hour,
	"1h":  time.Hour,
	"15m": 15 * time.Minute,
}

// ReminderJobID is the stable dedupe key for one reminder of one booking:
// scheduling it twice replaces rather than duplicates.
func ReminderJobID(bookingID, offset string) string {
	return fmt.Sprintf("reminder:%s:%s", bookingID, offset)
}

// BookingNotificationJob is the payload for booking lifecycle notifications.
// Recipients are resolved here, before the request scope is left; workers
// only render and deliver.
type BookingNotificationJob struct {
	BookingID  string    `json:"booking_id"`
	BookingUID string    `json:"booking_uid"`
	Status     string    `json:"status"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Timezone   string    `json:"timezone"`
	Recipients []string  `json:"recipients"`
	Reason     string    `json:"reason,omitempty"`
}

// ReminderJob is the payload for a delayed reminder notification.
type ReminderJob struct {
	BookingID  string    `json:"booking_id"`
	BookingUID string    `json:"booking_uid"`
	Offset     string    `json:"offset"`
	StartTime  time.Time `json:"start_time"`
	Recipients []string  `json:"recipients"`
}

// WebhookJob is the payload published to the webhook queue. DeliveryID is
// stable per job so delivery workers can deduplicate retries.
type WebhookJob struct {
	Event      string      `json:"event"`
	DeliveryID string      `json:"delivery_id"`
	Payload    interface{} `json:"payload"`
}

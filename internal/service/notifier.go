package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/bookwell/bookwell/internal/entity"
	"github.com/bookwell/bookwell/pkg/clock"
	"github.com/bookwell/bookwell/pkg/queue"
)

// Notifier fans booking lifecycle events out to the notification queue and
// the webhook queue. Fan-out runs after the booking transaction commits and
// is strictly best effort: failures are logged, never returned.
type Notifier struct {
	jobs     JobSink
	webhooks WebhookSink
	clock    clock.Clock
}

func NewNotifier(jobs JobSink, webhooks WebhookSink, clk clock.Clock) *Notifier {
	return &Notifier{jobs: jobs, webhooks: webhooks, clock: clk}
}

func (n *Notifier) BookingCreated(ctx context.Context, booking *entity.Booking, attendees []*entity.Attendee) {
	if n == nil {
		return
	}
	recipients := recipientEmails(attendees)

	n.enqueue(ctx, queue.JobBookingCreated, &queue.BookingNotificationJob{
		BookingID:  booking.ID,
		BookingUID: booking.UID,
		Status:     string(booking.Status),
		StartTime:  booking.StartTime,
		EndTime:    booking.EndTime,
		Timezone:   booking.Timezone,
		Recipients: recipients,
	}, nil)

	n.scheduleReminders(ctx, booking, recipients)
	n.publishWebhook(ctx, queue.WebhookBookingCreated, booking, attendees)
}

func (n *Notifier) BookingConfirmed(ctx context.Context, booking *entity.Booking, attendees []*entity.Attendee) {
	if n == nil {
		return
	}
	n.enqueue(ctx, queue.JobBookingConfirmed, &queue.BookingNotificationJob{
		BookingID:  booking.ID,
		BookingUID: booking.UID,
		Status:     string(booking.Status),
		StartTime:  booking.StartTime,
		EndTime:    booking.EndTime,
		Timezone:   booking.Timezone,
		Recipients: recipientEmails(attendees),
	}, nil)
}

// BookingCancelled notifies recipients, drops any reminders still pending
// for the booking, and publishes the cancellation webhook.
func (n *Notifier) BookingCancelled(ctx context.Context, booking *entity.Booking, attendees []*entity.Attendee, reason string) {
	if n == nil {
		return
	}
	n.enqueue(ctx, queue.JobBookingCancelled, &queue.BookingNotificationJob{
		BookingID:  booking.ID,
		BookingUID: booking.UID,
		Status:     string(booking.Status),
		StartTime:  booking.StartTime,
		EndTime:    booking.EndTime,
		Timezone:   booking.Timezone,
		Recipients: recipientEmails(attendees),
		Reason:     reason,
	}, nil)

	n.removeReminders(ctx, booking.ID)
	n.publishWebhook(ctx, queue.WebhookBookingCancelled, booking, attendees)
}

// BookingRescheduled drops the original booking's reminders and announces
// the replacement. The original does not get a cancellation webhook; the
// created webhook for the replacement carries the rescheduled_from link.
func (n *Notifier) BookingRescheduled(ctx context.Context, old, replacement *entity.Booking, attendees []*entity.Attendee) {
	if n == nil {
		return
	}
	n.removeReminders(ctx, old.ID)
	n.BookingCreated(ctx, replacement, attendees)
}

// scheduleReminders enqueues delayed reminder jobs at the standard offsets
// before the booking start. Offsets already in the past are skipped. Job
// ids are stable per booking and offset, so rescheduling replaces instead
// of duplicating.
func (n *Notifier) scheduleReminders(ctx context.Context, booking *entity.Booking, recipients []string) {
	if n.jobs == nil {
		return
	}
	for name, offset := range queue.ReminderOffsets {
		delay := booking.StartTime.Add(-offset).Sub(n.clock.Now())
		if delay <= 0 {
			continue
		}
		n.enqueue(ctx, queue.JobBookingReminder, &queue.ReminderJob{
			BookingID:  booking.ID,
			BookingUID: booking.UID,
			Offset:     name,
			StartTime:  booking.StartTime,
			Recipients: recipients,
		}, &queue.Options{
			Delay: delay,
			JobID: queue.ReminderJobID(booking.ID, name),
		})
	}
}

func (n *Notifier) removeReminders(ctx context.Context, bookingID string) {
	if n.jobs == nil {
		return
	}
	for name := range queue.ReminderOffsets {
		if err := n.jobs.Remove(ctx, queue.ReminderJobID(bookingID, name)); err != nil {
			logrus.Warnf("failed to remove reminder %s for booking %s: %v", name, bookingID, err)
		}
	}
}

func (n *Notifier) enqueue(ctx context.Context, name string, payload interface{}, opts *queue.Options) {
	if n.jobs == nil {
		return
	}
	if err := n.jobs.Add(ctx, name, payload, opts); err != nil {
		logrus.Errorf("failed to enqueue %s job: %v", name, err)
	}
}

// webhookBookingPayload is the body delivered to webhook subscribers.
// Attendees ride along since they are in hand when the event fires; the
// host and event type travel as ids on the booking for delivery workers
// to resolve.
type webhookBookingPayload struct {
	Booking   *entity.Booking    `json:"booking"`
	Attendees []*entity.Attendee `json:"attendees"`
}

func (n *Notifier) publishWebhook(ctx context.Context, event string, booking *entity.Booking, attendees []*entity.Attendee) {
	if n.webhooks == nil {
		return
	}
	job := &queue.WebhookJob{
		Event:      event,
		DeliveryID: fmt.Sprintf("%s:%s", event, booking.ID),
		Payload:    &webhookBookingPayload{Booking: booking, Attendees: attendees},
	}
	if err := n.webhooks.Publish(ctx, job); err != nil {
		logrus.Errorf("failed to publish %s webhook for booking %s: %v", event, booking.ID, err)
	}
}

func recipientEmails(attendees []*entity.Attendee) []string {
	emails := make([]string, 0, len(attendees))
	for _, a := range attendees {
		if a.Email != "" {
			emails = append(emails, a.Email)
		}
	}
	return emails
}

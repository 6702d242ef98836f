package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookwell/bookwell/internal/entity"
	"github.com/bookwell/bookwell/internal/reqctx"
	"github.com/bookwell/bookwell/pkg/clock"
	"github.com/bookwell/bookwell/pkg/queue"
)

type bookingEnv struct {
	fs       *fakeStore
	locker   *fakeLocker
	jobs     *fakeJobSink
	webhooks *fakeWebhookSink
	clock    clock.Clock
	svc      BookingService
}

func newBookingEnv(t *testing.T) *bookingEnv {
	t.Helper()
	fs := availabilityFixture(t)
	locker := &fakeLocker{}
	jobs := &fakeJobSink{}
	webhooks := &fakeWebhookSink{}
	ny := nyLoc(t)
	clk := clock.Fixed(time.Date(2025, 6, 1, 12, 0, 0, 0, ny))

	svc := NewBookingService(fs.store(), locker, NewNotifier(jobs, webhooks, clk), clk, "https://meet.test")
	return &bookingEnv{fs: fs, locker: locker, jobs: jobs, webhooks: webhooks, clock: clk, svc: svc}
}

func createRequest(t *testing.T) *CreateBookingRequest {
	t.Helper()
	ny := nyLoc(t)
	return &CreateBookingRequest{
		EventTypeID: testEventID,
		StartTime:   time.Date(2025, 6, 2, 10, 0, 0, 0, ny),
		Timezone:    "America/New_York",
		Attendees: []AttendeeInput{
			{Email: "Guest@Example.com", Name: "Guest"},
		},
	}
}

func userContext(userID string) context.Context {
	rc := reqctx.New("127.0.0.1", "test")
	rc.SetUserID(userID)
	rc.SetOrganizationID(testOrgID)
	return reqctx.With(context.Background(), rc)
}

func apiKeyContext(keyID string) context.Context {
	rc := reqctx.New("127.0.0.1", "test")
	rc.SetAPIKeyID(keyID)
	rc.SetOrganizationID(testOrgID)
	return reqctx.With(context.Background(), rc)
}

func TestCreateBooking(t *testing.T) {
	env := newBookingEnv(t)
	ny := nyLoc(t)

	booking, err := env.svc.CreateBooking(userContext("user-9"), createRequest(t))
	require.NoError(t, err)

	assert.Equal(t, entity.BookingStatusConfirmed, booking.Status)
	assert.Equal(t, testHostID, booking.HostID)
	assert.Equal(t, testOrgID, booking.OrganizationID)
	assert.True(t, booking.EndTime.Equal(time.Date(2025, 6, 2, 10, 30, 0, 0, ny)))
	assert.Len(t, booking.UID, 12)
	assert.Equal(t, "https://meet.test/"+booking.UID, booking.MeetingURL)
	assert.Equal(t, entity.BookingSourceWeb, booking.Source)
	require.NotNil(t, booking.CreatedBy)
	assert.Equal(t, "user-9", *booking.CreatedBy)

	require.Len(t, env.fs.bookings.created, 1)
	params := env.fs.bookings.created[0]
	assert.False(t, params.BumpRoundRobin)
	assert.Equal(t, entity.AuditActionCreated, params.Audit.Action)
	assert.Equal(t, entity.ActorTypeUser, params.Audit.ActorType)

	// Guest attendee is lowercased, host attendee appended.
	require.Len(t, params.Attendees, 2)
	assert.Equal(t, "guest@example.com", params.Attendees[0].Email)
	assert.False(t, params.Attendees[0].IsHost)
	assert.True(t, params.Attendees[1].IsHost)
	assert.Equal(t, "host@acme.test", params.Attendees[1].Email)

	// Lock held across the transaction, released after.
	assert.Equal(t, 1, env.locker.acquired)
	assert.Equal(t, 1, env.locker.released)
}

func TestCreateBooking_APISource(t *testing.T) {
	env := newBookingEnv(t)

	booking, err := env.svc.CreateBooking(apiKeyContext("key-1"), createRequest(t))
	require.NoError(t, err)

	assert.Equal(t, entity.BookingSourceAPI, booking.Source)
	params := env.fs.bookings.created[0]
	assert.Equal(t, entity.ActorTypeAPIKey, params.Audit.ActorType)
	// The actor id is always the user; a bare API key carries none.
	assert.Nil(t, params.Audit.ActorID)
}

func TestCreateBooking_ExplicitSource(t *testing.T) {
	env := newBookingEnv(t)

	req := createRequest(t)
	req.Source = "internal"
	booking, err := env.svc.CreateBooking(userContext("user-9"), req)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingSourceInternal, booking.Source)
}

func TestCreateBooking_LockReleasedBeforeFanOut(t *testing.T) {
	env := newBookingEnv(t)
	var events []string
	env.locker.events = &events
	env.jobs.events = &events

	_, err := env.svc.CreateBooking(userContext("user-9"), createRequest(t))
	require.NoError(t, err)

	// The slot lock is let go before any notification is enqueued.
	require.NotEmpty(t, events)
	assert.Equal(t, "release", events[0])
	assert.Equal(t, 1, env.locker.released)
}

func TestCreateBooking_DirectHostWithoutEventType(t *testing.T) {
	env := newBookingEnv(t)
	ny := nyLoc(t)

	booking, err := env.svc.CreateBooking(userContext("user-9"), &CreateBookingRequest{
		HostID:    testHostID,
		StartTime: time.Date(2025, 6, 2, 10, 0, 0, 0, ny),
		EndTime:   time.Date(2025, 6, 2, 10, 45, 0, 0, ny),
		Timezone:  "America/New_York",
		Title:     "Ad-hoc sync",
		Attendees: []AttendeeInput{{Email: "guest@example.com", Name: "Guest"}},
	})
	require.NoError(t, err)

	assert.Nil(t, booking.EventTypeID)
	assert.Equal(t, testHostID, booking.HostID)
	assert.Equal(t, entity.BookingStatusConfirmed, booking.Status)
	assert.True(t, booking.EndTime.Equal(time.Date(2025, 6, 2, 10, 45, 0, 0, ny)))
	assert.Empty(t, booking.MeetingURL)
	assert.False(t, env.fs.bookings.created[0].BumpRoundRobin)
}

func TestCreateBooking_DirectHostValidation(t *testing.T) {
	env := newBookingEnv(t)
	ny := nyLoc(t)
	start := time.Date(2025, 6, 2, 10, 0, 0, 0, ny)
	guests := []AttendeeInput{{Email: "guest@example.com", Name: "Guest"}}

	// Neither an event type nor a host.
	_, err := env.svc.CreateBooking(userContext("user-9"), &CreateBookingRequest{
		StartTime: start, EndTime: start.Add(30 * time.Minute),
		Timezone: "America/New_York", Attendees: guests,
	})
	assert.ErrorIs(t, err, entity.ErrInvalidInput)

	// End not after start.
	_, err = env.svc.CreateBooking(userContext("user-9"), &CreateBookingRequest{
		HostID: testHostID, StartTime: start, EndTime: start,
		Timezone: "America/New_York", Attendees: guests,
	})
	assert.ErrorIs(t, err, entity.ErrInvalidTimeRange)
}

func TestCreateBooking_RequiresConfirmation(t *testing.T) {
	env := newBookingEnv(t)
	env.fs.eventTypes.eventTypes[testEventID].RequiresConfirmation = true

	booking, err := env.svc.CreateBooking(userContext("user-9"), createRequest(t))
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusPending, booking.Status)
}

func TestCreateBooking_SlotLockHeld(t *testing.T) {
	env := newBookingEnv(t)
	env.locker.held = true

	_, err := env.svc.CreateBooking(userContext("user-9"), createRequest(t))
	assert.ErrorIs(t, err, entity.ErrSlotBeingBooked)
	assert.Empty(t, env.fs.bookings.created)
}

func TestCreateBooking_MinimumNotice(t *testing.T) {
	env := newBookingEnv(t)
	notice := 48
	env.fs.eventTypes.eventTypes[testEventID].MinimumNoticeHours = &notice

	// Monday 10:00 is less than 48h after Sunday noon.
	_, err := env.svc.CreateBooking(userContext("user-9"), createRequest(t))
	assert.ErrorIs(t, err, entity.ErrMinimumNotice)
}

func TestCreateBooking_SchedulesRemindersAndWebhook(t *testing.T) {
	env := newBookingEnv(t)

	booking, err := env.svc.CreateBooking(userContext("user-9"), createRequest(t))
	require.NoError(t, err)

	var names []string
	reminderIDs := map[string]bool{}
	for _, j := range env.jobs.added {
		names = append(names, j.name)
		if j.name == queue.JobBookingReminder {
			reminderIDs[j.opts.JobID] = true
			assert.Greater(t, j.opts.Delay, time.Duration(0))
		}
	}
	assert.Contains(t, names, queue.JobBookingCreated)
	assert.True(t, reminderIDs[queue.ReminderJobID(booking.ID, "24h")])
	assert.True(t, reminderIDs[queue.ReminderJobID(booking.ID, "1h")])
	assert.True(t, reminderIDs[queue.ReminderJobID(booking.ID, "15m")])

	require.Len(t, env.webhooks.published, 1)
	job := env.webhooks.published[0].(*queue.WebhookJob)
	assert.Equal(t, queue.WebhookBookingCreated, job.Event)
	assert.Equal(t, queue.WebhookBookingCreated+":"+booking.ID, job.DeliveryID)

	payload := job.Payload.(*webhookBookingPayload)
	assert.Equal(t, booking.ID, payload.Booking.ID)
	require.Len(t, payload.Attendees, 2)
}

func TestCreateBooking_RoundRobinPicksFirstFreeHost(t *testing.T) {
	fs := collectiveFixture(t, entity.AssignmentRoundRobin)
	ny := nyLoc(t)
	locker := &fakeLocker{}
	clk := clock.Fixed(time.Date(2025, 6, 1, 12, 0, 0, 0, ny))
	svc := NewBookingService(fs.store(), locker, NewNotifier(&fakeJobSink{}, nil, clk), clk, "")

	// Fairness order puts host one first, but it is busy at 10:00.
	fs.bookings.add(&entity.Booking{
		ID: "b-busy", UID: "busybusyb123", OrganizationID: testOrgID, HostID: testHostID,
		StartTime: time.Date(2025, 6, 2, 10, 0, 0, 0, ny),
		EndTime:   time.Date(2025, 6, 2, 10, 30, 0, 0, ny),
		Status:    entity.BookingStatusConfirmed,
	})

	booking, err := svc.CreateBooking(userContext("user-9"), createRequest(t))
	require.NoError(t, err)
	assert.Equal(t, testHost2ID, booking.HostID)
	assert.True(t, fs.bookings.created[0].BumpRoundRobin)
}

func TestCreateBooking_RoundRobinAllBusy(t *testing.T) {
	fs := collectiveFixture(t, entity.AssignmentRoundRobin)
	ny := nyLoc(t)
	clk := clock.Fixed(time.Date(2025, 6, 1, 12, 0, 0, 0, ny))
	svc := NewBookingService(fs.store(), &fakeLocker{}, NewNotifier(&fakeJobSink{}, nil, clk), clk, "")

	for _, hostID := range []string{testHostID, testHost2ID} {
		fs.bookings.add(&entity.Booking{
			ID: entity.NewID(), UID: entity.NewBookingUID(), OrganizationID: testOrgID, HostID: hostID,
			StartTime: time.Date(2025, 6, 2, 10, 0, 0, 0, ny),
			EndTime:   time.Date(2025, 6, 2, 10, 30, 0, 0, ny),
			Status:    entity.BookingStatusConfirmed,
		})
	}

	_, err := svc.CreateBooking(userContext("user-9"), createRequest(t))
	assert.ErrorIs(t, err, entity.ErrSlotConflict)
}

func TestCreateBooking_CollectiveRequiresAllHostsFree(t *testing.T) {
	fs := collectiveFixture(t, entity.AssignmentCollective)
	ny := nyLoc(t)
	clk := clock.Fixed(time.Date(2025, 6, 1, 12, 0, 0, 0, ny))
	svc := NewBookingService(fs.store(), &fakeLocker{}, NewNotifier(&fakeJobSink{}, nil, clk), clk, "")

	fs.bookings.add(&entity.Booking{
		ID: "b-2busy", UID: "twobusybu123", OrganizationID: testOrgID, HostID: testHost2ID,
		StartTime: time.Date(2025, 6, 2, 10, 0, 0, 0, ny),
		EndTime:   time.Date(2025, 6, 2, 10, 30, 0, 0, ny),
		Status:    entity.BookingStatusConfirmed,
	})

	_, err := svc.CreateBooking(userContext("user-9"), createRequest(t))
	assert.ErrorIs(t, err, entity.ErrSlotConflict)
}

func TestCreateBooking_CollectiveAddsCoHostAttendees(t *testing.T) {
	fs := collectiveFixture(t, entity.AssignmentCollective)
	ny := nyLoc(t)
	clk := clock.Fixed(time.Date(2025, 6, 1, 12, 0, 0, 0, ny))
	svc := NewBookingService(fs.store(), &fakeLocker{}, NewNotifier(&fakeJobSink{}, nil, clk), clk, "")

	booking, err := svc.CreateBooking(userContext("user-9"), createRequest(t))
	require.NoError(t, err)
	assert.Equal(t, testHostID, booking.HostID)

	var hostEmails []string
	for _, a := range fs.bookings.created[0].Attendees {
		if a.IsHost {
			hostEmails = append(hostEmails, a.Email)
		}
	}
	assert.Equal(t, []string{"host@acme.test", "host2@acme.test"}, hostEmails)
}

func TestConfirmBooking(t *testing.T) {
	env := newBookingEnv(t)
	env.fs.eventTypes.eventTypes[testEventID].RequiresConfirmation = true

	booking, err := env.svc.CreateBooking(userContext("user-9"), createRequest(t))
	require.NoError(t, err)

	confirmed, err := env.svc.ConfirmBooking(userContext(testHostID), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusConfirmed, confirmed.Status)

	logs := env.fs.bookings.audits[booking.ID]
	require.Len(t, logs, 2)
	assert.Equal(t, entity.AuditActionConfirmed, logs[1].Action)

	_, err = env.svc.ConfirmBooking(userContext(testHostID), booking.ID)
	assert.ErrorIs(t, err, entity.ErrNotPending)
}

func TestCancelBooking(t *testing.T) {
	env := newBookingEnv(t)

	booking, err := env.svc.CreateBooking(userContext("user-9"), createRequest(t))
	require.NoError(t, err)

	cancelled, err := env.svc.CancelBooking(userContext(testHostID), booking.ID, "host is out sick")
	require.NoError(t, err)

	assert.Equal(t, entity.BookingStatusCancelled, cancelled.Status)
	assert.Equal(t, entity.CancelledByHost, cancelled.CancelledBy)
	assert.Equal(t, "host is out sick", cancelled.CancelReason)
	require.NotNil(t, cancelled.CancelledAt)

	// Pending reminders are dropped.
	assert.Contains(t, env.jobs.removed, queue.ReminderJobID(booking.ID, "24h"))
	assert.Contains(t, env.jobs.removed, queue.ReminderJobID(booking.ID, "1h"))
	assert.Contains(t, env.jobs.removed, queue.ReminderJobID(booking.ID, "15m"))

	// Second cancel is rejected.
	_, err = env.svc.CancelBooking(userContext(testHostID), booking.ID, "again")
	assert.ErrorIs(t, err, entity.ErrAlreadyCancelled)
}

func TestCancelByAttendee(t *testing.T) {
	env := newBookingEnv(t)

	booking, err := env.svc.CreateBooking(userContext("user-9"), createRequest(t))
	require.NoError(t, err)

	// Email comparison ignores case.
	cancelled, err := env.svc.CancelByAttendee(context.Background(), booking.UID, "GUEST@example.COM", "cannot make it")
	require.NoError(t, err)
	assert.Equal(t, entity.CancelledByAttendee, cancelled.CancelledBy)
}

func TestCancelByAttendee_WrongEmail(t *testing.T) {
	env := newBookingEnv(t)

	booking, err := env.svc.CreateBooking(userContext("user-9"), createRequest(t))
	require.NoError(t, err)

	_, err = env.svc.CancelByAttendee(context.Background(), booking.UID, "stranger@example.com", "")
	assert.ErrorIs(t, err, entity.ErrAttendeeMismatch)

	// The host's own email does not grant the attendee surface.
	_, err = env.svc.CancelByAttendee(context.Background(), booking.UID, "host@acme.test", "")
	assert.ErrorIs(t, err, entity.ErrAttendeeMismatch)
}

func TestRescheduleBooking(t *testing.T) {
	env := newBookingEnv(t)
	ny := nyLoc(t)

	booking, err := env.svc.CreateBooking(userContext("user-9"), createRequest(t))
	require.NoError(t, err)

	newStart := time.Date(2025, 6, 2, 14, 0, 0, 0, ny)
	moved, err := env.svc.RescheduleBooking(userContext(testHostID), booking.ID, &RescheduleRequest{StartTime: newStart})
	require.NoError(t, err)

	assert.True(t, moved.StartTime.Equal(newStart))
	assert.Equal(t, booking.EndTime.Sub(booking.StartTime), moved.EndTime.Sub(moved.StartTime))
	require.NotNil(t, moved.RescheduledFrom)
	assert.Equal(t, booking.ID, *moved.RescheduledFrom)
	assert.Equal(t, entity.BookingStatusConfirmed, moved.Status)
	assert.NotEqual(t, booking.UID, moved.UID)

	old, err := env.fs.bookings.GetByID(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusCancelled, old.Status)
	assert.Equal(t, "rescheduled", old.CancelReason)
	assert.Equal(t, entity.CancelledBySystem, old.CancelledBy)

	// Two entries on the original, one created entry on the replacement.
	oldLogs := env.fs.bookings.audits[booking.ID]
	require.Len(t, oldLogs, 2)
	assert.Equal(t, entity.AuditActionCreated, oldLogs[0].Action)
	assert.Equal(t, entity.AuditActionCancelled, oldLogs[1].Action)
	newLogs := env.fs.bookings.audits[moved.ID]
	require.Len(t, newLogs, 1)
	assert.Equal(t, entity.AuditActionCreated, newLogs[0].Action)

	// Attendees carry over to the replacement.
	attendees, _ := env.fs.bookings.ListAttendees(context.Background(), moved.ID)
	require.Len(t, attendees, 2)
	for _, a := range attendees {
		assert.Equal(t, moved.ID, a.BookingID)
	}
}

func TestRescheduleBooking_CreateFailureKeepsOriginal(t *testing.T) {
	env := newBookingEnv(t)
	ny := nyLoc(t)

	booking, err := env.svc.CreateBooking(userContext("user-9"), createRequest(t))
	require.NoError(t, err)

	env.fs.bookings.createErr = entity.ErrSlotConflict

	_, err = env.svc.RescheduleBooking(userContext(testHostID), booking.ID, &RescheduleRequest{
		StartTime: time.Date(2025, 6, 2, 15, 0, 0, 0, ny),
	})
	assert.ErrorIs(t, err, entity.ErrSlotConflict)

	// The replacement never came to be, so the original stays active.
	original, err := env.fs.bookings.GetByID(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusConfirmed, original.Status)
	assert.Nil(t, original.CancelledAt)
	assert.Len(t, env.fs.bookings.audits[booking.ID], 1)
}

func TestCancelStalePending(t *testing.T) {
	env := newBookingEnv(t)
	ny := nyLoc(t)

	// Started in the past, never confirmed.
	env.fs.bookings.add(&entity.Booking{
		ID: "b-stale", UID: "stalestale12", OrganizationID: testOrgID, HostID: testHostID,
		StartTime: time.Date(2025, 5, 30, 10, 0, 0, 0, ny),
		EndTime:   time.Date(2025, 5, 30, 10, 30, 0, 0, ny),
		Status:    entity.BookingStatusPending,
	})

	n, err := env.svc.CancelStalePending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	b, err := env.fs.bookings.GetByID(context.Background(), "b-stale")
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusCancelled, b.Status)
	assert.Equal(t, entity.CancelledBySystem, b.CancelledBy)

	logs := env.fs.bookings.audits["b-stale"]
	require.Len(t, logs, 1)
	assert.Equal(t, entity.ActorTypeSystem, logs[0].ActorType)
}

func TestCompletePastBookings(t *testing.T) {
	env := newBookingEnv(t)
	ny := nyLoc(t)

	env.fs.bookings.add(&entity.Booking{
		ID: "b-done", UID: "donedonedo12", OrganizationID: testOrgID, HostID: testHostID,
		StartTime: time.Date(2025, 5, 30, 10, 0, 0, 0, ny),
		EndTime:   time.Date(2025, 5, 30, 10, 30, 0, 0, ny),
		Status:    entity.BookingStatusConfirmed,
	})

	n, err := env.svc.CompletePastBookings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	b, _ := env.fs.bookings.GetByID(context.Background(), "b-done")
	assert.Equal(t, entity.BookingStatusCompleted, b.Status)
}

func TestGetBookingByUID(t *testing.T) {
	env := newBookingEnv(t)

	booking, err := env.svc.CreateBooking(userContext("user-9"), createRequest(t))
	require.NoError(t, err)

	details, err := env.svc.GetBookingByUID(context.Background(), booking.UID)
	require.NoError(t, err)
	assert.Equal(t, booking.ID, details.Booking.ID)
	assert.Len(t, details.Attendees, 2)
	assert.Len(t, details.AuditLogs, 1)

	_, err = env.svc.GetBookingByUID(context.Background(), "nope")
	assert.ErrorIs(t, err, entity.ErrBookingNotFound)
}

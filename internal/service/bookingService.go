package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	repository "github.com/bookwell/bookwell/internal/database/postgres"
	"github.com/bookwell/bookwell/internal/entity"
	"github.com/bookwell/bookwell/internal/reqctx"
	"github.com/bookwell/bookwell/pkg/clock"
	"github.com/bookwell/bookwell/pkg/interval"
	"github.com/bookwell/bookwell/pkg/slotlock"
)

type bookingService struct {
	bookings       repository.BookingRepository
	eventTypes     repository.EventTypeRepository
	users          repository.UserRepository
	organizations  repository.OrganizationRepository
	schedules      repository.ScheduleRepository
	locks          SlotLocker
	notifier       *Notifier
	clock          clock.Clock
	meetingURLBase string
}

func NewBookingService(
	store *repository.Store,
	locks SlotLocker,
	notifier *Notifier,
	clk clock.Clock,
	meetingURLBase string,
) BookingService {
	return &bookingService{
		bookings:       store.Bookings,
		eventTypes:     store.EventTypes,
		users:          store.Users,
		organizations:  store.Organizations,
		schedules:      store.Schedules,
		locks:          locks,
		notifier:       notifier,
		clock:          clk,
		meetingURLBase: meetingURLBase,
	}
}

// CreateBooking books a slot. With an event type, the host is resolved
// from its assignment and the end time from its duration; without one,
// the caller addresses a host directly and supplies an explicit end. The
// slot lock guards the critical section, and the transactional conflict
// re-check inside the repository is the hard guarantee. Notification
// fan-out happens after commit and never fails the booking.
func (s *bookingService) CreateBooking(ctx context.Context, req *CreateBookingRequest) (*entity.Booking, error) {
	if len(req.Attendees) == 0 {
		return nil, entity.ErrInvalidInput
	}

	var et *entity.EventType
	if req.EventTypeID != "" {
		loaded, err := s.eventTypes.GetByID(ctx, req.EventTypeID)
		if err != nil {
			return nil, err
		}
		if !loaded.IsActive {
			return nil, entity.ErrEventTypeNotFound
		}
		et = loaded
	} else if req.HostID == "" {
		return nil, entity.ErrInvalidInput
	}

	start := req.StartTime
	var end time.Time
	if et != nil {
		duration := time.Duration(et.DurationMinutes) * time.Minute
		if duration <= 0 {
			return nil, entity.ErrInvalidDuration
		}
		end = start.Add(duration)
	} else {
		end = req.EndTime
		if !end.After(start) {
			return nil, entity.ErrInvalidTimeRange
		}
	}

	timezone := req.Timezone
	if timezone == "" && et != nil {
		org, err := s.organizations.GetByID(ctx, et.OrganizationID)
		if err != nil {
			return nil, err
		}
		timezone = org.DefaultTimezone
	}
	if _, err := clock.LoadLocation(timezone); err != nil {
		return nil, entity.ErrInvalidTimezone
	}

	hostID := req.HostID
	var collectiveHosts []string
	bumpRoundRobin := false
	if et != nil {
		var err error
		hostID, collectiveHosts, bumpRoundRobin, err = s.resolveBookingHost(ctx, et, req.HostID, start, end)
		if err != nil {
			return nil, err
		}
	}

	if err := s.checkMinimumNotice(ctx, hostID, et, start); err != nil {
		return nil, err
	}

	token, err := s.locks.Acquire(ctx, hostID, start, end)
	if err != nil {
		if errors.Is(err, slotlock.ErrSlotLocked) {
			return nil, entity.ErrSlotBeingBooked
		}
		return nil, err
	}
	defer s.locks.Release(ctx, hostID, start, end, token)

	// Direct bookings leave the organization empty here; the repository
	// stamps it from the request context.
	booking := &entity.Booking{
		ID:          entity.NewID(),
		UID:         entity.NewBookingUID(),
		HostID:      hostID,
		StartTime:   start,
		EndTime:     end,
		Timezone:    timezone,
		Title:       req.Title,
		Description: req.Description,
		Status:      entity.BookingStatusConfirmed,
		Source:      resolveSource(ctx),
	}
	if req.Source != "" {
		booking.Source = entity.BookingSource(req.Source)
	}
	if et != nil {
		booking.OrganizationID = et.OrganizationID
		booking.EventTypeID = &et.ID
		if booking.Title == "" {
			booking.Title = et.Title
		}
		if et.RequiresConfirmation {
			booking.Status = entity.BookingStatusPending
		}
		if et.LocationType == entity.LocationMeet && s.meetingURLBase != "" {
			booking.MeetingURL = fmt.Sprintf("%s/%s", s.meetingURLBase, booking.UID)
		}
	}
	if userID := reqctx.UserID(ctx); userID != "" {
		booking.CreatedBy = &userID
	}

	attendees, err := s.buildAttendees(ctx, booking, req.Attendees, collectiveHosts)
	if err != nil {
		return nil, err
	}

	actorID, actorType := resolveActor(ctx)
	params := &repository.BookingCreateParams{
		Booking:     booking,
		Attendees:   attendees,
		ResourceIDs: req.ResourceIDs,
		Audit: &entity.BookingAuditLog{
			ID:        entity.NewID(),
			BookingID: booking.ID,
			Action:    entity.AuditActionCreated,
			ActorID:   actorID,
			ActorType: actorType,
		},
		BumpRoundRobin: bumpRoundRobin,
	}

	if err := s.bookings.Create(ctx, params); err != nil {
		return nil, err
	}

	// The critical section ends at commit. Release before fan-out so a
	// slow enqueue cannot stretch the lock window; the deferred release
	// then no-ops on the spent token.
	s.locks.Release(ctx, hostID, start, end, token)

	logrus.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"uid":        booking.UID,
		"host_id":    booking.HostID,
		"status":     booking.Status,
	}).Info("booking created")

	s.notifier.BookingCreated(ctx, booking, attendees)
	return booking, nil
}

// resolveBookingHost picks the host serving a new booking. Round-robin
// walks the fairness-ordered host list and takes the first host free for
// the slot; collective books against a primary host after verifying every
// other host is free.
func (s *bookingService) resolveBookingHost(ctx context.Context, et *entity.EventType, requested string, start, end time.Time) (hostID string, collectiveHosts []string, bumpRoundRobin bool, err error) {
	if requested != "" {
		return requested, nil, false, nil
	}

	switch et.AssignmentType {
	case entity.AssignmentRoundRobin:
		hosts, err := s.eventTypes.ListActiveHosts(ctx, et.ID)
		if err != nil {
			return "", nil, false, err
		}
		for _, h := range hosts {
			free, err := s.hostIsFree(ctx, h.UserID, start, end)
			if err != nil {
				return "", nil, false, err
			}
			if free {
				return h.UserID, nil, true, nil
			}
		}
		return "", nil, false, entity.ErrSlotConflict

	case entity.AssignmentCollective:
		hosts, err := s.eventTypes.ListActiveHosts(ctx, et.ID)
		if err != nil {
			return "", nil, false, err
		}
		if len(hosts) == 0 {
			return "", nil, false, entity.ErrUserNotFound
		}
		var others []string
		for _, h := range hosts[1:] {
			free, err := s.hostIsFree(ctx, h.UserID, start, end)
			if err != nil {
				return "", nil, false, err
			}
			if !free {
				return "", nil, false, entity.ErrSlotConflict
			}
			others = append(others, h.UserID)
		}
		return hosts[0].UserID, others, false, nil

	default:
		if et.OwnerID != nil {
			return *et.OwnerID, nil, false, nil
		}
		hosts, err := s.eventTypes.ListActiveHosts(ctx, et.ID)
		if err != nil {
			return "", nil, false, err
		}
		if len(hosts) == 0 {
			return "", nil, false, entity.ErrUserNotFound
		}
		return hosts[0].UserID, nil, false, nil
	}
}

func (s *bookingService) hostIsFree(ctx context.Context, hostID string, start, end time.Time) (bool, error) {
	existing, err := s.bookings.ListActiveForHostInRange(ctx, hostID, start, end)
	if err != nil {
		return false, err
	}
	slot := interval.Range{Start: start, End: end}
	for _, b := range existing {
		if slot.Overlaps(interval.Range{Start: b.StartTime, End: b.EndTime}) {
			return false, nil
		}
	}
	return true, nil
}

func (s *bookingService) checkMinimumNotice(ctx context.Context, hostID string, et *entity.EventType, start time.Time) error {
	noticeHours := 0
	sched, err := s.schedules.GetForUser(ctx, hostID)
	switch {
	case err == nil:
		noticeHours = sched.MinimumNoticeHours
	case errors.Is(err, entity.ErrScheduleNotFound):
	default:
		return err
	}
	if et != nil && et.MinimumNoticeHours != nil {
		noticeHours = *et.MinimumNoticeHours
	}

	if start.Before(s.clock.Now().Add(time.Duration(noticeHours) * time.Hour)) {
		return entity.ErrMinimumNotice
	}
	return nil
}

// buildAttendees assembles the attendee rows: one per guest plus a host
// row for the primary host and, for collective bookings, every co-host.
func (s *bookingService) buildAttendees(ctx context.Context, booking *entity.Booking, guests []AttendeeInput, collectiveHosts []string) ([]*entity.Attendee, error) {
	attendees := make([]*entity.Attendee, 0, len(guests)+1+len(collectiveHosts))
	for _, g := range guests {
		attendees = append(attendees, &entity.Attendee{
			ID:             entity.NewID(),
			BookingID:      booking.ID,
			Email:          strings.ToLower(g.Email),
			Name:           g.Name,
			Phone:          g.Phone,
			ResponseStatus: entity.AttendeeResponsePending,
		})
	}

	for _, hostID := range append([]string{booking.HostID}, collectiveHosts...) {
		host, err := s.users.GetByID(ctx, hostID)
		if err != nil {
			return nil, err
		}
		hostUserID := host.ID
		attendees = append(attendees, &entity.Attendee{
			ID:             entity.NewID(),
			BookingID:      booking.ID,
			Email:          host.Email,
			Name:           host.Name,
			UserID:         &hostUserID,
			ResponseStatus: entity.AttendeeResponseAccepted,
			IsHost:         true,
		})
	}
	return attendees, nil
}

func (s *bookingService) ConfirmBooking(ctx context.Context, bookingID string) (*entity.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != entity.BookingStatusPending {
		return nil, entity.ErrNotPending
	}

	booking.Status = entity.BookingStatusConfirmed
	actorID, actorType := resolveActor(ctx)
	audit := &entity.BookingAuditLog{
		ID:        entity.NewID(),
		BookingID: booking.ID,
		Action:    entity.AuditActionConfirmed,
		ActorID:   actorID,
		ActorType: actorType,
	}
	if err := s.bookings.UpdateStatus(ctx, booking, audit); err != nil {
		return nil, err
	}

	logrus.WithField("booking_id", booking.ID).Info("booking confirmed")

	attendees, err := s.bookings.ListAttendees(ctx, booking.ID)
	if err != nil {
		logrus.Warnf("failed to load attendees for confirmation fan-out: %v", err)
	}
	s.notifier.BookingConfirmed(ctx, booking, attendees)
	return booking, nil
}

func (s *bookingService) CancelBooking(ctx context.Context, bookingID, reason string) (*entity.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	return s.cancel(ctx, booking, reason, entity.CancelledByHost)
}

// CancelByAttendee cancels through the public surface. The caller must
// present an email matching one of the booking's guest attendees;
// comparison is case-insensitive.
func (s *bookingService) CancelByAttendee(ctx context.Context, uid, email, reason string) (*entity.Booking, error) {
	booking, err := s.bookings.GetByUID(ctx, uid)
	if err != nil {
		return nil, err
	}

	attendees, err := s.bookings.ListAttendees(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	matched := false
	for _, a := range attendees {
		if !a.IsHost && strings.EqualFold(a.Email, email) {
			matched = true
			break
		}
	}
	if !matched {
		return nil, entity.ErrAttendeeMismatch
	}

	return s.cancel(ctx, booking, reason, entity.CancelledByAttendee)
}

func (s *bookingService) cancel(ctx context.Context, booking *entity.Booking, reason string, by entity.CancelledBy) (*entity.Booking, error) {
	if !booking.Status.IsActive() {
		return nil, entity.ErrAlreadyCancelled
	}

	now := s.clock.Now()
	booking.Status = entity.BookingStatusCancelled
	booking.CancelledAt = &now
	booking.CancelReason = reason
	booking.CancelledBy = by

	actorID, actorType := resolveActor(ctx)
	audit := &entity.BookingAuditLog{
		ID:        entity.NewID(),
		BookingID: booking.ID,
		Action:    entity.AuditActionCancelled,
		ActorID:   actorID,
		ActorType: actorType,
		Details:   reason,
	}
	if err := s.bookings.UpdateStatus(ctx, booking, audit); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"booking_id":   booking.ID,
		"cancelled_by": by,
	}).Info("booking cancelled")

	attendees, err := s.bookings.ListAttendees(ctx, booking.ID)
	if err != nil {
		logrus.Warnf("failed to load attendees for cancellation fan-out: %v", err)
	}
	s.notifier.BookingCancelled(ctx, booking, attendees, reason)
	return booking, nil
}

// RescheduleBooking moves a booking by creating a replacement first and
// cancelling the original afterward. The forward-writing order means a
// failed create leaves the original untouched; a failed cancel after a
// successful create leaves both active briefly and is logged for an
// operator to reconcile.
func (s *bookingService) RescheduleBooking(ctx context.Context, bookingID string, req *RescheduleRequest) (*entity.Booking, error) {
	old, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !old.Status.IsActive() {
		return nil, entity.ErrAlreadyCancelled
	}

	duration := old.EndTime.Sub(old.StartTime)
	start := req.StartTime
	end := start.Add(duration)

	attendees, err := s.bookings.ListAttendees(ctx, old.ID)
	if err != nil {
		return nil, err
	}
	resourceIDs, err := s.bookings.ListResourceIDs(ctx, old.ID)
	if err != nil {
		return nil, err
	}

	status := old.Status
	if old.EventTypeID != nil {
		et, err := s.eventTypes.GetByID(ctx, *old.EventTypeID)
		if err == nil {
			status = entity.BookingStatusConfirmed
			if et.RequiresConfirmation {
				status = entity.BookingStatusPending
			}
		}
	}

	token, err := s.locks.Acquire(ctx, old.HostID, start, end)
	if err != nil {
		if errors.Is(err, slotlock.ErrSlotLocked) {
			return nil, entity.ErrSlotBeingBooked
		}
		return nil, err
	}
	defer s.locks.Release(ctx, old.HostID, start, end, token)

	replacement := &entity.Booking{
		ID:              entity.NewID(),
		UID:             entity.NewBookingUID(),
		OrganizationID:  old.OrganizationID,
		EventTypeID:     old.EventTypeID,
		HostID:          old.HostID,
		StartTime:       start,
		EndTime:         end,
		Timezone:        old.Timezone,
		Title:           old.Title,
		Description:     old.Description,
		MeetingURL:      old.MeetingURL,
		Status:          status,
		Source:          old.Source,
		RescheduledFrom: &old.ID,
		CreatedBy:       old.CreatedBy,
	}

	newAttendees := make([]*entity.Attendee, 0, len(attendees))
	for _, a := range attendees {
		copied := *a
		copied.ID = entity.NewID()
		copied.BookingID = replacement.ID
		newAttendees = append(newAttendees, &copied)
	}

	actorID, actorType := resolveActor(ctx)
	params := &repository.BookingCreateParams{
		Booking:     replacement,
		Attendees:   newAttendees,
		ResourceIDs: resourceIDs,
		Audit: &entity.BookingAuditLog{
			ID:        entity.NewID(),
			BookingID: replacement.ID,
			Action:    entity.AuditActionCreated,
			ActorID:   actorID,
			ActorType: actorType,
			Details:   fmt.Sprintf("rescheduled from %s", old.UID),
		},
	}
	if err := s.bookings.Create(ctx, params); err != nil {
		return nil, err
	}

	s.locks.Release(ctx, old.HostID, start, end, token)

	now := s.clock.Now()
	old.Status = entity.BookingStatusCancelled
	old.CancelledAt = &now
	old.CancelReason = "rescheduled"
	old.CancelledBy = entity.CancelledBySystem
	if err := s.bookings.UpdateStatus(ctx, old, &entity.BookingAuditLog{
		ID:        entity.NewID(),
		BookingID: old.ID,
		Action:    entity.AuditActionCancelled,
		ActorID:   actorID,
		ActorType: actorType,
		Details:   fmt.Sprintf("rescheduled to %s", replacement.UID),
	}); err != nil {
		// Both bookings are live until an operator reconciles.
		logrus.WithFields(logrus.Fields{
			"booking_id": old.ID,
			"new_id":     replacement.ID,
		}).Errorf("replacement created but original not cancelled: %v", err)
		return replacement, nil
	}

	logrus.WithFields(logrus.Fields{
		"booking_id": old.ID,
		"new_id":     replacement.ID,
	}).Info("booking rescheduled")

	s.notifier.BookingRescheduled(ctx, old, replacement, newAttendees)
	return replacement, nil
}

func (s *bookingService) GetBooking(ctx context.Context, id string) (*BookingDetails, error) {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.details(ctx, booking)
}

func (s *bookingService) GetBookingByUID(ctx context.Context, uid string) (*BookingDetails, error) {
	booking, err := s.bookings.GetByUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	return s.details(ctx, booking)
}

func (s *bookingService) details(ctx context.Context, booking *entity.Booking) (*BookingDetails, error) {
	attendees, err := s.bookings.ListAttendees(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	resourceIDs, err := s.bookings.ListResourceIDs(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	logs, err := s.bookings.ListAuditLogs(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	return &BookingDetails{
		Booking:     booking,
		Attendees:   attendees,
		ResourceIDs: resourceIDs,
		AuditLogs:   logs,
	}, nil
}

// CompletePastBookings moves confirmed bookings whose end has passed to
// completed status.
func (s *bookingService) CompletePastBookings(ctx context.Context) (int64, error) {
	return s.bookings.CompletePast(ctx, s.clock.Now())
}

// CancelStalePending cancels pending bookings whose start time passed
// without confirmation.
func (s *bookingService) CancelStalePending(ctx context.Context) (int, error) {
	stale, err := s.bookings.ListStalePending(ctx, s.clock.Now())
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for _, booking := range stale {
		now := s.clock.Now()
		booking.Status = entity.BookingStatusCancelled
		booking.CancelledAt = &now
		booking.CancelReason = "not confirmed before start time"
		booking.CancelledBy = entity.CancelledBySystem

		audit := &entity.BookingAuditLog{
			ID:        entity.NewID(),
			BookingID: booking.ID,
			Action:    entity.AuditActionCancelled,
			ActorType: entity.ActorTypeSystem,
			Details:   booking.CancelReason,
		}
		if err := s.bookings.UpdateStatus(ctx, booking, audit); err != nil {
			logrus.Errorf("failed to cancel stale booking %s: %v", booking.ID, err)
			continue
		}

		attendees, err := s.bookings.ListAttendees(ctx, booking.ID)
		if err != nil {
			logrus.Warnf("failed to load attendees for stale cancellation %s: %v", booking.ID, err)
		}
		s.notifier.BookingCancelled(ctx, booking, attendees, booking.CancelReason)
		cancelled++
	}
	return cancelled, nil
}

// resolveActor derives the audit actor from the request context: an API
// key outranks a user for the actor type, the actor id is always the
// user when one is known, and an empty context means the system acted.
func resolveActor(ctx context.Context) (*string, entity.ActorType) {
	var actorID *string
	if id := reqctx.UserID(ctx); id != "" {
		actorID = &id
	}
	if reqctx.APIKeyID(ctx) != "" {
		return actorID, entity.ActorTypeAPIKey
	}
	if actorID != nil {
		return actorID, entity.ActorTypeUser
	}
	return nil, entity.ActorTypeSystem
}

func resolveSource(ctx context.Context) entity.BookingSource {
	if reqctx.APIKeyID(ctx) != "" {
		return entity.BookingSourceAPI
	}
	return entity.BookingSourceWeb
}

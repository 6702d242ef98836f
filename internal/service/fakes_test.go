package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/bookwell/bookwell/internal/database/postgres"
	"github.com/bookwell/bookwell/internal/entity"
	"github.com/bookwell/bookwell/pkg/interval"
	"github.com/bookwell/bookwell/pkg/queue"
	"github.com/bookwell/bookwell/pkg/slotlock"
)

type fakeBookingRepo struct {
	bookings  map[string]*entity.Booking
	attendees map[string][]*entity.Attendee
	resources map[string][]string
	audits    map[string][]*entity.BookingAuditLog
	created   []*repository.BookingCreateParams
	createErr error
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{
		bookings:  make(map[string]*entity.Booking),
		attendees: make(map[string][]*entity.Attendee),
		resources: make(map[string][]string),
		audits:    make(map[string][]*entity.BookingAuditLog),
	}
}

func (r *fakeBookingRepo) add(b *entity.Booking, attendees ...*entity.Attendee) {
	r.bookings[b.ID] = b
	r.attendees[b.ID] = attendees
}

func (r *fakeBookingRepo) Create(ctx context.Context, params *repository.BookingCreateParams) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.created = append(r.created, params)
	r.bookings[params.Booking.ID] = params.Booking
	r.attendees[params.Booking.ID] = params.Attendees
	r.resources[params.Booking.ID] = params.ResourceIDs
	r.audits[params.Booking.ID] = append(r.audits[params.Booking.ID], params.Audit)
	return nil
}

func (r *fakeBookingRepo) GetByID(ctx context.Context, id string) (*entity.Booking, error) {
	b, ok := r.bookings[id]
	if !ok {
		return nil, entity.ErrBookingNotFound
	}
	copied := *b
	return &copied, nil
}

func (r *fakeBookingRepo) GetByUID(ctx context.Context, uid string) (*entity.Booking, error) {
	for _, b := range r.bookings {
		if b.UID == uid {
			copied := *b
			return &copied, nil
		}
	}
	return nil, entity.ErrBookingNotFound
}

func (r *fakeBookingRepo) UpdateStatus(ctx context.Context, booking *entity.Booking, audit *entity.BookingAuditLog) error {
	if _, ok := r.bookings[booking.ID]; !ok {
		return entity.ErrBookingNotFound
	}
	copied := *booking
	r.bookings[booking.ID] = &copied
	r.audits[booking.ID] = append(r.audits[booking.ID], audit)
	return nil
}

func (r *fakeBookingRepo) ListActiveForHostInRange(ctx context.Context, hostID string, from, to time.Time) ([]*entity.Booking, error) {
	window := interval.Range{Start: from, End: to}
	var out []*entity.Booking
	for _, b := range r.bookings {
		if b.HostID != hostID || !b.Status.IsActive() {
			continue
		}
		if window.Overlaps(interval.Range{Start: b.StartTime, End: b.EndTime}) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) ListAttendees(ctx context.Context, bookingID string) ([]*entity.Attendee, error) {
	return r.attendees[bookingID], nil
}

func (r *fakeBookingRepo) ListAuditLogs(ctx context.Context, bookingID string) ([]*entity.BookingAuditLog, error) {
	return r.audits[bookingID], nil
}

func (r *fakeBookingRepo) ListResourceIDs(ctx context.Context, bookingID string) ([]string, error) {
	return r.resources[bookingID], nil
}

func (r *fakeBookingRepo) CompletePast(ctx context.Context, before time.Time) (int64, error) {
	var n int64
	for _, b := range r.bookings {
		if b.Status == entity.BookingStatusConfirmed && b.EndTime.Before(before) {
			b.Status = entity.BookingStatusCompleted
			n++
		}
	}
	return n, nil
}

func (r *fakeBookingRepo) ListStalePending(ctx context.Context, before time.Time) ([]*entity.Booking, error) {
	var out []*entity.Booking
	for _, b := range r.bookings {
		if b.Status == entity.BookingStatusPending && b.StartTime.Before(before) {
			copied := *b
			out = append(out, &copied)
		}
	}
	return out, nil
}

type fakeEventTypeRepo struct {
	eventTypes map[string]*entity.EventType
	hosts      map[string][]*entity.EventTypeHost
}

func newFakeEventTypeRepo() *fakeEventTypeRepo {
	return &fakeEventTypeRepo{
		eventTypes: make(map[string]*entity.EventType),
		hosts:      make(map[string][]*entity.EventTypeHost),
	}
}

func (r *fakeEventTypeRepo) GetByID(ctx context.Context, id string) (*entity.EventType, error) {
	et, ok := r.eventTypes[id]
	if !ok || et.DeletedAt != nil {
		return nil, entity.ErrEventTypeNotFound
	}
	return et, nil
}

func (r *fakeEventTypeRepo) GetBySlug(ctx context.Context, organizationID, slug string) (*entity.EventType, error) {
	for _, et := range r.eventTypes {
		if et.OrganizationID == organizationID && et.Slug == slug && et.DeletedAt == nil {
			return et, nil
		}
	}
	return nil, entity.ErrEventTypeNotFound
}

func (r *fakeEventTypeRepo) ListActiveHosts(ctx context.Context, eventTypeID string) ([]*entity.EventTypeHost, error) {
	var out []*entity.EventTypeHost
	for _, h := range r.hosts[eventTypeID] {
		if h.IsActive {
			out = append(out, h)
		}
	}
	return out, nil
}

type fakeUserRepo struct {
	users map[string]*entity.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*entity.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *entity.User) error {
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, entity.ErrUserNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, entity.ErrUserNotFound
}

type fakeOrganizationRepo struct {
	orgs map[string]*entity.Organization
}

func newFakeOrganizationRepo() *fakeOrganizationRepo {
	return &fakeOrganizationRepo{orgs: make(map[string]*entity.Organization)}
}

func (r *fakeOrganizationRepo) Create(ctx context.Context, org *entity.Organization) error {
	r.orgs[org.ID] = org
	return nil
}

func (r *fakeOrganizationRepo) GetByID(ctx context.Context, id string) (*entity.Organization, error) {
	o, ok := r.orgs[id]
	if !ok {
		return nil, entity.ErrOrganizationNotFound
	}
	return o, nil
}

func (r *fakeOrganizationRepo) GetBySlug(ctx context.Context, slug string) (*entity.Organization, error) {
	for _, o := range r.orgs {
		if o.Slug == slug {
			return o, nil
		}
	}
	return nil, entity.ErrOrganizationNotFound
}

type fakeScheduleRepo struct {
	schedules map[string]*entity.UserSchedule
	windows   map[string][]*entity.ScheduleWindow
}

func newFakeScheduleRepo() *fakeScheduleRepo {
	return &fakeScheduleRepo{
		schedules: make(map[string]*entity.UserSchedule),
		windows:   make(map[string][]*entity.ScheduleWindow),
	}
}

func (r *fakeScheduleRepo) Create(ctx context.Context, schedule *entity.UserSchedule) error {
	r.schedules[schedule.ID] = schedule
	return nil
}

func (r *fakeScheduleRepo) GetByID(ctx context.Context, id string) (*entity.UserSchedule, error) {
	s, ok := r.schedules[id]
	if !ok {
		return nil, entity.ErrScheduleNotFound
	}
	return s, nil
}

func (r *fakeScheduleRepo) GetForUser(ctx context.Context, userID string) (*entity.UserSchedule, error) {
	var any *entity.UserSchedule
	for _, s := range r.schedules {
		if s.UserID != userID {
			continue
		}
		if s.IsDefault {
			return s, nil
		}
		any = s
	}
	if any == nil {
		return nil, entity.ErrScheduleNotFound
	}
	return any, nil
}

func (r *fakeScheduleRepo) ListWindows(ctx context.Context, scheduleID string) ([]*entity.ScheduleWindow, error) {
	return r.windows[scheduleID], nil
}

func (r *fakeScheduleRepo) AddWindow(ctx context.Context, window *entity.ScheduleWindow) error {
	r.windows[window.ScheduleID] = append(r.windows[window.ScheduleID], window)
	return nil
}

func (r *fakeScheduleRepo) DeleteWindow(ctx context.Context, scheduleID, windowID string) error {
	ws := r.windows[scheduleID]
	for i, w := range ws {
		if w.ID == windowID {
			r.windows[scheduleID] = append(ws[:i], ws[i+1:]...)
			return nil
		}
	}
	return nil
}

type fakeBusyBlockRepo struct {
	blocks []*entity.BusyBlock
}

func (r *fakeBusyBlockRepo) Create(ctx context.Context, block *entity.BusyBlock) error {
	r.blocks = append(r.blocks, block)
	return nil
}

func (r *fakeBusyBlockRepo) ListForUserInRange(ctx context.Context, userID string, from, to time.Time) ([]*entity.BusyBlock, error) {
	window := interval.Range{Start: from, End: to}
	var out []*entity.BusyBlock
	for _, b := range r.blocks {
		if b.UserID == userID && window.Overlaps(interval.Range{Start: b.StartTime, End: b.EndTime}) {
			out = append(out, b)
		}
	}
	return out, nil
}

type fakeResourceRepo struct{}

func (fakeResourceRepo) Create(ctx context.Context, resource *entity.Resource) error { return nil }
func (fakeResourceRepo) GetByID(ctx context.Context, id string) (*entity.Resource, error) {
	return nil, entity.ErrResourceNotFound
}

// fakeStore bundles the fakes into a repository.Store for the services.
type fakeStore struct {
	bookings   *fakeBookingRepo
	eventTypes *fakeEventTypeRepo
	users      *fakeUserRepo
	orgs       *fakeOrganizationRepo
	schedules  *fakeScheduleRepo
	busyBlocks *fakeBusyBlockRepo
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		bookings:   newFakeBookingRepo(),
		eventTypes: newFakeEventTypeRepo(),
		users:      newFakeUserRepo(),
		orgs:       newFakeOrganizationRepo(),
		schedules:  newFakeScheduleRepo(),
		busyBlocks: &fakeBusyBlockRepo{},
	}
}

func (f *fakeStore) store() *repository.Store {
	return &repository.Store{
		Bookings:      f.bookings,
		Schedules:     f.schedules,
		EventTypes:    f.eventTypes,
		Users:         f.users,
		Organizations: f.orgs,
		BusyBlocks:    f.busyBlocks,
		Resources:     fakeResourceRepo{},
	}
}

// fakeLocker mirrors the compare-and-delete store: releasing a spent
// token is a no-op, so released counts effective releases only. When
// events is set, effective releases are appended to it.
type fakeLocker struct {
	held     bool
	acquired int
	released int
	live     map[string]bool
	events   *[]string
}

func (l *fakeLocker) Acquire(ctx context.Context, hostID string, start, end time.Time) (string, error) {
	if l.held {
		return "", slotlock.ErrSlotLocked
	}
	l.acquired++
	token := fmt.Sprintf("token-%d", l.acquired)
	if l.live == nil {
		l.live = make(map[string]bool)
	}
	l.live[token] = true
	return token, nil
}

func (l *fakeLocker) Release(ctx context.Context, hostID string, start, end time.Time, token string) {
	if !l.live[token] {
		return
	}
	delete(l.live, token)
	l.released++
	if l.events != nil {
		*l.events = append(*l.events, "release")
	}
}

type addedJob struct {
	name    string
	payload interface{}
	opts    *queue.Options
}

type fakeJobSink struct {
	added   []addedJob
	removed []string
	events  *[]string
}

func (s *fakeJobSink) Add(ctx context.Context, name string, payload interface{}, opts *queue.Options) error {
	s.added = append(s.added, addedJob{name: name, payload: payload, opts: opts})
	if s.events != nil {
		*s.events = append(*s.events, "enqueue:"+name)
	}
	return nil
}

func (s *fakeJobSink) Remove(ctx context.Context, jobID string) error {
	s.removed = append(s.removed, jobID)
	return nil
}

type fakeWebhookSink struct {
	published []interface{}
}

func (s *fakeWebhookSink) Publish(ctx context.Context, message interface{}) error {
	s.published = append(s.published, message)
	return nil
}

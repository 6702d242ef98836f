package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	repository "github.com/bookwell/bookwell/internal/database/postgres"
	"github.com/bookwell/bookwell/internal/entity"
	"github.com/bookwell/bookwell/pkg/clock"
	"github.com/bookwell/bookwell/pkg/interval"
)

// slotGrid is the step between candidate slot starts within a free range.
const slotGrid = 15 * time.Minute

// maxAvailabilityWindow bounds one availability query.
const maxAvailabilityWindow = 62 * 24 * time.Hour

type availabilityService struct {
	eventTypes    repository.EventTypeRepository
	users         repository.UserRepository
	organizations repository.OrganizationRepository
	schedules     repository.ScheduleRepository
	bookings      repository.BookingRepository
	busyBlocks    repository.BusyBlockRepository
	clock         clock.Clock
}

func NewAvailabilityService(store *repository.Store, clk clock.Clock) AvailabilityService {
	return &availabilityService{
		eventTypes:    store.EventTypes,
		users:         store.Users,
		organizations: store.Organizations,
		schedules:     store.Schedules,
		bookings:      store.Bookings,
		busyBlocks:    store.BusyBlocks,
		clock:         clk,
	}
}

// GetSlots computes the bookable slots for an event type over [from, to).
// Per host, schedule windows are materialized in the query timezone, busy
// time is subtracted, booking constraints are applied, and the remaining
// ranges are sliced into duration-sized slots on a 15 minute grid. Hosts
// are then combined according to the event type's assignment.
func (s *availabilityService) GetSlots(ctx context.Context, req *AvailabilityRequest) ([]*entity.Slot, error) {
	bounds := interval.Range{Start: req.From, End: req.To}
	if !bounds.IsPositive() {
		return nil, entity.ErrInvalidTimeRange
	}
	if bounds.End.Sub(bounds.Start) > maxAvailabilityWindow {
		bounds.End = bounds.Start.Add(maxAvailabilityWindow)
	}

	if req.EventTypeID == "" {
		return s.slotsForHosts(ctx, req, bounds)
	}

	et, err := s.eventTypes.GetByID(ctx, req.EventTypeID)
	if err != nil {
		return nil, err
	}
	if !et.IsActive {
		return nil, entity.ErrEventTypeNotFound
	}

	loc, err := s.resolveLocation(ctx, req.Timezone, et.OrganizationID)
	if err != nil {
		return nil, err
	}

	hostIDs, err := s.resolveHosts(ctx, et)
	if err != nil {
		return nil, err
	}
	if len(hostIDs) == 0 {
		logrus.Warnf("event type %s has no active hosts", et.ID)
		return []*entity.Slot{}, nil
	}

	duration := time.Duration(et.DurationMinutes) * time.Minute
	if duration <= 0 {
		return nil, entity.ErrInvalidDuration
	}

	freeByHost := make(map[string][]interval.Range, len(hostIDs))
	for _, hostID := range hostIDs {
		free, err := s.hostFreeRanges(ctx, hostID, et, bounds, loc)
		if err != nil {
			return nil, fmt.Errorf("failed to compute availability for host %s: %w", hostID, err)
		}
		freeByHost[hostID] = free
	}

	switch et.AssignmentType {
	case entity.AssignmentCollective:
		return collectiveSlots(hostIDs, freeByHost, duration), nil
	case entity.AssignmentRoundRobin:
		return roundRobinSlots(hostIDs, freeByHost, duration), nil
	default:
		hostID := hostIDs[0]
		return hostSlots(hostID, freeByHost[hostID], duration), nil
	}
}

// slotsForHosts serves queries addressed to explicit hosts rather than an
// event type. Constraints come solely from each host's schedule, and the
// result is the union of the hosts' slots.
func (s *availabilityService) slotsForHosts(ctx context.Context, req *AvailabilityRequest, bounds interval.Range) ([]*entity.Slot, error) {
	if len(req.UserIDs) == 0 {
		return []*entity.Slot{}, nil
	}

	duration := time.Duration(req.DurationMinutes) * time.Minute
	if duration <= 0 {
		return nil, entity.ErrInvalidDuration
	}
	loc, err := clock.LoadLocation(req.Timezone)
	if err != nil {
		return nil, entity.ErrInvalidTimezone
	}

	freeByHost := make(map[string][]interval.Range, len(req.UserIDs))
	for _, hostID := range req.UserIDs {
		free, err := s.hostFreeRanges(ctx, hostID, nil, bounds, loc)
		if err != nil {
			return nil, fmt.Errorf("failed to compute availability for host %s: %w", hostID, err)
		}
		freeByHost[hostID] = free
	}
	return roundRobinSlots(req.UserIDs, freeByHost, duration), nil
}

func (s *availabilityService) resolveLocation(ctx context.Context, tz, orgID string) (*time.Location, error) {
	if tz == "" {
		org, err := s.organizations.GetByID(ctx, orgID)
		if err != nil {
			return nil, err
		}
		tz = org.DefaultTimezone
	}
	loc, err := clock.LoadLocation(tz)
	if err != nil {
		return nil, entity.ErrInvalidTimezone
	}
	return loc, nil
}

// resolveHosts returns the hosts serving an event type. Single assignment
// uses the owner when set; otherwise the active host list in fairness order.
func (s *availabilityService) resolveHosts(ctx context.Context, et *entity.EventType) ([]string, error) {
	if et.AssignmentType == entity.AssignmentSingle && et.OwnerID != nil {
		return []string{*et.OwnerID}, nil
	}

	hosts, err := s.eventTypes.ListActiveHosts(ctx, et.ID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(hosts))
	for _, h := range hosts {
		ids = append(ids, h.UserID)
	}
	if et.AssignmentType == entity.AssignmentSingle && len(ids) > 1 {
		ids = ids[:1]
	}
	return ids, nil
}

// hostFreeRanges computes one host's free time within bounds: schedule
// windows minus busy time, left-trimmed by minimum notice, shrunk by the
// buffers, with days at the booking cap removed.
func (s *availabilityService) hostFreeRanges(ctx context.Context, hostID string, et *entity.EventType, bounds interval.Range, loc *time.Location) ([]interval.Range, error) {
	sched, err := s.schedules.GetForUser(ctx, hostID)
	if errors.Is(err, entity.ErrScheduleNotFound) {
		// No schedule means never available.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	windows, err := s.schedules.ListWindows(ctx, sched.ID)
	if err != nil {
		return nil, err
	}

	avail := materializeWindows(windows, bounds, loc)
	if len(avail) == 0 {
		return nil, nil
	}

	// Event type constraints, when there is one, override schedule defaults.
	var etBufBefore, etBufAfter, etNotice, etCap *int
	if et != nil {
		etBufBefore, etBufAfter = et.BufferBefore, et.BufferAfter
		etNotice, etCap = et.MinimumNoticeHours, et.MaxBookingsPerDay
	}
	bufBefore := time.Duration(override(sched.BufferBefore, etBufBefore)) * time.Minute
	bufAfter := time.Duration(override(sched.BufferAfter, etBufAfter)) * time.Minute
	notice := time.Duration(override(sched.MinimumNoticeHours, etNotice)) * time.Hour
	dailyCap := sched.MaxBookingsPerDay
	if etCap != nil {
		dailyCap = etCap
	}

	// The daily cap counts every active booking on a local day, so load
	// bookings across the whole days the bounds touch, not the bounds
	// alone.
	s0 := bounds.Start.In(loc)
	e0 := bounds.End.In(loc)
	dayStart := time.Date(s0.Year(), s0.Month(), s0.Day(), 0, 0, 0, 0, loc)
	dayEnd := time.Date(e0.Year(), e0.Month(), e0.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
	bookings, err := s.bookings.ListActiveForHostInRange(ctx, hostID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	blocks, err := s.busyBlocks.ListForUserInRange(ctx, hostID, bounds.Start, bounds.End)
	if err != nil {
		return nil, err
	}

	busy := make([]interval.Range, 0, len(bookings)+len(blocks))
	for _, b := range bookings {
		busy = append(busy, interval.Range{Start: b.StartTime, End: b.EndTime})
	}
	for _, bl := range blocks {
		busy = append(busy, interval.Range{Start: bl.StartTime, End: bl.EndTime})
	}

	free := interval.Subtract(avail, busy)

	earliest := s.clock.Now().Add(notice)
	free = trimBefore(free, earliest)
	free = shrinkBy(free, bufBefore, bufAfter)

	if dailyCap != nil && *dailyCap > 0 {
		free = dropCappedDays(free, bookings, *dailyCap, loc)
	}
	return free, nil
}

// shrinkBy pulls each range in from both ends; ranges that collapse drop.
func shrinkBy(rs []interval.Range, before, after time.Duration) []interval.Range {
	if before == 0 && after == 0 {
		return rs
	}
	var out []interval.Range
	for _, r := range rs {
		r.Start = r.Start.Add(before)
		r.End = r.End.Add(-after)
		if r.IsPositive() {
			out = append(out, r)
		}
	}
	return out
}

// materializeWindows turns weekly and date-specific windows into concrete
// ranges for every local day touched by bounds. A date-specific window set
// replaces the weekly windows for that date, so a single unavailable
// override blacks out the whole day.
func materializeWindows(windows []*entity.ScheduleWindow, bounds interval.Range, loc *time.Location) []interval.Range {
	const dateKey = "2006-01-02"

	overrides := make(map[string][]*entity.ScheduleWindow)
	weekly := make(map[int][]*entity.ScheduleWindow)
	for _, w := range windows {
		if w.SpecificDate != nil {
			k := w.SpecificDate.Format(dateKey)
			overrides[k] = append(overrides[k], w)
		} else {
			weekly[w.DayOfWeek] = append(weekly[w.DayOfWeek], w)
		}
	}

	var out []interval.Range
	start := bounds.Start.In(loc)
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
	for day.Before(bounds.End) {
		ws, overridden := overrides[day.Format(dateKey)]
		if !overridden {
			ws = weekly[int(day.Weekday())]
		}
		for _, w := range ws {
			if !w.IsAvailable {
				continue
			}
			r, ok := materializeWindow(w, day, loc)
			if !ok {
				continue
			}
			r = r.Clip(bounds)
			if r.IsPositive() {
				out = append(out, r)
			}
		}
		day = day.AddDate(0, 0, 1)
	}
	return interval.Merge(out)
}

// materializeWindow resolves a window's HH:MM boundaries on a concrete day.
// time.Date normalizes local times that do not exist on that day, which is
// what makes spring-forward days come out right.
func materializeWindow(w *entity.ScheduleWindow, day time.Time, loc *time.Location) (interval.Range, bool) {
	sh, sm, err := parseHHMM(w.StartTime)
	if err != nil {
		return interval.Range{}, false
	}
	eh, em, err := parseHHMM(w.EndTime)
	if err != nil {
		return interval.Range{}, false
	}

	r := interval.Range{
		Start: time.Date(day.Year(), day.Month(), day.Day(), sh, sm, 0, 0, loc),
		End:   time.Date(day.Year(), day.Month(), day.Day(), eh, em, 0, 0, loc),
	}
	return r, r.IsPositive()
}

func parseHHMM(s string) (int, int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}

// override returns the event type's value when set, else the schedule's.
func override(scheduleValue int, eventTypeValue *int) int {
	if eventTypeValue != nil {
		return *eventTypeValue
	}
	return scheduleValue
}

// trimBefore clips away everything earlier than t.
func trimBefore(rs []interval.Range, t time.Time) []interval.Range {
	var out []interval.Range
	for _, r := range rs {
		if !r.End.After(t) {
			continue
		}
		if r.Start.Before(t) {
			r.Start = t
		}
		out = append(out, r)
	}
	return out
}

// dropCappedDays removes free ranges on local days that already carry the
// maximum number of active bookings. Ranges spanning midnight are split at
// the day boundary first so each piece is judged against its own day.
func dropCappedDays(free []interval.Range, bookings []*entity.Booking, maxPerDay int, loc *time.Location) []interval.Range {
	const dateKey = "2006-01-02"

	counts := make(map[string]int)
	for _, b := range bookings {
		counts[b.StartTime.In(loc).Format(dateKey)]++
	}

	var out []interval.Range
	for _, r := range free {
		for _, piece := range splitAtMidnight(r, loc) {
			if counts[piece.Start.In(loc).Format(dateKey)] < maxPerDay {
				out = append(out, piece)
			}
		}
	}
	return out
}

func splitAtMidnight(r interval.Range, loc *time.Location) []interval.Range {
	var out []interval.Range
	for r.IsPositive() {
		s := r.Start.In(loc)
		next := time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
		if next.Before(r.End) {
			out = append(out, interval.Range{Start: r.Start, End: next})
			r.Start = next
			continue
		}
		out = append(out, r)
		break
	}
	return out
}

// sliceSlots lays duration-sized slots on the grid, anchored at each free
// range's start. A slot must fit entirely inside the range.
func sliceSlots(free []interval.Range, duration time.Duration) []interval.Range {
	var out []interval.Range
	for _, r := range free {
		for start := r.Start; !start.Add(duration).After(r.End); start = start.Add(slotGrid) {
			out = append(out, interval.Range{Start: start, End: start.Add(duration)})
		}
	}
	return out
}

func hostSlots(hostID string, free []interval.Range, duration time.Duration) []*entity.Slot {
	ranges := sliceSlots(free, duration)
	slots := make([]*entity.Slot, 0, len(ranges))
	for _, r := range ranges {
		slots = append(slots, &entity.Slot{Start: r.Start, End: r.End, HostIDs: []string{hostID}})
	}
	return slots
}

// collectiveSlots offers only the start instants present in every host's
// sliced slot set; each slot carries the full host list.
func collectiveSlots(hostIDs []string, freeByHost map[string][]interval.Range, duration time.Duration) []*entity.Slot {
	// Keyed by instant, not time.Time: monotonic readings make equal wall
	// times compare unequal as map keys.
	others := make([]map[int64]bool, 0, len(hostIDs)-1)
	for _, hostID := range hostIDs[1:] {
		set := make(map[int64]bool)
		for _, r := range sliceSlots(freeByHost[hostID], duration) {
			set[r.Start.UnixNano()] = true
		}
		others = append(others, set)
	}

	var slots []*entity.Slot
	for _, r := range sliceSlots(freeByHost[hostIDs[0]], duration) {
		shared := true
		for _, set := range others {
			if !set[r.Start.UnixNano()] {
				shared = false
				break
			}
		}
		if shared {
			slots = append(slots, &entity.Slot{Start: r.Start, End: r.End, HostIDs: hostIDs})
		}
	}
	return slots
}

// roundRobinSlots walks the union of slot starts in ascending order and
// assigns each to the next host in the fairness rotation able to serve
// it. hostIDs arrives in fairness order; instants no host can serve are
// skipped.
func roundRobinSlots(hostIDs []string, freeByHost map[string][]interval.Range, duration time.Duration) []*entity.Slot {
	canServe := make([]map[int64]bool, len(hostIDs))
	union := make(map[int64]time.Time)
	for i, hostID := range hostIDs {
		canServe[i] = make(map[int64]bool)
		for _, r := range sliceSlots(freeByHost[hostID], duration) {
			canServe[i][r.Start.UnixNano()] = true
			union[r.Start.UnixNano()] = r.Start
		}
	}

	starts := make([]time.Time, 0, len(union))
	for _, t := range union {
		starts = append(starts, t)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	var slots []*entity.Slot
	cursor := 0
	for _, start := range starts {
		for i := 0; i < len(hostIDs); i++ {
			idx := (cursor + i) % len(hostIDs)
			if !canServe[idx][start.UnixNano()] {
				continue
			}
			slots = append(slots, &entity.Slot{
				Start:   start,
				End:     start.Add(duration),
				HostIDs: []string{hostIDs[idx]},
			})
			cursor = (idx + 1) % len(hostIDs)
			break
		}
	}
	return slots
}

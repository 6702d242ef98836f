package service

import (
	"context"
	"time"

	repository "github.com/bookwell/bookwell/internal/database/postgres"
	"github.com/bookwell/bookwell/internal/entity"
)

type scheduleService struct {
	schedules repository.ScheduleRepository
	users     repository.UserRepository
}

func NewScheduleService(store *repository.Store) ScheduleService {
	return &scheduleService{schedules: store.Schedules, users: store.Users}
}

func (s *scheduleService) CreateSchedule(ctx context.Context, req *CreateScheduleRequest) (*entity.UserSchedule, error) {
	if _, err := s.users.GetByID(ctx, req.UserID); err != nil {
		return nil, err
	}

	schedule := &entity.UserSchedule{
		ID:                 entity.NewID(),
		UserID:             req.UserID,
		Name:               req.Name,
		IsDefault:          req.IsDefault,
		BufferBefore:       req.BufferBefore,
		BufferAfter:        req.BufferAfter,
		MinimumNoticeHours: req.MinimumNoticeHours,
		MaxBookingsPerDay:  req.MaxBookingsPerDay,
		MaxBookingsPerWeek: req.MaxBookingsPerWeek,
	}
	if err := s.schedules.Create(ctx, schedule); err != nil {
		return nil, err
	}
	return schedule, nil
}

func (s *scheduleService) GetSchedule(ctx context.Context, id string) (*ScheduleDetails, error) {
	schedule, err := s.schedules.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	windows, err := s.schedules.ListWindows(ctx, schedule.ID)
	if err != nil {
		return nil, err
	}
	return &ScheduleDetails{Schedule: schedule, Windows: windows}, nil
}

func (s *scheduleService) AddWindow(ctx context.Context, scheduleID string, req *AddWindowRequest) (*entity.ScheduleWindow, error) {
	if _, err := s.schedules.GetByID(ctx, scheduleID); err != nil {
		return nil, err
	}

	start, err := time.Parse("15:04", req.StartTime)
	if err != nil {
		return nil, entity.ErrInvalidWindow
	}
	end, err := time.Parse("15:04", req.EndTime)
	if err != nil {
		return nil, entity.ErrInvalidWindow
	}
	if !end.After(start) {
		return nil, entity.ErrInvalidWindow
	}

	window := &entity.ScheduleWindow{
		ID:           entity.NewID(),
		ScheduleID:   scheduleID,
		DayOfWeek:    req.DayOfWeek,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		SpecificDate: req.SpecificDate,
		IsAvailable:  true,
	}
	if req.IsAvailable != nil {
		window.IsAvailable = *req.IsAvailable
	}
	if window.SpecificDate != nil {
		window.DayOfWeek = int(window.SpecificDate.Weekday())
	}

	if err := s.schedules.AddWindow(ctx, window); err != nil {
		return nil, err
	}
	return window, nil
}

func (s *scheduleService) DeleteWindow(ctx context.Context, scheduleID, windowID string) error {
	return s.schedules.DeleteWindow(ctx, scheduleID, windowID)
}

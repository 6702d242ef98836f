package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookwell/bookwell/internal/entity"
)

func TestCreateSchedule(t *testing.T) {
	fs := availabilityFixture(t)
	svc := NewScheduleService(fs.store())

	maxPerDay := 4
	schedule, err := svc.CreateSchedule(context.Background(), &CreateScheduleRequest{
		UserID:             testHostID,
		Name:               "Office hours",
		IsDefault:          true,
		BufferBefore:       10,
		MinimumNoticeHours: 2,
		MaxBookingsPerDay:  &maxPerDay,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, schedule.ID)
	assert.Equal(t, 10, schedule.BufferBefore)

	_, err = svc.CreateSchedule(context.Background(), &CreateScheduleRequest{
		UserID: "nobody", Name: "x",
	})
	assert.ErrorIs(t, err, entity.ErrUserNotFound)
}

func TestAddWindow_Validation(t *testing.T) {
	fs := availabilityFixture(t)
	svc := NewScheduleService(fs.store())

	tests := []struct {
		name  string
		start string
		end   string
	}{
		{"end before start", "17:00", "09:00"},
		{"zero length", "09:00", "09:00"},
		{"garbage start", "nine", "17:00"},
		{"garbage end", "09:00", "25:99"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddWindow(context.Background(), "sched-1", &AddWindowRequest{
				DayOfWeek: 1, StartTime: tt.start, EndTime: tt.end,
			})
			assert.ErrorIs(t, err, entity.ErrInvalidWindow)
		})
	}
}

func TestAddWindow_SpecificDateSetsWeekday(t *testing.T) {
	fs := availabilityFixture(t)
	svc := NewScheduleService(fs.store())

	date := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC) // a Monday
	unavailable := false
	window, err := svc.AddWindow(context.Background(), "sched-1", &AddWindowRequest{
		DayOfWeek:    4,
		StartTime:    "09:00",
		EndTime:      "17:00",
		SpecificDate: &date,
		IsAvailable:  &unavailable,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, window.DayOfWeek)
	assert.False(t, window.IsAvailable)

	details, err := svc.GetSchedule(context.Background(), "sched-1")
	require.NoError(t, err)
	assert.Len(t, details.Windows, 6)
}

func TestDeleteWindow(t *testing.T) {
	fs := availabilityFixture(t)
	svc := NewScheduleService(fs.store())

	windowID := fs.schedules.windows["sched-1"][0].ID
	require.NoError(t, svc.DeleteWindow(context.Background(), "sched-1", windowID))

	details, err := svc.GetSchedule(context.Background(), "sched-1")
	require.NoError(t, err)
	assert.Len(t, details.Windows, 4)
}

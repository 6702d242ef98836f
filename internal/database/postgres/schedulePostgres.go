package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bookwell/bookwell/internal/entity"
)

type scheduleRepository struct {
	db *sql.DB
}

func NewScheduleRepository(db *sql.DB) ScheduleRepository {
	return &scheduleRepository{db: db}
}

const scheduleColumns = `
	id, user_id, name, is_default, buffer_before, buffer_after,
	minimum_notice_hours, max_bookings_per_day, max_bookings_per_week,
	created_at, updated_at`

// Create inserts a schedule; when it is marked default, any previous
// default of the same user is cleared in the same transaction so at most
// one default exists per user.
func (r *scheduleRepository) Create(ctx context.Context, schedule *entity.UserSchedule) error {
	return withTx(ctx, r.db, nil, func(tx *sql.Tx) error {
		if schedule.IsDefault {
			_, err := tx.ExecContext(ctx, `
				UPDATE user_schedules SET is_default = FALSE, updated_at = $2
				WHERE user_id = $1 AND is_default = TRUE`,
				schedule.UserID, time.Now(),
			)
			if err != nil {
				return fmt.Errorf("failed to clear previous default schedule: %w", err)
			}
		}

		now := time.Now()
		schedule.CreatedAt = now
		schedule.UpdatedAt = now

		_, err := tx.ExecContext(ctx, `
			INSERT INTO user_schedules (
				id, user_id, name, is_default, buffer_before, buffer_after,
				minimum_notice_hours, max_bookings_per_day, max_bookings_per_week,
				created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			schedule.ID, schedule.UserID, schedule.Name, schedule.IsDefault,
			schedule.BufferBefore, schedule.BufferAfter, schedule.MinimumNoticeHours,
			schedule.MaxBookingsPerDay, schedule.MaxBookingsPerWeek,
			schedule.CreatedAt, schedule.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert schedule: %w", err)
		}
		return nil
	})
}

func (r *scheduleRepository) GetByID(ctx context.Context, id string) (*entity.UserSchedule, error) {
	row := r.db.QueryRowContext(ctx, `SELECT`+scheduleColumns+` FROM user_schedules WHERE id = $1`, id)
	return scanSchedule(row)
}

func (r *scheduleRepository) GetForUser(ctx context.Context, userID string) (*entity.UserSchedule, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT`+scheduleColumns+`
		FROM user_schedules
		WHERE user_id = $1
		ORDER BY is_default DESC, created_at ASC
		LIMIT 1`,
		userID,
	)
	return scanSchedule(row)
}

func scanSchedule(row *sql.Row) (*entity.UserSchedule, error) {
	var s entity.UserSchedule
	err := row.Scan(
		&s.ID, &s.UserID, &s.Name, &s.IsDefault, &s.BufferBefore,
		&s.BufferAfter, &s.MinimumNoticeHours, &s.MaxBookingsPerDay,
		&s.MaxBookingsPerWeek, &s.CreatedAt, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, entity.ErrScheduleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	return &s, nil
}

func (r *scheduleRepository) ListWindows(ctx context.Context, scheduleID string) ([]*entity.ScheduleWindow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, schedule_id, day_of_week, start_time, end_time, specific_date, is_available
		FROM schedule_windows
		WHERE schedule_id = $1
		ORDER BY day_of_week, start_time`,
		scheduleID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule windows: %w", err)
	}
	defer rows.Close()

	var windows []*entity.ScheduleWindow
	for rows.Next() {
		var w entity.ScheduleWindow
		if err := rows.Scan(&w.ID, &w.ScheduleID, &w.DayOfWeek, &w.StartTime, &w.EndTime, &w.SpecificDate, &w.IsAvailable); err != nil {
			return nil, fmt.Errorf("failed to scan schedule window: %w", err)
		}
		windows = append(windows, &w)
	}
	return windows, rows.Err()
}

func (r *scheduleRepository) AddWindow(ctx context.Context, window *entity.ScheduleWindow) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO schedule_windows (id, schedule_id, day_of_week, start_time, end_time, specific_date, is_available)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		window.ID, window.ScheduleID, window.DayOfWeek, window.StartTime,
		window.EndTime, window.SpecificDate, window.IsAvailable,
	)
	if err != nil {
		return fmt.Errorf("failed to insert schedule window: %w", err)
	}
	return nil
}

func (r *scheduleRepository) DeleteWindow(ctx context.Context, scheduleID, windowID string) error {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM schedule_windows WHERE id = $1 AND schedule_id = $2`,
		windowID, scheduleID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete schedule window: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return entity.ErrScheduleNotFound
	}
	return nil
}

package postgres

import (
	"database/sql"
	"fmt"

	"github.com/bookwell/bookwell/config"
	"github.com/sirupsen/logrus"

	_ "github.com/lib/pq"
)

func NewPostgresDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.Info("Successfully connected to PostgreSQL")
	return db, nil
}

func RunMigrations(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS organizations (
			id UUID PRIMARY KEY,
			slug VARCHAR(100) UNIQUE NOT NULL,
			name VARCHAR(255) NOT NULL,
			default_timezone VARCHAR(64) NOT NULL DEFAULT 'UTC',
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			email VARCHAR(255) UNIQUE NOT NULL,
			name VARCHAR(255) NOT NULL,
			timezone VARCHAR(64) NOT NULL DEFAULT 'UTC',
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS user_schedules (
			id UUID PRIMARY KEY,
			user_id UUID REFERENCES users(id) NOT NULL,
			name VARCHAR(255) NOT NULL,
			is_default BOOLEAN NOT NULL DEFAULT FALSE,
			buffer_before INTEGER NOT NULL DEFAULT 0,
			buffer_after INTEGER NOT NULL DEFAULT 0,
			minimum_notice_hours INTEGER NOT NULL DEFAULT 0,
			max_bookings_per_day INTEGER,
			max_bookings_per_week INTEGER,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS schedule_windows (
			id UUID PRIMARY KEY,
			schedule_id UUID REFERENCES user_schedules(id) ON DELETE CASCADE NOT NULL,
			day_of_week INTEGER NOT NULL CHECK (day_of_week BETWEEN 0 AND 6),
			start_time VARCHAR(5) NOT NULL,
			end_time VARCHAR(5) NOT NULL,
			specific_date DATE,
			is_available BOOLEAN NOT NULL DEFAULT TRUE
		)`,

		`CREATE TABLE IF NOT EXISTS event_types (
			id UUID PRIMARY KEY,
			organization_id UUID REFERENCES organizations(id) NOT NULL,
			owner_id UUID REFERENCES users(id),
			slug VARCHAR(100) NOT NULL,
			title VARCHAR(255) NOT NULL,
			duration_minutes INTEGER NOT NULL CHECK (duration_minutes BETWEEN 5 AND 480),
			assignment_type VARCHAR(20) NOT NULL DEFAULT 'single',
			location_type VARCHAR(20) NOT NULL DEFAULT 'meet',
			requires_confirmation BOOLEAN NOT NULL DEFAULT FALSE,
			buffer_before INTEGER,
			buffer_after INTEGER,
			minimum_notice_hours INTEGER,
			max_bookings_per_day INTEGER,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			is_public BOOLEAN NOT NULL DEFAULT TRUE,
			deleted_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (organization_id, slug)
		)`,

		`CREATE TABLE IF NOT EXISTS event_type_hosts (
			event_type_id UUID REFERENCES event_types(id) ON DELETE CASCADE NOT NULL,
			user_id UUID REFERENCES users(id) NOT NULL,
			priority INTEGER NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			booking_count INTEGER NOT NULL DEFAULT 0,
			last_booked_at TIMESTAMPTZ,
			PRIMARY KEY (event_type_id, user_id)
		)`,

		`CREATE TABLE IF NOT EXISTS bookings (
			id UUID PRIMARY KEY,
			uid VARCHAR(12) UNIQUE NOT NULL,
			organization_id UUID REFERENCES organizations(id) NOT NULL,
			event_type_id UUID REFERENCES event_types(id),
			host_id UUID REFERENCES users(id) NOT NULL,
			start_time TIMESTAMPTZ NOT NULL,
			end_time TIMESTAMPTZ NOT NULL CHECK (end_time > start_time),
			timezone VARCHAR(64) NOT NULL,
			title VARCHAR(255) NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			meeting_url TEXT NOT NULL DEFAULT '',
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			source VARCHAR(20) NOT NULL DEFAULT 'web',
			rescheduled_from UUID,
			cancelled_at TIMESTAMPTZ,
			cancel_reason TEXT NOT NULL DEFAULT '',
			cancelled_by VARCHAR(20) NOT NULL DEFAULT '',
			created_by UUID,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS attendees (
			id UUID PRIMARY KEY,
			booking_id UUID REFERENCES bookings(id) ON DELETE CASCADE NOT NULL,
			email VARCHAR(255) NOT NULL,
			name VARCHAR(255) NOT NULL,
			phone VARCHAR(50) NOT NULL DEFAULT '',
			user_id UUID,
			response_status VARCHAR(20) NOT NULL DEFAULT 'pending',
			is_host BOOLEAN NOT NULL DEFAULT FALSE
		)`,

		`CREATE TABLE IF NOT EXISTS resources (
			id UUID PRIMARY KEY,
			organization_id UUID REFERENCES organizations(id) NOT NULL,
			name VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS booking_resources (
			booking_id UUID REFERENCES bookings(id) ON DELETE CASCADE NOT NULL,
			resource_id UUID REFERENCES resources(id) NOT NULL,
			PRIMARY KEY (booking_id, resource_id)
		)`,

		`CREATE TABLE IF NOT EXISTS busy_blocks (
			id UUID PRIMARY KEY,
			user_id UUID REFERENCES users(id) NOT NULL,
			start_time TIMESTAMPTZ NOT NULL,
			end_time TIMESTAMPTZ NOT NULL CHECK (end_time > start_time),
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS booking_audit_logs (
			id UUID PRIMARY KEY,
			booking_id UUID REFERENCES bookings(id) NOT NULL,
			action VARCHAR(20) NOT NULL,
			actor_id UUID,
			actor_type VARCHAR(20) NOT NULL,
			details TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_bookings_host_time ON bookings(host_id, start_time, end_time)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_org ON bookings(organization_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_uid ON bookings(uid)`,
		`CREATE INDEX IF NOT EXISTS idx_attendees_booking ON attendees(booking_id)`,
		`CREATE INDEX IF NOT EXISTS idx_schedule_windows_schedule ON schedule_windows(schedule_id)`,
		`CREATE INDEX IF NOT EXISTS idx_busy_blocks_user_time ON busy_blocks(user_id, start_time, end_time)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_logs_booking ON booking_audit_logs(booking_id)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}

	logrus.Info("Database migrations completed successfully")
	return nil
}

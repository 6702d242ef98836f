package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bookwell/bookwell/internal/entity"
)

type eventTypeRepository struct {
	tenantScope
	db *sql.DB
}

func NewEventTypeRepository(db *sql.DB) EventTypeRepository {
	return &eventTypeRepository{db: db}
}

const eventTypeColumns = `
	id, organization_id, owner_id, slug, title, duration_minutes,
	assignment_type, location_type, requires_confirmation, buffer_before,
	buffer_after, minimum_notice_hours, max_bookings_per_day, is_active,
	is_public, deleted_at, created_at, updated_at`

// GetByID loads an event type. Soft-deleted types are invisible.
func (r *eventTypeRepository) GetByID(ctx context.Context, id string) (*entity.EventType, error) {
	query := `SELECT` + eventTypeColumns + ` FROM event_types WHERE id = $1 AND deleted_at IS NULL`
	args := []interface{}{id}

	clause, scopeArgs := r.readClause(ctx, 2)
	query += clause
	args = append(args, scopeArgs...)

	return scanEventType(r.db.QueryRowContext(ctx, query, args...))
}

func (r *eventTypeRepository) GetBySlug(ctx context.Context, organizationID, slug string) (*entity.EventType, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT`+eventTypeColumns+`
		FROM event_types
		WHERE organization_id = $1 AND slug = $2 AND deleted_at IS NULL`,
		organizationID, slug,
	)
	return scanEventType(row)
}

// ListActiveHosts returns host rows in fairness order. last_booked_at is
// NULLS FIRST so never-booked hosts go before recently-booked ones.
func (r *eventTypeRepository) ListActiveHosts(ctx context.Context, eventTypeID string) ([]*entity.EventTypeHost, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT event_type_id, user_id, priority, is_active, booking_count, last_booked_at
		FROM event_type_hosts
		WHERE event_type_id = $1 AND is_active = TRUE
		ORDER BY booking_count ASC, last_booked_at ASC NULLS FIRST, priority DESC`,
		eventTypeID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query event type hosts: %w", err)
	}
	defer rows.Close()

	var hosts []*entity.EventTypeHost
	for rows.Next() {
		var h entity.EventTypeHost
		if err := rows.Scan(&h.EventTypeID, &h.UserID, &h.Priority, &h.IsActive, &h.BookingCount, &h.LastBookedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event type host: %w", err)
		}
		hosts = append(hosts, &h)
	}
	return hosts, rows.Err()
}

func scanEventType(row *sql.Row) (*entity.EventType, error) {
	var et entity.EventType
	err := row.Scan(
		&et.ID, &et.OrganizationID, &et.OwnerID, &et.Slug, &et.Title,
		&et.DurationMinutes, &et.AssignmentType, &et.LocationType,
		&et.RequiresConfirmation, &et.BufferBefore, &et.BufferAfter,
		&et.MinimumNoticeHours, &et.MaxBookingsPerDay, &et.IsActive,
		&et.IsPublic, &et.DeletedAt, &et.CreatedAt, &et.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, entity.ErrEventTypeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event type: %w", err)
	}
	return &et, nil
}

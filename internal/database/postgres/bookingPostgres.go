package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bookwell/bookwell/internal/entity"
)

type bookingRepository struct {
	tenantScope
	db *sql.DB
}

func NewBookingRepository(db *sql.DB) BookingRepository {
	return &bookingRepository{db: db}
}

const bookingColumns = `
	id, uid, organization_id, event_type_id, host_id, start_time, end_time,
	timezone, title, description, meeting_url, status, source,
	rescheduled_from, cancelled_at, cancel_reason, cancelled_by, created_by,
	created_at, updated_at`

// Create inserts the booking aggregate under serializable isolation. A
// per-host advisory lock serializes concurrent creates for the same host,
// so the overlap re-check cannot race a phantom insert.
func (r *bookingRepository) Create(ctx context.Context, params *BookingCreateParams) error {
	b := params.Booking
	b.OrganizationID = r.writeOrgID(ctx, b.OrganizationID)

	return withTx(ctx, r.db, &sql.TxOptions{Isolation: sql.LevelSerializable}, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, b.HostID); err != nil {
			return fmt.Errorf("failed to take host advisory lock: %w", err)
		}

		// Overlap re-check for the host: [s, e) vs [s', e') collide when
		// s < e' AND e > s'.
		var hostConflicts int
		err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM bookings
			WHERE host_id = $1
			  AND status IN ('pending', 'confirmed')
			  AND start_time < $3 AND end_time > $2`,
			b.HostID, b.StartTime, b.EndTime,
		).Scan(&hostConflicts)
		if err != nil {
			return fmt.Errorf("failed to check host conflicts: %w", err)
		}
		if hostConflicts > 0 {
			return entity.ErrSlotConflict
		}

		for _, resourceID := range params.ResourceIDs {
			var resourceConflicts int
			err := tx.QueryRowContext(ctx, `
				SELECT COUNT(*) FROM booking_resources br
				JOIN bookings bk ON bk.id = br.booking_id
				WHERE br.resource_id = $1
				  AND bk.status IN ('pending', 'confirmed')
				  AND bk.start_time < $3 AND bk.end_time > $2`,
				resourceID, b.StartTime, b.EndTime,
			).Scan(&resourceConflicts)
			if err != nil {
				return fmt.Errorf("failed to check resource conflicts: %w", err)
			}
			if resourceConflicts > 0 {
				return entity.ErrResourceConflict
			}
		}

		now := time.Now()
		b.CreatedAt = now
		b.UpdatedAt = now

		_, err = tx.ExecContext(ctx, `
			INSERT INTO bookings (
				id, uid, organization_id, event_type_id, host_id, start_time,
				end_time, timezone, title, description, meeting_url, status,
				source, rescheduled_from, created_by, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
			b.ID, b.UID, b.OrganizationID, b.EventTypeID, b.HostID, b.StartTime,
			b.EndTime, b.Timezone, b.Title, b.Description, b.MeetingURL, b.Status,
			b.Source, b.RescheduledFrom, b.CreatedBy, b.CreatedAt, b.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert booking: %w", err)
		}

		for _, a := range params.Attendees {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO attendees (id, booking_id, email, name, phone, user_id, response_status, is_host)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
				a.ID, b.ID, a.Email, a.Name, a.Phone, a.UserID, a.ResponseStatus, a.IsHost,
			)
			if err != nil {
				return fmt.Errorf("failed to insert attendee: %w", err)
			}
		}

		for _, resourceID := range params.ResourceIDs {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO booking_resources (booking_id, resource_id) VALUES ($1, $2)`,
				b.ID, resourceID,
			)
			if err != nil {
				return fmt.Errorf("failed to link resource: %w", err)
			}
		}

		if params.BumpRoundRobin && b.EventTypeID != nil {
			_, err = tx.ExecContext(ctx, `
				UPDATE event_type_hosts
				SET booking_count = booking_count + 1, last_booked_at = $3
				WHERE event_type_id = $1 AND user_id = $2`,
				*b.EventTypeID, b.HostID, now,
			)
			if err != nil {
				return fmt.Errorf("failed to update round-robin counters: %w", err)
			}
		}

		if params.Audit != nil {
			if err := insertAuditLog(ctx, tx, params.Audit); err != nil {
				return err
			}
		}

		return nil
	})
}

func (r *bookingRepository) GetByID(ctx context.Context, id string) (*entity.Booking, error) {
	query := `SELECT` + bookingColumns + ` FROM bookings WHERE id = $1`
	args := []interface{}{id}

	clause, scopeArgs := r.readClause(ctx, 2)
	query += clause
	args = append(args, scopeArgs...)

	return r.scanOne(r.db.QueryRowContext(ctx, query, args...))
}

func (r *bookingRepository) GetByUID(ctx context.Context, uid string) (*entity.Booking, error) {
	query := `SELECT` + bookingColumns + ` FROM bookings WHERE uid = $1`
	args := []interface{}{uid}

	clause, scopeArgs := r.readClause(ctx, 2)
	query += clause
	args = append(args, scopeArgs...)

	return r.scanOne(r.db.QueryRowContext(ctx, query, args...))
}

// UpdateStatus writes the status transition and its audit entry atomically.
func (r *bookingRepository) UpdateStatus(ctx context.Context, booking *entity.Booking, audit *entity.BookingAuditLog) error {
	return withTx(ctx, r.db, nil, func(tx *sql.Tx) error {
		query := `
			UPDATE bookings
			SET status = $2, cancelled_at = $3, cancel_reason = $4,
			    cancelled_by = $5, updated_at = $6
			WHERE id = $1`
		args := []interface{}{
			booking.ID, booking.Status, booking.CancelledAt,
			booking.CancelReason, booking.CancelledBy, time.Now(),
		}

		clause, scopeArgs := r.readClause(ctx, 7)
		query += clause
		args = append(args, scopeArgs...)

		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to update booking status: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return entity.ErrBookingNotFound
		}

		if audit != nil {
			if err := insertAuditLog(ctx, tx, audit); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *bookingRepository) ListActiveForHostInRange(ctx context.Context, hostID string, from, to time.Time) ([]*entity.Booking, error) {
	query := `
		SELECT` + bookingColumns + `
		FROM bookings
		WHERE host_id = $1
		  AND status IN ('pending', 'confirmed')
		  AND start_time < $3 AND end_time > $2
		ORDER BY start_time ASC`

	rows, err := r.db.QueryContext(ctx, query, hostID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query active bookings: %w", err)
	}
	defer rows.Close()

	return r.scanList(rows)
}

func (r *bookingRepository) ListAttendees(ctx context.Context, bookingID string) ([]*entity.Attendee, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, booking_id, email, name, phone, user_id, response_status, is_host
		FROM attendees WHERE booking_id = $1 ORDER BY is_host DESC, id`,
		bookingID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendees: %w", err)
	}
	defer rows.Close()

	var attendees []*entity.Attendee
	for rows.Next() {
		var a entity.Attendee
		if err := rows.Scan(&a.ID, &a.BookingID, &a.Email, &a.Name, &a.Phone, &a.UserID, &a.ResponseStatus, &a.IsHost); err != nil {
			return nil, fmt.Errorf("failed to scan attendee: %w", err)
		}
		attendees = append(attendees, &a)
	}
	return attendees, rows.Err()
}

func (r *bookingRepository) ListAuditLogs(ctx context.Context, bookingID string) ([]*entity.BookingAuditLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, booking_id, action, actor_id, actor_type, details, created_at
		FROM booking_audit_logs WHERE booking_id = $1 ORDER BY created_at ASC`,
		bookingID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	var logs []*entity.BookingAuditLog
	for rows.Next() {
		var l entity.BookingAuditLog
		if err := rows.Scan(&l.ID, &l.BookingID, &l.Action, &l.ActorID, &l.ActorType, &l.Details, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}

func (r *bookingRepository) ListResourceIDs(ctx context.Context, bookingID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT resource_id FROM booking_resources WHERE booking_id = $1`,
		bookingID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query booking resources: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan resource id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *bookingRepository) CompletePast(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE bookings SET status = 'completed', updated_at = $2
		WHERE status = 'confirmed' AND end_time < $1`,
		before, time.Now(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to complete past bookings: %w", err)
	}
	return result.RowsAffected()
}

func (r *bookingRepository) ListStalePending(ctx context.Context, before time.Time) ([]*entity.Booking, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT`+bookingColumns+`
		FROM bookings
		WHERE status = 'pending' AND start_time < $1
		ORDER BY start_time ASC`,
		before,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale pending bookings: %w", err)
	}
	defer rows.Close()

	return r.scanList(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (*entity.Booking, error) {
	var b entity.Booking
	var cancelledBy sql.NullString
	err := row.Scan(
		&b.ID, &b.UID, &b.OrganizationID, &b.EventTypeID, &b.HostID,
		&b.StartTime, &b.EndTime, &b.Timezone, &b.Title, &b.Description,
		&b.MeetingURL, &b.Status, &b.Source, &b.RescheduledFrom,
		&b.CancelledAt, &b.CancelReason, &cancelledBy, &b.CreatedBy,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.CancelledBy = entity.CancelledBy(cancelledBy.String)
	return &b, nil
}

func (r *bookingRepository) scanOne(row *sql.Row) (*entity.Booking, error) {
	b, err := scanBooking(row)
	if err == sql.ErrNoRows {
		return nil, entity.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, nil
}

func (r *bookingRepository) scanList(rows *sql.Rows) ([]*entity.Booking, error) {
	var bookings []*entity.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func insertAuditLog(ctx context.Context, tx *sql.Tx, audit *entity.BookingAuditLog) error {
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now()
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO booking_audit_logs (id, booking_id, action, actor_id, actor_type, details, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		audit.ID, audit.BookingID, audit.Action, audit.ActorID, audit.ActorType, audit.Details, audit.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bookwell/bookwell/internal/entity"
)

type busyBlockRepository struct {
	db *sql.DB
}

func NewBusyBlockRepository(db *sql.DB) BusyBlockRepository {
	return &busyBlockRepository{db: db}
}

func (r *busyBlockRepository) Create(ctx context.Context, block *entity.BusyBlock) error {
	block.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO busy_blocks (id, user_id, start_time, end_time, created_at)
		VALUES ($1,$2,$3,$4,$5)`,
		block.ID, block.UserID, block.StartTime, block.EndTime, block.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert busy block: %w", err)
	}
	return nil
}

func (r *busyBlockRepository) ListForUserInRange(ctx context.Context, userID string, from, to time.Time) ([]*entity.BusyBlock, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, start_time, end_time, created_at
		FROM busy_blocks
		WHERE user_id = $1 AND start_time < $3 AND end_time > $2
		ORDER BY start_time ASC`,
		userID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query busy blocks: %w", err)
	}
	defer rows.Close()

	var blocks []*entity.BusyBlock
	for rows.Next() {
		var b entity.BusyBlock
		if err := rows.Scan(&b.ID, &b.UserID, &b.StartTime, &b.EndTime, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan busy block: %w", err)
		}
		blocks = append(blocks, &b)
	}
	return blocks, rows.Err()
}

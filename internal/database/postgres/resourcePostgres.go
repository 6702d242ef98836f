package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bookwell/bookwell/internal/entity"
)

type resourceRepository struct {
	tenantScope
	db *sql.DB
}

func NewResourceRepository(db *sql.DB) ResourceRepository {
	return &resourceRepository{db: db}
}

func (r *resourceRepository) Create(ctx context.Context, resource *entity.Resource) error {
	resource.OrganizationID = r.writeOrgID(ctx, resource.OrganizationID)
	resource.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO resources (id, organization_id, name, created_at)
		VALUES ($1,$2,$3,$4)`,
		resource.ID, resource.OrganizationID, resource.Name, resource.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert resource: %w", err)
	}
	return nil
}

func (r *resourceRepository) GetByID(ctx context.Context, id string) (*entity.Resource, error) {
	query := `SELECT id, organization_id, name, created_at FROM resources WHERE id = $1`
	args := []interface{}{id}

	clause, scopeArgs := r.readClause(ctx, 2)
	query += clause
	args = append(args, scopeArgs...)

	var res entity.Resource
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&res.ID, &res.OrganizationID, &res.Name, &res.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, entity.ErrResourceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get resource: %w", err)
	}
	return &res, nil
}

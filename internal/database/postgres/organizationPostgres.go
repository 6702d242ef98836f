package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bookwell/bookwell/internal/entity"
)

type organizationRepository struct {
	db *sql.DB
}

func NewOrganizationRepository(db *sql.DB) OrganizationRepository {
	return &organizationRepository{db: db}
}

func (r *organizationRepository) Create(ctx context.Context, org *entity.Organization) error {
	org.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO organizations (id, slug, name, default_timezone, created_at)
		VALUES ($1,$2,$3,$4,$5)`,
		org.ID, org.Slug, org.Name, org.DefaultTimezone, org.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert organization: %w", err)
	}
	return nil
}

func (r *organizationRepository) GetByID(ctx context.Context, id string) (*entity.Organization, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, slug, name, default_timezone, created_at FROM organizations WHERE id = $1`, id)
	return scanOrganization(row)
}

func (r *organizationRepository) GetBySlug(ctx context.Context, slug string) (*entity.Organization, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, slug, name, default_timezone, created_at FROM organizations WHERE slug = $1`, slug)
	return scanOrganization(row)
}

func scanOrganization(row *sql.Row) (*entity.Organization, error) {
	var o entity.Organization
	err := row.Scan(&o.ID, &o.Slug, &o.Name, &o.DefaultTimezone, &o.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, entity.ErrOrganizationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return &o, nil
}

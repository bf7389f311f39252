package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core/tenant"
)

type tenantRepository struct {
	db *sqlx.DB
}

var _ tenant.Repository = (*tenantRepository)(nil) // interface compliance check

func NewTenantRepository(db *sqlx.DB) *tenantRepository {
	return &tenantRepository{db: db}
}

type tenantRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Slug      string    `db:"slug"`
	CreatedAt time.Time `db:"created_at"`
}

func (repo tenantRepository) unrow(r tenantRow) tenant.Tenant {
	return tenant.Tenant{ID: r.ID, Name: r.Name, Slug: r.Slug, CreatedAt: r.CreatedAt}
}

// trapNoRowsErr maps psql "no rows" err to tenant.ErrNotFound
func (repo tenantRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return tenant.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo tenantRepository) CreateTenant(ctx context.Context, t tenant.Tenant) (tenant.Tenant, error) {
	t.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO tenant (id, name, slug, created_at)
		VALUES ($1, $2, $3, $4)`, t.ID, t.Name, t.Slug, t.CreatedAt.UTC())
	if err != nil {
		return tenant.Tenant{}, errors.Wrap(err, "inserting tenant")
	}
	return t, nil
}

func (repo tenantRepository) GetTenantByID(ctx context.Context, id string) (tenant.Tenant, error) {
	var r tenantRow
	err := repo.db.GetContext(ctx, &r, `SELECT * FROM tenant WHERE id = $1`, id)
	if err != nil {
		return tenant.Tenant{}, repo.trapNoRowsErr(err, "getting tenant")
	}
	return repo.unrow(r), nil
}

func (repo tenantRepository) GetTenantBySlug(ctx context.Context, slug string) (tenant.Tenant, error) {
	var r tenantRow
	err := repo.db.GetContext(ctx, &r, `SELECT * FROM tenant WHERE slug = $1`, slug)
	if err != nil {
		return tenant.Tenant{}, repo.trapNoRowsErr(err, "getting tenant by slug")
	}
	return repo.unrow(r), nil
}

func (repo tenantRepository) QueryAllTenants(ctx context.Context) ([]tenant.Tenant, error) {
	var rows []tenantRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM tenant ORDER BY name`); err != nil {
		return nil, errors.Wrap(err, "querying tenants")
	}

	tenants := make([]tenant.Tenant, 0, len(rows))
	for _, r := range rows {
		tenants = append(tenants, repo.unrow(r))
	}
	return tenants, nil
}

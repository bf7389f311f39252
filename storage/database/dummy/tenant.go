package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/ratiba/core/tenant"
)

type tenantRepository struct {
	db *tenantTable
}

var _ tenant.Repository = (*tenantRepository)(nil) // interface compliance check

func NewTenantRepository(db *DB) tenant.Repository {
	return &tenantRepository{db: db.tenant}
}

func (repo *tenantRepository) query() []tenant.Tenant {
	tenants := make([]tenant.Tenant, 0, len(repo.db.table))
	for _, t := range repo.db.table {
		tenants = append(tenants, *t)
	}
	return tenants
}

func (repo *tenantRepository) CreateTenant(ctx context.Context, t tenant.Tenant) (tenant.Tenant, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	t.ID = uuid.New().String()
	repo.db.table[t.ID] = &t
	return t, nil
}

func (repo *tenantRepository) GetTenantByID(ctx context.Context, id string) (tenant.Tenant, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if t, ok := repo.db.table[id]; ok {
		return *t, nil
	}
	return tenant.Tenant{}, tenant.ErrNotFound
}

func (repo *tenantRepository) GetTenantBySlug(ctx context.Context, slug string) (tenant.Tenant, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, t := range repo.query() {
		if t.Slug == slug {
			return t, nil
		}
	}
	return tenant.Tenant{}, tenant.ErrNotFound
}

func (repo *tenantRepository) QueryAllTenants(ctx context.Context) ([]tenant.Tenant, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	tenants := repo.query()
	sort.Slice(tenants, func(i, j int) bool { return tenants[i].Name < tenants[j].Name })
	return tenants, nil
}

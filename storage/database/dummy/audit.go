package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/audit"
)

type auditRepository struct {
	db *auditTable
}

var _ audit.Repository = (*auditRepository)(nil) // interface compliance check

func NewAuditRepository(db *DB) audit.Repository {
	return &auditRepository{db: db.audit}
}

func (repo *auditRepository) CreateEntry(ctx context.Context, e audit.Entry) (audit.Entry, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	e.ID = uuid.New().String()
	repo.db.table[e.ID] = &e
	return e, nil
}

func (repo *auditRepository) QueryEntriesByTenant(ctx context.Context, tenantID string, orderings ...core.DBOrdering) ([]audit.Entry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var entries []audit.Entry
	for _, e := range repo.db.table {
		if e.TenantID == tenantID {
			entries = append(entries, *e)
		}
	}

	ascending := false
	for _, ord := range orderings {
		if ord.Field == "created_at" {
			ascending = ord.Ascending
			break
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if ascending {
			return entries[i].CreatedAt.Before(entries[j].CreatedAt)
		}
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}

package audit

import (
	"context"
	"time"

	"github.com/trezcool/ratiba/core"
)

type (
	Repository interface {
		CreateEntry(ctx context.Context, e Entry) (Entry, error)
		// QueryEntriesByTenant returns a tenant's entries, most recent first
		// unless orderings say otherwise.
		QueryEntriesByTenant(ctx context.Context, tenantID string, orderings ...core.DBOrdering) ([]Entry, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Record appends an entry to the tenant's audit trail. The correlation id is
// picked up from ctx when the caller did not set one.
func (svc *Service) Record(ctx context.Context, e Entry) error {
	if e.CorrelationID == "" {
		e.CorrelationID = core.CorrelationID(ctx)
	}
	e.CreatedAt = time.Now().UTC()
	_, err := svc.repo.CreateEntry(ctx, e)
	return err
}

func (svc *Service) QueryByTenant(ctx context.Context, tenantID string, orderings ...core.DBOrdering) ([]Entry, error) {
	return svc.repo.QueryEntriesByTenant(ctx, tenantID, orderings...)
}

package tenant

import (
	"context"
	"errors"
	"time"

	"github.com/trezcool/ratiba/core"
)

var (
	// errors
	ErrNotFound   = errors.New("tenant not found")
	ErrSlugExists = errors.New("a tenant with this slug already exists")
)

type (
	Repository interface {
		CreateTenant(ctx context.Context, t Tenant) (Tenant, error)
		GetTenantByID(ctx context.Context, id string) (Tenant, error)
		GetTenantBySlug(ctx context.Context, slug string) (Tenant, error)
		// QueryAllTenants returns all tenants ordered by name.
		QueryAllTenants(ctx context.Context) ([]Tenant, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nt NewTenant) (Tenant, error) {
	if _, err := svc.repo.GetTenantBySlug(ctx, nt.Slug); err == nil {
		return Tenant{}, core.NewValidationError(ErrSlugExists, core.FieldError{Field: "slug", Error: ErrSlugExists.Error()})
	} else if err != ErrNotFound {
		return Tenant{}, err
	}

	t := Tenant{
		Name:      nt.Name,
		Slug:      nt.Slug,
		CreatedAt: time.Now().UTC(),
	}
	return svc.repo.CreateTenant(ctx, t)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Tenant, error) {
	return svc.repo.GetTenantByID(ctx, id)
}

func (svc *Service) GetBySlug(ctx context.Context, slug string) (Tenant, error) {
	return svc.repo.GetTenantBySlug(ctx, core.CleanString(slug, true /* lower */))
}

func (svc *Service) QueryAll(ctx context.Context) ([]Tenant, error) {
	return svc.repo.QueryAllTenants(ctx)
}

package tenant

import (
	"time"

	"github.com/trezcool/ratiba/core"
)

// Tenant is an isolated school; the top-level multi-tenancy boundary.
// Every other entity carries the owning tenant's id and no query ever
// crosses tenant boundaries.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// NewTenant contains information needed to create a new Tenant.
type NewTenant struct {
	Name string `json:"name" validate:"required"`
	Slug string `json:"slug" validate:"required,alphanum_"`
}

func (nt *NewTenant) Validate() error {
	nt.Name = core.CleanString(nt.Name)
	nt.Slug = core.CleanString(nt.Slug, true /* lower */)
	return core.Validate.Struct(nt)
}

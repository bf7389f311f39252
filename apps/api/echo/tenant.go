package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core/tenant"
)

type tenantApi struct {
	svc *tenant.Service
}

func registerTenantAPI(g *echo.Group, deps ServerDeps) {
	api := tenantApi{svc: deps.TenantSvc}

	tg := g.Group("/tenants")
	tg.GET("", api.query)
	tg.GET("/:slug", api.retrieve)
}

func (api *tenantApi) query(ctx echo.Context) error {
	tenants, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying tenants")
	}
	if tenants == nil {
		tenants = []tenant.Tenant{}
	}
	return ctx.JSON(http.StatusOK, tenants)
}

func (api *tenantApi) retrieve(ctx echo.Context) error {
	t, err := api.svc.GetBySlug(ctx.Request().Context(), ctx.Param("slug"))
	if err != nil {
		return errors.Wrap(err, "finding tenant by slug")
	}
	return ctx.JSON(http.StatusOK, t)
}

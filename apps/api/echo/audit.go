package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core/audit"
	"github.com/trezcool/ratiba/core/user"
)

type auditApi struct {
	svc *audit.Service
}

func registerAuditAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := auditApi{svc: deps.AuditSvc}

	ag := g.Group("/audit", jwt, roleMiddleware(user.RoleAdmin))
	ag.GET("", api.query)
}

func (api *auditApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	ordering := new(Ordering)
	ordering.Bind(ctx)

	entries, err := api.svc.QueryByTenant(ctx.Request().Context(), claims.TenantID, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying audit entries")
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

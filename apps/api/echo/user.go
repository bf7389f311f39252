package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/audit"
	"github.com/trezcool/ratiba/core/tenant"
	"github.com/trezcool/ratiba/core/user"
)

type userApi struct {
	deps ServerDeps
}

func registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := userApi{deps: deps}

	ug := g.Group("/users")

	// un-authed endpoints
	ug.POST("/register", api.register)
	ug.POST("/login", api.login)

	// authed endpoints
	ag := ug.Group("", jwt)
	ag.POST("/token-refresh", api.refreshToken)
	ag.GET("/me", api.me)
	ag.GET("/instructors", api.queryInstructors)
	ag.POST("/instructors", api.createInstructor, roleMiddleware(user.RoleAdmin))
	ag.GET("/students", api.queryStudents, roleMiddleware(user.RoleAdmin))
	ag.POST("/students/:id/approve", api.approveStudent, roleMiddleware(user.RoleAdmin))
}

// Handlers

// register is the student self-service sign-up: the account starts out
// unapproved and cannot authenticate until an admin approves it.
func (api *userApi) register(ctx echo.Context) error {
	var data RegisterRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RegisterRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	t, err := api.deps.TenantSvc.GetBySlug(ctx.Request().Context(), data.Tenant)
	if err != nil {
		if errors.Cause(err) == tenant.ErrNotFound {
			return core.NewValidationError(nil, core.FieldError{Field: "tenant", Error: tenant.ErrNotFound.Error()})
		}
		return errors.Wrap(err, "finding tenant by slug")
	}

	nu := user.NewUser{
		TenantID: t.ID,
		Email:    data.Email,
		Password: data.Password,
		Role:     user.RoleStudent,
	}
	if err = nu.Validate(ctx.Request().Context(), api.deps.UserSvc); err != nil {
		return err
	}

	usr, err := api.deps.UserSvc.Register(ctx.Request().Context(), nu)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	usr, err := authenticate(ctx, data.Tenant, data.Email, data.Password, api.deps)
	if err != nil {
		return err
	}
	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	err = api.deps.AuditSvc.Record(ctx.Request().Context(), audit.Entry{
		TenantID:     usr.TenantID,
		UserID:       usr.ID,
		Action:       audit.ActionUserLogin,
		ResourceType: "user",
		ResourceID:   usr.ID,
	})
	if err != nil {
		return errors.Wrap(err, "recording login")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *userApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) queryInstructors(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	users, err := api.deps.UserSvc.QueryInstructors(ctx.Request().Context(), claims.TenantID)
	if err != nil {
		return errors.Wrap(err, "querying instructors")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userApi) createInstructor(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data user.NewUser
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	data.TenantID = claims.TenantID
	data.Role = user.RoleInstructor
	if err = data.Validate(ctx.Request().Context(), api.deps.UserSvc); err != nil {
		return err
	}

	usr, err := api.deps.UserSvc.CreateInstructor(ctx.Request().Context(), data, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "creating instructor")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *userApi) queryStudents(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	users, err := api.deps.UserSvc.QueryStudents(ctx.Request().Context(), claims.TenantID)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userApi) approveStudent(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	usr, err := api.deps.UserSvc.ApproveStudent(ctx.Request().Context(), claims.TenantID, ctx.Param("id"), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "approving student")
	}
	return ctx.JSON(http.StatusOK, usr)
}

type (
	RegisterRequest struct {
		Tenant   string `json:"tenant" validate:"required"`
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginRequest struct {
		Tenant   string `json:"tenant" validate:"required"`
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}
)

func (rr *RegisterRequest) Validate() error {
	rr.Tenant = core.CleanString(rr.Tenant, true /* lower */)
	rr.Email = core.CleanString(rr.Email, true /* lower */)
	return core.Validate.Struct(rr)
}

func (lr *LoginRequest) Validate() error {
	lr.Tenant = core.CleanString(lr.Tenant, true /* lower */)
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return core.Validate.Struct(lr)
}

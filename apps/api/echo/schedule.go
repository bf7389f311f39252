package echoapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/user"
)

type scheduleApi struct {
	deps ServerDeps
}

func registerScheduleAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := scheduleApi{deps: deps}

	// availability registry; writes are instructor-only, reads are open to
	// any authed user (students pick a slot from it)
	avg := g.Group("/availability", jwt)
	avg.POST("", api.createAvailability, roleMiddleware(user.RoleInstructor))
	avg.GET("", api.queryOwnAvailability, roleMiddleware(user.RoleInstructor))
	avg.DELETE("/:id", api.deleteAvailability, roleMiddleware(user.RoleInstructor))
	g.GET("/instructors/:id/availability", api.queryInstructorAvailability, jwt)

	// booking lifecycle
	bg := g.Group("/bookings", jwt)
	bg.POST("", api.createBooking, roleMiddleware(user.RoleStudent))
	bg.GET("", api.queryBookings)
	bg.GET("/conflict-check", api.conflictCheck, roleMiddleware(user.RoleAdmin))
	bg.GET("/:id", api.retrieveBooking)
	bg.POST("/:id/assign", api.assignBooking, roleMiddleware(user.RoleAdmin))
	bg.PUT("/:id/status", api.setBookingStatus)
}

// Availability handlers

func (api *scheduleApi) createAvailability(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data schedule.NewAvailability
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAvailability")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	slot, err := api.deps.ScheduleSvc.CreateAvailability(ctx.Request().Context(), claims.TenantID, claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "creating availability")
	}
	return ctx.JSON(http.StatusCreated, slot)
}

func (api *scheduleApi) queryOwnAvailability(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	return api.respondAvailability(ctx, claims.TenantID, claims.Subject)
}

func (api *scheduleApi) queryInstructorAvailability(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	// 404 unless the target actually is an instructor of this tenant
	usr, err := api.deps.UserSvc.GetByID(ctx.Request().Context(), claims.TenantID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding user by ID")
	}
	if !usr.IsInstructor() {
		return errHttpNotFound
	}
	return api.respondAvailability(ctx, claims.TenantID, usr.ID)
}

func (api *scheduleApi) respondAvailability(ctx echo.Context, tenantID, instructorID string) error {
	slots, err := api.deps.ScheduleSvc.QueryAvailability(ctx.Request().Context(), tenantID, instructorID)
	if err != nil {
		return errors.Wrap(err, "querying availability")
	}
	if slots == nil {
		slots = []schedule.Availability{}
	}
	return ctx.JSON(http.StatusOK, slots)
}

func (api *scheduleApi) deleteAvailability(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	err = api.deps.ScheduleSvc.DeleteAvailability(ctx.Request().Context(), claims.TenantID, claims.Subject, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "deleting availability")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Booking handlers

func (api *scheduleApi) createBooking(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data schedule.NewBooking
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBooking")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	// a preferred instructor is optional but must exist when given
	if data.InstructorID != "" {
		usr, err := api.deps.UserSvc.GetByID(ctx.Request().Context(), claims.TenantID, data.InstructorID)
		if err != nil || !usr.IsInstructor() {
			return core.NewValidationError(nil, core.FieldError{Field: "instructor_id", Error: "instructor not found"})
		}
	}

	b, err := api.deps.ScheduleSvc.CreateBooking(ctx.Request().Context(), claims.TenantID, claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "creating booking")
	}
	return ctx.JSON(http.StatusCreated, b)
}

func (api *scheduleApi) queryBookings(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var weekStart time.Time
	if week := ctx.QueryParam("week"); week != "" {
		weekStart, err = time.Parse("2006-01-02", week)
		if err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "week", Error: "must be a valid date (2006-01-02)"})
		}
	}

	bookings, err := api.deps.ScheduleSvc.QueryBookings(ctx.Request().Context(), claims.TenantID, claims.Subject, claims.Role, weekStart)
	if err != nil {
		return errors.Wrap(err, "querying bookings")
	}
	if bookings == nil {
		bookings = []schedule.Booking{}
	}
	return ctx.JSON(http.StatusOK, bookings)
}

func (api *scheduleApi) retrieveBooking(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	b, err := api.deps.ScheduleSvc.GetBooking(ctx.Request().Context(), claims.TenantID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding booking by ID")
	}

	// students and instructors only see their own bookings
	if claims.IsStudent() && b.StudentID != claims.Subject {
		return errHttpNotFound
	}
	if claims.IsInstructor() && b.InstructorID != claims.Subject {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *scheduleApi) assignBooking(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data AssignRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignRequest")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	usr, err := api.deps.UserSvc.GetByID(ctx.Request().Context(), claims.TenantID, data.InstructorID)
	if err != nil || !usr.IsInstructor() {
		return core.NewValidationError(nil, core.FieldError{Field: "instructor_id", Error: "instructor not found"})
	}

	b, err := api.deps.ScheduleSvc.ApproveAndAssign(ctx.Request().Context(), claims.TenantID, ctx.Param("id"), data.InstructorID, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "assigning booking")
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *scheduleApi) setBookingStatus(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data StatusUpdateRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StatusUpdateRequest")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	b, err := api.deps.ScheduleSvc.SetStatus(
		ctx.Request().Context(),
		claims.TenantID,
		ctx.Param("id"),
		schedule.BookingStatus(data.Status),
		claims.Subject,
		claims.Role,
	)
	if err != nil {
		return errors.Wrap(err, "updating booking status")
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *scheduleApi) conflictCheck(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data ConflictCheckRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ConflictCheckRequest")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	date, err := time.Parse("2006-01-02", data.Date)
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "date", Error: "must be a valid date (2006-01-02)"})
	}

	conflict, err := api.deps.ScheduleSvc.HasConflict(
		ctx.Request().Context(), claims.TenantID, data.InstructorID, date, data.Start, data.End, data.Exclude)
	if err != nil {
		return errors.Wrap(err, "checking conflict")
	}
	return ctx.JSON(http.StatusOK, ConflictCheckResponse{Conflict: conflict})
}

type (
	AssignRequest struct {
		InstructorID string `json:"instructor_id" validate:"required"`
	}

	StatusUpdateRequest struct {
		Status string `json:"status" validate:"required"`
	}

	ConflictCheckRequest struct {
		InstructorID string `query:"instructor_id" validate:"required"`
		Date         string `query:"date" validate:"required,dateymd"`
		Start        string `query:"start" validate:"required,timehhmm"`
		End          string `query:"end" validate:"required,timehhmm"`
		Exclude      string `query:"exclude"`
	}

	ConflictCheckResponse struct {
		Conflict bool `json:"conflict"`
	}
)

func (ar *AssignRequest) Validate() error {
	ar.InstructorID = core.CleanString(ar.InstructorID)
	return core.Validate.Struct(ar)
}

func (sr *StatusUpdateRequest) Validate() error {
	sr.Status = strings.ToUpper(core.CleanString(sr.Status))
	return core.Validate.Struct(sr)
}

func (cr *ConflictCheckRequest) Validate() error {
	cr.InstructorID = core.CleanString(cr.InstructorID)
	cr.Date = core.CleanString(cr.Date)
	cr.Start = core.CleanString(cr.Start)
	cr.End = core.CleanString(cr.End)
	cr.Exclude = core.CleanString(cr.Exclude)
	return core.Validate.Struct(cr)
}

package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/trezcool/ratiba/core/audit"
	"github.com/trezcool/ratiba/core/user"
)

var (
	// errors
	ErrBookingNotFound      = errors.New("booking not found")
	ErrAvailabilityNotFound = errors.New("availability slot not found")
	ErrNotRequested         = errors.New("booking is not in REQUESTED status")
	ErrInvalidTransition    = errors.New("invalid state transition")
	ErrBookingConflict      = errors.New("instructor has a conflicting booking at this time")
	ErrNotPermitted         = errors.New("cannot update this booking")
)

type (
	Repository interface {
		CreateAvailability(ctx context.Context, slot Availability) (Availability, error)
		// QueryAvailabilityByInstructor returns an instructor's windows ordered
		// by day of week, then start time.
		QueryAvailabilityByInstructor(ctx context.Context, tenantID, instructorID string) ([]Availability, error)
		GetAvailabilityByID(ctx context.Context, tenantID, instructorID, id string) (Availability, error)
		DeleteAvailability(ctx context.Context, tenantID, instructorID, id string) error

		CreateBooking(ctx context.Context, b Booking) (Booking, error)
		GetBookingByID(ctx context.Context, tenantID, id string) (Booking, error)
		// QueryBookings applies an AND operation on available QueryFilter
		// fields; results are ordered by date, then start time.
		QueryBookings(ctx context.Context, tenantID string, filter QueryFilter) ([]Booking, error)
		// FindConflictingBooking reports whether any committed booking for the
		// instructor on the given calendar date satisfies
		// stored_start < end AND stored_end > start, excluding excludeID if
		// non-empty.
		FindConflictingBooking(ctx context.Context, tenantID, instructorID string, date time.Time, start, end, excludeID string) (bool, error)
		// AssignInstructor re-runs the conflict check and binds the instructor
		// in a single atomic step: of two racing assignments for overlapping
		// slots, at most one succeeds and the other observes ErrBookingConflict.
		// Fails with ErrNotRequested if the booking left REQUESTED in between.
		AssignInstructor(ctx context.Context, b Booking, instructorID string) (Booking, error)
		// UpdateBookingStatus moves a booking from one status to another,
		// guarded on the current value: a booking that left `from` in between
		// reports ErrInvalidTransition.
		UpdateBookingStatus(ctx context.Context, tenantID, id string, from, to BookingStatus) (Booking, error)

		// QueryEscalatableBookings returns REQUESTED, unassigned, not yet
		// escalated bookings created before the cutoff, across all tenants.
		QueryEscalatableBookings(ctx context.Context, cutoff time.Time) ([]Booking, error)
		// MarkBookingEscalated stamps escalatedAt, guarded so it happens at
		// most once: fails with ErrBookingNotFound when the booking was
		// already escalated, assigned or moved out of REQUESTED.
		MarkBookingEscalated(ctx context.Context, tenantID, id string, at time.Time) error
	}

	Service struct {
		repo     Repository
		auditSvc *audit.Service
	}
)

func NewService(repo Repository, auditSvc *audit.Service) *Service {
	return &Service{repo: repo, auditSvc: auditSvc}
}

// Availability Registry

func (svc *Service) CreateAvailability(ctx context.Context, tenantID, instructorID string, na NewAvailability) (Availability, error) {
	slot := Availability{
		TenantID:     tenantID,
		InstructorID: instructorID,
		DayOfWeek:    *na.DayOfWeek,
		StartTime:    na.StartTime,
		EndTime:      na.EndTime,
		CreatedAt:    time.Now().UTC(),
	}
	slot, err := svc.repo.CreateAvailability(ctx, slot)
	if err != nil {
		return Availability{}, err
	}

	err = svc.auditSvc.Record(ctx, audit.Entry{
		TenantID:     tenantID,
		UserID:       instructorID,
		Action:       audit.ActionAvailabilityCreate,
		ResourceType: "instructor_availability",
		ResourceID:   slot.ID,
		AfterState: map[string]interface{}{
			"day_of_week": slot.DayOfWeek, "start_time": slot.StartTime, "end_time": slot.EndTime,
		},
	})
	return slot, err
}

func (svc *Service) QueryAvailability(ctx context.Context, tenantID, instructorID string) ([]Availability, error) {
	return svc.repo.QueryAvailabilityByInstructor(ctx, tenantID, instructorID)
}

// DeleteAvailability removes a window owned by the requesting instructor.
// A window of another instructor or tenant reports ErrAvailabilityNotFound.
func (svc *Service) DeleteAvailability(ctx context.Context, tenantID, instructorID, slotID string) error {
	slot, err := svc.repo.GetAvailabilityByID(ctx, tenantID, instructorID, slotID)
	if err != nil {
		return err
	}
	if err = svc.repo.DeleteAvailability(ctx, tenantID, instructorID, slotID); err != nil {
		return err
	}

	return svc.auditSvc.Record(ctx, audit.Entry{
		TenantID:     tenantID,
		UserID:       instructorID,
		Action:       audit.ActionAvailabilityDelete,
		ResourceType: "instructor_availability",
		ResourceID:   slot.ID,
		BeforeState: map[string]interface{}{
			"day_of_week": slot.DayOfWeek, "start_time": slot.StartTime, "end_time": slot.EndTime,
		},
	})
}

// Booking lifecycle

// CreateBooking inserts a provisional REQUESTED booking. No conflict check
// happens here: a request does not occupy the instructor's calendar until
// an admin assigns it.
func (svc *Service) CreateBooking(ctx context.Context, tenantID, studentID string, nb NewBooking) (Booking, error) {
	date, err := time.Parse("2006-01-02", nb.Date)
	if err != nil {
		return Booking{}, err
	}

	now := time.Now().UTC()
	b := Booking{
		TenantID:     tenantID,
		StudentID:    studentID,
		InstructorID: nb.InstructorID,
		Status:       BookingStatusRequested,
		Date:         date,
		StartTime:    nb.StartTime,
		EndTime:      nb.EndTime,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if b, err = svc.repo.CreateBooking(ctx, b); err != nil {
		return Booking{}, err
	}

	err = svc.auditSvc.Record(ctx, audit.Entry{
		TenantID:     tenantID,
		UserID:       studentID,
		Action:       audit.ActionBookingCreate,
		ResourceType: "booking",
		ResourceID:   b.ID,
		AfterState: map[string]interface{}{
			"status": string(b.Status), "date": nb.Date, "start_time": b.StartTime, "end_time": b.EndTime,
		},
	})
	return b, err
}

func (svc *Service) GetBooking(ctx context.Context, tenantID, id string) (Booking, error) {
	return svc.repo.GetBookingByID(ctx, tenantID, id)
}

// HasConflict reports whether assigning the instructor to [start, end) on
// the given date would double-book them against a committed booking.
// Half-open semantics: back-to-back bookings do not conflict.
func (svc *Service) HasConflict(ctx context.Context, tenantID, instructorID string, date time.Time, start, end, excludeBookingID string) (bool, error) {
	return svc.repo.FindConflictingBooking(ctx, tenantID, instructorID, date, start, end, excludeBookingID)
}

// ApproveAndAssign binds an instructor to a REQUESTED booking and moves it
// to ASSIGNED. The conflict check and the write are atomic per instructor
// and date: of two racing assignments for overlapping slots, at most one
// succeeds.
func (svc *Service) ApproveAndAssign(ctx context.Context, tenantID, bookingID, instructorID, actorID string) (Booking, error) {
	b, err := svc.repo.GetBookingByID(ctx, tenantID, bookingID)
	if err != nil {
		return Booking{}, err
	}
	if b.Status != BookingStatusRequested {
		return Booking{}, ErrNotRequested
	}

	conflict, err := svc.HasConflict(ctx, tenantID, instructorID, b.Date, b.StartTime, b.EndTime, b.ID)
	if err != nil {
		return Booking{}, err
	}
	if conflict {
		return Booking{}, ErrBookingConflict
	}

	before := map[string]interface{}{"status": string(b.Status), "instructor_id": b.InstructorID}
	updated, err := svc.repo.AssignInstructor(ctx, b, instructorID)
	if err != nil {
		return Booking{}, err
	}

	err = svc.auditSvc.Record(ctx, audit.Entry{
		TenantID:     tenantID,
		UserID:       actorID,
		Action:       audit.ActionBookingAssign,
		ResourceType: "booking",
		ResourceID:   b.ID,
		BeforeState:  before,
		AfterState:   map[string]interface{}{"status": string(BookingStatusAssigned), "instructor_id": instructorID},
	})
	return updated, err
}

// SetStatus transitions a booking, guarded by the CanTransition policy and
// the state machine. This path never re-checks scheduling conflicts: direct
// status edits are assumed to not change the time or instructor (see
// DESIGN.md).
func (svc *Service) SetStatus(ctx context.Context, tenantID, bookingID string, target BookingStatus, actorID, actorRole string) (Booking, error) {
	if !target.IsValid() || target == BookingStatusRequested {
		return Booking{}, ErrInvalidTransition
	}

	b, err := svc.repo.GetBookingByID(ctx, tenantID, bookingID)
	if err != nil {
		return Booking{}, err
	}
	if !CanTransition(actorRole, actorID, b, target) {
		return Booking{}, ErrNotPermitted
	}
	if !CanTransitionState(b.Status, target) {
		return Booking{}, ErrInvalidTransition
	}

	before := map[string]interface{}{"status": string(b.Status)}
	updated, err := svc.repo.UpdateBookingStatus(ctx, tenantID, b.ID, b.Status, target)
	if err != nil {
		return Booking{}, err
	}

	var action string
	switch target {
	case BookingStatusCompleted:
		action = audit.ActionBookingComplete
	case BookingStatusCancelled:
		action = audit.ActionBookingCancel
	case BookingStatusAssigned:
		action = audit.ActionBookingAssign
	default:
		action = audit.ActionBookingApprove
	}
	err = svc.auditSvc.Record(ctx, audit.Entry{
		TenantID:     tenantID,
		UserID:       actorID,
		Action:       action,
		ResourceType: "booking",
		ResourceID:   b.ID,
		BeforeState:  before,
		AfterState:   map[string]interface{}{"status": string(target)},
	})
	return updated, err
}

// QueryBookings lists a tenant's bookings. Admins see everything; students
// and instructors only their own. A non-zero weekStart narrows results to
// the 7-day window starting there.
func (svc *Service) QueryBookings(ctx context.Context, tenantID, actorID, actorRole string, weekStart time.Time) ([]Booking, error) {
	filter := QueryFilter{WeekStart: weekStart}
	switch actorRole {
	case user.RoleStudent:
		filter.StudentID = actorID
	case user.RoleInstructor:
		filter.InstructorID = actorID
	}
	return svc.repo.QueryBookings(ctx, tenantID, filter)
}

package schedule

import (
	"time"

	"github.com/trezcool/ratiba/core"
)

type BookingStatus string

const (
	// BookingStatusRequested is the initial state: no instructor is committed
	// yet and the booking does not occupy anyone's calendar.
	BookingStatusRequested BookingStatus = "REQUESTED"
	// BookingStatusApproved is a lighter-weight confirmation without re-assignment.
	BookingStatusApproved BookingStatus = "APPROVED"
	// BookingStatusAssigned means an instructor has been bound and conflict-checked.
	BookingStatusAssigned  BookingStatus = "ASSIGNED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

// CommittedStatuses occupy the instructor's calendar and count for conflict
// purposes. REQUESTED bookings are provisional and exempt.
var CommittedStatuses = []BookingStatus{BookingStatusApproved, BookingStatusAssigned, BookingStatusCompleted}

func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingStatusRequested, BookingStatusApproved, BookingStatusAssigned, BookingStatusCompleted, BookingStatusCancelled:
		return true
	}
	return false
}

// Booking is a student's request for an instructor-led session on a calendar
// day. Times are "HH:MM" wall-clock in the tenant's local timezone; spans
// never cross midnight. Date carries only the calendar-day component
// (normalized to UTC midnight).
type Booking struct {
	ID           string        `json:"id"`
	TenantID     string        `json:"tenant_id"`
	StudentID    string        `json:"student_id"`
	InstructorID string        `json:"instructor_id,omitempty"` // empty until assigned
	Status       BookingStatus `json:"status"`
	Date         time.Time     `json:"date"`
	StartTime    string        `json:"start_time"`
	EndTime      string        `json:"end_time"`
	EscalatedAt  *time.Time    `json:"escalated_at,omitempty"` // set at most once, never cleared
	CreatedAt    time.Time     `json:"created_at"`             // UTC
	UpdatedAt    time.Time     `json:"updated_at"`             // UTC
}

// NewBooking contains information needed to create a new Booking request.
type NewBooking struct {
	InstructorID string `json:"instructor_id"` // optional; an admin may assign later
	Date         string `json:"date" validate:"required,dateymd"`
	StartTime    string `json:"start_time" validate:"required,timehhmm"`
	EndTime      string `json:"end_time" validate:"required,timehhmm"`
}

func (nb *NewBooking) Validate() error {
	nb.InstructorID = core.CleanString(nb.InstructorID)
	nb.Date = core.CleanString(nb.Date)
	nb.StartTime = core.CleanString(nb.StartTime)
	nb.EndTime = core.CleanString(nb.EndTime)
	return core.Validate.Struct(nb)
}

// Availability is a recurring weekly window during which an instructor
// declares themselves available. Advisory only: windows are not enforced
// against bookings, and windows of one instructor may overlap each other.
type Availability struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenant_id"`
	InstructorID string    `json:"instructor_id"`
	DayOfWeek    int       `json:"day_of_week"` // 0 = Sunday, 6 = Saturday
	StartTime    string    `json:"start_time"`
	EndTime      string    `json:"end_time"`
	CreatedAt    time.Time `json:"created_at"` // UTC
}

// NewAvailability contains information needed to declare a new Availability window.
type NewAvailability struct {
	DayOfWeek *int   `json:"day_of_week" validate:"required,min=0,max=6"`
	StartTime string `json:"start_time" validate:"required,timehhmm"`
	EndTime   string `json:"end_time" validate:"required,timehhmm"`
}

func (na *NewAvailability) Validate() error {
	na.StartTime = core.CleanString(na.StartTime)
	na.EndTime = core.CleanString(na.EndTime)
	return core.Validate.Struct(na)
}

// QueryFilter narrows booking queries. Zero-valued fields are ignored.
type QueryFilter struct {
	StudentID    string
	InstructorID string
	WeekStart    time.Time // 7-day window [WeekStart, WeekStart+7d)
}

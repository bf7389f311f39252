package audit

import "time"

// Actions
const (
	ActionUserRegister   = "user.register"
	ActionUserLogin      = "user.login"
	ActionUserRoleChange = "user.role_change"

	ActionAvailabilityCreate = "schedule.availability.create"
	ActionAvailabilityDelete = "schedule.availability.delete"

	ActionBookingCreate   = "schedule.booking.create"
	ActionBookingApprove  = "schedule.booking.approve"
	ActionBookingAssign   = "schedule.booking.assign"
	ActionBookingComplete = "schedule.booking.complete"
	ActionBookingCancel   = "schedule.booking.cancel"
	ActionBookingEscalate = "schedule.booking.escalate"
)

// Entry is an append-only record of a state-changing operation.
// Entries are never mutated or deleted.
type Entry struct {
	ID            string                 `json:"id"`
	TenantID      string                 `json:"tenant_id"`
	UserID        string                 `json:"user_id"` // the acting user
	Action        string                 `json:"action"`
	ResourceType  string                 `json:"resource_type,omitempty"`
	ResourceID    string                 `json:"resource_id,omitempty"`
	BeforeState   map[string]interface{} `json:"before_state,omitempty"`
	AfterState    map[string]interface{} `json:"after_state,omitempty"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	CreatedAt     time.Time              `json:"created_at"` // UTC
}

package schedule

import "github.com/trezcool/ratiba/core/user"

// stateTransitions is the booking state machine. COMPLETED and CANCELLED
// are terminal.
var stateTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusRequested: {BookingStatusAssigned, BookingStatusApproved, BookingStatusCancelled},
	BookingStatusApproved:  {BookingStatusCompleted, BookingStatusCancelled},
	BookingStatusAssigned:  {BookingStatusCompleted, BookingStatusCancelled},
}

// CanTransitionState reports whether the state machine allows moving a
// booking from one status to another.
func CanTransitionState(from, to BookingStatus) bool {
	for _, next := range stateTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanTransition is the single authorization guard for booking status
// changes: admins may always transition; an instructor only their own
// assigned booking; a student only their own booking.
func CanTransition(actorRole, actorID string, b Booking, target BookingStatus) bool {
	switch actorRole {
	case user.RoleAdmin:
		return true
	case user.RoleInstructor:
		return b.InstructorID != "" && b.InstructorID == actorID
	case user.RoleStudent:
		return b.StudentID == actorID
	}
	return false
}

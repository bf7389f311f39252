package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/ratiba/core/schedule"
)

type scheduleRepository struct {
	availability *availabilityTable
	booking      *bookingTable
}

var _ schedule.Repository = (*scheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(db *DB) schedule.Repository {
	return &scheduleRepository{availability: db.availability, booking: db.booking}
}

// Availability

func (repo *scheduleRepository) CreateAvailability(ctx context.Context, slot schedule.Availability) (schedule.Availability, error) {
	repo.availability.Lock()
	defer repo.availability.Unlock()

	slot.ID = uuid.New().String()
	repo.availability.table[slot.ID] = &slot
	return slot, nil
}

func (repo *scheduleRepository) QueryAvailabilityByInstructor(ctx context.Context, tenantID, instructorID string) ([]schedule.Availability, error) {
	repo.availability.RLock()
	defer repo.availability.RUnlock()

	var slots []schedule.Availability
	for _, slot := range repo.availability.table {
		if slot.TenantID == tenantID && slot.InstructorID == instructorID {
			slots = append(slots, *slot)
		}
	}
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].DayOfWeek != slots[j].DayOfWeek {
			return slots[i].DayOfWeek < slots[j].DayOfWeek
		}
		return slots[i].StartTime < slots[j].StartTime
	})
	return slots, nil
}

func (repo *scheduleRepository) GetAvailabilityByID(ctx context.Context, tenantID, instructorID, id string) (schedule.Availability, error) {
	repo.availability.RLock()
	defer repo.availability.RUnlock()

	if slot, ok := repo.availability.table[id]; ok && slot.TenantID == tenantID && slot.InstructorID == instructorID {
		return *slot, nil
	}
	return schedule.Availability{}, schedule.ErrAvailabilityNotFound
}

func (repo *scheduleRepository) DeleteAvailability(ctx context.Context, tenantID, instructorID, id string) error {
	repo.availability.Lock()
	defer repo.availability.Unlock()

	if slot, ok := repo.availability.table[id]; ok && slot.TenantID == tenantID && slot.InstructorID == instructorID {
		delete(repo.availability.table, id)
		return nil
	}
	return schedule.ErrAvailabilityNotFound
}

// Bookings

func (repo *scheduleRepository) CreateBooking(ctx context.Context, b schedule.Booking) (schedule.Booking, error) {
	repo.booking.Lock()
	defer repo.booking.Unlock()

	b.ID = uuid.New().String()
	repo.booking.table[b.ID] = &b
	return b, nil
}

func (repo *scheduleRepository) GetBookingByID(ctx context.Context, tenantID, id string) (schedule.Booking, error) {
	repo.booking.RLock()
	defer repo.booking.RUnlock()

	if b, ok := repo.booking.table[id]; ok && b.TenantID == tenantID {
		return *b, nil
	}
	return schedule.Booking{}, schedule.ErrBookingNotFound
}

func (repo *scheduleRepository) QueryBookings(ctx context.Context, tenantID string, filter schedule.QueryFilter) ([]schedule.Booking, error) {
	repo.booking.RLock()
	defer repo.booking.RUnlock()

	var bookings []schedule.Booking
	weekEnd := filter.WeekStart.AddDate(0, 0, 7)
	for _, b := range repo.booking.table {
		if b.TenantID != tenantID {
			continue
		}
		if filter.StudentID != "" && b.StudentID != filter.StudentID {
			continue
		}
		if filter.InstructorID != "" && b.InstructorID != filter.InstructorID {
			continue
		}
		if !filter.WeekStart.IsZero() && (b.Date.Before(filter.WeekStart) || !b.Date.Before(weekEnd)) {
			continue
		}
		bookings = append(bookings, *b)
	}
	sort.Slice(bookings, func(i, j int) bool {
		if !bookings[i].Date.Equal(bookings[j].Date) {
			return bookings[i].Date.Before(bookings[j].Date)
		}
		return bookings[i].StartTime < bookings[j].StartTime
	})
	return bookings, nil
}

func (repo *scheduleRepository) FindConflictingBooking(ctx context.Context, tenantID, instructorID string, date time.Time, start, end, excludeID string) (bool, error) {
	repo.booking.RLock()
	defer repo.booking.RUnlock()
	return repo.findConflict(tenantID, instructorID, date, start, end, excludeID), nil
}

// findConflict expects the booking table lock to be held.
func (repo *scheduleRepository) findConflict(tenantID, instructorID string, date time.Time, start, end, excludeID string) bool {
	for _, b := range repo.booking.table {
		if b.TenantID != tenantID || b.InstructorID != instructorID || !b.Date.Equal(date) {
			continue
		}
		if excludeID != "" && b.ID == excludeID {
			continue
		}
		if !isCommitted(b.Status) {
			continue
		}
		if schedule.TimeRangesOverlap(b.StartTime, b.EndTime, start, end) {
			return true
		}
	}
	return false
}

// AssignInstructor holds the booking table lock across the conflict re-check
// and the write so racing assignments serialize.
func (repo *scheduleRepository) AssignInstructor(ctx context.Context, b schedule.Booking, instructorID string) (schedule.Booking, error) {
	repo.booking.Lock()
	defer repo.booking.Unlock()

	if repo.findConflict(b.TenantID, instructorID, b.Date, b.StartTime, b.EndTime, b.ID) {
		return schedule.Booking{}, schedule.ErrBookingConflict
	}

	orig, ok := repo.booking.table[b.ID]
	if !ok || orig.TenantID != b.TenantID {
		return schedule.Booking{}, schedule.ErrBookingNotFound
	}
	if orig.Status != schedule.BookingStatusRequested {
		return schedule.Booking{}, schedule.ErrNotRequested
	}

	orig.InstructorID = instructorID
	orig.Status = schedule.BookingStatusAssigned
	orig.UpdatedAt = time.Now().UTC()
	return *orig, nil
}

func (repo *scheduleRepository) UpdateBookingStatus(ctx context.Context, tenantID, id string, from, to schedule.BookingStatus) (schedule.Booking, error) {
	repo.booking.Lock()
	defer repo.booking.Unlock()

	b, ok := repo.booking.table[id]
	if !ok || b.TenantID != tenantID {
		return schedule.Booking{}, schedule.ErrBookingNotFound
	}
	if b.Status != from {
		return schedule.Booking{}, schedule.ErrInvalidTransition
	}
	b.Status = to
	b.UpdatedAt = time.Now().UTC()
	return *b, nil
}

func (repo *scheduleRepository) QueryEscalatableBookings(ctx context.Context, cutoff time.Time) ([]schedule.Booking, error) {
	repo.booking.RLock()
	defer repo.booking.RUnlock()

	var bookings []schedule.Booking
	for _, b := range repo.booking.table {
		if b.Status == schedule.BookingStatusRequested && b.InstructorID == "" && b.EscalatedAt == nil && b.CreatedAt.Before(cutoff) {
			bookings = append(bookings, *b)
		}
	}
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].CreatedAt.Before(bookings[j].CreatedAt) })
	return bookings, nil
}

func (repo *scheduleRepository) MarkBookingEscalated(ctx context.Context, tenantID, id string, at time.Time) error {
	repo.booking.Lock()
	defer repo.booking.Unlock()

	b, ok := repo.booking.table[id]
	if !ok || b.TenantID != tenantID {
		return schedule.ErrBookingNotFound
	}
	if b.Status != schedule.BookingStatusRequested || b.InstructorID != "" || b.EscalatedAt != nil {
		return schedule.ErrBookingNotFound
	}
	at = at.UTC()
	b.EscalatedAt = &at
	b.UpdatedAt = at
	return nil
}

func isCommitted(status schedule.BookingStatus) bool {
	for _, s := range schedule.CommittedStatuses {
		if status == s {
			return true
		}
	}
	return false
}

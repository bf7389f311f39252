package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ratiba/core/schedule"
)

const dateFormat = "2006-01-02"

// committedStatusesSQL mirrors schedule.CommittedStatuses: the statuses that
// occupy an instructor's calendar for conflict purposes.
const committedStatusesSQL = `('APPROVED', 'ASSIGNED', 'COMPLETED')`

type bookingRepository struct {
	db *sqlx.DB
}

var _ schedule.Repository = (*bookingRepository)(nil) // interface compliance check

func NewBookingRepository(db *sqlx.DB) *bookingRepository {
	return &bookingRepository{db: db}
}

type bookingRow struct {
	ID           string      `db:"id"`
	TenantID     string      `db:"tenant_id"`
	StudentID    string      `db:"student_id"`
	InstructorID null.String `db:"instructor_id"`
	Status       string      `db:"status"`
	Date         time.Time   `db:"date"`
	StartTime    string      `db:"start_time"`
	EndTime      string      `db:"end_time"`
	EscalatedAt  null.Time   `db:"escalated_at"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
}

func (repo bookingRepository) row(b schedule.Booking) bookingRow {
	return bookingRow{
		ID:           b.ID,
		TenantID:     b.TenantID,
		StudentID:    b.StudentID,
		InstructorID: null.NewString(b.InstructorID, b.InstructorID != ""),
		Status:       string(b.Status),
		Date:         b.Date,
		StartTime:    b.StartTime,
		EndTime:      b.EndTime,
		EscalatedAt:  null.TimeFromPtr(b.EscalatedAt),
		CreatedAt:    b.CreatedAt.UTC(),
		UpdatedAt:    b.UpdatedAt.UTC(),
	}
}

func (repo bookingRepository) unrow(r bookingRow) schedule.Booking {
	return schedule.Booking{
		ID:           r.ID,
		TenantID:     r.TenantID,
		StudentID:    r.StudentID,
		InstructorID: r.InstructorID.String,
		Status:       schedule.BookingStatus(r.Status),
		Date:         r.Date,
		StartTime:    r.StartTime,
		EndTime:      r.EndTime,
		EscalatedAt:  r.EscalatedAt.Ptr(),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func (repo bookingRepository) unrowSlice(rows []bookingRow) []schedule.Booking {
	bookings := make([]schedule.Booking, 0, len(rows))
	for _, r := range rows {
		bookings = append(bookings, repo.unrow(r))
	}
	return bookings
}

// trapNoRowsErr maps psql "no rows" err to schedule.ErrBookingNotFound
func (repo bookingRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return schedule.ErrBookingNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo bookingRepository) CreateBooking(ctx context.Context, b schedule.Booking) (schedule.Booking, error) {
	b.ID = uuid.New().String()
	r := repo.row(b)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO booking (id, tenant_id, student_id, instructor_id, status, date, start_time, end_time, escalated_at, created_at, updated_at)
		VALUES (:id, :tenant_id, :student_id, :instructor_id, :status, :date, :start_time, :end_time, :escalated_at, :created_at, :updated_at)`, r)
	if err != nil {
		return schedule.Booking{}, errors.Wrap(err, "inserting booking")
	}
	return repo.unrow(r), nil
}

func (repo bookingRepository) GetBookingByID(ctx context.Context, tenantID, id string) (schedule.Booking, error) {
	var r bookingRow
	err := repo.db.GetContext(ctx, &r, `
		SELECT * FROM booking WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return schedule.Booking{}, repo.trapNoRowsErr(err, "getting booking")
	}
	return repo.unrow(r), nil
}

func (repo bookingRepository) QueryBookings(ctx context.Context, tenantID string, filter schedule.QueryFilter) ([]schedule.Booking, error) {
	query := `SELECT * FROM booking WHERE tenant_id = $1`
	args := []interface{}{tenantID}

	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		query += fmt.Sprintf(" AND student_id = $%d", len(args))
	}
	if filter.InstructorID != "" {
		args = append(args, filter.InstructorID)
		query += fmt.Sprintf(" AND instructor_id = $%d", len(args))
	}
	if !filter.WeekStart.IsZero() {
		args = append(args, filter.WeekStart.Format(dateFormat))
		query += fmt.Sprintf(" AND date >= $%d", len(args))
		args = append(args, filter.WeekStart.AddDate(0, 0, 7).Format(dateFormat))
		query += fmt.Sprintf(" AND date < $%d", len(args))
	}
	query += " ORDER BY date, start_time"

	var rows []bookingRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying bookings")
	}
	return repo.unrowSlice(rows), nil
}

func (repo bookingRepository) FindConflictingBooking(ctx context.Context, tenantID, instructorID string, date time.Time, start, end, excludeID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM booking
			WHERE tenant_id = $1 AND instructor_id = $2 AND date = $3
			  AND status IN ` + committedStatusesSQL + `
			  AND start_time < $4 AND end_time > $5`
	args := []interface{}{tenantID, instructorID, date.Format(dateFormat), end, start}
	if excludeID != "" {
		args = append(args, excludeID)
		query += fmt.Sprintf(" AND id <> $%d", len(args))
	}
	query += ")"

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, query, args...); err != nil {
		return false, errors.Wrap(err, "checking booking conflict")
	}
	return exists, nil
}

// AssignInstructor serializes racing assignments on a per-instructor-per-date
// advisory lock, re-runs the conflict check under that lock and only then
// binds the instructor; the status guard catches bookings that left
// REQUESTED in between.
func (repo bookingRepository) AssignInstructor(ctx context.Context, b schedule.Booking, instructorID string) (schedule.Booking, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return schedule.Booking{}, errors.Wrap(err, "beginning assign tx")
	}
	defer func() { _ = tx.Rollback() }()

	dateStr := b.Date.Format(dateFormat)
	if _, err = tx.ExecContext(ctx,
		`SELECT pg_advisory_xact_lock(hashtext($1), hashtext($2))`,
		b.TenantID+":"+instructorID, dateStr,
	); err != nil {
		return schedule.Booking{}, errors.Wrap(err, "acquiring assign lock")
	}

	var conflict bool
	err = tx.GetContext(ctx, &conflict, `
		SELECT EXISTS (
			SELECT 1 FROM booking
			WHERE tenant_id = $1 AND instructor_id = $2 AND date = $3
			  AND status IN `+committedStatusesSQL+`
			  AND start_time < $4 AND end_time > $5
			  AND id <> $6
		)`, b.TenantID, instructorID, dateStr, b.EndTime, b.StartTime, b.ID)
	if err != nil {
		return schedule.Booking{}, errors.Wrap(err, "re-checking booking conflict")
	}
	if conflict {
		return schedule.Booking{}, schedule.ErrBookingConflict
	}

	var r bookingRow
	err = tx.GetContext(ctx, &r, `
		UPDATE booking
		SET instructor_id = $1, status = $2, updated_at = $3
		WHERE tenant_id = $4 AND id = $5 AND status = $6
		RETURNING *`,
		instructorID, string(schedule.BookingStatusAssigned), time.Now().UTC(),
		b.TenantID, b.ID, string(schedule.BookingStatusRequested),
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return schedule.Booking{}, schedule.ErrNotRequested
		}
		return schedule.Booking{}, errors.Wrap(err, "assigning instructor")
	}

	if err = tx.Commit(); err != nil {
		return schedule.Booking{}, errors.Wrap(err, "committing assign tx")
	}
	return repo.unrow(r), nil
}

func (repo bookingRepository) UpdateBookingStatus(ctx context.Context, tenantID, id string, from, to schedule.BookingStatus) (schedule.Booking, error) {
	var r bookingRow
	err := repo.db.GetContext(ctx, &r, `
		UPDATE booking SET status = $1, updated_at = $2
		WHERE tenant_id = $3 AND id = $4 AND status = $5
		RETURNING *`,
		string(to), time.Now().UTC(), tenantID, id, string(from))
	if err != nil {
		// bookings are never deleted: no row means the status moved underneath us
		if err == sql.ErrNoRows {
			return schedule.Booking{}, schedule.ErrInvalidTransition
		}
		return schedule.Booking{}, errors.Wrap(err, "updating booking status")
	}
	return repo.unrow(r), nil
}

func (repo bookingRepository) QueryEscalatableBookings(ctx context.Context, cutoff time.Time) ([]schedule.Booking, error) {
	var rows []bookingRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT * FROM booking
		WHERE status = $1 AND instructor_id IS NULL AND escalated_at IS NULL AND created_at < $2
		ORDER BY created_at`,
		string(schedule.BookingStatusRequested), cutoff.UTC())
	if err != nil {
		return nil, errors.Wrap(err, "querying escalatable bookings")
	}
	return repo.unrowSlice(rows), nil
}

func (repo bookingRepository) MarkBookingEscalated(ctx context.Context, tenantID, id string, at time.Time) error {
	res, err := repo.db.ExecContext(ctx, `
		UPDATE booking SET escalated_at = $1, updated_at = $1
		WHERE tenant_id = $2 AND id = $3
		  AND status = $4 AND instructor_id IS NULL AND escalated_at IS NULL`,
		at.UTC(), tenantID, id, string(schedule.BookingStatusRequested))
	if err != nil {
		return errors.Wrap(err, "marking booking escalated")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return schedule.ErrBookingNotFound
	}
	return nil
}

// availability methods live in availability.go

package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core/schedule"
)

type availabilityRow struct {
	ID           string    `db:"id"`
	TenantID     string    `db:"tenant_id"`
	InstructorID string    `db:"instructor_id"`
	DayOfWeek    int       `db:"day_of_week"`
	StartTime    string    `db:"start_time"`
	EndTime      string    `db:"end_time"`
	CreatedAt    time.Time `db:"created_at"`
}

func (repo bookingRepository) availRow(slot schedule.Availability) availabilityRow {
	return availabilityRow{
		ID:           slot.ID,
		TenantID:     slot.TenantID,
		InstructorID: slot.InstructorID,
		DayOfWeek:    slot.DayOfWeek,
		StartTime:    slot.StartTime,
		EndTime:      slot.EndTime,
		CreatedAt:    slot.CreatedAt.UTC(),
	}
}

func (repo bookingRepository) unAvailRow(r availabilityRow) schedule.Availability {
	return schedule.Availability{
		ID:           r.ID,
		TenantID:     r.TenantID,
		InstructorID: r.InstructorID,
		DayOfWeek:    r.DayOfWeek,
		StartTime:    r.StartTime,
		EndTime:      r.EndTime,
		CreatedAt:    r.CreatedAt,
	}
}

func (repo bookingRepository) CreateAvailability(ctx context.Context, slot schedule.Availability) (schedule.Availability, error) {
	slot.ID = uuid.New().String()
	r := repo.availRow(slot)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO instructor_availability (id, tenant_id, instructor_id, day_of_week, start_time, end_time, created_at)
		VALUES (:id, :tenant_id, :instructor_id, :day_of_week, :start_time, :end_time, :created_at)`, r)
	if err != nil {
		return schedule.Availability{}, errors.Wrap(err, "inserting availability")
	}
	return repo.unAvailRow(r), nil
}

func (repo bookingRepository) QueryAvailabilityByInstructor(ctx context.Context, tenantID, instructorID string) ([]schedule.Availability, error) {
	var rows []availabilityRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT * FROM instructor_availability
		WHERE tenant_id = $1 AND instructor_id = $2
		ORDER BY day_of_week, start_time`, tenantID, instructorID)
	if err != nil {
		return nil, errors.Wrap(err, "querying availability")
	}

	slots := make([]schedule.Availability, 0, len(rows))
	for _, r := range rows {
		slots = append(slots, repo.unAvailRow(r))
	}
	return slots, nil
}

func (repo bookingRepository) GetAvailabilityByID(ctx context.Context, tenantID, instructorID, id string) (schedule.Availability, error) {
	var r availabilityRow
	err := repo.db.GetContext(ctx, &r, `
		SELECT * FROM instructor_availability
		WHERE tenant_id = $1 AND instructor_id = $2 AND id = $3`, tenantID, instructorID, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return schedule.Availability{}, schedule.ErrAvailabilityNotFound
		}
		return schedule.Availability{}, errors.Wrap(err, "getting availability")
	}
	return repo.unAvailRow(r), nil
}

func (repo bookingRepository) DeleteAvailability(ctx context.Context, tenantID, instructorID, id string) error {
	res, err := repo.db.ExecContext(ctx, `
		DELETE FROM instructor_availability
		WHERE tenant_id = $1 AND instructor_id = $2 AND id = $3`, tenantID, instructorID, id)
	if err != nil {
		return errors.Wrap(err, "deleting availability")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return schedule.ErrAvailabilityNotFound
	}
	return nil
}

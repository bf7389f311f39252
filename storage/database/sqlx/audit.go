package sqlxrepos

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/audit"
)

type auditRepository struct {
	db *sqlx.DB
}

var _ audit.Repository = (*auditRepository)(nil) // interface compliance check

func NewAuditRepository(db *sqlx.DB) *auditRepository {
	return &auditRepository{db: db}
}

type auditRow struct {
	ID            string      `db:"id"`
	TenantID      string      `db:"tenant_id"`
	UserID        string      `db:"user_id"`
	Action        string      `db:"action"`
	ResourceType  null.String `db:"resource_type"`
	ResourceID    null.String `db:"resource_id"`
	BeforeState   null.JSON   `db:"before_state"`
	AfterState    null.JSON   `db:"after_state"`
	CorrelationID null.String `db:"correlation_id"`
	CreatedAt     time.Time   `db:"created_at"`
}

func (repo auditRepository) row(e audit.Entry) (auditRow, error) {
	r := auditRow{
		ID:            e.ID,
		TenantID:      e.TenantID,
		UserID:        e.UserID,
		Action:        e.Action,
		ResourceType:  null.NewString(e.ResourceType, e.ResourceType != ""),
		ResourceID:    null.NewString(e.ResourceID, e.ResourceID != ""),
		CorrelationID: null.NewString(e.CorrelationID, e.CorrelationID != ""),
		CreatedAt:     e.CreatedAt.UTC(),
	}
	if e.BeforeState != nil {
		b, err := json.Marshal(e.BeforeState)
		if err != nil {
			return auditRow{}, errors.Wrap(err, "marshaling before state")
		}
		r.BeforeState = null.JSONFrom(b)
	}
	if e.AfterState != nil {
		b, err := json.Marshal(e.AfterState)
		if err != nil {
			return auditRow{}, errors.Wrap(err, "marshaling after state")
		}
		r.AfterState = null.JSONFrom(b)
	}
	return r, nil
}

func (repo auditRepository) unrow(r auditRow) (audit.Entry, error) {
	e := audit.Entry{
		ID:            r.ID,
		TenantID:      r.TenantID,
		UserID:        r.UserID,
		Action:        r.Action,
		ResourceType:  r.ResourceType.String,
		ResourceID:    r.ResourceID.String,
		CorrelationID: r.CorrelationID.String,
		CreatedAt:     r.CreatedAt,
	}
	if r.BeforeState.Valid {
		if err := json.Unmarshal(r.BeforeState.JSON, &e.BeforeState); err != nil {
			return audit.Entry{}, errors.Wrap(err, "unmarshaling before state")
		}
	}
	if r.AfterState.Valid {
		if err := json.Unmarshal(r.AfterState.JSON, &e.AfterState); err != nil {
			return audit.Entry{}, errors.Wrap(err, "unmarshaling after state")
		}
	}
	return e, nil
}

func (repo auditRepository) CreateEntry(ctx context.Context, e audit.Entry) (audit.Entry, error) {
	e.ID = uuid.New().String()
	r, err := repo.row(e)
	if err != nil {
		return audit.Entry{}, err
	}
	_, err = repo.db.NamedExecContext(ctx, `
		INSERT INTO audit_log (id, tenant_id, user_id, action, resource_type, resource_id, before_state, after_state, correlation_id, created_at)
		VALUES (:id, :tenant_id, :user_id, :action, :resource_type, :resource_id, :before_state, :after_state, :correlation_id, :created_at)`, r)
	if err != nil {
		return audit.Entry{}, errors.Wrap(err, "inserting audit entry")
	}
	return e, nil
}

// orderableAuditFields guards ORDER BY against arbitrary input.
var orderableAuditFields = map[string]bool{"created_at": true, "action": true, "user_id": true}

func (repo auditRepository) QueryEntriesByTenant(ctx context.Context, tenantID string, orderings ...core.DBOrdering) ([]audit.Entry, error) {
	orderBy := "created_at DESC"
	terms := make([]string, 0, len(orderings))
	for _, ord := range orderings {
		if orderableAuditFields[ord.Field] {
			terms = append(terms, ord.String())
		}
	}
	if len(terms) > 0 {
		orderBy = strings.Join(terms, ", ")
	}

	var rows []auditRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT * FROM audit_log WHERE tenant_id = $1
		ORDER BY `+orderBy, tenantID)
	if err != nil {
		return nil, errors.Wrap(err, "querying audit entries")
	}

	entries := make([]audit.Entry, 0, len(rows))
	for _, r := range rows {
		e, err := repo.unrow(r)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

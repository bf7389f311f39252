package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core/user"
)

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

type userRow struct {
	ID           string    `db:"id"`
	TenantID     string    `db:"tenant_id"`
	Email        string    `db:"email"`
	Role         string    `db:"role"`
	Approved     bool      `db:"approved"`
	PasswordHash []byte    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (repo userRepository) unrow(r userRow) user.User {
	return user.User{
		ID:           r.ID,
		TenantID:     r.TenantID,
		Email:        r.Email,
		Role:         r.Role,
		Approved:     r.Approved,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, tenantID, email string, excludedUsers ...user.User) error {
	query := `SELECT EXISTS (SELECT 1 FROM "user" WHERE tenant_id = $1 AND email = $2`
	args := []interface{}{tenantID, email}
	for _, usr := range excludedUsers {
		args = append(args, usr.ID)
		query += fmt.Sprintf(" AND id <> $%d", len(args))
	}
	query += ")"

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, query, args...); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO "user" (id, tenant_id, email, role, approved, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		usr.ID, usr.TenantID, usr.Email, usr.Role, usr.Approved, usr.PasswordHash,
		usr.CreatedAt.UTC(), usr.UpdatedAt.UTC())
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) GetUserByID(ctx context.Context, tenantID, id string) (user.User, error) {
	var r userRow
	err := repo.db.GetContext(ctx, &r, `
		SELECT * FROM "user" WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "getting user")
	}
	return repo.unrow(r), nil
}

func (repo userRepository) GetUserByEmail(ctx context.Context, tenantID, email string) (user.User, error) {
	var r userRow
	err := repo.db.GetContext(ctx, &r, `
		SELECT * FROM "user" WHERE tenant_id = $1 AND email = $2`, tenantID, email)
	if err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "getting user by email")
	}
	return repo.unrow(r), nil
}

func (repo userRepository) QueryUsersByRole(ctx context.Context, tenantID, role string) ([]user.User, error) {
	var rows []userRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT * FROM "user" WHERE tenant_id = $1 AND role = $2
		ORDER BY created_at DESC`, tenantID, role)
	if err != nil {
		return nil, errors.Wrap(err, "querying users")
	}

	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, repo.unrow(r))
	}
	return users, nil
}

func (repo userRepository) UpdateUserApproved(ctx context.Context, usr user.User) (user.User, error) {
	res, err := repo.db.ExecContext(ctx, `
		UPDATE "user" SET approved = $1, updated_at = $2
		WHERE tenant_id = $3 AND id = $4`,
		usr.Approved, usr.UpdatedAt.UTC(), usr.TenantID, usr.ID)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

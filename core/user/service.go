package user

import (
	"context"
	"errors"
	"time"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/audit"
)

var (
	// errors
	ErrNotFound    = errors.New("user not found")
	ErrEmailExists = errors.New("a user with this email already exists in this school")
)

type (
	Repository interface {
		// CheckEmailUniqueness fails with ErrEmailExists if the email is taken
		// within the tenant. Emails may repeat across tenants.
		CheckEmailUniqueness(ctx context.Context, tenantID, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, tenantID, id string) (User, error)
		GetUserByEmail(ctx context.Context, tenantID, email string) (User, error)
		// QueryUsersByRole returns a tenant's users with the given role, most recent first.
		QueryUsersByRole(ctx context.Context, tenantID, role string) ([]User, error)
		UpdateUserApproved(ctx context.Context, usr User) (User, error)
	}

	Service struct {
		repo     Repository
		auditSvc *audit.Service
	}
)

func NewService(repo Repository, auditSvc *audit.Service) *Service {
	return &Service{repo: repo, auditSvc: auditSvc}
}

func (svc *Service) CheckEmailUniqueness(ctx context.Context, tenantID, email string, exclUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, tenantID, email, exclUsers...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

// Register creates a user from a self-service sign-up. Students start out
// unapproved and cannot authenticate until an admin approves them.
func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	usr, err := svc.create(ctx, nu, nu.Role != RoleStudent)
	if err != nil {
		return User{}, err
	}

	err = svc.auditSvc.Record(ctx, audit.Entry{
		TenantID:     usr.TenantID,
		UserID:       usr.ID,
		Action:       audit.ActionUserRegister,
		ResourceType: "user",
		ResourceID:   usr.ID,
		AfterState:   map[string]interface{}{"email": usr.Email, "role": usr.Role, "approved": usr.Approved},
	})
	return usr, err
}

// CreateInstructor creates an approved instructor account on behalf of an admin.
func (svc *Service) CreateInstructor(ctx context.Context, nu NewUser, actorID string) (User, error) {
	nu.Role = RoleInstructor
	usr, err := svc.create(ctx, nu, true /* approved */)
	if err != nil {
		return User{}, err
	}

	err = svc.auditSvc.Record(ctx, audit.Entry{
		TenantID:     usr.TenantID,
		UserID:       actorID,
		Action:       audit.ActionUserRoleChange,
		ResourceType: "user",
		ResourceID:   usr.ID,
		AfterState:   map[string]interface{}{"email": usr.Email, "role": RoleInstructor},
	})
	return usr, err
}

// ApproveStudent flips a student's approved flag. The lookup is scoped by
// tenant and role; anything else reports ErrNotFound.
func (svc *Service) ApproveStudent(ctx context.Context, tenantID, studentID, actorID string) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, tenantID, studentID)
	if err != nil {
		return User{}, err
	}
	if !usr.IsStudent() {
		return User{}, ErrNotFound
	}

	before := usr.Approved
	usr.Approved = true
	usr.UpdatedAt = time.Now().UTC()
	usr, err = svc.repo.UpdateUserApproved(ctx, usr)
	if err != nil {
		return User{}, err
	}

	err = svc.auditSvc.Record(ctx, audit.Entry{
		TenantID:     tenantID,
		UserID:       actorID,
		Action:       audit.ActionUserRoleChange,
		ResourceType: "user",
		ResourceID:   usr.ID,
		BeforeState:  map[string]interface{}{"approved": before},
		AfterState:   map[string]interface{}{"approved": true},
	})
	return usr, err
}

func (svc *Service) GetByID(ctx context.Context, tenantID, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, tenantID, id)
}

func (svc *Service) GetByEmail(ctx context.Context, tenantID, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, tenantID, core.CleanString(email, true /* lower */))
}

func (svc *Service) QueryStudents(ctx context.Context, tenantID string) ([]User, error) {
	return svc.repo.QueryUsersByRole(ctx, tenantID, RoleStudent)
}

func (svc *Service) QueryInstructors(ctx context.Context, tenantID string) ([]User, error) {
	return svc.repo.QueryUsersByRole(ctx, tenantID, RoleInstructor)
}

func (svc *Service) QueryAdmins(ctx context.Context, tenantID string) ([]User, error) {
	return svc.repo.QueryUsersByRole(ctx, tenantID, RoleAdmin)
}

func (svc *Service) create(ctx context.Context, nu NewUser, approved bool) (User, error) {
	now := time.Now().UTC()
	usr := User{
		TenantID:  nu.TenantID,
		Email:     nu.Email,
		Role:      nu.Role,
		Approved:  approved,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	return svc.repo.CreateUser(ctx, usr)
}

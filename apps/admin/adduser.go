package main

import (
	"context"
	"fmt"

	"github.com/trezcool/ratiba/core/user"
)

// addUser creates a user in the given tenant. Accounts created here are
// approved right away, whatever the role.
func (cli *commandLine) addUser(slug, email, pwd, role string) error {
	ctx := context.Background()

	t, err := cli.tenantSvc.GetBySlug(ctx, slug)
	if err != nil {
		return err
	}

	nu := user.NewUser{
		TenantID: t.ID,
		Email:    email,
		Password: pwd,
		Role:     role,
	}
	if err = nu.Validate(ctx, cli.usrSvc); err != nil {
		return err
	}

	usr, err := cli.usrSvc.Register(ctx, nu)
	if err != nil {
		return err
	}
	if !usr.Approved {
		usr, err = cli.usrSvc.ApproveStudent(ctx, usr.TenantID, usr.ID, usr.ID)
		if err != nil {
			return err
		}
	}
	fmt.Printf("user %q (%s) created: %s\n", usr.Email, usr.Role, usr.ID)
	return nil
}

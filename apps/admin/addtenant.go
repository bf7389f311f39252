package main

import (
	"context"
	"fmt"

	"github.com/trezcool/ratiba/core/tenant"
)

func (cli *commandLine) addTenant(name, slug string) error {
	nt := tenant.NewTenant{Name: name, Slug: slug}
	if err := nt.Validate(); err != nil {
		return err
	}

	t, err := cli.tenantSvc.Create(context.Background(), nt)
	if err != nil {
		return err
	}
	fmt.Printf("tenant %q created: %s\n", t.Slug, t.ID)
	return nil
}

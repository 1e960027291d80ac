package main

import (
	"context"
	"fmt"

	"github.com/trezcool/ada/core"
	"github.com/trezcool/ada/core/tenant"
	"github.com/trezcool/ada/core/user"
)

func (cli *commandLine) addTenant(name, domain string) error {
	ctx := context.Background()
	domain = core.CleanString(domain, true /* lower */)
	if err := cli.tenantSvc.CheckDomainUniqueness(domain); err != nil {
		return err
	}
	t, err := cli.tenantSvc.Create(ctx, tenant.NewTenant{Name: core.CleanString(name), Domain: domain})
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "tenant %s created: %s\n", t.Domain, t.ID)
	return nil
}

// addUser updates or creates a user.User
func (cli *commandLine) addUser(tenantDomain, name, email, role, pwd string) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)

	var tenantID string
	if tenantDomain != "" {
		t, err := cli.tenantSvc.GetByDomain(ctx, tenantDomain)
		if err != nil {
			return err
		}
		tenantID = t.ID
	}

	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		if !core.IsNotFound(err) {
			return err
		}
		_, err = cli.usrSvc.Create(ctx, user.NewUser{
			TenantID: tenantID,
			Name:     core.CleanString(name),
			Email:    email,
			Role:     role,
			Password: pwd,
		})
		return err
	}

	if usr.TenantID != tenantID {
		return fmt.Errorf("user %s belongs to another tenant", email)
	}
	active := true
	_, err = cli.usrSvc.Update(ctx, usr, user.UpdateUser{
		Name:     core.CleanString(name),
		Email:    email,
		Role:     role,
		IsActive: &active,
		Password: pwd,
	})
	return err
}

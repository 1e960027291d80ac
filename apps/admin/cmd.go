package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/trezcool/ada/core/reconcile"
	"github.com/trezcool/ada/core/reminder"
	"github.com/trezcool/ada/core/tenant"
	"github.com/trezcool/ada/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type (
	defaultersReporter interface {
		ComputeDefaulters(ctx context.Context, tenantID string, overdueDays int, class string) (reconcile.Report, error)
	}

	commandLine struct {
		db          *sqlx.DB
		tenantSvc   tenant.ServiceInterface
		usrSvc      user.ServiceInterface
		reminders   reminder.Runner
		defaulters  defaultersReporter
		overdueDays int
		out         io.Writer
	}
)

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose command (up, up-by-one, up-to, down, down-to, redo, reset, status, version)")
	fmt.Println("  addtenant -name NAME -domain DOMAIN - create a tenant")
	fmt.Println("  adduser [-tenant DOMAIN] -name NAME -email EMAIL -role ROLE - create or update a user, the password is prompted next")
	fmt.Println("  resetpassword -email EMAIL - reset user's password")
	fmt.Println("  remind - send the payment reminders due today")
	fmt.Println("  defaulters -tenant DOMAIN [-days N] [-class CLASS] - print the defaulters report as CSV")
}

// promptPassword reads a password from the terminal; an empty password shows `usage`.
func promptPassword(usage func()) (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		usage()
		return "", errHelp
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addTenantCmd := flag.NewFlagSet("addtenant", flag.ContinueOnError)
	addTenantName := addTenantCmd.String("name", "", "The institution's name.")
	addTenantDomain := addTenantCmd.String("domain", "", "The institution's domain, unique across tenants.")

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserTenant := addUserCmd.String("tenant", "", "The domain of the user's tenant. Not needed for super admins.")
	addUserName := addUserCmd.String("name", "", "The user's name.")
	addUserEmail := addUserCmd.String("email", "", "The user's email. The password will be prompted next.")
	addUserRole := addUserCmd.String("role", user.RoleCampusAdmin, "The user's role.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The user's email. The password will be prompted next.")

	defaultersCmd := flag.NewFlagSet("defaulters", flag.ContinueOnError)
	defaultersTenant := defaultersCmd.String("tenant", "", "The domain of the tenant.")
	defaultersDays := defaultersCmd.Int("days", cli.overdueDays, "Minimum days overdue.")
	defaultersClass := defaultersCmd.String("class", "", "Restrict the report to one class.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "addtenant":
		if err := addTenantCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addTenantName == "" || *addTenantDomain == "" {
			addTenantCmd.Usage()
			return errHelp
		}
		return cli.addTenant(*addTenantName, *addTenantDomain)

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserName == "" || *addUserEmail == "" || (*addUserTenant == "" && *addUserRole != user.RoleSuperAdmin) {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword(addUserCmd.Usage)
		if err != nil {
			return err
		}
		return cli.addUser(*addUserTenant, *addUserName, *addUserEmail, *addUserRole, pwd)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword(resetPasswordCmd.Usage)
		if err != nil {
			return err
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)

	case "remind":
		return cli.remind()

	case "defaulters":
		if err := defaultersCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *defaultersTenant == "" {
			defaultersCmd.Usage()
			return errHelp
		}
		return cli.writeDefaulters(*defaultersTenant, *defaultersDays, *defaultersClass)

	default:
		cli.printUsage()
		return errHelp
	}
}

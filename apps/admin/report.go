package main

import (
	"context"
	"fmt"

	"github.com/trezcool/ada/core/report"
)

func (cli *commandLine) remind() error {
	sum, err := cli.reminders.Run(context.Background())
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cli.out, "reminders: "+sum.String())
	return nil
}

func (cli *commandLine) writeDefaulters(tenantDomain string, days int, class string) error {
	ctx := context.Background()
	t, err := cli.tenantSvc.GetByDomain(ctx, tenantDomain)
	if err != nil {
		return err
	}
	rep, err := cli.defaulters.ComputeDefaulters(ctx, t.ID, days, class)
	if err != nil {
		return err
	}
	return report.WriteDefaultersCSV(cli.out, rep)
}

package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/ada/core"
	"github.com/trezcool/ada/core/fee"
	"github.com/trezcool/ada/core/notify"
	"github.com/trezcool/ada/core/reconcile"
	"github.com/trezcool/ada/core/student"
)

// DefaultDaysBefore: a week ahead and on the due date.
var DefaultDaysBefore = []int{7, 0}

type (
	TenantSource interface {
		QueryIDs(ctx context.Context) ([]string, error)
	}

	StudentSource interface {
		QueryActive(ctx context.Context, tenantID, class string) ([]student.Student, error)
	}

	InstallmentSource interface {
		UnpaidInstallments(
			ctx context.Context,
			tenantID string,
			std student.Student,
			feesByClass map[string][]fee.FeeStructure,
		) ([]reconcile.UnpaidInstallment, error)
	}
)

// Summary counts what a run did.
type Summary struct {
	Tenants  int
	Students int
	Sent     int
	Failed   int
}

func (s Summary) String() string {
	return fmt.Sprintf("tenants=%d students=%d sent=%d failed=%d", s.Tenants, s.Students, s.Sent, s.Failed)
}

type JobDeps struct {
	Tenants      TenantSource
	Students     StudentSource
	Installments InstallmentSource
	Notifier     notify.Notifier
	Logger       core.Logger
	DaysBefore   []int
}

// Job reminds students of their unpaid installments falling due in one of DaysBefore days.
// It keeps no state: running it twice on the same day sends the reminders twice.
type Job struct {
	tenants      TenantSource
	students     StudentSource
	installments InstallmentSource
	notifier     notify.Notifier
	logger       core.Logger
	daysBefore   map[int]bool

	NowFunc func() time.Time
}

func NewJob(deps JobDeps) *Job {
	days := deps.DaysBefore
	if len(days) == 0 {
		days = DefaultDaysBefore
	}
	daysBefore := make(map[int]bool, len(days))
	for _, d := range days {
		daysBefore[d] = true
	}
	return &Job{
		tenants:      deps.Tenants,
		students:     deps.Students,
		installments: deps.Installments,
		notifier:     deps.Notifier,
		logger:       deps.Logger,
		daysBefore:   daysBefore,
		NowFunc:      time.Now,
	}
}

// Run sends the reminders of every tenant. A failing student or tenant is logged, counted and skipped;
// only failing to list the tenants aborts the run.
func (j *Job) Run(ctx context.Context) (Summary, error) {
	var sum Summary

	tenantIDs, err := j.tenants.QueryIDs(ctx)
	if err != nil {
		return sum, errors.Wrap(err, "querying tenants")
	}

	// due dates are calendar dates at midnight UTC
	today := core.StartOfDay(j.NowFunc())
	for _, tenantID := range tenantIDs {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.Tenants++
		if err := j.runTenant(ctx, tenantID, today, &sum); err != nil {
			sum.Failed++
			j.logger.Error(fmt.Sprintf("reminder: tenant %s: %v", tenantID, err), err)
		}
	}
	return sum, nil
}

func (j *Job) runTenant(ctx context.Context, tenantID string, today time.Time, sum *Summary) error {
	students, err := j.students.QueryActive(ctx, tenantID, "")
	if err != nil {
		return errors.Wrap(err, "querying active students")
	}

	feesByClass := make(map[string][]fee.FeeStructure)
	for _, std := range students {
		sum.Students++
		unpaid, err := j.installments.UnpaidInstallments(ctx, tenantID, std, feesByClass)
		if err != nil {
			sum.Failed++
			j.logger.Error(fmt.Sprintf("reminder: student %s: %v", std.ID, err), err)
			continue
		}

		contact := notify.Contact{Email: std.ContactEmail(), Phone: std.ContactPhone()}
		for _, u := range unpaid {
			if !j.daysBefore[core.DaysBetween(today, u.Installment.DueDate)] {
				continue
			}
			if j.notifier.SendReminder(ctx, contact, std.Name, u.Installment.Amount, u.Installment.DueDate) {
				sum.Sent++
			} else {
				sum.Failed++
			}
		}
	}
	return nil
}

package report

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/ada/core/fee"
	"github.com/trezcool/ada/core/payment"
	"github.com/trezcool/ada/core/reconcile"
	"github.com/trezcool/ada/core/student"
)

const trendMonths = 6

type (
	StudentCounter interface {
		Count(ctx context.Context, filter student.QueryFilter) (int, error)
	}

	FeeCounter interface {
		Count(ctx context.Context, filter fee.QueryFilter) (int, error)
	}

	PaymentAggregator interface {
		Count(ctx context.Context, filter payment.QueryFilter) (int, error)
		Sum(ctx context.Context, filter payment.QueryFilter) (decimal.Decimal, error)
	}

	DefaulterSource interface {
		ComputeDefaulters(ctx context.Context, tenantID string, overdueDays int, class string) (reconcile.Report, error)
	}
)

type Trends struct {
	Labels []string          `json:"labels"`
	Data   []decimal.Decimal `json:"data"`
}

// Stats summarises a tenant's fees activity.
type Stats struct {
	TotalStudents      int             `json:"totalStudents"`
	TotalFeeStructures int             `json:"totalFeeStructures"`
	TotalPayments      int             `json:"totalPayments"`
	TotalRevenue       decimal.Decimal `json:"totalRevenue"`
	PendingPayments    int             `json:"pendingPayments"`
	Defaulters         int             `json:"defaulters"`
	TotalDue           decimal.Decimal `json:"totalDue"`
	PaymentTrends      Trends          `json:"paymentTrends"`
}

type Dashboard struct {
	students    StudentCounter
	fees        FeeCounter
	payments    PaymentAggregator
	defaulters  DefaulterSource
	overdueDays int

	NowFunc func() time.Time
}

func NewDashboard(
	students StudentCounter,
	fees FeeCounter,
	payments PaymentAggregator,
	defaulters DefaulterSource,
	overdueDays int,
) *Dashboard {
	return &Dashboard{
		students:    students,
		fees:        fees,
		payments:    payments,
		defaulters:  defaulters,
		overdueDays: overdueDays,
		NowFunc:     time.Now,
	}
}

// Stats computes the dashboard figures of the tenant. Defaulters use the dashboard's overdue threshold.
func (d *Dashboard) Stats(ctx context.Context, tenantID string) (Stats, error) {
	var (
		stats Stats
		err   error
	)
	completed := payment.QueryFilter{TenantID: tenantID, Statuses: []payment.Status{payment.StatusCompleted}}

	stats.TotalStudents, err = d.students.Count(ctx, student.QueryFilter{TenantID: tenantID, Statuses: []student.Status{student.StatusActive}})
	if err != nil {
		return Stats{}, errors.Wrap(err, "counting students")
	}
	if stats.TotalFeeStructures, err = d.fees.Count(ctx, fee.QueryFilter{TenantID: tenantID}); err != nil {
		return Stats{}, errors.Wrap(err, "counting fee structures")
	}
	if stats.TotalPayments, err = d.payments.Count(ctx, completed); err != nil {
		return Stats{}, errors.Wrap(err, "counting payments")
	}
	if stats.TotalRevenue, err = d.payments.Sum(ctx, completed); err != nil {
		return Stats{}, errors.Wrap(err, "summing revenue")
	}
	stats.PendingPayments, err = d.payments.Count(ctx, payment.QueryFilter{TenantID: tenantID, Statuses: []payment.Status{payment.StatusPending}})
	if err != nil {
		return Stats{}, errors.Wrap(err, "counting pending payments")
	}

	rep, err := d.defaulters.ComputeDefaulters(ctx, tenantID, d.overdueDays, "")
	if err != nil {
		return Stats{}, errors.Wrap(err, "computing defaulters")
	}
	stats.Defaulters = rep.Count
	stats.TotalDue = rep.TotalDue

	if stats.PaymentTrends, err = d.trends(ctx, completed); err != nil {
		return Stats{}, errors.Wrap(err, "computing payment trends")
	}
	return stats, nil
}

// trends sums the completed payments of each of the last months, current month included.
func (d *Dashboard) trends(ctx context.Context, filter payment.QueryFilter) (Trends, error) {
	now := d.NowFunc().UTC()
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	tr := Trends{
		Labels: make([]string, 0, trendMonths),
		Data:   make([]decimal.Decimal, 0, trendMonths),
	}
	for i := trendMonths - 1; i >= 0; i-- {
		start := thisMonth.AddDate(0, -i, 0)
		filter.PaidFrom = start
		filter.PaidTo = start.AddDate(0, 1, 0)

		total, err := d.payments.Sum(ctx, filter)
		if err != nil {
			return Trends{}, err
		}
		tr.Labels = append(tr.Labels, start.Format("Jan 2006"))
		tr.Data = append(tr.Data, total)
	}
	return tr, nil
}

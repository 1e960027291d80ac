package reconcile

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/ada/core"
	"github.com/trezcool/ada/core/fee"
	"github.com/trezcool/ada/core/payment"
	"github.com/trezcool/ada/core/student"
)

var ErrNegativeThreshold = errors.New("overdue threshold cannot be negative")

type (
	StudentSource interface {
		QueryActive(ctx context.Context, tenantID, class string) ([]student.Student, error)
	}

	FeeSource interface {
		ForClass(ctx context.Context, tenantID, class string) ([]fee.FeeStructure, error)
	}

	PaymentSource interface {
		PaidInstallments(ctx context.Context, tenantID, studentID string) (map[payment.InstallmentKey]bool, error)
	}
)

type OverdueInstallment struct {
	FeeStructureID    string          `json:"feeStructureId"`
	FeeStructureTitle string          `json:"-"`
	InstallmentID     string          `json:"installmentId"`
	InstallmentLabel  string          `json:"-"`
	Amount            decimal.Decimal `json:"amount"`
	DueDate           core.Date       `json:"dueDate"`
	DaysOverdue       int             `json:"daysOverdue"`
}

type Defaulter struct {
	StudentID           string               `json:"studentId"`
	Name                string               `json:"name"`
	RollNumber          string               `json:"rollNumber"`
	ClassName           string               `json:"className"`
	TotalDue            decimal.Decimal      `json:"totalDue"`
	OverdueInstallments []OverdueInstallment `json:"overdueInstallments"`
}

// Report lists the defaulters of a tenant, largest total due first.
type Report struct {
	Count      int             `json:"count"`
	TotalDue   decimal.Decimal `json:"totalDue"`
	Defaulters []Defaulter     `json:"defaulters"`
}

// UnpaidInstallment is an installment a student owes and has no completed payment for.
type UnpaidInstallment struct {
	FeeStructure fee.FeeStructure
	Installment  fee.Installment
}

// Engine matches the installments owed by active students against their completed payments.
// Installment statuses are ignored: completed payments are the source of truth.
type Engine struct {
	students StudentSource
	fees     FeeSource
	payments PaymentSource

	NowFunc func() time.Time
}

func NewEngine(students StudentSource, fees FeeSource, payments PaymentSource) *Engine {
	return &Engine{
		students: students,
		fees:     fees,
		payments: payments,
		NowFunc:  time.Now,
	}
}

// ComputeDefaulters returns the active students of the tenant (in `class` if set) having at least one
// unpaid installment more than `overdueDays` days past its due date.
// Any store failure aborts the computation.
func (e *Engine) ComputeDefaulters(ctx context.Context, tenantID string, overdueDays int, class string) (Report, error) {
	if overdueDays < 0 {
		return Report{}, core.NewValidationError(ErrNegativeThreshold, core.FieldError{Field: "daysOverdue", Error: ErrNegativeThreshold.Error()})
	}

	students, err := e.students.QueryActive(ctx, tenantID, class)
	if err != nil {
		return Report{}, errors.Wrap(err, "querying active students")
	}

	now := e.NowFunc()
	report := Report{TotalDue: decimal.Zero, Defaulters: make([]Defaulter, 0)}
	feesByClass := make(map[string][]fee.FeeStructure)

	for _, std := range students {
		unpaid, err := e.UnpaidInstallments(ctx, tenantID, std, feesByClass)
		if err != nil {
			return Report{}, err
		}

		d := Defaulter{
			StudentID:  std.ID,
			Name:       std.Name,
			RollNumber: std.RollNumber,
			ClassName:  std.Class,
			TotalDue:   decimal.Zero,
		}
		for _, u := range unpaid {
			days := core.DaysBetween(u.Installment.DueDate, now)
			if days <= overdueDays {
				continue
			}
			d.OverdueInstallments = append(d.OverdueInstallments, OverdueInstallment{
				FeeStructureID:    u.FeeStructure.ID,
				FeeStructureTitle: u.FeeStructure.Title,
				InstallmentID:     u.Installment.ID,
				InstallmentLabel:  u.Installment.Label,
				Amount:            u.Installment.Amount,
				DueDate:           core.Date{Time: u.Installment.DueDate},
				DaysOverdue:       days,
			})
			d.TotalDue = d.TotalDue.Add(u.Installment.Amount)
		}
		if len(d.OverdueInstallments) == 0 {
			continue
		}

		report.Defaulters = append(report.Defaulters, d)
		report.TotalDue = report.TotalDue.Add(d.TotalDue)
	}

	sort.SliceStable(report.Defaulters, func(i, j int) bool {
		return report.Defaulters[i].TotalDue.GreaterThan(report.Defaulters[j].TotalDue)
	})
	report.Count = len(report.Defaulters)
	return report, nil
}

// UnpaidInstallments lists, in fee structure then installment order, the installments `std` owes
// without a completed payment. feesByClass memoises fee structures per class; it may be nil.
func (e *Engine) UnpaidInstallments(
	ctx context.Context,
	tenantID string,
	std student.Student,
	feesByClass map[string][]fee.FeeStructure,
) ([]UnpaidInstallment, error) {
	fss, ok := feesByClass[std.Class]
	if !ok {
		var err error
		if fss, err = e.fees.ForClass(ctx, tenantID, std.Class); err != nil {
			return nil, errors.Wrapf(err, "querying fee structures of class %q", std.Class)
		}
		if feesByClass != nil {
			feesByClass[std.Class] = fss
		}
	}
	if len(fss) == 0 {
		return nil, nil
	}

	paid, err := e.payments.PaidInstallments(ctx, tenantID, std.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "querying payments of student %s", std.ID)
	}

	var unpaid []UnpaidInstallment
	for _, fs := range fss {
		for _, inst := range fs.Installments {
			if paid[payment.InstallmentKey{FeeStructureID: fs.ID, InstallmentID: inst.ID}] {
				continue
			}
			unpaid = append(unpaid, UnpaidInstallment{FeeStructure: fs, Installment: inst})
		}
	}
	return unpaid, nil
}

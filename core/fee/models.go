package fee

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/ada/core"
)

type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "pending"
	InstallmentPaid    InstallmentStatus = "paid"
	InstallmentOverdue InstallmentStatus = "overdue"
)

var ErrInstallmentsSum = errors.New("sum of installment amounts must equal the total amount")

// Installment is one scheduled portion of a FeeStructure.
// Its Status is a projection written by payment intake; completed payments are the source of truth.
type Installment struct {
	ID      string            `json:"id"`
	Label   string            `json:"label"`
	Amount  decimal.Decimal   `json:"amount"`
	DueDate time.Time         `json:"dueDate"`
	Status  InstallmentStatus `json:"status"`
}

// FeeStructure is a named fee schedule applying to a set of classes of one Tenant.
type FeeStructure struct {
	ID                string          `json:"id"`
	TenantID          string          `json:"tenantId"`
	Title             string          `json:"title"`
	Description       string          `json:"description,omitempty"`
	TotalAmount       decimal.Decimal `json:"totalAmount"`
	AcademicYear      string          `json:"academicYear"`
	ApplicableClasses []string        `json:"applicableClasses"`
	Installments      []Installment   `json:"installments"`
	CreatedAt         time.Time       `json:"createdAt"` // UTC
	UpdatedAt         time.Time       `json:"updatedAt"` // UTC
}

// AppliesTo reports whether students of `class` owe this fee structure.
func (fs FeeStructure) AppliesTo(class string) bool {
	for _, c := range fs.ApplicableClasses {
		if c == class {
			return true
		}
	}
	return false
}

// Installment returns the installment with the given ID.
func (fs FeeStructure) Installment(id string) (Installment, bool) {
	for _, inst := range fs.Installments {
		if inst.ID == id {
			return inst, true
		}
	}
	return Installment{}, false
}

type NewInstallment struct {
	Label   string          `json:"label" validate:"required,max=100"`
	Amount  decimal.Decimal `json:"amount" validate:"gte=0,money"`
	DueDate core.Date       `json:"dueDate" validate:"required"`
}

// NewFeeStructure contains information needed to create a FeeStructure.
type NewFeeStructure struct {
	TenantID          string           `json:"-"`
	Title             string           `json:"title" validate:"required,max=100"`
	Description       string           `json:"description" validate:"max=1000"`
	TotalAmount       decimal.Decimal  `json:"totalAmount" validate:"gte=0,money"`
	AcademicYear      string           `json:"academicYear" validate:"required,max=20"`
	ApplicableClasses []string         `json:"applicableClasses" validate:"required,min=1,dive,required"`
	Installments      []NewInstallment `json:"installments" validate:"required,min=1,dive"`
}

// Validate checks the request and that the installment amounts add up to the total amount.
func (nfs *NewFeeStructure) Validate(validate *validator.Validate) error {
	nfs.Title = core.CleanString(nfs.Title)
	nfs.Description = core.CleanString(nfs.Description)
	nfs.AcademicYear = core.CleanString(nfs.AcademicYear)
	nfs.ApplicableClasses = core.CleanStrings(nfs.ApplicableClasses)
	for i := range nfs.Installments {
		nfs.Installments[i].Label = core.CleanString(nfs.Installments[i].Label)
	}

	if err := validate.Struct(nfs); err != nil {
		return err
	}

	amounts := make([]decimal.Decimal, 0, len(nfs.Installments))
	for _, inst := range nfs.Installments {
		amounts = append(amounts, inst.Amount)
	}
	if !core.SumAmounts(amounts...).Equal(nfs.TotalAmount) {
		return core.NewValidationError(ErrInstallmentsSum, core.FieldError{Field: "installments", Error: ErrInstallmentsSum.Error()})
	}
	return nil
}

type QueryFilter struct {
	TenantID     string `query:"-"`
	Search       string `query:"search"`
	AcademicYear string `query:"academicYear"`
	Class        string `query:"class"`
	Page         core.Page
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.AcademicYear = core.CleanString(qf.AcademicYear)
	qf.Class = core.CleanString(qf.Class)
}

// Page is one page of fee structures, newest first.
type Page struct {
	FeeStructures []FeeStructure `json:"feeStructures"`
	Pagination    Pagination     `json:"pagination"`
}

type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

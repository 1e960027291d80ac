package payment

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/trezcool/ada/core"
)

type (
	Method string
	Status string
)

const (
	MethodCash         Method = "cash"
	MethodBankTransfer Method = "bank_transfer"
	MethodCheque       Method = "cheque"
	MethodOnline       Method = "online"

	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

type Payment struct {
	ID             string          `json:"id"`
	TenantID       string          `json:"tenantId"`
	StudentID      string          `json:"studentId"`
	FeeStructureID string          `json:"feeStructureId"`
	InstallmentID  string          `json:"installmentId"`
	Amount         decimal.Decimal `json:"amount"`
	PaymentDate    time.Time       `json:"paymentDate"`
	Method         Method          `json:"paymentMethod"`
	TransactionID  string          `json:"transactionId,omitempty"`
	Status         Status          `json:"status"`
	ReceiptURL     string          `json:"receiptUrl,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	IdempotencyKey string          `json:"idempotencyKey,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"` // UTC
	UpdatedAt      time.Time       `json:"updatedAt"` // UTC
}

// InstallmentKey identifies one installment of one fee structure.
type InstallmentKey struct {
	FeeStructureID string
	InstallmentID  string
}

func (p Payment) InstallmentKey() InstallmentKey {
	return InstallmentKey{FeeStructureID: p.FeeStructureID, InstallmentID: p.InstallmentID}
}

// matches reports whether `p` records the payment described by `np`.
func (p Payment) matches(np NewPayment) bool {
	return p.StudentID == np.StudentID &&
		p.FeeStructureID == np.FeeStructureID &&
		p.InstallmentID == np.InstallmentID &&
		p.Amount.Equal(np.Amount) &&
		p.Method == np.Method
}

// NewPayment contains information needed to record a Payment against an installment.
type NewPayment struct {
	StudentID      string          `json:"studentId" validate:"required"`
	FeeStructureID string          `json:"feeStructureId" validate:"required"`
	InstallmentID  string          `json:"installmentId" validate:"required"`
	Amount         decimal.Decimal `json:"amount" validate:"gte=0,money"`
	Method         Method          `json:"paymentMethod" validate:"required,oneof=cash bank_transfer cheque online"`
	TransactionID  string          `json:"transactionId" validate:"max=100"`
	Notes          string          `json:"notes" validate:"max=1000"`
	IdempotencyKey string          `json:"idempotencyKey" validate:"max=100"`
}

func (np *NewPayment) Validate(validate *validator.Validate) error {
	np.StudentID = core.CleanString(np.StudentID)
	np.FeeStructureID = core.CleanString(np.FeeStructureID)
	np.InstallmentID = core.CleanString(np.InstallmentID)
	np.TransactionID = core.CleanString(np.TransactionID)
	np.Notes = core.CleanString(np.Notes)
	np.IdempotencyKey = core.CleanString(np.IdempotencyKey)
	return validate.Struct(np)
}

type QueryFilter struct {
	TenantID       string    `query:"-"`
	StudentID      string    `query:"studentId"`
	FeeStructureID string    `query:"feeStructureId"`
	InstallmentID  string    `query:"installmentId"`
	Statuses       []Status  `query:"status"`
	Methods        []Method  `query:"paymentMethod"`
	PaidFrom       time.Time `query:"paidFrom"` // inclusive
	PaidTo         time.Time `query:"paidTo"`   // exclusive
}

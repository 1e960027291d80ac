package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/ada/core"
	"github.com/trezcool/ada/core/fee"
	"github.com/trezcool/ada/core/notify"
	"github.com/trezcool/ada/core/receipt"
	"github.com/trezcool/ada/core/student"
	"github.com/trezcool/ada/core/tenant"
)

var (
	// errors
	ErrNotFound                = core.NewNotFoundError("payment not found")
	ErrNotRefundable           = errors.New("only completed payments can be refunded")
	ErrIdempotencyKeyReused    = errors.New("idempotency key already used for a different payment")
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		// CreatePayment fails with ErrDuplicateIdempotencyKey when the tenant already has a payment with the key.
		CreatePayment(ctx context.Context, p Payment) (Payment, error)
		GetPayment(ctx context.Context, tenantID, id string) (Payment, error)
		GetPaymentByIdempotencyKey(ctx context.Context, tenantID, key string) (Payment, error)
		// QueryPayments returns matching payments, latest payment date first.
		QueryPayments(ctx context.Context, filter QueryFilter) ([]Payment, error)
		CountPayments(ctx context.Context, filter QueryFilter) (int, error)
		SumPayments(ctx context.Context, filter QueryFilter) (decimal.Decimal, error)
		// PaidInstallments lists the installments the student has a completed payment for.
		PaidInstallments(ctx context.Context, tenantID, studentID string) ([]InstallmentKey, error)
		UpdatePayment(ctx context.Context, p Payment) (Payment, error)
	}

	ReceiptGenerator interface {
		Generate(ctx context.Context, data receipt.Data) (string, error)
	}

	ServiceInterface interface {
		RecordPayment(ctx context.Context, tenantID string, np NewPayment) (Payment, error)
		Refund(ctx context.Context, tenantID, id string) (Payment, error)
		Query(ctx context.Context, filter QueryFilter) ([]Payment, error)
		Count(ctx context.Context, filter QueryFilter) (int, error)
		Sum(ctx context.Context, filter QueryFilter) (decimal.Decimal, error)
		PaidInstallments(ctx context.Context, tenantID, studentID string) (map[InstallmentKey]bool, error)
		GetByID(ctx context.Context, tenantID, id string) (Payment, error)
	}

	ServiceDeps struct {
		Repo     Repository
		Students student.ServiceInterface
		Fees     fee.ServiceInterface
		Tenants  tenant.ServiceInterface
		Receipts ReceiptGenerator
		Notifier notify.Notifier
		Logger   core.Logger
	}

	Service struct {
		repo     Repository
		students student.ServiceInterface
		fees     fee.ServiceInterface
		tenants  tenant.ServiceInterface
		receipts ReceiptGenerator
		notifier notify.Notifier
		logger   core.Logger
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(deps ServiceDeps) *Service {
	return &Service{
		repo:     deps.Repo,
		students: deps.Students,
		fees:     deps.Fees,
		tenants:  deps.Tenants,
		receipts: deps.Receipts,
		notifier: deps.Notifier,
		logger:   deps.Logger,
	}
}

// RecordPayment records a completed payment for an installment of a student.
// Loading and persisting fail fast; the receipt, the installment status and the notifications are
// best-effort since the payment is already committed by then.
// A request carrying a known idempotency key returns the stored payment without side effects,
// provided it describes the same payment.
func (svc *Service) RecordPayment(ctx context.Context, tenantID string, np NewPayment) (Payment, error) {
	std, err := svc.students.GetByID(ctx, tenantID, np.StudentID)
	if err != nil {
		return Payment{}, errors.Wrap(err, "finding student")
	}
	fs, err := svc.fees.GetByID(ctx, tenantID, np.FeeStructureID)
	if err != nil {
		return Payment{}, errors.Wrap(err, "finding fee structure")
	}
	if _, ok := fs.Installment(np.InstallmentID); !ok {
		return Payment{}, fee.ErrInstallmentNotFound
	}

	if np.IdempotencyKey != "" {
		p, err := svc.replay(ctx, tenantID, np)
		if err == nil || !core.IsNotFound(err) {
			return p, err
		}
	}

	now := NowFunc().UTC()
	p, err := svc.repo.CreatePayment(ctx, Payment{
		ID:             uuid.New().String(),
		TenantID:       tenantID,
		StudentID:      std.ID,
		FeeStructureID: fs.ID,
		InstallmentID:  np.InstallmentID,
		Amount:         np.Amount,
		PaymentDate:    now,
		Method:         np.Method,
		TransactionID:  np.TransactionID,
		Status:         StatusCompleted,
		Notes:          np.Notes,
		IdempotencyKey: np.IdempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if errors.Is(err, ErrDuplicateIdempotencyKey) {
		// lost a race against a request with the same key
		return svc.replay(ctx, tenantID, np)
	}
	if err != nil {
		return Payment{}, errors.Wrap(err, "creating payment")
	}

	if url, err := svc.generateReceipt(ctx, p, std); err != nil {
		svc.logger.Error(fmt.Sprintf("payment %s: generating receipt: %v", p.ID, err), err)
	} else {
		p.ReceiptURL = url
		p.UpdatedAt = NowFunc().UTC()
		if updated, err := svc.repo.UpdatePayment(ctx, p); err != nil {
			svc.logger.Error(fmt.Sprintf("payment %s: saving receipt URL: %v", p.ID, err), err)
		} else {
			p = updated
		}
	}

	if _, err = svc.fees.MarkInstallmentPaid(ctx, fs, np.InstallmentID); err != nil {
		svc.logger.Error(fmt.Sprintf("payment %s: marking installment %s paid: %v", p.ID, np.InstallmentID, err), err)
	}

	contact := notify.Contact{Email: std.ContactEmail(), Phone: std.ContactPhone()}
	svc.notifier.SendReceipt(ctx, contact, std.Name, p.Amount, p.ReceiptURL)

	return p, nil
}

// replay returns the payment already recorded under the idempotency key of `np`.
func (svc *Service) replay(ctx context.Context, tenantID string, np NewPayment) (Payment, error) {
	p, err := svc.repo.GetPaymentByIdempotencyKey(ctx, tenantID, np.IdempotencyKey)
	if err != nil {
		if core.IsNotFound(err) {
			return Payment{}, err
		}
		return Payment{}, errors.Wrap(err, "checking idempotency key")
	}
	if !p.matches(np) {
		return Payment{}, core.NewValidationError(
			ErrIdempotencyKeyReused,
			core.FieldError{Field: "idempotencyKey", Error: ErrIdempotencyKeyReused.Error()},
		)
	}
	return p, nil
}

func (svc *Service) generateReceipt(ctx context.Context, p Payment, std student.Student) (string, error) {
	t, err := svc.tenants.GetByID(ctx, p.TenantID)
	if err != nil {
		return "", errors.Wrap(err, "finding tenant")
	}
	return svc.receipts.Generate(ctx, receipt.Data{
		TenantID:           p.TenantID,
		ReceiptNumber:      receipt.Number(p.PaymentDate, p.ID),
		Date:               p.PaymentDate.In(t.Location()),
		InstitutionName:    t.Name,
		InstitutionAddress: t.FormattedAddress(),
		StudentName:        std.Name,
		RollNumber:         std.RollNumber,
		ClassName:          std.Class,
		Amount:             p.Amount,
		Currency:           t.Settings.Currency,
		PaymentMethod:      string(p.Method),
		TransactionID:      p.TransactionID,
	})
}

// Refund transitions a completed payment to refunded.
// The installment goes back to pending once no completed payment covers it anymore.
func (svc *Service) Refund(ctx context.Context, tenantID, id string) (Payment, error) {
	p, err := svc.repo.GetPayment(ctx, tenantID, id)
	if err != nil {
		return Payment{}, errors.Wrap(err, "finding payment")
	}
	if p.Status != StatusCompleted {
		return Payment{}, core.NewValidationError(ErrNotRefundable, core.FieldError{Field: "status", Error: ErrNotRefundable.Error()})
	}
	p.Status = StatusRefunded
	p.UpdatedAt = NowFunc().UTC()
	if p, err = svc.repo.UpdatePayment(ctx, p); err != nil {
		return Payment{}, err
	}

	if err := svc.reopenInstallment(ctx, p); err != nil {
		svc.logger.Error(fmt.Sprintf("payment %s: reopening installment %s: %v", p.ID, p.InstallmentID, err), err)
	}
	return p, nil
}

func (svc *Service) reopenInstallment(ctx context.Context, p Payment) error {
	n, err := svc.repo.CountPayments(ctx, QueryFilter{
		TenantID:       p.TenantID,
		FeeStructureID: p.FeeStructureID,
		InstallmentID:  p.InstallmentID,
		Statuses:       []Status{StatusCompleted},
	})
	if err != nil {
		return errors.Wrap(err, "counting completed payments")
	}
	if n > 0 {
		return nil
	}
	fs, err := svc.fees.GetByID(ctx, p.TenantID, p.FeeStructureID)
	if err != nil {
		return errors.Wrap(err, "finding fee structure")
	}
	_, err = svc.fees.SetInstallmentStatus(ctx, fs, p.InstallmentID, fee.InstallmentPending)
	return err
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Payment, error) {
	return svc.repo.QueryPayments(ctx, filter)
}

func (svc *Service) Count(ctx context.Context, filter QueryFilter) (int, error) {
	return svc.repo.CountPayments(ctx, filter)
}

func (svc *Service) Sum(ctx context.Context, filter QueryFilter) (decimal.Decimal, error) {
	return svc.repo.SumPayments(ctx, filter)
}

// PaidInstallments returns the set of installments the student has a completed payment for.
func (svc *Service) PaidInstallments(ctx context.Context, tenantID, studentID string) (map[InstallmentKey]bool, error) {
	keys, err := svc.repo.PaidInstallments(ctx, tenantID, studentID)
	if err != nil {
		return nil, err
	}
	paid := make(map[InstallmentKey]bool, len(keys))
	for _, k := range keys {
		paid[k] = true
	}
	return paid, nil
}

func (svc *Service) GetByID(ctx context.Context, tenantID, id string) (Payment, error) {
	return svc.repo.GetPayment(ctx, tenantID, id)
}

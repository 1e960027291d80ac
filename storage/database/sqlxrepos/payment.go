package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ada/core"
	"github.com/trezcool/ada/core/payment"
)

const (
	paymentColumns = `id, tenant_id, student_id, fee_structure_id, installment_id, amount, payment_date,
	payment_method, transaction_id, status, receipt_url, notes, idempotency_key, created_at, updated_at`

	idempotencyIndex = "payments_idempotency_idx"
)

type paymentRow struct {
	ID             string          `db:"id"`
	TenantID       string          `db:"tenant_id"`
	StudentID      string          `db:"student_id"`
	FeeStructureID string          `db:"fee_structure_id"`
	InstallmentID  string          `db:"installment_id"`
	Amount         decimal.Decimal `db:"amount"`
	PaymentDate    time.Time       `db:"payment_date"`
	PaymentMethod  string          `db:"payment_method"`
	TransactionID  null.String     `db:"transaction_id"`
	Status         string          `db:"status"`
	ReceiptURL     null.String     `db:"receipt_url"`
	Notes          null.String     `db:"notes"`
	IdempotencyKey null.String     `db:"idempotency_key"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

func toPaymentRow(p payment.Payment) paymentRow {
	return paymentRow{
		ID:             p.ID,
		TenantID:       p.TenantID,
		StudentID:      p.StudentID,
		FeeStructureID: p.FeeStructureID,
		InstallmentID:  p.InstallmentID,
		Amount:         p.Amount,
		PaymentDate:    p.PaymentDate.UTC(),
		PaymentMethod:  string(p.Method),
		TransactionID:  nullString(p.TransactionID),
		Status:         string(p.Status),
		ReceiptURL:     nullString(p.ReceiptURL),
		Notes:          nullString(p.Notes),
		IdempotencyKey: nullString(p.IdempotencyKey),
		CreatedAt:      p.CreatedAt.UTC(),
		UpdatedAt:      p.UpdatedAt.UTC(),
	}
}

func (r paymentRow) payment() payment.Payment {
	return payment.Payment{
		ID:             r.ID,
		TenantID:       r.TenantID,
		StudentID:      r.StudentID,
		FeeStructureID: r.FeeStructureID,
		InstallmentID:  r.InstallmentID,
		Amount:         r.Amount,
		PaymentDate:    r.PaymentDate.UTC(),
		Method:         payment.Method(r.PaymentMethod),
		TransactionID:  r.TransactionID.String,
		Status:         payment.Status(r.Status),
		ReceiptURL:     r.ReceiptURL.String,
		Notes:          r.Notes.String,
		IdempotencyKey: r.IdempotencyKey.String,
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
	}
}

type paymentRepository struct {
	exec core.DBExecutor
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(exec core.DBExecutor) payment.Repository {
	return &paymentRepository{exec: exec}
}

// CreatePayment inserts `p`; it fails with payment.ErrDuplicateIdempotencyKey when the key is taken.
func (repo *paymentRepository) CreatePayment(ctx context.Context, p payment.Payment) (payment.Payment, error) {
	q := `INSERT INTO payments (` + paymentColumns + `) VALUES (:id, :tenant_id, :student_id, :fee_structure_id,
		:installment_id, :amount, :payment_date, :payment_method, :transaction_id, :status, :receipt_url, :notes,
		:idempotency_key, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.exec, q, toPaymentRow(p)); err != nil {
		if p.IdempotencyKey != "" && isUniqueViolation(err, idempotencyIndex) {
			return payment.Payment{}, payment.ErrDuplicateIdempotencyKey
		}
		return payment.Payment{}, errors.Wrap(err, "inserting payment")
	}
	return p, nil
}

func (repo *paymentRepository) GetPayment(ctx context.Context, tenantID, id string) (payment.Payment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return payment.Payment{}, payment.ErrNotFound
	}
	var row paymentRow
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 AND tenant_id = $2`
	if err := repo.exec.GetContext(ctx, &row, q, id, tenantID); err != nil {
		return payment.Payment{}, trapNoRowsErr(err, payment.ErrNotFound, "finding payment")
	}
	return row.payment(), nil
}

func (repo *paymentRepository) GetPaymentByIdempotencyKey(ctx context.Context, tenantID, key string) (payment.Payment, error) {
	var row paymentRow
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE tenant_id = $1 AND idempotency_key = $2`
	if err := repo.exec.GetContext(ctx, &row, q, tenantID, key); err != nil {
		return payment.Payment{}, trapNoRowsErr(err, payment.ErrNotFound, "finding payment by idempotency key")
	}
	return row.payment(), nil
}

func paymentWhere(filter payment.QueryFilter) where {
	var w where
	w.add(`tenant_id = ?`, filter.TenantID)
	if filter.StudentID != "" {
		w.add(`student_id = ?`, filter.StudentID)
	}
	if filter.FeeStructureID != "" {
		w.add(`fee_structure_id = ?`, filter.FeeStructureID)
	}
	if filter.InstallmentID != "" {
		w.add(`installment_id = ?`, filter.InstallmentID)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		w.add(`status = ANY(?)`, pq.Array(statuses))
	}
	if len(filter.Methods) > 0 {
		methods := make([]string, 0, len(filter.Methods))
		for _, m := range filter.Methods {
			methods = append(methods, string(m))
		}
		w.add(`payment_method = ANY(?)`, pq.Array(methods))
	}
	if !filter.PaidFrom.IsZero() {
		w.add(`payment_date >= ?`, filter.PaidFrom.UTC())
	}
	if !filter.PaidTo.IsZero() {
		w.add(`payment_date < ?`, filter.PaidTo.UTC())
	}
	return w
}

func (repo *paymentRepository) QueryPayments(ctx context.Context, filter payment.QueryFilter) ([]payment.Payment, error) {
	w := paymentWhere(filter)
	q := `SELECT ` + paymentColumns + ` FROM payments` + w.String() + ` ORDER BY payment_date DESC, id`

	var rows []paymentRow
	if err := repo.exec.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying payments")
	}
	payments := make([]payment.Payment, 0, len(rows))
	for _, r := range rows {
		payments = append(payments, r.payment())
	}
	return payments, nil
}

func (repo *paymentRepository) CountPayments(ctx context.Context, filter payment.QueryFilter) (int, error) {
	w := paymentWhere(filter)
	var n int
	if err := repo.exec.GetContext(ctx, &n, `SELECT COUNT(*) FROM payments`+w.String(), w.args...); err != nil {
		return 0, errors.Wrap(err, "counting payments")
	}
	return n, nil
}

func (repo *paymentRepository) SumPayments(ctx context.Context, filter payment.QueryFilter) (decimal.Decimal, error) {
	w := paymentWhere(filter)
	var total decimal.Decimal
	if err := repo.exec.GetContext(ctx, &total, `SELECT COALESCE(SUM(amount), 0) FROM payments`+w.String(), w.args...); err != nil {
		return decimal.Zero, errors.Wrap(err, "summing payments")
	}
	return total, nil
}

func (repo *paymentRepository) PaidInstallments(ctx context.Context, tenantID, studentID string) ([]payment.InstallmentKey, error) {
	var rows []struct {
		FeeStructureID string `db:"fee_structure_id"`
		InstallmentID  string `db:"installment_id"`
	}
	q := `SELECT DISTINCT fee_structure_id, installment_id FROM payments
		WHERE tenant_id = $1 AND student_id = $2 AND status = $3`
	if err := repo.exec.SelectContext(ctx, &rows, q, tenantID, studentID, string(payment.StatusCompleted)); err != nil {
		return nil, errors.Wrap(err, "querying paid installments")
	}
	keys := make([]payment.InstallmentKey, 0, len(rows))
	for _, r := range rows {
		keys = append(keys, payment.InstallmentKey{FeeStructureID: r.FeeStructureID, InstallmentID: r.InstallmentID})
	}
	return keys, nil
}

func (repo *paymentRepository) UpdatePayment(ctx context.Context, p payment.Payment) (payment.Payment, error) {
	q := `UPDATE payments SET amount = :amount, payment_method = :payment_method, transaction_id = :transaction_id,
		status = :status, receipt_url = :receipt_url, notes = :notes, updated_at = :updated_at
		WHERE id = :id AND tenant_id = :tenant_id`
	res, err := sqlx.NamedExecContext(ctx, repo.exec, q, toPaymentRow(p))
	if err != nil {
		return payment.Payment{}, errors.Wrap(err, "updating payment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return payment.Payment{}, payment.ErrNotFound
	}
	return p, nil
}

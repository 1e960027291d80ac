package sqlxrepos

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/ada/core/payment"
)

var paymentCols = []string{"id", "tenant_id", "student_id", "fee_structure_id", "installment_id", "amount", "payment_date",
	"payment_method", "transaction_id", "status", "receipt_url", "notes", "idempotency_key", "created_at", "updated_at"}

func TestPaymentRepository_CreatePayment_duplicateIdempotencyKey(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)

	paidAt := time.Date(2024, time.September, 3, 8, 30, 0, 0, time.UTC)
	p := payment.Payment{
		ID:             uuid.New().String(),
		TenantID:       "t1",
		StudentID:      "s1",
		FeeStructureID: "f1",
		InstallmentID:  "i1",
		Amount:         decimal.NewFromInt(5000),
		PaymentDate:    paidAt,
		Method:         payment.MethodCash,
		Status:         payment.StatusCompleted,
		IdempotencyKey: "key-1",
	}

	mock.ExpectExec(`INSERT INTO payments`).
		WillReturnError(&pq.Error{Code: uniqueViolation, Constraint: idempotencyIndex})

	_, err := repo.CreatePayment(context.Background(), p)
	assert.Equal(t, payment.ErrDuplicateIdempotencyKey, err)

	// other unique violations are plain errors
	mock.ExpectExec(`INSERT INTO payments`).WillReturnError(&pq.Error{Code: uniqueViolation, Constraint: "payments_pkey"})
	_, err = repo.CreatePayment(context.Background(), p)
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_QueryPayments(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)

	from := time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, time.August, 1, 0, 0, 0, 0, time.UTC)
	filter := payment.QueryFilter{
		TenantID:  "t1",
		StudentID: "s1",
		Statuses:  []payment.Status{payment.StatusCompleted},
		PaidFrom:  from,
		PaidTo:    to,
	}

	mock.ExpectQuery(`SELECT .+ FROM payments WHERE tenant_id = \$1 AND student_id = \$2 AND status = ANY\(\$3\) ` +
		`AND payment_date >= \$4 AND payment_date < \$5 ORDER BY payment_date DESC, id`).
		WithArgs("t1", "s1", sqlmock.AnyArg(), from, to).
		WillReturnRows(sqlmock.NewRows(paymentCols).AddRow(
			"p1", "t1", "s1", "f1", "i1", "250.50", from, "online", "TX-1", "completed", nil, "July", nil, from, from))
	payments, err := repo.QueryPayments(context.Background(), filter)
	if assert.NoError(t, err) && assert.Len(t, payments, 1) {
		assert.Equal(t, "p1", payments[0].ID)
		assert.Equal(t, payment.MethodOnline, payments[0].Method)
		assert.Equal(t, "TX-1", payments[0].TransactionID)
		assert.Equal(t, "July", payments[0].Notes)
		assert.Empty(t, payments[0].ReceiptURL)
		assert.True(t, payments[0].Amount.Equal(decimal.RequireFromString("250.5")))
	}

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(amount\), 0\) FROM payments WHERE tenant_id = \$1`).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("1850.00"))
	total, err := repo.SumPayments(context.Background(), payment.QueryFilter{TenantID: "t1"})
	assert.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(1850)), "total = %s", total)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM payments WHERE tenant_id = \$1`).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	n, err := repo.CountPayments(context.Background(), payment.QueryFilter{TenantID: "t1"})
	assert.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_PaidInstallments(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)

	mock.ExpectQuery(`SELECT DISTINCT fee_structure_id, installment_id FROM payments`).
		WithArgs("t1", "s1", "completed").
		WillReturnRows(sqlmock.NewRows([]string{"fee_structure_id", "installment_id"}).
			AddRow("f1", "i1").
			AddRow("f1", "i2"))

	keys, err := repo.PaidInstallments(context.Background(), "t1", "s1")
	assert.NoError(t, err)
	assert.Equal(t, []payment.InstallmentKey{
		{FeeStructureID: "f1", InstallmentID: "i1"},
		{FeeStructureID: "f1", InstallmentID: "i2"},
	}, keys)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_UpdatePayment_notFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)

	mock.ExpectExec(`UPDATE payments SET`).WillReturnResult(sqlmock.NewResult(0, 0))
	_, err := repo.UpdatePayment(context.Background(), payment.Payment{ID: "p1", TenantID: "t1"})
	assert.Equal(t, payment.ErrNotFound, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

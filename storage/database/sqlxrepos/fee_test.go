package sqlxrepos

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/ada/core/fee"
)

func TestFeeRepository_CreateFeeStructure(t *testing.T) {
	fs := fee.FeeStructure{
		ID:                "f1",
		TenantID:          "t1",
		Title:             "Tuition",
		TotalAmount:       decimal.NewFromInt(200),
		AcademicYear:      "2024-2025",
		ApplicableClasses: []string{"9", "10"},
		Installments: []fee.Installment{
			{ID: "i1", Label: "Q1", Amount: decimal.NewFromInt(100), DueDate: time.Date(2024, time.August, 1, 0, 0, 0, 0, time.UTC), Status: fee.InstallmentPending},
			{ID: "i2", Label: "Q2", Amount: decimal.NewFromInt(100), DueDate: time.Date(2024, time.November, 1, 0, 0, 0, 0, time.UTC), Status: fee.InstallmentPending},
		},
	}

	t.Run("committed", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewFeeRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO fee_structures`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO installments`).
			WithArgs("i1", "f1", 0, "Q1", sqlmock.AnyArg(), fs.Installments[0].DueDate, "pending").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO installments`).
			WithArgs("i2", "f1", 1, "Q2", sqlmock.AnyArg(), fs.Installments[1].DueDate, "pending").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		got, err := repo.CreateFeeStructure(context.Background(), fs)
		assert.NoError(t, err)
		assert.Equal(t, fs, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolled back", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewFeeRepository(db)

		boom := errors.New("boom")
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO fee_structures`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO installments`).WillReturnError(boom)
		mock.ExpectRollback()

		_, err := repo.CreateFeeStructure(context.Background(), fs)
		assert.True(t, errors.Is(err, boom), "error = %v", err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

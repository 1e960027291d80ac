package inmemdb

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/trezcool/ada/core/payment"
)

type paymentRepository struct {
	db *paymentTable
}

var _ payment.Repository = (*paymentRepository)(nil)

func NewPaymentRepository(db *DB) payment.Repository {
	return &paymentRepository{db: db.payment}
}

func (repo *paymentRepository) CreatePayment(_ context.Context, p payment.Payment) (payment.Payment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if p.IdempotencyKey != "" {
		for _, id := range repo.db.ids {
			if other := repo.db.table[id]; other.TenantID == p.TenantID && other.IdempotencyKey == p.IdempotencyKey {
				return payment.Payment{}, payment.ErrDuplicateIdempotencyKey
			}
		}
	}
	repo.db.table[p.ID] = &p
	repo.db.ids = append(repo.db.ids, p.ID)
	return p, nil
}

func (repo *paymentRepository) GetPayment(_ context.Context, tenantID, id string) (payment.Payment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	p, ok := repo.db.table[id]
	if !ok || p.TenantID != tenantID {
		return payment.Payment{}, payment.ErrNotFound
	}
	return *p, nil
}

func (repo *paymentRepository) GetPaymentByIdempotencyKey(_ context.Context, tenantID, key string) (payment.Payment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, id := range repo.db.ids {
		if p := repo.db.table[id]; p.TenantID == tenantID && p.IdempotencyKey == key {
			return *p, nil
		}
	}
	return payment.Payment{}, payment.ErrNotFound
}

func matchPayment(p *payment.Payment, filter payment.QueryFilter) bool {
	switch {
	case p.TenantID != filter.TenantID:
		return false
	case filter.StudentID != "" && p.StudentID != filter.StudentID:
		return false
	case filter.FeeStructureID != "" && p.FeeStructureID != filter.FeeStructureID:
		return false
	case filter.InstallmentID != "" && p.InstallmentID != filter.InstallmentID:
		return false
	case !filter.PaidFrom.IsZero() && p.PaymentDate.Before(filter.PaidFrom):
		return false
	case !filter.PaidTo.IsZero() && !p.PaymentDate.Before(filter.PaidTo):
		return false
	}
	if len(filter.Statuses) > 0 {
		var found bool
		for _, s := range filter.Statuses {
			found = found || p.Status == s
		}
		if !found {
			return false
		}
	}
	if len(filter.Methods) > 0 {
		var found bool
		for _, m := range filter.Methods {
			found = found || p.Method == m
		}
		if !found {
			return false
		}
	}
	return true
}

func (repo *paymentRepository) filter(filter payment.QueryFilter) []payment.Payment {
	payments := make([]payment.Payment, 0)
	for _, id := range repo.db.ids {
		if p := repo.db.table[id]; matchPayment(p, filter) {
			payments = append(payments, *p)
		}
	}
	return payments
}

func (repo *paymentRepository) QueryPayments(_ context.Context, filter payment.QueryFilter) ([]payment.Payment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	payments := repo.filter(filter)
	sort.SliceStable(payments, func(i, j int) bool { return payments[i].PaymentDate.After(payments[j].PaymentDate) })
	return payments, nil
}

func (repo *paymentRepository) CountPayments(_ context.Context, filter payment.QueryFilter) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return len(repo.filter(filter)), nil
}

func (repo *paymentRepository) SumPayments(_ context.Context, filter payment.QueryFilter) (decimal.Decimal, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	total := decimal.Zero
	for _, p := range repo.filter(filter) {
		total = total.Add(p.Amount)
	}
	return total, nil
}

func (repo *paymentRepository) PaidInstallments(_ context.Context, tenantID, studentID string) ([]payment.InstallmentKey, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	filter := payment.QueryFilter{TenantID: tenantID, StudentID: studentID, Statuses: []payment.Status{payment.StatusCompleted}}
	seen := make(map[payment.InstallmentKey]bool)
	keys := make([]payment.InstallmentKey, 0)
	for _, p := range repo.filter(filter) {
		if k := p.InstallmentKey(); !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (repo *paymentRepository) UpdatePayment(_ context.Context, p payment.Payment) (payment.Payment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[p.ID]
	if !ok || orig.TenantID != p.TenantID {
		return payment.Payment{}, payment.ErrNotFound
	}
	repo.db.table[p.ID] = &p
	return p, nil
}

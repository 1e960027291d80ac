package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/ada/core/fee"
)

type feeRepository struct {
	db *feeTable
}

var _ fee.Repository = (*feeRepository)(nil)

func NewFeeRepository(db *DB) fee.Repository {
	return &feeRepository{db: db.fee}
}

// clone copies the slices of `fs` so stored rows never share memory with callers.
func clone(fs fee.FeeStructure) fee.FeeStructure {
	fs.ApplicableClasses = append([]string(nil), fs.ApplicableClasses...)
	fs.Installments = append([]fee.Installment(nil), fs.Installments...)
	return fs
}

func (repo *feeRepository) CreateFeeStructure(_ context.Context, fs fee.FeeStructure) (fee.FeeStructure, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	stored := clone(fs)
	repo.db.table[fs.ID] = &stored
	repo.db.ids = append(repo.db.ids, fs.ID)
	return clone(stored), nil
}

func (repo *feeRepository) get(tenantID, id string) (*fee.FeeStructure, error) {
	fs, ok := repo.db.table[id]
	if !ok || fs.TenantID != tenantID {
		return nil, fee.ErrNotFound
	}
	return fs, nil
}

func (repo *feeRepository) GetFeeStructure(_ context.Context, tenantID, id string) (fee.FeeStructure, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	fs, err := repo.get(tenantID, id)
	if err != nil {
		return fee.FeeStructure{}, err
	}
	return clone(*fs), nil
}

func matchFeeStructure(fs *fee.FeeStructure, filter fee.QueryFilter) bool {
	if fs.TenantID != filter.TenantID {
		return false
	}
	if filter.AcademicYear != "" && fs.AcademicYear != filter.AcademicYear {
		return false
	}
	if filter.Class != "" && !fs.AppliesTo(filter.Class) {
		return false
	}
	return filter.Search == "" || containsFold(filter.Search, fs.Title, fs.Description)
}

func (repo *feeRepository) QueryFeeStructures(_ context.Context, filter fee.QueryFilter) ([]fee.FeeStructure, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	fss := make([]fee.FeeStructure, 0)
	for _, id := range repo.db.ids {
		if fs := repo.db.table[id]; matchFeeStructure(fs, filter) {
			fss = append(fss, clone(*fs))
		}
	}
	// newest first
	sort.SliceStable(fss, func(i, j int) bool { return fss[i].CreatedAt.After(fss[j].CreatedAt) })

	if filter.Page.Offset > 0 {
		if filter.Page.Offset >= len(fss) {
			return []fee.FeeStructure{}, nil
		}
		fss = fss[filter.Page.Offset:]
	}
	if filter.Page.Limit > 0 && filter.Page.Limit < len(fss) {
		fss = fss[:filter.Page.Limit]
	}
	return fss, nil
}

func (repo *feeRepository) CountFeeStructures(_ context.Context, filter fee.QueryFilter) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var n int
	for _, id := range repo.db.ids {
		if matchFeeStructure(repo.db.table[id], filter) {
			n++
		}
	}
	return n, nil
}

func (repo *feeRepository) SetInstallmentStatus(
	_ context.Context,
	tenantID, feeStructureID, installmentID string,
	status fee.InstallmentStatus,
) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	fs, err := repo.get(tenantID, feeStructureID)
	if err != nil {
		return err
	}
	for i := range fs.Installments {
		if fs.Installments[i].ID == installmentID {
			fs.Installments[i].Status = status
			return nil
		}
	}
	return fee.ErrInstallmentNotFound
}

func (repo *feeRepository) DeleteFeeStructure(_ context.Context, tenantID, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, err := repo.get(tenantID, id); err != nil {
		return err
	}
	delete(repo.db.table, id)
	repo.db.ids = removeID(repo.db.ids, id)
	return nil
}

package inmemdb

import (
	"context"

	"github.com/trezcool/ada/core/tenant"
)

type tenantRepository struct {
	db *tenantTable
}

var _ tenant.Repository = (*tenantRepository)(nil)

func NewTenantRepository(db *DB) tenant.Repository {
	return &tenantRepository{db: db.tenant}
}

func (repo *tenantRepository) CreateTenant(_ context.Context, t tenant.Tenant) (tenant.Tenant, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[t.ID] = &t
	repo.db.ids = append(repo.db.ids, t.ID)
	return t, nil
}

func (repo *tenantRepository) GetTenant(_ context.Context, filter tenant.GetFilter) (tenant.Tenant, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID != "" {
		if t, ok := repo.db.table[filter.ID]; ok {
			return *t, nil
		}
		return tenant.Tenant{}, tenant.ErrNotFound
	}
	if filter.Domain != "" {
		for _, id := range repo.db.ids {
			if t := repo.db.table[id]; t.Domain == filter.Domain {
				return *t, nil
			}
		}
	}
	return tenant.Tenant{}, tenant.ErrNotFound
}

func (repo *tenantRepository) QueryTenants(_ context.Context, filter *tenant.QueryFilter) ([]tenant.Tenant, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	tenants := make([]tenant.Tenant, 0, len(repo.db.ids))
	for _, id := range repo.db.ids {
		t := repo.db.table[id]
		if filter != nil && filter.Search != "" && !containsFold(filter.Search, t.Name, t.Domain) {
			continue
		}
		tenants = append(tenants, *t)
	}
	return tenants, nil
}

func (repo *tenantRepository) QueryTenantIDs(_ context.Context) ([]string, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return append([]string(nil), repo.db.ids...), nil
}

func (repo *tenantRepository) UpdateTenant(_ context.Context, t tenant.Tenant) (tenant.Tenant, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[t.ID]; !ok {
		return tenant.Tenant{}, tenant.ErrNotFound
	}
	repo.db.table[t.ID] = &t
	return t, nil
}

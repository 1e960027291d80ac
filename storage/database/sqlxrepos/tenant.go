package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ada/core"
	"github.com/trezcool/ada/core/tenant"
)

const tenantColumns = `id, name, domain, street, city, state, country, postal_code, email, phone,
	currency, language, timezone, created_at, updated_at`

type tenantRow struct {
	ID         string      `db:"id"`
	Name       string      `db:"name"`
	Domain     string      `db:"domain"`
	Street     null.String `db:"street"`
	City       null.String `db:"city"`
	State      null.String `db:"state"`
	Country    null.String `db:"country"`
	PostalCode null.String `db:"postal_code"`
	Email      null.String `db:"email"`
	Phone      null.String `db:"phone"`
	Currency   string      `db:"currency"`
	Language   string      `db:"language"`
	Timezone   string      `db:"timezone"`
	CreatedAt  time.Time   `db:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at"`
}

func toTenantRow(t tenant.Tenant) tenantRow {
	return tenantRow{
		ID:         t.ID,
		Name:       t.Name,
		Domain:     t.Domain,
		Street:     null.NewString(t.Address.Street, t.Address.Street != ""),
		City:       null.NewString(t.Address.City, t.Address.City != ""),
		State:      null.NewString(t.Address.State, t.Address.State != ""),
		Country:    null.NewString(t.Address.Country, t.Address.Country != ""),
		PostalCode: null.NewString(t.Address.PostalCode, t.Address.PostalCode != ""),
		Email:      null.NewString(t.Contact.Email, t.Contact.Email != ""),
		Phone:      null.NewString(t.Contact.Phone, t.Contact.Phone != ""),
		Currency:   t.Settings.Currency,
		Language:   t.Settings.Language,
		Timezone:   t.Settings.Timezone,
		CreatedAt:  t.CreatedAt.UTC(),
		UpdatedAt:  t.UpdatedAt.UTC(),
	}
}

func (r tenantRow) tenant() tenant.Tenant {
	return tenant.Tenant{
		ID:     r.ID,
		Name:   r.Name,
		Domain: r.Domain,
		Address: tenant.Address{
			Street:     r.Street.String,
			City:       r.City.String,
			State:      r.State.String,
			Country:    r.Country.String,
			PostalCode: r.PostalCode.String,
		},
		Contact:   tenant.Contact{Email: r.Email.String, Phone: r.Phone.String},
		Settings:  tenant.Settings{Currency: r.Currency, Language: r.Language, Timezone: r.Timezone},
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type tenantRepository struct {
	exec core.DBExecutor
}

var _ tenant.Repository = (*tenantRepository)(nil) // interface compliance check

func NewTenantRepository(exec core.DBExecutor) tenant.Repository {
	return &tenantRepository{exec: exec}
}

func (repo *tenantRepository) CreateTenant(ctx context.Context, t tenant.Tenant) (tenant.Tenant, error) {
	q := `INSERT INTO tenants (` + tenantColumns + `) VALUES (:id, :name, :domain, :street, :city, :state,
		:country, :postal_code, :email, :phone, :currency, :language, :timezone, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.exec, q, toTenantRow(t)); err != nil {
		if isUniqueViolation(err, "") {
			return tenant.Tenant{}, core.NewValidationError(tenant.ErrDomainExists, core.FieldError{
				Field: "domain",
				Error: tenant.ErrDomainExists.Error(),
			})
		}
		return tenant.Tenant{}, errors.Wrap(err, "inserting tenant")
	}
	return t, nil
}

func (repo *tenantRepository) GetTenant(ctx context.Context, filter tenant.GetFilter) (tenant.Tenant, error) {
	var (
		row tenantRow
		err error
	)
	q := `SELECT ` + tenantColumns + ` FROM tenants`
	switch {
	case filter.ID != "":
		if _, err = uuid.Parse(filter.ID); err != nil {
			return tenant.Tenant{}, tenant.ErrNotFound
		}
		err = repo.exec.GetContext(ctx, &row, q+` WHERE id = $1`, filter.ID)
	case filter.Domain != "":
		err = repo.exec.GetContext(ctx, &row, q+` WHERE domain = $1`, filter.Domain)
	default:
		return tenant.Tenant{}, tenant.ErrNotFound
	}
	if err != nil {
		return tenant.Tenant{}, trapNoRowsErr(err, tenant.ErrNotFound, "finding tenant")
	}
	return row.tenant(), nil
}

func (repo *tenantRepository) QueryTenants(ctx context.Context, filter *tenant.QueryFilter) ([]tenant.Tenant, error) {
	var w where
	if filter != nil && filter.Search != "" {
		val := likePattern(filter.Search)
		w.add(`(name ILIKE ? OR domain ILIKE ?)`, val, val)
	}

	var rows []tenantRow
	q := `SELECT ` + tenantColumns + ` FROM tenants` + w.String() + ` ORDER BY created_at`
	if err := repo.exec.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying tenants")
	}
	tenants := make([]tenant.Tenant, 0, len(rows))
	for _, r := range rows {
		tenants = append(tenants, r.tenant())
	}
	return tenants, nil
}

func (repo *tenantRepository) QueryTenantIDs(ctx context.Context) ([]string, error) {
	ids := make([]string, 0)
	if err := repo.exec.SelectContext(ctx, &ids, `SELECT id FROM tenants ORDER BY created_at`); err != nil {
		return nil, errors.Wrap(err, "querying tenant IDs")
	}
	return ids, nil
}

func (repo *tenantRepository) UpdateTenant(ctx context.Context, t tenant.Tenant) (tenant.Tenant, error) {
	q := `UPDATE tenants SET name = :name, domain = :domain, street = :street, city = :city, state = :state,
		country = :country, postal_code = :postal_code, email = :email, phone = :phone, currency = :currency,
		language = :language, timezone = :timezone, updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.exec, q, toTenantRow(t))
	if err != nil {
		return tenant.Tenant{}, errors.Wrap(err, "updating tenant")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return tenant.Tenant{}, tenant.ErrNotFound
	}
	return t, nil
}

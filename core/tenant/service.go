package tenant

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/ada/core"
)

var (
	// errors
	ErrNotFound     = core.NewNotFoundError("tenant not found")
	ErrDomainExists = errors.New("a tenant with this domain already exists")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateTenant(ctx context.Context, t Tenant) (Tenant, error)
		GetTenant(ctx context.Context, filter GetFilter) (Tenant, error)
		QueryTenants(ctx context.Context, filter *QueryFilter) ([]Tenant, error)
		QueryTenantIDs(ctx context.Context) ([]string, error)
		UpdateTenant(ctx context.Context, t Tenant) (Tenant, error)
	}

	// GetFilter finds a Tenant by ID or by domain; the first non-empty field wins.
	GetFilter struct {
		ID     string
		Domain string
	}

	ServiceInterface interface {
		CheckDomainUniqueness(domain string, exclude ...Tenant) error
		Create(ctx context.Context, nt NewTenant) (Tenant, error)
		GetByID(ctx context.Context, id string) (Tenant, error)
		GetByDomain(ctx context.Context, domain string) (Tenant, error)
		Query(ctx context.Context, filter *QueryFilter) ([]Tenant, error)
		QueryIDs(ctx context.Context) ([]string, error)
	}

	Service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CheckDomainUniqueness(domain string, exclude ...Tenant) error {
	t, err := svc.repo.GetTenant(context.Background(), GetFilter{Domain: domain})
	if err != nil {
		if core.IsNotFound(err) {
			return nil
		}
		return errors.Wrap(err, "checking domain uniqueness")
	}
	for _, ex := range exclude {
		if ex.ID == t.ID {
			return nil
		}
	}
	return core.NewValidationError(ErrDomainExists, core.FieldError{Field: "domain", Error: ErrDomainExists.Error()})
}

func (svc *Service) Create(ctx context.Context, nt NewTenant) (Tenant, error) {
	now := NowFunc().UTC()
	t := Tenant{
		ID:        uuid.New().String(),
		Name:      nt.Name,
		Domain:    nt.Domain,
		Address:   nt.Address,
		Contact:   nt.Contact,
		Settings:  nt.Settings,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if t.Settings.Currency == "" {
		t.Settings.Currency = DefaultCurrency
	}
	if t.Settings.Language == "" {
		t.Settings.Language = DefaultLanguage
	}
	if t.Settings.Timezone == "" {
		t.Settings.Timezone = DefaultTimezone
	}
	return svc.repo.CreateTenant(ctx, t)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Tenant, error) {
	return svc.repo.GetTenant(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByDomain(ctx context.Context, domain string) (Tenant, error) {
	return svc.repo.GetTenant(ctx, GetFilter{Domain: core.CleanString(domain, true /* lower */)})
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter) ([]Tenant, error) {
	if filter != nil {
		filter.Search = core.CleanString(filter.Search)
	}
	return svc.repo.QueryTenants(ctx, filter)
}

// QueryIDs lists every tenant ID; the reminder job walks them one by one.
func (svc *Service) QueryIDs(ctx context.Context) ([]string, error) {
	return svc.repo.QueryTenantIDs(ctx)
}

package tenant

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/ada/core"
)

const (
	LanguageEnglish = "en"
	LanguageUrdu    = "ur"

	DefaultCurrency = "PKR"
	DefaultLanguage = LanguageEnglish
	DefaultTimezone = "Asia/Karachi"
)

type (
	Address struct {
		Street     string `json:"street"`
		City       string `json:"city"`
		State      string `json:"state"`
		Country    string `json:"country"`
		PostalCode string `json:"postalCode"`
	}

	Contact struct {
		Email string `json:"email" validate:"omitempty,email"`
		Phone string `json:"phone" validate:"omitempty,phone"`
	}

	Settings struct {
		Currency string `json:"currency"`
		Language string `json:"language" validate:"omitempty,oneof=en ur"`
		Timezone string `json:"timezone"`
	}
)

// Tenant is one school or campus. Every other entity belongs to exactly one Tenant.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Domain    string    `json:"domain"`
	Address   Address   `json:"address"`
	Contact   Contact   `json:"contact"`
	Settings  Settings  `json:"settings"`
	CreatedAt time.Time `json:"createdAt"` // UTC
	UpdatedAt time.Time `json:"updatedAt"` // UTC
}

// Location returns the tenant's configured time zone, UTC if it cannot be loaded.
func (t Tenant) Location() *time.Location {
	if loc, err := time.LoadLocation(t.Settings.Timezone); err == nil {
		return loc
	}
	return time.UTC
}

// FormattedAddress joins the non-empty address parts.
func (t Tenant) FormattedAddress() string {
	parts := []string{t.Address.Street, t.Address.City, t.Address.State, t.Address.Country, t.Address.PostalCode}
	return joinNonEmpty(parts, ", ")
}

func joinNonEmpty(parts []string, sep string) string {
	var s string
	for _, p := range parts {
		if p == "" {
			continue
		}
		if s != "" {
			s += sep
		}
		s += p
	}
	return s
}

// NewTenant contains information needed to onboard a Tenant.
type NewTenant struct {
	Name     string   `json:"name" validate:"required,max=100"`
	Domain   string   `json:"domain" validate:"required,max=100,hostname"`
	Address  Address  `json:"address"`
	Contact  Contact  `json:"contact"`
	Settings Settings `json:"settings"`
}

func (nt *NewTenant) Validate(validate *validator.Validate, svc ServiceInterface) error {
	nt.Name = core.CleanString(nt.Name)
	nt.Domain = core.CleanString(nt.Domain, true /* lower */)
	nt.Contact.Email = core.CleanString(nt.Contact.Email, true /* lower */)

	if err := validate.Struct(nt); err != nil {
		return err
	}
	return svc.CheckDomainUniqueness(nt.Domain)
}

type QueryFilter struct {
	Search string `query:"search"`
}

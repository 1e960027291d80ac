package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/ada/core"
)

// Roles
const (
	RoleSuperAdmin  = "super_admin"
	RoleCampusAdmin = "campus_admin"
	RoleAccountant  = "accountant"
	RoleViewer      = "viewer"
)

var (
	AllRoles = []string{RoleSuperAdmin, RoleCampusAdmin, RoleAccountant, RoleViewer}

	rolePriorities = map[string]int{
		RoleSuperAdmin:  40,
		RoleCampusAdmin: 30,
		RoleAccountant:  20,
		RoleViewer:      10,
	}

	Roles = []Role{
		{Name: "Viewer", Value: RoleViewer},
		{Name: "Accountant", Value: RoleAccountant},
		{Name: "Campus Admin", Value: RoleCampusAdmin},
		{Name: "Super Admin", Value: RoleSuperAdmin},
	}
)

func RolePriority(role string) int {
	return rolePriorities[role]
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// User is a staff member of a Tenant.
type User struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenantId"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"isActive"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`           // UTC
	UpdatedAt    time.Time `json:"updatedAt"`           // UTC
	LastLogin    time.Time `json:"lastLogin,omitempty"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

func (u User) IsSuperAdmin() bool { return u.Role == RoleSuperAdmin }

// NewUser contains information needed to create a new User.
type NewUser struct {
	TenantID        string `json:"-"`
	Name            string `json:"name" validate:"required,max=100"`
	Email           string `json:"email" validate:"required,email"`
	Role            string `json:"role" validate:"required,role"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Validate(validate *validator.Validate, svc ServiceInterface) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name            string `json:"name" validate:"max=100"`
	Email           string `json:"email" validate:"omitempty,email"`
	Role            string `json:"role" validate:"omitempty,role"`
	IsActive        *bool  `json:"isActive"`
	Password        string `json:"password" validate:"omitempty"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(origUsr User, validate *validator.Validate, svc ServiceInterface) error {
	if name := core.CleanString(uu.Name); name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}
	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}
	if uu.Role == "" {
		uu.Role = origUsr.Role
	}

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(uu.Email, origUsr)
}

type QueryFilter struct {
	TenantID string   `query:"-"`
	Search   string   `query:"search"`
	Roles    []string `query:"role"`
	IsActive *bool    `query:"isActive"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

package student

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/ada/core"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusGraduated Status = "graduated"
)

type Guardian struct {
	Name     string `json:"name" validate:"max=100"`
	Relation string `json:"relation"`
	Phone    string `json:"phone" validate:"omitempty,phone"`
	Email    string `json:"email" validate:"omitempty,email"`
}

type Student struct {
	ID            string    `json:"id"`
	TenantID      string    `json:"tenantId"`
	Name          string    `json:"name"`
	RollNumber    string    `json:"rollNumber"`
	Email         string    `json:"email,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Class         string    `json:"class"`
	Section       string    `json:"section,omitempty"`
	AdmissionDate time.Time `json:"admissionDate"`
	Status        Status    `json:"status"`
	Guardian      Guardian  `json:"guardian"`
	CreatedAt     time.Time `json:"createdAt"` // UTC
	UpdatedAt     time.Time `json:"updatedAt"` // UTC
}

// ContactEmail is the student's email, or the guardian's when the student has none.
func (s Student) ContactEmail() string {
	if s.Email != "" {
		return s.Email
	}
	return s.Guardian.Email
}

// ContactPhone is the student's phone, or the guardian's when the student has none.
func (s Student) ContactPhone() string {
	if s.Phone != "" {
		return s.Phone
	}
	return s.Guardian.Phone
}

// NewStudent contains information needed to enrol a Student.
type NewStudent struct {
	TenantID      string    `json:"-"`
	Name          string    `json:"name" validate:"required,max=100"`
	RollNumber    string    `json:"rollNumber" validate:"required,max=50"`
	Email         string    `json:"email" validate:"omitempty,email"`
	Phone         string    `json:"phone" validate:"omitempty,phone"`
	Class         string    `json:"class" validate:"required"`
	Section       string    `json:"section"`
	AdmissionDate core.Date `json:"admissionDate" validate:"required"`
	Guardian      Guardian  `json:"guardian"`
}

func (ns *NewStudent) clean() {
	ns.Name = core.CleanString(ns.Name)
	ns.RollNumber = core.CleanString(ns.RollNumber)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Phone = core.CleanString(ns.Phone)
	ns.Class = core.CleanString(ns.Class)
	ns.Section = core.CleanString(ns.Section)
	ns.Guardian.Name = core.CleanString(ns.Guardian.Name)
	ns.Guardian.Email = core.CleanString(ns.Guardian.Email, true /* lower */)
	ns.Guardian.Phone = core.CleanString(ns.Guardian.Phone)
}

func (ns *NewStudent) Validate(validate *validator.Validate, svc ServiceInterface) error {
	ns.clean()
	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.CheckRollNumberUniqueness(ns.TenantID, ns.RollNumber)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
// Empty fields keep their current value.
type UpdateStudent struct {
	Name       string    `json:"name" validate:"max=100"`
	RollNumber string    `json:"rollNumber" validate:"max=50"`
	Email      string    `json:"email" validate:"omitempty,email"`
	Phone      string    `json:"phone" validate:"omitempty,phone"`
	Class      string    `json:"class"`
	Section    string    `json:"section"`
	Status     Status    `json:"status" validate:"omitempty,oneof=active inactive graduated"`
	Guardian   *Guardian `json:"guardian"`
}

func (us *UpdateStudent) Validate(orig Student, validate *validator.Validate, svc ServiceInterface) error {
	us.Name = core.CleanString(us.Name)
	us.RollNumber = core.CleanString(us.RollNumber)
	us.Email = core.CleanString(us.Email, true /* lower */)
	us.Phone = core.CleanString(us.Phone)
	us.Class = core.CleanString(us.Class)
	us.Section = core.CleanString(us.Section)

	if err := validate.Struct(us); err != nil {
		return err
	}
	if us.RollNumber != "" && us.RollNumber != orig.RollNumber {
		return svc.CheckRollNumberUniqueness(orig.TenantID, us.RollNumber)
	}
	return nil
}

type QueryFilter struct {
	TenantID string   `query:"-"`
	Search   string   `query:"search"`
	Class    string   `query:"class"`
	Statuses []Status `query:"status"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Class = core.CleanString(qf.Class)
}

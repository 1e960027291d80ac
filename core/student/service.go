package student

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/ada/core"
)

var (
	// errors
	ErrNotFound         = core.NewNotFoundError("student not found")
	ErrRollNumberExists = errors.New("a student with this roll number already exists")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateStudent(ctx context.Context, s Student) (Student, error)
		GetStudent(ctx context.Context, tenantID, id string) (Student, error)
		GetStudentByRollNumber(ctx context.Context, tenantID, rollNumber string) (Student, error)
		QueryStudents(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Student, error)
		CountStudents(ctx context.Context, filter QueryFilter) (int, error)
		UpdateStudent(ctx context.Context, s Student) (Student, error)
		// DeleteStudent also deletes the student's payments.
		DeleteStudent(ctx context.Context, tenantID, id string) error
	}

	ServiceInterface interface {
		CheckRollNumberUniqueness(tenantID, rollNumber string) error
		Create(ctx context.Context, ns NewStudent) (Student, error)
		Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Student, error)
		QueryActive(ctx context.Context, tenantID, class string) ([]Student, error)
		Count(ctx context.Context, filter QueryFilter) (int, error)
		GetByID(ctx context.Context, tenantID, id string) (Student, error)
		Update(ctx context.Context, s Student, us UpdateStudent) (Student, error)
		Delete(ctx context.Context, tenantID, id string) error
	}

	Service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CheckRollNumberUniqueness(tenantID, rollNumber string) error {
	_, err := svc.repo.GetStudentByRollNumber(context.Background(), tenantID, rollNumber)
	if err == nil {
		return core.NewValidationError(ErrRollNumberExists, core.FieldError{Field: "rollNumber", Error: ErrRollNumberExists.Error()})
	}
	if core.IsNotFound(err) {
		return nil
	}
	return errors.Wrap(err, "checking roll number uniqueness")
}

func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	now := NowFunc().UTC()
	s := Student{
		ID:            uuid.New().String(),
		TenantID:      ns.TenantID,
		Name:          ns.Name,
		RollNumber:    ns.RollNumber,
		Email:         ns.Email,
		Phone:         ns.Phone,
		Class:         ns.Class,
		Section:       ns.Section,
		AdmissionDate: ns.AdmissionDate.Time,
		Status:        StatusActive,
		Guardian:      ns.Guardian,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return svc.repo.CreateStudent(ctx, s)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Student, error) {
	filter.Clean()
	return svc.repo.QueryStudents(ctx, filter, ordering)
}

// QueryActive lists the tenant's active students, optionally restricted to one class.
func (svc *Service) QueryActive(ctx context.Context, tenantID, class string) ([]Student, error) {
	return svc.Query(ctx, QueryFilter{TenantID: tenantID, Class: class, Statuses: []Status{StatusActive}}, nil)
}

func (svc *Service) Count(ctx context.Context, filter QueryFilter) (int, error) {
	filter.Clean()
	return svc.repo.CountStudents(ctx, filter)
}

func (svc *Service) GetByID(ctx context.Context, tenantID, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, tenantID, id)
}

func (svc *Service) Update(ctx context.Context, s Student, us UpdateStudent) (Student, error) {
	if us.Name != "" {
		s.Name = us.Name
	}
	if us.RollNumber != "" {
		s.RollNumber = us.RollNumber
	}
	if us.Email != "" {
		s.Email = us.Email
	}
	if us.Phone != "" {
		s.Phone = us.Phone
	}
	if us.Class != "" {
		s.Class = us.Class
	}
	if us.Section != "" {
		s.Section = us.Section
	}
	if us.Status != "" {
		s.Status = us.Status
	}
	if us.Guardian != nil {
		s.Guardian = *us.Guardian
	}
	s.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateStudent(ctx, s)
}

func (svc *Service) Delete(ctx context.Context, tenantID, id string) error {
	return svc.repo.DeleteStudent(ctx, tenantID, id)
}

package inmemdb

import (
	"context"
	"strings"

	"github.com/trezcool/ada/core"
	"github.com/trezcool/ada/core/student"
)

type studentRepository struct {
	db       *studentTable
	payments *paymentTable
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db.student, payments: db.payment}
}

func (repo *studentRepository) CreateStudent(_ context.Context, s student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range repo.db.ids {
		if std := repo.db.table[id]; std.TenantID == s.TenantID && std.RollNumber == s.RollNumber {
			return student.Student{}, core.NewValidationError(student.ErrRollNumberExists, core.FieldError{
				Field: "rollNumber",
				Error: student.ErrRollNumberExists.Error(),
			})
		}
	}
	repo.db.table[s.ID] = &s
	repo.db.ids = append(repo.db.ids, s.ID)
	return s, nil
}

func (repo *studentRepository) get(tenantID, id string) (*student.Student, error) {
	s, ok := repo.db.table[id]
	if !ok || s.TenantID != tenantID {
		return nil, student.ErrNotFound
	}
	return s, nil
}

func (repo *studentRepository) GetStudent(_ context.Context, tenantID, id string) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	s, err := repo.get(tenantID, id)
	if err != nil {
		return student.Student{}, err
	}
	return *s, nil
}

func (repo *studentRepository) GetStudentByRollNumber(_ context.Context, tenantID, rollNumber string) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, id := range repo.db.ids {
		if s := repo.db.table[id]; s.TenantID == tenantID && s.RollNumber == rollNumber {
			return *s, nil
		}
	}
	return student.Student{}, student.ErrNotFound
}

func matchStudent(s *student.Student, filter student.QueryFilter) bool {
	if s.TenantID != filter.TenantID {
		return false
	}
	if filter.Class != "" && s.Class != filter.Class {
		return false
	}
	if len(filter.Statuses) > 0 {
		var found bool
		for _, st := range filter.Statuses {
			if s.Status == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return filter.Search == "" || containsFold(filter.Search, s.Name, s.RollNumber, s.Email)
}

func (repo *studentRepository) QueryStudents(_ context.Context, filter student.QueryFilter, ordering []core.DBOrdering) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	students := make([]student.Student, 0)
	for _, id := range repo.db.ids {
		if s := repo.db.table[id]; matchStudent(s, filter) {
			students = append(students, *s)
		}
	}

	sortBy(len(students), ordering,
		func(i, j int) { students[i], students[j] = students[j], students[i] },
		func(i, j int, field string) int {
			switch field {
			case "name":
				return strings.Compare(students[i].Name, students[j].Name)
			case "roll_number":
				return strings.Compare(students[i].RollNumber, students[j].RollNumber)
			case "class":
				return strings.Compare(students[i].Class, students[j].Class)
			case "admission_date":
				return students[i].AdmissionDate.Compare(students[j].AdmissionDate)
			case "created_at":
				return students[i].CreatedAt.Compare(students[j].CreatedAt)
			}
			return 0
		})
	return students, nil
}

func (repo *studentRepository) CountStudents(_ context.Context, filter student.QueryFilter) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var n int
	for _, id := range repo.db.ids {
		if matchStudent(repo.db.table[id], filter) {
			n++
		}
	}
	return n, nil
}

func (repo *studentRepository) UpdateStudent(_ context.Context, s student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, err := repo.get(s.TenantID, s.ID); err != nil {
		return student.Student{}, err
	}
	repo.db.table[s.ID] = &s
	return s, nil
}

func (repo *studentRepository) DeleteStudent(_ context.Context, tenantID, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, err := repo.get(tenantID, id); err != nil {
		return err
	}

	repo.payments.Lock()
	for _, pid := range append([]string(nil), repo.payments.ids...) {
		if p := repo.payments.table[pid]; p.TenantID == tenantID && p.StudentID == id {
			delete(repo.payments.table, pid)
			repo.payments.ids = removeID(repo.payments.ids, pid)
		}
	}
	repo.payments.Unlock()

	delete(repo.db.table, id)
	repo.db.ids = removeID(repo.db.ids, id)
	return nil
}

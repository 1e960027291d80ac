package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ada/core"
	"github.com/trezcool/ada/core/student"
)

const studentColumns = `id, tenant_id, name, roll_number, email, phone, class, section, admission_date, status,
	guardian_name, guardian_relation, guardian_phone, guardian_email, created_at, updated_at`

var studentOrderFields = map[string]bool{
	"name": true, "roll_number": true, "class": true, "admission_date": true, "created_at": true,
}

type studentRow struct {
	ID               string      `db:"id"`
	TenantID         string      `db:"tenant_id"`
	Name             string      `db:"name"`
	RollNumber       string      `db:"roll_number"`
	Email            null.String `db:"email"`
	Phone            null.String `db:"phone"`
	Class            string      `db:"class"`
	Section          null.String `db:"section"`
	AdmissionDate    time.Time   `db:"admission_date"`
	Status           string      `db:"status"`
	GuardianName     null.String `db:"guardian_name"`
	GuardianRelation null.String `db:"guardian_relation"`
	GuardianPhone    null.String `db:"guardian_phone"`
	GuardianEmail    null.String `db:"guardian_email"`
	CreatedAt        time.Time   `db:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at"`
}

func nullString(s string) null.String {
	return null.NewString(s, s != "")
}

func toStudentRow(s student.Student) studentRow {
	return studentRow{
		ID:               s.ID,
		TenantID:         s.TenantID,
		Name:             s.Name,
		RollNumber:       s.RollNumber,
		Email:            nullString(s.Email),
		Phone:            nullString(s.Phone),
		Class:            s.Class,
		Section:          nullString(s.Section),
		AdmissionDate:    s.AdmissionDate.UTC(),
		Status:           string(s.Status),
		GuardianName:     nullString(s.Guardian.Name),
		GuardianRelation: nullString(s.Guardian.Relation),
		GuardianPhone:    nullString(s.Guardian.Phone),
		GuardianEmail:    nullString(s.Guardian.Email),
		CreatedAt:        s.CreatedAt.UTC(),
		UpdatedAt:        s.UpdatedAt.UTC(),
	}
}

func (r studentRow) student() student.Student {
	return student.Student{
		ID:            r.ID,
		TenantID:      r.TenantID,
		Name:          r.Name,
		RollNumber:    r.RollNumber,
		Email:         r.Email.String,
		Phone:         r.Phone.String,
		Class:         r.Class,
		Section:       r.Section.String,
		AdmissionDate: r.AdmissionDate.UTC(),
		Status:        student.Status(r.Status),
		Guardian: student.Guardian{
			Name:     r.GuardianName.String,
			Relation: r.GuardianRelation.String,
			Phone:    r.GuardianPhone.String,
			Email:    r.GuardianEmail.String,
		},
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type studentRepository struct {
	db core.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db core.DB) student.Repository {
	return &studentRepository{db: db}
}

func rollNumberExistsErr() error {
	return core.NewValidationError(student.ErrRollNumberExists, core.FieldError{
		Field: "rollNumber",
		Error: student.ErrRollNumberExists.Error(),
	})
}

func (repo *studentRepository) CreateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	q := `INSERT INTO students (` + studentColumns + `) VALUES (:id, :tenant_id, :name, :roll_number, :email,
		:phone, :class, :section, :admission_date, :status, :guardian_name, :guardian_relation, :guardian_phone,
		:guardian_email, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.db, q, toStudentRow(s)); err != nil {
		if isUniqueViolation(err, "") {
			return student.Student{}, rollNumberExistsErr()
		}
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return s, nil
}

func (repo *studentRepository) GetStudent(ctx context.Context, tenantID, id string) (student.Student, error) {
	if _, err := uuid.Parse(id); err != nil {
		return student.Student{}, student.ErrNotFound
	}
	var row studentRow
	q := `SELECT ` + studentColumns + ` FROM students WHERE id = $1 AND tenant_id = $2`
	if err := repo.db.GetContext(ctx, &row, q, id, tenantID); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "finding student")
	}
	return row.student(), nil
}

func (repo *studentRepository) GetStudentByRollNumber(ctx context.Context, tenantID, rollNumber string) (student.Student, error) {
	var row studentRow
	q := `SELECT ` + studentColumns + ` FROM students WHERE tenant_id = $1 AND roll_number = $2`
	if err := repo.db.GetContext(ctx, &row, q, tenantID, rollNumber); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "finding student by roll number")
	}
	return row.student(), nil
}

func studentWhere(filter student.QueryFilter) where {
	var w where
	w.add(`tenant_id = ?`, filter.TenantID)
	if filter.Class != "" {
		w.add(`class = ?`, filter.Class)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		w.add(`status = ANY(?)`, pq.Array(statuses))
	}
	if filter.Search != "" {
		val := likePattern(filter.Search)
		w.add(`(name ILIKE ? OR roll_number ILIKE ? OR email ILIKE ?)`, val, val, val)
	}
	return w
}

// QueryStudents defaults to insertion order so that equal rows keep a stable order between calls.
func (repo *studentRepository) QueryStudents(ctx context.Context, filter student.QueryFilter, ordering []core.DBOrdering) ([]student.Student, error) {
	w := studentWhere(filter)
	q := `SELECT ` + studentColumns + ` FROM students` + w.String() +
		orderBy(ordering, studentOrderFields, "created_at, id")

	var rows []studentRow
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]student.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.student())
	}
	return students, nil
}

func (repo *studentRepository) CountStudents(ctx context.Context, filter student.QueryFilter) (int, error) {
	w := studentWhere(filter)
	var n int
	if err := repo.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM students`+w.String(), w.args...); err != nil {
		return 0, errors.Wrap(err, "counting students")
	}
	return n, nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	q := `UPDATE students SET name = :name, roll_number = :roll_number, email = :email, phone = :phone,
		class = :class, section = :section, status = :status, guardian_name = :guardian_name,
		guardian_relation = :guardian_relation, guardian_phone = :guardian_phone, guardian_email = :guardian_email,
		updated_at = :updated_at
		WHERE id = :id AND tenant_id = :tenant_id`
	res, err := sqlx.NamedExecContext(ctx, repo.db, q, toStudentRow(s))
	if err != nil {
		if isUniqueViolation(err, "") {
			return student.Student{}, rollNumberExistsErr()
		}
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return student.Student{}, student.ErrNotFound
	}
	return s, nil
}

// DeleteStudent deletes the student and its payments in one transaction.
func (repo *studentRepository) DeleteStudent(ctx context.Context, tenantID, id string) (err error) {
	if _, err = uuid.Parse(id); err != nil {
		return student.ErrNotFound
	}

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM payments WHERE tenant_id = $1 AND student_id = $2`, tenantID, id); err != nil {
		return errors.Wrap(err, "deleting student payments")
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM students WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return errors.Wrap(err, "deleting student")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = student.ErrNotFound
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

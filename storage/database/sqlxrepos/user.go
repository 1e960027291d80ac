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
	"github.com/trezcool/ada/core/user"
)

const userColumns = `id, tenant_id, name, email, password_hash, role, is_active, last_login, created_at, updated_at`

var userOrderFields = map[string]bool{"name": true, "email": true, "role": true, "created_at": true, "last_login": true}

type userRow struct {
	ID           string    `db:"id"`
	TenantID     string    `db:"tenant_id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	PasswordHash []byte    `db:"password_hash"`
	Role         string    `db:"role"`
	IsActive     bool      `db:"is_active"`
	LastLogin    null.Time `db:"last_login"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func toUserRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		TenantID:     usr.TenantID,
		Name:         usr.Name,
		Email:        usr.Email,
		PasswordHash: usr.PasswordHash,
		Role:         usr.Role,
		IsActive:     usr.IsActive,
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
	}
}

func (r userRow) user() user.User {
	usr := user.User{
		ID:           r.ID,
		TenantID:     r.TenantID,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Role:         r.Role,
		IsActive:     r.IsActive,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
	if r.LastLogin.Valid {
		usr.LastLogin = r.LastLogin.Time.UTC()
	}
	return usr
}

type userRepository struct {
	exec core.DBExecutor
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) user.Repository {
	return &userRepository{exec: exec}
}

func emailExistsErr() error {
	return core.NewValidationError(user.ErrEmailExists, core.FieldError{Field: "email", Error: user.ErrEmailExists.Error()})
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `INSERT INTO users (` + userColumns + `) VALUES (:id, :tenant_id, :name, :email, :password_hash, :role,
		:is_active, :last_login, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.exec, q, toUserRow(usr)); err != nil {
		if isUniqueViolation(err, "") {
			return user.User{}, emailExistsErr()
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var w where
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		w.add(`id = ?`, filter.ID)
		if filter.TenantID != "" {
			w.add(`tenant_id = ?`, filter.TenantID)
		}
	case filter.Email != "":
		w.add(`email = ?`, filter.Email)
	default:
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	if err := repo.exec.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users`+w.String(), w.args...); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return row.user(), nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	var w where
	if filter != nil {
		if filter.TenantID != "" {
			w.add(`tenant_id = ?`, filter.TenantID)
		}
		// users with Name or Email matching the search keyword
		if filter.Search != "" {
			val := likePattern(filter.Search)
			w.add(`(name ILIKE ? OR email ILIKE ?)`, val, val)
		}
		if len(filter.Roles) > 0 {
			w.add(`role = ANY(?)`, pq.Array(filter.Roles))
		}
		if filter.IsActive != nil {
			w.add(`is_active = ?`, *filter.IsActive)
		}
	}

	var rows []userRow
	q := `SELECT ` + userColumns + ` FROM users` + w.String() + orderBy(ordering, userOrderFields, "created_at")
	if err := repo.exec.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.user())
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `UPDATE users SET name = :name, email = :email, password_hash = :password_hash, role = :role,
		is_active = :is_active, last_login = :last_login, updated_at = :updated_at
		WHERE id = :id AND tenant_id = :tenant_id`
	res, err := sqlx.NamedExecContext(ctx, repo.exec, q, toUserRow(usr))
	if err != nil {
		if isUniqueViolation(err, "") {
			return user.User{}, emailExistsErr()
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo *userRepository) DeleteUser(ctx context.Context, tenantID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return user.ErrNotFound
	}
	res, err := repo.exec.ExecContext(ctx, `DELETE FROM users WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return errors.Wrap(err, "deleting user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.ErrNotFound
	}
	return nil
}

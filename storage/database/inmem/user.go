package inmemdb

import (
	"context"
	"strings"

	"github.com/trezcool/ada/core"
	"github.com/trezcool/ada/core/user"
)

type userRepository struct {
	db *userTable
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db.user}
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[usr.ID] = &usr
	repo.db.ids = append(repo.db.ids, usr.ID)
	return usr, nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID != "" {
		usr, ok := repo.db.table[filter.ID]
		if !ok || (filter.TenantID != "" && usr.TenantID != filter.TenantID) {
			return user.User{}, user.ErrNotFound
		}
		return *usr, nil
	}
	if filter.Email != "" {
		for _, id := range repo.db.ids {
			if usr := repo.db.table[id]; usr.Email == filter.Email {
				return *usr, nil
			}
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	users := make([]user.User, 0, len(repo.db.ids))
	for _, id := range repo.db.ids {
		usr := repo.db.table[id]
		if filter != nil {
			if filter.TenantID != "" && usr.TenantID != filter.TenantID {
				continue
			}
			if filter.Search != "" && !containsFold(filter.Search, usr.Name, usr.Email) {
				continue
			}
			if len(filter.Roles) > 0 && !usr.HasAnyRole(filter.Roles...) {
				continue
			}
			if filter.IsActive != nil && usr.IsActive != *filter.IsActive {
				continue
			}
		}
		users = append(users, *usr)
	}

	sortBy(len(users), ordering,
		func(i, j int) { users[i], users[j] = users[j], users[i] },
		func(i, j int, field string) int {
			switch field {
			case "name":
				return strings.Compare(users[i].Name, users[j].Name)
			case "email":
				return strings.Compare(users[i].Email, users[j].Email)
			case "role":
				return user.RolePriority(users[i].Role) - user.RolePriority(users[j].Role)
			case "created_at":
				return users[i].CreatedAt.Compare(users[j].CreatedAt)
			case "last_login":
				return users[i].LastLogin.Compare(users[j].LastLogin)
			}
			return 0
		})
	return users, nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	repo.db.table[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) DeleteUser(_ context.Context, tenantID, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	usr, ok := repo.db.table[id]
	if !ok || usr.TenantID != tenantID {
		return user.ErrNotFound
	}
	delete(repo.db.table, id)
	repo.db.ids = removeID(repo.db.ids, id)
	return nil
}

package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/enrollment/core"
	"github.com/trezcool/enrollment/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username string, excludedIDs ...int) error {
	defer repo.db.lock(ctx)()

	for _, usr := range repo.db.data.users {
		if usr.Username == username && !containsInt(excludedIDs, usr.ID) {
			return user.ErrUsernameExists
		}
	}
	return nil
}

func (repo *userRepository) checkUnique(usr user.User) error {
	for _, u := range repo.db.data.users {
		if u.Username == usr.Username && u.ID != usr.ID {
			return core.NewConstraintError("user_username_key", user.ErrUsernameExists)
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	defer repo.db.lock(ctx)()

	if err := repo.checkUnique(usr); err != nil {
		return user.User{}, err
	}
	repo.db.data.userSeq++
	usr.ID = repo.db.data.userSeq
	repo.db.data.users[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	defer repo.db.lock(ctx)()

	users := make([]user.User, 0, len(repo.db.data.users))
	for _, usr := range repo.db.data.users {
		if filter != nil {
			if filter.Search != "" && !containsFold(filter.Search, usr.Username, usr.FirstName, usr.LastName) {
				continue
			}
			if filter.Role != "" && usr.Role.String() != filter.Role {
				continue
			}
		}
		users = append(users, usr)
	}

	sortBy(users, ordering, func(a, b user.User, field string) (int, bool) {
		switch field {
		case "id":
			return a.ID - b.ID, true
		case "username":
			return strings.Compare(a.Username, b.Username), true
		case "role":
			return strings.Compare(a.Role.String(), b.Role.String()), true
		case "first_name":
			return strings.Compare(a.FirstName, b.FirstName), true
		case "last_name":
			return strings.Compare(a.LastName, b.LastName), true
		}
		return 0, false
	})

	if filter != nil && filter.Limit > 0 && len(users) > filter.Limit {
		users = users[:filter.Limit]
	}
	return users, nil
}

func (repo *userRepository) CountUsers(ctx context.Context) (int, error) {
	defer repo.db.lock(ctx)()
	return len(repo.db.data.users), nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	defer repo.db.lock(ctx)()

	if filter.ID != 0 {
		if usr, ok := repo.db.data.users[filter.ID]; ok {
			return usr, nil
		}
		return user.User{}, user.ErrNotFound
	}
	if filter.Username != "" {
		for _, usr := range repo.db.data.users {
			if usr.Username == filter.Username {
				return usr, nil
			}
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.data.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	if err := repo.checkUnique(usr); err != nil {
		return user.User{}, err
	}
	repo.db.data.users[usr.ID] = usr
	return usr, nil
}

// DeleteUser deletes the user along with their courses and enrollments, like ON DELETE CASCADE.
func (repo *userRepository) DeleteUser(ctx context.Context, id int) error {
	defer repo.db.lock(ctx)()

	data := &repo.db.data
	for cid, crs := range data.courses {
		if crs.TeacherID == id {
			deleteCourseCascade(data, cid)
		}
	}
	for eid, enr := range data.enrollments {
		if enr.StudentID == id {
			delete(data.enrollments, eid)
		}
	}
	delete(data.users, id)
	return nil
}

func containsInt(ints []int, i int) bool {
	for _, v := range ints {
		if v == i {
			return true
		}
	}
	return false
}

// containsFold reports whether `search` is within one of `values`, case-insensitively.
func containsFold(search string, values ...string) bool {
	search = strings.ToLower(search)
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), search) {
			return true
		}
	}
	return false
}

// sortBy sorts `items` by `ordering`, then by cmp's "id" comparison.
// cmp reports false for a field it does not know; those fields are skipped, like the SQL engine does.
func sortBy[T any](items []T, ordering []core.DBOrdering, cmp func(a, b T, field string) (int, bool)) {
	sort.SliceStable(items, func(i, j int) bool {
		for _, ord := range ordering {
			c, ok := cmp(items[i], items[j], ord.Field)
			if !ok || c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		c, _ := cmp(items[i], items[j], "id")
		return c < 0
	})
}

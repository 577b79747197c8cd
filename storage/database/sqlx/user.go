package sqlxrepos

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/enrollment/core"
	"github.com/trezcool/enrollment/core/user"
	"github.com/trezcool/enrollment/storage/database"
)

var (
	userColumns = []string{"id", "username", "password_hash", "role", "first_name", "last_name"}

	userOrderColumns = map[string]string{
		"id":         "id",
		"username":   "username",
		"role":       "role",
		"first_name": "first_name",
		"last_name":  "last_name",
	}
)

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username string, excludedIDs ...int) error {
	q := psql.Select("1").From(`"user"`).Where(sq.Eq{"username": username}).Limit(1)
	if len(excludedIDs) > 0 {
		q = q.Where(sq.NotEq{"id": excludedIDs})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}

	var exists int
	err = sqlx.GetContext(ctx, database.Executor(ctx, repo.db), &exists, query, args...)
	switch {
	case err == nil:
		return user.ErrUsernameExists
	case errors.Is(err, sql.ErrNoRows):
		return nil
	}
	return errors.Wrap(err, "checking username uniqueness")
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	query, args, err := psql.Insert(`"user"`).
		Columns("username", "password_hash", "role", "first_name", "last_name").
		Values(usr.Username, usr.PasswordHash, usr.Role, usr.FirstName, usr.LastName).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}
	if err = sqlx.GetContext(ctx, database.Executor(ctx, repo.db), &usr.ID, query, args...); err != nil {
		return user.User{}, database.MapError(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	q := psql.Select(userColumns...).From(`"user"`)
	if filter != nil {
		if filter.Search != "" {
			q = q.Where(ilike(filter.Search, "username", "first_name", "last_name"))
		}
		if filter.Role != "" {
			q = q.Where(sq.Eq{"role": filter.Role})
		}
		if filter.Limit > 0 {
			q = q.Limit(uint64(filter.Limit))
		}
	}
	q = q.OrderBy(orderBy(ordering, userOrderColumns, "id ASC")...)

	query, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	users := make([]user.User, 0)
	if err = sqlx.SelectContext(ctx, database.Executor(ctx, repo.db), &users, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return users, nil
}

func (repo userRepository) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := sqlx.GetContext(ctx, database.Executor(ctx, repo.db), &count, `SELECT COUNT(*) FROM "user"`); err != nil {
		return 0, errors.Wrap(err, "counting users")
	}
	return count, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	q := psql.Select(userColumns...).From(`"user"`)
	switch {
	case filter.ID != 0:
		q = q.Where(sq.Eq{"id": filter.ID})
	case filter.Username != "":
		q = q.Where(sq.Eq{"username": filter.Username})
	default:
		return user.User{}, user.ErrNotFound
	}

	query, args, err := q.ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}
	var usr user.User
	if err = sqlx.GetContext(ctx, database.Executor(ctx, repo.db), &usr, query, args...); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "getting user")
	}
	return usr, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	query, args, err := psql.Update(`"user"`).
		Set("username", usr.Username).
		Set("password_hash", usr.PasswordHash).
		Set("role", usr.Role).
		Set("first_name", usr.FirstName).
		Set("last_name", usr.LastName).
		Where(sq.Eq{"id": usr.ID}).
		ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}
	res, err := database.Executor(ctx, repo.db).ExecContext(ctx, query, args...)
	if err != nil {
		return user.User{}, database.MapError(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo userRepository) DeleteUser(ctx context.Context, id int) error {
	query, args, err := psql.Delete(`"user"`).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if _, err = database.Executor(ctx, repo.db).ExecContext(ctx, query, args...); err != nil {
		return database.MapError(err, "deleting user")
	}
	return nil
}

package user

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/enrollment/core"
)

var (
	// errors
	ErrNotFound       = errors.New("user not found")
	ErrUsernameExists = errors.New("a user with this username already exists")
)

type (
	Repository interface {
		// CheckUsernameUniqueness returns ErrUsernameExists if another user (not in excludedIDs) has `username`.
		CheckUsernameUniqueness(ctx context.Context, username string, excludedIDs ...int) error
		CreateUser(ctx context.Context, usr User) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Username, FirstName or LastName.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		CountUsers(ctx context.Context) (int, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUser(ctx context.Context, id int) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) checkUniqueness(ctx context.Context, uname string, exclIDs ...int) error {
	if err := svc.repo.CheckUsernameUniqueness(ctx, uname, exclIDs...); err != nil {
		if errors.Is(err, ErrUsernameExists) {
			return core.NewValidationError(err, core.FieldError{Field: "username", Error: err.Error()})
		}
		return err
	}
	return nil
}

// Authenticate returns the user matching the credentials.
// Any failure to match (unknown username or wrong password) is reported as core.ErrInvalidCredentials.
func (svc *Service) Authenticate(ctx context.Context, uname, pwd string) (User, error) {
	usr, err := svc.GetByUsername(ctx, uname)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, core.ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by username")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, core.ErrInvalidCredentials
	}
	return usr, nil
}

// Create saves a validated NewUser with password `pwd`.
func (svc *Service) Create(ctx context.Context, nu NewUser, pwd string) (User, error) {
	role, err := ParseRole(nu.Role)
	if err != nil {
		return User{}, err
	}
	usr := User{
		Username:  nu.Username,
		Role:      role,
		FirstName: nu.FirstName,
		LastName:  nu.LastName,
	}
	if err = usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

func (svc *Service) Count(ctx context.Context) (int, error) {
	return svc.repo.CountUsers(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id int) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByUsername(ctx context.Context, uname string) (User, error) {
	uname = core.CleanString(uname)
	if uname == "" {
		return User{}, ErrNotFound
	}
	return svc.repo.GetUser(ctx, GetFilter{Username: uname})
}

// Update saves a validated UpdateUser; the password is re-hashed only when one is supplied.
func (svc *Service) Update(ctx context.Context, origUsr User, uu UpdateUser) (User, error) {
	role, err := ParseRole(uu.Role)
	if err != nil {
		return User{}, err
	}
	usr := origUsr
	usr.Username = uu.Username
	usr.FirstName = uu.FirstName
	usr.LastName = uu.LastName
	usr.Role = role
	if uu.Password != "" {
		if err = usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "hashing password")
		}
	}
	return svc.repo.UpdateUser(ctx, usr)
}

// SetPassword re-hashes and saves the password of user `usr`.
func (svc *Service) SetPassword(ctx context.Context, usr User, pwd string) (User, error) {
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.UpdateUser(ctx, usr)
}

// Choices returns the users with `role` as admin form options labelled "First Last (username)".
func (svc *Service) Choices(ctx context.Context, role Role) ([]core.Choice, error) {
	users, err := svc.repo.QueryUsers(
		ctx,
		&QueryFilter{Role: role.String()},
		[]core.DBOrdering{{Field: "last_name", Ascending: true}, {Field: "first_name", Ascending: true}},
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	choices := make([]core.Choice, 0, len(users))
	for _, usr := range users {
		choices = append(choices, core.Choice{ID: usr.ID, Label: usr.Label()})
	}
	return choices, nil
}

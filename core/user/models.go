package user

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/enrollment/core"
)

// Role is the closed set of user roles.
type Role uint8

// Roles
const (
	RoleStudent Role = iota + 1
	RoleTeacher
	RoleAdmin
)

var (
	Roles = []Role{RoleStudent, RoleTeacher, RoleAdmin}

	errInvalidRole = errors.New("invalid role")
)

func (r Role) String() string {
	switch r {
	case RoleStudent:
		return "student"
	case RoleTeacher:
		return "teacher"
	case RoleAdmin:
		return "admin"
	}
	return ""
}

func (r Role) IsValid() bool { return r.String() != "" }

// ParseRole returns the Role named `s` (case-insensitive).
func ParseRole(s string) (Role, error) {
	switch core.CleanString(s, true /* lower */) {
	case "student":
		return RoleStudent, nil
	case "teacher":
		return RoleTeacher, nil
	case "admin":
		return RoleAdmin, nil
	}
	return 0, errors.Wrapf(errInvalidRole, "%q", s)
}

// MarshalText encodes the zero Role as an empty string.
func (r Role) MarshalText() ([]byte, error) {
	if r == 0 {
		return []byte{}, nil
	}
	if !r.IsValid() {
		return nil, errors.Wrapf(errInvalidRole, "%d", r)
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*r = 0
		return nil
	}
	role, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// Value implements driver.Valuer; roles are stored by name.
func (r Role) Value() (driver.Value, error) {
	if !r.IsValid() {
		return nil, errors.Wrapf(errInvalidRole, "%d", r)
	}
	return r.String(), nil
}

// Scan implements sql.Scanner.
func (r *Role) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		return r.UnmarshalText([]byte(v))
	case []byte:
		return r.UnmarshalText(v)
	}
	return fmt.Errorf("cannot scan %T into user.Role", src)
}

type User struct {
	ID           int    `db:"id" json:"id"`
	Username     string `db:"username" json:"username"`
	PasswordHash []byte `db:"password_hash" json:"-"`
	Role         Role   `db:"role" json:"role"`
	FirstName    string `db:"first_name" json:"first_name"`
	LastName     string `db:"last_name" json:"last_name"`
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

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Label is the admin form label of the user: "First Last (username)".
func (u User) Label() string {
	return fmt.Sprintf("%s (%s)", u.FullName(), u.Username)
}

func (u User) IsAdmin() bool   { return u.Role == RoleAdmin }
func (u User) IsTeacher() bool { return u.Role == RoleTeacher }
func (u User) IsStudent() bool { return u.Role == RoleStudent }

func (u User) Principal() Principal {
	return Principal{ID: u.ID, Username: u.Username, Role: u.Role, FullName: u.FullName()}
}

// Principal is the authenticated identity acting on a request.
type Principal struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	FullName string `json:"name"`
}

type principalKey struct{}

func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// NewUser contains information needed to create a new User.
// Password is optional; the caller decides which password to assign when it is empty.
type NewUser struct {
	Username  string `json:"username" validate:"required,max=80,alphanum_"`
	FirstName string `json:"first_name" validate:"required,max=80"`
	LastName  string `json:"last_name" validate:"required,max=80"`
	Role      string `json:"role" validate:"required,role"`
	Password  string `json:"password"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	nu.Username = core.CleanString(nu.Username)
	nu.FirstName = core.CleanString(nu.FirstName)
	nu.LastName = core.CleanString(nu.LastName)
	nu.Role = core.CleanString(nu.Role, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.checkUniqueness(ctx, nu.Username)
}

// UpdateUser defines what information may be provided to modify an existing User.
// Empty fields keep their current values.
type UpdateUser struct {
	Username  string `json:"username" validate:"omitempty,max=80,alphanum_"`
	FirstName string `json:"first_name" validate:"omitempty,max=80"`
	LastName  string `json:"last_name" validate:"omitempty,max=80"`
	Role      string `json:"role" validate:"omitempty,role"`
	Password  string `json:"password"`
}

func (uu *UpdateUser) Validate(ctx context.Context, origUsr User, validate *validator.Validate, svc *Service) error {
	if uname := core.CleanString(uu.Username); uname != "" {
		uu.Username = uname
	} else {
		uu.Username = origUsr.Username
	}
	if first := core.CleanString(uu.FirstName); first != "" {
		uu.FirstName = first
	} else {
		uu.FirstName = origUsr.FirstName
	}
	if last := core.CleanString(uu.LastName); last != "" {
		uu.LastName = last
	} else {
		uu.LastName = origUsr.LastName
	}
	if role := core.CleanString(uu.Role, true /* lower */); role != "" {
		uu.Role = role
	} else {
		uu.Role = origUsr.Role.String()
	}

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.checkUniqueness(ctx, uu.Username, origUsr.ID)
}

type QueryFilter struct {
	Search string `query:"search"`
	Role   string `query:"role"`
	Limit  int    `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Role = core.CleanString(qf.Role, true /* lower */)
}

// GetFilter selects a single user: by ID when set, else by Username.
type GetFilter struct {
	ID       int
	Username string
}

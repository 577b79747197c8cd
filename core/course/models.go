package course

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/enrollment/core"
)

type Course struct {
	ID        int    `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	TeacherID int    `db:"teacher_id" json:"teacher_id"`
	Time      string `db:"time" json:"time"`
	Capacity  int    `db:"capacity" json:"capacity"`
}

// Summary is a Course joined with its teacher's name and enrollment count.
type Summary struct {
	Course
	TeacherFirstName string `db:"teacher_first_name" json:"-"`
	TeacherLastName  string `db:"teacher_last_name" json:"-"`
	TeacherName      string `db:"-" json:"teacher"`
	Enrolled         int    `db:"enrolled" json:"enrolled"`
}

// Fill computes the derived fields after a load.
func (s *Summary) Fill() {
	s.TeacherName = strings.TrimSpace(s.TeacherFirstName + " " + s.TeacherLastName)
}

// Label is the admin form label of the course: "Name - TeacherFirst TeacherLast".
func (s Summary) Label() string {
	return fmt.Sprintf("%s - %s", s.Name, s.TeacherName)
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Name      string `json:"name" validate:"required,max=120"`
	TeacherID int    `json:"teacher_id" validate:"required"`
	Time      string `json:"time" validate:"required,max=80"`
	Capacity  int    `json:"capacity" validate:"required,min=1"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Time = core.CleanString(nc.Time)
	return validate.Struct(nc)
}

// UpdateCourse defines what information may be provided to modify an existing Course.
// Zero fields keep their current values.
type UpdateCourse struct {
	Name      string `json:"name" validate:"omitempty,max=120"`
	TeacherID int    `json:"teacher_id" validate:"omitempty,min=1"`
	Time      string `json:"time" validate:"omitempty,max=80"`
	Capacity  int    `json:"capacity" validate:"omitempty,min=1"`
}

func (uc *UpdateCourse) Validate(validate *validator.Validate) error {
	uc.Name = core.CleanString(uc.Name)
	uc.Time = core.CleanString(uc.Time)
	return validate.Struct(uc)
}

// Apply returns `crs` with the set fields of uc.
func (uc UpdateCourse) Apply(crs Course) Course {
	if uc.Name != "" {
		crs.Name = uc.Name
	}
	if uc.TeacherID != 0 {
		crs.TeacherID = uc.TeacherID
	}
	if uc.Time != "" {
		crs.Time = uc.Time
	}
	if uc.Capacity != 0 {
		crs.Capacity = uc.Capacity
	}
	return crs
}

type QueryFilter struct {
	Search    string `query:"search"`
	TeacherID int    `query:"teacher_id"`
	Limit     int    `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

package enrollment

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
)

// Grade bounds
const (
	MinGrade = 0
	MaxGrade = 100
)

type Enrollment struct {
	ID           int       `db:"id" json:"id"`
	StudentID    int       `db:"student_id" json:"student_id"`
	CourseID     int       `db:"course_id" json:"course_id"`
	Grade        null.Int  `db:"grade" json:"grade"`
	EnrolledDate time.Time `db:"enrolled_date" json:"enrolled_date"` // UTC
}

// Detail is an Enrollment joined with its student's and course's names, as listed by the admin console.
type Detail struct {
	Enrollment
	StudentFirstName string `db:"student_first_name" json:"-"`
	StudentLastName  string `db:"student_last_name" json:"-"`
	StudentName      string `db:"-" json:"student"`
	CourseName       string `db:"course_name" json:"course"`
	Enrolled         string `db:"-" json:"enrolled"` // YYYY-MM-DD
}

func (d *Detail) Fill() {
	d.StudentName = strings.TrimSpace(d.StudentFirstName + " " + d.StudentLastName)
	d.Enrolled = d.EnrolledDate.UTC().Format("2006-01-02")
}

// RosterEntry is a student of a course as seen by its teacher.
type RosterEntry struct {
	ID        int      `db:"id" json:"id"` // enrollment ID
	StudentID int      `db:"student_id" json:"student_id"`
	FirstName string   `db:"first_name" json:"-"`
	LastName  string   `db:"last_name" json:"-"`
	Name      string   `db:"-" json:"name"`
	Grade     null.Int `db:"grade" json:"grade"`
}

func (r *RosterEntry) Fill() {
	r.Name = strings.TrimSpace(r.FirstName + " " + r.LastName)
}

// StudentCourse is a course as seen by a student.
type StudentCourse struct {
	ID               int      `db:"id" json:"id"`
	Name             string   `db:"name" json:"name"`
	TeacherFirstName string   `db:"teacher_first_name" json:"-"`
	TeacherLastName  string   `db:"teacher_last_name" json:"-"`
	Teacher          string   `db:"-" json:"teacher"`
	Time             string   `db:"time" json:"time"`
	Capacity         int      `db:"capacity" json:"capacity"`
	Enrolled         int      `db:"enrolled" json:"enrolled"`
	EnrollmentID     null.Int `db:"enrollment_id" json:"enrollment_id,omitempty"`
	Grade            null.Int `db:"grade" json:"grade"`
	IsEnrolled       bool     `db:"-" json:"is_enrolled"`
}

func (sc *StudentCourse) Fill() {
	sc.Teacher = strings.TrimSpace(sc.TeacherFirstName + " " + sc.TeacherLastName)
	sc.IsEnrolled = sc.EnrollmentID.Valid
}

// NewEnrollment contains information needed by the admin console to create an Enrollment.
type NewEnrollment struct {
	StudentID int      `json:"student_id" validate:"required"`
	CourseID  int      `json:"course_id" validate:"required"`
	Grade     null.Int `json:"grade" validate:"omitempty,min=0,max=100"`
}

func (ne *NewEnrollment) Validate(validate *validator.Validate) error {
	return validate.Struct(ne)
}

// UpdateEnrollment defines what the admin console may change on an Enrollment.
// Zero IDs keep their current values; Grade is always written (null clears it).
type UpdateEnrollment struct {
	StudentID int      `json:"student_id" validate:"omitempty,min=1"`
	CourseID  int      `json:"course_id" validate:"omitempty,min=1"`
	Grade     null.Int `json:"grade" validate:"omitempty,min=0,max=100"`
}

func (ue *UpdateEnrollment) Validate(validate *validator.Validate) error {
	return validate.Struct(ue)
}

func (ue UpdateEnrollment) Apply(enr Enrollment) Enrollment {
	if ue.StudentID != 0 {
		enr.StudentID = ue.StudentID
	}
	if ue.CourseID != 0 {
		enr.CourseID = ue.CourseID
	}
	enr.Grade = ue.Grade
	return enr
}

// GetFilter selects a single enrollment: by ID when set, else by (StudentID, CourseID).
type GetFilter struct {
	ID        int
	StudentID int
	CourseID  int
}

// QueryFilter applies AND operation on its set fields.
type QueryFilter struct {
	StudentID int `query:"student_id"`
	CourseID  int `query:"course_id"`
	TeacherID int `query:"-"` // enrollments of courses taught by TeacherID
	Limit     int `query:"-"`
}

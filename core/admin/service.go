package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/enrollment/core"
	"github.com/trezcool/enrollment/core/course"
	"github.com/trezcool/enrollment/core/enrollment"
	"github.com/trezcool/enrollment/core/user"
)

const (
	// DefaultPassword is assigned to users created from the console without a password.
	DefaultPassword = "defaultpassword123"

	// PageSize caps the rows returned by the console lists.
	PageSize = 1000
)

var (
	errOwnAccount       = errors.New("you cannot delete your own account")
	errStudentRequired  = "student must be an existing user with the student role"
	errCourseNotExisted = "course does not exist"

	nowFunc = time.Now // mockable
)

type (
	Stats struct {
		Users       int `json:"users"`
		Courses     int `json:"courses"`
		Enrollments int `json:"enrollments"`
	}

	// DeleteReport lists what was removed along with a deleted user or course.
	DeleteReport struct {
		CoursesDeleted     int      `json:"courses_deleted"`
		EnrollmentsDeleted int      `json:"enrollments_deleted"`
		Messages           []string `json:"messages"`
	}

	Deps struct {
		Tx       core.Transactor
		UsrRepo  user.Repository
		CrsRepo  course.Repository
		EnrRepo  enrollment.Repository
		Validate *validator.Validate
		Logger   core.Logger
	}

	// Service backs the admin console: CRUD over users, courses and enrollments with server-side checks.
	Service struct {
		tx       core.Transactor
		usrRepo  user.Repository
		crsRepo  course.Repository
		enrRepo  enrollment.Repository
		usrSvc   *user.Service
		crsSvc   *course.Service
		validate *validator.Validate
		logger   core.Logger
	}
)

func NewService(deps Deps) *Service {
	return &Service{
		tx:       deps.Tx,
		usrRepo:  deps.UsrRepo,
		crsRepo:  deps.CrsRepo,
		enrRepo:  deps.EnrRepo,
		usrSvc:   user.NewService(deps.UsrRepo),
		crsSvc:   course.NewService(deps.CrsRepo, deps.UsrRepo),
		validate: deps.Validate,
		logger:   deps.Logger,
	}
}

func (svc *Service) Dashboard(ctx context.Context) (Stats, error) {
	var stats Stats
	var err error
	if stats.Users, err = svc.usrRepo.CountUsers(ctx); err != nil {
		return Stats{}, errors.Wrap(err, "counting users")
	}
	if stats.Courses, err = svc.crsRepo.CountCourses(ctx, nil); err != nil {
		return Stats{}, errors.Wrap(err, "counting courses")
	}
	if stats.Enrollments, err = svc.enrRepo.CountEnrollments(ctx, nil); err != nil {
		return Stats{}, errors.Wrap(err, "counting enrollments")
	}
	return stats, nil
}

// Users

func (svc *Service) ListUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	if filter == nil {
		filter = new(user.QueryFilter)
	}
	filter.Limit = PageSize
	return svc.usrRepo.QueryUsers(ctx, filter, ordering)
}

func (svc *Service) GetUser(ctx context.Context, id int) (user.User, error) {
	return svc.usrSvc.GetByID(ctx, id)
}

// CreateUser validates and saves `nu`; without a password, the user gets DefaultPassword.
func (svc *Service) CreateUser(ctx context.Context, nu user.NewUser) (user.User, error) {
	if err := nu.Validate(ctx, svc.validate, svc.usrSvc); err != nil {
		return user.User{}, err
	}
	pwd := nu.Password
	if pwd == "" {
		pwd = DefaultPassword
		svc.logger.Warn(fmt.Sprintf("user %q created with the default password", nu.Username))
	}
	return svc.usrSvc.Create(ctx, nu, pwd)
}

// UpdateUser validates and saves `uu` over user `id`; a supplied password is re-hashed.
func (svc *Service) UpdateUser(ctx context.Context, id int, uu user.UpdateUser) (user.User, error) {
	usr, err := svc.usrSvc.GetByID(ctx, id)
	if err != nil {
		return user.User{}, err
	}
	if err = uu.Validate(ctx, usr, svc.validate, svc.usrSvc); err != nil {
		return user.User{}, err
	}
	return svc.usrSvc.Update(ctx, usr, uu)
}

// DeleteUser deletes user `id` with, in order: their enrollments as a student, the enrollments of the courses
// they teach, those courses and finally the user. All or nothing: any failure rolls everything back.
func (svc *Service) DeleteUser(ctx context.Context, id int, actingAdminID int) (DeleteReport, error) {
	if id == actingAdminID {
		return DeleteReport{}, core.NewValidationError(errOwnAccount)
	}
	usr, err := svc.usrSvc.GetByID(ctx, id)
	if err != nil {
		return DeleteReport{}, err
	}

	var report DeleteReport
	err = svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		asStudent, err := svc.enrRepo.DeleteEnrollments(ctx, enrollment.QueryFilter{StudentID: id})
		if err != nil {
			return errors.Wrap(err, "deleting student enrollments")
		}
		inCourses, err := svc.enrRepo.DeleteEnrollments(ctx, enrollment.QueryFilter{TeacherID: id})
		if err != nil {
			return errors.Wrap(err, "deleting course enrollments")
		}
		courses, err := svc.crsRepo.DeleteTeacherCourses(ctx, id)
		if err != nil {
			return errors.Wrap(err, "deleting courses")
		}
		if err = svc.usrRepo.DeleteUser(ctx, id); err != nil {
			return errors.Wrap(err, "deleting user")
		}
		report.CoursesDeleted = courses
		report.EnrollmentsDeleted = asStudent + inCourses
		return nil
	})
	if err != nil {
		return DeleteReport{}, core.NewTxError(fmt.Sprintf("deleting user %q", usr.Username), err)
	}

	if report.CoursesDeleted > 0 || report.EnrollmentsDeleted > 0 {
		report.Messages = append(report.Messages, fmt.Sprintf(
			"User %q had %d courses and %d enrollments. These were also deleted.",
			usr.Username, report.CoursesDeleted, report.EnrollmentsDeleted,
		))
	}
	report.Messages = append(report.Messages, fmt.Sprintf("User %q has been successfully deleted.", usr.Username))
	return report, nil
}

// Courses

func (svc *Service) ListCourses(ctx context.Context, filter *course.QueryFilter, ordering []core.DBOrdering) ([]course.Summary, error) {
	if filter == nil {
		filter = new(course.QueryFilter)
	}
	filter.Limit = PageSize
	return svc.crsSvc.Query(ctx, filter, ordering)
}

func (svc *Service) GetCourse(ctx context.Context, id int) (course.Summary, error) {
	return svc.crsSvc.GetSummary(ctx, id)
}

func (svc *Service) CreateCourse(ctx context.Context, nc course.NewCourse) (course.Course, error) {
	if err := nc.Validate(svc.validate); err != nil {
		return course.Course{}, err
	}
	return svc.crsSvc.Create(ctx, nc)
}

func (svc *Service) UpdateCourse(ctx context.Context, id int, uc course.UpdateCourse) (course.Course, error) {
	crs, err := svc.crsSvc.GetByID(ctx, id)
	if err != nil {
		return course.Course{}, err
	}
	if err = uc.Validate(svc.validate); err != nil {
		return course.Course{}, err
	}
	return svc.crsSvc.Update(ctx, crs, uc)
}

// DeleteCourse deletes course `id` and its enrollments, all or nothing.
func (svc *Service) DeleteCourse(ctx context.Context, id int) (DeleteReport, error) {
	crs, err := svc.crsSvc.GetByID(ctx, id)
	if err != nil {
		return DeleteReport{}, err
	}

	var report DeleteReport
	err = svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		n, err := svc.enrRepo.DeleteEnrollments(ctx, enrollment.QueryFilter{CourseID: id})
		if err != nil {
			return errors.Wrap(err, "deleting course enrollments")
		}
		if err = svc.crsRepo.DeleteCourse(ctx, id); err != nil {
			return errors.Wrap(err, "deleting course")
		}
		report.EnrollmentsDeleted = n
		return nil
	})
	if err != nil {
		return DeleteReport{}, core.NewTxError(fmt.Sprintf("deleting course %q", crs.Name), err)
	}

	if report.EnrollmentsDeleted > 0 {
		report.Messages = append(report.Messages, fmt.Sprintf(
			"Course %q had %d enrollments. These were also deleted.", crs.Name, report.EnrollmentsDeleted,
		))
	}
	report.Messages = append(report.Messages, fmt.Sprintf("Course %q has been successfully deleted.", crs.Name))
	return report, nil
}

// Enrollments

func (svc *Service) ListEnrollments(ctx context.Context, filter *enrollment.QueryFilter, ordering []core.DBOrdering) ([]enrollment.Detail, error) {
	if filter == nil {
		filter = new(enrollment.QueryFilter)
	}
	filter.Limit = PageSize
	return svc.enrRepo.QueryEnrollments(ctx, filter, ordering)
}

func (svc *Service) GetEnrollment(ctx context.Context, id int) (enrollment.Enrollment, error) {
	return svc.enrRepo.GetEnrollment(ctx, enrollment.GetFilter{ID: id})
}

// checkEnrollmentRefs makes sure `studentID` is a student and `courseID` a course.
func (svc *Service) checkEnrollmentRefs(ctx context.Context, studentID, courseID int) error {
	var flds []core.FieldError

	usr, err := svc.usrRepo.GetUser(ctx, user.GetFilter{ID: studentID})
	switch {
	case errors.Is(err, user.ErrNotFound), err == nil && !usr.IsStudent():
		flds = append(flds, core.FieldError{Field: "student_id", Error: errStudentRequired})
	case err != nil:
		return errors.Wrap(err, "finding student")
	}

	if _, err = svc.crsRepo.GetCourse(ctx, courseID); err != nil {
		if !errors.Is(err, course.ErrNotFound) {
			return errors.Wrap(err, "finding course")
		}
		flds = append(flds, core.FieldError{Field: "course_id", Error: errCourseNotExisted})
	}

	if len(flds) > 0 {
		return core.NewValidationError(errors.New("invalid references"), flds...)
	}
	return nil
}

// CreateEnrollment saves `ne` after checking its references. Capacity is not enforced for admins.
func (svc *Service) CreateEnrollment(ctx context.Context, ne enrollment.NewEnrollment) (enrollment.Enrollment, error) {
	if err := ne.Validate(svc.validate); err != nil {
		return enrollment.Enrollment{}, err
	}
	if err := svc.checkEnrollmentRefs(ctx, ne.StudentID, ne.CourseID); err != nil {
		return enrollment.Enrollment{}, err
	}
	return svc.enrRepo.CreateEnrollment(ctx, enrollment.Enrollment{
		StudentID:    ne.StudentID,
		CourseID:     ne.CourseID,
		Grade:        ne.Grade,
		EnrolledDate: nowFunc().UTC(),
	})
}

func (svc *Service) UpdateEnrollment(ctx context.Context, id int, ue enrollment.UpdateEnrollment) (enrollment.Enrollment, error) {
	enr, err := svc.GetEnrollment(ctx, id)
	if err != nil {
		return enrollment.Enrollment{}, err
	}
	if err = ue.Validate(svc.validate); err != nil {
		return enrollment.Enrollment{}, err
	}
	enr = ue.Apply(enr)
	if err = svc.checkEnrollmentRefs(ctx, enr.StudentID, enr.CourseID); err != nil {
		return enrollment.Enrollment{}, err
	}
	return svc.enrRepo.UpdateEnrollment(ctx, enr)
}

func (svc *Service) DeleteEnrollment(ctx context.Context, id int) error {
	if _, err := svc.GetEnrollment(ctx, id); err != nil {
		return err
	}
	return svc.enrRepo.DeleteEnrollment(ctx, id)
}

// Choices

type (
	CourseChoices struct {
		Teachers []core.Choice `json:"teachers"`
	}

	EnrollmentChoices struct {
		Students []core.Choice `json:"students"`
		Courses  []core.Choice `json:"courses"`
	}
)

func (svc *Service) CourseChoices(ctx context.Context) (CourseChoices, error) {
	teachers, err := svc.usrSvc.Choices(ctx, user.RoleTeacher)
	if err != nil {
		return CourseChoices{}, err
	}
	return CourseChoices{Teachers: teachers}, nil
}

func (svc *Service) EnrollmentChoices(ctx context.Context) (EnrollmentChoices, error) {
	students, err := svc.usrSvc.Choices(ctx, user.RoleStudent)
	if err != nil {
		return EnrollmentChoices{}, err
	}
	courses, err := svc.crsSvc.Choices(ctx)
	if err != nil {
		return EnrollmentChoices{}, err
	}
	return EnrollmentChoices{Students: students, Courses: courses}, nil
}

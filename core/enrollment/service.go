package enrollment

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/enrollment/core"
	"github.com/trezcool/enrollment/core/course"
)

var (
	// errors
	ErrNotFound             = errors.New("Enrollment not found")
	ErrAlreadyEnrolled      = errors.New("Already enrolled in this course")
	ErrCourseFull           = errors.New("Course is at capacity")
	ErrNotEnrolled          = errors.New("Not enrolled in this course")
	ErrGradeAlreadyAssigned = errors.New("Cannot drop a course after a grade has been assigned")

	errGradeRange = fmt.Sprintf("grade must be between %d and %d", MinGrade, MaxGrade)

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		GetEnrollment(ctx context.Context, filter GetFilter) (Enrollment, error)
		QueryEnrollments(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Detail, error)
		CountEnrollments(ctx context.Context, filter *QueryFilter) (int, error)
		UpdateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		DeleteEnrollment(ctx context.Context, id int) error
		// DeleteEnrollments deletes the enrollments matching filter and returns how many were deleted.
		DeleteEnrollments(ctx context.Context, filter QueryFilter) (int, error)
		// QueryRoster lists the students enrolled in `courseID` ordered by last and first name.
		QueryRoster(ctx context.Context, courseID int) ([]RosterEntry, error)
		// QueryStudentCourses lists courses with the enrollment of `studentID` (if any) joined.
		QueryStudentCourses(ctx context.Context, studentID int, enrolledOnly bool) ([]StudentCourse, error)
	}

	Service struct {
		tx      core.Transactor
		repo    Repository
		crsRepo course.Repository
	}
)

func NewService(tx core.Transactor, repo Repository, crsRepo course.Repository) *Service {
	return &Service{tx: tx, repo: repo, crsRepo: crsRepo}
}

// ValidateGrade accepts a null grade (no grade) or one within [MinGrade, MaxGrade].
func ValidateGrade(grade null.Int) error {
	if grade.Valid && (grade.Int < MinGrade || grade.Int > MaxGrade) {
		return core.NewValidationError(errors.New(errGradeRange), core.FieldError{Field: "grade", Error: errGradeRange})
	}
	return nil
}

// Enroll enrolls `studentID` in `courseID` if they are not already enrolled and the course has a free seat.
// The course row is locked for the duration of the check-then-insert.
func (svc *Service) Enroll(ctx context.Context, studentID, courseID int) (Enrollment, error) {
	var enr Enrollment
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		crs, err := svc.crsRepo.LockCourse(ctx, courseID)
		if err != nil {
			return err
		}

		if _, err = svc.repo.GetEnrollment(ctx, GetFilter{StudentID: studentID, CourseID: courseID}); err == nil {
			return ErrAlreadyEnrolled
		} else if !errors.Is(err, ErrNotFound) {
			return errors.Wrap(err, "finding enrollment")
		}

		count, err := svc.repo.CountEnrollments(ctx, &QueryFilter{CourseID: courseID})
		if err != nil {
			return errors.Wrap(err, "counting enrollments")
		}
		if count >= crs.Capacity {
			return ErrCourseFull
		}

		enr, err = svc.repo.CreateEnrollment(ctx, Enrollment{
			StudentID:    studentID,
			CourseID:     courseID,
			EnrolledDate: nowFunc().UTC(),
		})
		return err
	})
	return enr, err
}

// Unenroll drops `studentID` from `courseID`; a graded enrollment cannot be dropped.
func (svc *Service) Unenroll(ctx context.Context, studentID, courseID int) error {
	return svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		enr, err := svc.repo.GetEnrollment(ctx, GetFilter{StudentID: studentID, CourseID: courseID})
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrNotEnrolled
			}
			return errors.Wrap(err, "finding enrollment")
		}
		if enr.Grade.Valid {
			return ErrGradeAlreadyAssigned
		}
		return svc.repo.DeleteEnrollment(ctx, enr.ID)
	})
}

// ownedEnrollment gets enrollment `id` if its course is taught by `teacherID`.
func (svc *Service) ownedEnrollment(ctx context.Context, id, teacherID int) (Enrollment, error) {
	enr, err := svc.repo.GetEnrollment(ctx, GetFilter{ID: id})
	if err != nil {
		return Enrollment{}, err
	}
	crs, err := svc.crsRepo.GetCourse(ctx, enr.CourseID)
	if err != nil {
		if errors.Is(err, course.ErrNotFound) {
			return Enrollment{}, core.ErrUnauthorized
		}
		return Enrollment{}, errors.Wrap(err, "finding course")
	}
	if crs.TeacherID != teacherID {
		return Enrollment{}, core.ErrUnauthorized
	}
	return enr, nil
}

// UpdateGrade sets (or clears, when null) the grade of enrollment `id`, taught by `teacherID`.
func (svc *Service) UpdateGrade(ctx context.Context, id int, grade null.Int, teacherID int) (Enrollment, error) {
	var enr Enrollment
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if enr, err = svc.ownedEnrollment(ctx, id, teacherID); err != nil {
			return err
		}
		if err = ValidateGrade(grade); err != nil {
			return err
		}
		enr.Grade = grade
		enr, err = svc.repo.UpdateEnrollment(ctx, enr)
		return err
	})
	return enr, err
}

// RemoveStudent deletes enrollment `id` of a course taught by `teacherID`, graded or not.
func (svc *Service) RemoveStudent(ctx context.Context, id, teacherID int) error {
	return svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := svc.ownedEnrollment(ctx, id, teacherID); err != nil {
			return err
		}
		return svc.repo.DeleteEnrollment(ctx, id)
	})
}

// ListRoster lists the students of `courseID`, only for the teacher of the course.
func (svc *Service) ListRoster(ctx context.Context, courseID, teacherID int) ([]RosterEntry, error) {
	crs, err := svc.crsRepo.GetCourse(ctx, courseID)
	if err != nil {
		if errors.Is(err, course.ErrNotFound) {
			return nil, core.ErrUnauthorized
		}
		return nil, errors.Wrap(err, "finding course")
	}
	if crs.TeacherID != teacherID {
		return nil, core.ErrUnauthorized
	}
	return svc.repo.QueryRoster(ctx, courseID)
}

// ListAvailableCourses lists every course, flagging those `studentID` is enrolled in.
func (svc *Service) ListAvailableCourses(ctx context.Context, studentID int) ([]StudentCourse, error) {
	return svc.repo.QueryStudentCourses(ctx, studentID, false)
}

// ListEnrolledCourses lists the courses `studentID` is enrolled in, with their grades.
func (svc *Service) ListEnrolledCourses(ctx context.Context, studentID int) ([]StudentCourse, error) {
	return svc.repo.QueryStudentCourses(ctx, studentID, true)
}

func (svc *Service) Count(ctx context.Context) (int, error) {
	return svc.repo.CountEnrollments(ctx, nil)
}

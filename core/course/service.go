package course

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/enrollment/core"
	"github.com/trezcool/enrollment/core/user"
)

var (
	// errors
	ErrNotFound = errors.New("course not found")

	errTeacherRequired = "teacher must be an existing user with the teacher role"
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		GetCourse(ctx context.Context, id int) (Course, error)
		// LockCourse gets the course and holds a write lock on its row until the enclosing transaction ends.
		LockCourse(ctx context.Context, id int) (Course, error)
		GetCourseSummary(ctx context.Context, id int) (Summary, error)
		QueryCourses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Summary, error)
		CountCourses(ctx context.Context, filter *QueryFilter) (int, error)
		UpdateCourse(ctx context.Context, crs Course) (Course, error)
		DeleteCourse(ctx context.Context, id int) error
		// DeleteTeacherCourses deletes the courses taught by `teacherID` and returns how many were deleted.
		DeleteTeacherCourses(ctx context.Context, teacherID int) (int, error)
	}

	Service struct {
		repo    Repository
		usrRepo user.Repository
	}
)

func NewService(repo Repository, usrRepo user.Repository) *Service {
	return &Service{repo: repo, usrRepo: usrRepo}
}

// checkTeacher makes sure `teacherID` refers to a teacher.
func (svc *Service) checkTeacher(ctx context.Context, teacherID int) error {
	usr, err := svc.usrRepo.GetUser(ctx, user.GetFilter{ID: teacherID})
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return core.NewValidationError(
				errors.New(errTeacherRequired),
				core.FieldError{Field: "teacher_id", Error: errTeacherRequired},
			)
		}
		return errors.Wrap(err, "finding teacher")
	}
	if !usr.IsTeacher() {
		return core.NewValidationError(
			errors.New(errTeacherRequired),
			core.FieldError{Field: "teacher_id", Error: errTeacherRequired},
		)
	}
	return nil
}

// Create saves a validated NewCourse after checking its teacher.
func (svc *Service) Create(ctx context.Context, nc NewCourse) (Course, error) {
	if err := svc.checkTeacher(ctx, nc.TeacherID); err != nil {
		return Course{}, err
	}
	return svc.repo.CreateCourse(ctx, Course{
		Name:      nc.Name,
		TeacherID: nc.TeacherID,
		Time:      nc.Time,
		Capacity:  nc.Capacity,
	})
}

// Update saves a validated UpdateCourse over `origCrs`; a new teacher is checked.
func (svc *Service) Update(ctx context.Context, origCrs Course, uc UpdateCourse) (Course, error) {
	crs := uc.Apply(origCrs)
	if crs.TeacherID != origCrs.TeacherID {
		if err := svc.checkTeacher(ctx, crs.TeacherID); err != nil {
			return Course{}, err
		}
	}
	return svc.repo.UpdateCourse(ctx, crs)
}

func (svc *Service) GetByID(ctx context.Context, id int) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *Service) GetSummary(ctx context.Context, id int) (Summary, error) {
	return svc.repo.GetCourseSummary(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Summary, error) {
	return svc.repo.QueryCourses(ctx, filter, ordering)
}

func (svc *Service) Count(ctx context.Context) (int, error) {
	return svc.repo.CountCourses(ctx, nil)
}

// TeacherCourses returns the courses taught by `teacherID`, with their enrollment counts.
func (svc *Service) TeacherCourses(ctx context.Context, teacherID int) ([]Summary, error) {
	return svc.repo.QueryCourses(
		ctx,
		&QueryFilter{TeacherID: teacherID},
		[]core.DBOrdering{{Field: "name", Ascending: true}},
	)
}

// Choices returns all courses as admin form options labelled "Name - TeacherFirst TeacherLast".
func (svc *Service) Choices(ctx context.Context) ([]core.Choice, error) {
	courses, err := svc.repo.QueryCourses(ctx, nil, []core.DBOrdering{{Field: "name", Ascending: true}})
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	choices := make([]core.Choice, 0, len(courses))
	for _, crs := range courses {
		choices = append(choices, core.Choice{ID: crs.ID, Label: crs.Label()})
	}
	return choices, nil
}

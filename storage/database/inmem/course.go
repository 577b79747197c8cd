package inmemdb

import (
	"context"
	"strings"

	"github.com/trezcool/enrollment/core"
	"github.com/trezcool/enrollment/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

// checkRefs enforces the teacher foreign key and the capacity check.
func (repo *courseRepository) checkRefs(crs course.Course) error {
	if _, ok := repo.db.data.users[crs.TeacherID]; !ok {
		return core.NewConstraintError("course_teacher_id_fkey", nil)
	}
	if crs.Capacity <= 0 {
		return core.NewConstraintError("course_capacity_check", nil)
	}
	return nil
}

func (repo *courseRepository) summary(crs course.Course) course.Summary {
	s := course.Summary{Course: crs}
	if teacher, ok := repo.db.data.users[crs.TeacherID]; ok {
		s.TeacherFirstName = teacher.FirstName
		s.TeacherLastName = teacher.LastName
	}
	for _, enr := range repo.db.data.enrollments {
		if enr.CourseID == crs.ID {
			s.Enrolled++
		}
	}
	s.Fill()
	return s
}

func (repo *courseRepository) matches(crs course.Course, filter *course.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.Search != "" && !containsFold(filter.Search, crs.Name, crs.Time) {
		return false
	}
	if filter.TeacherID != 0 && crs.TeacherID != filter.TeacherID {
		return false
	}
	return true
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	defer repo.db.lock(ctx)()

	if err := repo.checkRefs(crs); err != nil {
		return course.Course{}, err
	}
	repo.db.data.courseSeq++
	crs.ID = repo.db.data.courseSeq
	repo.db.data.courses[crs.ID] = crs
	return crs, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, id int) (course.Course, error) {
	defer repo.db.lock(ctx)()

	if crs, ok := repo.db.data.courses[id]; ok {
		return crs, nil
	}
	return course.Course{}, course.ErrNotFound
}

// LockCourse is GetCourse: transactions already hold the DB lock.
func (repo *courseRepository) LockCourse(ctx context.Context, id int) (course.Course, error) {
	return repo.GetCourse(ctx, id)
}

func (repo *courseRepository) GetCourseSummary(ctx context.Context, id int) (course.Summary, error) {
	defer repo.db.lock(ctx)()

	if crs, ok := repo.db.data.courses[id]; ok {
		return repo.summary(crs), nil
	}
	return course.Summary{}, course.ErrNotFound
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, ordering []core.DBOrdering) ([]course.Summary, error) {
	defer repo.db.lock(ctx)()

	courses := make([]course.Summary, 0, len(repo.db.data.courses))
	for _, crs := range repo.db.data.courses {
		if repo.matches(crs, filter) {
			courses = append(courses, repo.summary(crs))
		}
	}

	sortBy(courses, ordering, func(a, b course.Summary, field string) (int, bool) {
		switch field {
		case "id":
			return a.ID - b.ID, true
		case "name":
			return strings.Compare(a.Name, b.Name), true
		case "time":
			return strings.Compare(a.Time, b.Time), true
		case "capacity":
			return a.Capacity - b.Capacity, true
		case "teacher":
			return strings.Compare(a.TeacherLastName, b.TeacherLastName), true
		case "enrolled":
			return a.Enrolled - b.Enrolled, true
		}
		return 0, false
	})

	if filter != nil && filter.Limit > 0 && len(courses) > filter.Limit {
		courses = courses[:filter.Limit]
	}
	return courses, nil
}

func (repo *courseRepository) CountCourses(ctx context.Context, filter *course.QueryFilter) (int, error) {
	defer repo.db.lock(ctx)()

	var count int
	for _, crs := range repo.db.data.courses {
		if repo.matches(crs, filter) {
			count++
		}
	}
	return count, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.data.courses[crs.ID]; !ok {
		return course.Course{}, course.ErrNotFound
	}
	if err := repo.checkRefs(crs); err != nil {
		return course.Course{}, err
	}
	repo.db.data.courses[crs.ID] = crs
	return crs, nil
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id int) error {
	defer repo.db.lock(ctx)()
	deleteCourseCascade(&repo.db.data, id)
	return nil
}

func (repo *courseRepository) DeleteTeacherCourses(ctx context.Context, teacherID int) (int, error) {
	defer repo.db.lock(ctx)()

	var n int
	for id, crs := range repo.db.data.courses {
		if crs.TeacherID == teacherID {
			deleteCourseCascade(&repo.db.data, id)
			n++
		}
	}
	return n, nil
}

// deleteCourseCascade deletes course `id` and its enrollments, like ON DELETE CASCADE.
func deleteCourseCascade(data *tables, id int) {
	for eid, enr := range data.enrollments {
		if enr.CourseID == id {
			delete(data.enrollments, eid)
		}
	}
	delete(data.courses, id)
}

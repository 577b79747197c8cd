package inmemdb

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/enrollment/core"
	"github.com/trezcool/enrollment/core/enrollment"
)

type enrollmentRepository struct {
	db *DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *DB) *enrollmentRepository {
	return &enrollmentRepository{db: db}
}

// checkConstraints enforces the foreign keys, the grade check and the (student, course) uniqueness.
func (repo *enrollmentRepository) checkConstraints(enr enrollment.Enrollment) error {
	data := repo.db.data
	if _, ok := data.users[enr.StudentID]; !ok {
		return core.NewConstraintError("enrollment_student_id_fkey", nil)
	}
	if _, ok := data.courses[enr.CourseID]; !ok {
		return core.NewConstraintError("enrollment_course_id_fkey", nil)
	}
	if enr.Grade.Valid && (enr.Grade.Int < enrollment.MinGrade || enr.Grade.Int > enrollment.MaxGrade) {
		return core.NewConstraintError("enrollment_grade_check", nil)
	}
	for _, e := range data.enrollments {
		if e.StudentID == enr.StudentID && e.CourseID == enr.CourseID && e.ID != enr.ID {
			return core.NewConstraintError("enrollment_student_course_key", enrollment.ErrAlreadyEnrolled)
		}
	}
	return nil
}

func (repo *enrollmentRepository) matches(enr enrollment.Enrollment, filter *enrollment.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.StudentID != 0 && enr.StudentID != filter.StudentID {
		return false
	}
	if filter.CourseID != 0 && enr.CourseID != filter.CourseID {
		return false
	}
	if filter.TeacherID != 0 {
		if crs, ok := repo.db.data.courses[enr.CourseID]; !ok || crs.TeacherID != filter.TeacherID {
			return false
		}
	}
	return true
}

func (repo *enrollmentRepository) CreateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	defer repo.db.lock(ctx)()

	if err := repo.checkConstraints(enr); err != nil {
		return enrollment.Enrollment{}, err
	}
	repo.db.data.enrSeq++
	enr.ID = repo.db.data.enrSeq
	enr.EnrolledDate = enr.EnrolledDate.UTC()
	repo.db.data.enrollments[enr.ID] = enr
	return enr, nil
}

func (repo *enrollmentRepository) GetEnrollment(ctx context.Context, filter enrollment.GetFilter) (enrollment.Enrollment, error) {
	defer repo.db.lock(ctx)()

	if filter.ID != 0 {
		if enr, ok := repo.db.data.enrollments[filter.ID]; ok {
			return enr, nil
		}
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	if filter.StudentID != 0 && filter.CourseID != 0 {
		for _, enr := range repo.db.data.enrollments {
			if enr.StudentID == filter.StudentID && enr.CourseID == filter.CourseID {
				return enr, nil
			}
		}
	}
	return enrollment.Enrollment{}, enrollment.ErrNotFound
}

func (repo *enrollmentRepository) QueryEnrollments(ctx context.Context, filter *enrollment.QueryFilter, ordering []core.DBOrdering) ([]enrollment.Detail, error) {
	defer repo.db.lock(ctx)()

	data := repo.db.data
	details := make([]enrollment.Detail, 0, len(data.enrollments))
	for _, enr := range data.enrollments {
		if !repo.matches(enr, filter) {
			continue
		}
		d := enrollment.Detail{Enrollment: enr}
		if st, ok := data.users[enr.StudentID]; ok {
			d.StudentFirstName, d.StudentLastName = st.FirstName, st.LastName
		}
		if crs, ok := data.courses[enr.CourseID]; ok {
			d.CourseName = crs.Name
		}
		d.Fill()
		details = append(details, d)
	}

	sortBy(details, ordering, func(a, b enrollment.Detail, field string) (int, bool) {
		switch field {
		case "id":
			return a.ID - b.ID, true
		case "student":
			return strings.Compare(a.StudentLastName, b.StudentLastName), true
		case "course":
			return strings.Compare(a.CourseName, b.CourseName), true
		case "grade":
			return compareGrades(a.Grade, b.Grade), true
		case "enrolled_date":
			return a.EnrolledDate.Compare(b.EnrolledDate), true
		}
		return 0, false
	})

	if filter != nil && filter.Limit > 0 && len(details) > filter.Limit {
		details = details[:filter.Limit]
	}
	return details, nil
}

func (repo *enrollmentRepository) CountEnrollments(ctx context.Context, filter *enrollment.QueryFilter) (int, error) {
	defer repo.db.lock(ctx)()

	var count int
	for _, enr := range repo.db.data.enrollments {
		if repo.matches(enr, filter) {
			count++
		}
	}
	return count, nil
}

func (repo *enrollmentRepository) UpdateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.data.enrollments[enr.ID]; !ok {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	if err := repo.checkConstraints(enr); err != nil {
		return enrollment.Enrollment{}, err
	}
	repo.db.data.enrollments[enr.ID] = enr
	return enr, nil
}

func (repo *enrollmentRepository) DeleteEnrollment(ctx context.Context, id int) error {
	defer repo.db.lock(ctx)()
	delete(repo.db.data.enrollments, id)
	return nil
}

func (repo *enrollmentRepository) DeleteEnrollments(ctx context.Context, filter enrollment.QueryFilter) (int, error) {
	if filter.StudentID == 0 && filter.CourseID == 0 && filter.TeacherID == 0 {
		return 0, errors.New("refusing to delete all enrollments")
	}
	defer repo.db.lock(ctx)()

	var n int
	for id, enr := range repo.db.data.enrollments {
		if repo.matches(enr, &filter) {
			delete(repo.db.data.enrollments, id)
			n++
		}
	}
	return n, nil
}

func (repo *enrollmentRepository) QueryRoster(ctx context.Context, courseID int) ([]enrollment.RosterEntry, error) {
	defer repo.db.lock(ctx)()

	data := repo.db.data
	roster := make([]enrollment.RosterEntry, 0)
	for _, enr := range data.enrollments {
		if enr.CourseID != courseID {
			continue
		}
		entry := enrollment.RosterEntry{ID: enr.ID, StudentID: enr.StudentID, Grade: enr.Grade}
		if st, ok := data.users[enr.StudentID]; ok {
			entry.FirstName, entry.LastName = st.FirstName, st.LastName
		}
		entry.Fill()
		roster = append(roster, entry)
	}

	sortBy(roster, nil, func(a, b enrollment.RosterEntry, _ string) (int, bool) {
		if c := strings.Compare(a.LastName, b.LastName); c != 0 {
			return c, true
		}
		if c := strings.Compare(a.FirstName, b.FirstName); c != 0 {
			return c, true
		}
		return a.ID - b.ID, true
	})
	return roster, nil
}

func (repo *enrollmentRepository) QueryStudentCourses(ctx context.Context, studentID int, enrolledOnly bool) ([]enrollment.StudentCourse, error) {
	defer repo.db.lock(ctx)()

	data := repo.db.data
	mine := make(map[int]enrollment.Enrollment)
	counts := make(map[int]int)
	for _, enr := range data.enrollments {
		counts[enr.CourseID]++
		if enr.StudentID == studentID {
			mine[enr.CourseID] = enr
		}
	}

	courses := make([]enrollment.StudentCourse, 0)
	for _, crs := range data.courses {
		enr, enrolled := mine[crs.ID]
		if enrolledOnly && !enrolled {
			continue
		}
		sc := enrollment.StudentCourse{
			ID:       crs.ID,
			Name:     crs.Name,
			Time:     crs.Time,
			Capacity: crs.Capacity,
			Enrolled: counts[crs.ID],
		}
		if teacher, ok := data.users[crs.TeacherID]; ok {
			sc.TeacherFirstName, sc.TeacherLastName = teacher.FirstName, teacher.LastName
		}
		if enrolled {
			sc.EnrollmentID = null.IntFrom(enr.ID)
			sc.Grade = enr.Grade
		}
		sc.Fill()
		courses = append(courses, sc)
	}

	sortBy(courses, nil, func(a, b enrollment.StudentCourse, _ string) (int, bool) {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c, true
		}
		return a.ID - b.ID, true
	})
	return courses, nil
}

func compareGrades(a, b null.Int) int {
	switch {
	case !a.Valid && !b.Valid:
		return 0
	case !a.Valid:
		return -1
	case !b.Valid:
		return 1
	}
	return a.Int - b.Int
}

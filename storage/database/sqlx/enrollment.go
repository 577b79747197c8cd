package sqlxrepos

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/enrollment/core"
	"github.com/trezcool/enrollment/core/enrollment"
	"github.com/trezcool/enrollment/storage/database"
)

var enrollmentOrderColumns = map[string]string{
	"id":            "e.id",
	"student":       "s.last_name",
	"course":        "c.name",
	"grade":         "e.grade",
	"enrolled_date": "e.enrolled_date",
}

type enrollmentRepository struct {
	db *sqlx.DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *sqlx.DB) *enrollmentRepository {
	return &enrollmentRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to enrollment.ErrNotFound
func (repo enrollmentRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return enrollment.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

// where applies filter on a query over enrollment aliased `e`.
func (repo enrollmentRepository) where(filter *enrollment.QueryFilter) sq.And {
	and := sq.And{}
	if filter == nil {
		return and
	}
	if filter.StudentID != 0 {
		and = append(and, sq.Eq{"e.student_id": filter.StudentID})
	}
	if filter.CourseID != 0 {
		and = append(and, sq.Eq{"e.course_id": filter.CourseID})
	}
	if filter.TeacherID != 0 {
		and = append(and, sq.Expr("e.course_id IN (SELECT id FROM course WHERE teacher_id = ?)", filter.TeacherID))
	}
	return and
}

func (repo enrollmentRepository) CreateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	query, args, err := psql.Insert("enrollment").
		Columns("student_id", "course_id", "grade", "enrolled_date").
		Values(enr.StudentID, enr.CourseID, enr.Grade, enr.EnrolledDate.UTC()).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "building query")
	}
	if err = sqlx.GetContext(ctx, database.Executor(ctx, repo.db), &enr.ID, query, args...); err != nil {
		return enrollment.Enrollment{}, database.MapError(err, "inserting enrollment")
	}
	return enr, nil
}

func (repo enrollmentRepository) GetEnrollment(ctx context.Context, filter enrollment.GetFilter) (enrollment.Enrollment, error) {
	q := psql.Select("id", "student_id", "course_id", "grade", "enrolled_date").From("enrollment")
	switch {
	case filter.ID != 0:
		q = q.Where(sq.Eq{"id": filter.ID})
	case filter.StudentID != 0 && filter.CourseID != 0:
		q = q.Where(sq.Eq{"student_id": filter.StudentID, "course_id": filter.CourseID})
	default:
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}

	query, args, err := q.ToSql()
	if err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "building query")
	}
	var enr enrollment.Enrollment
	if err = sqlx.GetContext(ctx, database.Executor(ctx, repo.db), &enr, query, args...); err != nil {
		return enrollment.Enrollment{}, repo.trapNoRowsErr(err, "getting enrollment")
	}
	return enr, nil
}

func (repo enrollmentRepository) QueryEnrollments(ctx context.Context, filter *enrollment.QueryFilter, ordering []core.DBOrdering) ([]enrollment.Detail, error) {
	q := psql.Select(
		"e.id", "e.student_id", "e.course_id", "e.grade", "e.enrolled_date",
		"s.first_name AS student_first_name", "s.last_name AS student_last_name", "c.name AS course_name",
	).
		From("enrollment e").
		Join(`"user" s ON s.id = e.student_id`).
		Join("course c ON c.id = e.course_id").
		Where(repo.where(filter)).
		OrderBy(orderBy(ordering, enrollmentOrderColumns, "e.id ASC")...)
	if filter != nil && filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	details := make([]enrollment.Detail, 0)
	if err = sqlx.SelectContext(ctx, database.Executor(ctx, repo.db), &details, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	for i := range details {
		details[i].Fill()
	}
	return details, nil
}

func (repo enrollmentRepository) CountEnrollments(ctx context.Context, filter *enrollment.QueryFilter) (int, error) {
	query, args, err := psql.Select("COUNT(*)").From("enrollment e").Where(repo.where(filter)).ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	var count int
	if err = sqlx.GetContext(ctx, database.Executor(ctx, repo.db), &count, query, args...); err != nil {
		return 0, errors.Wrap(err, "counting enrollments")
	}
	return count, nil
}

func (repo enrollmentRepository) UpdateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	query, args, err := psql.Update("enrollment").
		Set("student_id", enr.StudentID).
		Set("course_id", enr.CourseID).
		Set("grade", enr.Grade).
		Where(sq.Eq{"id": enr.ID}).
		ToSql()
	if err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "building query")
	}
	res, err := database.Executor(ctx, repo.db).ExecContext(ctx, query, args...)
	if err != nil {
		return enrollment.Enrollment{}, database.MapError(err, "updating enrollment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	return enr, nil
}

func (repo enrollmentRepository) DeleteEnrollment(ctx context.Context, id int) error {
	query, args, err := psql.Delete("enrollment").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if _, err = database.Executor(ctx, repo.db).ExecContext(ctx, query, args...); err != nil {
		return database.MapError(err, "deleting enrollment")
	}
	return nil
}

func (repo enrollmentRepository) DeleteEnrollments(ctx context.Context, filter enrollment.QueryFilter) (int, error) {
	where := repo.where(&filter)
	if len(where) == 0 {
		return 0, errors.New("refusing to delete all enrollments")
	}
	query, args, err := psql.Delete("enrollment e").Where(where).ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	res, err := database.Executor(ctx, repo.db).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, database.MapError(err, "deleting enrollments")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "counting deleted enrollments")
	}
	return int(n), nil
}

func (repo enrollmentRepository) QueryRoster(ctx context.Context, courseID int) ([]enrollment.RosterEntry, error) {
	query, args, err := psql.Select("e.id", "e.student_id", "s.first_name", "s.last_name", "e.grade").
		From("enrollment e").
		Join(`"user" s ON s.id = e.student_id`).
		Where(sq.Eq{"e.course_id": courseID}).
		OrderBy("s.last_name ASC", "s.first_name ASC", "e.id ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	roster := make([]enrollment.RosterEntry, 0)
	if err = sqlx.SelectContext(ctx, database.Executor(ctx, repo.db), &roster, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying roster")
	}
	for i := range roster {
		roster[i].Fill()
	}
	return roster, nil
}

func (repo enrollmentRepository) QueryStudentCourses(ctx context.Context, studentID int, enrolledOnly bool) ([]enrollment.StudentCourse, error) {
	join := "LEFT JOIN"
	if enrolledOnly {
		join = "JOIN"
	}
	query, args, err := psql.Select(
		"c.id", "c.name", "c.time", "c.capacity",
		"t.first_name AS teacher_first_name", "t.last_name AS teacher_last_name",
		"(SELECT COUNT(*) FROM enrollment n WHERE n.course_id = c.id) AS enrolled",
		"e.id AS enrollment_id", "e.grade",
	).
		From("course c").
		Join(`"user" t ON t.id = c.teacher_id`).
		JoinClause(join+" enrollment e ON e.course_id = c.id AND e.student_id = ?", studentID).
		OrderBy("c.name ASC", "c.id ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	courses := make([]enrollment.StudentCourse, 0)
	if err = sqlx.SelectContext(ctx, database.Executor(ctx, repo.db), &courses, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying student courses")
	}
	for i := range courses {
		courses[i].Fill()
	}
	return courses, nil
}

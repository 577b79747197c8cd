package sqlxrepos

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/enrollment/core"
	"github.com/trezcool/enrollment/core/course"
	"github.com/trezcool/enrollment/storage/database"
)

var courseOrderColumns = map[string]string{
	"id":       "c.id",
	"name":     "c.name",
	"time":     "c.time",
	"capacity": "c.capacity",
	"teacher":  "t.last_name",
	"enrolled": "enrolled",
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to course.ErrNotFound
func (repo courseRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return course.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo courseRepository) summaries() sq.SelectBuilder {
	return psql.Select(
		"c.id", "c.name", "c.teacher_id", "c.time", "c.capacity",
		"t.first_name AS teacher_first_name", "t.last_name AS teacher_last_name",
		"(SELECT COUNT(*) FROM enrollment e WHERE e.course_id = c.id) AS enrolled",
	).
		From("course c").
		Join(`"user" t ON t.id = c.teacher_id`)
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	query, args, err := psql.Insert("course").
		Columns("name", "teacher_id", "time", "capacity").
		Values(crs.Name, crs.TeacherID, crs.Time, crs.Capacity).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return course.Course{}, errors.Wrap(err, "building query")
	}
	if err = sqlx.GetContext(ctx, database.Executor(ctx, repo.db), &crs.ID, query, args...); err != nil {
		return course.Course{}, database.MapError(err, "inserting course")
	}
	return crs, nil
}

func (repo courseRepository) getCourse(ctx context.Context, id int, lock bool) (course.Course, error) {
	q := psql.Select("id", "name", "teacher_id", "time", "capacity").From("course").Where(sq.Eq{"id": id})
	if lock {
		q = q.Suffix("FOR UPDATE")
	}
	query, args, err := q.ToSql()
	if err != nil {
		return course.Course{}, errors.Wrap(err, "building query")
	}
	var crs course.Course
	if err = sqlx.GetContext(ctx, database.Executor(ctx, repo.db), &crs, query, args...); err != nil {
		return course.Course{}, repo.trapNoRowsErr(err, "getting course")
	}
	return crs, nil
}

func (repo courseRepository) GetCourse(ctx context.Context, id int) (course.Course, error) {
	return repo.getCourse(ctx, id, false)
}

func (repo courseRepository) LockCourse(ctx context.Context, id int) (course.Course, error) {
	return repo.getCourse(ctx, id, true)
}

func (repo courseRepository) GetCourseSummary(ctx context.Context, id int) (course.Summary, error) {
	query, args, err := repo.summaries().Where(sq.Eq{"c.id": id}).ToSql()
	if err != nil {
		return course.Summary{}, errors.Wrap(err, "building query")
	}
	var s course.Summary
	if err = sqlx.GetContext(ctx, database.Executor(ctx, repo.db), &s, query, args...); err != nil {
		return course.Summary{}, repo.trapNoRowsErr(err, "getting course")
	}
	s.Fill()
	return s, nil
}

func (repo courseRepository) filter(q sq.SelectBuilder, filter *course.QueryFilter) sq.SelectBuilder {
	if filter == nil {
		return q
	}
	if filter.Search != "" {
		q = q.Where(ilike(filter.Search, "c.name", "c.time"))
	}
	if filter.TeacherID != 0 {
		q = q.Where(sq.Eq{"c.teacher_id": filter.TeacherID})
	}
	return q
}

func (repo courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, ordering []core.DBOrdering) ([]course.Summary, error) {
	q := repo.filter(repo.summaries(), filter)
	if filter != nil && filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	q = q.OrderBy(orderBy(ordering, courseOrderColumns, "c.id ASC")...)

	query, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	courses := make([]course.Summary, 0)
	if err = sqlx.SelectContext(ctx, database.Executor(ctx, repo.db), &courses, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	for i := range courses {
		courses[i].Fill()
	}
	return courses, nil
}

func (repo courseRepository) CountCourses(ctx context.Context, filter *course.QueryFilter) (int, error) {
	query, args, err := repo.filter(psql.Select("COUNT(*)").From("course c"), filter).ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	var count int
	if err = sqlx.GetContext(ctx, database.Executor(ctx, repo.db), &count, query, args...); err != nil {
		return 0, errors.Wrap(err, "counting courses")
	}
	return count, nil
}

func (repo courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	query, args, err := psql.Update("course").
		Set("name", crs.Name).
		Set("teacher_id", crs.TeacherID).
		Set("time", crs.Time).
		Set("capacity", crs.Capacity).
		Where(sq.Eq{"id": crs.ID}).
		ToSql()
	if err != nil {
		return course.Course{}, errors.Wrap(err, "building query")
	}
	res, err := database.Executor(ctx, repo.db).ExecContext(ctx, query, args...)
	if err != nil {
		return course.Course{}, database.MapError(err, "updating course")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return crs, nil
}

func (repo courseRepository) DeleteCourse(ctx context.Context, id int) error {
	query, args, err := psql.Delete("course").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if _, err = database.Executor(ctx, repo.db).ExecContext(ctx, query, args...); err != nil {
		return database.MapError(err, "deleting course")
	}
	return nil
}

func (repo courseRepository) DeleteTeacherCourses(ctx context.Context, teacherID int) (int, error) {
	query, args, err := psql.Delete("course").Where(sq.Eq{"teacher_id": teacherID}).ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	res, err := database.Executor(ctx, repo.db).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, database.MapError(err, "deleting teacher courses")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "counting deleted courses")
	}
	return int(n), nil
}

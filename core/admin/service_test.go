package admin_test

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/enrollment/core"
	"github.com/trezcool/enrollment/core/admin"
	"github.com/trezcool/enrollment/core/course"
	"github.com/trezcool/enrollment/core/enrollment"
	"github.com/trezcool/enrollment/core/user"
	logsvc "github.com/trezcool/enrollment/services/logger"
	"github.com/trezcool/enrollment/testutil"
)

var errDiskFull = errors.New("disk full")

// failingCourseRepo fails to delete the courses of a teacher, after the enrollments are gone.
type failingCourseRepo struct {
	course.Repository
}

func (repo failingCourseRepo) DeleteTeacherCourses(context.Context, int) (int, error) {
	return 0, errDiskFull
}

func newService(store *testutil.Store, crsRepo ...course.Repository) *admin.Service {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	deps := admin.Deps{
		Tx:       store.DB,
		UsrRepo:  store.UsrRepo,
		CrsRepo:  store.CrsRepo,
		EnrRepo:  store.EnrRepo,
		Validate: validate,
		Logger:   logsvc.NewDiscardLogger(core.NewTestConfig()),
	}
	if len(crsRepo) > 0 {
		deps.CrsRepo = crsRepo[0]
	}
	return admin.NewService(deps)
}

type school struct {
	admin, teacher, student, other user.User
	cs106, cs162                   course.Course
}

func newSchool(t *testing.T, store *testutil.Store) school {
	s := school{
		admin:   testutil.CreateUser(t, store.UsrRepo, "admin", "Admin", "User", "admin123", user.RoleAdmin),
		teacher: testutil.CreateUser(t, store.UsrRepo, "ahepworth", "Ammon", "Hepworth", "teacher123", user.RoleTeacher),
		student: testutil.CreateUser(t, store.UsrRepo, "jsantos", "Jose", "Santos", "student123", user.RoleStudent),
		other:   testutil.CreateUser(t, store.UsrRepo, "bbrown", "Betty", "Brown", "student123", user.RoleStudent),
	}
	s.cs106 = testutil.CreateCourse(t, store.CrsRepo, "CS 106", s.teacher.ID, 10)
	s.cs162 = testutil.CreateCourse(t, store.CrsRepo, "CS 162", s.teacher.ID, 4)
	testutil.Enroll(t, store.EnrRepo, s.student.ID, s.cs106.ID, testutil.IntPtr(93))
	testutil.Enroll(t, store.EnrRepo, s.student.ID, s.cs162.ID, testutil.IntPtr(99))
	testutil.Enroll(t, store.EnrRepo, s.other.ID, s.cs162.ID, nil)
	return s
}

func TestService_Dashboard(t *testing.T) {
	store := testutil.NewStore()
	newSchool(t, store)

	stats, err := newService(store).Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, admin.Stats{Users: 4, Courses: 2, Enrollments: 3}, stats)
}

func TestService_CreateUser(t *testing.T) {
	store := testutil.NewStore()
	svc := newService(store)
	ctx := context.Background()

	usr, err := svc.CreateUser(ctx, user.NewUser{Username: "mgarcia", FirstName: "Michael", LastName: "Garcia", Role: "student"})
	require.NoError(t, err)
	assert.NoError(t, usr.CheckPassword(admin.DefaultPassword), "no password means the default one")

	usr, err = svc.CreateUser(ctx, user.NewUser{Username: "ewhite", FirstName: "Emily", LastName: "White", Role: "teacher", Password: "Marmalade-77"})
	require.NoError(t, err)
	assert.NoError(t, usr.CheckPassword("Marmalade-77"))
	assert.Equal(t, user.RoleTeacher, usr.Role)

	_, err = svc.CreateUser(ctx, user.NewUser{Username: "ewhite", FirstName: "Emily", LastName: "White", Role: "teacher"})
	var validationErr *core.ValidationError
	assert.ErrorAs(t, err, &validationErr)

	_, err = svc.CreateUser(ctx, user.NewUser{Username: "weak", FirstName: "Weak", LastName: "Password", Role: "student", Password: "123"})
	var fieldErrs validator.ValidationErrors
	assert.ErrorAs(t, err, &fieldErrs)
}

func TestService_UpdateUser(t *testing.T) {
	store := testutil.NewStore()
	s := newSchool(t, store)
	svc := newService(store)
	ctx := context.Background()

	usr, err := svc.UpdateUser(ctx, s.student.ID, user.UpdateUser{LastName: "Santos-Diaz"})
	require.NoError(t, err)
	assert.Equal(t, "Jose Santos-Diaz", usr.FullName())
	assert.NoError(t, usr.CheckPassword("student123"), "no password keeps the current one")

	usr, err = svc.UpdateUser(ctx, s.student.ID, user.UpdateUser{Password: "Pineapple-31"})
	require.NoError(t, err)
	assert.NoError(t, usr.CheckPassword("Pineapple-31"))

	_, err = svc.UpdateUser(ctx, 999, user.UpdateUser{})
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestService_DeleteUser(t *testing.T) {
	ctx := context.Background()

	t.Run("teacher cascade", func(t *testing.T) {
		store := testutil.NewStore()
		s := newSchool(t, store)

		report, err := newService(store).DeleteUser(ctx, s.teacher.ID, s.admin.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, report.CoursesDeleted)
		assert.Equal(t, 3, report.EnrollmentsDeleted)
		assert.Equal(t, []string{
			`User "ahepworth" had 2 courses and 3 enrollments. These were also deleted.`,
			`User "ahepworth" has been successfully deleted.`,
		}, report.Messages)

		crsCount, _ := store.CrsRepo.CountCourses(ctx, nil)
		enrCount, _ := store.EnrRepo.CountEnrollments(ctx, nil)
		assert.Zero(t, crsCount)
		assert.Zero(t, enrCount)
	})

	t.Run("student cascade", func(t *testing.T) {
		store := testutil.NewStore()
		s := newSchool(t, store)

		report, err := newService(store).DeleteUser(ctx, s.student.ID, s.admin.ID)
		require.NoError(t, err)
		assert.Zero(t, report.CoursesDeleted)
		assert.Equal(t, 2, report.EnrollmentsDeleted)

		enrCount, _ := store.EnrRepo.CountEnrollments(ctx, nil)
		assert.Equal(t, 1, enrCount)
	})

	t.Run("nothing to cascade", func(t *testing.T) {
		store := testutil.NewStore()
		s := newSchool(t, store)
		loner := testutil.CreateUser(t, store.UsrRepo, "loner", "Lo", "Ner", "", user.RoleStudent)

		report, err := newService(store).DeleteUser(ctx, loner.ID, s.admin.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{`User "loner" has been successfully deleted.`}, report.Messages)
	})

	t.Run("own account", func(t *testing.T) {
		store := testutil.NewStore()
		s := newSchool(t, store)

		_, err := newService(store).DeleteUser(ctx, s.admin.ID, s.admin.ID)
		var validationErr *core.ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})

	t.Run("missing", func(t *testing.T) {
		store := testutil.NewStore()
		s := newSchool(t, store)

		_, err := newService(store).DeleteUser(ctx, 999, s.admin.ID)
		assert.ErrorIs(t, err, user.ErrNotFound)
	})

	t.Run("rollback", func(t *testing.T) {
		store := testutil.NewStore()
		s := newSchool(t, store)
		svc := newService(store, failingCourseRepo{Repository: store.CrsRepo})

		_, err := svc.DeleteUser(ctx, s.teacher.ID, s.admin.ID)
		var txErr *core.TxError
		require.ErrorAs(t, err, &txErr)
		assert.ErrorIs(t, err, errDiskFull)
		assert.Equal(t, `Error deleting user "ahepworth": deleting courses: disk full`, err.Error())

		// nothing was deleted
		_, err = store.UsrRepo.GetUser(ctx, user.GetFilter{ID: s.teacher.ID})
		assert.NoError(t, err)
		crsCount, _ := store.CrsRepo.CountCourses(ctx, nil)
		enrCount, _ := store.EnrRepo.CountEnrollments(ctx, nil)
		assert.Equal(t, 2, crsCount)
		assert.Equal(t, 3, enrCount)
	})
}

func TestService_courses(t *testing.T) {
	store := testutil.NewStore()
	s := newSchool(t, store)
	svc := newService(store)
	ctx := context.Background()

	_, err := svc.CreateCourse(ctx, course.NewCourse{Name: "Bio 1", TeacherID: s.student.ID, Time: "MWF 9:00-9:50 AM", Capacity: 5})
	var validationErr *core.ValidationError
	require.ErrorAs(t, err, &validationErr, "students cannot teach")
	assert.Equal(t, "teacher_id", validationErr.Fields[0].Field)

	_, err = svc.CreateCourse(ctx, course.NewCourse{Name: "Bio 1", TeacherID: s.teacher.ID, Time: "MWF 9:00-9:50 AM"})
	var fieldErrs validator.ValidationErrors
	assert.ErrorAs(t, err, &fieldErrs, "capacity is required")

	bio, err := svc.CreateCourse(ctx, course.NewCourse{Name: " Bio 1 ", TeacherID: s.teacher.ID, Time: "MWF 9:00-9:50 AM", Capacity: 5})
	require.NoError(t, err)
	assert.Equal(t, "Bio 1", bio.Name)

	bio, err = svc.UpdateCourse(ctx, bio.ID, course.UpdateCourse{Capacity: 6})
	require.NoError(t, err)
	assert.Equal(t, 6, bio.Capacity)
	assert.Equal(t, "Bio 1", bio.Name)

	summary, err := svc.GetCourse(ctx, s.cs162.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ammon Hepworth", summary.TeacherName)
	assert.Equal(t, 2, summary.Enrolled)

	courses, err := svc.ListCourses(ctx, &course.QueryFilter{Search: "cs"}, []core.DBOrdering{{Field: "name", Ascending: false}})
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, "CS 162", courses[0].Name)

	report, err := svc.DeleteCourse(ctx, s.cs162.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, report.EnrollmentsDeleted)
	assert.Equal(t, []string{
		`Course "CS 162" had 2 enrollments. These were also deleted.`,
		`Course "CS 162" has been successfully deleted.`,
	}, report.Messages)

	_, err = svc.DeleteCourse(ctx, s.cs162.ID)
	assert.ErrorIs(t, err, course.ErrNotFound)
}

func TestService_enrollments(t *testing.T) {
	store := testutil.NewStore()
	s := newSchool(t, store)
	svc := newService(store)
	ctx := context.Background()

	tests := []struct {
		name       string
		ne         enrollment.NewEnrollment
		wantFields []string
	}{
		{name: "teacher as student", ne: enrollment.NewEnrollment{StudentID: s.teacher.ID, CourseID: s.cs106.ID}, wantFields: []string{"student_id"}},
		{name: "missing student & course", ne: enrollment.NewEnrollment{StudentID: 999, CourseID: 999}, wantFields: []string{"student_id", "course_id"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateEnrollment(ctx, tt.ne)
			var validationErr *core.ValidationError
			require.ErrorAs(t, err, &validationErr)
			var fields []string
			for _, fld := range validationErr.Fields {
				fields = append(fields, fld.Field)
			}
			assert.Equal(t, tt.wantFields, fields)
		})
	}

	_, err := svc.CreateEnrollment(ctx, enrollment.NewEnrollment{StudentID: s.student.ID, CourseID: s.cs106.ID})
	var constraintErr *core.ConstraintError
	assert.ErrorAs(t, err, &constraintErr, "duplicate pair")

	_, err = svc.CreateEnrollment(ctx, enrollment.NewEnrollment{StudentID: s.other.ID, CourseID: s.cs106.ID, Grade: null.IntFrom(101)})
	var fieldErrs validator.ValidationErrors
	assert.ErrorAs(t, err, &fieldErrs, "grade out of range")

	enr, err := svc.CreateEnrollment(ctx, enrollment.NewEnrollment{StudentID: s.other.ID, CourseID: s.cs106.ID, Grade: null.IntFrom(88)})
	require.NoError(t, err)
	assert.Equal(t, null.IntFrom(88), enr.Grade)

	enr, err = svc.UpdateEnrollment(ctx, enr.ID, enrollment.UpdateEnrollment{})
	require.NoError(t, err)
	assert.False(t, enr.Grade.Valid, "a null grade clears it")

	details, err := svc.ListEnrollments(ctx, &enrollment.QueryFilter{CourseID: s.cs106.ID}, nil)
	require.NoError(t, err)
	require.Len(t, details, 2)
	for _, d := range details {
		assert.Equal(t, "CS 106", d.CourseName)
		assert.Regexp(t, `^\d{4}-\d{2}-\d{2}$`, d.Enrolled)
	}

	require.NoError(t, svc.DeleteEnrollment(ctx, enr.ID))
	assert.ErrorIs(t, svc.DeleteEnrollment(ctx, enr.ID), enrollment.ErrNotFound)
}

func TestService_choices(t *testing.T) {
	store := testutil.NewStore()
	s := newSchool(t, store)
	svc := newService(store)
	ctx := context.Background()

	crsChoices, err := svc.CourseChoices(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.Choice{{ID: s.teacher.ID, Label: "Ammon Hepworth (ahepworth)"}}, crsChoices.Teachers)

	enrChoices, err := svc.EnrollmentChoices(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.Choice{
		{ID: s.other.ID, Label: "Betty Brown (bbrown)"},
		{ID: s.student.ID, Label: "Jose Santos (jsantos)"},
	}, enrChoices.Students)
	assert.Equal(t, []core.Choice{
		{ID: s.cs106.ID, Label: "CS 106 - Ammon Hepworth"},
		{ID: s.cs162.ID, Label: "CS 162 - Ammon Hepworth"},
	}, enrChoices.Courses)
}

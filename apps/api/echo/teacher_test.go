package echoapi_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	. "github.com/trezcool/enrollment/apps/api/echo"
	"github.com/trezcool/enrollment/core/course"
	"github.com/trezcool/enrollment/core/enrollment"
	"github.com/trezcool/enrollment/core/user"
	"github.com/trezcool/enrollment/testutil"
)

func TestTeacherAPI_grades(t *testing.T) {
	s := newSchool(t)
	ctx := context.Background()
	jsantosCS106 := testutil.Enroll(t, s.store.EnrRepo, s.student.ID, s.cs106.ID, nil)

	ahepworth := s.login(t, "ahepworth", "teacher123")
	swalker := s.login(t, "swalker", "teacher123")
	student := s.login(t, "jsantos", "student123")

	gradeBody := func(id int, grade string) []byte {
		return []byte(fmt.Sprintf(`{"enrollment_id": %d, "grade": %s}`, id, grade))
	}

	tests := []httpTest{
		{
			name: "student", method: http.MethodPost, path: "/api/update_grade", body: gradeBody(jsantosCS106.ID, "90"), cookies: student,
			wantCode: http.StatusForbidden, wantData: message(false, "Unauthorized"),
		},
		{
			name: "not their course", method: http.MethodPost, path: "/api/update_grade", body: gradeBody(jsantosCS106.ID, "90"), cookies: swalker,
			wantCode: http.StatusForbidden, wantData: message(false, "Unauthorized"),
		},
		{
			name: "not their course, invalid grade", method: http.MethodPost, path: "/api/update_grade", body: gradeBody(jsantosCS106.ID, "101"), cookies: swalker,
			wantCode: http.StatusForbidden, wantData: message(false, "Unauthorized"),
		},
		{
			name: "missing enrollment", method: http.MethodPost, path: "/api/update_grade", body: []byte(`{"grade": 90}`), cookies: ahepworth,
			wantCode: http.StatusBadRequest,
		},
		{
			name: "unknown enrollment", method: http.MethodPost, path: "/api/update_grade", body: gradeBody(999, "90"), cookies: ahepworth,
			wantCode: http.StatusNotFound, wantData: message(false, "Enrollment not found"),
		},
		{
			name: "grade too high", method: http.MethodPost, path: "/api/update_grade", body: gradeBody(jsantosCS106.ID, "101"), cookies: ahepworth,
			wantCode: http.StatusBadRequest,
		},
		{
			name: "grade too low", method: http.MethodPost, path: "/api/update_grade", body: gradeBody(jsantosCS106.ID, "-1"), cookies: ahepworth,
			wantCode: http.StatusBadRequest,
		},
		{
			name: "grade", method: http.MethodPost, path: "/api/update_grade", body: gradeBody(jsantosCS106.ID, "93"), cookies: ahepworth,
			wantCode: http.StatusOK, wantData: message(true, "Grade updated"),
		},
	}
	s.run(t, tests)

	enr, err := s.store.EnrRepo.GetEnrollment(ctx, enrollment.GetFilter{ID: jsantosCS106.ID})
	require.NoError(t, err)
	assert.Equal(t, null.IntFrom(93), enr.Grade)

	t.Run("clear grade", func(t *testing.T) {
		rec := s.serve(newSessionRequest(http.MethodPost, "/api/update_grade", ahepworth, gradeBody(jsantosCS106.ID, "null")))
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: message(true, "Grade updated")}, rec)

		enr, err := s.store.EnrRepo.GetEnrollment(ctx, enrollment.GetFilter{ID: jsantosCS106.ID})
		require.NoError(t, err)
		assert.False(t, enr.Grade.Valid)
	})
}

func TestTeacherAPI_roster(t *testing.T) {
	s := newSchool(t)
	ana := testutil.CreateUser(t, s.store.UsrRepo, "aadams", "Ana", "Adams", "", user.RoleStudent)
	jsantosCS106 := testutil.Enroll(t, s.store.EnrRepo, s.student.ID, s.cs106.ID, testutil.IntPtr(88))
	anaCS106 := testutil.Enroll(t, s.store.EnrRepo, ana.ID, s.cs106.ID, nil)

	ahepworth := s.login(t, "ahepworth", "teacher123")
	swalker := s.login(t, "swalker", "teacher123")

	t.Run("courses", func(t *testing.T) {
		rec := s.serve(newSessionRequest(http.MethodGet, "/api/teacher/courses", ahepworth))
		summary := course.Summary{Course: s.cs106, TeacherName: "Ammon Hepworth", Enrolled: 2}
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marshalObj(t, TeacherCoursesResponse{Success: true, Courses: []course.Summary{summary}}),
		}, rec)
	})

	tests := []httpTest{
		{
			name: "roster", method: http.MethodGet, path: fmt.Sprintf("/api/course/%d/students", s.cs106.ID), cookies: ahepworth,
			wantCode: http.StatusOK,
			wantData: []byte(fmt.Sprintf(`{"success": true, "students": [
				{"id": %d, "student_id": %d, "name": "Ana Adams", "grade": null},
				{"id": %d, "student_id": %d, "name": "Jose Santos", "grade": 88}
			]}`, anaCS106.ID, ana.ID, jsantosCS106.ID, s.student.ID)),
		},
		{
			name: "not their course", method: http.MethodGet, path: fmt.Sprintf("/api/course/%d/students", s.cs106.ID), cookies: swalker,
			wantCode: http.StatusForbidden, wantData: message(false, "Unauthorized"),
		},
		{
			name: "unknown course", method: http.MethodGet, path: "/api/course/999/students", cookies: ahepworth,
			wantCode: http.StatusForbidden, wantData: message(false, "Unauthorized"),
		},
		{
			name: "bad course id", method: http.MethodGet, path: "/api/course/lol/students", cookies: ahepworth,
			wantCode: http.StatusNotFound, wantData: message(false, "not found"),
		},
		{
			name: "anonymous", method: http.MethodGet, path: fmt.Sprintf("/api/course/%d/students", s.cs106.ID),
			wantCode: http.StatusUnauthorized, wantData: message(false, "Unauthorized"),
		},
	}
	s.run(t, tests)
}

func TestTeacherAPI_removeStudent(t *testing.T) {
	s := newSchool(t)
	graded := testutil.Enroll(t, s.store.EnrRepo, s.student.ID, s.cs106.ID, testutil.IntPtr(71))

	ahepworth := s.login(t, "ahepworth", "teacher123")
	swalker := s.login(t, "swalker", "teacher123")
	body := []byte(fmt.Sprintf(`{"enrollment_id": %d}`, graded.ID))

	tests := []httpTest{
		{
			name: "not their course", method: http.MethodPost, path: "/api/teacher/remove-student", body: body, cookies: swalker,
			wantCode: http.StatusForbidden, wantData: message(false, "Unauthorized"),
		},
		{
			name: "graded student", method: http.MethodPost, path: "/api/teacher/remove-student", body: body, cookies: ahepworth,
			wantCode: http.StatusOK, wantData: message(true, "Student removed from course"),
		},
		{
			name: "already removed", method: http.MethodPost, path: "/api/teacher/remove-student", body: body, cookies: ahepworth,
			wantCode: http.StatusNotFound, wantData: message(false, "Enrollment not found"),
		},
	}
	s.run(t, tests)
}

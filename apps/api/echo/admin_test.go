package echoapi_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/enrollment/core/admin"
	"github.com/trezcool/enrollment/core/course"
	"github.com/trezcool/enrollment/core/enrollment"
	"github.com/trezcool/enrollment/core/user"
)

func TestAdminAPI_access(t *testing.T) {
	s := newSchool(t)

	tests := []httpTest{
		{name: "anonymous", method: http.MethodGet, path: "/admin/stats", wantCode: http.StatusFound, wantLoc: "/login"},
		{
			name: "student", method: http.MethodGet, path: "/admin/users", cookies: s.login(t, "jsantos", "student123"),
			wantCode: http.StatusFound, wantLoc: "/login",
		},
		{
			name: "teacher", method: http.MethodDelete, path: fmt.Sprintf("/admin/users/%d", s.student.ID),
			cookies:  s.login(t, "ahepworth", "teacher123"),
			wantCode: http.StatusFound, wantLoc: "/login",
		},
		{
			name: "stats", method: http.MethodGet, path: "/admin/stats", cookies: s.login(t, "admin", "admin123"),
			wantCode: http.StatusOK, wantData: marshalObj(t, admin.Stats{Users: 5, Courses: 2, Enrollments: 1}),
		},
	}
	s.run(t, tests)
}

func TestAdminAPI_users(t *testing.T) {
	s := newSchool(t)
	ctx := context.Background()
	adm := s.login(t, "admin", "admin123")

	t.Run("create", func(t *testing.T) {
		body := []byte(`{"username": "mnorris", "first_name": "Mindy", "last_name": "Norris", "role": "student", "password": "qwerty12xyz"}`)
		rec := s.serve(newSessionRequest(http.MethodPost, "/admin/users", adm, body))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var usr user.User
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &usr))
		assert.Equal(t, "mnorris", usr.Username)
		assert.Equal(t, user.RoleStudent, usr.Role)
		assert.NotContains(t, rec.Body.String(), "password")
	})

	tests := []httpTest{
		{
			name: "create duplicate", method: http.MethodPost, path: "/admin/users", cookies: adm,
			body:     []byte(`{"username": "jsantos", "first_name": "Jose", "last_name": "Santos", "role": "student"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "create invalid role", method: http.MethodPost, path: "/admin/users", cookies: adm,
			body:     []byte(`{"username": "dean", "first_name": "Dean", "last_name": "Dean", "role": "dean"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "retrieve", method: http.MethodGet, path: fmt.Sprintf("/admin/users/%d", s.student.ID), cookies: adm,
			wantCode: http.StatusOK, wantData: marshalObj(t, s.student),
		},
		{
			name: "retrieve missing", method: http.MethodGet, path: "/admin/users/999", cookies: adm,
			wantCode: http.StatusNotFound, wantData: message(false, "user not found"),
		},
		{
			name: "bad id", method: http.MethodGet, path: "/admin/users/lol", cookies: adm,
			wantCode: http.StatusNotFound, wantData: message(false, "not found"),
		},
		{
			name: "search", method: http.MethodGet, path: "/admin/users?search=SANT", cookies: adm,
			wantCode: http.StatusOK, wantData: marshalObj(t, []user.User{s.student}),
		},
		{
			name: "delete own account", method: http.MethodDelete, path: fmt.Sprintf("/admin/users/%d", s.admin.ID), cookies: adm,
			wantCode: http.StatusBadRequest, wantData: message(false, "you cannot delete your own account"),
		},
		{
			name: "delete teacher", method: http.MethodDelete, path: fmt.Sprintf("/admin/users/%d", s.otherTeacher.ID), cookies: adm,
			wantCode: http.StatusOK,
			wantData: marshalObj(t, admin.DeleteReport{
				CoursesDeleted:     1,
				EnrollmentsDeleted: 1,
				Messages: []string{
					`User "swalker" had 1 courses and 1 enrollments. These were also deleted.`,
					`User "swalker" has been successfully deleted.`,
				},
			}),
		},
	}
	s.run(t, tests)

	count, err := s.store.CrsRepo.CountCourses(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	t.Run("update", func(t *testing.T) {
		body := []byte(`{"first_name": "Joseph", "role": "teacher"}`)
		rec := s.serve(newSessionRequest(http.MethodPut, fmt.Sprintf("/admin/users/%d", s.student.ID), adm, body))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		usr, err := s.store.UsrRepo.GetUser(ctx, user.GetFilter{ID: s.student.ID})
		require.NoError(t, err)
		assert.Equal(t, "Joseph Santos", usr.FullName())
		assert.Equal(t, user.RoleTeacher, usr.Role)
	})
}

func TestAdminAPI_courses(t *testing.T) {
	s := newSchool(t)
	adm := s.login(t, "admin", "admin123")

	var created course.Course
	t.Run("create", func(t *testing.T) {
		body := []byte(fmt.Sprintf(`{"name": "CS 170", "teacher_id": %d, "time": "TR 1:00-2:15 PM", "capacity": 30}`, s.teacher.ID))
		rec := s.serve(newSessionRequest(http.MethodPost, "/admin/courses", adm, body))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
		assert.Equal(t, "CS 170", created.Name)
	})

	tests := []httpTest{
		{
			name: "create with a student as teacher", method: http.MethodPost, path: "/admin/courses", cookies: adm,
			body:     []byte(fmt.Sprintf(`{"name": "CS 171", "teacher_id": %d, "time": "TR", "capacity": 30}`, s.student.ID)),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "create without seats", method: http.MethodPost, path: "/admin/courses", cookies: adm,
			body:     []byte(fmt.Sprintf(`{"name": "CS 171", "teacher_id": %d, "time": "TR", "capacity": 0}`, s.teacher.ID)),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "retrieve", method: http.MethodGet, path: fmt.Sprintf("/admin/courses/%d", s.cs162.ID), cookies: adm,
			wantCode: http.StatusOK,
			wantData: marshalObj(t, course.Summary{Course: s.cs162, TeacherName: "Susan Walker", Enrolled: 1}),
		},
		{
			name: "retrieve missing", method: http.MethodGet, path: "/admin/courses/999", cookies: adm,
			wantCode: http.StatusNotFound, wantData: message(false, "course not found"),
		},
		{
			name: "delete", method: http.MethodDelete, path: fmt.Sprintf("/admin/courses/%d", s.cs162.ID), cookies: adm,
			wantCode: http.StatusOK,
			wantData: marshalObj(t, admin.DeleteReport{
				EnrollmentsDeleted: 1,
				Messages: []string{
					`Course "CS 162" had 1 enrollments. These were also deleted.`,
					`Course "CS 162" has been successfully deleted.`,
				},
			}),
		},
	}
	s.run(t, tests)

	t.Run("list", func(t *testing.T) {
		rec := s.serve(newSessionRequest(http.MethodGet, "/admin/courses?ordering=-name", adm))
		require.Equal(t, http.StatusOK, rec.Code)

		var courses []course.Summary
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &courses))
		require.Len(t, courses, 2)
		assert.Equal(t, "CS 170", courses[0].Name)
		assert.Equal(t, "CS 106", courses[1].Name)
	})
}

func TestAdminAPI_enrollments(t *testing.T) {
	s := newSchool(t)
	adm := s.login(t, "admin", "admin123")

	var created enrollment.Enrollment
	t.Run("create ignores capacity", func(t *testing.T) {
		body := []byte(fmt.Sprintf(`{"student_id": %d, "course_id": %d}`, s.student.ID, s.cs162.ID))
		rec := s.serve(newSessionRequest(http.MethodPost, "/admin/enrollments", adm, body))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	})

	tests := []httpTest{
		{
			name: "create duplicate", method: http.MethodPost, path: "/admin/enrollments", cookies: adm,
			body:     []byte(fmt.Sprintf(`{"student_id": %d, "course_id": %d}`, s.student.ID, s.cs162.ID)),
			wantCode: http.StatusConflict,
		},
		{
			name: "create for a teacher", method: http.MethodPost, path: "/admin/enrollments", cookies: adm,
			body:     []byte(fmt.Sprintf(`{"student_id": %d, "course_id": %d}`, s.teacher.ID, s.cs106.ID)),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "create with invalid grade", method: http.MethodPost, path: "/admin/enrollments", cookies: adm,
			body:     []byte(fmt.Sprintf(`{"student_id": %d, "course_id": %d, "grade": 101}`, s.student.ID, s.cs106.ID)),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "retrieve missing", method: http.MethodGet, path: "/admin/enrollments/999", cookies: adm,
			wantCode: http.StatusNotFound, wantData: message(false, "Enrollment not found"),
		},
		{
			name: "grade", method: http.MethodPut, path: fmt.Sprintf("/admin/enrollments/%d", s.bbrownCS162.ID), cookies: adm,
			body:     []byte(`{"grade": 64}`),
			wantCode: http.StatusOK,
		},
		{
			name: "delete", method: http.MethodDelete, path: fmt.Sprintf("/admin/enrollments/%d", s.bbrownCS162.ID), cookies: adm,
			wantCode: http.StatusNoContent,
		},
		{
			name: "delete again", method: http.MethodDelete, path: fmt.Sprintf("/admin/enrollments/%d", s.bbrownCS162.ID), cookies: adm,
			wantCode: http.StatusNotFound, wantData: message(false, "Enrollment not found"),
		},
	}
	s.run(t, tests)

	t.Run("list", func(t *testing.T) {
		rec := s.serve(newSessionRequest(http.MethodGet, fmt.Sprintf("/admin/enrollments?course_id=%d", s.cs162.ID), adm))
		require.Equal(t, http.StatusOK, rec.Code)

		var details []enrollment.Detail
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &details))
		require.Len(t, details, 1)
		assert.Equal(t, created.ID, details[0].ID)
		assert.Equal(t, "Jose Santos", details[0].StudentName)
		assert.Equal(t, "CS 162", details[0].CourseName)
	})

	t.Run("choices", func(t *testing.T) {
		rec := s.serve(newSessionRequest(http.MethodGet, "/admin/enrollments/choices", adm))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Betty Brown")
	})
}

package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/enrollment/core/course"
	"github.com/trezcool/enrollment/core/enrollment"
	"github.com/trezcool/enrollment/core/user"
)

type (
	GradeRequest struct {
		EnrollmentID int      `json:"enrollment_id" validate:"required"`
		Grade        null.Int `json:"grade"`
	}

	EnrollmentRequest struct {
		EnrollmentID int `json:"enrollment_id" form:"enrollment_id" validate:"required"`
	}

	TeacherCoursesResponse struct {
		Success bool             `json:"success"`
		Courses []course.Summary `json:"courses"`
	}

	RosterResponse struct {
		Success  bool                     `json:"success"`
		Students []enrollment.RosterEntry `json:"students"`
	}
)

func (gr *GradeRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(gr) // grade range is checked by the service, after ownership
}

func (er *EnrollmentRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(er)
}

type teacherApi struct {
	enrSvc   *enrollment.Service
	crsSvc   *course.Service
	validate *validator.Validate
}

func registerTeacherAPI(app *echo.Echo, deps ServerDeps) {
	api := teacherApi{
		enrSvc:   deps.EnrollmentSvc,
		crsSvc:   deps.CourseSvc,
		validate: deps.Validate,
	}

	teacherOnly := apiRoleMiddleware(user.RoleTeacher)
	g := app.Group("/api")
	g.POST("/update_grade", api.updateGrade, teacherOnly)
	g.GET("/teacher/courses", api.courses, teacherOnly)
	g.GET("/course/:id/students", api.roster, teacherOnly)
	g.POST("/teacher/remove-student", api.removeStudent, teacherOnly)
}

// Handlers

func (api *teacherApi) updateGrade(ctx echo.Context) error {
	var data GradeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	p, _ := getPrincipal(ctx)
	_, err := api.enrSvc.UpdateGrade(ctx.Request().Context(), data.EnrollmentID, data.Grade, p.ID)
	observe("update_grade", err)
	if err != nil {
		return errors.Wrap(err, "updating grade")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Success: true, Message: "Grade updated"})
}

func (api *teacherApi) courses(ctx echo.Context) error {
	p, _ := getPrincipal(ctx)
	courses, err := api.crsSvc.TeacherCourses(ctx.Request().Context(), p.ID)
	if err != nil {
		return errors.Wrap(err, "querying teacher courses")
	}
	if courses == nil {
		courses = []course.Summary{}
	}
	return ctx.JSON(http.StatusOK, TeacherCoursesResponse{Success: true, Courses: courses})
}

func (api *teacherApi) roster(ctx echo.Context) error {
	courseID, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}

	p, _ := getPrincipal(ctx)
	students, err := api.enrSvc.ListRoster(ctx.Request().Context(), courseID, p.ID)
	if err != nil {
		return errors.Wrap(err, "querying roster")
	}
	if students == nil {
		students = []enrollment.RosterEntry{}
	}
	return ctx.JSON(http.StatusOK, RosterResponse{Success: true, Students: students})
}

func (api *teacherApi) removeStudent(ctx echo.Context) error {
	var data EnrollmentRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollmentRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	p, _ := getPrincipal(ctx)
	err := api.enrSvc.RemoveStudent(ctx.Request().Context(), data.EnrollmentID, p.ID)
	observe("remove_student", err)
	if err != nil {
		return errors.Wrap(err, "removing student")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Success: true, Message: "Student removed from course"})
}

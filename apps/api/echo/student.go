package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/enrollment/core/enrollment"
	"github.com/trezcool/enrollment/core/user"
)

type (
	CourseRequest struct {
		CourseID int `json:"course_id" form:"course_id" validate:"required"`
	}

	MessageResponse struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}

	StudentCoursesResponse struct {
		Success bool                       `json:"success"`
		Courses []enrollment.StudentCourse `json:"courses"`
	}
)

func (cr *CourseRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(cr)
}

type studentApi struct {
	svc      *enrollment.Service
	validate *validator.Validate
}

func registerStudentAPI(app *echo.Echo, deps ServerDeps) {
	api := studentApi{
		svc:      deps.EnrollmentSvc,
		validate: deps.Validate,
	}

	// route level middleware: group level one would also guard the not-found routes of "/api"
	studentOnly := apiRoleMiddleware(user.RoleStudent)
	g := app.Group("/api")
	g.POST("/enroll", api.enroll, studentOnly)
	g.POST("/unenroll", api.unenroll, studentOnly)
	g.GET("/student/enrolled-courses", api.enrolledCourses, studentOnly)
	g.GET("/student/available-courses", api.availableCourses, studentOnly)
}

// Handlers

func (api *studentApi) enroll(ctx echo.Context) error {
	var data CourseRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CourseRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	p, _ := getPrincipal(ctx)
	_, err := api.svc.Enroll(ctx.Request().Context(), p.ID, data.CourseID)
	observe("enroll", err)
	if err != nil {
		return errors.Wrap(err, "enrolling")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Success: true, Message: "Successfully enrolled"})
}

func (api *studentApi) unenroll(ctx echo.Context) error {
	var data CourseRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CourseRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	p, _ := getPrincipal(ctx)
	err := api.svc.Unenroll(ctx.Request().Context(), p.ID, data.CourseID)
	observe("unenroll", err)
	if err != nil {
		return errors.Wrap(err, "unenrolling")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Success: true, Message: "Successfully removed from course"})
}

func (api *studentApi) enrolledCourses(ctx echo.Context) error {
	p, _ := getPrincipal(ctx)
	courses, err := api.svc.ListEnrolledCourses(ctx.Request().Context(), p.ID)
	if err != nil {
		return errors.Wrap(err, "querying enrolled courses")
	}
	if courses == nil {
		courses = []enrollment.StudentCourse{}
	}
	return ctx.JSON(http.StatusOK, StudentCoursesResponse{Success: true, Courses: courses})
}

func (api *studentApi) availableCourses(ctx echo.Context) error {
	p, _ := getPrincipal(ctx)
	courses, err := api.svc.ListAvailableCourses(ctx.Request().Context(), p.ID)
	if err != nil {
		return errors.Wrap(err, "querying available courses")
	}
	if courses == nil {
		courses = []enrollment.StudentCourse{}
	}
	return ctx.JSON(http.StatusOK, StudentCoursesResponse{Success: true, Courses: courses})
}

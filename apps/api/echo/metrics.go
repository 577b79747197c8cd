package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/trezcool/enrollment/core"
	"github.com/trezcool/enrollment/core/enrollment"
)

var (
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests handled, by route and status code.",
		},
		[]string{"method", "route", "code"},
	)

	enrollmentOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrollment_operations_total",
			Help: "Enrollment operations, by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(httpRequests, enrollmentOps)
}

// requestMetrics counts the handled requests.
// Errors are handled here so the status written by the error handler is the one counted.
func requestMetrics(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if err := next(ctx); err != nil {
			ctx.Error(err)
		}
		httpRequests.WithLabelValues(ctx.Request().Method, ctx.Path(), strconv.Itoa(ctx.Response().Status)).Inc()
		return nil
	}
}

// observe counts the outcome of an enrollment operation.
func observe(op string, err error) {
	enrollmentOps.WithLabelValues(op, outcome(err)).Inc()
}

func outcome(err error) string {
	var validationErr *core.ValidationError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, enrollment.ErrAlreadyEnrolled):
		return "already_enrolled"
	case errors.Is(err, enrollment.ErrCourseFull):
		return "course_full"
	case errors.Is(err, enrollment.ErrNotEnrolled):
		return "not_enrolled"
	case errors.Is(err, enrollment.ErrGradeAlreadyAssigned):
		return "graded"
	case errors.Is(err, core.ErrUnauthorized):
		return "unauthorized"
	case errors.As(err, &validationErr):
		return "invalid"
	}
	if _, ok := errorStatus(err); ok {
		return "not_found"
	}
	return "error"
}

package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/enrollment/core"
	"github.com/trezcool/enrollment/core/course"
	"github.com/trezcool/enrollment/core/enrollment"
	"github.com/trezcool/enrollment/core/user"
)

var (
	errNotAuthenticated = echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	errHttpNotFound     = echo.NewHTTPError(http.StatusNotFound, "not found")

	invalidDataText = "Invalid data"
)

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// errorStatus maps domain errors to their HTTP status; ok is false for unexpected errors.
func errorStatus(err error) (code int, ok bool) {
	switch {
	case errors.Is(err, core.ErrUnauthorized):
		return http.StatusForbidden, true
	case errors.Is(err, user.ErrNotFound),
		errors.Is(err, course.ErrNotFound),
		errors.Is(err, enrollment.ErrNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, enrollment.ErrAlreadyEnrolled),
		errors.Is(err, enrollment.ErrCourseFull),
		errors.Is(err, enrollment.ErrNotEnrolled),
		errors.Is(err, enrollment.ErrGradeAlreadyAssigned):
		return http.StatusConflict, true
	}
	return 0, false
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		resp := ErrorResponse{}
		var code int

		var (
			httpErr       *echo.HTTPError
			validationErr *core.ValidationError
			fieldErrs     validator.ValidationErrors
			constraintErr *core.ConstraintError
			txErr         *core.TxError
		)
		switch {
		case errors.As(err, &httpErr):
			if herr, ok := httpErr.Internal.(*echo.HTTPError); ok {
				httpErr = herr
			}
			code = httpErr.Code
			if msg, ok := httpErr.Message.(string); ok {
				resp.Message = msg
			} else {
				resp.Message = http.StatusText(code)
			}
		case errors.As(err, &fieldErrs):
			code = http.StatusBadRequest
			resp.Message = invalidDataText
			resp.Errors = core.TranslateErrors(fieldErrs, translator)
		case errors.As(err, &validationErr):
			code = http.StatusBadRequest
			resp.Message = validationErr.Error()
			if resp.Message == "" {
				resp.Message = invalidDataText
			}
			if validationErr.Fields != nil {
				resp.Errors = make(map[string]string, len(validationErr.Fields))
				for _, fErr := range validationErr.Fields {
					resp.Errors[fErr.Field] = fErr.Error
				}
			}
		case errors.As(err, &txErr):
			// the admin gets to see why their change was rolled back
			code = http.StatusInternalServerError
			resp.Message = txErr.Error()
			p, _ := getPrincipal(ctx)
			logger.Error(txErr.Error(), err, p)
		case errors.As(err, &constraintErr):
			code = http.StatusConflict
			resp.Message = constraintErr.Error()
		default:
			if status, ok := errorStatus(err); ok {
				code = status
				resp.Message = errors.Cause(err).Error()
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(code)
			resp.Message = msg
			if ctx.Echo().Debug {
				resp.Message = err.Error()
			}

			p, _ := getPrincipal(ctx)
			logger.Error(msg, errors.Wrap(err, msg), p)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, resp)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

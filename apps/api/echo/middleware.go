package echoapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/enrollment/core"
	"github.com/trezcool/enrollment/core/user"
)

// apiRoleMiddleware rejects, with a JSON error, requests not made by a user with `role`.
func apiRoleMiddleware(role user.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			p, ok := getPrincipal(ctx)
			if !ok {
				return errNotAuthenticated
			}
			if p.Role != role {
				return core.ErrUnauthorized
			}
			return next(ctx)
		}
	}
}

// pageRoleMiddleware redirects to the login page requests not made by a user with `role`.
func pageRoleMiddleware(role user.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if p, ok := getPrincipal(ctx); !ok || p.Role != role {
				return ctx.Redirect(http.StatusFound, "/login")
			}
			return next(ctx)
		}
	}
}

// dashboardPath is the landing page of `role`.
func dashboardPath(role user.Role) (string, error) {
	switch role {
	case user.RoleStudent:
		return "/student", nil
	case user.RoleTeacher:
		return "/teacher", nil
	case user.RoleAdmin:
		return "/admin", nil
	}
	return "", fmt.Errorf("no dashboard for role %d", role)
}

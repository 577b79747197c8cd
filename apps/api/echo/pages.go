package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/enrollment/core"
	"github.com/trezcool/enrollment/core/admin"
	"github.com/trezcool/enrollment/core/user"
)

type (
	pageData struct {
		Title     string
		AppName   string
		Principal user.Principal
		Flashes   []string
		Username  string      // login form
		Stats     admin.Stats // admin index
	}

	LoginRequest struct {
		Username string `form:"username" json:"username"`
		Password string `form:"password" json:"password"`
	}

	CurrentUserResponse struct {
		Success bool            `json:"success"`
		User    *user.Principal `json:"user,omitempty"`
	}
)

type pagesApi struct {
	srv      *Server
	appName  string
	usrSvc   *user.Service
	adminSvc *admin.Service
}

func registerPages(app *echo.Echo, srv *Server, deps ServerDeps) {
	api := pagesApi{
		srv:      srv,
		appName:  deps.Conf.AppName,
		usrSvc:   deps.UserSvc,
		adminSvc: deps.AdminSvc,
	}

	app.GET("/", api.index)
	app.GET("/login", api.loginView)
	app.POST("/login", api.login)
	app.GET("/logout", api.logout)
	app.GET("/dashboard", api.dashboard)
	app.GET("/student", api.page("student.html", "Student"), pageRoleMiddleware(user.RoleStudent))
	app.GET("/teacher", api.page("teacher.html", "Teacher"), pageRoleMiddleware(user.RoleTeacher))
	app.GET("/admin", api.adminIndex, pageRoleMiddleware(user.RoleAdmin))
	app.GET("/api/current-user", api.currentUser)
}

func (api *pagesApi) data(ctx echo.Context, title string) pageData {
	p, _ := getPrincipal(ctx)
	return pageData{
		Title:     title,
		AppName:   api.appName,
		Principal: p,
		Flashes:   api.srv.flashes(ctx),
	}
}

// Handlers

func (api *pagesApi) index(ctx echo.Context) error {
	if _, ok := getPrincipal(ctx); ok {
		return ctx.Redirect(http.StatusFound, "/dashboard")
	}
	return ctx.Redirect(http.StatusFound, "/login")
}

func (api *pagesApi) loginView(ctx echo.Context) error {
	return ctx.Render(http.StatusOK, "login.html", api.data(ctx, "Sign in"))
}

func (api *pagesApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	data.Username = core.CleanString(data.Username)

	usr, err := api.usrSvc.Authenticate(ctx.Request().Context(), data.Username, data.Password)
	if err != nil {
		if !errors.Is(err, core.ErrInvalidCredentials) {
			return errors.Wrap(err, "authenticating")
		}
		page := api.data(ctx, "Sign in")
		page.Flashes = append(page.Flashes, err.Error())
		page.Username = data.Username
		return ctx.Render(http.StatusOK, "login.html", page)
	}

	if err = api.srv.login(ctx, usr); err != nil {
		return err
	}
	return ctx.Redirect(http.StatusSeeOther, "/dashboard")
}

func (api *pagesApi) logout(ctx echo.Context) error {
	if err := api.srv.logout(ctx); err != nil {
		return err
	}
	return ctx.Redirect(http.StatusFound, "/login")
}

// dashboard sends the user to the landing page of their current role, as stored.
func (api *pagesApi) dashboard(ctx echo.Context) error {
	p, ok := getPrincipal(ctx)
	if !ok {
		return ctx.Redirect(http.StatusFound, "/login")
	}
	usr, err := api.usrSvc.GetByID(ctx.Request().Context(), p.ID)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			return errors.Wrap(err, "finding user by ID")
		}
		// deleted while logged in
		if err = api.srv.logout(ctx); err != nil {
			return err
		}
		return ctx.Redirect(http.StatusFound, "/login")
	}
	if usr.Role != p.Role {
		if err = api.srv.login(ctx, usr); err != nil {
			return err
		}
	}

	path, err := dashboardPath(usr.Role)
	if err != nil {
		return err
	}
	return ctx.Redirect(http.StatusFound, path)
}

func (api *pagesApi) page(name, title string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		return ctx.Render(http.StatusOK, name, api.data(ctx, title))
	}
}

func (api *pagesApi) adminIndex(ctx echo.Context) error {
	stats, err := api.adminSvc.Dashboard(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "counting rows")
	}
	page := api.data(ctx, "Admin")
	page.Stats = stats
	return ctx.Render(http.StatusOK, "admin.html", page)
}

func (api *pagesApi) currentUser(ctx echo.Context) error {
	p, ok := getPrincipal(ctx)
	if !ok {
		return ctx.JSON(http.StatusUnauthorized, CurrentUserResponse{})
	}
	return ctx.JSON(http.StatusOK, CurrentUserResponse{Success: true, User: &p})
}

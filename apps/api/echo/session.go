package echoapi

import (
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/enrollment/core"
	"github.com/trezcool/enrollment/core/user"
)

// session keys
const (
	sessUserID   = "user_id"
	sessUsername = "username"
	sessRole     = "role"
	sessFullName = "full_name"
)

var contextPrincipalKey = "principal"

func newCookieStore(conf *core.Config) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(conf.SecretKey))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(conf.Session.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   conf.Session.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// session returns the app session of the request. An undecodable cookie yields a new, empty session.
func (s *Server) session(ctx echo.Context) *sessions.Session {
	sess, err := s.sessions.Get(ctx.Request(), s.conf.Session.CookieName)
	if err != nil {
		ctx.Logger().Debugf("dropping invalid session: %v", err)
	}
	return sess
}

// principalFromSession rebuilds the request Principal; any missing or unknown value means "not logged in".
func principalFromSession(sess *sessions.Session) (user.Principal, bool) {
	id, ok := sess.Values[sessUserID].(int)
	if !ok || id == 0 {
		return user.Principal{}, false
	}
	roleName, _ := sess.Values[sessRole].(string)
	role, err := user.ParseRole(roleName)
	if err != nil {
		return user.Principal{}, false
	}
	uname, _ := sess.Values[sessUsername].(string)
	fullName, _ := sess.Values[sessFullName].(string)
	return user.Principal{ID: id, Username: uname, Role: role, FullName: fullName}, true
}

// login records the user in the session.
func (s *Server) login(ctx echo.Context, usr user.User) error {
	sess := s.session(ctx)
	sess.Values[sessUserID] = usr.ID
	sess.Values[sessUsername] = usr.Username
	sess.Values[sessRole] = usr.Role.String()
	sess.Values[sessFullName] = usr.FullName()
	return errors.Wrap(sess.Save(ctx.Request(), ctx.Response()), "saving session")
}

// logout destroys the session; logging out without a session is a no-op.
func (s *Server) logout(ctx echo.Context) error {
	sess := s.session(ctx)
	sess.Values = make(map[interface{}]interface{})
	sess.Options.MaxAge = -1
	return errors.Wrap(sess.Save(ctx.Request(), ctx.Response()), "clearing session")
}

// addFlash queues a message for the next rendered page.
func (s *Server) addFlash(ctx echo.Context, msg string) {
	sess := s.session(ctx)
	sess.AddFlash(msg)
	if err := sess.Save(ctx.Request(), ctx.Response()); err != nil {
		ctx.Logger().Errorf("saving flash: %v", err)
	}
}

// flashes pops the queued messages.
func (s *Server) flashes(ctx echo.Context) []string {
	sess := s.session(ctx)
	raw := sess.Flashes()
	if len(raw) == 0 {
		return nil
	}
	if err := sess.Save(ctx.Request(), ctx.Response()); err != nil {
		ctx.Logger().Errorf("saving session: %v", err)
	}
	msgs := make([]string, 0, len(raw))
	for _, f := range raw {
		if msg, ok := f.(string); ok {
			msgs = append(msgs, msg)
		}
	}
	return msgs
}

// loadPrincipal puts the Principal of a logged-in session in the echo and request contexts.
func (s *Server) loadPrincipal(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if p, ok := principalFromSession(s.session(ctx)); ok {
			ctx.Set(contextPrincipalKey, p)
			req := ctx.Request()
			ctx.SetRequest(req.WithContext(user.ContextWithPrincipal(req.Context(), p)))
		}
		return next(ctx)
	}
}

func getPrincipal(ctx echo.Context) (user.Principal, bool) {
	p, ok := ctx.Get(contextPrincipalKey).(user.Principal)
	return p, ok
}

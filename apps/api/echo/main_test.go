package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	. "github.com/trezcool/enrollment/apps/api/echo"
	"github.com/trezcool/enrollment/core"
	"github.com/trezcool/enrollment/core/admin"
	"github.com/trezcool/enrollment/core/course"
	"github.com/trezcool/enrollment/core/enrollment"
	"github.com/trezcool/enrollment/core/user"
	logsvc "github.com/trezcool/enrollment/services/logger"
	"github.com/trezcool/enrollment/testutil"
)

// school is a running server over a small in-memory school:
// ahepworth teaches CS 106 (10 seats), swalker teaches CS 162 (1 seat, taken by bbrown).
type school struct {
	app   *Server
	store *testutil.Store

	admin, teacher, otherTeacher, student, otherStudent user.User
	cs106, cs162                                        course.Course
	bbrownCS162                                         enrollment.Enrollment
}

func newSchool(t *testing.T) *school {
	conf := core.NewTestConfig()
	store := testutil.NewStore()

	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	s := &school{store: store}
	s.app = NewServer(ServerDeps{
		Conf:          conf,
		Logger:        logsvc.NewDiscardLogger(conf),
		UserSvc:       user.NewService(store.UsrRepo),
		CourseSvc:     course.NewService(store.CrsRepo, store.UsrRepo),
		EnrollmentSvc: enrollment.NewService(store.DB, store.EnrRepo, store.CrsRepo),
		AdminSvc: admin.NewService(admin.Deps{
			Tx:       store.DB,
			UsrRepo:  store.UsrRepo,
			CrsRepo:  store.CrsRepo,
			EnrRepo:  store.EnrRepo,
			Validate: validate,
			Logger:   logsvc.NewDiscardLogger(conf),
		}),
		Validate:   validate,
		Translator: translator,
	})

	s.admin = testutil.CreateUser(t, store.UsrRepo, "admin", "Admin", "User", "admin123", user.RoleAdmin)
	s.teacher = testutil.CreateUser(t, store.UsrRepo, "ahepworth", "Ammon", "Hepworth", "teacher123", user.RoleTeacher)
	s.otherTeacher = testutil.CreateUser(t, store.UsrRepo, "swalker", "Susan", "Walker", "teacher123", user.RoleTeacher)
	s.student = testutil.CreateUser(t, store.UsrRepo, "jsantos", "Jose", "Santos", "student123", user.RoleStudent)
	s.otherStudent = testutil.CreateUser(t, store.UsrRepo, "bbrown", "Betty", "Brown", "student123", user.RoleStudent)
	s.cs106 = testutil.CreateCourse(t, store.CrsRepo, "CS 106", s.teacher.ID, 10)
	s.cs162 = testutil.CreateCourse(t, store.CrsRepo, "CS 162", s.otherTeacher.ID, 1)
	s.bbrownCS162 = testutil.Enroll(t, store.EnrRepo, s.otherStudent.ID, s.cs162.ID, nil)
	return s
}

// login signs `uname` in through the login form and returns the session cookies.
func (s *school) login(t *testing.T, uname, pwd string) []*http.Cookie {
	form := url.Values{"username": {uname}, "password": {pwd}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	s.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("login(%q) failed! code = %v; body %v", uname, rec.Code, rec.Body.String())
	}
	return rec.Result().Cookies()
}

func (s *school) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.app.ServeHTTP(rec, req)
	return rec
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	cookies  []*http.Cookie
	wantCode int
	wantData []byte // not checked when nil
	wantLoc  string // Location header of redirects
}

func newSessionRequest(method, path string, cookies []*http.Cookie, data ...[]byte) *http.Request {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func (s *school) run(t *testing.T, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.serve(newSessionRequest(tt.method, tt.path, tt.cookies, tt.body))
			checkCodeAndData(t, tt, rec)
		})
	}
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj(): %v", err)
	}
	return data
}

func message(success bool, msg string) []byte {
	data, _ := json.Marshal(map[string]interface{}{"success": success, "message": msg})
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %v", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantLoc != "" {
		if loc := rec.Header().Get(echo.HeaderLocation); loc != tt.wantLoc {
			t.Errorf("failed! location = %v; wantLoc %v", loc, tt.wantLoc)
		}
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

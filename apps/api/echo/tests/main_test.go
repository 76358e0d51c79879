package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	. "github.com/trezcool/campus/apps/api/echo"
	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/academic"
	"github.com/trezcool/campus/core/fee"
	"github.com/trezcool/campus/core/student"
	"github.com/trezcool/campus/services/email"
	"github.com/trezcool/campus/services/logger"
	"github.com/trezcool/campus/storage/database/inmem"
)

const (
	amaniID   = "6f1c1a52-3a34-4a8e-9c59-7f0f3c1f8f10"
	neemaID   = "0b3e7e0c-9d51-4f2b-8f3a-2c7c5b8e4a21"
	jumaID    = "9a7d2c44-1e0b-4c55-b6a3-5d2f8e9b1c37"
	imaniID   = "c4e8b1f2-7a63-4d9e-8b25-3f1a6c0d9e48"
	unknownID = "00000000-0000-4000-8000-000000000000"
)

var (
	conf    *core.Config
	app     *Server
	stdRepo student.Repository
	feeRepo fee.Repository

	today = time.Date(2025, time.January, 11, 0, 0, 0, 0, time.UTC)

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
)

func TestMain(m *testing.M) {
	academic.NowFunc = func() time.Time { return today }

	conf = &core.Config{
		TestMode:         true,
		AppName:          "Campus",
		SecretKey:        "test-secret",
		FrontendBaseURL:  "https://campus.test",
		DefaultFromEmail: mail.Address{Name: "Campus", Address: "noreply@campus.test"},
	}
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "API : ", 0), conf)
	logger.Enable(false)

	// set up DB & repos
	db := inmemdb.Open()
	if err := db.LoadFixtures(filepath.Join(core.Getwd(), "config", "fixtures")); err != nil {
		fmt.Printf("db.LoadFixtures(): %v", err)
		os.Exit(1)
	}
	stdRepo = inmemdb.NewStudentRepository(db)
	feeRepo = inmemdb.NewFeeRepository(db)

	// set up services
	core.ParseEmailTemplates(conf, logger)
	mailSvc := emailsvc.NewConsoleServiceMock(conf)

	validate := validator.New()
	english := en.New()
	translator, _ := ut.New(english, english).GetTranslator("en")
	core.InitValidators(validate, translator)

	// set up server
	app = NewServer(ServerDeps{
		Conf:       conf,
		Logger:     logger,
		Validate:   validate,
		Translator: translator,
		StudentSvc: student.NewService(stdRepo),
		FeeSvc:     fee.NewService(conf, feeRepo, stdRepo, mailSvc, nil),
	})

	// run tests
	code := m.Run()

	// clean up
	if err := app.Close(); err != nil {
		fmt.Printf("app.Close(): %v", err)
		os.Exit(1)
	}

	os.Exit(code)
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func runHttpTests(t *testing.T, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			if tt.wantCode == 0 {
				tt.wantCode = http.StatusOK
			}
			req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

// getToken signs claims built by the auth service for the given subject.
func getToken(t *testing.T, subject string, setup func(c *Claims)) string {
	claims := NewClaims(conf, subject, time.Hour)
	setup(claims)
	token, err := GenerateToken(conf, claims)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func adminToken(t *testing.T, roles ...string) string {
	if len(roles) == 0 {
		roles = []string{core.RoleAdmin}
	}
	return getToken(t, "admin", func(c *Claims) {
		c.Username = "admin"
		c.IsAdmin = true
		c.Roles = roles
	})
}

func teacherToken(t *testing.T) string {
	return getToken(t, "teacher", func(c *Claims) {
		c.Username = "teacher"
		c.IsTeacher = true
		c.Roles = []string{core.RoleTeacher}
	})
}

func studentToken(t *testing.T, id string) string {
	return getToken(t, id, func(c *Claims) {
		c.IsStudent = true
		c.Roles = []string{core.RoleStudent}
	})
}

func guardianToken(t *testing.T, studentIDs ...string) string {
	return getToken(t, "guardian", func(c *Claims) {
		c.IsGuardian = true
		c.Roles = []string{core.RoleGuardian}
		c.StudentIDs = studentIDs
	})
}

func getStudent(t *testing.T, id string) student.Student {
	std, err := stdRepo.GetStudent(context.Background(), id)
	if err != nil {
		t.Fatalf("getStudent(%s): %v", id, err)
	}
	return std
}

func getPayments(t *testing.T, id string, year academic.Year) []fee.Payment {
	payments, err := feeRepo.ListPayments(context.Background(), id, year)
	if err != nil {
		t.Fatalf("getPayments(%s): %v", id, err)
	}
	return payments
}

func date(t *testing.T, s string) core.Date {
	d, err := core.ParseDate(s)
	if err != nil {
		t.Fatalf("date(%s): %v", s, err)
	}
	return core.NewDate(d)
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
	}
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
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func TestHome(t *testing.T) {
	req, rec := newRequest(http.MethodGet, "/")
	app.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
	}
	if got, want := rec.Body.String(), "Welcome to Campus API!"; got != want {
		t.Errorf("failed! body = %q; want %q", got, want)
	}
}

package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	. "github.com/trezcool/ratiba/apps/api/echo"
	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/audit"
	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/tenant"
	"github.com/trezcool/ratiba/core/user"
	dummydb "github.com/trezcool/ratiba/storage/database/dummy"
)

const testPassword = "LePass123"

var (
	conf = &core.Config{
		TestMode:  true,
		AppName:   "Ratiba",
		SecretKey: "w#b1+v6l@r5t=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emyq5",
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 24 * time.Hour,
		},
	}

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type testEnv struct {
	app       Server
	tenantSvc *tenant.Service
	usrSvc    *user.Service
	schedSvc  *schedule.Service
	auditSvc  *audit.Service
}

func setup(t *testing.T) *testEnv {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}

	auditSvc := audit.NewService(dummydb.NewAuditRepository(db))
	tenantSvc := tenant.NewService(dummydb.NewTenantRepository(db))
	usrSvc := user.NewService(dummydb.NewUserRepository(db), auditSvc)
	schedSvc := schedule.NewService(dummydb.NewScheduleRepository(db), auditSvc)

	app := NewServer(ServerDeps{
		Conf:        conf,
		Logger:      nopLogger{},
		TenantSvc:   tenantSvc,
		UserSvc:     usrSvc,
		ScheduleSvc: schedSvc,
		AuditSvc:    auditSvc,
	})
	return &testEnv{
		app:       app,
		tenantSvc: tenantSvc,
		usrSvc:    usrSvc,
		schedSvc:  schedSvc,
		auditSvc:  auditSvc,
	}
}

func (env *testEnv) createTenant(t *testing.T, name, slug string) tenant.Tenant {
	tnt, err := env.tenantSvc.Create(context.Background(), tenant.NewTenant{Name: name, Slug: slug})
	if err != nil {
		t.Fatalf("createTenant() failed: %v", err)
	}
	return tnt
}

// createUser registers an approved user with testPassword.
func (env *testEnv) createUser(t *testing.T, tenantID, email, role string) user.User {
	ctx := context.Background()
	usr, err := env.usrSvc.Register(ctx, user.NewUser{TenantID: tenantID, Email: email, Password: testPassword, Role: role})
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	if !usr.Approved {
		if usr, err = env.usrSvc.ApproveStudent(ctx, tenantID, usr.ID, usr.ID); err != nil {
			t.Fatalf("createUser() approval failed: %v", err)
		}
	}
	return usr
}

func testCtx() context.Context { return context.Background() }

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
	extra    interface{}
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

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func unmarchallObj(t *testing.T, rec *httptest.ResponseRecorder, obj interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), obj); err != nil {
		t.Fatalf("unmarchallObj() failed: %v; body %s", err, rec.Body.String())
	}
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

func checkCode(t *testing.T, wantCode int, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, wantCode, rec.Body.String())
	}
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
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

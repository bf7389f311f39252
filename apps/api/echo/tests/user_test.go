package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/ratiba/apps/api/echo"
	"github.com/trezcool/ratiba/core/user"
)

func TestUserApi_register(t *testing.T) {
	env := setup(t)
	env.createTenant(t, "Goma Flight School", "goma")
	env.createUser(t, mustTenantID(t, env, "goma"), "taken@school.cd", user.RoleStudent)

	tests := []httpTest{
		{
			name: "valid", wantCode: http.StatusCreated,
			body: marchallObj(t, map[string]string{"tenant": "goma", "email": "jane@school.cd", "password": testPassword}),
		},
		{
			name: "unknown tenant", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, map[string]string{"tenant": "nope", "email": "jane2@school.cd", "password": testPassword}),
			wantData: marchallObj(t, map[string]string{"tenant": "tenant not found"}),
		},
		{
			name: "bad email", wantCode: http.StatusBadRequest,
			body: marchallObj(t, map[string]string{"tenant": "goma", "email": "not-an-email", "password": testPassword}),
		},
		{
			name: "weak password", wantCode: http.StatusBadRequest,
			body: marchallObj(t, map[string]string{"tenant": "goma", "email": "jane3@school.cd", "password": "short"}),
		},
		{
			name: "email taken in tenant", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, map[string]string{"tenant": "goma", "email": "taken@school.cd", "password": testPassword}),
			wantData: marchallObj(t, map[string]string{"email": user.ErrEmailExists.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/register", tt.body)
			env.app.ServeHTTP(rec, req)

			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
				return
			}
			checkCode(t, tt.wantCode, rec)
			if tt.wantCode == http.StatusCreated {
				var usr user.User
				unmarchallObj(t, rec, &usr)
				assert.Equal(t, "jane@school.cd", usr.Email)
				assert.Equal(t, user.RoleStudent, usr.Role)
				assert.False(t, usr.Approved, "self-registered students await approval")
			}
		})
	}
}

func mustTenantID(t *testing.T, env *testEnv, slug string) string {
	tnt, err := env.tenantSvc.GetBySlug(testCtx(), slug)
	if err != nil {
		t.Fatalf("mustTenantID() failed: %v", err)
	}
	return tnt.ID
}

func TestUserApi_login(t *testing.T) {
	env := setup(t)
	tnt := env.createTenant(t, "Goma Flight School", "goma")
	env.createUser(t, tnt.ID, "jane@school.cd", user.RoleStudent)

	// unapproved student
	if _, err := env.usrSvc.Register(testCtx(), user.NewUser{TenantID: tnt.ID, Email: "pending@school.cd", Password: testPassword, Role: user.RoleStudent}); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	tests := []httpTest{
		{
			name: "valid", wantCode: http.StatusOK,
			body: marchallObj(t, map[string]string{"tenant": "goma", "email": "jane@school.cd", "password": testPassword}),
		},
		{
			name: "wrong password", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, map[string]string{"tenant": "goma", "email": "jane@school.cd", "password": "LeWrong123"}),
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "unknown email", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, map[string]string{"tenant": "goma", "email": "nope@school.cd", "password": testPassword}),
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "unknown tenant", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, map[string]string{"tenant": "nope", "email": "jane@school.cd", "password": testPassword}),
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "unapproved student", wantCode: http.StatusForbidden,
			body:     marchallObj(t, map[string]string{"tenant": "goma", "email": "pending@school.cd", "password": testPassword}),
			wantData: marchallObj(t, httpErr{Error: "account pending admin approval"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			env.app.ServeHTTP(rec, req)

			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
				return
			}
			checkCode(t, tt.wantCode, rec)
			var resp LoginResponse
			unmarchallObj(t, rec, &resp)
			assert.NotEmpty(t, resp.Token)

			// the token works
			req, rec = newAuthRequest(http.MethodGet, "/v1/users/me", resp.Token)
			env.app.ServeHTTP(rec, req)
			checkCode(t, http.StatusOK, rec)
		})
	}
}

func TestUserApi_me(t *testing.T) {
	env := setup(t)
	tnt := env.createTenant(t, "Goma Flight School", "goma")
	usr := env.createUser(t, tnt.ID, "jane@school.cd", user.RoleStudent)

	// no token
	req, rec := newRequest(http.MethodGet, "/v1/users/me")
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)

	req, rec = newAuthRequest(http.MethodGet, "/v1/users/me", getToken(t, usr))
	env.app.ServeHTTP(rec, req)
	checkCode(t, http.StatusOK, rec)
	var got user.User
	unmarchallObj(t, rec, &got)
	assert.Equal(t, usr.ID, got.ID)
	assert.Equal(t, usr.Email, got.Email)
}

func TestUserApi_tokenRefresh(t *testing.T) {
	env := setup(t)
	tnt := env.createTenant(t, "Goma Flight School", "goma")
	usr := env.createUser(t, tnt.ID, "jane@school.cd", user.RoleStudent)

	req, rec := newAuthRequest(http.MethodPost, "/v1/users/token-refresh", getToken(t, usr))
	env.app.ServeHTTP(rec, req)
	checkCode(t, http.StatusOK, rec)
	var resp LoginResponse
	unmarchallObj(t, rec, &resp)
	assert.NotEmpty(t, resp.Token)
}

func TestUserApi_instructors(t *testing.T) {
	env := setup(t)
	tnt := env.createTenant(t, "Goma Flight School", "goma")
	admin := env.createUser(t, tnt.ID, "admin@school.cd", user.RoleAdmin)
	student := env.createUser(t, tnt.ID, "student@school.cd", user.RoleStudent)

	body := marchallObj(t, map[string]string{"email": "pilot@school.cd", "password": testPassword})

	// only admins create instructors
	req, rec := newAuthRequest(http.MethodPost, "/v1/users/instructors", getToken(t, student), body)
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}, rec)

	req, rec = newAuthRequest(http.MethodPost, "/v1/users/instructors", getToken(t, admin), body)
	env.app.ServeHTTP(rec, req)
	checkCode(t, http.StatusCreated, rec)
	var created user.User
	unmarchallObj(t, rec, &created)
	assert.Equal(t, user.RoleInstructor, created.Role)
	assert.True(t, created.Approved)

	// any authed user can list instructors
	req, rec = newAuthRequest(http.MethodGet, "/v1/users/instructors", getToken(t, student))
	env.app.ServeHTTP(rec, req)
	checkCode(t, http.StatusOK, rec)
	var instructors []user.User
	unmarchallObj(t, rec, &instructors)
	if assert.Len(t, instructors, 1) {
		assert.Equal(t, created.ID, instructors[0].ID)
	}
}

func TestUserApi_approveStudent(t *testing.T) {
	env := setup(t)
	tnt := env.createTenant(t, "Goma Flight School", "goma")
	admin := env.createUser(t, tnt.ID, "admin@school.cd", user.RoleAdmin)

	pending, err := env.usrSvc.Register(testCtx(), user.NewUser{TenantID: tnt.ID, Email: "pending@school.cd", Password: testPassword, Role: user.RoleStudent})
	if err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	// students cannot approve
	req, rec := newAuthRequest(http.MethodPost, "/v1/users/students/"+pending.ID+"/approve", getToken(t, pending))
	env.app.ServeHTTP(rec, req)
	checkCode(t, http.StatusForbidden, rec)

	req, rec = newAuthRequest(http.MethodPost, "/v1/users/students/"+pending.ID+"/approve", getToken(t, admin))
	env.app.ServeHTTP(rec, req)
	checkCode(t, http.StatusOK, rec)
	var approved user.User
	unmarchallObj(t, rec, &approved)
	assert.True(t, approved.Approved)

	// unknown student
	req, rec = newAuthRequest(http.MethodPost, "/v1/users/students/nope/approve", getToken(t, admin))
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: user.ErrNotFound.Error()})}, rec)

	// admins only see their tenant's students
	req, rec = newAuthRequest(http.MethodGet, "/v1/users/students", getToken(t, admin))
	env.app.ServeHTTP(rec, req)
	checkCode(t, http.StatusOK, rec)
	var students []user.User
	unmarchallObj(t, rec, &students)
	assert.Len(t, students, 1)
}

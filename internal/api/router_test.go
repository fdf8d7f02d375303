package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/auth-service/internal/api/handler"
	"github.com/99minutos/auth-service/internal/api/middleware"
	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
	"github.com/99minutos/auth-service/internal/core/service"
	"github.com/99minutos/auth-service/internal/infrastructure/crypto"
	"github.com/99minutos/auth-service/internal/infrastructure/token"
)

// memUserRepo enforces username/email uniqueness the way the unique indexes do.
type memUserRepo struct {
	users  []*domain.User
	writes int
}

func (r *memUserRepo) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	if dup := r.conflicts(u.Username, u.Email); dup != nil {
		return nil, dup
	}
	r.writes++
	c := *u
	c.ID = fmt.Sprintf("%024x", r.writes)
	r.users = append(r.users, &c)
	out := c
	return &out, nil
}

func (r *memUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *memUserRepo) FindByUsernameOrEmail(_ context.Context, username, email string) ([]*domain.User, error) {
	var out []*domain.User
	for _, u := range r.users {
		if u.Username == username || u.Email == email {
			c := *u
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *memUserRepo) conflicts(username, email string) *domain.ConflictError {
	var c domain.ConflictError
	for _, u := range r.users {
		c.Username = c.Username || u.Username == username
		c.Email = c.Email || u.Email == email
	}
	if !c.Username && !c.Email {
		return nil
	}
	return &c
}

type testServer struct {
	e    *echo.Echo
	repo *memUserRepo
}

// staleReadRepo hides existing users from the pre-check, so only Create
// detects the collision.
type staleReadRepo struct {
	*memUserRepo
}

func (staleReadRepo) FindByUsernameOrEmail(context.Context, string, string) ([]*domain.User, error) {
	return nil, nil
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWith(t, &memUserRepo{}, nil)
}

func newTestServerWith(t *testing.T, repo *memUserRepo, users ports.UserRepository) *testServer {
	t.Helper()
	if users == nil {
		users = repo
	}
	roles := domain.NewRoleSet([]domain.Role{
		{ID: "000000000000000000000001", Name: domain.RoleUser},
		{ID: "000000000000000000000002", Name: domain.RoleAdmin},
	})
	issuer := token.NewJWTIssuer("test-secret", time.Hour)
	svc := service.NewAuthService(users, roles, crypto.NewBcryptHasher(bcrypt.MinCost), issuer, nil, zerolog.Nop())

	reg := prometheus.NewRegistry()
	e := NewRouter(Deps{
		AuthService: svc,
		Tokens:      issuer,
		Checks:      map[string]handler.CheckFunc{"mongodb": func(context.Context) error { return nil }},
		Registerer:  reg,
		Gatherer:    reg,
		Log:         zerolog.Nop(),
	})
	return &testServer{e: e, repo: repo}
}

func (s *testServer) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	msg, _ := resp["message"].(string)
	return msg
}

func (s *testServer) signup(t *testing.T, body string) {
	t.Helper()
	if rec := s.do(http.MethodPost, "/api/auth/signup", body, nil); rec.Code != http.StatusOK {
		t.Fatalf("signup failed: %d %s", rec.Code, rec.Body.String())
	}
}

func (s *testServer) signin(t *testing.T, username, password string) signinBody {
	t.Helper()
	rec := s.do(http.MethodPost, "/api/auth/signin",
		fmt.Sprintf(`{"username":%q,"password":%q}`, username, password), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("signin failed: %d %s", rec.Code, rec.Body.String())
	}
	var body signinBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return body
}

type signinBody struct {
	ID          string   `json:"id"`
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	Roles       []string `json:"roles"`
	AccessToken string   `json:"accessToken"`
}

func TestSignup_ValidationResponses(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		body  string
		field string
		want  []string
	}{
		{`{"username":"whatever","password":"sco0Omb3g","roles":["user"]}`, "email", []string{"Email can't be blank"}},
		{`{"email":"","username":"whatever","password":"sco0Omb3g"}`, "email", []string{"Email can't be blank"}},
		{`{"email":"a@b","username":"whatever","password":"sco0Omb3g"}`, "email", []string{"Email is not a valid email"}},
		{`{"email":"fake@test.com","password":"sco0Omb3g"}`, "username", []string{"Username can't be blank"}},
		{`{"email":"fake@test.com","username":"fakeUser"}`, "password", []string{"Password can't be blank"}},
		{`{"email":"fake@test.com","username":"fakeUser","password":"` + strings.Repeat("é", 40) + `"}`,
			"password", []string{"Password is too long (maximum is 72 bytes)"}},
	}

	for _, tc := range cases {
		rec := s.do(http.MethodPost, "/api/auth/signup", tc.body, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", tc.body, rec.Code)
		}
		var resp map[string][]string
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid json: %v", err)
		}
		if !reflect.DeepEqual(resp[tc.field], tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.body, tc.want, resp)
		}
	}
	if s.repo.writes != 0 {
		t.Fatalf("expected no store writes, got %d", s.repo.writes)
	}
}

func TestSignup_DuplicateMessages(t *testing.T) {
	s := newTestServer(t)
	s.signup(t, `{"email":"taken@test.com","username":"first","password":"pw"}`)
	s.signup(t, `{"email":"second@test.com","username":"taken","password":"pw"}`)

	cases := []struct {
		body string
		want string
	}{
		{`{"email":"taken@test.com","username":"taken","password":"pw"}`, "Failed! Username and email already in use!"},
		{`{"email":"taken@test.com","username":"fresh","password":"pw"}`, "Failed! Email is already in use!"},
		{`{"email":"fresh@test.com","username":"taken","password":"pw"}`, "Failed! Username is already in use!"},
	}
	for _, tc := range cases {
		rec := s.do(http.MethodPost, "/api/auth/signup", tc.body, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if got := decodeMessage(t, rec); got != tc.want {
			t.Fatalf("expected %q, got %q", tc.want, got)
		}
	}
}

func TestSignup_StoreConflictWithoutPreCheckHit(t *testing.T) {
	repo := &memUserRepo{}
	s := newTestServerWith(t, repo, staleReadRepo{repo})
	s.signup(t, `{"email":"taken@test.com","username":"first","password":"pw"}`)

	rec := s.do(http.MethodPost, "/api/auth/signup", `{"email":"taken@test.com","username":"second","password":"pw"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if got := decodeMessage(t, rec); got != "Failed! Email is already in use!" {
		t.Fatalf("unexpected message: %q", got)
	}
	if s.repo.writes != 1 {
		t.Fatalf("expected one store write, got %d", s.repo.writes)
	}
}

func TestSignup_UnknownRole(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/auth/signup",
		`{"email":"x@test.com","username":"x","password":"pw","roles":["user","moderator"]}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if got := decodeMessage(t, rec); got != "Failed! Role moderator does not exist!" {
		t.Fatalf("unexpected message: %q", got)
	}
	if s.repo.writes != 0 {
		t.Fatalf("expected no store writes, got %d", s.repo.writes)
	}
}

func TestSignin_Responses(t *testing.T) {
	s := newTestServer(t)
	s.signup(t, `{"email":"user1@test.com","username":"user1","password":"test123!"}`)

	rec := s.do(http.MethodPost, "/api/auth/signin", `{"username":"nobody","password":"test123!"}`, nil)
	if rec.Code != http.StatusNotFound || decodeMessage(t, rec) != "User Not found." {
		t.Fatalf("expected 404 User Not found., got %d %s", rec.Code, rec.Body.String())
	}

	rec = s.do(http.MethodPost, "/api/auth/signin", `{"username":"user1","password":"wrong"}`, nil)
	if rec.Code != http.StatusUnauthorized || decodeMessage(t, rec) != "Invalid Password!" {
		t.Fatalf("expected 401 Invalid Password!, got %d %s", rec.Code, rec.Body.String())
	}

	body := s.signin(t, "user1", "test123!")
	if body.AccessToken == "" {
		t.Fatalf("expected non-empty token")
	}
	if !reflect.DeepEqual(body.Roles, []string{"user"}) {
		t.Fatalf("expected default [user] roles, got %v", body.Roles)
	}
	if body.Email != "user1@test.com" || body.Username != "user1" || body.ID == "" {
		t.Fatalf("unexpected signin body: %+v", body)
	}
}

func TestAccessGuard(t *testing.T) {
	s := newTestServer(t)
	s.signup(t, `{"email":"admin@test.com","username":"adminTestUser","password":"test123!","roles":["admin","user"]}`)
	s.signup(t, `{"email":"user1@test.com","username":"user1","password":"test123!","roles":["user"]}`)

	admin := s.signin(t, "adminTestUser", "test123!")
	user := s.signin(t, "user1", "test123!")
	if !reflect.DeepEqual(admin.Roles, []string{"admin", "user"}) {
		t.Fatalf("unexpected admin roles: %v", admin.Roles)
	}

	cases := []struct {
		name    string
		path    string
		headers map[string]string
		code    int
		message string
	}{
		{"public", "/api/test/all", nil, http.StatusOK, "Public Content."},
		{"user no token", "/api/test/user", nil, http.StatusForbidden, "No token provided!"},
		{"user bad token", "/api/test/user", map[string]string{middleware.HeaderAccessToken: "invalidTokenString"}, http.StatusUnauthorized, "Unauthorized!"},
		{"user valid token", "/api/test/user", map[string]string{middleware.HeaderAccessToken: user.AccessToken}, http.StatusOK, "User Content."},
		{"user bearer token", "/api/test/user", map[string]string{echo.HeaderAuthorization: "Bearer " + user.AccessToken}, http.StatusOK, "User Content."},
		{"admin no token", "/api/test/admin", nil, http.StatusForbidden, "No token provided!"},
		{"admin bad token", "/api/test/admin", map[string]string{middleware.HeaderAccessToken: "invalidTokenString"}, http.StatusUnauthorized, "Unauthorized!"},
		{"admin wrong role", "/api/test/admin", map[string]string{middleware.HeaderAccessToken: user.AccessToken}, http.StatusForbidden, "Require Admin Role!"},
		{"admin valid token", "/api/test/admin", map[string]string{middleware.HeaderAccessToken: admin.AccessToken}, http.StatusOK, "Admin Content."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(http.MethodGet, tc.path, "", tc.headers)
			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d (%s)", tc.code, rec.Code, rec.Body.String())
			}
			if got := decodeMessage(t, rec); got != tc.message {
				t.Fatalf("expected %q, got %q", tc.message, got)
			}
		})
	}
}

func TestInfrastructureRoutes(t *testing.T) {
	s := newTestServer(t)

	if rec := s.do(http.MethodGet, "/health", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("liveness: expected 200, got %d", rec.Code)
	}
	if rec := s.do(http.MethodGet, "/health/ready", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("readiness: expected 200, got %d", rec.Code)
	}

	_ = s.do(http.MethodGet, "/api/test/all", "", nil)
	rec := s.do(http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "http_requests_total") {
		t.Fatalf("expected request metrics in exposition")
	}
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/nope", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if decodeMessage(t, rec) == "" {
		t.Fatalf("expected message envelope, got %s", rec.Body.String())
	}
}

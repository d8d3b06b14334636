package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/pawsitive-placements/internal/session"
	"github.com/yourusername/pawsitive-placements/internal/users"
)

type stubAccounts struct {
	user      *users.User
	password  string
	admin     *users.Admin
	adminPass string
	createID  int64
	createErr error
	created   []users.NewUser
}

func (s *stubAccounts) GetByID(_ context.Context, id int64) (*users.User, error) {
	if s.user != nil && s.user.ID == id {
		return s.user, nil
	}
	return nil, nil
}

func (s *stubAccounts) Authenticate(_ context.Context, username, password string) (*users.User, error) {
	if s.user != nil && s.user.Username == username && s.password == password {
		return s.user, nil
	}
	return nil, nil
}

func (s *stubAccounts) AuthenticateAdmin(_ context.Context, username, password string) (*users.Admin, error) {
	if s.admin != nil && s.admin.Username == username && s.adminPass == password {
		return s.admin, nil
	}
	return nil, nil
}

func (s *stubAccounts) Create(_ context.Context, in users.NewUser) (int64, error) {
	s.created = append(s.created, in)
	return s.createID, s.createErr
}

type recordingLinker struct {
	emails []string
	err    error
}

func (l *recordingLinker) LinkSubscriptions(_ context.Context, email string, _ int64, _ string) error {
	l.emails = append(l.emails, email)
	return l.err
}

type authHarness struct {
	router   *gin.Engine
	manager  *Manager
	accounts *stubAccounts
	linker   *recordingLinker
	now      time.Time
}

func newAuthHarness(t *testing.T) *authHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := &authHarness{
		accounts: &stubAccounts{
			user:      &users.User{ID: 7, Name: "Jamie Rivers", Username: "jamie", Email: "jamie@example.com"},
			password:  "correct-horse",
			admin:     &users.Admin{ID: 1, FirstName: "Lindsey", Username: "lindsey"},
			adminPass: "admin-pass",
			createID:  12,
		},
		linker: &recordingLinker{},
		now:    time.Date(2025, 11, 7, 12, 0, 0, 0, time.UTC),
	}

	sessions, err := session.NewManager(session.NewMemoryStore(time.Minute), session.Options{
		CookieName:  "pp_session",
		Secret:      []byte("0123456789abcdef0123456789abcdef"),
		RotateAfter: 30 * time.Minute,
		IdleTimeout: 30 * time.Minute,
	})
	require.NoError(t, err)

	h.manager = NewManager(h.accounts, sessions, h.linker, "https://pawsitive.example")
	h.manager.now = func() time.Time { return h.now }

	router := gin.New()
	router.Use(sessions.Middleware(), NewResolver(h.accounts).Middleware())
	router.GET("/api/session", h.manager.Session)
	router.POST("/api/auth/login", h.manager.Login)
	router.POST("/api/auth/admin/login", h.manager.AdminLogin)
	router.POST("/api/auth/logout", h.manager.Logout)
	router.POST("/api/auth/register", h.manager.Register)
	router.GET("/api/account", RequireUser(), h.manager.Account)
	router.GET("/api/admin/ping", RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusOK) })
	h.router = router
	return h
}

func (h *authHarness) do(method, path, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.RemoteAddr = "203.0.113.5:4321"
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "pp_session" {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func TestLoginRegeneratesSessionAndKeepsCSRFToken(t *testing.T) {
	h := newAuthHarness(t)

	first := h.do(http.MethodGet, "/api/session", "", nil)
	require.Equal(t, http.StatusOK, first.Code)
	before := sessionCookie(t, first)
	token := first.Header().Get(CSRFHeader)
	require.NotEmpty(t, token)

	login := h.do(http.MethodPost, "/api/auth/login", `{"username":"jamie","password":"correct-horse"}`, []*http.Cookie{before})
	require.Equal(t, http.StatusOK, login.Code)
	after := sessionCookie(t, login)
	assert.NotEqual(t, before.Value, after.Value)
	assert.Len(t, login.Result().Cookies(), 1)

	var body struct {
		Identity Identity `json:"identity"`
		Redirect string   `json:"redirect"`
	}
	require.NoError(t, json.Unmarshal(login.Body.Bytes(), &body))
	assert.Equal(t, RoleUser, body.Identity.Role)
	assert.Equal(t, "Jamie Rivers", body.Identity.DisplayName)
	assert.Equal(t, "https://pawsitive.example/", body.Redirect)

	// 旧IDは無効
	stale := h.do(http.MethodGet, "/api/account", "", []*http.Cookie{before})
	assert.Equal(t, http.StatusUnauthorized, stale.Code)

	again := h.do(http.MethodGet, "/api/session", "", []*http.Cookie{after})
	assert.Equal(t, token, again.Header().Get(CSRFHeader))

	account := h.do(http.MethodGet, "/api/account", "", []*http.Cookie{after})
	assert.Equal(t, http.StatusOK, account.Code)
	assert.Contains(t, account.Body.String(), "jamie@example.com")
}

func TestAdminLoginClearsUserFlags(t *testing.T) {
	h := newAuthHarness(t)

	login := h.do(http.MethodPost, "/api/auth/login", `{"username":"jamie","password":"correct-horse"}`, nil)
	require.Equal(t, http.StatusOK, login.Code)

	admin := h.do(http.MethodPost, "/api/auth/admin/login", `{"username":"lindsey","password":"admin-pass"}`, []*http.Cookie{sessionCookie(t, login)})
	require.Equal(t, http.StatusOK, admin.Code)
	cookie := sessionCookie(t, admin)

	rec := h.do(http.MethodGet, "/api/session", "", []*http.Cookie{cookie})
	var body struct {
		Identity Identity `json:"identity"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, RoleAdmin, body.Identity.Role)
	assert.Equal(t, "Lindsey", body.Identity.DisplayName)
	assert.Zero(t, body.Identity.UserID)

	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/admin/ping", "", []*http.Cookie{cookie}).Code)
}

func TestRoleGuards(t *testing.T) {
	h := newAuthHarness(t)

	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/api/account", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/api/admin/ping", "", nil).Code)

	login := h.do(http.MethodPost, "/api/auth/login", `{"username":"jamie","password":"correct-horse"}`, nil)
	require.Equal(t, http.StatusOK, login.Code)
	rec := h.do(http.MethodGet, "/api/admin/ping", "", []*http.Cookie{sessionCookie(t, login)})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLoginInvalidCredentials(t *testing.T) {
	h := newAuthHarness(t)

	rec := h.do(http.MethodPost, "/api/auth/login", `{"username":"jamie","password":"nope"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"remainingAttempts":4`)

	rec = h.do(http.MethodPost, "/api/auth/login", `{"username":"jamie"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginLockout(t *testing.T) {
	h := newAuthHarness(t)

	for i := 0; i < maxLoginAttempts; i++ {
		rec := h.do(http.MethodPost, "/api/auth/login", `{"username":"jamie","password":"nope"}`, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec := h.do(http.MethodPost, "/api/auth/login", `{"username":"jamie","password":"correct-horse"}`, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "600", rec.Header().Get("Retry-After"))

	h.now = h.now.Add(lockDuration + time.Second)
	rec = h.do(http.MethodPost, "/api/auth/login", `{"username":"jamie","password":"correct-horse"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogoutDestroysSession(t *testing.T) {
	h := newAuthHarness(t)

	login := h.do(http.MethodPost, "/api/auth/login", `{"username":"jamie","password":"correct-horse"}`, nil)
	cookie := sessionCookie(t, login)

	rec := h.do(http.MethodPost, "/api/auth/logout", "", []*http.Cookie{cookie})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, -1, sessionCookie(t, rec).MaxAge)

	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/api/account", "", []*http.Cookie{cookie}).Code)
}

func TestRegister(t *testing.T) {
	h := newAuthHarness(t)

	rec := h.do(http.MethodPost, "/api/auth/register",
		`{"name":"Ada","username":"ada","email":"ada@example.com","password":"long-enough"}`, nil)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"userId":12`)
	assert.Equal(t, []string{"ada@example.com"}, h.linker.emails)
}

func TestRegisterLinkFailureDoesNotFail(t *testing.T) {
	h := newAuthHarness(t)
	h.linker.err = errors.New("queue down")

	rec := h.do(http.MethodPost, "/api/auth/register",
		`{"name":"Ada","username":"ada","email":"ada@example.com","password":"long-enough"}`, nil)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestRegisterErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"duplicate", users.ErrDuplicate, http.StatusConflict},
		{"invalid", users.ErrInvalidInput, http.StatusUnprocessableEntity},
		{"database", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newAuthHarness(t)
			h.accounts.createErr = tc.err

			rec := h.do(http.MethodPost, "/api/auth/register",
				`{"name":"Ada","username":"ada","email":"ada@example.com","password":"long-enough"}`, nil)
			assert.Equal(t, tc.want, rec.Code)
			assert.Empty(t, h.linker.emails)
		})
	}

	h := newAuthHarness(t)
	rec := h.do(http.MethodPost, "/api/auth/register", `{"name":"Ada"}`, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Empty(t, h.accounts.created)
}

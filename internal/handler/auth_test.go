package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/task-tracker/internal/auth"
	"github.com/iliyamo/task-tracker/internal/config"
	"github.com/iliyamo/task-tracker/internal/middleware"
	"github.com/iliyamo/task-tracker/internal/model"
	"github.com/iliyamo/task-tracker/internal/repository"
	"github.com/iliyamo/task-tracker/internal/utils"
)

// ----- stub stores shared by the handler tests -----

type stubUsers struct {
	nextID  uint64
	users   map[uint64]model.User
	deleted []uint64
	cascade int64
}

func newStubUsers() *stubUsers {
	return &stubUsers{nextID: 1, users: map[uint64]model.User{}}
}

func (s *stubUsers) add(u model.User) model.User {
	if u.ID == 0 {
		u.ID = s.nextID
	}
	if u.ID >= s.nextID {
		s.nextID = u.ID + 1
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	s.users[u.ID] = u
	return u
}

func (s *stubUsers) Create(_ context.Context, name, email, password, role string, cost int) (uint64, error) {
	for _, u := range s.users {
		if u.Email == email {
			return 0, repository.ErrEmailExists
		}
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	u := s.add(model.User{Name: name, Email: email, PasswordHash: hash, Role: role})
	return u.ID, nil
}

func (s *stubUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (s *stubUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (s *stubUsers) List(context.Context) ([]model.User, error) {
	out := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}

func (s *stubUsers) Update(_ context.Context, id uint64, ch repository.UserChanges, cost int) error {
	u, ok := s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	if ch.Email != nil {
		for oid, o := range s.users {
			if oid != id && o.Email == *ch.Email {
				return repository.ErrEmailExists
			}
		}
		u.Email = *ch.Email
	}
	if ch.Name != nil {
		u.Name = *ch.Name
	}
	if ch.Role != nil {
		u.Role = *ch.Role
	}
	if ch.Password != nil {
		hash, err := utils.HashPassword(*ch.Password, cost)
		if err != nil {
			return err
		}
		u.PasswordHash = hash
	}
	s.users[id] = u
	return nil
}

func (s *stubUsers) SoftDelete(_ context.Context, ids ...uint64) (int64, error) {
	n := int64(0)
	for _, id := range ids {
		if _, ok := s.users[id]; !ok {
			continue
		}
		delete(s.users, id)
		s.deleted = append(s.deleted, id)
		n++
	}
	if n == 0 {
		return 0, repository.ErrNotFound
	}
	return s.cascade, nil
}

type stubTasks struct {
	nextID uint64
	tasks  map[uint64]model.Task
}

func newStubTasks() *stubTasks {
	return &stubTasks{nextID: 1, tasks: map[uint64]model.Task{}}
}

func (s *stubTasks) Create(_ context.Context, t model.Task) (uint64, error) {
	t.ID = s.nextID
	s.nextID++
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	s.tasks[t.ID] = t
	return t.ID, nil
}

func (s *stubTasks) GetForOwner(_ context.Context, id, ownerID uint64) (model.Task, error) {
	t, ok := s.tasks[id]
	if !ok || t.UserID != ownerID {
		return model.Task{}, repository.ErrNotFound
	}
	return t, nil
}

func (s *stubTasks) ListByOwner(_ context.Context, ownerID uint64) ([]model.Task, error) {
	var out []model.Task
	for _, t := range s.tasks {
		if t.UserID == ownerID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *stubTasks) ListAll(context.Context) ([]model.Task, error) {
	out := make([]model.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t)
	}
	return out, nil
}

func (s *stubTasks) Update(_ context.Context, id, ownerID uint64, ch repository.TaskChanges) error {
	t, ok := s.tasks[id]
	if !ok || t.UserID != ownerID {
		return repository.ErrNotFound
	}
	if ch.Title != nil {
		t.Title = *ch.Title
	}
	if ch.Description != nil {
		t.Description = *ch.Description
	}
	if ch.Status != nil {
		t.Status = *ch.Status
	}
	if ch.DueDate != nil {
		if ch.DueDate.Valid {
			d := ch.DueDate.Time
			t.DueDate = &d
		} else {
			t.DueDate = nil
		}
	}
	s.tasks[id] = t
	return nil
}

func (s *stubTasks) SoftDelete(_ context.Context, id, ownerID uint64) error {
	t, ok := s.tasks[id]
	if !ok || t.UserID != ownerID {
		return repository.ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}

// ----- test fixture -----

type fixture struct {
	e       *echo.Echo
	users   *stubUsers
	tasks   *stubTasks
	tokens  *auth.TokenService
	revoked auth.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.Config{JWTSecret: "handler-test-secret", JWTLifetimeSec: 3600, BcryptCost: bcrypt.MinCost}
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTLifetimeSec, "test")
	require.NoError(t, err)

	f := &fixture{
		e:       echo.New(),
		users:   newStubUsers(),
		tasks:   newStubTasks(),
		tokens:  tokens,
		revoked: auth.NewMemoryStore(),
	}

	authGuard := middleware.NewAuthGuard(tokens, f.revoked, false)

	a := NewAuthHandler(cfg, f.users, tokens, f.revoked)

	f.e.POST("/api/auth/register", a.Register)
	f.e.POST("/api/auth/login", a.Login)
	f.e.GET("/api/auth/logout", a.Logout, middleware.Chain(authGuard))
	f.e.GET("/api/me", a.Me, middleware.Chain(authGuard))

	tk := NewTaskHandler(f.tasks)
	api := f.e.Group("/api", middleware.Chain(authGuard))
	api.GET("/tasks", tk.Index)
	api.POST("/tasks", tk.Create)
	api.GET("/tasks/:id", tk.Show)
	api.PUT("/tasks/:id", tk.Update)
	api.DELETE("/tasks/:id", tk.Delete)
	return f
}

func (f *fixture) addUser(t *testing.T, name, email, password, role string) model.User {
	t.Helper()
	hash, err := utils.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	return f.users.add(model.User{Name: name, Email: email, PasswordHash: hash, Role: role})
}

func (f *fixture) do(method, target, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

// ----- tests -----

func TestLoginSuccess(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "Admin", "admin@example.com", "Password1", model.RoleAdmin)

	rec := f.do(http.MethodPost, "/api/auth/login", "", `{"email":"admin@example.com","password":"Password1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		User  userPart `json:"user"`
		Token string   `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "admin@example.com", resp.User.Email)
	assert.Equal(t, model.RoleAdmin, resp.User.Role)

	claims, err := f.tokens.Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, model.RoleAdmin, claims.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "User", "u@example.com", "Password1", model.RoleUser)

	rec := f.do(http.MethodPost, "/api/auth/login", "", `{"email":"u@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid email or password")
}

func TestLoginUnknownEmailSameMessage(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/auth/login", "", `{"email":"nobody@example.com","password":"x"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	// Same body as a wrong password: no account enumeration.
	assert.Contains(t, rec.Body.String(), "invalid email or password")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "User", "taken@example.com", "Password1", model.RoleUser)

	rec := f.do(http.MethodPost, "/api/auth/register", "",
		`{"name":"Other","email":"taken@example.com","password":"Password1"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterAlwaysCreatesRegularUser(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/auth/register", "",
		`{"name":"New","email":"new@example.com","password":"Password1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	u, err := f.users.GetByEmail(context.Background(), "new@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, u.Role)
}

func TestLogoutRevokesToken(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, "User", "u@example.com", "Password1", model.RoleUser)

	token, _, err := f.tokens.Issue(u.ID, u.Email, u.Role)
	require.NoError(t, err)

	// The token works before logout...
	rec := f.do(http.MethodGet, "/api/me", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	// ...logout succeeds...
	rec = f.do(http.MethodGet, "/api/auth/logout", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	// ...and immediately afterwards the same token is rejected.
	rec = f.do(http.MethodGet, "/api/me", token, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "revoked")
}

func TestLogoutWithoutTokenRejected(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/auth/logout", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

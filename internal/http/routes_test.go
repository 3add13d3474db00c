package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"tareas_api/internal/domain"
	"tareas_api/internal/http/handlers"
	"tareas_api/internal/repository/memory"
	"tareas_api/internal/service"
	"tareas_api/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testAPI struct {
	router *gin.Engine
	users  *memory.UserRepository
	audit  *memory.AuditRepository
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	return newTestAPIWithTokens(t, memory.NewTokenRepository())
}

func newTestAPIWithTokens(t *testing.T, tokens service.TokenStore) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := memory.NewUserRepository()
	tasks := memory.NewTaskRepository()
	audit := memory.NewAuditRepository()
	hub := ws.NewHub()

	creds := service.NewCredentialService(users, tokens, service.NewPasswordHasher(bcrypt.MinCost))
	h := handlers.NewHandler(
		service.NewAccountService(users, creds),
		creds,
		service.NewTaskService(tasks, hub),
		service.NewAuditService(audit),
		hub,
	)

	r := gin.New()
	Middleware(r, nil)
	RegisterRoutes(r, Deps{
		Handler: h,
		Health:  handlers.NewHealthHandler("test", nil),
		Hub:     hub,
		Tokens:  creds,
	})
	return &testAPI{router: r, users: users, audit: audit}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type authBody struct {
	Token string            `json:"token"`
	User  handlers.UserView `json:"user"`
}

func (a *testAPI) register(t *testing.T, username, email, password string) authBody {
	t.Helper()
	w := a.do(t, http.MethodPost, "/registrer", "", gin.H{"username": username, "email": email, "password": password})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[authBody](t, w)
}

func TestAccountLifecycle(t *testing.T) {
	api := newTestAPI(t)

	reg := api.register(t, "alice", "a@x.com", "p1")
	assert.NotEmpty(t, reg.Token)
	assert.Equal(t, "alice", reg.User.Username)
	assert.Equal(t, "a@x.com", reg.User.Email)

	w := api.do(t, http.MethodPost, "/login", "", gin.H{"email": "a@x.com", "password": "p1"})
	require.Equal(t, http.StatusOK, w.Code)
	login := decode[authBody](t, w)
	assert.Equal(t, reg.User.ID, login.User.ID)
	assert.NotContains(t, w.Body.String(), "password")

	w = api.do(t, http.MethodGet, "/profile", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	profile := decode[map[string]any](t, w)
	assert.Equal(t, map[string]any{"id": float64(reg.User.ID), "username": "alice", "email": "a@x.com"}, profile)

	w = api.do(t, http.MethodPost, "/logout", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode[map[string]string](t, w), "message")

	w = api.do(t, http.MethodGet, "/profile", login.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(t, http.MethodPost, "/logout", login.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	actions := []string{}
	for _, l := range api.audit.All() {
		actions = append(actions, l.Action)
	}
	assert.Equal(t, []string{domain.AuditActionRegister, domain.AuditActionLogin, domain.AuditActionLogout}, actions)
}

// failingRevoke resolves tokens normally but cannot delete them.
type failingRevoke struct {
	*memory.TokenRepository
}

func (failingRevoke) DeleteByUser(context.Context, int64) (*domain.Token, error) {
	return nil, errors.New("connection reset")
}

func TestLogout_FailureIsGeneric400(t *testing.T) {
	api := newTestAPIWithTokens(t, failingRevoke{memory.NewTokenRepository()})
	alice := api.register(t, "alice", "a@x.com", "p1")

	w := api.do(t, http.MethodPost, "/logout", alice.Token, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"logout failed"}`, w.Body.String())

	logs := api.audit.All()
	require.NotEmpty(t, logs)
	last := logs[len(logs)-1]
	assert.Equal(t, domain.AuditActionLogoutFail, last.Action)
	assert.Equal(t, alice.User.ID, last.UserID)

	// the token was not revoked
	assert.Equal(t, http.StatusOK, api.do(t, http.MethodGet, "/profile", alice.Token, nil).Code)
}

func TestRegister_Errors(t *testing.T) {
	api := newTestAPI(t)
	api.register(t, "alice", "a@x.com", "p1")

	w := api.do(t, http.MethodPost, "/registrer", "", gin.H{"username": "alice2", "email": "a@x.com", "password": "p2"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[map[string][]string](t, w), "email")
	assert.Equal(t, 1, api.users.Count())

	w = api.do(t, http.MethodPost, "/registrer", "", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	fields := decode[map[string][]string](t, w)
	assert.Contains(t, fields, "username")
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "password")

	w = api.do(t, http.MethodPost, "/registrer", "", `{"username":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin_Errors(t *testing.T) {
	api := newTestAPI(t)
	api.register(t, "alice", "a@x.com", "p1")

	w := api.do(t, http.MethodPost, "/login", "", gin.H{"email": "nobody@x.com", "password": "p1"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(t, http.MethodPost, "/login", "", gin.H{"email": "a@x.com", "password": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, map[string]string{"error": "invalid password"}, decode[map[string]string](t, w))
}

func TestProfile_RequiresToken(t *testing.T) {
	api := newTestAPI(t)

	assert.Equal(t, http.StatusUnauthorized, api.do(t, http.MethodGet, "/profile", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, api.do(t, http.MethodGet, "/profile", "bogus", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, api.do(t, http.MethodGet, "/tareas/", "", nil).Code)
}

func TestTaskLifecycle(t *testing.T) {
	api := newTestAPI(t)
	alice := api.register(t, "alice", "a@x.com", "p1")

	w := api.do(t, http.MethodPost, "/tareas/crear/", alice.Token, gin.H{"titulo": "Buy milk", "fecha_vence": "2025-01-31"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[map[string]any](t, w)
	assert.Equal(t, "Buy milk", created["titulo"])
	assert.Equal(t, "2025-01-31", created["fecha_vence"])
	assert.Equal(t, false, created["estado"])
	assert.Equal(t, float64(alice.User.ID), created["user"])
	id := int64(created["id"].(float64))

	w = api.do(t, http.MethodPut, fmt.Sprintf("/tareas/editar/%d/", id), alice.Token, gin.H{"estado": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[map[string]any](t, w)
	assert.Equal(t, true, updated["estado"])
	assert.Equal(t, "Buy milk", updated["titulo"])

	w = api.do(t, http.MethodGet, fmt.Sprintf("/tareas/%d/", id), alice.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode[map[string]any](t, w)["estado"])

	w = api.do(t, http.MethodGet, "/tareas/", alice.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 1)

	w = api.do(t, http.MethodDelete, fmt.Sprintf("/tareas/eliminar/%d/", id), alice.Token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	w = api.do(t, http.MethodDelete, fmt.Sprintf("/tareas/eliminar/%d/", id), alice.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(t, http.MethodGet, "/tareas/", alice.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestTask_ValidationErrors(t *testing.T) {
	api := newTestAPI(t)
	alice := api.register(t, "alice", "a@x.com", "p1")

	w := api.do(t, http.MethodPost, "/tareas/crear/", alice.Token, gin.H{"descripcion": "x"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	fields := decode[map[string][]string](t, w)
	assert.Contains(t, fields, "titulo")
	assert.Contains(t, fields, "fecha_vence")

	w = api.do(t, http.MethodPost, "/tareas/crear/", alice.Token, gin.H{"titulo": "x", "fecha_vence": "tomorrow"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[map[string][]string](t, w), "fecha_vence")
}

func TestTask_CrossUserIsNotFound(t *testing.T) {
	api := newTestAPI(t)
	alice := api.register(t, "alice", "a@x.com", "p1")
	bob := api.register(t, "bob", "b@x.com", "p2")

	w := api.do(t, http.MethodPost, "/tareas/crear/", alice.Token, gin.H{"titulo": "secret", "fecha_vence": "2025-01-31"})
	require.Equal(t, http.StatusCreated, w.Code)
	id := int64(decode[map[string]any](t, w)["id"].(float64))

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, fmt.Sprintf("/tareas/%d/", id)},
		{http.MethodPut, fmt.Sprintf("/tareas/editar/%d/", id)},
		{http.MethodPatch, fmt.Sprintf("/tareas/editar/%d/", id)},
		{http.MethodDelete, fmt.Sprintf("/tareas/eliminar/%d/", id)},
		{http.MethodGet, "/tareas/abc/"},
		{http.MethodDelete, "/tareas/eliminar/abc/"},
		{http.MethodGet, "/tareas/999999/"},
	} {
		w := api.do(t, tc.method, tc.path, bob.Token, gin.H{"estado": true})
		assert.Equal(t, http.StatusNotFound, w.Code, "%s %s", tc.method, tc.path)
		assert.JSONEq(t, `{"error":"not found"}`, w.Body.String())
	}

	w = api.do(t, http.MethodGet, "/tareas/", bob.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = api.do(t, http.MethodGet, fmt.Sprintf("/tareas/%d/", id), alice.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode[map[string]any](t, w)["estado"])
}

func TestHealthEndpoints(t *testing.T) {
	api := newTestAPI(t)

	for _, path := range []string{"/health", "/healthz", "/readyz"} {
		w := api.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w := api.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/team-task-api/internal/auth"
	"github.com/yukikurage/team-task-api/internal/dto"
	"github.com/yukikurage/team-task-api/internal/handlers"
	"github.com/yukikurage/team-task-api/internal/metrics"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/repository"
	"github.com/yukikurage/team-task-api/internal/services"
	"github.com/yukikurage/team-task-api/internal/testutil"
	"go.uber.org/zap"
)

const password = "Passw0rd!"

type apiClient struct {
	t      *testing.T
	router *gin.Engine
	auth   *services.AuthService
}

func setupRouter(t *testing.T) apiClient {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	store := repository.NewStore(db)
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	emails := services.NewEmailValidator(nil)
	tokens := auth.NewTokenManager(auth.TokenConfig{Secret: "test-secret", Issuer: "test", Audience: "test"})
	authService := services.NewAuthService(store.Users, emails, nil)

	r := New(Deps{
		AuthHandler:  handlers.NewAuthHandler(authService, tokens),
		TeamHandler:  handlers.NewTeamHandler(services.NewTeamService(store, emails, nil, m)),
		TaskHandler:  handlers.NewTaskHandler(services.NewTaskService(store, services.TaskPolicy{}, nil, m)),
		Tokens:       tokens,
		SessionStore: cookie.NewStore([]byte("test-session-secret")),
		Logger:       zap.NewNop(),
		Metrics:      m,
		Gatherer:     registry,
	})
	return apiClient{t: t, router: r, auth: authService}
}

func (a apiClient) register(email string, role models.GlobalRole) *models.User {
	a.t.Helper()

	user, err := a.auth.RegisterUser(context.Background(), services.RegisterInput{
		Email:           email,
		FirstName:       "Test",
		LastName:        "User",
		Password:        password,
		ConfirmPassword: password,
		Role:            role,
	})
	require.NoError(a.t, err)
	return user
}

func (a apiClient) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a apiClient) login(email string) string {
	a.t.Helper()

	w := a.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	var response dto.TokenResponse
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &response))
	return response.Token
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestHealthAndMetrics(t *testing.T) {
	api := setupRouter(t)

	w := api.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")

	w = api.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `taskapi_http_requests_total{method="GET",path="/health",status="200"} 1`)
}

func TestProtectedRoutesRequireAuthentication(t *testing.T) {
	api := setupRouter(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/auth/me"},
		{http.MethodGet, "/api/teams"},
		{http.MethodPost, "/api/users"},
		{http.MethodDelete, "/api/tasks/00000000-0000-0000-0000-000000000000"},
	} {
		w := api.do(route.method, route.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, route.path)
	}
}

func TestRegisterUserRequiresSuperAdmin(t *testing.T) {
	api := setupRouter(t)
	api.register("root@system.com", models.RoleSuperAdmin)
	api.register("ada@gmail.com", models.RoleUser)

	body := map[string]string{
		"email":            "new@outlook.com",
		"first_name":       "New",
		"last_name":        "User",
		"password":         password,
		"confirm_password": password,
	}

	w := api.do(http.MethodPost, "/api/users", api.login("ada@gmail.com"), body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(http.MethodPost, "/api/users", api.login("root@system.com"), body)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestTeamAndTaskLifecycle(t *testing.T) {
	api := setupRouter(t)
	api.register("admin@gmail.com", models.RoleUser)
	member := api.register("member@yahoo.com", models.RoleUser)
	api.register("outsider@gmail.com", models.RoleUser)

	adminToken := api.login("admin@gmail.com")
	memberToken := api.login("member@yahoo.com")
	outsiderToken := api.login("outsider@gmail.com")

	w := api.do(http.MethodGet, "/api/auth/me", memberToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, member.ID, decodeBody[dto.UserDTO](t, w).ID)

	w = api.do(http.MethodPost, "/api/teams", adminToken, map[string]string{"name": "Eng"})
	require.Equal(t, http.StatusCreated, w.Code)
	team := decodeBody[dto.TeamDTO](t, w)
	teamPath := "/api/teams/" + team.ID.String()

	w = api.do(http.MethodPost, teamPath+"/users", adminToken, map[string]string{"email": "member@yahoo.com"})
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(http.MethodPost, teamPath+"/users", outsiderToken, map[string]string{"email": "outsider@gmail.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodPost, teamPath+"/tasks", memberToken, map[string]interface{}{
		"title":       "Write docs",
		"assignee_id": member.ID.String(),
	})
	require.Equal(t, http.StatusCreated, w.Code)
	task := decodeBody[dto.TaskDTO](t, w)
	taskPath := "/api/tasks/" + task.ID.String()

	w = api.do(http.MethodGet, teamPath+"/tasks", outsiderToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeBody[dto.TaskListResponse](t, w).Tasks)

	w = api.do(http.MethodPatch, taskPath+"/status", outsiderToken, map[string]string{"status": "Completed"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(http.MethodPatch, taskPath+"/status", memberToken, map[string]string{"status": "InProgress"})
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(http.MethodPut, taskPath, adminToken, map[string]string{"title": "Write better docs"})
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(http.MethodGet, teamPath+"/tasks", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	tasks := decodeBody[dto.TaskListResponse](t, w).Tasks
	require.Len(t, tasks, 1)
	assert.Equal(t, "Write better docs", tasks[0].Title)
	assert.Equal(t, models.TaskStatusInProgress, tasks[0].Status)
	assert.Equal(t, "member@yahoo.com", tasks[0].CreatorEmail)

	w = api.do(http.MethodDelete, taskPath, outsiderToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(http.MethodDelete, taskPath, memberToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(http.MethodGet, taskPath, adminToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(http.MethodGet, "/api/tasks/not-a-uuid", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodGet, "/metrics", "", nil)
	assert.True(t, strings.Contains(w.Body.String(), `taskapi_authz_denials_total{operation="update_task_status"} 1`))
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/team-task-api/internal/auth"
	"github.com/yukikurage/team-task-api/internal/metrics"
	"github.com/yukikurage/team-task-api/internal/models"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTokens() *auth.TokenManager {
	return auth.NewTokenManager(auth.TokenConfig{Secret: "test-secret", Issuer: "test", TTL: time.Hour})
}

func newAuthRouter(tokens *auth.TokenManager, user *models.User) *gin.Engine {
	r := gin.New()
	r.Use(sessions.Sessions("test_session", cookie.NewStore([]byte("test-session-secret"))))

	r.POST("/login", func(c *gin.Context) {
		if err := SaveSession(c, user); err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusNoContent)
	})
	r.POST("/logout", func(c *gin.Context) {
		_ = ClearSession(c)
		c.Status(http.StatusNoContent)
	})

	protected := r.Group("/", RequireAuth(tokens))
	protected.GET("/me", func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		userID, idOK := GetUserID(c)
		if !ok || !idOK || principal.UserID != userID {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": userID.String(), "role": principal.Role})
	})
	protected.GET("/admin", RequireGlobalRole(models.RoleSuperAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func testUser(role models.GlobalRole) *models.User {
	return &models.User{ID: uuid.New(), Email: "ada@gmail.com", FirstName: "Ada", LastName: "Lovelace", Role: role}
}

func TestRequireAuth_BearerToken(t *testing.T) {
	tokens := newTokens()
	user := testUser(models.RoleUser)
	router := newAuthRouter(tokens, user)

	token, _, err := tokens.Issue(user)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), user.ID.String())
}

func TestRequireAuth_Rejects(t *testing.T) {
	tokens := newTokens()
	user := testUser(models.RoleUser)
	router := newAuthRouter(tokens, user)

	other := auth.NewTokenManager(auth.TokenConfig{Secret: "other-secret", Issuer: "test"})
	forged, _, err := other.Issue(user)
	require.NoError(t, err)

	headers := map[string]string{
		"no credentials":  "",
		"forged token":    "Bearer " + forged,
		"malformed token": "Bearer not.a.token",
		"wrong scheme":    "Basic dXNlcjpwYXNz",
	}
	for name, header := range headers {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
		})
	}
}

func TestRequireAuth_Session(t *testing.T) {
	user := testUser(models.RoleSuperAdmin)
	router := newAuthRouter(newTokens(), user)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	require.Equal(t, http.StatusNoContent, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), user.ID.String())

	req = httptest.NewRequest(http.MethodPost, "/logout", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	cleared := w.Result().Cookies()
	require.NotEmpty(t, cleared)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	for _, c := range cleared {
		req.AddCookie(c)
	}
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireGlobalRole(t *testing.T) {
	tokens := newTokens()

	tests := []struct {
		role   models.GlobalRole
		status int
	}{
		{models.RoleSuperAdmin, http.StatusOK},
		{models.RoleUser, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			user := testUser(tt.role)
			router := newAuthRouter(tokens, user)
			token, _, err := tokens.Issue(user)
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestRequireUUIDParam(t *testing.T) {
	r := gin.New()
	r.GET("/tasks/:id", RequireUUIDParam("id"), func(c *gin.Context) {
		id, ok := GetPathID(c)
		require.True(t, ok)
		c.String(http.StatusOK, id.String())
	})

	id := uuid.New()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tasks/"+id.String(), nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id.String(), w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tasks/42", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid id")
}

func TestObservability(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := zap.New(core)
	m := metrics.New(prometheus.NewRegistry())

	r := gin.New()
	r.Use(Recovery(log), RequestLogger(log), Metrics(m))
	r.GET("/ok/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok/1", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, float64(1), promtest.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/ok/:id", "200")))
	assert.Equal(t, float64(1), promtest.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, float64(0), promtest.ToFloat64(m.HTTPRequestsInFlight))

	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
	assert.Equal(t, 2, logs.FilterMessage("HTTP request").Len())
}

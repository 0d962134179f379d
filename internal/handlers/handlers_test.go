package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/team-task-api/internal/auth"
	"github.com/yukikurage/team-task-api/internal/constants"
	"github.com/yukikurage/team-task-api/internal/metrics"
	"github.com/yukikurage/team-task-api/internal/middleware"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/repository"
	"github.com/yukikurage/team-task-api/internal/services"
	"github.com/yukikurage/team-task-api/internal/testutil"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type handlerTestEnv struct {
	db          *gorm.DB
	store       *repository.Store
	tokens      *auth.TokenManager
	authService *services.AuthService
	authHandler *AuthHandler
	teamHandler *TeamHandler
	taskHandler *TaskHandler
}

func setupHandlerTestEnv(t *testing.T) handlerTestEnv {
	t.Helper()

	db := testutil.NewDB(t)
	store := repository.NewStore(db)
	m := metrics.New(prometheus.NewRegistry())
	emails := services.NewEmailValidator(nil)
	tokens := auth.NewTokenManager(auth.TokenConfig{Secret: "test-secret", Issuer: "test"})

	authService := services.NewAuthService(store.Users, emails, nil)

	return handlerTestEnv{
		db:          db,
		store:       store,
		tokens:      tokens,
		authService: authService,
		authHandler: NewAuthHandler(authService, tokens),
		teamHandler: NewTeamHandler(services.NewTeamService(store, emails, nil, m)),
		taskHandler: NewTaskHandler(services.NewTaskService(store, services.TaskPolicy{}, nil, m)),
	}
}

// newSessionRouter returns an engine with the cookie session store installed.
func newSessionRouter() *gin.Engine {
	r := gin.New()
	r.Use(sessions.Sessions(constants.SessionCookieName, cookie.NewStore([]byte("secret"))))
	return r
}

// createAuthContext builds a context for user with the optional path ID
// already parsed.
func createAuthContext(method, url string, body interface{}, user *models.User, pathID string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != nil {
		raw, _ := json.Marshal(body)
		req = httptest.NewRequest(method, url, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}

	c, _ := gin.CreateTestContext(w)
	c.Request = req.WithContext(context.Background())
	if user != nil {
		principal := auth.Principal{UserID: user.ID, Email: user.Email, Role: user.Role}
		c.Set(constants.ContextKeyPrincipal, principal)
		c.Set(constants.ContextKeyUserID, principal.UserID)
	}
	if pathID != "" {
		c.Params = gin.Params{{Key: "id", Value: pathID}}
		middleware.RequireUUIDParam("id")(c)
	}
	return c, w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

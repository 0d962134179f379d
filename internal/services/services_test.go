package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/team-task-api/internal/metrics"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/repository"
	"github.com/yukikurage/team-task-api/internal/testutil"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type servicesTestEnv struct {
	ctx         context.Context
	db          *gorm.DB
	store       *repository.Store
	metrics     *metrics.Metrics
	authService *AuthService
	teamService *TeamService
	taskService *TaskService
}

func setupServicesTestEnv(t *testing.T) servicesTestEnv {
	t.Helper()
	return setupServicesTestEnvWithPolicy(t, TaskPolicy{})
}

func setupServicesTestEnvWithPolicy(t *testing.T, policy TaskPolicy) servicesTestEnv {
	t.Helper()

	db := testutil.NewDB(t)
	store := repository.NewStore(db)
	m := metrics.New(prometheus.NewRegistry())
	emails := NewEmailValidator(nil)

	authService := NewAuthService(store.Users, emails, nil)
	authService.hashCost = bcrypt.MinCost

	return servicesTestEnv{
		ctx:         context.Background(),
		db:          db,
		store:       store,
		metrics:     m,
		authService: authService,
		teamService: NewTeamService(store, emails, nil, m),
		taskService: NewTaskService(store, policy, nil, m),
	}
}

func (env servicesTestEnv) user(t *testing.T, email string) *models.User {
	t.Helper()
	return testutil.CreateUser(t, env.db, email, models.RoleUser)
}

func (env servicesTestEnv) superAdmin(t *testing.T, email string) *models.User {
	t.Helper()
	return testutil.CreateUser(t, env.db, email, models.RoleSuperAdmin)
}

func (env servicesTestEnv) membership(t *testing.T, teamID, userID uuid.UUID) *models.TeamMember {
	t.Helper()

	var member models.TeamMember
	err := env.db.Where("team_id = ? AND user_id = ?", teamID, userID).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	require.NoError(t, err)
	return &member
}

package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/repository"
	"github.com/yukikurage/team-task-api/internal/testutil"
)

type authzFixture struct {
	checker  *Checker
	admin    *models.User
	member   *models.User
	outsider *models.User
	root     *models.User
	team     *models.Team
	task     *models.Task
}

func setupAuthzFixture(t *testing.T) authzFixture {
	t.Helper()

	db := testutil.NewDB(t)
	admin := testutil.CreateUser(t, db, "admin@gmail.com", models.RoleUser)
	member := testutil.CreateUser(t, db, "member@gmail.com", models.RoleUser)
	outsider := testutil.CreateUser(t, db, "outsider@gmail.com", models.RoleUser)
	root := testutil.CreateUser(t, db, "root@system.com", models.RoleSuperAdmin)
	team := testutil.CreateTeam(t, db, "Eng", admin)
	testutil.AddMember(t, db, team, member, models.TeamRoleMember)
	task := testutil.CreateTask(t, db, "Ship it", team, member)

	return authzFixture{
		checker:  FromRepositories(repository.NewRepositories(db)),
		admin:    admin,
		member:   member,
		outsider: outsider,
		root:     root,
		team:     team,
		task:     task,
	}
}

func TestChecker_Predicates(t *testing.T) {
	f := setupAuthzFixture(t)
	ctx := context.Background()
	ghost := uuid.New()

	tests := []struct {
		name       string
		userID     uuid.UUID
		member     bool
		teamAdmin  bool
		superAdmin bool
	}{
		{"team admin", f.admin.ID, true, true, false},
		{"plain member", f.member.ID, true, false, false},
		{"outsider", f.outsider.ID, false, false, false},
		{"super admin outside the team", f.root.ID, false, false, true},
		{"unknown user", ghost, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			member, err := f.checker.IsTeamMember(ctx, tt.userID, f.team.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.member, member)

			admin, err := f.checker.IsTeamAdmin(ctx, tt.userID, f.team.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.teamAdmin, admin)

			super, err := f.checker.IsGlobalSuperAdmin(ctx, tt.userID)
			require.NoError(t, err)
			assert.Equal(t, tt.superAdmin, super)

			either, err := f.checker.IsMemberOrSuperAdmin(ctx, tt.userID, f.team.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.member || tt.superAdmin, either)
		})
	}
}

func TestChecker_MembershipIsPerTeam(t *testing.T) {
	f := setupAuthzFixture(t)

	ok, err := f.checker.IsTeamMember(context.Background(), f.admin.ID, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestChecker_CanManageTask(t *testing.T) {
	f := setupAuthzFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		userID  uuid.UUID
		allowed bool
	}{
		{"creator", f.member.ID, true},
		{"team admin", f.admin.ID, true},
		{"super admin", f.root.ID, true},
		{"outsider", f.outsider.ID, false},
		{"unknown user", uuid.New(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := f.checker.CanManageTask(ctx, tt.userID, f.task)
			require.NoError(t, err)
			assert.Equal(t, tt.allowed, ok)
		})
	}
}

type failingTeams struct {
	repository.TeamRepository
	err error
}

func (f failingTeams) FindMember(context.Context, uuid.UUID, uuid.UUID) (*models.TeamMember, error) {
	return nil, f.err
}

type failingUsers struct {
	repository.UserRepository
	err error
}

func (f failingUsers) FindByID(context.Context, uuid.UUID) (*models.User, error) {
	return nil, f.err
}

func TestChecker_PropagatesStoreErrors(t *testing.T) {
	boom := errors.New("connection reset")
	checker := New(failingUsers{err: boom}, failingTeams{err: boom})
	ctx := context.Background()
	task := &models.Task{TeamID: uuid.New(), CreatorID: uuid.New()}

	_, err := checker.IsTeamMember(ctx, uuid.New(), task.TeamID)
	assert.ErrorIs(t, err, boom)

	_, err = checker.IsGlobalSuperAdmin(ctx, uuid.New())
	assert.ErrorIs(t, err, boom)

	_, err = checker.CanManageTask(ctx, uuid.New(), task)
	assert.ErrorIs(t, err, boom)

	// the creator short-circuit needs no lookup
	ok, err := checker.CanManageTask(ctx, task.CreatorID, task)
	require.NoError(t, err)
	assert.True(t, ok)
}

// Package testutil provides an in-memory database and fixtures for tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/team-task-api/internal/database"
	"github.com/yukikurage/team-task-api/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a migrated in-memory SQLite database that is closed when the
// test ends. The pool holds a single connection so every query sees the same
// in-memory schema.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=private", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	require.NoError(t, database.Migrate(db))
	return db
}

// CreateUser inserts a user with a placeholder password hash.
func CreateUser(t *testing.T, db *gorm.DB, email string, role models.GlobalRole) *models.User {
	t.Helper()

	user := &models.User{
		Email:        email,
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: "hashedpassword",
		Role:         role,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateTeam inserts a team with creator as its TeamAdmin.
func CreateTeam(t *testing.T, db *gorm.DB, name string, creator *models.User) *models.Team {
	t.Helper()

	team := &models.Team{
		Name:      name,
		CreatorID: creator.ID,
	}
	require.NoError(t, db.Create(team).Error)
	AddMember(t, db, team, creator, models.TeamRoleAdmin)
	return team
}

// AddMember inserts a membership.
func AddMember(t *testing.T, db *gorm.DB, team *models.Team, user *models.User, role models.TeamRole) {
	t.Helper()

	require.NoError(t, db.Create(&models.TeamMember{
		TeamID:   team.ID,
		UserID:   user.ID,
		Role:     role,
		JoinedAt: time.Now(),
	}).Error)
}

// CreateTask inserts a pending task in team created by creator.
func CreateTask(t *testing.T, db *gorm.DB, title string, team *models.Team, creator *models.User) *models.Task {
	t.Helper()

	task := &models.Task{
		Title:     title,
		TeamID:    team.ID,
		CreatorID: creator.ID,
	}
	require.NoError(t, db.Create(task).Error)
	return task
}

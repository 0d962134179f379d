package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/team-task-api/internal/config"
	"github.com/yukikurage/team-task-api/internal/models"
)

func TestConnectAndMigrate(t *testing.T) {
	cfg := config.DatabaseConfig{
		Driver: "sqlite",
		Name:   filepath.Join(t.TempDir(), "tasks.db"),
	}

	db, err := Connect(cfg, false)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, Migrate(db))
	// a second run finds everything in place
	require.NoError(t, Migrate(db))

	migrator := db.Migrator()
	for _, model := range Models() {
		assert.True(t, migrator.HasTable(model))
	}
	assert.True(t, migrator.HasIndex(&models.Task{}, "idx_tasks_team_created_at"))
	assert.True(t, migrator.HasIndex(&models.TeamMember{}, "idx_team_members_team_role"))
}

func TestDialector_UnsupportedDriver(t *testing.T) {
	_, err := Dialector(config.DatabaseConfig{Driver: "oracle"})
	assert.ErrorContains(t, err, "unsupported database driver")

	_, err = Connect(config.DatabaseConfig{Driver: "oracle"}, false)
	assert.Error(t, err)
}

func TestDialector_Names(t *testing.T) {
	for driver, name := range map[string]string{
		"":         "mysql",
		"mysql":    "mysql",
		"postgres": "postgres",
		"sqlite":   "sqlite",
	} {
		d, err := Dialector(config.DatabaseConfig{Driver: driver})
		require.NoError(t, err)
		assert.Equal(t, name, d.Name())
	}
}

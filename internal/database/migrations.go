package database

import (
	"fmt"

	"github.com/yukikurage/team-task-api/internal/models"
	"gorm.io/gorm"
)

type compositeIndex struct {
	model   interface{}
	name    string
	columns string
}

// indexes that AutoMigrate cannot derive from single-column tags.
var compositeIndexes = []compositeIndex{
	{&models.Task{}, "idx_tasks_team_created_at", "team_id, created_at"},
	{&models.TeamMember{}, "idx_team_members_team_role", "team_id, role"},
}

// AddIndexes adds the composite indexes used by the list queries. Existing
// indexes are left alone.
func AddIndexes(db *gorm.DB) error {
	migrator := db.Migrator()

	for _, idx := range compositeIndexes {
		if migrator.HasIndex(idx.model, idx.name) {
			continue
		}

		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(idx.model); err != nil {
			return fmt.Errorf("failed to parse model for index %s: %w", idx.name, err)
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, stmt.Schema.Table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	return nil
}

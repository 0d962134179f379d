package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/yukikurage/team-task-api/internal/models"
	"gorm.io/gorm"
)

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(ctx context.Context, task *models.Task) error

	// FindByID finds a task by ID
	FindByID(ctx context.Context, id uuid.UUID) (*models.Task, error)

	// ListByTeam lists the tasks of a team, newest first
	ListByTeam(ctx context.Context, teamID uuid.UUID) ([]models.Task, error)

	// Update writes every mutable column of a task
	Update(ctx context.Context, task *models.Task) error

	// Delete permanently removes a task
	Delete(ctx context.Context, id uuid.UUID) error
}

// TeamRepository defines the interface for team and membership data access
type TeamRepository interface {
	// Create creates a new team
	Create(ctx context.Context, team *models.Team) error

	// FindByID finds a team by ID
	FindByID(ctx context.Context, id uuid.UUID) (*models.Team, error)

	// FindByIDs finds all teams with the given IDs
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Team, error)

	// AddMember adds a member to a team
	AddMember(ctx context.Context, member *models.TeamMember) error

	// FindMember finds a specific team member
	FindMember(ctx context.Context, teamID, userID uuid.UUID) (*models.TeamMember, error)

	// ListMembers lists all members of a team
	ListMembers(ctx context.Context, teamID uuid.UUID) ([]models.TeamMember, error)

	// ListMembershipsByUser lists every membership a user holds
	ListMembershipsByUser(ctx context.Context, userID uuid.UUID) ([]models.TeamMember, error)
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// FindByIDs finds all users with the given IDs
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// ExistsWithRole reports whether any user holds the global role
	ExistsWithRole(ctx context.Context, role models.GlobalRole) (bool, error)
}

// Repositories groups the repositories bound to one connection or transaction.
type Repositories struct {
	Users UserRepository
	Teams TeamRepository
	Tasks TaskRepository
}

// NewRepositories binds all repositories to db.
func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Users: NewUserRepository(db),
		Teams: NewTeamRepository(db),
		Tasks: NewTaskRepository(db),
	}
}

// Store is the entry point to persistence. Its embedded repositories run
// outside any transaction; Transaction hands out repositories bound to one.
type Store struct {
	Repositories
	db *gorm.DB
}

// NewStore creates a new Store
func NewStore(db *gorm.DB) *Store {
	return &Store{
		Repositories: NewRepositories(db),
		db:           db,
	}
}

// Transaction runs fn inside a single database transaction. The transaction
// commits when fn returns nil and rolls back otherwise.
func (s *Store) Transaction(ctx context.Context, fn func(repos Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

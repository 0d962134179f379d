// Package authz holds the authorization predicates shared by the team and
// task services. Every resource rule is a composition of the four checks on
// Checker.
package authz

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/repository"
	"gorm.io/gorm"
)

// Checker evaluates the predicates against the repositories it was built
// with. Build it from transaction-bound repositories so the checks read the
// same snapshot as the write that follows.
type Checker struct {
	users repository.UserRepository
	teams repository.TeamRepository
}

// New creates a Checker.
func New(users repository.UserRepository, teams repository.TeamRepository) *Checker {
	return &Checker{users: users, teams: teams}
}

// FromRepositories creates a Checker over a repository set.
func FromRepositories(repos repository.Repositories) *Checker {
	return New(repos.Users, repos.Teams)
}

// IsTeamMember reports whether a membership row exists for the pair.
func (c *Checker) IsTeamMember(ctx context.Context, userID, teamID uuid.UUID) (bool, error) {
	member, err := c.membership(ctx, userID, teamID)
	if err != nil {
		return false, err
	}
	return member != nil, nil
}

// IsTeamAdmin reports whether the user holds TeamAdmin in the team.
func (c *Checker) IsTeamAdmin(ctx context.Context, userID, teamID uuid.UUID) (bool, error) {
	member, err := c.membership(ctx, userID, teamID)
	if err != nil {
		return false, err
	}
	return member != nil && member.Role == models.TeamRoleAdmin, nil
}

// IsGlobalSuperAdmin reports whether the user's global role is SuperAdmin.
// Unknown users are not.
func (c *Checker) IsGlobalSuperAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	user, err := c.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.Role == models.RoleSuperAdmin, nil
}

// CanManageTask reports whether the user created the task, administers its
// team, or is a SuperAdmin.
func (c *Checker) CanManageTask(ctx context.Context, userID uuid.UUID, task *models.Task) (bool, error) {
	if task.CreatorID == userID {
		return true, nil
	}
	ok, err := c.IsTeamAdmin(ctx, userID, task.TeamID)
	if err != nil || ok {
		return ok, err
	}
	return c.IsGlobalSuperAdmin(ctx, userID)
}

// IsMemberOrSuperAdmin is IsTeamMember OR IsGlobalSuperAdmin.
func (c *Checker) IsMemberOrSuperAdmin(ctx context.Context, userID, teamID uuid.UUID) (bool, error) {
	ok, err := c.IsTeamMember(ctx, userID, teamID)
	if err != nil || ok {
		return ok, err
	}
	return c.IsGlobalSuperAdmin(ctx, userID)
}

func (c *Checker) membership(ctx context.Context, userID, teamID uuid.UUID) (*models.TeamMember, error) {
	member, err := c.teams.FindMember(ctx, teamID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return member, nil
}

package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/team-task-api/internal/authz"
	"github.com/yukikurage/team-task-api/internal/constants"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/logger"
	"github.com/yukikurage/team-task-api/internal/metrics"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrTeamNotFound    = apierrors.New(apierrors.ErrNotFound, "team not found")
	ErrTeamNameEmpty   = apierrors.New(apierrors.ErrValidation, "team name cannot be empty")
	ErrTeamNameTooLong = apierrors.New(apierrors.ErrValidation, "team name is too long")
	ErrNotTeamMember   = apierrors.New(apierrors.ErrUnauthorized, "user is not a member of the team")
)

// TeamService provides business logic for teams and memberships.
type TeamService struct {
	store   *repository.Store
	emails  *EmailValidator
	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewTeamService creates a new TeamService.
func NewTeamService(store *repository.Store, emails *EmailValidator, log *zap.Logger, m *metrics.Metrics) *TeamService {
	if emails == nil {
		emails = NewEmailValidator(nil)
	}
	return &TeamService{
		store:   store,
		emails:  emails,
		log:     logger.OrNop(log),
		metrics: m,
	}
}

// CreateTeamInput represents parameters to create a new team.
type CreateTeamInput struct {
	Name        string
	Description string
	CreatorID   uuid.UUID
}

// CreateTeam creates a team and makes its creator the first TeamAdmin in the
// same transaction.
func (s *TeamService) CreateTeam(ctx context.Context, input CreateTeamInput) (*models.Team, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrTeamNameEmpty
	}
	if tooLong(name, constants.MaxNameLength) {
		return nil, ErrTeamNameTooLong
	}

	team := &models.Team{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		CreatorID:   input.CreatorID,
	}

	err := s.store.Transaction(ctx, func(repos repository.Repositories) error {
		if _, err := repos.Users.FindByID(ctx, input.CreatorID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return apierrors.Store("find creator", err)
		}

		if err := repos.Teams.Create(ctx, team); err != nil {
			return apierrors.Store("create team", err)
		}

		admin := &models.TeamMember{
			TeamID:   team.ID,
			UserID:   input.CreatorID,
			Role:     models.TeamRoleAdmin,
			JoinedAt: time.Now(),
		}
		if err := repos.Teams.AddMember(ctx, admin); err != nil {
			return apierrors.Store("add team admin", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.log.Warn("team creator not found", zap.String("user_id", input.CreatorID.String()))
		}
		return nil, err
	}

	s.log.Info("team created",
		zap.String("team_id", team.ID.String()),
		zap.String("user_id", input.CreatorID.String()),
	)
	return team, nil
}

// InviteInput represents an invitation of a registered user into a team.
type InviteInput struct {
	TeamID    uuid.UUID
	Email     string
	InviterID uuid.UUID
}

// InviteUserByEmail adds the user owning Email to the team as a Member.
// It returns false without an error when the team or the invitee does not
// exist, when the inviter is not a TeamAdmin of the team, or when the invitee
// is already a member.
func (s *TeamService) InviteUserByEmail(ctx context.Context, input InviteInput) (bool, error) {
	if err := s.emails.Validate(input.Email); err != nil {
		return false, err
	}

	fields := []zap.Field{
		zap.String("team_id", input.TeamID.String()),
		zap.String("user_id", input.InviterID.String()),
	}

	added := false
	err := s.store.Transaction(ctx, func(repos repository.Repositories) error {
		if _, err := repos.Teams.FindByID(ctx, input.TeamID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				s.log.Warn("invite into unknown team", fields...)
				return nil
			}
			return apierrors.Store("find team", err)
		}

		invitee, err := repos.Users.FindByEmail(ctx, input.Email)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				s.log.Warn("invitee not found", fields...)
				return nil
			}
			return apierrors.Store("find invitee", err)
		}

		checker := authz.FromRepositories(repos)
		isAdmin, err := checker.IsTeamAdmin(ctx, input.InviterID, input.TeamID)
		if err != nil {
			return apierrors.Store("check team admin", err)
		}
		if !isAdmin {
			s.metrics.RecordDenial("invite_user")
			s.log.Warn("inviter is not a team admin", fields...)
			return nil
		}

		isMember, err := checker.IsTeamMember(ctx, invitee.ID, input.TeamID)
		if err != nil {
			return apierrors.Store("check membership", err)
		}
		if isMember {
			s.log.Info("invitee already a member", append(fields, zap.String("invitee_id", invitee.ID.String()))...)
			return nil
		}

		member := &models.TeamMember{
			TeamID:   input.TeamID,
			UserID:   invitee.ID,
			Role:     models.TeamRoleMember,
			JoinedAt: time.Now(),
		}
		if err := repos.Teams.AddMember(ctx, member); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil
			}
			return apierrors.Store("add team member", err)
		}

		added = true
		s.log.Info("user added to team", append(fields, zap.String("invitee_id", invitee.ID.String()))...)
		return nil
	})
	if err != nil {
		return false, err
	}
	return added, nil
}

// TeamWithRole is a team together with the caller's role in it.
type TeamWithRole struct {
	Team models.Team
	Role models.TeamRole
}

// ListTeamsForUser returns the teams the user belongs to.
func (s *TeamService) ListTeamsForUser(ctx context.Context, userID uuid.UUID) ([]TeamWithRole, error) {
	memberships, err := s.store.Teams.ListMembershipsByUser(ctx, userID)
	if err != nil {
		return nil, apierrors.Store("list memberships", err)
	}

	roles := make(map[uuid.UUID]models.TeamRole, len(memberships))
	ids := make([]uuid.UUID, 0, len(memberships))
	for _, m := range memberships {
		roles[m.TeamID] = m.Role
		ids = append(ids, m.TeamID)
	}

	teams, err := s.store.Teams.FindByIDs(ctx, ids)
	if err != nil {
		return nil, apierrors.Store("list teams", err)
	}

	result := make([]TeamWithRole, 0, len(teams))
	for _, t := range teams {
		result = append(result, TeamWithRole{Team: t, Role: roles[t.ID]})
	}
	return result, nil
}

// MemberWithUser is a membership together with the member's account.
type MemberWithUser struct {
	Member models.TeamMember
	User   models.User
}

// ListMembers returns the members of a team. The caller must be a member of
// the team or a SuperAdmin.
func (s *TeamService) ListMembers(ctx context.Context, teamID, userID uuid.UUID) ([]MemberWithUser, error) {
	var result []MemberWithUser
	err := s.store.Transaction(ctx, func(repos repository.Repositories) error {
		if _, err := repos.Teams.FindByID(ctx, teamID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTeamNotFound
			}
			return apierrors.Store("find team", err)
		}

		allowed, err := authz.FromRepositories(repos).IsMemberOrSuperAdmin(ctx, userID, teamID)
		if err != nil {
			return apierrors.Store("check membership", err)
		}
		if !allowed {
			s.metrics.RecordDenial("list_members")
			return ErrNotTeamMember
		}

		members, err := repos.Teams.ListMembers(ctx, teamID)
		if err != nil {
			return apierrors.Store("list members", err)
		}

		ids := make([]uuid.UUID, 0, len(members))
		for _, m := range members {
			ids = append(ids, m.UserID)
		}
		users, err := repos.Users.FindByIDs(ctx, ids)
		if err != nil {
			return apierrors.Store("load members", err)
		}
		byID := make(map[uuid.UUID]models.User, len(users))
		for _, u := range users {
			byID[u.ID] = u
		}

		result = make([]MemberWithUser, 0, len(members))
		for _, m := range members {
			result = append(result, MemberWithUser{Member: m, User: byID[m.UserID]})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/services"
)

// TeamDTO represents a team in API responses
type TeamDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatorID   uuid.UUID `json:"creator_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// TeamWithRoleDTO represents a team with the user's role
type TeamWithRoleDTO struct {
	TeamDTO
	Role models.TeamRole `json:"role"`
}

// TeamMemberDTO represents a member in a team
type TeamMemberDTO struct {
	User     UserDTO         `json:"user"`
	Role     models.TeamRole `json:"role"`
	JoinedAt time.Time       `json:"joined_at"`
}

// ToTeamDTO converts a Team model to TeamDTO
func ToTeamDTO(team models.Team) TeamDTO {
	return TeamDTO{
		ID:          team.ID,
		Name:        team.Name,
		Description: team.Description,
		CreatorID:   team.CreatorID,
		CreatedAt:   team.CreatedAt,
	}
}

// ToTeamWithRoleDTOs converts the teams of a user to DTOs
func ToTeamWithRoleDTOs(teams []services.TeamWithRole) []TeamWithRoleDTO {
	dtos := make([]TeamWithRoleDTO, len(teams))
	for i, t := range teams {
		dtos[i] = TeamWithRoleDTO{
			TeamDTO: ToTeamDTO(t.Team),
			Role:    t.Role,
		}
	}
	return dtos
}

// ToTeamMemberDTOs converts team members to DTOs
func ToTeamMemberDTOs(members []services.MemberWithUser) []TeamMemberDTO {
	dtos := make([]TeamMemberDTO, len(members))
	for i, m := range members {
		dtos[i] = TeamMemberDTO{
			User:     ToUserDTO(m.User),
			Role:     m.Member.Role,
			JoinedAt: m.Member.JoinedAt,
		}
	}
	return dtos
}

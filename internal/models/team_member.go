package models

import (
	"time"

	"github.com/google/uuid"
)

type TeamRole string

const (
	TeamRoleAdmin  TeamRole = "TeamAdmin"
	TeamRoleMember TeamRole = "Member"
)

// TeamMember is the membership of one user in one team.
type TeamMember struct {
	TeamID   uuid.UUID `gorm:"type:char(36);primaryKey" json:"team_id"`
	UserID   uuid.UUID `gorm:"type:char(36);primaryKey;index" json:"user_id"`
	Role     TeamRole  `gorm:"type:varchar(20);not null" json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GlobalRole string

const (
	RoleSuperAdmin GlobalRole = "SuperAdmin"
	RoleUser       GlobalRole = "User"
)

// IsValid reports whether r is one of the two global roles.
func (r GlobalRole) IsValid() bool {
	return r == RoleSuperAdmin || r == RoleUser
}

type User struct {
	ID           uuid.UUID  `gorm:"type:char(36);primaryKey" json:"id"`
	Email        string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	FirstName    string     `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName     string     `gorm:"type:varchar(100);not null" json:"last_name"`
	PasswordHash string     `gorm:"type:varchar(255);not null" json:"-"`
	Role         GlobalRole `gorm:"type:varchar(20);not null" json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}

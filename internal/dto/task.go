package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/team-task-api/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID        uuid.UUID         `json:"id"`
	Email     string            `json:"email"`
	FirstName string            `json:"first_name"`
	LastName  string            `json:"last_name"`
	Role      models.GlobalRole `json:"role"`
}

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID           uuid.UUID         `json:"id"`
	Title        string            `json:"title"`
	Description  *string           `json:"description"`
	Status       models.TaskStatus `json:"status"`
	DueDate      *time.Time        `json:"due_date"`
	TeamID       uuid.UUID         `json:"team_id"`
	CreatorID    uuid.UUID         `json:"creator_id"`
	CreatorEmail string            `json:"creator_email,omitempty"`
	AssigneeID   *uuid.UUID        `json:"assignee_id"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// TaskListResponse represents the tasks of a team
type TaskListResponse struct {
	Tasks []TaskDTO `json:"tasks"`
}

// TokenResponse is returned by a successful login
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      UserDTO   `json:"user"`
}

// Conversion functions

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role,
	}
}

// ToTaskDTO converts a Task model to TaskDTO. creatorEmails may be nil.
func ToTaskDTO(task models.Task, creatorEmails map[uuid.UUID]string) TaskDTO {
	return TaskDTO{
		ID:           task.ID,
		Title:        task.Title,
		Description:  task.Description,
		Status:       task.Status,
		DueDate:      task.DueDate,
		TeamID:       task.TeamID,
		CreatorID:    task.CreatorID,
		CreatorEmail: creatorEmails[task.CreatorID],
		AssigneeID:   task.AssigneeID,
		CreatedAt:    task.CreatedAt,
		UpdatedAt:    task.UpdatedAt,
	}
}

// ToTaskListResponse converts a slice of tasks to TaskListResponse
func ToTaskListResponse(tasks []models.Task, creatorEmails map[uuid.UUID]string) TaskListResponse {
	items := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskDTO(task, creatorEmails)
	}
	return TaskListResponse{Tasks: items}
}

package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yukikurage/team-task-api/internal/dto"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/middleware"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/services"
)

// TaskHandler serves task endpoints.
type TaskHandler struct {
	taskService *services.TaskService
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// ListTasks returns the tasks of a team. Non-members receive an empty list.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	userID, teamID, ok := userAndPathID(c)
	if !ok {
		return
	}

	tasks, err := h.taskService.ListTasksForTeam(c.Request.Context(), teamID, userID)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	emails, err := h.taskService.CreatorEmails(c.Request.Context(), tasks...)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(tasks, emails))
}

// GetTask returns a specific task by ID
func (h *TaskHandler) GetTask(c *gin.Context) {
	userID, taskID, ok := userAndPathID(c)
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(c.Request.Context(), taskID, userID)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	h.respondTask(c, http.StatusOK, task)
}

// CreateTask creates a new task in the team named by the path
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, teamID, ok := userAndPathID(c)
	if !ok {
		return
	}

	type CreateTaskRequest struct {
		Title       string     `json:"title" binding:"required"`
		Description *string    `json:"description"`
		DueDate     *time.Time `json:"due_date"`
		AssigneeID  *string    `json:"assignee_id"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	assigneeID, err := parseOptionalUUID(req.AssigneeID)
	if err != nil {
		apierrors.BadRequest(c, "Invalid assignee_id")
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), services.CreateTaskInput{
		TeamID:      teamID,
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		AssigneeID:  assigneeID,
		CreatorID:   userID,
	})
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	h.respondTask(c, http.StatusCreated, task)
}

// UpdateTask updates the provided fields of a task
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	userID, taskID, ok := userAndPathID(c)
	if !ok {
		return
	}

	type UpdateTaskRequest struct {
		Title       *string    `json:"title"`
		Description *string    `json:"description"`
		DueDate     *time.Time `json:"due_date"`
		AssigneeID  *string    `json:"assignee_id"`
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	assigneeID, err := parseOptionalUUID(req.AssigneeID)
	if err != nil {
		apierrors.BadRequest(c, "Invalid assignee_id")
		return
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), services.UpdateTaskInput{
		TaskID:      taskID,
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		AssigneeID:  assigneeID,
	})
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	h.respondTask(c, http.StatusOK, task)
}

// UpdateTaskStatus sets the status of a task
func (h *TaskHandler) UpdateTaskStatus(c *gin.Context) {
	userID, taskID, ok := userAndPathID(c)
	if !ok {
		return
	}

	type UpdateStatusRequest struct {
		Status string `json:"status" binding:"required"`
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.UpdateTaskStatus(c.Request.Context(), taskID, userID, req.Status)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	h.respondTask(c, http.StatusOK, task)
}

// DeleteTask permanently deletes a task
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	userID, taskID, ok := userAndPathID(c)
	if !ok {
		return
	}

	if _, err := h.taskService.DeleteTask(c.Request.Context(), taskID, userID); err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task deleted successfully",
	})
}

func (h *TaskHandler) respondTask(c *gin.Context, status int, task *models.Task) {
	emails, err := h.taskService.CreatorEmails(c.Request.Context(), *task)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	c.JSON(status, dto.ToTaskDTO(*task, emails))
}

// userAndPathID reads the caller and the path ID, answering the request
// itself when either is missing.
func userAndPathID(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return uuid.Nil, uuid.Nil, false
	}
	id, ok := middleware.GetPathID(c)
	if !ok {
		apierrors.BadRequest(c, "Invalid ID")
		return uuid.Nil, uuid.Nil, false
	}
	return userID, id, true
}

func parseOptionalUUID(raw *string) (*uuid.UUID, error) {
	if raw == nil {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

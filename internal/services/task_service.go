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
	ErrTaskNotFound       = apierrors.New(apierrors.ErrNotFound, "task not found")
	ErrTitleRequired      = apierrors.New(apierrors.ErrValidation, "title is required")
	ErrTitleTooLong       = apierrors.New(apierrors.ErrValidation, "title is too long")
	ErrDescriptionTooLong = apierrors.New(apierrors.ErrValidation, "description is too long")
	ErrInvalidStatus      = apierrors.New(apierrors.ErrValidation, "status must be Pending, InProgress or Completed")
	ErrCannotManageTask   = apierrors.New(apierrors.ErrUnauthorized, "only the task creator, a team admin or a super admin can delete this task")
)

// TaskPolicy holds the switches that tighten task rules.
type TaskPolicy struct {
	// RequireMembershipOnCreate restricts task creation to team members and
	// SuperAdmins.
	RequireMembershipOnCreate bool
}

// TaskService handles task business logic
type TaskService struct {
	store   *repository.Store
	policy  TaskPolicy
	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewTaskService creates a new TaskService
func NewTaskService(store *repository.Store, policy TaskPolicy, log *zap.Logger, m *metrics.Metrics) *TaskService {
	return &TaskService{
		store:   store,
		policy:  policy,
		log:     logger.OrNop(log),
		metrics: m,
	}
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	TeamID      uuid.UUID
	Title       string
	Description *string
	DueDate     *time.Time
	AssigneeID  *uuid.UUID
	CreatorID   uuid.UUID
}

// UpdateTaskInput represents input for updating a task. Nil fields keep
// their stored value.
type UpdateTaskInput struct {
	TaskID      uuid.UUID
	UserID      uuid.UUID
	Title       *string
	Description *string
	DueDate     *time.Time
	AssigneeID  *uuid.UUID
}

// CreateTask creates a task in a team. An assignee that does not resolve to
// a user is dropped and the task is created unassigned.
func (s *TaskService) CreateTask(ctx context.Context, input CreateTaskInput) (*models.Task, error) {
	title, err := validateTitle(input.Title)
	if err != nil {
		return nil, err
	}
	description, err := validateDescription(input.Description)
	if err != nil {
		return nil, err
	}

	task := &models.Task{
		Title:       title,
		Description: description,
		DueDate:     input.DueDate,
		Status:      models.TaskStatusPending,
		TeamID:      input.TeamID,
		CreatorID:   input.CreatorID,
	}

	err = s.store.Transaction(ctx, func(repos repository.Repositories) error {
		if _, err := repos.Teams.FindByID(ctx, input.TeamID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTeamNotFound
			}
			return apierrors.Store("find team", err)
		}
		if _, err := repos.Users.FindByID(ctx, input.CreatorID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return apierrors.Store("find creator", err)
		}

		if s.policy.RequireMembershipOnCreate {
			allowed, err := authz.FromRepositories(repos).IsMemberOrSuperAdmin(ctx, input.CreatorID, input.TeamID)
			if err != nil {
				return apierrors.Store("check membership", err)
			}
			if !allowed {
				s.metrics.RecordDenial("create_task")
				return ErrNotTeamMember
			}
		}

		assignee, err := s.resolveAssignee(ctx, repos, input.AssigneeID)
		if err != nil {
			return err
		}
		task.AssigneeID = assignee

		if err := repos.Tasks.Create(ctx, task); err != nil {
			return apierrors.Store("create task", err)
		}
		return nil
	})
	if err != nil {
		s.logFailure("create task failed", err,
			zap.String("team_id", input.TeamID.String()),
			zap.String("user_id", input.CreatorID.String()),
		)
		return nil, err
	}

	s.metrics.RecordTaskEvent(metrics.EventTaskCreated)
	s.log.Info("task created",
		zap.String("task_id", task.ID.String()),
		zap.String("team_id", task.TeamID.String()),
		zap.String("user_id", task.CreatorID.String()),
	)
	return task, nil
}

// UpdateTask applies a partial update. The caller must be a member of the
// task's team. A provided assignee that does not resolve clears the
// assignment.
func (s *TaskService) UpdateTask(ctx context.Context, input UpdateTaskInput) (*models.Task, error) {
	var title *string
	if input.Title != nil {
		t, err := validateTitle(*input.Title)
		if err != nil {
			return nil, err
		}
		title = &t
	}
	description, err := validateDescription(input.Description)
	if err != nil {
		return nil, err
	}

	var task *models.Task
	err = s.store.Transaction(ctx, func(repos repository.Repositories) error {
		found, err := s.loadTaskForMember(ctx, repos, input.TaskID, input.UserID, "update_task")
		if err != nil {
			return err
		}
		task = found

		if title != nil {
			task.Title = *title
		}
		if description != nil {
			task.Description = description
		}
		if input.DueDate != nil {
			task.DueDate = input.DueDate
		}
		if input.AssigneeID != nil {
			assignee, err := s.resolveAssignee(ctx, repos, input.AssigneeID)
			if err != nil {
				return err
			}
			task.AssigneeID = assignee
		}

		if err := repos.Tasks.Update(ctx, task); err != nil {
			return apierrors.Store("update task", err)
		}
		return nil
	})
	if err != nil {
		s.logFailure("update task failed", err,
			zap.String("task_id", input.TaskID.String()),
			zap.String("user_id", input.UserID.String()),
		)
		return nil, err
	}

	s.metrics.RecordTaskEvent(metrics.EventTaskUpdated)
	s.log.Info("task updated",
		zap.String("task_id", task.ID.String()),
		zap.String("user_id", input.UserID.String()),
	)
	return task, nil
}

// UpdateTaskStatus sets the status of a task. Any known status may be set
// from any other; the caller must be a member of the task's team.
func (s *TaskService) UpdateTaskStatus(ctx context.Context, taskID, userID uuid.UUID, rawStatus string) (*models.Task, error) {
	status, ok := models.ParseTaskStatus(rawStatus)
	if !ok {
		return nil, ErrInvalidStatus
	}

	var task *models.Task
	err := s.store.Transaction(ctx, func(repos repository.Repositories) error {
		found, err := s.loadTaskForMember(ctx, repos, taskID, userID, "update_task_status")
		if err != nil {
			return err
		}
		task = found

		task.Status = status
		if err := repos.Tasks.Update(ctx, task); err != nil {
			return apierrors.Store("update task status", err)
		}
		return nil
	})
	if err != nil {
		s.logFailure("update task status failed", err,
			zap.String("task_id", taskID.String()),
			zap.String("user_id", userID.String()),
		)
		return nil, err
	}

	s.metrics.RecordTaskEvent(metrics.EventTaskStatusChanged)
	s.log.Info("task status updated",
		zap.String("task_id", task.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("status", string(status)),
	)
	return task, nil
}

// DeleteTask permanently removes a task. The caller must be its creator, an
// admin of its team, or a SuperAdmin.
func (s *TaskService) DeleteTask(ctx context.Context, taskID, userID uuid.UUID) (bool, error) {
	err := s.store.Transaction(ctx, func(repos repository.Repositories) error {
		task, err := findTask(ctx, repos, taskID)
		if err != nil {
			return err
		}

		allowed, err := authz.FromRepositories(repos).CanManageTask(ctx, userID, task)
		if err != nil {
			return apierrors.Store("check task permission", err)
		}
		if !allowed {
			s.metrics.RecordDenial("delete_task")
			return ErrCannotManageTask
		}

		if err := repos.Tasks.Delete(ctx, task.ID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTaskNotFound
			}
			return apierrors.Store("delete task", err)
		}
		return nil
	})
	if err != nil {
		s.logFailure("delete task failed", err,
			zap.String("task_id", taskID.String()),
			zap.String("user_id", userID.String()),
		)
		return false, err
	}

	s.metrics.RecordTaskEvent(metrics.EventTaskDeleted)
	s.log.Info("task deleted",
		zap.String("task_id", taskID.String()),
		zap.String("user_id", userID.String()),
	)
	return true, nil
}

// ListTasksForTeam returns the tasks of a team. Callers that are neither
// members nor SuperAdmins get an empty list.
func (s *TaskService) ListTasksForTeam(ctx context.Context, teamID, userID uuid.UUID) ([]models.Task, error) {
	tasks := []models.Task{}
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
			s.metrics.RecordDenial("list_tasks")
			s.log.Warn("task list requested by non member",
				zap.String("team_id", teamID.String()),
				zap.String("user_id", userID.String()),
			)
			return nil
		}

		found, err := repos.Tasks.ListByTeam(ctx, teamID)
		if err != nil {
			return apierrors.Store("list tasks", err)
		}
		tasks = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// GetTask returns a single task to a member of its team or a SuperAdmin.
func (s *TaskService) GetTask(ctx context.Context, taskID, userID uuid.UUID) (*models.Task, error) {
	var task *models.Task
	err := s.store.Transaction(ctx, func(repos repository.Repositories) error {
		found, err := findTask(ctx, repos, taskID)
		if err != nil {
			return err
		}

		allowed, err := authz.FromRepositories(repos).IsMemberOrSuperAdmin(ctx, userID, found.TeamID)
		if err != nil {
			return apierrors.Store("check membership", err)
		}
		if !allowed {
			s.metrics.RecordDenial("get_task")
			return ErrNotTeamMember
		}
		task = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// CreatorEmails maps the creator IDs of tasks to their email addresses.
func (s *TaskService) CreatorEmails(ctx context.Context, tasks ...models.Task) (map[uuid.UUID]string, error) {
	seen := make(map[uuid.UUID]struct{}, len(tasks))
	ids := make([]uuid.UUID, 0, len(tasks))
	for _, t := range tasks {
		if _, ok := seen[t.CreatorID]; ok {
			continue
		}
		seen[t.CreatorID] = struct{}{}
		ids = append(ids, t.CreatorID)
	}

	users, err := s.store.Users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, apierrors.Store("load task creators", err)
	}
	emails := make(map[uuid.UUID]string, len(users))
	for _, u := range users {
		emails[u.ID] = u.Email
	}
	return emails, nil
}

func (s *TaskService) loadTaskForMember(ctx context.Context, repos repository.Repositories, taskID, userID uuid.UUID, operation string) (*models.Task, error) {
	task, err := findTask(ctx, repos, taskID)
	if err != nil {
		return nil, err
	}

	isMember, err := authz.FromRepositories(repos).IsTeamMember(ctx, userID, task.TeamID)
	if err != nil {
		return nil, apierrors.Store("check membership", err)
	}
	if !isMember {
		s.metrics.RecordDenial(operation)
		return nil, ErrNotTeamMember
	}
	return task, nil
}

// resolveAssignee returns id when it names an existing user and nil otherwise.
func (s *TaskService) resolveAssignee(ctx context.Context, repos repository.Repositories, id *uuid.UUID) (*uuid.UUID, error) {
	if id == nil {
		return nil, nil
	}
	user, err := repos.Users.FindByID(ctx, *id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.metrics.RecordTaskEvent(metrics.EventAssigneeDropped)
			s.log.Warn("assignee not found, assignment dropped", zap.String("assignee_id", id.String()))
			return nil, nil
		}
		return nil, apierrors.Store("find assignee", err)
	}
	assignee := user.ID
	return &assignee, nil
}

func (s *TaskService) logFailure(msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))
	if errors.Is(err, apierrors.ErrStore) {
		s.log.Error(msg, fields...)
		return
	}
	s.log.Warn(msg, fields...)
}

func findTask(ctx context.Context, repos repository.Repositories, taskID uuid.UUID) (*models.Task, error) {
	task, err := repos.Tasks.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, apierrors.Store("find task", err)
	}
	return task, nil
}

func validateTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", ErrTitleRequired
	}
	if tooLong(title, constants.MaxTitleLength) {
		return "", ErrTitleTooLong
	}
	return title, nil
}

func validateDescription(raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	description := strings.TrimSpace(*raw)
	if tooLong(description, constants.MaxDescriptionLength) {
		return nil, ErrDescriptionTooLong
	}
	return &description, nil
}

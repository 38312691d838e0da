package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"timesheet/internal/authz"
	"timesheet/internal/logger"
	"timesheet/internal/models/task"
	"timesheet/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// здесь CRUD задач, нужный вокруг таймера: создание, назначение, приёмка

type CreateTaskInput struct {
	ProjectID     uuid.UUID
	Title         string
	Description   string
	AssignedTo    *int64
	EstimatedTime float64
}

type TaskService struct {
	repo TaskRepository
}

func NewTaskService(repo TaskRepository) *TaskService {
	return &TaskService{
		repo: repo,
	}
}

func (s *TaskService) HealthCheck(ctx context.Context) error {
	if err := s.repo.HealthCheck(ctx); err != nil {
		return fmt.Errorf("проверка здоровья сервиса: %w", err)
	}
	return nil
}

func (s *TaskService) CreateTask(ctx context.Context, user task.User, input CreateTaskInput) (*task.Task, error) {
	if err := authz.RequireRole(user, task.RoleManager, task.RoleAdmin); err != nil {
		return nil, NewBusinessError(CodeForbidden, "создавать задачи может только менеджер или администратор",
			ToDetail("user_id", user.ID))
	}
	if input.ProjectID == uuid.Nil {
		return nil, NewValidationError("projectId", "обязательное поле")
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, NewValidationError("title", "название не может быть пустым")
	}
	if input.EstimatedTime <= 0 {
		return nil, NewValidationError("estimatedTime", "оценка должна быть положительной")
	}

	t := task.New(input.ProjectID, strings.TrimSpace(input.Title), input.EstimatedTime,
		task.WithDescription(input.Description),
		task.WithAssignee(input.AssignedTo))

	if err := s.repo.Create(ctx, t); err != nil {
		logger.Error("Service: Не удалось создать задачу", err, zap.String("task_id", t.UUID.String()))
		return nil, NewStorageFailure("создание задачи", err)
	}

	logger.Info("Service: Задача создана",
		zap.String("task_id", t.UUID.String()),
		zap.Int64("created_by", user.ID))
	return t, nil
}

func (s *TaskService) GetTask(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Info("Service: Задача не найдена", zap.String("target_id", id.String()))
			return nil, NewNotFound(id)
		}
		return nil, NewStorageFailure("получение задачи", err)
	}
	return t, nil
}

func (s *TaskService) ListTasks(ctx context.Context, options ...ListOption) ([]*task.Task, error) {
	filter := buildFilter(options...)
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, NewValidationError("status", fmt.Sprintf("неизвестный статус %q", filter.Status))
	}

	tasks, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, NewStorageFailure("получение задач", err)
	}
	return tasks, nil
}

// AssignTask меняет исполнителя, пока работа не началась. Приёмка сбрасывается.
func (s *TaskService) AssignTask(ctx context.Context, user task.User, id uuid.UUID, assignee int64) (*task.Task, error) {
	if err := authz.RequireRole(user, task.RoleManager, task.RoleAdmin); err != nil {
		return nil, NewBusinessError(CodeForbidden, "назначать задачи может только менеджер или администратор",
			ToDetail("user_id", user.ID))
	}
	if assignee <= 0 {
		return nil, NewValidationError("assignedTo", "идентификатор пользователя должен быть положительным")
	}

	return s.modify(ctx, id, func(t *task.Task) error {
		if t.Status != task.StatusPending {
			return NewBusinessError(CodeInvalidTransition,
				fmt.Sprintf("нельзя переназначить задачу в статусе %q", t.Status),
				ToDetail("current_status", t.Status))
		}
		t.AssignedTo = &assignee
		t.AcceptanceStatus = task.AcceptancePending
		return nil
	})
}

func (s *TaskService) AcceptTask(ctx context.Context, user task.User, id uuid.UUID) (*task.Task, error) {
	return s.decide(ctx, user, id, task.AcceptanceAccepted)
}

func (s *TaskService) RejectTask(ctx context.Context, user task.User, id uuid.UUID) (*task.Task, error) {
	return s.decide(ctx, user, id, task.AcceptanceRejected)
}

func (s *TaskService) decide(ctx context.Context, user task.User, id uuid.UUID, decision task.AcceptanceStatus) (*task.Task, error) {
	return s.modify(ctx, id, func(t *task.Task) error {
		if !t.IsAssignedTo(user.ID) {
			return NewBusinessError(CodeForbidden, "принять или отклонить задачу может только исполнитель",
				ToDetail("user_id", user.ID))
		}
		if t.AcceptanceStatus != task.AcceptancePending {
			return NewBusinessError(CodeInvalidTransition,
				fmt.Sprintf("решение по задаче уже принято: %q", t.AcceptanceStatus),
				ToDetail("acceptance_status", t.AcceptanceStatus))
		}
		t.AcceptanceStatus = decision
		return nil
	})
}

func (s *TaskService) modify(ctx context.Context, id uuid.UUID, change func(*task.Task) error) (*task.Task, error) {
	t, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := change(t); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, t); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, NewNotFound(id)
		case errors.Is(err, repository.ErrVersionConflict):
			logger.Warn("Service: Конфликт версий", zap.String("task_id", id.String()), zap.Int("version", t.Version))
			return nil, NewVersionConflict(id, err)
		default:
			return nil, NewStorageFailure("обновление задачи", err)
		}
	}

	return t, nil
}

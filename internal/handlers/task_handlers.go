package handlers

import (
	"context"
	"net/http"
	"time"

	"timesheet/internal/handlers/dto"
	"timesheet/internal/logger"
	"timesheet/internal/models/task"
	"timesheet/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TaskHandler struct {
	TaskService TaskService
	now         func() time.Time
}

func NewTaskHandler(taskService TaskService) TaskHandler {
	return TaskHandler{
		TaskService: taskService,
		now:         time.Now,
	}
}

func (s *TaskHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP: Health check")

	if err := s.TaskService.HealthCheck(r.Context()); err != nil {
		logger.Error("HTTP: Сервис недоступен", err)
		responseWithJSON(w, http.StatusServiceUnavailable,
			toPayload("status", "unavailable"),
			toPayload("service", "timesheet"))
		return
	}

	responseWithJSON(w, http.StatusOK,
		toPayload("status", "ok"),
		toPayload("service", "timesheet"))
}

func (s *TaskHandler) PostTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var request dto.CreateTaskRequest
	if !decodeJSON(w, r, &request, false) {
		return
	}

	logger.Info("HTTP: Вызов сервиса создания задач")
	created, err := s.TaskService.CreateTask(r.Context(), user, service.CreateTaskInput{
		ProjectID:     request.ProjectID,
		Title:         request.Title,
		Description:   request.Description,
		AssignedTo:    request.AssignedTo,
		EstimatedTime: request.EstimatedTime,
	})
	if err != nil {
		handleServiceError(w, r, err, "create_task")
		return
	}

	logger.Info("HTTP_OUT: Задача создана",
		zap.String("task_id", created.UUID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	responseWithJSON(w, http.StatusCreated,
		toPayload("message", "Задача создана"),
		toPayload("task", dto.FromTask(created, s.now())))
}

func (s *TaskHandler) GetTaskByID(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := parseTaskID(w, r)
	if !ok {
		return
	}

	logger.Info("HTTP: Вызов сервиса для получения задачи")

	found, err := s.TaskService.GetTask(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err, "get_task")
		return
	}

	logger.Info("HTTP_OUT: Задача получена",
		zap.String("task_id", found.UUID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithData(w, http.StatusOK, dto.FromTask(found, s.now()))
}

func (s *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var options []service.ListOption

	assignedTo, set, ok := queryInt(w, r, "assignedTo", 1)
	if !ok {
		return
	}
	if set {
		options = append(options, service.WithAssignedTo(&assignedTo))
	}

	if status := r.URL.Query().Get("status"); status != "" {
		options = append(options, service.WithStatus(task.Status(status)))
	}

	page, _, ok := queryInt(w, r, "page", 1)
	if !ok {
		return
	}
	limit, _, ok := queryInt(w, r, "limit", 1)
	if !ok {
		return
	}
	options = append(options, service.WithPage(int(page), int(limit)))

	tasks, err := s.TaskService.ListTasks(r.Context(), options...)
	if err != nil {
		handleServiceError(w, r, err, "list_tasks")
		return
	}

	logger.Info("HTTP_OUT: Задачи получены",
		zap.Int("count", len(tasks)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithData(w, http.StatusOK, dto.FromTaskList(tasks, s.now()))
}

func (s *TaskHandler) AssignTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := parseTaskID(w, r)
	if !ok {
		return
	}
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var request dto.AssignTaskRequest
	if !decodeJSON(w, r, &request, false) {
		return
	}

	updated, err := s.TaskService.AssignTask(r.Context(), user, id, request.AssignedTo)
	if err != nil {
		handleServiceError(w, r, err, "assign_task")
		return
	}

	logger.Info("HTTP_OUT: Исполнитель назначен",
		zap.String("task_id", id.String()),
		zap.Int64("assigned_to", request.AssignedTo),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK,
		toPayload("message", "Исполнитель назначен"),
		toPayload("task", dto.FromTask(updated, s.now())))
}

func (s *TaskHandler) AcceptTask(w http.ResponseWriter, r *http.Request) {
	s.decide(w, r, s.TaskService.AcceptTask, "Задача принята")
}

func (s *TaskHandler) RejectTask(w http.ResponseWriter, r *http.Request) {
	s.decide(w, r, s.TaskService.RejectTask, "Задача отклонена")
}

func (s *TaskHandler) decide(w http.ResponseWriter, r *http.Request, decision func(context.Context, task.User, uuid.UUID) (*task.Task, error), message string) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := parseTaskID(w, r)
	if !ok {
		return
	}
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	updated, err := decision(r.Context(), user, id)
	if err != nil {
		handleServiceError(w, r, err, "decide_task")
		return
	}

	logger.Info("HTTP_OUT: "+message,
		zap.String("task_id", id.String()),
		zap.String("acceptance_status", string(updated.AcceptanceStatus)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK,
		toPayload("message", message),
		toPayload("task", dto.FromTask(updated, s.now())))
}

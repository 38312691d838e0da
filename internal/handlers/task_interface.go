package handlers

import (
	"context"

	"timesheet/internal/models/task"
	"timesheet/internal/service"

	"github.com/google/uuid"
)

type TimerService interface {
	Start(context.Context, uuid.UUID, task.User, string) (*task.Task, error)
	Pause(context.Context, uuid.UUID, task.User, string) (*task.Task, error)
	Resume(context.Context, uuid.UUID, task.User, string) (*task.Task, error)
	Stop(context.Context, uuid.UUID, task.User, string) (*task.Task, error)
	Complete(context.Context, uuid.UUID, task.User, string) (*task.Task, error)
	ListLogs(context.Context, uuid.UUID) ([]*task.TimeLogEntry, error)
}

type TaskService interface {
	HealthCheck(context.Context) error
	CreateTask(context.Context, task.User, service.CreateTaskInput) (*task.Task, error)
	GetTask(context.Context, uuid.UUID) (*task.Task, error)
	ListTasks(context.Context, ...service.ListOption) ([]*task.Task, error)
	AssignTask(context.Context, task.User, uuid.UUID, int64) (*task.Task, error)
	AcceptTask(context.Context, task.User, uuid.UUID) (*task.Task, error)
	RejectTask(context.Context, task.User, uuid.UUID) (*task.Task, error)
}

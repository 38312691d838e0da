package service

import (
	"context"
	"time"

	"timesheet/internal/models/task"
	"timesheet/internal/repository"

	"github.com/google/uuid"
)

type TaskRepository interface {
	HealthCheck(context.Context) error
	Create(context.Context, *task.Task) error
	Update(context.Context, *task.Task) error
	GetByID(context.Context, uuid.UUID) (*task.Task, error)
	List(context.Context, task.Filter) ([]*task.Task, error)
	GetRunningStartedBefore(context.Context, time.Time, int) ([]*task.Task, error)

	// Transition выполняет чтение-проверку-запись задачи и добавление записи
	// журнала как одну атомарную операцию над строкой задачи.
	Transition(context.Context, uuid.UUID, repository.TransitionFunc) (*task.Task, error)
	ListLogs(context.Context, uuid.UUID) ([]*task.TimeLogEntry, error)
}

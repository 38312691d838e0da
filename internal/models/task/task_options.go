package task

import (
	"time"

	"github.com/google/uuid"
)

type TaskOption func(*Task)

// New создаёт задачу в начальном состоянии: pending, таймер обнулён.
func New(projectID uuid.UUID, title string, estimatedTime float64, options ...TaskOption) *Task {
	t := &Task{
		UUID:             uuid.New(),
		ProjectID:        projectID,
		Title:            title,
		EstimatedTime:    estimatedTime,
		Status:           StatusPending,
		AcceptanceStatus: AcceptancePending,
		CreatedAt:        time.Now().UTC(),
		Version:          1,
	}
	for _, opt := range options {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

func WithID(id uuid.UUID) TaskOption {
	if id == uuid.Nil {
		return nil
	}
	return func(task *Task) {
		task.UUID = id
	}
}

func WithDescription(description string) TaskOption {
	if description == "" {
		return nil
	}
	return func(task *Task) {
		task.Description = description
	}
}

func WithAssignee(userID *int64) TaskOption {
	if userID == nil {
		return nil
	}
	id := *userID
	return func(task *Task) {
		task.AssignedTo = &id
	}
}

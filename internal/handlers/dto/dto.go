package dto

import (
	"time"

	"timesheet/internal/models/task"

	"github.com/google/uuid"
)

// TransitionRequest тело запросов start/pause/resume/stop/complete, может отсутствовать
type TransitionRequest struct {
	Note string `json:"note"`
}

type CreateTaskRequest struct {
	ProjectID     uuid.UUID `json:"projectId"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	AssignedTo    *int64    `json:"assignedTo"`
	EstimatedTime float64   `json:"estimatedTime"`
}

type AssignTaskRequest struct {
	AssignedTo int64 `json:"assignedTo"`
}

type TaskResponse struct {
	UUID                 uuid.UUID  `json:"id"`
	ProjectID            uuid.UUID  `json:"projectId"`
	Title                string     `json:"title"`
	Description          string     `json:"description"`
	AssignedTo           *int64     `json:"assignedTo"`
	EstimatedTime        float64    `json:"estimatedTime"`
	Status               string     `json:"status"`
	AcceptanceStatus     string     `json:"acceptanceStatus"`
	TotalTrackedSeconds  int64      `json:"totalTrackedSeconds"`
	TrackedSeconds       int64      `json:"trackedSeconds"`
	ActiveTimerStartedAt *time.Time `json:"activeTimerStartedAt"`
	LastPausedAt         *time.Time `json:"lastPausedAt"`
	StartedAt            *time.Time `json:"startedAt"`
	CompletedAt          *time.Time `json:"completedAt"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            *time.Time `json:"updatedAt,omitempty"`
	Version              int        `json:"version"`
}

// FromTask переводит задачу в ответ API. TrackedSeconds включает ещё идущий интервал на момент now.
func FromTask(t *task.Task, now time.Time) TaskResponse {
	return TaskResponse{
		UUID:                 t.UUID,
		ProjectID:            t.ProjectID,
		Title:                t.Title,
		Description:          t.Description,
		AssignedTo:           t.AssignedTo,
		EstimatedTime:        t.EstimatedTime,
		Status:               string(t.Status),
		AcceptanceStatus:     string(t.AcceptanceStatus),
		TotalTrackedSeconds:  t.TotalTrackedSeconds,
		TrackedSeconds:       t.TrackedSecondsAt(now),
		ActiveTimerStartedAt: t.ActiveTimerStartedAt,
		LastPausedAt:         t.LastPausedAt,
		StartedAt:            t.StartedAt,
		CompletedAt:          t.CompletedAt,
		CreatedAt:            t.CreatedAt,
		UpdatedAt:            t.UpdatedAt,
		Version:              t.Version,
	}
}

func FromTaskList(tasks []*task.Task, now time.Time) []TaskResponse {
	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = FromTask(t, now)
	}
	return result
}

type TimeLogResponse struct {
	UUID            uuid.UUID `json:"id"`
	TaskID          uuid.UUID `json:"taskId"`
	UserID          int64     `json:"userId"`
	Action          string    `json:"action"`
	OccurredAt      time.Time `json:"occurredAt"`
	Note            string    `json:"note,omitempty"`
	ResultingStatus string    `json:"resultingStatus"`
}

func FromTimeLog(e *task.TimeLogEntry) TimeLogResponse {
	return TimeLogResponse{
		UUID:            e.UUID,
		TaskID:          e.TaskID,
		UserID:          e.UserID,
		Action:          string(e.Action),
		OccurredAt:      e.OccurredAt,
		Note:            e.Note,
		ResultingStatus: string(e.ResultingStatus),
	}
}

func FromTimeLogList(entries []*task.TimeLogEntry) []TimeLogResponse {
	result := make([]TimeLogResponse, len(entries))
	for i, e := range entries {
		result[i] = FromTimeLog(e)
	}
	return result
}

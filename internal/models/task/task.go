package task

import (
	"time"

	"github.com/google/uuid"
)

type Task struct {
	UUID                 uuid.UUID        `json:"id" db:"uuid"`
	ProjectID            uuid.UUID        `json:"project_id" db:"project_id"`
	Title                string           `json:"title" db:"title"`
	Description          string           `json:"description" db:"description"`
	AssignedTo           *int64           `json:"assigned_to,omitempty" db:"assigned_to"`
	EstimatedTime        float64          `json:"estimated_time" db:"estimated_time"`
	Status               Status           `json:"status" db:"status"`
	AcceptanceStatus     AcceptanceStatus `json:"acceptance_status" db:"acceptance_status"`
	TotalTrackedSeconds  int64            `json:"total_tracked_seconds" db:"total_tracked_seconds"`
	ActiveTimerStartedAt *time.Time       `json:"active_timer_started_at,omitempty" db:"active_timer_started_at"`
	LastPausedAt         *time.Time       `json:"last_paused_at,omitempty" db:"last_paused_at"`
	StartedAt            *time.Time       `json:"started_at,omitempty" db:"started_at"`
	CompletedAt          *time.Time       `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt            time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt            *time.Time       `json:"updated_at,omitempty" db:"updated_at,omitempty"`
	Version              int              `json:"version" db:"version"`
}

type Status string
type AcceptanceStatus string

const StatusPending Status = "pending"
const StatusInProgress Status = "in_progress"
const StatusPaused Status = "paused"
const StatusCompleted Status = "completed"
const StatusCancelled Status = "cancelled"

const AcceptancePending AcceptanceStatus = "pending"
const AcceptanceAccepted AcceptanceStatus = "accepted"
const AcceptanceRejected AcceptanceStatus = "rejected"

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusPaused, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func (a AcceptanceStatus) Valid() bool {
	switch a {
	case AcceptancePending, AcceptanceAccepted, AcceptanceRejected:
		return true
	}
	return false
}

// IsAssignedTo сообщает, назначена ли задача пользователю userID.
// Неназначенная задача не принадлежит никому.
func (t *Task) IsAssignedTo(userID int64) bool {
	return t.AssignedTo != nil && *t.AssignedTo == userID
}

// TimerRunning сообщает, идёт ли таймер. Он может идти только в статусе in_progress.
func (t *Task) TimerRunning() bool {
	return t.Status == StatusInProgress && t.ActiveTimerStartedAt != nil
}

// TrackedSecondsAt возвращает накопленное время с учётом ещё не сброшенного
// активного интервала на момент now.
func (t *Task) TrackedSecondsAt(now time.Time) int64 {
	total := t.TotalTrackedSeconds
	if t.TimerRunning() {
		total += ElapsedSeconds(*t.ActiveTimerStartedAt, now)
	}
	return total
}

// ElapsedSeconds возвращает целые секунды между from и to, отрицательное значение
// (рассинхрон часов) приводится к нулю.
func ElapsedSeconds(from, to time.Time) int64 {
	elapsed := int64(to.Sub(from) / time.Second)
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// Clone возвращает глубокую копию, хранилища никогда не отдают свои указатели наружу.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.AssignedTo = cloneInt64(t.AssignedTo)
	c.ActiveTimerStartedAt = cloneTime(t.ActiveTimerStartedAt)
	c.LastPausedAt = cloneTime(t.LastPausedAt)
	c.StartedAt = cloneTime(t.StartedAt)
	c.CompletedAt = cloneTime(t.CompletedAt)
	c.UpdatedAt = cloneTime(t.UpdatedAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneInt64(i *int64) *int64 {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}

// Filter задаёт параметры выборки списка задач
type Filter struct {
	AssignedTo *int64
	Status     Status
	Page       int
	Limit      int
}

func (f Filter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

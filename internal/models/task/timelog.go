package task

import (
	"time"

	"github.com/google/uuid"
)

type Action string

const ActionStart Action = "start"
const ActionPause Action = "pause"
const ActionResume Action = "resume"
const ActionStop Action = "stop"
const ActionComplete Action = "complete"

// TimeLogEntry запись журнала переходов таймера. Создаётся один раз на
// каждый успешный переход и больше не изменяется.
type TimeLogEntry struct {
	UUID            uuid.UUID `json:"id" db:"uuid"`
	TaskID          uuid.UUID `json:"task_id" db:"task_id"`
	UserID          int64     `json:"user_id" db:"user_id"`
	Action          Action    `json:"action" db:"action"`
	OccurredAt      time.Time `json:"occurred_at" db:"occurred_at"`
	Note            string    `json:"note,omitempty" db:"note"`
	ResultingStatus Status    `json:"resulting_status" db:"resulting_status"`
}

// NewTimeLogEntry использует UUIDv7, чтобы идентификаторы упорядочивались по времени.
func NewTimeLogEntry(taskID uuid.UUID, userID int64, action Action, occurredAt time.Time, note string, resulting Status) *TimeLogEntry {
	return &TimeLogEntry{
		UUID:            uuid.Must(uuid.NewV7()),
		TaskID:          taskID,
		UserID:          userID,
		Action:          action,
		OccurredAt:      occurredAt,
		Note:            note,
		ResultingStatus: resulting,
	}
}

func (e *TimeLogEntry) Clone() *TimeLogEntry {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}

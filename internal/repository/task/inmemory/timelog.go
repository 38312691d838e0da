package inmemory

import (
	"sort"
	"sync"

	"timesheet/internal/models/task"

	"github.com/google/uuid"
)

// TimeLog журнал переходов таймера, только добавление.
type TimeLog struct {
	mtx     sync.RWMutex
	entries map[uuid.UUID][]*task.TimeLogEntry
}

func NewTimeLog() *TimeLog {
	return &TimeLog{entries: make(map[uuid.UUID][]*task.TimeLogEntry)}
}

func (l *TimeLog) Append(entry *task.TimeLogEntry) {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	l.entries[entry.TaskID] = append(l.entries[entry.TaskID], entry.Clone())
}

func (l *TimeLog) ListForTask(taskID uuid.UUID) []*task.TimeLogEntry {
	l.mtx.RLock()
	defer l.mtx.RUnlock()

	stored := l.entries[taskID]
	res := make([]*task.TimeLogEntry, 0, len(stored))
	for _, e := range stored {
		res = append(res, e.Clone())
	}

	sort.SliceStable(res, func(i, j int) bool {
		return res[i].OccurredAt.Before(res[j].OccurredAt)
	})
	return res
}

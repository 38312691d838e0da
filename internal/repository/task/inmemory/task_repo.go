package inmemory

import (
	"context"
	"sync"
	"time"

	"timesheet/internal/logger"
	"timesheet/internal/models/task"
	repo "timesheet/internal/repository"

	"github.com/google/uuid"
)

type TaskStorage struct {
	storage map[uuid.UUID]*task.Task
	mtx     *sync.RWMutex
	ids     []uuid.UUID

	// блокировки отдельных задач: переходы разных задач идут параллельно
	locks map[uuid.UUID]*sync.Mutex
	logs  *TimeLog
}

func NewTaskStorage() *TaskStorage {
	return &TaskStorage{
		storage: make(map[uuid.UUID]*task.Task),
		mtx:     &sync.RWMutex{},
		ids:     []uuid.UUID{},
		locks:   make(map[uuid.UUID]*sync.Mutex),
		logs:    NewTimeLog(),
	}
}

func (s *TaskStorage) HealthCheck(ctx context.Context) error {
	logger.Debug("Repository: Соединение стабильно")
	return nil
}

// lockFor отдаёт блокировку существующей задачи. Блокировка создаётся в Create,
// поэтому запросы к несуществующим id не оставляют следов в памяти.
func (s *TaskStorage) lockFor(id uuid.UUID) (*sync.Mutex, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	lock, ok := s.locks[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return lock, nil
}

func (s *TaskStorage) Create(ctx context.Context, taskToCreate *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, exists := s.storage[taskToCreate.UUID]; exists {
		return repo.ErrVersionConflict
	}
	if taskToCreate.CreatedAt.IsZero() {
		taskToCreate.CreatedAt = time.Now().UTC()
	}
	taskToCreate.Version = 1

	s.storage[taskToCreate.UUID] = taskToCreate.Clone()
	s.locks[taskToCreate.UUID] = &sync.Mutex{}
	s.ids = append(s.ids, taskToCreate.UUID)
	return nil
}

// Update меняет только описательные поля; поля таймера принадлежат Transition.
func (s *TaskStorage) Update(ctx context.Context, taskToUpdate *task.Task) error {
	lock, err := s.lockFor(taskToUpdate.UUID)
	if err != nil {
		return err
	}
	lock.Lock()
	defer lock.Unlock()

	s.mtx.Lock()
	defer s.mtx.Unlock()

	existing, ok := s.storage[taskToUpdate.UUID]
	if !ok {
		return repo.ErrNotFound
	}
	if existing.Version != taskToUpdate.Version {
		return repo.ErrVersionConflict
	}

	now := time.Now().UTC()
	existing.Title = taskToUpdate.Title
	existing.Description = taskToUpdate.Description
	existing.AssignedTo = taskToUpdate.Clone().AssignedTo
	existing.EstimatedTime = taskToUpdate.EstimatedTime
	existing.AcceptanceStatus = taskToUpdate.AcceptanceStatus
	existing.UpdatedAt = &now
	existing.Version++

	taskToUpdate.UpdatedAt = &now
	taskToUpdate.Version = existing.Version
	return nil
}

func (s *TaskStorage) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	taskToGet, ok := s.storage[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return taskToGet.Clone(), nil
}

func (s *TaskStorage) Transition(ctx context.Context, id uuid.UUID, fn repo.TransitionFunc) (*task.Task, error) {
	lock, err := s.lockFor(id)
	if err != nil {
		return nil, err
	}
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	readVersion := current.Version

	entry, err := fn(current)
	if err != nil {
		return nil, err
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	stored, ok := s.storage[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	if stored.Version != readVersion {
		return nil, repo.ErrVersionConflict
	}

	now := time.Now().UTC()
	current.UpdatedAt = &now
	current.Version = readVersion + 1
	s.storage[id] = current.Clone()
	if entry != nil {
		s.logs.Append(entry)
	}

	return current, nil
}

func (s *TaskStorage) ListLogs(ctx context.Context, taskID uuid.UUID) ([]*task.TimeLogEntry, error) {
	return s.logs.ListForTask(taskID), nil
}

func (s *TaskStorage) List(ctx context.Context, filter task.Filter) ([]*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []*task.Task{}
	skip := filter.Offset()

	for _, id := range s.ids {
		if filter.Limit > 0 && len(res) >= filter.Limit {
			break
		}

		t := s.storage[id]
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.AssignedTo != nil && !t.IsAssignedTo(*filter.AssignedTo) {
			continue
		}
		if skip > 0 {
			skip--
			continue
		}

		res = append(res, t.Clone())
	}

	return res, nil
}

// задачи с таймером, запущенным раньше before
func (s *TaskStorage) GetRunningStartedBefore(ctx context.Context, before time.Time, limit int) ([]*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	var tasks []*task.Task
	for _, id := range s.ids {
		if limit > 0 && len(tasks) >= limit {
			break
		}

		t := s.storage[id]
		if t.TimerRunning() && t.ActiveTimerStartedAt.Before(before) {
			tasks = append(tasks, t.Clone())
		}
	}

	return tasks, nil
}

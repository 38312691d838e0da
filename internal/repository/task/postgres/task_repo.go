package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"timesheet/internal/logger"
	"timesheet/internal/models/task"
	repo "timesheet/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const uniqueViolation = "23505"

const taskColumns = `uuid,
				project_id,
				title,
				description,
				assigned_to,
				estimated_time,
				status,
				acceptance_status,
				total_tracked_seconds,
				active_timer_started_at,
				last_paused_at,
				started_at,
				completed_at,
				created_at,
				updated_at,
				version`

type Config struct {
	URL         string
	MaxConns    int32
	MinConns    int32
	IdleTimeout time.Duration
}

type Storage struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg Config) (*Storage, error) {
	config, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		logger.Error("Repository: Ошибка загрузки конфига", err)
		return nil, fmt.Errorf("загрузка конфига: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnIdleTime = time.Minute * 5
	if cfg.MaxConns > 0 {
		config.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		config.MinConns = cfg.MinConns
	}
	if cfg.IdleTimeout > 0 {
		config.MaxConnIdleTime = cfg.IdleTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		logger.Error("Repository: Ошибка создания пула", err)
		return nil, fmt.Errorf("создание пула: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		logger.Error("Repository: Неудачная проверка ping", err)
		return nil, fmt.Errorf("проверка соединения ping: %w", err)
	}

	logger.Info("Repository: Успешное создание подключения к PostgreSQL")
	return &Storage{pool: pool}, nil
}

func (s *Storage) Close() {
	s.pool.Close()
	logger.Info("Repository: Закрытие всех соединений PostgreSQL")
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	err := s.pool.Ping(ctx)
	if err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w", err)
	}
	logger.Debug("Repository: Соединение стабильно")
	return nil
}

func (s *Storage) Create(ctx context.Context, taskToCreate *task.Task) error {
	start := time.Now()

	query := `INSERT INTO tasks
				(uuid, project_id, title, description, assigned_to, estimated_time,
				 status, acceptance_status, total_tracked_seconds, created_at, version)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1)
				RETURNING created_at, version`

	createdAt := taskToCreate.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	err := s.pool.QueryRow(ctx, query,
		taskToCreate.UUID,
		taskToCreate.ProjectID,
		taskToCreate.Title,
		taskToCreate.Description,
		taskToCreate.AssignedTo,
		taskToCreate.EstimatedTime,
		taskToCreate.Status,
		taskToCreate.AcceptanceStatus,
		taskToCreate.TotalTrackedSeconds,
		createdAt,
	).Scan(&taskToCreate.CreatedAt, &taskToCreate.Version)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			logger.Warn("Repository: Задача с таким идентификатором уже существует",
				zap.String("task_id", taskToCreate.UUID.String()))
			return repo.ErrVersionConflict
		}
		logger.Error("Repository: Не удалось добавить задачу", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("добавление задачи: %w", err)
	}
	taskToCreate.CreatedAt = taskToCreate.CreatedAt.UTC()

	if time.Since(start) > time.Millisecond*50 {
		logger.Warn("Repository: Медленный запрос", zap.Duration("ms", time.Since(start)))
	}
	return nil
}

// Update меняет только описательные поля задачи. Поля таймера пишет Transition.
func (s *Storage) Update(ctx context.Context, taskToUpdate *task.Task) error {
	start := time.Now()

	query := `UPDATE tasks
			SET title = $1,
				description = $2,
				assigned_to = $3,
				estimated_time = $4,
				acceptance_status = $5,
				version = version + 1,
				updated_at = NOW()
			WHERE uuid = $6 AND version = $7
			RETURNING updated_at, version`

	var updatedAt time.Time
	err := s.pool.QueryRow(ctx, query,
		taskToUpdate.Title,
		taskToUpdate.Description,
		taskToUpdate.AssignedTo,
		taskToUpdate.EstimatedTime,
		taskToUpdate.AcceptanceStatus,
		taskToUpdate.UUID,
		taskToUpdate.Version,
	).Scan(&updatedAt, &taskToUpdate.Version)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s.missingOrConflict(ctx, taskToUpdate.UUID, taskToUpdate.Version)
		}
		logger.Error("Repository: Не удалось обновить задачу", err)
		return fmt.Errorf("обновление задачи: %w", err)
	}
	updatedAt = updatedAt.UTC()
	taskToUpdate.UpdatedAt = &updatedAt

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: Медленная операция", zap.Duration("ms", time.Since(start)))
	}
	return nil
}

func (s *Storage) missingOrConflict(ctx context.Context, id uuid.UUID, version int) error {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tasks WHERE uuid = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("проверка существования задачи: %w", err)
	}
	if !exists {
		return repo.ErrNotFound
	}

	logger.Warn("Конфликт версий при обновлении задачи",
		zap.String("task_id", id.String()),
		zap.Int("expected_version", version))
	return repo.ErrVersionConflict
}

func (s *Storage) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	start := time.Now()

	query := `SELECT ` + taskColumns + `
				FROM tasks
				WHERE uuid = $1`

	t, err := scanTask(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить задачу", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение задачи: %w", err)
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: Медленный запрос", zap.Duration("ms", time.Since(start)))
	}
	return t, nil
}

// Transition блокирует строку задачи (SELECT ... FOR UPDATE), применяет fn
// и в той же транзакции сохраняет задачу и запись журнала.
func (s *Storage) Transition(ctx context.Context, id uuid.UUID, fn repo.TransitionFunc) (*task.Task, error) {
	start := time.Now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		logger.Error("Repository: Не удалось открыть транзакцию", err)
		return nil, fmt.Errorf("открытие транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := scanTask(tx.QueryRow(ctx, `SELECT `+taskColumns+`
				FROM tasks
				WHERE uuid = $1
				FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось заблокировать задачу", err)
		return nil, fmt.Errorf("блокировка задачи: %w", err)
	}

	entry, err := fn(current)
	if err != nil {
		return nil, err
	}

	query := `UPDATE tasks
			SET status = $1,
				total_tracked_seconds = $2,
				active_timer_started_at = $3,
				last_paused_at = $4,
				started_at = $5,
				completed_at = $6,
				version = version + 1,
				updated_at = NOW()
			WHERE uuid = $7 AND version = $8
			RETURNING updated_at, version`

	var updatedAt time.Time
	err = tx.QueryRow(ctx, query,
		current.Status,
		current.TotalTrackedSeconds,
		current.ActiveTimerStartedAt,
		current.LastPausedAt,
		current.StartedAt,
		current.CompletedAt,
		current.UUID,
		current.Version,
	).Scan(&updatedAt, &current.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			logger.Warn("Конфликт версий при переходе таймера",
				zap.String("task_id", id.String()),
				zap.Int("expected_version", current.Version))
			return nil, repo.ErrVersionConflict
		}
		logger.Error("Repository: Не удалось сохранить переход", err)
		return nil, fmt.Errorf("сохранение перехода: %w", err)
	}
	updatedAt = updatedAt.UTC()
	current.UpdatedAt = &updatedAt

	if entry != nil {
		_, err = tx.Exec(ctx, `INSERT INTO time_logs
				(id, task_id, user_id, action, occurred_at, note, resulting_status)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			entry.UUID,
			entry.TaskID,
			entry.UserID,
			entry.Action,
			entry.OccurredAt,
			entry.Note,
			entry.ResultingStatus,
		)
		if err != nil {
			logger.Error("Repository: Не удалось записать журнал", err)
			return nil, fmt.Errorf("запись журнала: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		logger.Error("Repository: Не удалось зафиксировать транзакцию", err)
		return nil, fmt.Errorf("фиксация транзакции: %w", err)
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: Медленная операция", zap.Duration("ms", time.Since(start)))
	}
	return current, nil
}

func (s *Storage) ListLogs(ctx context.Context, taskID uuid.UUID) ([]*task.TimeLogEntry, error) {
	start := time.Now()

	query := `SELECT id, task_id, user_id, action, occurred_at, note, resulting_status
				FROM time_logs
				WHERE task_id = $1
				ORDER BY occurred_at, id`

	rows, err := s.pool.Query(ctx, query, taskID)
	if err != nil {
		logger.Error("Repository: Не удалось получить журнал", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение журнала: %w", err)
	}
	defer rows.Close()

	entries := []*task.TimeLogEntry{}
	for rows.Next() {
		e := &task.TimeLogEntry{}
		if err := rows.Scan(&e.UUID, &e.TaskID, &e.UserID, &e.Action, &e.OccurredAt, &e.Note, &e.ResultingStatus); err != nil {
			logger.Error("Repository: Ошибка сканирования записи журнала", err)
			return nil, fmt.Errorf("сканирование журнала: %w", err)
		}
		e.OccurredAt = e.OccurredAt.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}

	return entries, nil
}

func (s *Storage) List(ctx context.Context, filter task.Filter) ([]*task.Task, error) {
	start := time.Now()

	var (
		conditions []string
		args       []any
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		conditions = append(conditions, fmt.Sprintf("assigned_to = $%d", len(args)))
	}

	query := `SELECT ` + taskColumns + `
				FROM tasks`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at, uuid"
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset())
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	tasks, err := s.queryTasks(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	if time.Since(start) > time.Millisecond*50+time.Millisecond*10*time.Duration(filter.Limit) {
		logger.Warn("Repository: Медленный запрос", zap.Duration("ms", time.Since(start)))
	}
	return tasks, nil
}

// задачи с таймером, запущенным раньше before
func (s *Storage) GetRunningStartedBefore(ctx context.Context, before time.Time, limit int) ([]*task.Task, error) {
	query := `SELECT ` + taskColumns + `
				FROM tasks
				WHERE status = $1
				  AND active_timer_started_at < $2
				ORDER BY active_timer_started_at
				LIMIT $3`

	return s.queryTasks(ctx, query, task.StatusInProgress, before, limit)
}

func (s *Storage) queryTasks(ctx context.Context, query string, args ...any) ([]*task.Task, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		logger.Error("Repository: Не удалось получить задачи", err)
		return nil, fmt.Errorf("получение задач: %w", err)
	}
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			logger.Error("Repository: Ошибка сканирования задачи", err)
			return nil, fmt.Errorf("сканирование задачи: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}
	return tasks, nil
}

func scanTask(row pgx.Row) (*task.Task, error) {
	t := &task.Task{}
	err := row.Scan(
		&t.UUID,
		&t.ProjectID,
		&t.Title,
		&t.Description,
		&t.AssignedTo,
		&t.EstimatedTime,
		&t.Status,
		&t.AcceptanceStatus,
		&t.TotalTrackedSeconds,
		&t.ActiveTimerStartedAt,
		&t.LastPausedAt,
		&t.StartedAt,
		&t.CompletedAt,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.Version,
	)
	if err != nil {
		return nil, err
	}

	t.CreatedAt = t.CreatedAt.UTC()
	for _, ts := range []*time.Time{t.ActiveTimerStartedAt, t.LastPausedAt, t.StartedAt, t.CompletedAt, t.UpdatedAt} {
		if ts != nil {
			*ts = ts.UTC()
		}
	}
	return t, nil
}

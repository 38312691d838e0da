package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"timesheet/internal/logger"
	"timesheet/internal/models/task"
	repo "timesheet/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	driver "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const taskColumns = `uuid, project_id, title, description, assigned_to, estimated_time,
	status, acceptance_status, total_tracked_seconds,
	active_timer_started_at, last_paused_at, started_at, completed_at,
	created_at, updated_at, version`

type Storage struct {
	db *sql.DB
}

// New открывает базу SQLite по пути path (":memory:" для тестов) и применяет схему.
func New(path string) (*Storage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		logger.Error("Repository: Не удалось открыть SQLite", err)
		return nil, fmt.Errorf("открытие sqlite: %w", err)
	}

	// одно соединение: SQLite сериализует запись, а ":memory:" живёт в пределах соединения
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("настройка sqlite: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		logger.Error("Repository: Не удалось применить схему SQLite", err)
		return nil, fmt.Errorf("применение схемы: %w", err)
	}

	logger.Info("Repository: SQLite готов", zap.String("path", path))
	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	logger.Info("Repository: Закрытие SQLite")
	return s.db.Close()
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w", err)
	}
	return nil
}

func (s *Storage) Create(ctx context.Context, taskToCreate *task.Task) error {
	if taskToCreate.CreatedAt.IsZero() {
		taskToCreate.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO tasks
		(uuid, project_id, title, description, assigned_to, estimated_time,
		 status, acceptance_status, total_tracked_seconds, created_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		taskToCreate.UUID.String(),
		taskToCreate.ProjectID.String(),
		taskToCreate.Title,
		taskToCreate.Description,
		nullInt64(taskToCreate.AssignedTo),
		taskToCreate.EstimatedTime,
		string(taskToCreate.Status),
		string(taskToCreate.AcceptanceStatus),
		taskToCreate.TotalTrackedSeconds,
		taskToCreate.CreatedAt.UnixMicro(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repo.ErrVersionConflict
		}
		logger.Error("Repository: Не удалось добавить задачу", err)
		return fmt.Errorf("добавление задачи: %w", err)
	}

	taskToCreate.Version = 1
	return nil
}

// Update меняет только описательные поля задачи. Поля таймера пишет Transition.
func (s *Storage) Update(ctx context.Context, taskToUpdate *task.Task) error {
	now := time.Now().UTC().Truncate(time.Microsecond)

	res, err := s.db.ExecContext(ctx, `UPDATE tasks
		SET title = ?, description = ?, assigned_to = ?, estimated_time = ?,
			acceptance_status = ?, version = version + 1, updated_at = ?
		WHERE uuid = ? AND version = ?`,
		taskToUpdate.Title,
		taskToUpdate.Description,
		nullInt64(taskToUpdate.AssignedTo),
		taskToUpdate.EstimatedTime,
		string(taskToUpdate.AcceptanceStatus),
		now.UnixMicro(),
		taskToUpdate.UUID.String(),
		taskToUpdate.Version,
	)
	if err != nil {
		logger.Error("Repository: Не удалось обновить задачу", err)
		return fmt.Errorf("обновление задачи: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("обновление задачи: %w", err)
	}
	if affected == 0 {
		if _, err := s.GetByID(ctx, taskToUpdate.UUID); err != nil {
			return err
		}
		logger.Warn("Конфликт версий при обновлении задачи",
			zap.String("task_id", taskToUpdate.UUID.String()),
			zap.Int("expected_version", taskToUpdate.Version))
		return repo.ErrVersionConflict
	}

	taskToUpdate.Version++
	taskToUpdate.UpdatedAt = &now
	return nil
}

func (s *Storage) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE uuid = ?`, id.String())
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить задачу", err)
		return nil, fmt.Errorf("получение задачи: %w", err)
	}
	return t, nil
}

// Transition читает и пишет задачу в одной транзакции; запись защищена проверкой version.
func (s *Storage) Transition(ctx context.Context, id uuid.UUID, fn repo.TransitionFunc) (*task.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("Repository: Не удалось открыть транзакцию", err)
		return nil, fmt.Errorf("открытие транзакции: %w", err)
	}
	defer tx.Rollback()

	current, err := scanTask(tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE uuid = ?`, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		return nil, fmt.Errorf("чтение задачи: %w", err)
	}
	readVersion := current.Version

	entry, err := fn(current)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	res, err := tx.ExecContext(ctx, `UPDATE tasks
		SET status = ?, total_tracked_seconds = ?, active_timer_started_at = ?,
			last_paused_at = ?, started_at = ?, completed_at = ?,
			version = version + 1, updated_at = ?
		WHERE uuid = ? AND version = ?`,
		string(current.Status),
		current.TotalTrackedSeconds,
		toMicros(current.ActiveTimerStartedAt),
		toMicros(current.LastPausedAt),
		toMicros(current.StartedAt),
		toMicros(current.CompletedAt),
		now.UnixMicro(),
		id.String(),
		readVersion,
	)
	if err != nil {
		logger.Error("Repository: Не удалось сохранить переход", err)
		return nil, fmt.Errorf("сохранение перехода: %w", err)
	}
	if affected, err := res.RowsAffected(); err != nil || affected == 0 {
		if err != nil {
			return nil, fmt.Errorf("сохранение перехода: %w", err)
		}
		return nil, repo.ErrVersionConflict
	}

	if entry != nil {
		_, err = tx.ExecContext(ctx, `INSERT INTO time_logs
			(id, task_id, user_id, action, occurred_at, note, resulting_status)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			entry.UUID.String(),
			entry.TaskID.String(),
			entry.UserID,
			string(entry.Action),
			entry.OccurredAt.UnixMicro(),
			entry.Note,
			string(entry.ResultingStatus),
		)
		if err != nil {
			logger.Error("Repository: Не удалось записать журнал", err)
			return nil, fmt.Errorf("запись журнала: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("фиксация транзакции: %w", err)
	}

	current.Version = readVersion + 1
	current.UpdatedAt = &now
	return current, nil
}

func (s *Storage) ListLogs(ctx context.Context, taskID uuid.UUID) ([]*task.TimeLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, task_id, user_id, action, occurred_at, note, resulting_status
		FROM time_logs WHERE task_id = ? ORDER BY occurred_at, id`, taskID.String())
	if err != nil {
		logger.Error("Repository: Не удалось получить журнал", err)
		return nil, fmt.Errorf("получение журнала: %w", err)
	}
	defer rows.Close()

	entries := []*task.TimeLogEntry{}
	for rows.Next() {
		var (
			e          task.TimeLogEntry
			action     string
			resulting  string
			occurredAt int64
		)
		if err := rows.Scan(&e.UUID, &e.TaskID, &e.UserID, &action, &occurredAt, &e.Note, &resulting); err != nil {
			return nil, fmt.Errorf("сканирование журнала: %w", err)
		}
		e.Action = task.Action(action)
		e.ResultingStatus = task.Status(resulting)
		e.OccurredAt = time.UnixMicro(occurredAt).UTC()
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func (s *Storage) List(ctx context.Context, filter task.Filter) ([]*task.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if filter.AssignedTo != nil {
		query += " AND assigned_to = ?"
		args = append(args, *filter.AssignedTo)
	}
	query += " ORDER BY created_at, uuid"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset())
	}

	return s.queryTasks(ctx, query, args...)
}

// задачи с таймером, запущенным раньше before
func (s *Storage) GetRunningStartedBefore(ctx context.Context, before time.Time, limit int) ([]*task.Task, error) {
	return s.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks
		WHERE status = ? AND active_timer_started_at < ?
		ORDER BY active_timer_started_at LIMIT ?`,
		string(task.StatusInProgress), before.UTC().UnixMicro(), limit)
}

func (s *Storage) queryTasks(ctx context.Context, query string, args ...any) ([]*task.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.Error("Repository: Не удалось получить задачи", err)
		return nil, fmt.Errorf("получение задач: %w", err)
	}
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("сканирование задачи: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*task.Task, error) {
	var (
		t          task.Task
		status     string
		acceptance string
		assignedTo sql.NullInt64
		active     sql.NullInt64
		paused     sql.NullInt64
		started    sql.NullInt64
		completed  sql.NullInt64
		updated    sql.NullInt64
		createdAt  int64
	)
	err := row.Scan(
		&t.UUID,
		&t.ProjectID,
		&t.Title,
		&t.Description,
		&assignedTo,
		&t.EstimatedTime,
		&status,
		&acceptance,
		&t.TotalTrackedSeconds,
		&active,
		&paused,
		&started,
		&completed,
		&createdAt,
		&updated,
		&t.Version,
	)
	if err != nil {
		return nil, err
	}

	if assignedTo.Valid {
		id := assignedTo.Int64
		t.AssignedTo = &id
	}
	t.Status = task.Status(status)
	t.AcceptanceStatus = task.AcceptanceStatus(acceptance)
	t.ActiveTimerStartedAt = fromMicros(active)
	t.LastPausedAt = fromMicros(paused)
	t.StartedAt = fromMicros(started)
	t.CompletedAt = fromMicros(completed)
	t.UpdatedAt = fromMicros(updated)
	t.CreatedAt = time.UnixMicro(createdAt).UTC()
	return &t, nil
}

func toMicros(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UTC().UnixMicro(), Valid: true}
}

func fromMicros(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMicro(v.Int64).UTC()
	return &t
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func isUniqueViolation(err error) bool {
	var sqliteErr *driver.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}

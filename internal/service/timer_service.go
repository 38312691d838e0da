package service

import (
	"context"
	"errors"
	"time"

	"timesheet/internal/authz"
	"timesheet/internal/logger"
	"timesheet/internal/models/task"
	"timesheet/internal/repository"
	"timesheet/internal/telemetry"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TimerService единственный владелец полей таймера задачи
type TimerService struct {
	repo    TaskRepository
	guard   authz.Guard
	now     func() time.Time
	metrics *telemetry.TimerMetrics
}

type TimerOption func(*TimerService)

// WithClock подменяет источник времени, используется в тестах и воркере
func WithClock(now func() time.Time) TimerOption {
	return func(s *TimerService) {
		if now != nil {
			s.now = now
		}
	}
}

func WithMetrics(m *telemetry.TimerMetrics) TimerOption {
	return func(s *TimerService) {
		s.metrics = m
	}
}

func NewTimerService(repo TaskRepository, guard authz.Guard, options ...TimerOption) *TimerService {
	s := &TimerService{
		repo:  repo,
		guard: guard,
		now:   time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *TimerService) Start(ctx context.Context, id uuid.UUID, user task.User, note string) (*task.Task, error) {
	return s.apply(ctx, task.ActionStart, id, user, note)
}

func (s *TimerService) Pause(ctx context.Context, id uuid.UUID, user task.User, note string) (*task.Task, error) {
	return s.apply(ctx, task.ActionPause, id, user, note)
}

func (s *TimerService) Resume(ctx context.Context, id uuid.UUID, user task.User, note string) (*task.Task, error) {
	return s.apply(ctx, task.ActionResume, id, user, note)
}

// Stop останавливает учёт времени, но не завершает задачу: статус paused, в журнале stop.
func (s *TimerService) Stop(ctx context.Context, id uuid.UUID, user task.User, note string) (*task.Task, error) {
	return s.apply(ctx, task.ActionStop, id, user, note)
}

func (s *TimerService) Complete(ctx context.Context, id uuid.UUID, user task.User, note string) (*task.Task, error) {
	return s.apply(ctx, task.ActionComplete, id, user, note)
}

func (s *TimerService) ListLogs(ctx context.Context, id uuid.UUID) ([]*task.TimeLogEntry, error) {
	entries, err := s.repo.ListLogs(ctx, id)
	if err != nil {
		logger.Error("Service: Не удалось получить журнал таймера", err, zap.String("task_id", id.String()))
		return nil, NewStorageFailure("получение журнала", err)
	}
	return entries, nil
}

func (s *TimerService) apply(ctx context.Context, action task.Action, id uuid.UUID, user task.User, note string) (*task.Task, error) {
	start := time.Now()
	var flushed int64

	updated, err := s.repo.Transition(ctx, id, func(t *task.Task) (*task.TimeLogEntry, error) {
		if err := s.guard.CanOperateTimer(t, user); err != nil {
			return nil, NewForbidden(id, user.ID, err)
		}

		rule, ok := lookupTransition(t.Status, action)
		if !ok {
			return nil, NewInvalidTransition(id, t.Status, action)
		}

		// одно значение now и для проверки, и для сохранения
		now := s.now().UTC().Truncate(time.Microsecond)
		flushed = rule.effect(t, now)
		t.Status = rule.to

		return task.NewTimeLogEntry(t.UUID, user.ID, action, now, note, t.Status), nil
	})
	if err != nil {
		err = s.translate(id, err)
		outcome := CodeStorageFailure
		var busErr *BusinessError
		if errors.As(err, &busErr) {
			outcome = busErr.Code
		}
		s.metrics.RecordTransition(ctx, string(action), outcome)

		logger.Warn("Service: Переход таймера отклонён",
			zap.String("task_id", id.String()),
			zap.String("action", string(action)),
			zap.Int64("user_id", user.ID),
			zap.String("outcome", outcome),
			zap.Error(err))
		return nil, err
	}

	s.metrics.RecordTransition(ctx, string(action), "ok")
	s.metrics.RecordTracked(ctx, string(action), flushed)

	logger.Info("Service: Переход таймера выполнен",
		zap.String("task_id", id.String()),
		zap.String("action", string(action)),
		zap.Int64("user_id", user.ID),
		zap.String("status", string(updated.Status)),
		zap.Int64("flushed_seconds", flushed),
		zap.Int64("total_tracked_seconds", updated.TotalTrackedSeconds),
		zap.Duration("ms", time.Since(start)))

	return updated, nil
}

func (s *TimerService) translate(id uuid.UUID, err error) error {
	var busErr *BusinessError
	switch {
	case errors.As(err, &busErr):
		return busErr
	case errors.Is(err, repository.ErrNotFound):
		return NewNotFound(id)
	case errors.Is(err, repository.ErrVersionConflict):
		return NewVersionConflict(id, err)
	default:
		return NewStorageFailure("переход таймера", err)
	}
}

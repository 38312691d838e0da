package worker

import (
	"context"
	"fmt"
	"time"

	"timesheet/internal/logger"
	"timesheet/internal/models/task"
	"timesheet/internal/service"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const defaultBatchSize = 100

type RunningTaskFinder interface {
	GetRunningStartedBefore(context.Context, time.Time, int) ([]*task.Task, error)
}

type TimerStopper interface {
	Stop(ctx context.Context, id uuid.UUID, user task.User, note string) (*task.Task, error)
}

// StaleTimerWorker останавливает таймеры, которые идут дольше staleAfter.
// Остановка выполняется обычным переходом stop от имени исполнителя.
type StaleTimerWorker struct {
	repo       RunningTaskFinder
	timers     TimerStopper
	schedule   cron.Schedule
	staleAfter time.Duration
	batchSize  int
	now        func() time.Time
}

type Option func(*StaleTimerWorker)

func WithBatchSize(size int) Option {
	return func(w *StaleTimerWorker) {
		if size > 0 {
			w.batchSize = size
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(w *StaleTimerWorker) {
		if now != nil {
			w.now = now
		}
	}
}

func NewStaleTimerWorker(repo RunningTaskFinder, timers TimerStopper, expr string, staleAfter time.Duration, options ...Option) (*StaleTimerWorker, error) {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("неверное расписание %q: %w", expr, err)
	}
	if staleAfter <= 0 {
		return nil, fmt.Errorf("staleAfter должен быть положительным, получено %s", staleAfter)
	}

	w := &StaleTimerWorker{
		repo:       repo,
		timers:     timers,
		schedule:   schedule,
		staleAfter: staleAfter,
		batchSize:  defaultBatchSize,
		now:        time.Now,
	}
	for _, opt := range options {
		opt(w)
	}
	return w, nil
}

// Start запускает проверки по расписанию и блокируется до отмены ctx
func (w *StaleTimerWorker) Start(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(w.schedule, cron.FuncJob(func() {
		logger.Info("Worker: Фоновая проверка зависших таймеров", zap.Time("started_at", w.now()))
		w.Check(ctx)
	}))

	c.Start()
	logger.Info("Worker: Планировщик запущен",
		zap.Duration("stale_after", w.staleAfter),
		zap.Time("next_run", w.schedule.Next(w.now())))

	<-ctx.Done()
	logger.Info("Worker: Фоновая проверка останавливается")
	<-c.Stop().Done()
	return nil
}

// Check останавливает найденные зависшие таймеры и возвращает их число.
// Ошибки по отдельным задачам логируются и не прерывают проверку.
func (w *StaleTimerWorker) Check(ctx context.Context) int {
	start := time.Now()

	tasks, err := w.getStaleTasks(ctx)
	if err != nil {
		logger.Warn("Worker: ошибка получения задач", zap.Error(err))
		return 0
	}

	stopped := 0
	for _, t := range tasks {
		if ctx.Err() != nil {
			break
		}

		ok, err := w.StopStale(ctx, t)
		if err != nil {
			logger.Warn("Worker: Ошибка остановки таймера",
				zap.String("task_id", t.UUID.String()),
				zap.Error(err))
			continue
		}
		if ok {
			stopped++
		}
	}

	logger.Info(
		"Worker: Завершение проверки таймеров",
		zap.Duration("ms", time.Since(start)),
		zap.Int("checked", len(tasks)),
		zap.Int("stopped", stopped),
	)
	return stopped
}

func (w *StaleTimerWorker) getStaleTasks(ctx context.Context) ([]*task.Task, error) {
	tasks, err := w.repo.GetRunningStartedBefore(ctx, w.now().Add(-w.staleAfter), w.batchSize)
	if err != nil {
		return nil, fmt.Errorf("получение задач с запущенным таймером: %w", err)
	}
	return tasks, nil
}

// StopStale возвращает false, если таймер уже не идёт
func (w *StaleTimerWorker) StopStale(ctx context.Context, t *task.Task) (bool, error) {
	if t.AssignedTo == nil {
		return false, fmt.Errorf("у задачи %s нет исполнителя", t.UUID)
	}

	assignee := task.User{ID: *t.AssignedTo, Role: task.RoleEmployee}
	note := fmt.Sprintf("auto-stop: timer exceeded %s", w.staleAfter)

	if _, err := w.timers.Stop(ctx, t.UUID, assignee, note); err != nil {
		// пользователь мог остановить таймер сам между выборкой и переходом
		if service.IsCode(err, service.CodeInvalidTransition) {
			logger.Debug("Worker: Таймер уже остановлен", zap.String("task_id", t.UUID.String()))
			return false, nil
		}
		return false, fmt.Errorf("остановка таймера: %w", err)
	}
	return true, nil
}

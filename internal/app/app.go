package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"timesheet/internal/authz"
	"timesheet/internal/config"
	"timesheet/internal/handlers"
	"timesheet/internal/logger"
	"timesheet/internal/middleware"
	"timesheet/internal/migrations"
	"timesheet/internal/repository/task/inmemory"
	"timesheet/internal/repository/task/postgres"
	"timesheet/internal/repository/task/sqlite"
	"timesheet/internal/seed"
	"timesheet/internal/service"
	"timesheet/internal/telemetry"
	"timesheet/internal/worker"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type App struct {
	config     *config.Config
	server     *http.Server
	router     *chi.Mux
	repository service.TaskRepository
	timers     *service.TimerService
	tasks      *service.TaskService
	worker     *worker.StaleTimerWorker
	shutdowns  []func(context.Context) error // выполняются в обратном порядке
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(context.Context) error, 0),
	}
}

func (a *App) Init(ctx context.Context) error {
	if err := logger.Init(a.config.Logging.Development, a.config.Logging.Level); err != nil {
		return fmt.Errorf("инициализация логгера: %w", err)
	}
	a.onShutdown(func(context.Context) error {
		logger.Info("Завершение работы логгирования...")
		logger.Sync()
		return nil
	})

	shutdownMetrics, err := telemetry.Setup(ctx, a.config.Telemetry.StdoutMetrics, a.config.Telemetry.Interval)
	if err != nil {
		return fmt.Errorf("инициализация телеметрии: %w", err)
	}
	a.onShutdown(shutdownMetrics)

	if err := a.initRepository(ctx); err != nil {
		return err
	}

	if path := a.config.Seed.Path; path != "" {
		if _, err := seed.LoadFile(ctx, path, a.repository); err != nil {
			return fmt.Errorf("загрузка фикстур: %w", err)
		}
	}

	metrics, err := telemetry.NewTimerMetrics(nil)
	if err != nil {
		return fmt.Errorf("метрики таймера: %w", err)
	}

	a.timers = service.NewTimerService(a.repository, authz.NewAssigneeGuard(), service.WithMetrics(metrics))
	a.tasks = service.NewTaskService(a.repository)

	if a.config.Worker.Enabled {
		a.worker, err = worker.NewStaleTimerWorker(a.repository, a.timers,
			a.config.Worker.Schedule, a.config.Worker.StaleAfter)
		if err != nil {
			return fmt.Errorf("инициализация воркера: %w", err)
		}
	}

	a.initRouter()

	a.server = &http.Server{
		Addr:         a.config.GetServerAddr(),
		Handler:      otelhttp.NewHandler(a.router, "timesheet"),
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
	}

	logger.Info("Приложение инициализировано",
		zap.String("repository", a.config.Repository.Type),
		zap.Bool("worker", a.worker != nil),
		zap.String("addr", a.server.Addr))
	return nil
}

func (a *App) initRepository(ctx context.Context) error {
	switch a.config.Repository.Type {
	case config.RepositoryPostgres:
		if a.config.Database.AutoMigrate {
			if err := migrations.Up(a.config.Database.URL); err != nil {
				return fmt.Errorf("миграции: %w", err)
			}
		}

		storage, err := postgres.New(ctx, postgres.Config{
			URL:         a.config.Database.URL,
			MaxConns:    a.config.Database.MaxConnections,
			MinConns:    a.config.Database.MinConnections,
			IdleTimeout: a.config.Database.IdleTimeout,
		})
		if err != nil {
			return fmt.Errorf("подключение к postgres: %w", err)
		}
		a.onShutdown(func(context.Context) error {
			logger.Info("Закрытие пула соединений postgres...")
			storage.Close()
			return nil
		})
		a.repository = storage

	case config.RepositorySQLite:
		storage, err := sqlite.New(a.config.SQLite.Path)
		if err != nil {
			return fmt.Errorf("открытие sqlite: %w", err)
		}
		a.onShutdown(func(context.Context) error {
			logger.Info("Закрытие sqlite...")
			return storage.Close()
		})
		a.repository = storage

	case config.RepositoryInMemory:
		a.repository = inmemory.NewTaskStorage()

	default:
		return fmt.Errorf("неизвестный тип репозитория: %q", a.config.Repository.Type)
	}
	return nil
}

func (a *App) initRouter() {
	taskHandler := handlers.NewTaskHandler(a.tasks)
	timerHandler := handlers.NewTimerHandler(a.timers)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recover)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: a.config.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID", middleware.HeaderUserID, middleware.HeaderUserRole},
		ExposedHeaders: []string{"X-Request-ID", "Retry-After"},
		MaxAge:         300,
	}))
	r.Use(chimiddleware.Timeout(a.config.Server.RequestTimeout))
	r.Use(middleware.RateLimit(a.config.Server.RateLimit))

	r.Get("/health", taskHandler.HealthCheck)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Identity)
		handlers.Mount(r, &taskHandler, &timerHandler)
	})

	a.router = r
}

// Handler отдаёт корневой обработчик, вместе с otelhttp
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run обслуживает HTTP и воркер до отмены ctx, затем корректно завершает работу
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Сервер запущен", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http сервер: %w", err)
		}
		return nil
	})

	if a.worker != nil {
		g.Go(func() error {
			return a.worker.Start(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
		defer cancel()

		logger.Info("Остановка сервера...")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("остановка сервера: %w", err)
		}
		return nil
	})

	err := g.Wait()
	if closeErr := a.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

func (a *App) onShutdown(fn func(context.Context) error) {
	a.shutdowns = append(a.shutdowns, fn)
}

// Close освобождает ресурсы в порядке, обратном инициализации
func (a *App) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		if err := a.shutdowns[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.shutdowns = nil
	return errors.Join(errs...)
}

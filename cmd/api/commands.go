package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"timesheet/internal/app"
	"timesheet/internal/config"
	"timesheet/internal/logger"
	"timesheet/internal/migrations"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Запустить HTTP сервер и фоновый воркер",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.New(cfg)
	if err := a.Init(ctx); err != nil {
		if closeErr := a.Close(); closeErr != nil {
			logger.Error("Ошибка освобождения ресурсов", closeErr)
		}
		return err
	}

	if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newMigrateCmd() *cobra.Command {
	var databaseURL string

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Миграции схемы postgres",
	}
	migrateCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "Строка подключения, по умолчанию database.url из конфигурации")

	run := func(apply func(string) error, message string) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			url, err := resolveDatabaseURL(databaseURL)
			if err != nil {
				return err
			}
			if err := apply(url); err != nil {
				return err
			}
			logger.Info(message)
			return nil
		}
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Применить все миграции",
		Args:  cobra.NoArgs,
		RunE:  run(migrations.Up, "Migrations: Схема обновлена"),
	})
	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Откатить все миграции",
		Args:  cobra.NoArgs,
		RunE:  run(migrations.Down, "Migrations: Схема откачена"),
	})

	return migrateCmd
}

func resolveDatabaseURL(flagValue string) (string, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return "", err
	}

	if err := logger.Init(cfg.Logging.Development, cfg.Logging.Level); err != nil {
		return "", err
	}

	url := flagValue
	if url == "" {
		url = cfg.Database.URL
	}
	if url == "" {
		return "", errors.New("не задана строка подключения: database.url или --database-url")
	}

	logger.Debug("Migrations: Источник строки подключения", zap.Bool("from_flag", flagValue != ""))
	return url, nil
}

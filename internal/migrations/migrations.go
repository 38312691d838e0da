package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"timesheet/internal/logger"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

//go:embed sql/*.sql
var files embed.FS

// Up применяет все миграции PostgreSQL. Отсутствие изменений ошибкой не считается.
func Up(databaseURL string) error {
	logger.Info("Попытка миграций")

	m, err := newMigrate(databaseURL)
	if err != nil {
		return err
	}
	defer closeMigrate(m)

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error("Migrations: Не удалось применить миграции", err)
		return fmt.Errorf("применение миграций: %w", err)
	}

	logAppliedVersion(m)
	return nil
}

func logAppliedVersion(m versioner) {
	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		logger.Info("Migrations: Миграций нет, схема пуста")
	case err != nil:
		logger.Warn("Migrations: Не удалось прочитать версию схемы", zap.Error(err))
	default:
		logger.Info("Migrations: Миграции применены", zap.Uint("version", version), zap.Bool("dirty", dirty))
	}
}

type versioner interface {
	Version() (uint, bool, error)
}

// Down откатывает все миграции
func Down(databaseURL string) error {
	logger.Info("Откат миграций")

	m, err := newMigrate(databaseURL)
	if err != nil {
		return err
	}
	defer closeMigrate(m)

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error("Migrations: Не удалось откатить миграции", err)
		return fmt.Errorf("откат миграций: %w", err)
	}

	logger.Info("Migrations: Миграции откачены")
	return nil
}

func newMigrate(databaseURL string) (*migrate.Migrate, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("подключение для миграций: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("драйвер миграций: %w", err)
	}

	source, err := iofs.New(files, "sql")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("источник миграций: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("инициализация миграций: %w", err)
	}
	return m, nil
}

func closeMigrate(m *migrate.Migrate) {
	srcErr, dbErr := m.Close()
	if srcErr != nil {
		logger.Warn("Migrations: Ошибка закрытия источника", zap.Error(srcErr))
	}
	if dbErr != nil {
		logger.Warn("Migrations: Ошибка закрытия соединения", zap.Error(dbErr))
	}
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

const (
	RepositoryInMemory = "inmemory"
	RepositoryPostgres = "postgres"
	RepositorySQLite   = "sqlite"

	envPrefix = "TIMESHEET"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Repository RepositoryConfig `mapstructure:"repository"`
	SQLite     SQLiteConfig     `mapstructure:"sqlite"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Worker     WorkerConfig     `mapstructure:"worker"`
	Seed       SeedConfig       `mapstructure:"seed"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RateLimit       int           `mapstructure:"rate_limit"` // запросов в минуту с одного IP, 0 - без ограничения
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	MaxConnections int32         `mapstructure:"max_connections"`
	MinConnections int32         `mapstructure:"min_connections"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	AutoMigrate    bool          `mapstructure:"auto_migrate"`
}

type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

type RepositoryConfig struct {
	Type string `mapstructure:"type"` // "inmemory", "postgres" или "sqlite"
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type TelemetryConfig struct {
	StdoutMetrics bool          `mapstructure:"stdout_metrics"`
	Interval      time.Duration `mapstructure:"interval"`
}

type WorkerConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Schedule   string        `mapstructure:"schedule"`
	StaleAfter time.Duration `mapstructure:"stale_after"`
}

type SeedConfig struct {
	Path string `mapstructure:"path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.rate_limit", 100)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.min_connections", 2)
	v.SetDefault("database.idle_timeout", 5*time.Minute)
	v.SetDefault("database.auto_migrate", false)

	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")

	v.SetDefault("repository.type", RepositoryInMemory)
	v.SetDefault("sqlite.path", "timesheet.db")

	v.SetDefault("telemetry.stdout_metrics", false)
	v.SetDefault("telemetry.interval", time.Minute)

	v.SetDefault("worker.enabled", false)
	v.SetDefault("worker.schedule", "@every 5m")
	v.SetDefault("worker.stale_after", 12*time.Hour)

	v.SetDefault("seed.path", "")
}

// Load читает .env рядом с файлом конфигурации, затем сам файл (если он есть)
// и переменные окружения TIMESHEET_*. Пустой path означает config.yml.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.yml"
	}

	if err := godotenv.Load(filepath.Join(filepath.Dir(path), ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("ошибка чтения .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("ошибка парсинга %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора конфигурации: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Repository.Type {
	case RepositoryInMemory:
	case RepositoryPostgres:
		if c.Database.URL == "" {
			return errors.New("database.url обязателен для репозитория postgres")
		}
	case RepositorySQLite:
		if c.SQLite.Path == "" {
			return errors.New("sqlite.path обязателен для репозитория sqlite")
		}
	default:
		return fmt.Errorf("неизвестный тип репозитория: %q", c.Repository.Type)
	}

	if c.Server.Port == "" {
		return errors.New("server.port не может быть пустым")
	}

	durations := map[string]time.Duration{
		"server.read_timeout":     c.Server.ReadTimeout,
		"server.write_timeout":    c.Server.WriteTimeout,
		"server.request_timeout":  c.Server.RequestTimeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
		"telemetry.interval":      c.Telemetry.Interval,
	}
	for name, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%s должен быть положительным, получено %s", name, d)
		}
	}

	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit не может быть отрицательным: %d", c.Server.RateLimit)
	}

	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database.min_connections (%d) больше max_connections (%d)",
			c.Database.MinConnections, c.Database.MaxConnections)
	}

	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	if c.Worker.Enabled {
		if c.Worker.StaleAfter <= 0 {
			return fmt.Errorf("worker.stale_after должен быть положительным, получено %s", c.Worker.StaleAfter)
		}
		if _, err := cron.ParseStandard(c.Worker.Schedule); err != nil {
			return fmt.Errorf("worker.schedule %q: %w", c.Worker.Schedule, err)
		}
	}

	return nil
}

func (c *Config) GetServerAddr() string {
	return net.JoinHostPort(c.Server.Host, c.Server.Port)
}

package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"timesheet/internal/logger"
	"timesheet/internal/models/task"
	"timesheet/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type Fixture struct {
	Tasks []TaskFixture `yaml:"tasks"`
}

type TaskFixture struct {
	ID            string  `yaml:"id"`
	ProjectID     string  `yaml:"projectId"`
	Title         string  `yaml:"title"`
	Description   string  `yaml:"description"`
	AssignedTo    *int64  `yaml:"assignedTo"`
	EstimatedTime float64 `yaml:"estimatedTime"`
}

type Creator interface {
	Create(context.Context, *task.Task) error
}

func Decode(r io.Reader) ([]*task.Task, error) {
	var fixture Fixture
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&fixture); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка парсинга фикстур: %w", err)
	}

	tasks := make([]*task.Task, 0, len(fixture.Tasks))
	for i, f := range fixture.Tasks {
		t, err := f.toTask()
		if err != nil {
			return nil, fmt.Errorf("фикстура #%d: %w", i+1, err)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (f TaskFixture) toTask() (*task.Task, error) {
	projectID, err := uuid.Parse(f.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("неверный projectId %q: %w", f.ProjectID, err)
	}

	var id uuid.UUID
	if f.ID != "" {
		if id, err = uuid.Parse(f.ID); err != nil {
			return nil, fmt.Errorf("неверный id %q: %w", f.ID, err)
		}
	}

	if strings.TrimSpace(f.Title) == "" {
		return nil, errors.New("название не может быть пустым")
	}
	if f.EstimatedTime <= 0 {
		return nil, fmt.Errorf("estimatedTime должен быть положительным: %v", f.EstimatedTime)
	}

	return task.New(projectID, f.Title, f.EstimatedTime,
		task.WithID(id),
		task.WithDescription(f.Description),
		task.WithAssignee(f.AssignedTo),
	), nil
}

// Apply создаёт задачи в хранилище. Уже существующие пропускаются,
// поэтому повторный запуск безопасен.
func Apply(ctx context.Context, repo Creator, tasks []*task.Task) (int, error) {
	created := 0
	for _, t := range tasks {
		err := repo.Create(ctx, t)
		if errors.Is(err, repository.ErrVersionConflict) {
			logger.Debug("Seed: Задача уже существует", zap.String("task_id", t.UUID.String()))
			continue
		}
		if err != nil {
			return created, fmt.Errorf("создание задачи %s: %w", t.UUID, err)
		}
		created++
	}
	return created, nil
}

// LoadFile читает фикстуры из path и применяет их к repo
func LoadFile(ctx context.Context, path string, repo Creator) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("не могу открыть %s: %w", path, err)
	}
	defer file.Close()

	tasks, err := Decode(file)
	if err != nil {
		return 0, err
	}

	created, err := Apply(ctx, repo, tasks)
	if err != nil {
		return created, err
	}

	logger.Info("Seed: Фикстуры загружены",
		zap.String("path", path),
		zap.Int("total", len(tasks)),
		zap.Int("created", created))
	return created, nil
}

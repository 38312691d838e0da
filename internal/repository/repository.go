package repository

import (
	"errors"

	"timesheet/internal/models/task"
)

var (
	ErrNotFound        = errors.New("не найдено")
	ErrVersionConflict = errors.New("конфликт версий")
)

// TransitionFunc получает копию задачи, прочитанную под блокировкой строки,
// изменяет её и возвращает запись журнала. Если функция вернула ошибку,
// хранилище ничего не сохраняет.
type TransitionFunc func(t *task.Task) (*task.TimeLogEntry, error)

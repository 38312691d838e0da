package service

import (
	"timesheet/internal/models/task"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// ListOption настраивает выборку задач, по аналогии с опциями обновления задачи
type ListOption func(*task.Filter)

func WithAssignedTo(userID *int64) ListOption {
	return func(f *task.Filter) {
		f.AssignedTo = userID
	}
}

func WithStatus(status task.Status) ListOption {
	return func(f *task.Filter) {
		f.Status = status
	}
}

func WithPage(page, limit int) ListOption {
	return func(f *task.Filter) {
		f.Page = page
		f.Limit = limit
	}
}

func buildFilter(options ...ListOption) task.Filter {
	filter := task.Filter{Page: 1, Limit: defaultPageLimit}
	for _, opt := range options {
		if opt != nil {
			opt(&filter)
		}
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultPageLimit
	}
	if filter.Limit > maxPageLimit {
		filter.Limit = maxPageLimit
	}
	return filter
}

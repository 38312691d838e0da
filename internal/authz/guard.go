// Package authz решает, может ли пользователь управлять задачей.
package authz

import (
	"errors"
	"slices"

	"timesheet/internal/models/task"
)

var (
	ErrNotAssignee  = errors.New("пользователь не является исполнителем задачи")
	ErrRoleRequired = errors.New("недостаточно прав")
)

type Guard interface {
	CanOperateTimer(t *task.Task, user task.User) error
}

// AssigneeGuard: таймером управляет только исполнитель, без исключений для
// менеджеров и администраторов.
type AssigneeGuard struct{}

func NewAssigneeGuard() AssigneeGuard {
	return AssigneeGuard{}
}

func (AssigneeGuard) CanOperateTimer(t *task.Task, user task.User) error {
	if t == nil || !t.IsAssignedTo(user.ID) {
		return ErrNotAssignee
	}
	return nil
}

func RequireRole(user task.User, roles ...task.Role) error {
	if slices.Contains(roles, user.Role) {
		return nil
	}
	return ErrRoleRequired
}

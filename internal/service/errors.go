package service

import (
	"errors"
	"fmt"

	"timesheet/internal/models/task"

	"github.com/google/uuid"
)

const (
	CodeNotFound          = "NOT_FOUND"
	CodeForbidden         = "FORBIDDEN"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeVersionConflict   = "VERSION_CONFLICT"
	CodeValidation        = "VALIDATION_ERROR"
	CodeStorageFailure    = "STORAGE_FAILURE"
)

type BusinessError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

type Detail struct {
	Key     string
	Payload any
}

func (b *BusinessError) Error() string {
	if b.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", b.Code, b.Message, b.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", b.Code, b.Message)
}

func (b *BusinessError) Unwrap() error {
	return b.Err
}

func ToDetail(key string, payload any) Detail {
	return Detail{
		Key:     key,
		Payload: payload,
	}
}

func NewBusinessError(code string, message string, details ...Detail) *BusinessError {
	busErr := &BusinessError{
		Code:    code,
		Message: message,
		Details: make(map[string]any),
	}

	for _, detail := range details {
		busErr.Details[detail.Key] = detail.Payload
	}

	return busErr
}

// IsCode проверяет код бизнес-ошибки в цепочке err
func IsCode(err error, code string) bool {
	var busErr *BusinessError
	return errors.As(err, &busErr) && busErr.Code == code
}

func NewNotFound(id uuid.UUID) *BusinessError {
	return NewBusinessError(CodeNotFound,
		fmt.Sprintf("задача %s не найдена", id),
		ToDetail("id", id.String()))
}

func NewForbidden(id uuid.UUID, userID int64, err error) *BusinessError {
	busErr := NewBusinessError(CodeForbidden,
		fmt.Sprintf("пользователь %d не может управлять таймером задачи %s", userID, id),
		ToDetail("id", id.String()),
		ToDetail("user_id", userID))
	busErr.Err = err
	return busErr
}

func NewInvalidTransition(id uuid.UUID, current task.Status, action task.Action) *BusinessError {
	return NewBusinessError(CodeInvalidTransition,
		fmt.Sprintf("нельзя выполнить %q для задачи в статусе %q", action, current),
		ToDetail("id", id.String()),
		ToDetail("current_status", current),
		ToDetail("action", action))
}

func NewVersionConflict(id uuid.UUID, err error) *BusinessError {
	busErr := NewBusinessError(CodeVersionConflict,
		fmt.Sprintf("задача %s была изменена параллельно, повторите запрос", id),
		ToDetail("id", id.String()))
	busErr.Err = err
	return busErr
}

func NewValidationError(field, reason string) *BusinessError {
	return NewBusinessError(CodeValidation,
		fmt.Sprintf("Неверное значение поля '%s': %s", field, reason),
		ToDetail("field", field),
		ToDetail("reason", reason))
}

func NewStorageFailure(operation string, err error) *BusinessError {
	busErr := NewBusinessError(CodeStorageFailure,
		fmt.Sprintf("ошибка хранилища: %s", operation),
		ToDetail("operation", operation))
	busErr.Err = err
	return busErr
}

package handlers

import (
	"context"
	"net/http"
	"time"
	"unicode/utf8"

	"timesheet/internal/handlers/dto"
	"timesheet/internal/logger"
	"timesheet/internal/models/task"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxNoteLength = 2000

type TimerHandler struct {
	TimerService TimerService
	now          func() time.Time
}

func NewTimerHandler(timerService TimerService) TimerHandler {
	return TimerHandler{
		TimerService: timerService,
		now:          time.Now,
	}
}

type timerOperation func(context.Context, uuid.UUID, task.User, string) (*task.Task, error)

func (h *TimerHandler) StartTimer(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, task.ActionStart, h.TimerService.Start, "Таймер задачи запущен")
}

func (h *TimerHandler) PauseTimer(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, task.ActionPause, h.TimerService.Pause, "Таймер задачи приостановлен")
}

func (h *TimerHandler) ResumeTimer(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, task.ActionResume, h.TimerService.Resume, "Таймер задачи возобновлён")
}

func (h *TimerHandler) StopTimer(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, task.ActionStop, h.TimerService.Stop, "Таймер задачи остановлен")
}

func (h *TimerHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, task.ActionComplete, h.TimerService.Complete, "Задача завершена")
}

func (h *TimerHandler) transition(w http.ResponseWriter, r *http.Request, action task.Action, op timerOperation, message string) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := parseTaskID(w, r)
	if !ok {
		return
	}

	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var request dto.TransitionRequest
	if !decodeJSON(w, r, &request, true) {
		return
	}

	if utf8.RuneCountInString(request.Note) > maxNoteLength {
		logger.Warn("HTTP: Ошибка валидации",
			zap.String("field", "note"),
			zap.String("error", "too_long"),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "комментарий слишком длинный")
		return
	}

	logger.Info("HTTP: Вызов сервиса таймера", zap.String("action", string(action)))

	updated, err := op(r.Context(), id, user, request.Note)
	if err != nil {
		handleServiceError(w, r, err, string(action))
		return
	}

	logger.Info("HTTP_OUT: "+message,
		zap.String("task_id", id.String()),
		zap.String("status", string(updated.Status)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK,
		toPayload("message", message),
		toPayload("task", dto.FromTask(updated, h.now())),
	)
}

func (h *TimerHandler) GetTimeLogs(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := parseTaskID(w, r)
	if !ok {
		return
	}

	logger.Info("HTTP: Вызов сервиса для получения журнала")

	entries, err := h.TimerService.ListLogs(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err, "list_logs")
		return
	}

	logger.Info("HTTP_OUT: Журнал получен",
		zap.String("task_id", id.String()),
		zap.Int("entries", len(entries)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithData(w, http.StatusOK, dto.FromTimeLogList(entries))
}

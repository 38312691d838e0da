package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"timesheet/internal/logger"
	"timesheet/internal/middleware"
	"timesheet/internal/models/task"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

func checkContentType(r *http.Request, target string) bool {
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		return false
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	return mediaType == target
}

func parseTaskID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idParam := chi.URLParam(r, "id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		logger.Warn("HTTP: Не удалось получить id",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "не удалось получить id: "+err.Error())
		return uuid.Nil, false
	}

	if id == uuid.Nil {
		logger.Warn("HTTP: Неверное значение id",
			zap.String("error", "nil id"),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "id не может быть пустым")
		return uuid.Nil, false
	}

	return id, true
}

func currentUser(w http.ResponseWriter, r *http.Request) (task.User, bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		logger.Warn("HTTP: Пользователь не определён", zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusUnauthorized, "пользователь не определён")
		return task.User{}, false
	}
	return user, true
}

// decodeJSON читает тело запроса в dst. Пустое тело допустимо, только если optional.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	if r.Header.Get("Content-Type") != "" || !optional {
		if !checkContentType(r, "application/json") {
			logger.Warn("HTTP: Неверный тип контента",
				zap.String("expected", "application/json"),
				zap.String("received", r.Header.Get("Content-Type")),
				zap.String("client_ip", r.RemoteAddr))

			responseWithError(w, http.StatusUnsupportedMediaType, "Content-Type должен быть application/json")
			return false
		}
	}

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return true
		}

		logger.Warn("HTTP: Ошибка чтения JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "неверное тело запроса: "+err.Error())
		return false
	}
	return true
}

// queryInt разбирает необязательный целочисленный параметр запроса
func queryInt(w http.ResponseWriter, r *http.Request, name string, min int64) (int64, bool, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false, true
	}

	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value < min {
		logger.Warn("HTTP: Неверное значение параметра",
			zap.String("query", name),
			zap.String("value", raw),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "неверное значение "+name)
		return 0, false, false
	}
	return value, true, true
}

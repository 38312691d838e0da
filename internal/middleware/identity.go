package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"timesheet/internal/logger"
	"timesheet/internal/models/task"

	"go.uber.org/zap"
)

// Аутентификацию выполняет внешний шлюз, сюда приходят уже проверенные заголовки.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

const userKey contextKey = "user"

func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(strings.TrimSpace(r.Header.Get(HeaderUserID)), 10, 64)
		if err != nil || id <= 0 {
			unauthorized(w, r, "не удалось определить пользователя: заголовок "+HeaderUserID)
			return
		}

		role := task.Role(strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderUserRole))))
		if !role.Valid() {
			unauthorized(w, r, "не удалось определить роль пользователя: заголовок "+HeaderUserRole)
			return
		}

		ctx := WithUser(r.Context(), task.User{ID: id, Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func WithUser(ctx context.Context, user task.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

func UserFromContext(ctx context.Context) (task.User, bool) {
	user, ok := ctx.Value(userKey).(task.User)
	return user, ok
}

func unauthorized(w http.ResponseWriter, r *http.Request, message string) {
	logger.Warn("HTTP: Запрос без идентификации пользователя",
		zap.String("request_id", GetRequestID(r.Context())),
		zap.String("path", r.URL.Path),
		zap.String("client_ip", r.RemoteAddr))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]any{"message": message})
}

package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"

	"timesheet/internal/logger"

	"go.uber.org/zap"
)

// Recover превращает панику обработчика в 500 с телом {message}
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			err, ok := rec.(error)
			if !ok {
				err = fmt.Errorf("%v", rec)
			}
			logger.Error("HTTP: Паника в обработчике", err,
				zap.String("request_id", GetRequestID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Stack("stack"))

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]any{
				"message":    "внутренняя ошибка сервера",
				"request_id": GetRequestID(r.Context()),
			})
		}()

		next.ServeHTTP(w, r)
	})
}

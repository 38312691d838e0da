package handlers

import (
	"errors"
	"net/http"

	"timesheet/internal/logger"
	"timesheet/internal/service"

	"go.uber.org/zap"
)

// handleServiceError отвечает клиенту по ошибке сервиса. Сообщение бизнес-ошибки
// передаётся как есть, остальные ошибки скрываются за 500.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	var businessErr *service.BusinessError
	if errors.As(err, &businessErr) {
		statusCode := mapBusinessErrorToHTTP(businessErr.Code)

		if statusCode >= http.StatusInternalServerError {
			logger.Error("HTTP: Ошибка хранилища", err,
				zap.String("operation", operation),
				zap.String("client_ip", r.RemoteAddr))
		} else {
			logger.Warn("HTTP: Бизнес-ошибка",
				zap.String("operation", operation),
				zap.String("error_code", businessErr.Code),
				zap.Int("http_status", statusCode))
		}

		responseWithJSON(w, statusCode,
			toPayload("error", businessErr.Code),
			toPayload("message", businessErr.Message),
			toPayload("details", businessErr.Details),
		)
		return
	}

	logger.Error("HTTP: Ошибка Service", err,
		zap.String("operation", operation),
		zap.String("client_ip", r.RemoteAddr))
	responseWithError(w, http.StatusInternalServerError, "внутренняя ошибка сервера")
}

// Ошибки таймера для клиента единообразно 400, включая not found.
// Конфликт версий отдельным 409, чтобы клиент мог повторить запрос.
func mapBusinessErrorToHTTP(code string) int {
	switch code {
	case service.CodeNotFound, service.CodeForbidden, service.CodeInvalidTransition, service.CodeValidation:
		return http.StatusBadRequest
	case service.CodeVersionConflict:
		return http.StatusConflict
	case service.CodeStorageFailure:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// errors стандартизирует ответы об ошибках HTTP-слоя.
// На вход принимает ошибку сервиса (sentinel-ошибки internal/service
// или ошибки контекста), на выход даёт:
//   - корректный HTTP-статус;
//   - краткое безопасное message без утечки деталей (причина остаётся в логах).
//
// Источник истинности по маппингу: комментарии к ошибкам в internal/service.
package errors

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/pribylovaa/accounts-service/internal/http/response"
	"github.com/pribylovaa/accounts-service/internal/pkg/log"
	"github.com/pribylovaa/accounts-service/internal/service"
	"github.com/pribylovaa/accounts-service/internal/storage"
)

// Нестандартный код, часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// ErrBadRequest — локальная ошибка разбора запроса (битый JSON/multipart).
var ErrBadRequest = stderrors.New("bad request")

// ToHTTP конвертирует ошибку в HTTP-статус и безопасное сообщение.
//
// Поведение:
//   - err == nil: программная ошибка вызова, 500;
//   - неизвестная ошибка — 500/internal error.
func ToHTTP(err error) (int, string) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, "internal error"
	case stderrors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "malformed request"
	case stderrors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, "all required fields must be provided and valid"
	case stderrors.Is(err, service.ErrUploadFailed):
		if stderrors.Is(err, storage.ErrInvalidMedia) {
			return http.StatusBadRequest, "unsupported or oversized media file"
		}
		return http.StatusBadRequest, "failed to upload media"
	case stderrors.Is(err, service.ErrAccountTaken):
		return http.StatusConflict, "username or email already exists"
	case stderrors.Is(err, service.ErrAccountNotFound):
		return http.StatusNotFound, "account does not exist"
	case stderrors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case stderrors.Is(err, service.ErrTokenExpired):
		return http.StatusUnauthorized, "token expired"
	case stderrors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized, "invalid token"
	case stderrors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized request"
	case stderrors.Is(err, context.Canceled):
		return StatusClientClosedRequest, "canceled"
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "deadline exceeded"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет конверт ошибки; 5xx дополнительно логируются с причиной.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := ToHTTP(err)

	if status >= http.StatusInternalServerError {
		log.From(r.Context()).Error("request_failed",
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			log.Err(err),
		)
	}

	response.Write(w, r, response.New(status, msg, nil))
}

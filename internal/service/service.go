// service содержит бизнес-логику accounts-service:
// регистрацию и вход, выпуск/проверку/ротацию пары токенов,
// смену пароля и изменение профиля (включая изображения).
//
// Основные аспекты:
//   - Service не хранит состояние запроса; экземпляр безопасен для конкурентного
//     использования, если потокобезопасны переданные хранилище и загрузчик.
//   - Одна активная сессия на учётную запись: в хранилище лежит дайджест
//     только последнего выданного refresh-токена.
//   - Ошибки возвращаются и далее маппятся транспортом на HTTP-статусы
//     (см. комментарии к переменным ошибок ниже).
package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/pribylovaa/accounts-service/internal/cache"
	"github.com/pribylovaa/accounts-service/internal/config"
	"github.com/pribylovaa/accounts-service/internal/storage"
)

var (
	// ErrInvalidInput — обязательное поле отсутствует/пустое или имеет неверный формат.
	// HTTP 400.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAccountTaken — username или e-mail уже заняты. HTTP 409.
	ErrAccountTaken = errors.New("account with this username or email already exists")

	// ErrUploadFailed — не удалось загрузить изображение (тип/размер/хранилище).
	// HTTP 400.
	ErrUploadFailed = errors.New("media upload failed")

	// ErrAccountNotFound — учётная запись не найдена. HTTP 404.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInvalidCredentials — неверный пароль. HTTP 401.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthorized — нет токена или субъект токена больше не существует. HTTP 401.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidToken — токен некорректен по формату/подписи/issuer/audience
	// либо refresh-токен не совпадает с текущим. HTTP 401.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired — срок действия токена истёк; частный случай ErrInvalidToken.
	// HTTP 401.
	ErrTokenExpired = fmt.Errorf("token expired: %w", ErrInvalidToken)

	// ErrInternal — сбой хранилища или криптографии. HTTP 500.
	ErrInternal = errors.New("internal error")
)

// Service описывает бизнес-логику accounts-service.
type Service struct {
	storage storage.AccountsStorage
	media   storage.MediaUploader
	cfg     config.AuthConfig

	acache   cache.AccountCache // может быть nil, если кэш не сконфигурирован
	cacheTTL time.Duration

	now func() time.Time
}

// New создаёт новый экземпляр Service.
func New(storage storage.AccountsStorage, media storage.MediaUploader, cfg config.AuthConfig) *Service {
	return &Service{
		storage: storage,
		media:   media,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SetAccountCache устанавливает кэш идентичности (опционально).
func (s *Service) SetAccountCache(c cache.AccountCache, ttl time.Duration) {
	s.acache = c
	s.cacheTTL = ttl
}

// internalErr помечает сбой инфраструктуры как ErrInternal, сохраняя причину.
func internalErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrInternal, err)
}

// outcome — метка результата для метрик.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrAccountTaken):
		return "conflict"
	case errors.Is(err, ErrAccountNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrUnauthorized):
		return "invalid_token"
	case errors.Is(err, ErrUploadFailed):
		return "upload_failed"
	default:
		return "error"
	}
}

// storage содержит контракты слоя хранилищ accounts-service.
//
// storage.go - учётные записи в БД (создание/чтение/частичное обновление,
// дайджест refresh-токена и пароль).
// media.go - загрузка изображений профиля в объектное хранилище.
package storage

//go:generate mockgen -source=storage.go -destination=../../mocks/storage.go -package=mocks

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/accounts-service/internal/models"
)

var (
	// ErrNotFound — учётная запись не найдена.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (username/email).
	ErrAlreadyExists = errors.New("already exists")
	// ErrTokenMismatch — сохранённый дайджест refresh-токена не совпал с ожидаемым.
	ErrTokenMismatch = errors.New("refresh token mismatch")
)

// AccountUpdate — частичное обновление учётной записи.
// Обновляются только ненулевые указатели.
type AccountUpdate struct {
	FullName      *string
	Email         *string
	AvatarURL     *string
	CoverImageURL *string
}

// Empty сообщает, что обновлять нечего.
func (u AccountUpdate) Empty() bool {
	return u.FullName == nil && u.Email == nil && u.AvatarURL == nil && u.CoverImageURL == nil
}

// AccountsStorage — контракт хранилища учётных записей.
type AccountsStorage interface {
	// AccountByUsernameOrEmail ищет запись по username ИЛИ email;
	// пустой аргумент в поиске не участвует.
	AccountByUsernameOrEmail(ctx context.Context, username, email string) (*models.Account, error)
	// AccountByID возвращает запись по идентификатору.
	AccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	// CreateAccount сохраняет новую запись и возвращает её в сохранённом виде.
	CreateAccount(ctx context.Context, account *models.Account) (*models.Account, error)
	// SetRefreshToken перезаписывает дайджест текущего refresh-токена.
	// Пустой hash очищает сессию.
	SetRefreshToken(ctx context.Context, id uuid.UUID, hash string, expiresAt time.Time) error
	// RotateRefreshToken атомарно заменяет дайджест oldHash на newHash.
	// Если сохранён другой дайджест (или записи нет), возвращает ErrTokenMismatch.
	RotateRefreshToken(ctx context.Context, id uuid.UUID, oldHash, newHash string, expiresAt time.Time) error
	// SetPasswordHash сохраняет новый хэш пароля.
	SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	// UpdateAccount выполняет частичное обновление и обновляет updated_at.
	UpdateAccount(ctx context.Context, id uuid.UUID, update AccountUpdate) (*models.Account, error)
	// ClearExpiredRefreshTokens очищает истёкшие сессии, возвращает число затронутых записей.
	ClearExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error)
}

// Storage — верхнеуровневый интерфейс хранилища учётных записей.
type Storage interface {
	AccountsStorage
	Close()
}

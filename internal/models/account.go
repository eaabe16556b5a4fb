// models содержит доменные сущности accounts-service.
// Эти типы используются слоями бизнес-логики, хранилища и транспорта.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Account — учётная запись пользователя.
//
// PasswordHash и RefreshTokenHash никогда не покидают сервис:
// наружу отдаётся только PublicAccount (см. Public).
type Account struct {
	ID       uuid.UUID
	Username string
	Email    string
	FullName string
	// AvatarURL — основное изображение профиля, обязательно.
	AvatarURL string
	// CoverImageURL — обложка профиля, может быть пустой.
	CoverImageURL string
	PasswordHash  string
	// RefreshTokenHash — дайджест последнего выданного refresh-токена;
	// пустая строка означает отсутствие активной сессии.
	RefreshTokenHash string
	RefreshExpiresAt time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// PublicAccount — безопасная проекция Account для ответов API.
type PublicAccount struct {
	ID            uuid.UUID `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	FullName      string    `json:"fullName"`
	AvatarURL     string    `json:"avatar"`
	CoverImageURL string    `json:"coverImage"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Public возвращает проекцию без пароля и refresh-токена.
func (a *Account) Public() *PublicAccount {
	if a == nil {
		return nil
	}

	return &PublicAccount{
		ID:            a.ID,
		Username:      a.Username,
		Email:         a.Email,
		FullName:      a.FullName,
		AvatarURL:     a.AvatarURL,
		CoverImageURL: a.CoverImageURL,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/pribylovaa/accounts-service/internal/models"
	"github.com/pribylovaa/accounts-service/internal/pkg/log"
	"github.com/pribylovaa/accounts-service/internal/storage"
)

// UpdateAccountInput — частичное изменение профиля.
// nil — поле не меняется; переданное поле не может быть пустым.
type UpdateAccountInput struct {
	AccountID uuid.UUID
	FullName  *string
	Email     *string
}

// CurrentAccount возвращает публичные данные аккаунта.
func (s *Service) CurrentAccount(ctx context.Context, id uuid.UUID) (*models.PublicAccount, error) {
	const op = "service.accounts.CurrentAccount"

	account, err := s.storage.AccountByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrAccountNotFound)
		}

		return nil, internalErr(op, err)
	}

	return account.Public(), nil
}

// UpdateAccount меняет имя и/или e-mail.
func (s *Service) UpdateAccount(ctx context.Context, in UpdateAccountInput) (*models.PublicAccount, error) {
	const op = "service.accounts.UpdateAccount"

	if in.FullName == nil && in.Email == nil {
		return nil, fmt.Errorf("%s: nothing to update: %w", op, ErrInvalidInput)
	}

	var upd storage.AccountUpdate

	if in.FullName != nil {
		name := strings.TrimSpace(*in.FullName)
		if name == "" {
			return nil, fmt.Errorf("%s: full name must not be empty: %w", op, ErrInvalidInput)
		}
		upd.FullName = &name
	}

	if in.Email != nil {
		email, err := validateEmail(*in.Email)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		upd.Email = &email
	}

	return s.applyUpdate(ctx, op, in.AccountID, upd)
}

// UpdateAvatar загружает новое основное изображение и сохраняет его URL.
func (s *Service) UpdateAvatar(ctx context.Context, id uuid.UUID, localPath string) (*models.PublicAccount, error) {
	const op = "service.accounts.UpdateAvatar"

	if blank(localPath) {
		return nil, fmt.Errorf("%s: avatar file is required: %w", op, ErrInvalidInput)
	}

	res, err := s.upload(ctx, op, localPath)
	if err != nil {
		return nil, err
	}

	return s.applyUpdate(ctx, op, id, storage.AccountUpdate{AvatarURL: &res.URL})
}

// UpdateCoverImage загружает новую обложку и сохраняет её URL.
func (s *Service) UpdateCoverImage(ctx context.Context, id uuid.UUID, localPath string) (*models.PublicAccount, error) {
	const op = "service.accounts.UpdateCoverImage"

	if blank(localPath) {
		return nil, fmt.Errorf("%s: cover image file is required: %w", op, ErrInvalidInput)
	}

	res, err := s.upload(ctx, op, localPath)
	if err != nil {
		return nil, err
	}

	return s.applyUpdate(ctx, op, id, storage.AccountUpdate{CoverImageURL: &res.URL})
}

func (s *Service) applyUpdate(ctx context.Context, op string, id uuid.UUID, upd storage.AccountUpdate) (*models.PublicAccount, error) {
	account, err := s.storage.UpdateAccount(ctx, id, upd)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return nil, fmt.Errorf("%s: %w", op, ErrAccountNotFound)
		case errors.Is(err, storage.ErrAlreadyExists):
			return nil, fmt.Errorf("%s: %w", op, ErrAccountTaken)
		default:
			return nil, internalErr(op, err)
		}
	}

	s.evictAccount(ctx, id)

	log.From(ctx).Info("account_updated",
		slog.String("op", op),
		slog.String("user_id", id.String()),
	)

	return account.Public(), nil
}

// upload передаёт локальный файл в объектное хранилище.
// Любая ошибка загрузчика оборачивается в ErrUploadFailed.
func (s *Service) upload(ctx context.Context, op, localPath string) (*storage.UploadResult, error) {
	res, err := s.media.Upload(ctx, localPath)
	if err != nil {
		log.From(ctx).Warn("media_upload_failed",
			slog.String("op", op),
			log.Err(err),
		)
		return nil, fmt.Errorf("%s: %w: %w", op, ErrUploadFailed, err)
	}

	if res == nil || res.URL == "" {
		return nil, fmt.Errorf("%s: empty upload result: %w", op, ErrUploadFailed)
	}

	return res, nil
}

// cachedAccount читает кэш идентичности; ошибка кэша — промах.
func (s *Service) cachedAccount(ctx context.Context, id uuid.UUID) (*models.PublicAccount, bool) {
	if s.acache == nil {
		return nil, false
	}

	acc, ok, err := s.acache.Get(ctx, id)
	if err != nil {
		log.From(ctx).Warn("account_cache_get_failed",
			slog.String("user_id", id.String()),
			log.Err(err),
		)
		return nil, false
	}

	return acc, ok
}

func (s *Service) cacheAccount(ctx context.Context, acc *models.PublicAccount) {
	if s.acache == nil || s.cacheTTL <= 0 {
		return
	}

	if err := s.acache.Set(ctx, acc, s.cacheTTL); err != nil {
		log.From(ctx).Warn("account_cache_set_failed",
			slog.String("user_id", acc.ID.String()),
			log.Err(err),
		)
	}
}

func (s *Service) evictAccount(ctx context.Context, id uuid.UUID) {
	if s.acache == nil {
		return
	}

	if err := s.acache.Delete(ctx, id); err != nil {
		log.From(ctx).Warn("account_cache_delete_failed",
			slog.String("user_id", id.String()),
			log.Err(err),
		)
	}
}

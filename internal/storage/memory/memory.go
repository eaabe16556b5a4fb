// memory — потокобезопасная in-memory реализация storage.Storage
// для локального запуска (db.driver: memory) и сценарных тестов.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/accounts-service/internal/models"
	"github.com/pribylovaa/accounts-service/internal/storage"
)

type Storage struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*models.Account
	now      func() time.Time
}

// New создает пустое хранилище.
func New() *Storage {
	return &Storage{
		accounts: make(map[uuid.UUID]*models.Account),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func clone(a *models.Account) *models.Account {
	c := *a
	return &c
}

// conflicts проверяет уникальность username/email без учёта регистра.
// Вызывать под mu.
func (s *Storage) conflicts(skip uuid.UUID, username, email string) bool {
	for id, a := range s.accounts {
		if id == skip {
			continue
		}
		if username != "" && strings.EqualFold(a.Username, username) {
			return true
		}
		if email != "" && strings.EqualFold(a.Email, email) {
			return true
		}
	}

	return false
}

func (s *Storage) AccountByUsernameOrEmail(_ context.Context, username, email string) (*models.Account, error) {
	const op = "storage.memory.AccountByUsernameOrEmail"

	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *models.Account
	for _, a := range s.accounts {
		if (username != "" && strings.EqualFold(a.Username, username)) ||
			(email != "" && strings.EqualFold(a.Email, email)) {
			if found == nil || a.CreatedAt.Before(found.CreatedAt) {
				found = a
			}
		}
	}

	if found == nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return clone(found), nil
}

func (s *Storage) AccountByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	const op = "storage.memory.AccountByID"

	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return clone(a), nil
}

func (s *Storage) CreateAccount(_ context.Context, account *models.Account) (*models.Account, error) {
	const op = "storage.memory.CreateAccount"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[account.ID]; ok || s.conflicts(account.ID, account.Username, account.Email) {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}

	a := clone(account)
	now := s.now()
	a.CreatedAt, a.UpdatedAt = now, now
	a.RefreshTokenHash, a.RefreshExpiresAt = "", time.Time{}
	s.accounts[a.ID] = a

	return clone(a), nil
}

func (s *Storage) SetRefreshToken(_ context.Context, id uuid.UUID, hash string, expiresAt time.Time) error {
	const op = "storage.memory.SetRefreshToken"

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	if hash == "" {
		expiresAt = time.Time{}
	}
	a.RefreshTokenHash, a.RefreshExpiresAt = hash, expiresAt.UTC()

	return nil
}

func (s *Storage) RotateRefreshToken(_ context.Context, id uuid.UUID, oldHash, newHash string, expiresAt time.Time) error {
	const op = "storage.memory.RotateRefreshToken"

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok || oldHash == "" || newHash == "" || a.RefreshTokenHash != oldHash {
		return fmt.Errorf("%s: %w", op, storage.ErrTokenMismatch)
	}

	a.RefreshTokenHash, a.RefreshExpiresAt = newHash, expiresAt.UTC()

	return nil
}

func (s *Storage) SetPasswordHash(_ context.Context, id uuid.UUID, hash string) error {
	const op = "storage.memory.SetPasswordHash"

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	a.PasswordHash = hash
	a.UpdatedAt = s.now()

	return nil
}

func (s *Storage) UpdateAccount(_ context.Context, id uuid.UUID, update storage.AccountUpdate) (*models.Account, error) {
	const op = "storage.memory.UpdateAccount"

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	if update.Email != nil && s.conflicts(id, "", *update.Email) {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}

	if update.FullName != nil {
		a.FullName = *update.FullName
	}
	if update.Email != nil {
		a.Email = *update.Email
	}
	if update.AvatarURL != nil {
		a.AvatarURL = *update.AvatarURL
	}
	if update.CoverImageURL != nil {
		a.CoverImageURL = *update.CoverImageURL
	}
	a.UpdatedAt = s.now()

	return clone(a), nil
}

func (s *Storage) ClearExpiredRefreshTokens(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, a := range s.accounts {
		if a.RefreshTokenHash != "" && !a.RefreshExpiresAt.After(now) {
			a.RefreshTokenHash, a.RefreshExpiresAt = "", time.Time{}
			n++
		}
	}

	return n, nil
}

// Close — no-op.
func (s *Storage) Close() {}

var _ storage.Storage = (*Storage)(nil)

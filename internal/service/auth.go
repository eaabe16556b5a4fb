package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/pribylovaa/accounts-service/internal/metrics"
	"github.com/pribylovaa/accounts-service/internal/models"
	"github.com/pribylovaa/accounts-service/internal/pkg/log"
	"github.com/pribylovaa/accounts-service/internal/pkg/redact"
	"github.com/pribylovaa/accounts-service/internal/storage"
)

// RegisterInput — данные регистрации. AvatarPath/CoverImagePath —
// локальные пути к уже принятым файлам; обложка необязательна.
type RegisterInput struct {
	Username       string
	Email          string
	FullName       string
	Password       string
	AvatarPath     string
	CoverImagePath string
}

// LoginInput — вход по username или e-mail.
type LoginInput struct {
	Username string
	Email    string
	Password string
}

// LoginResult — выданная пара токенов и публичные данные аккаунта.
type LoginResult struct {
	Account *models.PublicAccount
	Tokens  *models.TokenPair
}

// ChangePasswordInput — смена пароля аутентифицированным пользователем.
type ChangePasswordInput struct {
	AccountID   uuid.UUID
	OldPassword string
	NewPassword string
}

// Register создаёт учётную запись. Токены не выдаются.
// Порядок: валидация -> проверка занятости -> хэш -> загрузка изображений -> запись.
func (s *Service) Register(ctx context.Context, in RegisterInput) (_ *models.PublicAccount, err error) {
	const op = "service.auth.Register"

	defer func() { metrics.AuthEvent("register", outcome(err)) }()

	lg := log.From(ctx).With(slog.String("op", op))

	username := normalizeLogin(in.Username)
	fullName := strings.TrimSpace(in.FullName)

	if username == "" || fullName == "" || blank(in.Email) || blank(in.Password) {
		return nil, fmt.Errorf("%s: all fields are required: %w", op, ErrInvalidInput)
	}

	email, err := validateEmail(in.Email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := validatePassword(in.Password); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if blank(in.AvatarPath) {
		return nil, fmt.Errorf("%s: avatar file is required: %w", op, ErrInvalidInput)
	}

	_, err = s.storage.AccountByUsernameOrEmail(ctx, username, email)
	if err == nil {
		lg.Info("register_conflict", slog.String("username", username), slog.String("email", redact.Email(email)))
		return nil, fmt.Errorf("%s: %w", op, ErrAccountTaken)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, internalErr(op, err)
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	avatar, err := s.upload(ctx, op, in.AvatarPath)
	if err != nil {
		return nil, err
	}

	var coverURL string
	if !blank(in.CoverImagePath) {
		cover, err := s.upload(ctx, op, in.CoverImagePath)
		if err != nil {
			return nil, err
		}
		coverURL = cover.URL
	}

	now := s.now()
	created, err := s.storage.CreateAccount(ctx, &models.Account{
		ID:            uuid.New(),
		Username:      username,
		Email:         email,
		FullName:      fullName,
		AvatarURL:     avatar.URL,
		CoverImageURL: coverURL,
		PasswordHash:  hash,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%s: %w", op, ErrAccountTaken)
		}

		return nil, internalErr(op, err)
	}

	lg.Info("account_registered", slog.String("user_id", created.ID.String()))

	return created.Public(), nil
}

// Login проверяет пароль и открывает новую сессию, вытесняя предыдущую.
func (s *Service) Login(ctx context.Context, in LoginInput) (res *LoginResult, err error) {
	const op = "service.auth.Login"

	defer func() { metrics.AuthEvent("login", outcome(err)) }()

	username := normalizeLogin(in.Username)
	email := normalizeLogin(in.Email)

	if username == "" && email == "" {
		return nil, fmt.Errorf("%s: username or email is required: %w", op, ErrInvalidInput)
	}

	if blank(in.Password) {
		return nil, fmt.Errorf("%s: password is required: %w", op, ErrInvalidInput)
	}

	lg := log.From(ctx).With(slog.String("op", op))

	account, err := s.storage.AccountByUsernameOrEmail(ctx, username, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Info("login_account_not_found", slog.String("login", redact.Login(username+email)))
			return nil, fmt.Errorf("%s: %w", op, ErrAccountNotFound)
		}

		return nil, internalErr(op, err)
	}

	if !checkPassword(account.PasswordHash, in.Password) {
		lg.Info("login_invalid_password", slog.String("user_id", account.ID.String()))
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	pair, err := s.issueTokenPair(ctx, account, "")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("login_succeeded", slog.String("user_id", account.ID.String()))

	return &LoginResult{Account: account.Public(), Tokens: pair}, nil
}

// Logout закрывает сессию: сохранённый refresh-токен очищается безусловно.
// Повторный вызов не является ошибкой.
func (s *Service) Logout(ctx context.Context, accountID uuid.UUID) (err error) {
	const op = "service.auth.Logout"

	defer func() { metrics.AuthEvent("logout", outcome(err)) }()

	if err := s.storage.SetRefreshToken(ctx, accountID, "", s.now()); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}

		return internalErr(op, err)
	}

	log.From(ctx).Info("logout_succeeded",
		slog.String("op", op),
		slog.String("user_id", accountID.String()),
	)

	return nil
}

// Refresh ротирует пару токенов. Принимается только последний выданный
// refresh-токен аккаунта; любой другой (в т.ч. после logout) — ErrInvalidToken.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (pair *models.TokenPair, err error) {
	const op = "service.auth.Refresh"

	defer func() { metrics.AuthEvent("refresh", outcome(err)) }()

	if blank(refreshToken) {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	lg := log.From(ctx).With(slog.String("op", op))

	uid, err := s.verifyRefreshToken(refreshToken)
	if err != nil {
		lg.Info("refresh_token_rejected",
			slog.String("token", redact.Token(refreshToken)),
			log.Err(err),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	account, err := s.storage.AccountByID(ctx, uid)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrAccountNotFound)
		}

		return nil, internalErr(op, err)
	}

	if !tokenMatches(account.RefreshTokenHash, refreshToken) {
		lg.Warn("refresh_token_reuse_detected",
			slog.String("user_id", uid.String()),
			slog.String("token", redact.Token(refreshToken)),
			slog.Bool("session_active", account.RefreshTokenHash != ""),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	pair, err = s.issueTokenPair(ctx, account, account.RefreshTokenHash)
	if err != nil {
		if errors.Is(err, storage.ErrTokenMismatch) {
			// Токен успели ротировать параллельным запросом.
			lg.Warn("refresh_token_reuse_detected",
				slog.String("user_id", uid.String()),
				slog.String("token", redact.Token(refreshToken)),
				slog.Bool("concurrent", true),
			)
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("refresh_token_rotated", slog.String("user_id", uid.String()))

	return pair, nil
}

// ChangePassword меняет пароль после проверки старого. Сессия не ротируется.
func (s *Service) ChangePassword(ctx context.Context, in ChangePasswordInput) error {
	const op = "service.auth.ChangePassword"

	if blank(in.OldPassword) || blank(in.NewPassword) {
		return fmt.Errorf("%s: old and new password are required: %w", op, ErrInvalidInput)
	}

	if err := validatePassword(in.NewPassword); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	account, err := s.storage.AccountByID(ctx, in.AccountID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrAccountNotFound)
		}

		return internalErr(op, err)
	}

	if !checkPassword(account.PasswordHash, in.OldPassword) {
		return fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	hash, err := s.hashPassword(in.NewPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.SetPasswordHash(ctx, account.ID, hash); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrAccountNotFound)
		}

		return internalErr(op, err)
	}

	log.From(ctx).Info("password_changed",
		slog.String("op", op),
		slog.String("user_id", account.ID.String()),
	)

	return nil
}

// VerifyIdentity проверяет access-токен и возвращает публичные данные владельца.
// Сохранённое состояние сессии не проверяется: access-токен живёт до exp.
func (s *Service) VerifyIdentity(ctx context.Context, accessToken string) (*models.PublicAccount, error) {
	const op = "service.auth.VerifyIdentity"

	if blank(accessToken) {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	uid, err := s.verifyAccessToken(accessToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if acc, ok := s.cachedAccount(ctx, uid); ok {
		return acc, nil
	}

	account, err := s.storage.AccountByID(ctx, uid)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
		}

		return nil, internalErr(op, err)
	}

	pub := account.Public()
	s.cacheAccount(ctx, pub)

	return pub, nil
}

// ClearExpiredSessions очищает истёкшие refresh-токены (для фонового janitor).
func (s *Service) ClearExpiredSessions(ctx context.Context) (int64, error) {
	const op = "service.auth.ClearExpiredSessions"

	n, err := s.storage.ClearExpiredRefreshTokens(ctx, s.now())
	if err != nil {
		return 0, internalErr(op, err)
	}

	return n, nil
}

// issueTokenPair выпускает пару и сохраняет дайджест refresh-токена,
// вытесняя предыдущий. Если сохранить не удалось, токены не возвращаются.
// Непустой prevHash включает compare-and-swap: дайджест заменяется, только если
// в хранилище всё ещё лежит prevHash (иначе storage.ErrTokenMismatch).
func (s *Service) issueTokenPair(ctx context.Context, account *models.Account, prevHash string) (*models.TokenPair, error) {
	const op = "service.auth.issueTokenPair"

	now := s.now()

	access, accessExp, err := s.issueAccessToken(ctx, account, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	refresh, refreshExp, err := s.issueRefreshToken(ctx, account.ID, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if prevHash != "" {
		err = s.storage.RotateRefreshToken(ctx, account.ID, prevHash, hashToken(refresh), refreshExp)
	} else {
		err = s.storage.SetRefreshToken(ctx, account.ID, hashToken(refresh), refreshExp)
	}

	if err != nil {
		if errors.Is(err, storage.ErrTokenMismatch) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		log.From(ctx).Error("save_refresh_token_failed",
			slog.String("op", op),
			slog.String("user_id", account.ID.String()),
			log.Err(err),
		)
		return nil, internalErr(op, err)
	}

	return &models.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// validateEmail обрезает пробелы, проверяет формат и приводит к нижнему регистру.
// Допускается только голый адрес, без display name.
func validateEmail(raw string) (string, error) {
	const op = "service.auth.validateEmail"

	email := strings.TrimSpace(raw)
	if email == "" {
		return "", fmt.Errorf("%s: email is required: %w", op, ErrInvalidInput)
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%s: invalid email format: %w", op, ErrInvalidInput)
	}

	return strings.ToLower(email), nil
}

func normalizeLogin(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// blank — поле отсутствует или пустое после TrimSpace.
func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pribylovaa/accounts-service/internal/models"
	"github.com/pribylovaa/accounts-service/internal/pkg/log"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"

	tokenLeeway = 5 * time.Second
)

type accessClaims struct {
	UserID   string `json:"uid"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Type     string `json:"typ"`
	jwt.RegisteredClaims
}

type refreshClaims struct {
	UserID string `json:"uid"`
	Type   string `json:"typ"`
	jwt.RegisteredClaims
}

func (s *Service) registeredClaims(subject uuid.UUID, now time.Time, ttl time.Duration) (jwt.RegisteredClaims, time.Time) {
	exp := now.Add(ttl)

	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   subject.String(),
		Issuer:    s.cfg.Issuer,
		Audience:  jwt.ClaimStrings(s.cfg.Audience),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}, exp
}

// issueAccessToken подписывает короткоживущий access-токен с идентичностью аккаунта.
func (s *Service) issueAccessToken(ctx context.Context, account *models.Account, now time.Time) (string, time.Time, error) {
	const op = "service.token.issueAccessToken"

	rc, exp := s.registeredClaims(account.ID, now, s.cfg.AccessTokenTTL)
	claims := accessClaims{
		UserID:           account.ID.String(),
		Username:         account.Username,
		Email:            account.Email,
		Type:             tokenTypeAccess,
		RegisteredClaims: rc,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.AccessSecret))
	if err != nil {
		log.From(ctx).Error("access_token_sign_failed",
			slog.String("op", op),
			log.Err(err),
		)
		return "", time.Time{}, internalErr(op, err)
	}

	return signed, exp, nil
}

// issueRefreshToken подписывает refresh-токен отдельным секретом.
// jti уникален, поэтому два токена, выпущенные в одну секунду, различаются.
func (s *Service) issueRefreshToken(ctx context.Context, accountID uuid.UUID, now time.Time) (string, time.Time, error) {
	const op = "service.token.issueRefreshToken"

	rc, exp := s.registeredClaims(accountID, now, s.cfg.RefreshTokenTTL)
	claims := refreshClaims{
		UserID:           accountID.String(),
		Type:             tokenTypeRefresh,
		RegisteredClaims: rc,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.RefreshSecret))
	if err != nil {
		log.From(ctx).Error("refresh_token_sign_failed",
			slog.String("op", op),
			log.Err(err),
		)
		return "", time.Time{}, internalErr(op, err)
	}

	return signed, exp, nil
}

// parseToken проверяет алгоритм (только HS256), подпись, срок, issuer и audience.
func (s *Service) parseToken(op, tokenStr, secret string, claims jwt.Claims) error {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(tokenLeeway),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if len(s.cfg.Audience) > 0 {
		opts = append(opts, jwt.WithAudience(s.cfg.Audience...))
	}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return fmt.Errorf("%s: %w", op, ErrTokenExpired)
		}

		return fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	if !token.Valid {
		return fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return nil
}

// verifyAccessToken валидирует access-токен и возвращает id аккаунта.
// Хранилище не используется.
func (s *Service) verifyAccessToken(tokenStr string) (uuid.UUID, error) {
	const op = "service.token.verifyAccessToken"

	var claims accessClaims
	if err := s.parseToken(op, tokenStr, s.cfg.AccessSecret, &claims); err != nil {
		return uuid.Nil, err
	}

	if claims.Type != tokenTypeAccess {
		return uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	uid, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return uid, nil
}

// verifyRefreshToken валидирует подпись/срок refresh-токена и возвращает id аккаунта.
// Совпадение с текущим токеном аккаунта проверяет вызывающая сторона.
func (s *Service) verifyRefreshToken(tokenStr string) (uuid.UUID, error) {
	const op = "service.token.verifyRefreshToken"

	var claims refreshClaims
	if err := s.parseToken(op, tokenStr, s.cfg.RefreshSecret, &claims); err != nil {
		return uuid.Nil, err
	}

	if claims.Type != tokenTypeRefresh {
		return uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	uid, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return uid, nil
}

// hashToken — дайджест refresh-токена для хранения (SHA-256, base64url).
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// tokenMatches сравнивает предъявленный токен с сохранённым дайджестом за постоянное время.
func tokenMatches(stored, presented string) bool {
	if stored == "" || presented == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(stored), []byte(hashToken(presented))) == 1
}

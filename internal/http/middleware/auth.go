package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	apierrors "github.com/pribylovaa/accounts-service/internal/errors"
	"github.com/pribylovaa/accounts-service/internal/models"
	"github.com/pribylovaa/accounts-service/internal/service"
)

// AccessTokenCookie — имя cookie с access-токеном.
const AccessTokenCookie = "accessToken"

// IdentityVerifier проверяет access-токен и возвращает владельца.
type IdentityVerifier interface {
	VerifyIdentity(ctx context.Context, accessToken string) (*models.PublicAccount, error)
}

type accountKey struct{}

// Authenticate — guard защищённых маршрутов. Токен берётся из cookie accessToken,
// иначе из Authorization: Bearer. Найденный аккаунт кладётся в контекст
// нового запроса; при ошибке цепочка обрывается ответом 401.
func Authenticate(v IdentityVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r)
			if token == "" {
				apierrors.WriteError(w, r, fmt.Errorf("middleware.Authenticate: %w", service.ErrUnauthorized))
				return
			}

			account, err := v.VerifyIdentity(r.Context(), token)
			if err != nil {
				apierrors.WriteError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), account)))
		})
	}
}

// WithAccount кладёт аутентифицированный аккаунт в контекст.
func WithAccount(ctx context.Context, account *models.PublicAccount) context.Context {
	return context.WithValue(ctx, accountKey{}, account)
}

// AccountFromContext достаёт аккаунт, положенный Authenticate.
func AccountFromContext(ctx context.Context) (*models.PublicAccount, bool) {
	acc, ok := ctx.Value(accountKey{}).(*models.PublicAccount)
	return acc, ok && acc != nil
}

func tokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(AccessTokenCookie); err == nil {
		if tok := strings.TrimSpace(c.Value); tok != "" {
			return tok
		}
	}

	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return strings.TrimSpace(auth[len(prefix):])
	}

	return ""
}

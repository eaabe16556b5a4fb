package handlers

import (
	"net/http"
	"time"

	"github.com/pribylovaa/accounts-service/internal/http/middleware"
	"github.com/pribylovaa/accounts-service/internal/models"
)

// RefreshTokenCookie — имя cookie с refresh-токеном.
const RefreshTokenCookie = "refreshToken"

func (h *Handlers) sessionCookie(name, value string, expires time.Time) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   !h.opts.InsecureCookies,
		SameSite: http.SameSiteLaxMode,
	}

	if value == "" {
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
		return c
	}

	c.Expires = expires
	if maxAge := int(expires.Sub(h.now()).Seconds()); maxAge > 0 {
		c.MaxAge = maxAge
	}

	return c
}

func (h *Handlers) setSessionCookies(w http.ResponseWriter, pair *models.TokenPair) {
	http.SetCookie(w, h.sessionCookie(middleware.AccessTokenCookie, pair.AccessToken, pair.AccessExpiresAt))
	http.SetCookie(w, h.sessionCookie(RefreshTokenCookie, pair.RefreshToken, pair.RefreshExpiresAt))
}

func (h *Handlers) clearSessionCookies(w http.ResponseWriter) {
	http.SetCookie(w, h.sessionCookie(middleware.AccessTokenCookie, "", time.Time{}))
	http.SetCookie(w, h.sessionCookie(RefreshTokenCookie, "", time.Time{}))
}

package handlers

import (
	"net/http"
	"strings"

	apierrors "github.com/pribylovaa/accounts-service/internal/errors"
	"github.com/pribylovaa/accounts-service/internal/http/response"
	"github.com/pribylovaa/accounts-service/internal/service"
)

// Register — POST /users/register (multipart: username, email, fullName, password, avatar, coverImage).
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	form, err := h.parseMultipart(w, r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}
	defer form.cleanup(r)

	avatar, err := form.saveFile(h.opts.TempDir, "avatar")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	cover, err := form.saveFile(h.opts.TempDir, "coverImage")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	account, err := h.svc.Register(r.Context(), service.RegisterInput{
		Username:       form.value("username"),
		Email:          form.value("email"),
		FullName:       form.value("fullName"),
		Password:       form.value("password"),
		AvatarPath:     avatar,
		CoverImagePath: cover,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	response.OK(w, r, http.StatusCreated, "User registered successfully", account)
}

// Login — POST /users/login. Токены уходят и в cookie, и в тело.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Login(r.Context(), service.LoginInput{
		Username: in.Username,
		Email:    in.Email,
		Password: in.Password,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.setSessionCookies(w, res.Tokens)
	response.OK(w, r, http.StatusOK, "User logged in successfully", loginResponse{
		User:           res.Account,
		tokensResponse: tokensFromPair(res.Tokens),
	})
}

// RefreshToken — POST /users/refresh-token. Токен из cookie refreshToken, иначе из тела.
func (h *Handlers) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var token string
	if c, err := r.Cookie(RefreshTokenCookie); err == nil {
		token = strings.TrimSpace(c.Value)
	}

	if token == "" {
		var in refreshRequest
		if err := decodeOptional(r, &in); err != nil {
			apierrors.WriteError(w, r, err)
			return
		}
		token = in.RefreshToken
	}

	pair, err := h.svc.Refresh(r.Context(), token)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.setSessionCookies(w, pair)
	response.OK(w, r, http.StatusOK, "Access token refreshed", tokensFromPair(pair))
}

// Logout — POST /users/logout (guard). Cookie сессии очищаются.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	acc, ok := currentAccount(w, r)
	if !ok {
		return
	}

	if err := h.svc.Logout(r.Context(), acc.ID); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.clearSessionCookies(w)
	response.OK(w, r, http.StatusOK, "User logged out", struct{}{})
}

// ChangePassword — POST /users/change-password (guard).
func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	acc, ok := currentAccount(w, r)
	if !ok {
		return
	}

	var in changePasswordRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	err := h.svc.ChangePassword(r.Context(), service.ChangePasswordInput{
		AccountID:   acc.ID,
		OldPassword: in.OldPassword,
		NewPassword: in.NewPassword,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	response.OK(w, r, http.StatusOK, "Password changed successfully", struct{}{})
}

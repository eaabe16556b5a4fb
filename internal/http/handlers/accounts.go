package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	apierrors "github.com/pribylovaa/accounts-service/internal/errors"
	"github.com/pribylovaa/accounts-service/internal/http/response"
	"github.com/pribylovaa/accounts-service/internal/models"
	"github.com/pribylovaa/accounts-service/internal/service"
)

// CurrentUser — GET /users/current-user (guard). Данные перечитываются из хранилища.
func (h *Handlers) CurrentUser(w http.ResponseWriter, r *http.Request) {
	acc, ok := currentAccount(w, r)
	if !ok {
		return
	}

	fresh, err := h.svc.CurrentAccount(r.Context(), acc.ID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	response.OK(w, r, http.StatusOK, "Current user fetched successfully", fresh)
}

// UpdateAccount — PATCH /users/update-account (guard, JSON fullName/email).
func (h *Handlers) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	acc, ok := currentAccount(w, r)
	if !ok {
		return
	}

	var in updateAccountRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	updated, err := h.svc.UpdateAccount(r.Context(), service.UpdateAccountInput{
		AccountID: acc.ID,
		FullName:  in.FullName,
		Email:     in.Email,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	response.OK(w, r, http.StatusOK, "Account details updated successfully", updated)
}

// UpdateAvatar — PATCH /users/avatar (guard, multipart avatar).
func (h *Handlers) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateMedia(w, r, "avatar", "Avatar image updated successfully", h.svc.UpdateAvatar)
}

// UpdateCoverImage — PATCH /users/cover-image (guard, multipart coverImage).
func (h *Handlers) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.updateMedia(w, r, "coverImage", "Cover image updated successfully", h.svc.UpdateCoverImage)
}

type mediaUpdater func(ctx context.Context, id uuid.UUID, localPath string) (*models.PublicAccount, error)

func (h *Handlers) updateMedia(w http.ResponseWriter, r *http.Request, field, message string, update mediaUpdater) {
	acc, ok := currentAccount(w, r)
	if !ok {
		return
	}

	form, err := h.parseMultipart(w, r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}
	defer form.cleanup(r)

	path, err := form.saveFile(h.opts.TempDir, field)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	updated, err := update(r.Context(), acc.ID, path)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	response.OK(w, r, http.StatusOK, message, updated)
}

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/pribylovaa/accounts-service/internal/models"
	"github.com/pribylovaa/accounts-service/internal/storage"
	"github.com/pribylovaa/accounts-service/mocks"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestCurrentAccount(t *testing.T) {
	t.Parallel()

	svc, st, _ := newSvc(t)
	acc := testAccount()

	st.EXPECT().AccountByID(gomock.Any(), acc.ID).Return(acc, nil)
	pub, err := svc.CurrentAccount(context.Background(), acc.ID)
	require.NoError(t, err)
	require.Equal(t, acc.Email, pub.Email)

	st.EXPECT().AccountByID(gomock.Any(), gomock.Any()).Return(nil, storage.ErrNotFound)
	_, err = svc.CurrentAccount(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestUpdateAccount_OK_EvictsCache(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	svc, st, _ := newSvc(t)
	ac := mocks.NewMockAccountCache(ctrl)
	svc.SetAccountCache(ac, 0)

	acc := testAccount()
	updated := *acc
	updated.FullName = "Alice Cooper"
	updated.Email = "new@x.com"

	st.EXPECT().UpdateAccount(gomock.Any(), acc.ID, storage.AccountUpdate{
		FullName: strPtr("Alice Cooper"),
		Email:    strPtr("new@x.com"),
	}).Return(&updated, nil)
	ac.EXPECT().Delete(gomock.Any(), acc.ID).Return(nil)

	pub, err := svc.UpdateAccount(context.Background(), UpdateAccountInput{
		AccountID: acc.ID,
		FullName:  strPtr(" Alice Cooper "),
		Email:     strPtr("NEW@x.com"),
	})
	require.NoError(t, err)
	require.Equal(t, "Alice Cooper", pub.FullName)
	require.Equal(t, "new@x.com", pub.Email)
}

func TestUpdateAccount_InvalidInput(t *testing.T) {
	t.Parallel()

	svc, _, _ := newSvc(t)
	id := uuid.New()

	_, err := svc.UpdateAccount(context.Background(), UpdateAccountInput{AccountID: id})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.UpdateAccount(context.Background(), UpdateAccountInput{AccountID: id, FullName: strPtr("  ")})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.UpdateAccount(context.Background(), UpdateAccountInput{AccountID: id, Email: strPtr("nope")})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateAccount_StorageErrors(t *testing.T) {
	t.Parallel()

	svc, st, _ := newSvc(t)
	id := uuid.New()
	in := UpdateAccountInput{AccountID: id, Email: strPtr("taken@x.com")}

	st.EXPECT().UpdateAccount(gomock.Any(), id, gomock.Any()).Return(nil, storage.ErrAlreadyExists)
	_, err := svc.UpdateAccount(context.Background(), in)
	require.ErrorIs(t, err, ErrAccountTaken)

	st.EXPECT().UpdateAccount(gomock.Any(), id, gomock.Any()).Return(nil, storage.ErrNotFound)
	_, err = svc.UpdateAccount(context.Background(), in)
	require.ErrorIs(t, err, ErrAccountNotFound)

	st.EXPECT().UpdateAccount(gomock.Any(), id, gomock.Any()).Return(nil, errors.New("db down"))
	_, err = svc.UpdateAccount(context.Background(), in)
	require.ErrorIs(t, err, ErrInternal)
}

func TestUpdateAvatar(t *testing.T) {
	t.Parallel()

	svc, st, media := newSvc(t)
	acc := testAccount()

	_, err := svc.UpdateAvatar(context.Background(), acc.ID, "")
	require.ErrorIs(t, err, ErrInvalidInput)

	media.EXPECT().Upload(gomock.Any(), "/tmp/new.png").Return(&storage.UploadResult{URL: "http://cdn.local/new.png"}, nil)
	st.EXPECT().UpdateAccount(gomock.Any(), acc.ID, storage.AccountUpdate{AvatarURL: strPtr("http://cdn.local/new.png")}).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, u storage.AccountUpdate) (*models.Account, error) {
			a := *acc
			a.AvatarURL = *u.AvatarURL
			return &a, nil
		})

	pub, err := svc.UpdateAvatar(context.Background(), acc.ID, "/tmp/new.png")
	require.NoError(t, err)
	require.Equal(t, "http://cdn.local/new.png", pub.AvatarURL)
}

func TestUpdateCoverImage_UploadFailed_NoUpdate(t *testing.T) {
	t.Parallel()

	svc, st, media := newSvc(t)
	id := uuid.New()

	media.EXPECT().Upload(gomock.Any(), gomock.Any()).Return(nil, storage.ErrInvalidMedia)
	st.EXPECT().UpdateAccount(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	_, err := svc.UpdateCoverImage(context.Background(), id, "/tmp/file.txt")
	require.ErrorIs(t, err, ErrUploadFailed)
	require.ErrorIs(t, err, storage.ErrInvalidMedia)
}

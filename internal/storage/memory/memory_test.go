package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/accounts-service/internal/models"
	"github.com/pribylovaa/accounts-service/internal/storage"
	"github.com/stretchr/testify/require"
)

func account(username, email string) *models.Account {
	return &models.Account{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		FullName:     "Full " + username,
		AvatarURL:    "http://cdn/" + username,
		PasswordHash: "hash",
	}
}

func TestStorage_CreateAndLookup(t *testing.T) {
	t.Parallel()

	st := New()
	ctx := context.Background()

	created, err := st.CreateAccount(ctx, account("alice", "alice@example.com"))
	require.NoError(t, err)
	require.False(t, created.CreatedAt.IsZero())

	got, err := st.AccountByUsernameOrEmail(ctx, "ALICE", "")
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)

	got, err = st.AccountByUsernameOrEmail(ctx, "", "alice@EXAMPLE.com")
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)

	_, err = st.AccountByUsernameOrEmail(ctx, "", "")
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = st.CreateAccount(ctx, account("Alice", "x@example.com"))
	require.ErrorIs(t, err, storage.ErrAlreadyExists)

	// Возвращаемые значения — копии.
	got.FullName = "mutated"
	again, err := st.AccountByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotEqual(t, "mutated", again.FullName)
}

func TestStorage_RefreshLifecycle(t *testing.T) {
	t.Parallel()

	st := New()
	ctx := context.Background()
	acc, err := st.CreateAccount(ctx, account("bob", "bob@example.com"))
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, st.SetRefreshToken(ctx, acc.ID, "d1", now.Add(-time.Second)))

	n, err := st.ClearExpiredRefreshTokens(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	got, err := st.AccountByID(ctx, acc.ID)
	require.NoError(t, err)
	require.Empty(t, got.RefreshTokenHash)

	require.ErrorIs(t, st.SetRefreshToken(ctx, uuid.New(), "d", now), storage.ErrNotFound)
}

func TestStorage_RotateRefreshToken(t *testing.T) {
	t.Parallel()

	st := New()
	ctx := context.Background()
	acc, err := st.CreateAccount(ctx, account("rita", "rita@example.com"))
	require.NoError(t, err)

	exp := time.Now().Add(time.Hour)
	require.ErrorIs(t, st.RotateRefreshToken(ctx, acc.ID, "d0", "d1", exp), storage.ErrTokenMismatch)

	require.NoError(t, st.SetRefreshToken(ctx, acc.ID, "d1", exp))
	require.NoError(t, st.RotateRefreshToken(ctx, acc.ID, "d1", "d2", exp))

	// Второй обмен того же дайджеста проигрывает.
	require.ErrorIs(t, st.RotateRefreshToken(ctx, acc.ID, "d1", "d3", exp), storage.ErrTokenMismatch)

	got, err := st.AccountByID(ctx, acc.ID)
	require.NoError(t, err)
	require.Equal(t, "d2", got.RefreshTokenHash)

	require.ErrorIs(t, st.RotateRefreshToken(ctx, uuid.New(), "d2", "d4", exp), storage.ErrTokenMismatch)
}

func TestStorage_UpdateAccount(t *testing.T) {
	t.Parallel()

	st := New()
	ctx := context.Background()
	a, err := st.CreateAccount(ctx, account("carol", "carol@example.com"))
	require.NoError(t, err)
	_, err = st.CreateAccount(ctx, account("dave", "dave@example.com"))
	require.NoError(t, err)

	email := "DAVE@example.com"
	_, err = st.UpdateAccount(ctx, a.ID, storage.AccountUpdate{Email: &email})
	require.ErrorIs(t, err, storage.ErrAlreadyExists)

	name := "Carol C"
	got, err := st.UpdateAccount(ctx, a.ID, storage.AccountUpdate{FullName: &name})
	require.NoError(t, err)
	require.Equal(t, name, got.FullName)
	require.Equal(t, "carol@example.com", got.Email)
}

func TestStorage_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	st := New()
	ctx := context.Background()
	acc, err := st.CreateAccount(ctx, account("eve", "eve@example.com"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = st.SetRefreshToken(ctx, acc.ID, uuid.NewString(), time.Now().Add(time.Hour))
			_, _ = st.AccountByID(ctx, acc.ID)
		}()
	}
	wg.Wait()

	got, err := st.AccountByID(ctx, acc.ID)
	require.NoError(t, err)
	require.NotEmpty(t, got.RefreshTokenHash)
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pribylovaa/accounts-service/internal/models"
	"github.com/stretchr/testify/require"
)

func testAccount() *models.Account {
	return &models.Account{
		ID:       uuid.New(),
		Username: "alice",
		Email:    "a@x.com",
		FullName: "Alice",
	}
}

func TestAccessToken_IssueAndVerify(t *testing.T) {
	t.Parallel()

	svc := &Service{cfg: testCfg(), now: time.Now}
	acc := testAccount()
	now := time.Now()

	tok, exp, err := svc.issueAccessToken(context.Background(), acc, now)
	require.NoError(t, err)
	require.NotEmpty(t, tok)
	require.WithinDuration(t, now.Add(svc.cfg.AccessTokenTTL), exp, time.Second)

	uid, err := svc.verifyAccessToken(tok)
	require.NoError(t, err)
	require.Equal(t, acc.ID, uid)

	// Полезная нагрузка несёт идентичность.
	var claims accessClaims
	_, _, err = jwt.NewParser().ParseUnverified(tok, &claims)
	require.NoError(t, err)
	require.Equal(t, "alice", claims.Username)
	require.Equal(t, "a@x.com", claims.Email)
	require.Equal(t, tokenTypeAccess, claims.Type)
	require.Equal(t, acc.ID.String(), claims.Subject)
}

func TestRefreshToken_IssueAndVerify_UniquePerCall(t *testing.T) {
	t.Parallel()

	svc := &Service{cfg: testCfg(), now: time.Now}
	id := uuid.New()
	now := time.Now()

	t1, exp, err := svc.issueRefreshToken(context.Background(), id, now)
	require.NoError(t, err)
	t2, _, err := svc.issueRefreshToken(context.Background(), id, now)
	require.NoError(t, err)

	require.NotEqual(t, t1, t2)
	require.WithinDuration(t, now.Add(svc.cfg.RefreshTokenTTL), exp, time.Second)

	uid, err := svc.verifyRefreshToken(t1)
	require.NoError(t, err)
	require.Equal(t, id, uid)
}

func TestVerifyToken_Expired(t *testing.T) {
	t.Parallel()

	svc := &Service{cfg: testCfg(), now: time.Now}
	past := time.Now().Add(-time.Hour)

	access, _, err := svc.issueAccessToken(context.Background(), testAccount(), past)
	require.NoError(t, err)
	_, err = svc.verifyAccessToken(access)
	require.ErrorIs(t, err, ErrTokenExpired)
	require.ErrorIs(t, err, ErrInvalidToken)

	refresh, _, err := svc.issueRefreshToken(context.Background(), uuid.New(), past.Add(-svc.cfg.RefreshTokenTTL))
	require.NoError(t, err)
	_, err = svc.verifyRefreshToken(refresh)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyToken_WithinLeeway(t *testing.T) {
	t.Parallel()

	svc := &Service{cfg: testCfg(), now: time.Now}
	// exp истёк на 2 секунды, допуск 5 секунд.
	issued := time.Now().Add(-svc.cfg.AccessTokenTTL - 2*time.Second)

	tok, _, err := svc.issueAccessToken(context.Background(), testAccount(), issued)
	require.NoError(t, err)

	_, err = svc.verifyAccessToken(tok)
	require.NoError(t, err)
}

func TestVerifyToken_SecretsAreNotInterchangeable(t *testing.T) {
	t.Parallel()

	svc := &Service{cfg: testCfg(), now: time.Now}
	now := time.Now()

	access, _, err := svc.issueAccessToken(context.Background(), testAccount(), now)
	require.NoError(t, err)
	refresh, _, err := svc.issueRefreshToken(context.Background(), uuid.New(), now)
	require.NoError(t, err)

	_, err = svc.verifyRefreshToken(access)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.verifyAccessToken(refresh)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyToken_WrongType(t *testing.T) {
	t.Parallel()

	svc := &Service{cfg: testCfg(), now: time.Now}
	now := time.Now()
	rc, _ := svc.registeredClaims(uuid.New(), now, time.Minute)

	// Тип refresh, но подписан access-секретом.
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims{
		UserID:           rc.Subject,
		Type:             tokenTypeRefresh,
		RegisteredClaims: rc,
	}).SignedString([]byte(svc.cfg.AccessSecret))
	require.NoError(t, err)

	_, err = svc.verifyAccessToken(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyToken_AlgNoneRejected(t *testing.T) {
	t.Parallel()

	svc := &Service{cfg: testCfg(), now: time.Now}
	acc := testAccount()
	rc, _ := svc.registeredClaims(acc.ID, time.Now(), time.Minute)

	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, accessClaims{
		UserID:           acc.ID.String(),
		Type:             tokenTypeAccess,
		RegisteredClaims: rc,
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.verifyAccessToken(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyToken_IssuerAndAudience(t *testing.T) {
	t.Parallel()

	other := testCfg()
	other.Issuer = "someone-else"
	foreign := &Service{cfg: other, now: time.Now}

	tok, _, err := foreign.issueAccessToken(context.Background(), testAccount(), time.Now())
	require.NoError(t, err)

	svc := &Service{cfg: testCfg(), now: time.Now}
	_, err = svc.verifyAccessToken(tok)
	require.ErrorIs(t, err, ErrInvalidToken)

	other = testCfg()
	other.Audience = []string{"mobile"}
	foreign = &Service{cfg: other, now: time.Now}

	tok, _, err = foreign.issueAccessToken(context.Background(), testAccount(), time.Now())
	require.NoError(t, err)
	_, err = svc.verifyAccessToken(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyToken_Malformed(t *testing.T) {
	t.Parallel()

	svc := &Service{cfg: testCfg(), now: time.Now}

	for _, tok := range []string{"garbage", "a.b.c", "eyJhbGciOiJIUzI1NiJ9.e30."} {
		_, err := svc.verifyAccessToken(tok)
		require.ErrorIs(t, err, ErrInvalidToken, tok)
	}
}

func TestTokenMatches(t *testing.T) {
	t.Parallel()

	stored := hashToken("token-1")

	require.True(t, tokenMatches(stored, "token-1"))
	require.False(t, tokenMatches(stored, "token-2"))
	require.False(t, tokenMatches("", "token-1"))
	require.False(t, tokenMatches(stored, ""))
	require.NotContains(t, stored, "token-1")
}

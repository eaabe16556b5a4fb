package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pribylovaa/accounts-service/internal/models"
	"github.com/pribylovaa/accounts-service/internal/storage"
)

// accountColumns — единый список колонок для SELECT/RETURNING,
// порядок совпадает со scanAccount.
const accountColumns = `
id, username, email, full_name, avatar_url, cover_image_url, password_hash,
COALESCE(refresh_token_hash, ''), refresh_expires_at, created_at, updated_at
`

func scanAccount(row pgx.Row) (*models.Account, error) {
	var (
		acc       models.Account
		refreshAt *time.Time
	)

	if err := row.Scan(
		&acc.ID,
		&acc.Username,
		&acc.Email,
		&acc.FullName,
		&acc.AvatarURL,
		&acc.CoverImageURL,
		&acc.PasswordHash,
		&acc.RefreshTokenHash,
		&refreshAt,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if refreshAt != nil {
		acc.RefreshExpiresAt = refreshAt.UTC()
	}
	acc.CreatedAt = acc.CreatedAt.UTC()
	acc.UpdatedAt = acc.UpdatedAt.UTC()

	return &acc, nil
}

// mapErr переводит ошибки pgx в ошибки слоя storage.
func mapErr(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}

	return fmt.Errorf("%s: %w", op, err)
}

// AccountByUsernameOrEmail ищет учётную запись по username или email
// (без учёта регистра). Пустой аргумент в условии не участвует.
func (s *Storage) AccountByUsernameOrEmail(ctx context.Context, username, email string) (*models.Account, error) {
	const op = "storage.postgres.accounts.AccountByUsernameOrEmail"

	q := `SELECT ` + accountColumns + ` FROM accounts
	WHERE ($1::text <> '' AND lower(username) = lower($1::text))
	   OR ($2::text <> '' AND lower(email) = lower($2::text))
	ORDER BY created_at
	LIMIT 1`

	acc, err := scanAccount(s.db.QueryRow(ctx, q, username, email))
	if err != nil {
		return nil, mapErr(op, err)
	}

	return acc, nil
}

// AccountByID возвращает учётную запись по id.
func (s *Storage) AccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	const op = "storage.postgres.accounts.AccountByID"

	q := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	acc, err := scanAccount(s.db.QueryRow(ctx, q, id))
	if err != nil {
		return nil, mapErr(op, err)
	}

	return acc, nil
}

// CreateAccount вставляет новую запись.
// Ошибки: storage.ErrAlreadyExists при конфликте username/email.
func (s *Storage) CreateAccount(ctx context.Context, account *models.Account) (*models.Account, error) {
	const op = "storage.postgres.accounts.CreateAccount"

	q := `
	INSERT INTO accounts (id, username, email, full_name, avatar_url, cover_image_url, password_hash)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING ` + accountColumns

	row := s.db.QueryRow(ctx, q,
		account.ID,
		account.Username,
		account.Email,
		account.FullName,
		account.AvatarURL,
		account.CoverImageURL,
		account.PasswordHash,
	)

	acc, err := scanAccount(row)
	if err != nil {
		return nil, mapErr(op, err)
	}

	return acc, nil
}

// SetRefreshToken перезаписывает дайджест refresh-токена (пустой hash — очистка).
func (s *Storage) SetRefreshToken(ctx context.Context, id uuid.UUID, hash string, expiresAt time.Time) error {
	const op = "storage.postgres.accounts.SetRefreshToken"

	var exp *time.Time
	if hash != "" {
		t := expiresAt.UTC()
		exp = &t
	}

	tag, err := s.db.Exec(ctx, `
	UPDATE accounts
	SET refresh_token_hash = NULLIF($2, ''), refresh_expires_at = $3
	WHERE id = $1`, id, hash, exp)
	if err != nil {
		return mapErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// RotateRefreshToken — compare-and-swap дайджеста: строка обновляется,
// только если в ней всё ещё лежит oldHash.
func (s *Storage) RotateRefreshToken(ctx context.Context, id uuid.UUID, oldHash, newHash string, expiresAt time.Time) error {
	const op = "storage.postgres.accounts.RotateRefreshToken"

	if oldHash == "" || newHash == "" {
		return fmt.Errorf("%s: %w", op, storage.ErrTokenMismatch)
	}

	tag, err := s.db.Exec(ctx, `
	UPDATE accounts
	SET refresh_token_hash = $3, refresh_expires_at = $4
	WHERE id = $1 AND refresh_token_hash = $2`, id, oldHash, newHash, expiresAt.UTC())
	if err != nil {
		return mapErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrTokenMismatch)
	}

	return nil
}

// SetPasswordHash сохраняет новый хэш пароля.
func (s *Storage) SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	const op = "storage.postgres.accounts.SetPasswordHash"

	tag, err := s.db.Exec(ctx, `
	UPDATE accounts SET password_hash = $2, updated_at = now() WHERE id = $1`, id, hash)
	if err != nil {
		return mapErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// UpdateAccount выполняет частичный апдейт: обновляет только поля,
// указанные непустыми pointer-полями, и всегда сдвигает updated_at = now().
// Ошибки: storage.ErrNotFound, storage.ErrAlreadyExists (email занят).
func (s *Storage) UpdateAccount(ctx context.Context, id uuid.UUID, update storage.AccountUpdate) (*models.Account, error) {
	const op = "storage.postgres.accounts.UpdateAccount"

	sets := []string{"updated_at = now()"}
	args := []any{id}

	add := func(column string, v *string) {
		if v == nil {
			return
		}
		args = append(args, *v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	add("full_name", update.FullName)
	add("email", update.Email)
	add("avatar_url", update.AvatarURL)
	add("cover_image_url", update.CoverImageURL)

	q := fmt.Sprintf(`UPDATE accounts SET %s WHERE id = $1 RETURNING %s`,
		strings.Join(sets, ", "), accountColumns)

	acc, err := scanAccount(s.db.QueryRow(ctx, q, args...))
	if err != nil {
		return nil, mapErr(op, err)
	}

	return acc, nil
}

// ClearExpiredRefreshTokens очищает сессии с истёкшим refresh-токеном.
func (s *Storage) ClearExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	const op = "storage.postgres.accounts.ClearExpiredRefreshTokens"

	tag, err := s.db.Exec(ctx, `
	UPDATE accounts
	SET refresh_token_hash = NULL, refresh_expires_at = NULL
	WHERE refresh_token_hash IS NOT NULL AND refresh_expires_at <= $1`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return tag.RowsAffected(), nil
}

// handlers — REST-обработчики accounts-service поверх service.Service.
// Разбирают запрос (JSON/multipart), вызывают сервис и пишут единый конверт
// ответа; ошибки маппятся через internal/errors.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	apierrors "github.com/pribylovaa/accounts-service/internal/errors"
	"github.com/pribylovaa/accounts-service/internal/http/middleware"
	"github.com/pribylovaa/accounts-service/internal/models"
	"github.com/pribylovaa/accounts-service/internal/service"
)

// AccountService — операции сервиса, нужные HTTP-слою.
type AccountService interface {
	Register(ctx context.Context, in service.RegisterInput) (*models.PublicAccount, error)
	Login(ctx context.Context, in service.LoginInput) (*service.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	Logout(ctx context.Context, accountID uuid.UUID) error
	ChangePassword(ctx context.Context, in service.ChangePasswordInput) error
	CurrentAccount(ctx context.Context, id uuid.UUID) (*models.PublicAccount, error)
	UpdateAccount(ctx context.Context, in service.UpdateAccountInput) (*models.PublicAccount, error)
	UpdateAvatar(ctx context.Context, id uuid.UUID, localPath string) (*models.PublicAccount, error)
	UpdateCoverImage(ctx context.Context, id uuid.UUID, localPath string) (*models.PublicAccount, error)
}

// Options — параметры обработчиков.
type Options struct {
	// InsecureCookies снимает флаг Secure с cookie сессии (локальный HTTP без TLS).
	InsecureCookies bool
	// MaxUploadBytes ограничивает тело multipart-запроса.
	MaxUploadBytes int64
	// TempDir — каталог для принятых файлов; пусто — os.TempDir().
	TempDir string
}

// Handlers агрегирует зависимости обработчиков.
type Handlers struct {
	svc  AccountService
	opts Options
	now  func() time.Time
}

func New(svc AccountService, opts Options) *Handlers {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}

	return &Handlers{
		svc:  svc,
		opts: opts,
		now:  time.Now,
	}
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
// Имена ключей сравниваются точно: encoding/json сопоставляет их без учёта
// регистра, поэтому "userName" отклоняется до разбора в структуру.
func decodeStrict(r *http.Request, value any) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return fmt.Errorf("%w: %w", apierrors.ErrBadRequest, err)
	}

	return decodeBody(body, value)
}

// decodeOptional — как decodeStrict, но пустое тело допустимо.
func decodeOptional(r *http.Request, value any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return fmt.Errorf("%w: %w", apierrors.ErrBadRequest, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	return decodeBody(body, value)
}

func decodeBody(body []byte, value any) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return fmt.Errorf("%w: %w", apierrors.ErrBadRequest, err)
	}

	allowed := jsonFields(reflect.TypeOf(value))
	for key := range raw {
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("%w: json: unknown field %q", apierrors.ErrBadRequest, key)
		}
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(value); err != nil {
		return fmt.Errorf("%w: %w", apierrors.ErrBadRequest, err)
	}

	return nil
}

// jsonFields собирает точные имена ключей из json-тегов структуры
// (встроенные структуры без тега раскрываются).
func jsonFields(t reflect.Type) map[string]struct{} {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	fields := make(map[string]struct{})
	if t.Kind() != reflect.Struct {
		return fields
	}

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if f.Anonymous && name == "" {
			for k := range jsonFields(f.Type) {
				fields[k] = struct{}{}
			}
			continue
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		fields[name] = struct{}{}
	}

	return fields
}

// currentAccount достаёт аккаунт, положенный guard'ом; без него — 401.
func currentAccount(w http.ResponseWriter, r *http.Request) (*models.PublicAccount, bool) {
	acc, ok := middleware.AccountFromContext(r.Context())
	if !ok {
		apierrors.WriteError(w, r, service.ErrUnauthorized)
		return nil, false
	}

	return acc, true
}

// minio предоставляет реализацию storage.MediaUploader на базе MinIO.
// minio.go - конструктор клиента: нормализует endpoint,
// настраивает Secure/creds и проверяет наличие целевого бакета.
// upload.go - загрузка локального файла (FPutObject) и сборка публичного URL.
package minio

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	mclient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pribylovaa/accounts-service/internal/config"
	"github.com/pribylovaa/accounts-service/internal/storage"
)

// MediaStorage — адаптер MinIO для изображений профиля.
type MediaStorage struct {
	cfg     config.MediaConfig
	client  *mclient.Client
	baseURL string
	now     func() time.Time
}

// New создает и инициализирует клиент MinIO.
// Убирает схему из endpoint, подбирает Secure по схеме
// и выполняет fail-fast-проверку доступности бакета.
func New(ctx context.Context, cfg config.MediaConfig) (*MediaStorage, error) {
	const op = "storage.minio.New"

	endpoint := cfg.Endpoint
	secure := strings.HasPrefix(endpoint, "https://")

	if u, err := url.Parse(endpoint); err == nil && u.Scheme != "" && u.Host != "" {
		endpoint = u.Host
		secure = u.Scheme == "https"
	}

	client, err := mclient.New(endpoint, &mclient.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !exists {
		return nil, fmt.Errorf("%s: bucket %q does not exist", op, cfg.Bucket)
	}

	// Без PublicBaseURL объект адресуется напрямую через endpoint (path-style).
	baseURL := cfg.PublicBaseURL
	if baseURL == "" {
		scheme := "http"
		if secure {
			scheme = "https"
		}
		baseURL = scheme + "://" + endpoint + "/" + cfg.Bucket
	}

	return &MediaStorage{cfg: cfg, client: client, baseURL: baseURL, now: time.Now}, nil
}

// Проверка выполнения контракта верхнего уровня.
var _ storage.MediaUploader = (*MediaStorage)(nil)

package minio

import (
	"context"
	"fmt"

	mclient "github.com/minio/minio-go/v7"
	"github.com/pribylovaa/accounts-service/internal/storage"
)

// Upload загружает локальный файл в бакет под ключом
// "media/<yyyy>/<mm>/<uuid><ext>" и возвращает публичный URL.
func (s *MediaStorage) Upload(ctx context.Context, localPath string) (*storage.UploadResult, error) {
	const op = "storage.minio.Upload"

	mf, err := storage.InspectMedia(localPath, s.cfg.MaxSizeBytes, s.cfg.AllowedContentTypes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	key := storage.MediaKey(s.now(), mf.Ext)

	_, err = s.client.FPutObject(ctx, s.cfg.Bucket, key, localPath, mclient.PutObjectOptions{
		ContentType: mf.ContentType,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &storage.UploadResult{URL: storage.PublicURL(s.baseURL, key), Key: key}, nil
}

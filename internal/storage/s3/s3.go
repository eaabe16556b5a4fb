// s3 предоставляет реализацию storage.MediaUploader поверх aws-sdk-go-v2
// (AWS S3 или любое S3-совместимое хранилище с path-style адресацией).
package s3

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pribylovaa/accounts-service/internal/config"
	"github.com/pribylovaa/accounts-service/internal/storage"
)

// objectAPI — используемое подмножество клиента S3.
type objectAPI interface {
	PutObject(ctx context.Context, in *awss3.PutObjectInput, optFns ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, in *awss3.HeadBucketInput, optFns ...func(*awss3.Options)) (*awss3.HeadBucketOutput, error)
}

// MediaStorage — адаптер S3 для изображений профиля.
type MediaStorage struct {
	cfg     config.MediaConfig
	client  objectAPI
	baseURL string
	now     func() time.Time
}

// New собирает клиент S3 из статических ключей и проверяет бакет (fail-fast).
func New(ctx context.Context, cfg config.MediaConfig) (*MediaStorage, error) {
	const op = "storage.s3.New"

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newWithClient(ctx, cfg, client)
}

func newWithClient(ctx context.Context, cfg config.MediaConfig, client objectAPI) (*MediaStorage, error) {
	const op = "storage.s3.New"

	if _, err := client.HeadBucket(ctx, &awss3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		return nil, fmt.Errorf("%s: bucket %q: %w", op, cfg.Bucket, err)
	}

	baseURL := cfg.PublicBaseURL
	if baseURL == "" {
		if cfg.Endpoint != "" {
			baseURL = storage.PublicURL(cfg.Endpoint, cfg.Bucket)
		} else {
			baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}

	return &MediaStorage{cfg: cfg, client: client, baseURL: baseURL, now: time.Now}, nil
}

// Upload загружает локальный файл через PutObject и возвращает публичный URL.
func (s *MediaStorage) Upload(ctx context.Context, localPath string) (*storage.UploadResult, error) {
	const op = "storage.s3.Upload"

	mf, err := storage.InspectMedia(localPath, s.cfg.MaxSizeBytes, s.cfg.AllowedContentTypes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer f.Close()

	key := storage.MediaKey(s.now(), mf.Ext)

	_, err = s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentType:   aws.String(mf.ContentType),
		ContentLength: aws.Int64(mf.Size),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &storage.UploadResult{URL: storage.PublicURL(s.baseURL, key), Key: key}, nil
}

// Проверка выполнения контракта верхнего уровня.
var _ storage.MediaUploader = (*MediaStorage)(nil)

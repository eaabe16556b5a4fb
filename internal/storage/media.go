package storage

//go:generate mockgen -source=media.go -destination=../../mocks/media.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidMedia — файл нарушает ограничения (тип/размер/пустой).
var ErrInvalidMedia = errors.New("invalid media")

// UploadResult — результат загрузки файла в объектное хранилище.
//   - URL: публичный адрес объекта, сохраняется в учётной записи.
//   - Key: ключ объекта в бакете.
type UploadResult struct {
	URL string
	Key string
}

// MediaUploader — контракт загрузки локального файла в объектное хранилище.
type MediaUploader interface {
	// Upload загружает файл localPath и возвращает его публичный URL.
	// Нарушение ограничений по типу/размеру — ErrInvalidMedia.
	Upload(ctx context.Context, localPath string) (*UploadResult, error)
}

// MediaFile — проверенные атрибуты файла перед загрузкой.
type MediaFile struct {
	Size        int64
	ContentType string
	Ext         string
}

// InspectMedia проверяет локальный файл: существование, размер в пределах
// maxSize и тип содержимого из allow-list.
// Тип определяется по расширению; при неизвестном расширении — по первым байтам.
func InspectMedia(localPath string, maxSize int64, allowed []string) (*MediaFile, error) {
	const op = "storage.media.InspectMedia"

	info, err := os.Stat(localPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if info.IsDir() || info.Size() <= 0 {
		return nil, fmt.Errorf("%s: empty file: %w", op, ErrInvalidMedia)
	}

	if maxSize > 0 && info.Size() > maxSize {
		return nil, fmt.Errorf("%s: %d bytes exceeds limit %d: %w", op, info.Size(), maxSize, ErrInvalidMedia)
	}

	ext := strings.ToLower(filepath.Ext(localPath))
	contentType := baseMediaType(mime.TypeByExtension(ext))
	if contentType == "" {
		contentType, err = sniffContentType(localPath)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if !isAllowedContentType(allowed, contentType) {
		return nil, fmt.Errorf("%s: content type %q: %w", op, contentType, ErrInvalidMedia)
	}

	if ext == "" {
		if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
			ext = exts[0]
		}
	}

	return &MediaFile{Size: info.Size(), ContentType: contentType, Ext: ext}, nil
}

// MediaKey формирует ключ объекта вида "media/<yyyy>/<mm>/<uuid><ext>".
func MediaKey(now time.Time, ext string) string {
	now = now.UTC()
	return path.Join("media", now.Format("2006"), now.Format("01"), uuid.NewString()+ext)
}

// PublicURL склеивает публичный адрес объекта.
func PublicURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}

func sniffContentType(localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}

	return baseMediaType(http.DetectContentType(buf[:n])), nil
}

func baseMediaType(ct string) string {
	if ct == "" {
		return ""
	}

	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return ""
	}

	return mt
}

// isAllowedContentType проверяет, что тип содержимого входит в allow-list.
func isAllowedContentType(allow []string, contentType string) bool {
	for _, a := range allow {
		if strings.EqualFold(strings.TrimSpace(a), contentType) {
			return true
		}
	}

	return false
}

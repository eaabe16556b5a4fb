package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	apierrors "github.com/pribylovaa/accounts-service/internal/errors"
	"github.com/pribylovaa/accounts-service/internal/pkg/log"
)

const (
	defaultMaxUploadBytes = 20 << 20
	multipartMemory       = 1 << 20
	maxExtLen             = 8
)

// multipartForm ограничивает и разбирает multipart-тело.
// Вызывающий обязан вызвать cleanup (удаляет временные файлы разбора и принятые файлы).
type multipartForm struct {
	form  *multipart.Form
	files []string
}

func (h *Handlers) parseMultipart(w http.ResponseWriter, r *http.Request) (*multipartForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, fmt.Errorf("%w: %w", apierrors.ErrBadRequest, err)
	}

	return &multipartForm{form: r.MultipartForm}, nil
}

func (m *multipartForm) value(name string) string {
	if vs := m.form.Value[name]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// saveFile копирует файл поля во временный каталог и возвращает локальный путь.
// Поле без файла — пустой путь без ошибки (обязательность решает сервис).
func (m *multipartForm) saveFile(dir, field string) (string, error) {
	hdrs := m.form.File[field]
	if len(hdrs) == 0 {
		return "", nil
	}

	src, err := hdrs[0].Open()
	if err != nil {
		return "", fmt.Errorf("%w: %w", apierrors.ErrBadRequest, err)
	}
	defer src.Close()

	dst, err := os.CreateTemp(dir, "upload-*"+safeExt(hdrs[0].Filename))
	if err != nil {
		return "", err
	}
	m.files = append(m.files, dst.Name())

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return "", err
	}

	if err := dst.Close(); err != nil {
		return "", err
	}

	return dst.Name(), nil
}

func (m *multipartForm) cleanup(r *http.Request) {
	for _, p := range m.files {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.From(r.Context()).Warn("upload_cleanup_failed", slog.String("path", p), log.Err(err))
		}
	}

	if m.form != nil {
		_ = m.form.RemoveAll()
	}
}

// safeExt оставляет только короткое расширение из букв и цифр
// (по нему загрузчик определяет тип файла).
func safeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if len(ext) < 2 || len(ext) > maxExtLen {
		return ""
	}

	for _, c := range ext[1:] {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return ""
		}
	}

	return ext
}

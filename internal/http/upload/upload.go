// Package upload сохраняет файлы из multipart-формы во временный каталог.
package upload

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/magabrotheeeer/account-service/internal/lib/apierror"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
)

const (
	MsgTooLarge    = "Request body is too large"
	MsgInvalidForm = "Invalid form data"
	MsgSaveFailed  = "Failed to save uploaded file"
)

// ParseForm разбирает multipart-форму, ограничивая тело maxBytes.
// Тело не в формате multipart не ошибка: поля читаются как обычная форма.
func ParseForm(w http.ResponseWriter, r *http.Request, maxBytes int64) error {
	const op = "upload.ParseForm"

	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	err := r.ParseMultipartForm(32 << 20)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ErrorFor переводит ошибку разбора формы в ответ клиенту: 413 при превышении
// лимита, иначе 400.
func ErrorFor(err error) *apierror.Error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
		return apierror.New(http.StatusRequestEntityTooLarge, MsgTooLarge, err)
	}
	return apierror.New(http.StatusBadRequest, MsgInvalidForm, err)
}

// SaveFile сохраняет файл поля field в dir и возвращает путь к нему.
// Если поле не передано, возвращает пустую строку без ошибки.
func SaveFile(r *http.Request, field, dir string) (string, error) {
	const op = "upload.SaveFile"

	if r.MultipartForm == nil {
		return "", nil
	}
	src, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer src.Close()

	if err = os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	ext := strings.ToLower(filepath.Ext(filepath.Base(header.Filename)))
	dst, err := os.CreateTemp(dir, field+"-*"+ext)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if _, err = io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err = dst.Close(); err != nil {
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return dst.Name(), nil
}

// Cleanup удаляет временные файлы, которые ещё остались на диске.
func Cleanup(log *slog.Logger, paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn("failed to remove temp file", slog.String("path", p), sl.Err(err))
		}
	}
}

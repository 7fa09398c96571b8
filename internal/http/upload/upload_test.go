package upload

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func multipartRequest(t *testing.T, files map[string]string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, value := range fields {
		require.NoError(t, mw.WriteField(name, value))
	}
	for field, filename := range files {
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte("image-bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestSaveFile(t *testing.T) {
	dir := t.TempDir()
	req := multipartRequest(t, map[string]string{"avatar": "../../me.PNG"}, map[string]string{"username": "jane"})
	require.NoError(t, ParseForm(httptest.NewRecorder(), req, 1<<20))

	path, err := SaveFile(req, "avatar", dir)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path), "file must stay inside the upload dir")
	assert.True(t, strings.HasSuffix(path, ".png"))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "image-bytes", string(content))
	assert.Equal(t, "jane", req.FormValue("username"))

	missing, err := SaveFile(req, "coverImage", dir)
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestParseForm_NotMultipart(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("username=jane"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	require.NoError(t, ParseForm(httptest.NewRecorder(), req, 1<<20))
	assert.Equal(t, "jane", req.FormValue("username"))

	path, err := SaveFile(req, "avatar", t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestParseForm_TooLarge(t *testing.T) {
	req := multipartRequest(t, map[string]string{"avatar": "a.png"}, nil)

	err := ParseForm(httptest.NewRecorder(), req, 10)
	require.Error(t, err)
}

func TestErrorFor(t *testing.T) {
	tooLarge := ErrorFor(fmt.Errorf("wrap: %w", &http.MaxBytesError{Limit: 10}))
	assert.Equal(t, http.StatusRequestEntityTooLarge, tooLarge.StatusCode)
	assert.Equal(t, MsgTooLarge, tooLarge.Message)

	bad := ErrorFor(errors.New("multipart: NextPart: EOF"))
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
	assert.Equal(t, MsgInvalidForm, bad.Message)
}

func TestCleanup(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "a.png")
	require.NoError(t, os.WriteFile(existing, []byte("x"), 0o600))

	Cleanup(slog.New(slog.NewTextHandler(io.Discard, nil)), existing, "", filepath.Join(dir, "gone.png"))

	_, err := os.Stat(existing)
	assert.True(t, os.IsNotExist(err))
}

package deploy

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeArtifact(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.html")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestUpload_SendsFileWithHeaders(t *testing.T) {
	var (
		gotHeaders http.Header
		gotBody    []byte
		gotLength  int64
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		gotHeaders = r.Header.Clone()
		gotLength = r.ContentLength
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"saved":true}`))
	}))
	defer srv.Close()

	var out bytes.Buffer
	u := NewUploader(srv.Client(), &out, discardLogger())

	err := u.Upload(context.Background(), Settings{
		URL:        srv.URL + "/upload",
		Token:      "tok",
		SourceFile: writeArtifact(t, "<html>built</html>"),
		FileName:   "index.html",
		FilePath:   "admin/",
	})

	require.NoError(t, err)
	assert.Equal(t, "<html>built</html>", string(gotBody))
	assert.EqualValues(t, len("<html>built</html>"), gotLength)
	assert.Equal(t, "text/html", gotHeaders.Get("Content-Type"))
	assert.Equal(t, "tok", gotHeaders.Get("nodeAPPToken"))
	assert.Equal(t, "index.html", gotHeaders.Get("x-upload-filename"))
	assert.Equal(t, "admin/", gotHeaders.Get("x-upload-filepath"))
	assert.Equal(t, `{"saved":true}`, out.String())
}

func TestUpload_NonSuccessStatusEchoesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("bad token"))
	}))
	defer srv.Close()

	var out bytes.Buffer
	u := NewUploader(srv.Client(), &out, discardLogger())

	err := u.Upload(context.Background(), Settings{
		URL:        srv.URL,
		Token:      "tok",
		SourceFile: writeArtifact(t, "x"),
	})

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
	assert.Equal(t, "bad token", out.String())
}

func TestUpload_WaitsForDelay(t *testing.T) {
	var received time.Time
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		received = time.Now()
	}))
	defer srv.Close()

	u := NewUploader(srv.Client(), io.Discard, discardLogger())
	start := time.Now()

	err := u.Upload(context.Background(), Settings{
		URL:        srv.URL,
		Token:      "tok",
		SourceFile: writeArtifact(t, "x"),
		Delay:      50 * time.Millisecond,
	})

	require.NoError(t, err)
	assert.GreaterOrEqual(t, received.Sub(start), 50*time.Millisecond)
}

func TestUpload_CanceledDuringDelay(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	u := NewUploader(srv.Client(), io.Discard, discardLogger())
	err := u.Upload(ctx, Settings{
		URL:        srv.URL,
		Token:      "tok",
		SourceFile: writeArtifact(t, "x"),
		Delay:      time.Minute,
	})

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, called)
}

func TestUpload_MissingFile(t *testing.T) {
	u := NewUploader(nil, io.Discard, discardLogger())

	err := u.Upload(context.Background(), Settings{
		URL:        "http://127.0.0.1:1",
		Token:      "tok",
		SourceFile: filepath.Join(t.TempDir(), "missing.html"),
	})

	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		want     string
	}{
		{"missing url", Settings{Token: "t", SourceFile: "f"}, "DEPLOY_URL"},
		{"missing token", Settings{URL: "http://x", SourceFile: "f"}, "NODE_APP_TOKEN"},
		{"missing source", Settings{URL: "http://x", Token: "t"}, "source file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.settings.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMissingSetting))
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	assert.NoError(t, Settings{URL: "http://x", Token: "t", SourceFile: "f"}.Validate())
}

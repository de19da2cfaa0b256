// Package deploy uploads a built artifact to the node deployment endpoint.
package deploy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// Header names understood by the deployment endpoint.
const (
	credentialHeader = "nodeAPPToken"
	fileNameHeader   = "x-upload-filename"
	filePathHeader   = "x-upload-filepath"
)

// ErrMissingSetting is returned by Validate when a required setting is empty.
var ErrMissingSetting = errors.New("missing required setting")

// Settings describes one upload.
type Settings struct {
	URL        string
	Token      string
	SourceFile string
	FileName   string
	FilePath   string
	Delay      time.Duration
}

// Validate reports the first required setting that is empty.
func (s Settings) Validate() error {
	switch {
	case s.URL == "":
		return fmt.Errorf("%w: DEPLOY_URL", ErrMissingSetting)
	case s.Token == "":
		return fmt.Errorf("%w: NODE_APP_TOKEN", ErrMissingSetting)
	case s.SourceFile == "":
		return fmt.Errorf("%w: source file", ErrMissingSetting)
	}
	return nil
}

// StatusError is returned when the endpoint answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return "deploy endpoint returned " + e.Status
}

// Uploader reads the artifact, waits out the configured delay, and POSTs it.
type Uploader struct {
	client *http.Client
	out    io.Writer
	logger *slog.Logger
}

// NewUploader creates an Uploader. The endpoint's response body is copied to out.
func NewUploader(client *http.Client, out io.Writer, logger *slog.Logger) *Uploader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Uploader{client: client, out: out, logger: logger}
}

// Upload performs the read, wait, POST sequence. The wait is abandoned when
// ctx is canceled. The response body is echoed even for non-2xx statuses.
func (u *Uploader) Upload(ctx context.Context, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}

	content, err := os.ReadFile(s.SourceFile)
	if err != nil {
		return fmt.Errorf("read %s: %w", s.SourceFile, err)
	}

	u.logger.Info("waiting before upload", "delay", s.Delay, "file", s.SourceFile, "bytes", len(content))
	if err := wait(ctx, s.Delay); err != nil {
		return err
	}

	u.logger.Info("uploading file", "url", s.URL, "upload_filename", s.FileName, "upload_filepath", s.FilePath)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(content))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "text/html")
	req.Header.Set(credentialHeader, s.Token)
	req.Header.Set(fileNameHeader, s.FileName)
	req.Header.Set(filePathHeader, s.FilePath)

	resp, err := u.client.Do(req)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	u.logger.Info("upload response", "status", resp.StatusCode)
	if _, err := io.Copy(u.out, resp.Body); err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("upload canceled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

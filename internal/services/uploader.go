package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/damacus/wedding-album/internal/models"
)

// DefaultMaxUploadSize is the per-file limit when none is configured
const DefaultMaxUploadSize int64 = 200 << 20

var (
	ErrEmptyName        = errors.New("file name is empty")
	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrFileTooLarge     = errors.New("file exceeds upload limit")
)

// UploadError wraps a backend failure for one destination path
type UploadError struct {
	Path string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.Path, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// Uploader stores guest files in the bucket
type Uploader struct {
	backend StorageBackend
	maxSize int64
	now     func() time.Time
}

func NewUploader(backend StorageBackend, maxSize int64) *Uploader {
	if maxSize <= 0 {
		maxSize = DefaultMaxUploadSize
	}
	return &Uploader{backend: backend, maxSize: maxSize, now: time.Now}
}

// Upload stores every file independently and reports one result per file in
// input order. A failed file never stops the rest of the batch.
func (u *Uploader) Upload(ctx context.Context, files []models.LocalFile) []models.UploadResult {
	token := u.now().UnixMilli()
	used := make(map[string]bool, len(files))
	results := make([]models.UploadResult, len(files))

	for i, file := range files {
		name := sanitizeName(file.Name)
		results[i].Name = file.Name

		if err := u.validate(name, file.Size); err != nil {
			results[i].Err = err
			continue
		}

		dest := DestinationPath(token, name)
		if used[dest] {
			dest = fmt.Sprintf("%d-%d_%s", token, i, name)
		}
		used[dest] = true

		job := models.UploadJob{File: file, DestinationPath: dest}
		results[i].Path = dest
		results[i].Err = u.run(ctx, job)
	}
	return results
}

func (u *Uploader) validate(name string, size int64) error {
	if name == "" {
		return ErrEmptyName
	}
	if !IsMedia(name) {
		return fmt.Errorf("%s: %w", name, ErrUnsupportedMedia)
	}
	if size > u.maxSize {
		return fmt.Errorf("%s: %w", name, ErrFileTooLarge)
	}
	return nil
}

func (u *Uploader) run(ctx context.Context, job models.UploadJob) error {
	contentType := job.File.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = ContentTypeFor(job.DestinationPath)
	}

	err := u.backend.Upload(ctx, job.DestinationPath, job.File.Reader, job.File.Size, contentType)
	if err != nil {
		slog.Error("upload failed", "path", job.DestinationPath, "error", err)
		return &UploadError{Path: job.DestinationPath, Err: err}
	}
	slog.Info("upload stored", "path", job.DestinationPath, "size", job.File.Size)
	return nil
}

// DestinationPath prefixes name with the submission token
func DestinationPath(token int64, name string) string {
	return fmt.Sprintf("%d_%s", token, name)
}

// sanitizeName strips any directory components a browser may send
func sanitizeName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return ""
	}
	base := path.Base(name)
	if base == "." || base == "/" || base == ".." {
		return ""
	}
	return base
}

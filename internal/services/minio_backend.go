package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/damacus/wedding-album/internal/models"
	"github.com/minio/minio-go/v7"
)

// PublicMode says how a backend decides whether objects have public URLs
type PublicMode string

const (
	PublicAuto   PublicMode = "auto"
	PublicAlways PublicMode = "true"
	PublicNever  PublicMode = "false"
)

// ParsePublicMode accepts true/false/auto, defaulting to auto
func ParsePublicMode(raw string) (PublicMode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "auto":
		return PublicAuto, nil
	case "true", "yes", "1":
		return PublicAlways, nil
	case "false", "no", "0":
		return PublicNever, nil
	}
	return "", fmt.Errorf("invalid public mode %q", raw)
}

// MinioBackend serves the album from a MinIO (or any S3 compatible) bucket
type MinioBackend struct {
	client MinioClient
	bucket string
	mode   PublicMode
	public atomic.Bool
}

func NewMinioBackend(client MinioClient, bucket string, mode PublicMode) *MinioBackend {
	b := &MinioBackend{client: client, bucket: bucket, mode: mode}
	b.public.Store(mode == PublicAlways)
	return b
}

// DetectPublicAccess reads the bucket policy once so PublicURL can stay a
// local computation. Only meaningful in auto mode; on error the bucket is
// treated as private.
func (b *MinioBackend) DetectPublicAccess(ctx context.Context) error {
	if b.mode != PublicAuto {
		return nil
	}
	policy, err := b.client.GetBucketPolicy(ctx, b.bucket)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchBucketPolicy" {
			policy = ""
		} else {
			b.public.Store(false)
			return fmt.Errorf("read bucket policy: %w", err)
		}
	}
	policyType := detectPolicyType(policy, b.bucket)
	public := allowsAnonymousRead(policyType)
	if policyType == PolicyCustom {
		public = grantsAnonymousRead(policy, b.bucket)
	}
	b.public.Store(public)
	slog.Info("bucket access detected", "bucket", b.bucket, "policy", policyType, "public", b.public.Load())
	return nil
}

func (b *MinioBackend) Bucket() string {
	return b.bucket
}

// List reads the whole folder level page by page, since MinIO returns keys in
// lexical order and uploads are named oldest first, then orders and limits it.
func (b *MinioBackend) List(ctx context.Context, folder string, opts ListOptions) ([]models.StorageEntry, error) {
	prefix := ""
	if folder != "" {
		prefix = strings.TrimSuffix(folder, "/") + "/"
	}

	var entries []models.StorageEntry
	token := ""
	for {
		result, err := b.client.ListObjectsPaginated(ctx, b.bucket, ListObjectsOptions{
			Prefix:            prefix,
			Recursive:         false, // Non-recursive to get folders
			MaxKeys:           scanPageSize,
			ContinuationToken: token,
		})
		if err != nil {
			return nil, err
		}

		for _, obj := range result.Objects {
			name := strings.TrimPrefix(obj.Key, prefix)
			// Folders come back as common prefixes ending with /
			if strings.HasSuffix(name, "/") {
				name = strings.TrimSuffix(name, "/")
				if name == "" {
					continue
				}
				entries = append(entries, models.StorageEntry{Name: name, IsFolder: true})
				continue
			}
			// Placeholder object for the folder itself
			if name == "" {
				continue
			}
			size := obj.Size
			entries = append(entries, models.StorageEntry{
				Name:      name,
				CreatedAt: obj.LastModified,
				Size:      &size,
			})
		}

		if !result.IsTruncated || result.NextContinuationToken == "" || result.NextContinuationToken == token {
			break
		}
		token = result.NextContinuationToken
	}

	entries, truncated := limitEntries(entries, opts)
	if truncated {
		slog.Debug("folder listing truncated", "bucket", b.bucket, "prefix", prefix, "limit", opts.Limit)
	}
	return entries, nil
}

func (b *MinioBackend) PublicURL(path string) string {
	if !b.public.Load() {
		return NoPublicURL
	}
	endpoint := b.client.EndpointURL()
	if endpoint == nil {
		return NoPublicURL
	}
	base := strings.TrimSuffix(endpoint.String(), "/")
	return base + "/" + b.bucket + "/" + escapeKey(path)
}

func (b *MinioBackend) SignedURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	u, err := b.client.PresignedGetObject(ctx, b.bucket, path, expiry, nil)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (b *MinioBackend) Upload(ctx context.Context, path string, r io.Reader, size int64, contentType string) error {
	_, err := b.client.PutObject(ctx, b.bucket, path, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

// escapeKey percent-encodes each path segment but keeps the separators
func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

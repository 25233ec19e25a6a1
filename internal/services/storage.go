package services

import (
	"context"
	"io"
	"sort"
	"time"

	"github.com/damacus/wedding-album/internal/models"
)

// DefaultPageSize is the number of entries a folder listing returns
const DefaultPageSize = 100

// scanPageSize is how many keys a backend asks the server for per request
// while reading a whole folder level
const scanPageSize = 1000

// NoPublicURL is what a backend returns from PublicURL when the object
// cannot be reached without a signature
const NoPublicURL = "undefined"

// SortByCreatedDesc orders a listing newest first
const SortByCreatedDesc = "created_at_desc"

// ListOptions controls a single folder listing. The whole level is ordered by
// SortBy before Limit is applied.
type ListOptions struct {
	Limit  int
	SortBy string
}

// StorageBackend is the object storage collaborator used by the album
type StorageBackend interface {
	// List returns the direct children of folder ("" is the bucket root).
	List(ctx context.Context, folder string, opts ListOptions) ([]models.StorageEntry, error)
	// PublicURL builds the unsigned URL for path without a network call,
	// or returns NoPublicURL.
	PublicURL(path string) string
	SignedURL(ctx context.Context, path string, expiry time.Duration) (string, error)
	Upload(ctx context.Context, path string, r io.Reader, size int64, contentType string) error
	Bucket() string
}

// limitEntries orders a complete folder level and keeps the first opts.Limit
// entries. Folders carry no timestamp and sort after every file. The second
// result reports whether anything was cut.
func limitEntries(entries []models.StorageEntry, opts ListOptions) ([]models.StorageEntry, bool) {
	if opts.SortBy == SortByCreatedDesc {
		sortCreatedDesc(entries)
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if len(entries) <= limit {
		return entries, false
	}
	return entries[:limit], true
}

// sortCreatedDesc orders files newest first, then folders in their listed order
func sortCreatedDesc(entries []models.StorageEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsFolder != entries[j].IsFolder {
			return !entries[i].IsFolder
		}
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
}

package services

import (
	"context"
	"log/slog"

	"github.com/damacus/wedding-album/internal/models"
	"github.com/damacus/wedding-album/internal/utils"
)

// Usage sources
const (
	UsageFromAdmin   = "admin"
	UsageFromListing = "listing"
)

// Usage summarises what the album holds
type Usage struct {
	Bucket        string `json:"bucket"`
	Media         int    `json:"media"`
	Images        int    `json:"images"`
	Videos        int    `json:"videos"`
	SizeBytes     uint64 `json:"sizeBytes"`
	FormattedSize string `json:"formattedSize"`
	Source        string `json:"source"`
}

// UsageReporter combines the published snapshot with MinIO data usage when
// admin access is available
type UsageReporter struct {
	admin  MinioAdminClient
	album  *Album
	bucket string
}

// NewUsageReporter builds a reporter; admin may be nil
func NewUsageReporter(admin MinioAdminClient, album *Album, bucket string) *UsageReporter {
	return &UsageReporter{admin: admin, album: album, bucket: bucket}
}

func (r *UsageReporter) Usage(ctx context.Context) Usage {
	snap := r.album.Current()
	u := Usage{Bucket: r.bucket, Source: UsageFromListing}

	for _, m := range snap.Media {
		u.Media++
		switch m.Kind {
		case models.KindImage:
			u.Images++
		case models.KindVideo:
			u.Videos++
		}
		if m.Entry.Size != nil && *m.Entry.Size > 0 {
			u.SizeBytes += uint64(*m.Entry.Size)
		}
	}

	if r.admin != nil {
		info, err := r.admin.DataUsageInfo(ctx)
		if err != nil {
			// Admin permissions are optional
			slog.Debug("data usage unavailable", "error", err)
		} else if size, ok := info.BucketSizes[r.bucket]; ok {
			u.SizeBytes = size
			u.Source = UsageFromAdmin
		}
	}

	u.FormattedSize = utils.FormatBytes(u.SizeBytes)
	return u
}

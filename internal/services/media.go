package services

import (
	"path/filepath"
	"strings"

	"github.com/damacus/wedding-album/internal/models"
)

var mediaExtensions = map[string]models.MediaKind{
	".jpg":  models.KindImage,
	".jpeg": models.KindImage,
	".png":  models.KindImage,
	".gif":  models.KindImage,
	".webp": models.KindImage,
	".mp4":  models.KindVideo,
}

// KindOf classifies a file name by extension
func KindOf(name string) (models.MediaKind, bool) {
	kind, ok := mediaExtensions[strings.ToLower(filepath.Ext(name))]
	return kind, ok
}

// IsMedia reports whether name carries one of the gallery extensions
func IsMedia(name string) bool {
	_, ok := KindOf(name)
	return ok
}

// FilterMedia keeps the entries the gallery can display
func FilterMedia(entries []models.StorageEntry) []models.StorageEntry {
	out := make([]models.StorageEntry, 0, len(entries))
	for _, e := range entries {
		if IsMedia(e.Name) {
			out = append(out, e)
		}
	}
	return out
}

// ContentTypeFor guesses the upload content type from the extension
func ContentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".mp4":
		return "video/mp4"
	default:
		return "application/octet-stream"
	}
}

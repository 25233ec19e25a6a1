package utils

import "github.com/dustin/go-humanize"

// FormatBytes renders a byte count in binary units, e.g. "1.5 MiB"
func FormatBytes(bytes uint64) string {
	return humanize.IBytes(bytes)
}

// FormatFileSize renders an optional object size; unknown or negative sizes render as ""
func FormatFileSize(size *int64) string {
	if size == nil || *size < 0 {
		return ""
	}
	return humanize.IBytes(uint64(*size))
}

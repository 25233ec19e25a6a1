// Package models contains data structures shared by services and handlers
package models

import (
	"io"
	"time"
)

// MediaKind tells the page which element renders an entry
type MediaKind string

const (
	KindImage MediaKind = "image"
	KindVideo MediaKind = "video"
)

// StorageEntry is one node returned by a folder listing.
// Path is empty as returned by a backend and is filled in by the enumerator.
type StorageEntry struct {
	Name      string
	IsFolder  bool
	CreatedAt time.Time
	Size      *int64
	Path      string
}

// Key returns the path used to address the object, falling back to the bare name
func (e StorageEntry) Key() string {
	if e.Path != "" {
		return e.Path
	}
	return e.Name
}

// ResolvedMedia pairs a leaf entry with a displayable URL
type ResolvedMedia struct {
	Entry  StorageEntry
	URL    string
	Kind   MediaKind
	Signed bool
}

// LocalFile is a file submitted by a guest
type LocalFile struct {
	Name        string
	Size        int64
	ContentType string
	Reader      io.Reader
}

// UploadJob is an in-flight upload of one local file
type UploadJob struct {
	File            LocalFile
	DestinationPath string
}

// UploadResult reports the outcome of one file in a batch
type UploadResult struct {
	Name string
	Path string
	Err  error
}

// OK reports whether the upload succeeded
func (r UploadResult) OK() bool {
	return r.Err == nil
}

// Warning operations
const (
	OpList    = "list"
	OpResolve = "resolve"
	OpDepth   = "depth"
)

// Warning records a failure that was absorbed instead of propagated
type Warning struct {
	Path string
	Op   string
	Err  error
}

func (w Warning) String() string {
	if w.Err == nil {
		return w.Op + " " + w.Path
	}
	return w.Op + " " + w.Path + ": " + w.Err.Error()
}

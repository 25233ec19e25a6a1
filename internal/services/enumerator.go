package services

import (
	"context"
	"errors"
	"strings"

	"github.com/damacus/wedding-album/internal/models"
)

// DefaultMaxDepth bounds how many folder levels below the root are walked
const DefaultMaxDepth = 32

// ErrMaxDepth is recorded for folders that were not descended into
var ErrMaxDepth = errors.New("folder nesting exceeds max depth")

// Enumerator flattens a bucket's folder tree into its leaf entries
type Enumerator struct {
	backend  StorageBackend
	pageSize int
	maxDepth int
}

func NewEnumerator(backend StorageBackend, pageSize, maxDepth int) *Enumerator {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Enumerator{backend: backend, pageSize: pageSize, maxDepth: maxDepth}
}

type folderFrame struct {
	path  string
	depth int
}

// ListAllMedia walks root depth-first and returns every non-folder entry with
// its Path set. A folder's own leaves come before the leaves of its
// subfolders, and subfolders are visited in the order the backend listed them.
//
// Failed listings contribute no entries and are reported as warnings.
func (e *Enumerator) ListAllMedia(ctx context.Context, root string) ([]models.StorageEntry, []models.Warning) {
	var leaves []models.StorageEntry
	var warnings []models.Warning

	stack := []folderFrame{{path: cleanPath(root)}}
	for len(stack) > 0 {
		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if err := ctx.Err(); err != nil {
			// Every folder not yet listed is reported, in visiting order
			warnings = append(warnings, models.Warning{Path: frame.path, Op: models.OpList, Err: err})
			for i := len(stack) - 1; i >= 0; i-- {
				warnings = append(warnings, models.Warning{Path: stack[i].path, Op: models.OpList, Err: err})
			}
			break
		}

		entries, err := e.backend.List(ctx, frame.path, ListOptions{
			Limit:  e.pageSize,
			SortBy: SortByCreatedDesc,
		})
		if err != nil {
			warnings = append(warnings, models.Warning{Path: frame.path, Op: models.OpList, Err: err})
			continue
		}

		var folders []string
		for _, entry := range entries {
			if entry.IsFolder {
				folders = append(folders, joinPath(frame.path, entry.Name))
				continue
			}
			entry.Path = joinPath(frame.path, entry.Name)
			leaves = append(leaves, entry)
		}

		// Pushed in reverse so the first listed folder is popped first.
		for i := len(folders) - 1; i >= 0; i-- {
			if frame.depth+1 > e.maxDepth {
				warnings = append(warnings, models.Warning{Path: folders[i], Op: models.OpDepth, Err: ErrMaxDepth})
				continue
			}
			stack = append(stack, folderFrame{path: folders[i], depth: frame.depth + 1})
		}
	}

	return leaves, warnings
}

// joinPath appends name to folder with exactly one separator between segments
func joinPath(folder, name string) string {
	name = cleanPath(name)
	if folder == "" {
		return name
	}
	if name == "" {
		return folder
	}
	return folder + "/" + name
}

// cleanPath drops empty segments, so "a//b/" becomes "a/b"
func cleanPath(p string) string {
	if !strings.Contains(p, "/") {
		return p
	}
	parts := strings.Split(p, "/")
	kept := parts[:0]
	for _, part := range parts {
		if part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, "/")
}

package services

import (
	"context"
	"log/slog"
	"path"
	"sync"
	"sync/atomic"
	"time"

	"github.com/damacus/wedding-album/internal/models"
)

// Snapshot is one published view of the gallery. It is never mutated after
// publication.
type Snapshot struct {
	Generation uint64
	Media      []models.ResolvedMedia
	Warnings   []models.Warning
	FetchedAt  time.Time
}

// Album owns the gallery that guests see. Every fetch takes a generation
// number and a result is only published if nothing newer has been published
// first, so a slow fetch cannot overwrite a faster, later one.
type Album struct {
	enumerator *Enumerator
	resolver   *Resolver
	root       string

	generation atomic.Uint64
	current    atomic.Pointer[Snapshot]
	publishMu  sync.Mutex

	subMu       sync.RWMutex
	subscribers []func(*Snapshot)
}

func NewAlbum(enumerator *Enumerator, resolver *Resolver, root string) *Album {
	a := &Album{enumerator: enumerator, resolver: resolver, root: root}
	a.current.Store(&Snapshot{})
	return a
}

// Current returns the published snapshot
func (a *Album) Current() *Snapshot {
	return a.current.Load()
}

// Subscribe registers fn to be called after every publish
func (a *Album) Subscribe(fn func(*Snapshot)) {
	a.subMu.Lock()
	defer a.subMu.Unlock()
	a.subscribers = append(a.subscribers, fn)
}

// Refresh re-enumerates the bucket, resolves URLs and publishes the result.
// It returns the snapshot visible afterwards, which belongs to a newer fetch
// if one finished first.
func (a *Album) Refresh(ctx context.Context) *Snapshot {
	gen := a.generation.Add(1)
	started := time.Now()

	leaves, listWarnings := a.enumerator.ListAllMedia(ctx, a.root)
	media, resolveWarnings := a.resolver.ResolveAll(ctx, FilterMedia(leaves))

	snap := &Snapshot{
		Generation: gen,
		Media:      media,
		Warnings:   append(listWarnings, resolveWarnings...),
		FetchedAt:  time.Now(),
	}
	logWarnings(snap.Warnings)

	if a.publish(func(*Snapshot) *Snapshot { return snap }, gen) {
		slog.Info("gallery refreshed",
			"generation", gen,
			"media", len(media),
			"warnings", len(snap.Warnings),
			"duration_ms", time.Since(started).Milliseconds(),
		)
	} else {
		slog.Debug("discarding stale gallery fetch", "generation", gen)
	}
	return a.Current()
}

// MergeUploaded resolves freshly uploaded paths and publishes them ahead of
// the current media, replacing entries with the same path.
func (a *Album) MergeUploaded(ctx context.Context, paths []string) *Snapshot {
	entries := make([]models.StorageEntry, 0, len(paths))
	now := time.Now()
	for _, raw := range paths {
		p := cleanPath(raw)
		entries = append(entries, models.StorageEntry{Name: path.Base(p), Path: p, CreatedAt: now})
	}
	fresh, warnings := a.resolver.ResolveAll(ctx, FilterMedia(entries))
	logWarnings(warnings)
	if len(fresh) == 0 {
		return a.Current()
	}

	gen := a.generation.Add(1)
	a.publish(func(base *Snapshot) *Snapshot {
		return &Snapshot{
			Generation: gen,
			Media:      mergeMedia(fresh, base.Media),
			Warnings:   base.Warnings,
			FetchedAt:  base.FetchedAt,
		}
	}, gen)
	return a.Current()
}

func (a *Album) publish(build func(base *Snapshot) *Snapshot, gen uint64) bool {
	a.publishMu.Lock()
	base := a.current.Load()
	if base.Generation > gen {
		a.publishMu.Unlock()
		return false
	}
	snap := build(base)
	a.current.Store(snap)
	a.publishMu.Unlock()

	a.subMu.RLock()
	subs := append([]func(*Snapshot){}, a.subscribers...)
	a.subMu.RUnlock()
	for _, fn := range subs {
		fn(snap)
	}
	return true
}

// mergeMedia puts fresh first and drops older items sharing a path
func mergeMedia(fresh, existing []models.ResolvedMedia) []models.ResolvedMedia {
	seen := make(map[string]bool, len(fresh))
	out := make([]models.ResolvedMedia, 0, len(fresh)+len(existing))
	for _, m := range fresh {
		if seen[m.Entry.Key()] {
			continue
		}
		seen[m.Entry.Key()] = true
		out = append(out, m)
	}
	for _, m := range existing {
		if seen[m.Entry.Key()] {
			continue
		}
		out = append(out, m)
	}
	return out
}

func logWarnings(warnings []models.Warning) {
	for _, w := range warnings {
		slog.Warn("gallery entry skipped", "op", w.Op, "path", w.Path, "error", w.Err)
	}
}

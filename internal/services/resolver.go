package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/damacus/wedding-album/internal/models"
	"golang.org/x/sync/errgroup"
)

// DefaultSignedURLTTL is the lifetime of signed fallback URLs
const DefaultSignedURLTTL = time.Hour

// DefaultResolveConcurrency bounds parallel signing calls per fetch
const DefaultResolveConcurrency = 8

// Resolver turns leaf entries into URLs a browser can load
type Resolver struct {
	backend     StorageBackend
	ttl         time.Duration
	concurrency int
}

func NewResolver(backend StorageBackend, ttl time.Duration, concurrency int) *Resolver {
	if ttl <= 0 {
		ttl = DefaultSignedURLTTL
	}
	if concurrency <= 0 {
		concurrency = DefaultResolveConcurrency
	}
	return &Resolver{backend: backend, ttl: ttl, concurrency: concurrency}
}

// Resolve returns the public URL of entry when the backend offers one, and a
// signed URL otherwise. On failure the URL is empty.
func (r *Resolver) Resolve(ctx context.Context, entry models.StorageEntry) (string, error) {
	url, _, err := r.resolve(ctx, entry.Key())
	return url, err
}

func (r *Resolver) resolve(ctx context.Context, key string) (string, bool, error) {
	public := r.backend.PublicURL(key)
	if public != "" && public != NoPublicURL {
		return normalizeBucketSeparator(public, r.backend.Bucket()), false, nil
	}

	signed, err := r.backend.SignedURL(ctx, key, r.ttl)
	if err != nil {
		return "", false, fmt.Errorf("sign %s: %w", key, err)
	}
	if signed == "" {
		return "", false, fmt.Errorf("sign %s: empty url", key)
	}
	return signed, true, nil
}

type resolution struct {
	url    string
	signed bool
	err    error
}

// ResolveAll resolves entries concurrently and returns the ones that succeeded,
// in input order. Failures are returned as warnings.
func (r *Resolver) ResolveAll(ctx context.Context, entries []models.StorageEntry) ([]models.ResolvedMedia, []models.Warning) {
	var mu sync.Mutex
	byPath := make(map[string]resolution, len(entries))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for _, entry := range entries {
		key := entry.Key()
		g.Go(func() error {
			url, signed, err := r.resolve(ctx, key)
			mu.Lock()
			byPath[key] = resolution{url: url, signed: signed, err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	media := make([]models.ResolvedMedia, 0, len(entries))
	var warnings []models.Warning
	for _, entry := range entries {
		res := byPath[entry.Key()]
		if res.err != nil {
			warnings = append(warnings, models.Warning{Path: entry.Key(), Op: models.OpResolve, Err: res.err})
			continue
		}
		kind, _ := KindOf(entry.Name)
		media = append(media, models.ResolvedMedia{
			Entry:  entry,
			URL:    res.url,
			Kind:   kind,
			Signed: res.signed,
		})
	}
	return media, warnings
}

// normalizeBucketSeparator collapses a doubled separator right after the
// bucket segment, as in ".../bucket//photo.jpg".
func normalizeBucketSeparator(raw, bucket string) string {
	if bucket == "" {
		return raw
	}
	doubled := "/" + bucket + "//"
	i := strings.Index(raw, doubled)
	if i < 0 {
		return raw
	}
	rest := strings.TrimLeft(raw[i+len(doubled):], "/")
	return raw[:i] + "/" + bucket + "/" + rest
}

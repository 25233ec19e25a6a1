package services

import (
	"context"
	"errors"
	"io"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/minio/minio-go/v7"

	"github.com/damacus/wedding-album/internal/models"
)

var errFake = errors.New("fake backend failure")

// fakeBackend keeps objects in memory and lists them the way a bucket with
// "/" delimiters does
type fakeBackend struct {
	mu sync.Mutex

	bucket     string
	objects    map[string]fakeObject
	public     bool
	publicBase string

	failList   map[string]bool
	failSign   map[string]bool
	failUpload map[string]bool // by submitted file name
	listCalls  []string
	signCalls  []string
}

type fakeObject struct {
	created time.Time
	size    int64
	body    []byte
	ctype   string
}

func newFakeBackend(keys ...string) *fakeBackend {
	b := &fakeBackend{
		bucket:     "wedding",
		objects:    make(map[string]fakeObject),
		publicBase: "https://storage.test",
		failList:   make(map[string]bool),
		failSign:   make(map[string]bool),
		failUpload: make(map[string]bool),
	}
	// Earlier keys are newer
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, k := range keys {
		b.objects[k] = fakeObject{created: base.Add(-time.Duration(i) * time.Minute), size: int64(100 + i)}
	}
	return b
}

func (b *fakeBackend) Bucket() string { return b.bucket }

func (b *fakeBackend) List(ctx context.Context, folder string, opts ListOptions) ([]models.StorageEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.listCalls = append(b.listCalls, folder)
	if b.failList[folder] {
		return nil, errFake
	}

	prefix := ""
	if folder != "" {
		prefix = folder + "/"
	}

	var leaves []models.StorageEntry
	var folders []string
	seen := make(map[string]bool)
	for key, obj := range b.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := strings.TrimPrefix(key, prefix)
		if i := strings.Index(rest, "/"); i >= 0 {
			name := rest[:i]
			if !seen[name] {
				seen[name] = true
				folders = append(folders, name)
			}
			continue
		}
		size := obj.size
		leaves = append(leaves, models.StorageEntry{Name: rest, CreatedAt: obj.created, Size: &size})
	}

	// Map order is random; start from key order as a bucket would
	sort.Slice(leaves, func(i, j int) bool { return leaves[i].Name < leaves[j].Name })
	sort.Strings(folders)

	entries := leaves
	for _, f := range folders {
		entries = append(entries, models.StorageEntry{Name: f, IsFolder: true})
	}
	entries, _ = limitEntries(entries, opts)
	return entries, nil
}

func (b *fakeBackend) PublicURL(path string) string {
	if !b.public {
		return NoPublicURL
	}
	return b.publicBase + "/" + b.bucket + "/" + path
}

func (b *fakeBackend) SignedURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.signCalls = append(b.signCalls, path)
	if b.failSign[path] {
		return "", errFake
	}
	return "https://signed.test/" + path + "?expires=" + expiry.String(), nil
}

func (b *fakeBackend) Upload(ctx context.Context, path string, r io.Reader, size int64, contentType string) error {
	body, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for name := range b.failUpload {
		if strings.HasSuffix(path, "_"+name) {
			return errFake
		}
	}
	b.objects[path] = fakeObject{created: time.Now(), size: int64(len(body)), body: body, ctype: contentType}
	return nil
}

func (b *fakeBackend) has(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[key]
	return ok
}

func (b *fakeBackend) setFailList(folder string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failList[folder] = true
}

func paths(entries []models.StorageEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Path)
	}
	return out
}

func mediaPaths(media []models.ResolvedMedia) []string {
	out := make([]string, 0, len(media))
	for _, m := range media {
		out = append(out, m.Entry.Key())
	}
	return out
}

// lexicalBucket lists the way S3 and MinIO servers do: direct children of a
// prefix in key order, common prefixes merged in, cut at the page size and
// resumed after the last returned key. It never sorts by time.
type lexicalBucket struct {
	mu       sync.Mutex
	objects  map[string]lexicalObject
	clock    time.Time
	maxPage  int // server side page cap, 0 for none
	requests int
}

type lexicalObject struct {
	modified time.Time
	size     int64
}

type lexicalItem struct {
	key    string
	folder bool
	lexicalObject
}

func newLexicalBucket(keys ...string) *lexicalBucket {
	l := &lexicalBucket{
		objects: make(map[string]lexicalObject),
		clock:   time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	for _, k := range keys {
		l.put(k, 1)
	}
	return l
}

// put stores key one second after the previous put
func (l *lexicalBucket) put(key string, size int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.clock = l.clock.Add(time.Second)
	l.objects[key] = lexicalObject{modified: l.clock, size: size}
}

func (l *lexicalBucket) page(prefix, startAfter string, maxKeys int) ([]lexicalItem, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.requests++

	seen := make(map[string]bool)
	var items []lexicalItem
	for key, obj := range l.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := strings.TrimPrefix(key, prefix)
		if i := strings.Index(rest, "/"); i >= 0 {
			dir := prefix + rest[:i+1]
			if !seen[dir] {
				seen[dir] = true
				items = append(items, lexicalItem{key: dir, folder: true})
			}
			continue
		}
		items = append(items, lexicalItem{key: key, lexicalObject: obj})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].key < items[j].key })

	start := sort.Search(len(items), func(i int) bool { return items[i].key > startAfter })
	items = items[start:]
	if l.maxPage > 0 && (maxKeys <= 0 || l.maxPage < maxKeys) {
		maxKeys = l.maxPage
	}
	if maxKeys > 0 && len(items) > maxKeys {
		return items[:maxKeys], true
	}
	return items, false
}

// lexicalS3 serves a lexicalBucket through S3API
type lexicalS3 struct {
	*lexicalBucket
}

func (l lexicalS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	items, truncated := l.page(aws.ToString(in.Prefix), aws.ToString(in.ContinuationToken), int(aws.ToInt32(in.MaxKeys)))

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(truncated)}
	for _, it := range items {
		if it.folder {
			out.CommonPrefixes = append(out.CommonPrefixes, types.CommonPrefix{Prefix: aws.String(it.key)})
			continue
		}
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(it.key),
			LastModified: aws.Time(it.modified),
			Size:         aws.Int64(it.size),
		})
	}
	if truncated {
		out.NextContinuationToken = aws.String(items[len(items)-1].key)
	}
	return out, nil
}

func (l lexicalS3) PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	l.put(aws.ToString(in.Key), aws.ToInt64(in.ContentLength))
	return &s3.PutObjectOutput{}, nil
}

// lexicalMinio serves a lexicalBucket through MinioClient
type lexicalMinio struct {
	*lexicalBucket
}

func (l lexicalMinio) ListObjectsPaginated(ctx context.Context, bucketName string, opts ListObjectsOptions) (ListObjectsResult, error) {
	items, truncated := l.page(opts.Prefix, opts.ContinuationToken, opts.MaxKeys)

	result := ListObjectsResult{IsTruncated: truncated}
	for _, it := range items {
		result.Objects = append(result.Objects, minio.ObjectInfo{Key: it.key, LastModified: it.modified, Size: it.size})
	}
	if truncated {
		result.NextContinuationToken = items[len(items)-1].key
	}
	return result, nil
}

func (l lexicalMinio) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	l.put(objectName, objectSize)
	return minio.UploadInfo{Key: objectName}, nil
}

func (l lexicalMinio) PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error) {
	return &url.URL{Scheme: "https", Host: "minio.test", Path: "/" + bucketName + "/" + objectName}, nil
}

func (l lexicalMinio) GetBucketPolicy(ctx context.Context, bucketName string) (string, error) {
	return "", nil
}

func (l lexicalMinio) EndpointURL() *url.URL {
	return &url.URL{Scheme: "https", Host: "minio.test"}
}

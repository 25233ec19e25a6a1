package main

import (
	"context"
	"io"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/minio/madmin-go/v3"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/mock"

	"github.com/damacus/wedding-album/internal/config"
	"github.com/damacus/wedding-album/internal/services"
)

// MockMinioClient implements both MinioClient and MinioAdminClient interfaces for testing.
// ListObjectsPaginated and PresignedGetObject also accept a function as the
// first return value so a test can answer from its own state.
type MockMinioClient struct {
	mock.Mock
}

// MinioAdminClient methods

func (m *MockMinioClient) DataUsageInfo(ctx context.Context) (madmin.DataUsageInfo, error) {
	args := m.Called(ctx)
	return args.Get(0).(madmin.DataUsageInfo), args.Error(1)
}

// MinioClient methods

func (m *MockMinioClient) ListObjectsPaginated(ctx context.Context, bucketName string, opts services.ListObjectsOptions) (services.ListObjectsResult, error) {
	args := m.Called(ctx, bucketName, opts)
	if fn, ok := args.Get(0).(func(services.ListObjectsOptions) services.ListObjectsResult); ok {
		return fn(opts), args.Error(1)
	}
	return args.Get(0).(services.ListObjectsResult), args.Error(1)
}

func (m *MockMinioClient) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	args := m.Called(ctx, bucketName, objectName, reader, objectSize, opts)
	return args.Get(0).(minio.UploadInfo), args.Error(1)
}

func (m *MockMinioClient) PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error) {
	args := m.Called(ctx, bucketName, objectName, expires, reqParams)
	if fn, ok := args.Get(0).(func(string) *url.URL); ok {
		return fn(objectName), args.Error(1)
	}
	return args.Get(0).(*url.URL), args.Error(1)
}

func (m *MockMinioClient) GetBucketPolicy(ctx context.Context, bucketName string) (string, error) {
	args := m.Called(ctx, bucketName)
	return args.String(0), args.Error(1)
}

func (m *MockMinioClient) EndpointURL() *url.URL {
	args := m.Called()
	return args.Get(0).(*url.URL)
}

// MockMinioFactory implements MinioClientFactory for testing
type MockMinioFactory struct {
	mock.Mock
}

func (m *MockMinioFactory) NewAdminClient(creds services.Credentials) (services.MinioAdminClient, error) {
	args := m.Called(creds)
	client, _ := args.Get(0).(services.MinioAdminClient)
	return client, args.Error(1)
}

func (m *MockMinioFactory) NewClient(creds services.Credentials) (services.MinioClient, error) {
	args := m.Called(creds)
	client, _ := args.Get(0).(services.MinioClient)
	return client, args.Error(1)
}

// MockRenderer implements echo.Renderer for testing and remembers what it was asked to render
type MockRenderer struct {
	mu       sync.Mutex
	rendered []string
	lastData interface{}
}

func (r *MockRenderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rendered = append(r.rendered, name)
	r.lastData = data
	return nil // Successfully "rendered" nothing
}

func (r *MockRenderer) last() (string, interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.rendered) == 0 {
		return "", nil
	}
	return r.rendered[len(r.rendered)-1], r.lastData
}

// bucketState is an in-memory bucket the mock client answers from
type bucketState struct {
	mu      sync.Mutex
	objects map[string]minio.ObjectInfo
}

func newBucketState(keys ...string) *bucketState {
	s := &bucketState{objects: make(map[string]minio.ObjectInfo)}
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, k := range keys {
		s.objects[k] = minio.ObjectInfo{Key: k, Size: int64(1000 + i), LastModified: base.Add(-time.Duration(i) * time.Minute)}
	}
	return s
}

func (s *bucketState) put(key string, size int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = minio.ObjectInfo{Key: key, Size: size, LastModified: time.Now()}
}

// list mimics a non-recursive listing in key order: direct children plus one
// common prefix per subfolder, resumed after ContinuationToken
func (s *bucketState) list(opts services.ListObjectsOptions) services.ListObjectsResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []minio.ObjectInfo
	seen := make(map[string]bool)
	for key, obj := range s.objects {
		if !strings.HasPrefix(key, opts.Prefix) {
			continue
		}
		rest := strings.TrimPrefix(key, opts.Prefix)
		if i := strings.Index(rest, "/"); i >= 0 {
			dir := opts.Prefix + rest[:i+1]
			if !seen[dir] {
				seen[dir] = true
				out = append(out, minio.ObjectInfo{Key: dir})
			}
			continue
		}
		out = append(out, obj)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	start := sort.Search(len(out), func(i int) bool { return out[i].Key > opts.ContinuationToken })
	out = out[start:]
	if opts.MaxKeys > 0 && len(out) > opts.MaxKeys {
		out = out[:opts.MaxKeys]
		return services.ListObjectsResult{Objects: out, IsTruncated: true, NextContinuationToken: out[len(out)-1].Key}
	}
	return services.ListObjectsResult{Objects: out}
}

func testConfig() *config.Config {
	return &config.Config{
		ServerPort:         "8080",
		RequestTimeout:     5 * time.Second,
		StorageDriver:      config.DriverMinio,
		StorageEndpoint:    "localhost:9000",
		StorageAccessKey:   "guest",
		StorageSecretKey:   "secret",
		StorageRegion:      "us-east-1",
		StorageBucket:      "wedding",
		StoragePublic:      "auto",
		ListPageSize:       100,
		MaxFolderDepth:     32,
		ResolveConcurrency: 4,
		SignedURLTTL:       time.Hour,
		MaxUploadSize:      1 << 20,
		MaxRequestSize:     4 << 20,
		UploadRatePerMin:   100,
		AlbumTitle:         config.DefaultAlbumTitle,
	}
}

// newMockedStorage wires a MinIO backend whose client answers from state
func newMockedStorage(state *bucketState) (*storage, *MockMinioClient, *MockMinioFactory) {
	client := new(MockMinioClient)
	client.On("GetBucketPolicy", mock.Anything, "wedding").Return("", nil)
	client.On("EndpointURL").Return(&url.URL{Scheme: "http", Host: "localhost:9000"})
	client.On("ListObjectsPaginated", mock.Anything, "wedding", mock.Anything).Return(state.list, nil)
	client.On("PresignedGetObject", mock.Anything, "wedding", mock.Anything, mock.Anything, mock.Anything).
		Return(func(key string) *url.URL {
			return &url.URL{Scheme: "http", Host: "localhost:9000", Path: "/wedding/" + key, RawQuery: "X-Amz-Signature=test"}
		}, nil)

	factory := new(MockMinioFactory)
	creds := services.Credentials{Endpoint: "localhost:9000", AccessKey: "guest", SecretKey: "secret"}
	factory.On("NewClient", creds).Return(client, nil)
	factory.On("NewAdminClient", creds).Return(client, nil)

	store, err := newStorage(context.Background(), testConfig(), factory)
	if err != nil {
		panic(err)
	}
	return store, client, factory
}

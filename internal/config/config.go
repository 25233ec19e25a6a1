package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMinio = "minio"
	DriverS3    = "s3"

	DefaultAlbumTitle = "Rabia & Hamza'nın Mutlu Anları"
)

type Config struct {
	ServerPort          string
	ServerHeaderTimeout time.Duration
	ServerWriteTimeout  time.Duration
	ServerIdleTimeout   time.Duration
	RequestTimeout      time.Duration
	LogLevel            string
	LogFormat           string

	StorageDriver        string
	StorageEndpoint      string
	StorageAccessKey     string
	StorageSecretKey     string
	StorageRegion        string
	StorageBucket        string
	StoragePublic        string
	StoragePublicBaseURL string

	ListPageSize       int
	MaxFolderDepth     int
	ResolveConcurrency int
	SignedURLTTL       time.Duration
	MaxUploadSize      int64
	MaxRequestSize     int64
	UploadRatePerMin   int

	AlbumTitle    string
	CoverImageURL string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:          getEnv("SERVER_PORT", "8080"),
		ServerHeaderTimeout: getDuration("SERVER_READ_HEADER_TIMEOUT", 15*time.Second),
		ServerWriteTimeout:  getDuration("SERVER_WRITE_TIMEOUT", 10*time.Minute),
		ServerIdleTimeout:   getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:      getDuration("REQUEST_TIMEOUT", 30*time.Second),
		LogLevel:            strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:           strings.ToLower(getEnv("LOG_FORMAT", "text")),

		StorageDriver:        strings.ToLower(getEnv("STORAGE_DRIVER", DriverMinio)),
		StorageEndpoint:      strings.TrimSpace(os.Getenv("STORAGE_ENDPOINT")),
		StorageAccessKey:     strings.TrimSpace(os.Getenv("STORAGE_ACCESS_KEY")),
		StorageSecretKey:     strings.TrimSpace(os.Getenv("STORAGE_SECRET_KEY")),
		StorageRegion:        getEnv("STORAGE_REGION", "us-east-1"),
		StorageBucket:        getEnv("STORAGE_BUCKET", "wedding"),
		StoragePublic:        getEnv("STORAGE_PUBLIC", "auto"),
		StoragePublicBaseURL: strings.TrimSpace(os.Getenv("STORAGE_PUBLIC_BASE_URL")),

		ListPageSize:       getInt("LIST_PAGE_SIZE", 100),
		MaxFolderDepth:     getInt("MAX_FOLDER_DEPTH", 32),
		ResolveConcurrency: getInt("RESOLVE_CONCURRENCY", 8),
		SignedURLTTL:       getDuration("SIGNED_URL_TTL", time.Hour),
		MaxUploadSize:      getInt64("MAX_UPLOAD_SIZE", 200<<20),
		MaxRequestSize:     getInt64("MAX_REQUEST_SIZE", 1<<30),
		UploadRatePerMin:   getInt("UPLOAD_RATE_PER_MINUTE", 30),

		AlbumTitle:    getEnv("ALBUM_TITLE", DefaultAlbumTitle),
		CoverImageURL: strings.TrimSpace(os.Getenv("COVER_IMAGE_URL")),
	}

	// AWS resolves its own endpoint
	if cfg.StorageDriver == DriverMinio && cfg.StorageEndpoint == "" {
		cfg.StorageEndpoint = "play.min.io:9000"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	switch c.StorageDriver {
	case DriverMinio, DriverS3:
	default:
		return fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", DriverMinio, DriverS3, c.StorageDriver)
	}

	if c.StorageDriver == DriverMinio && c.StorageEndpoint == "" {
		return fmt.Errorf("STORAGE_ENDPOINT is required for the minio driver")
	}

	if strings.TrimSpace(c.StorageBucket) == "" {
		return fmt.Errorf("STORAGE_BUCKET cannot be empty")
	}

	switch strings.ToLower(c.StoragePublic) {
	case "auto", "true", "false", "yes", "no", "1", "0":
	default:
		return fmt.Errorf("STORAGE_PUBLIC must be true, false or auto")
	}

	if c.ListPageSize <= 0 {
		return fmt.Errorf("LIST_PAGE_SIZE must be positive")
	}

	if c.MaxFolderDepth <= 0 {
		return fmt.Errorf("MAX_FOLDER_DEPTH must be positive")
	}

	if c.ResolveConcurrency <= 0 {
		return fmt.Errorf("RESOLVE_CONCURRENCY must be positive")
	}

	if c.SignedURLTTL <= 0 {
		return fmt.Errorf("SIGNED_URL_TTL must be positive")
	}

	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be positive")
	}

	if c.MaxRequestSize < c.MaxUploadSize {
		return fmt.Errorf("MAX_REQUEST_SIZE cannot be smaller than MAX_UPLOAD_SIZE")
	}

	if c.UploadRatePerMin < 0 {
		return fmt.Errorf("UPLOAD_RATE_PER_MINUTE cannot be negative")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	return nil
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getInt64(key string, fallback int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

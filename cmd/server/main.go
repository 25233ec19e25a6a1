package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/damacus/wedding-album/internal/config"
	"github.com/damacus/wedding-album/internal/handlers"
	customMiddleware "github.com/damacus/wedding-album/internal/middleware"
	"github.com/damacus/wedding-album/internal/renderer"
	"github.com/damacus/wedding-album/internal/services"
	"github.com/damacus/wedding-album/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := newStorage(ctx, cfg, &services.RealMinioFactory{})
	if err != nil {
		slog.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}

	e, hub := newServer(cfg, store, renderer.New("views"))
	go hub.Run(ctx)

	e.Server.ReadHeaderTimeout = cfg.ServerHeaderTimeout
	e.Server.WriteTimeout = cfg.ServerWriteTimeout
	e.Server.IdleTimeout = cfg.ServerIdleTimeout

	go func() {
		slog.Info("server starting", "port", cfg.ServerPort, "driver", cfg.StorageDriver, "bucket", cfg.StorageBucket)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}

// storage bundles the selected backend with what the server needs around it
type storage struct {
	backend services.StorageBackend
	admin   services.MinioAdminClient
	origins []string
}

func newStorage(ctx context.Context, cfg *config.Config, factory services.MinioClientFactory) (*storage, error) {
	mode, err := services.ParsePublicMode(cfg.StoragePublic)
	if err != nil {
		return nil, err
	}

	switch cfg.StorageDriver {
	case config.DriverS3:
		// Without a policy API of our own, auto means public only when a
		// public base URL was configured
		public := mode == services.PublicAlways || (mode == services.PublicAuto && cfg.StoragePublicBaseURL != "")
		backend, err := services.NewS3Backend(ctx, services.S3Options{
			Region:        cfg.StorageRegion,
			Endpoint:      endpointURL(cfg.StorageEndpoint),
			AccessKey:     cfg.StorageAccessKey,
			SecretKey:     cfg.StorageSecretKey,
			Bucket:        cfg.StorageBucket,
			Public:        public,
			PublicBaseURL: cfg.StoragePublicBaseURL,
		})
		if err != nil {
			return nil, err
		}
		origins := []string{fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.StorageBucket, cfg.StorageRegion)}
		for _, raw := range []string{cfg.StoragePublicBaseURL, endpointURL(cfg.StorageEndpoint)} {
			if o := originOf(raw); o != "" {
				origins = append(origins, o)
			}
		}
		return &storage{backend: backend, origins: origins}, nil

	default:
		creds := services.Credentials{
			Endpoint:  cfg.StorageEndpoint,
			AccessKey: cfg.StorageAccessKey,
			SecretKey: cfg.StorageSecretKey,
		}
		client, err := factory.NewClient(creds)
		if err != nil {
			return nil, fmt.Errorf("connect to minio: %w", err)
		}

		backend := services.NewMinioBackend(client, cfg.StorageBucket, mode)
		if err := backend.DetectPublicAccess(ctx); err != nil {
			slog.Warn("could not read bucket policy, using signed URLs", "error", err)
		}

		var origins []string
		if u := client.EndpointURL(); u != nil {
			origins = append(origins, u.Scheme+"://"+u.Host)
		}

		s := &storage{backend: backend, origins: origins}
		// Usage stats fall back to the listing when the keys lack admin rights
		if admin, err := factory.NewAdminClient(creds); err != nil {
			slog.Warn("minio admin client unavailable", "error", err)
		} else {
			s.admin = admin
		}
		return s, nil
	}
}

func newServer(cfg *config.Config, store *storage, r echo.Renderer) (*echo.Echo, *websocket.Hub) {
	e := echo.New()
	e.HideBanner = true

	// Services
	enumerator := services.NewEnumerator(store.backend, cfg.ListPageSize, cfg.MaxFolderDepth)
	resolver := services.NewResolver(store.backend, cfg.SignedURLTTL, cfg.ResolveConcurrency)
	album := services.NewAlbum(enumerator, resolver, "")
	uploader := services.NewUploader(store.backend, cfg.MaxUploadSize)
	usage := services.NewUsageReporter(store.admin, album, store.backend.Bucket())

	hub := websocket.NewHub()
	album.Subscribe(hub.Notify)

	galleryHandler := handlers.NewGalleryHandler(album, uploader, handlers.PageConfig{
		Title:         cfg.AlbumTitle,
		CoverImageURL: cfg.CoverImageURL,
	})
	statsHandler := handlers.NewStatsHandler(usage)

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			switch {
			case v.Status >= http.StatusInternalServerError:
				level = slog.LevelError
			case v.Status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			slog.LogAttrs(c.Request().Context(), level, "request", attrs...)
			return nil
		},
	}))
	e.Use(customMiddleware.SecurityHeaders(mediaOrigins(cfg, store)...))
	e.Use(customMiddleware.CSRF("/health", "/ws"))
	e.Use(middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{
		Timeout: cfg.RequestTimeout,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/upload" || c.Path() == "/ws"
		},
	}))

	// Template Renderer
	e.Renderer = r

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
	e.GET("/", galleryHandler.Index)
	e.GET("/gallery", galleryHandler.Grid)
	e.GET("/api/media", galleryHandler.ListMedia)
	e.GET("/api/stats", statsHandler.GetStats)
	e.GET("/ws", hub.ServeWS)

	e.POST("/upload", galleryHandler.Upload,
		customMiddleware.UploadRateLimit(cfg.UploadRatePerMin),
		middleware.BodyLimit(fmt.Sprintf("%dB", cfg.MaxRequestSize)),
	)

	return e, hub
}

// mediaOrigins lists the origins images and videos may load from: the storage
// origins plus the cover photo's host
func mediaOrigins(cfg *config.Config, store *storage) []string {
	origins := append([]string(nil), store.origins...)
	if o := originOf(cfg.CoverImageURL); o != "" && !slices.Contains(origins, o) {
		origins = append(origins, o)
	}
	return origins
}

// endpointURL turns a host:port endpoint into a URL for the AWS client
func endpointURL(endpoint string) string {
	if endpoint == "" || strings.Contains(endpoint, "://") {
		return endpoint
	}
	return "https://" + endpoint
}

func originOf(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

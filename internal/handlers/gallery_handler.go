package handlers

import (
	"mime/multipart"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/damacus/wedding-album/internal/models"
	"github.com/damacus/wedding-album/internal/services"
)

// PageConfig holds what the album page shows besides the media
type PageConfig struct {
	Title         string
	CoverImageURL string
}

type GalleryHandler struct {
	album    *services.Album
	uploader *services.Uploader
	page     PageConfig
}

func NewGalleryHandler(album *services.Album, uploader *services.Uploader, page PageConfig) *GalleryHandler {
	return &GalleryHandler{album: album, uploader: uploader, page: page}
}

// MediaItem is the JSON shape of one gallery entry
type MediaItem struct {
	Path   string           `json:"path"`
	Name   string           `json:"name"`
	URL    string           `json:"url"`
	Kind   models.MediaKind `json:"kind"`
	Size   *int64           `json:"size,omitempty"`
	Signed bool             `json:"signed"`
}

// MediaResponse is returned by ListMedia
type MediaResponse struct {
	Generation uint64      `json:"generation"`
	FetchedAt  time.Time   `json:"fetchedAt"`
	Media      []MediaItem `json:"media"`
	Warnings   []string    `json:"warnings"`
}

// UploadResultItem is the JSON shape of one file's outcome
type UploadResultItem struct {
	Name  string `json:"name"`
	Path  string `json:"path,omitempty"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// UploadResponse is returned by Upload
type UploadResponse struct {
	Results    []UploadResultItem `json:"results"`
	Generation uint64             `json:"generation"`
}

// Index renders the album page with whatever is published, fetching first if
// nothing has been fetched yet
func (h *GalleryHandler) Index(c echo.Context) error {
	snap := h.album.Current()
	if snap.Generation == 0 {
		snap = h.album.Refresh(c.Request().Context())
	}

	return c.Render(http.StatusOK, "gallery", map[string]interface{}{
		"Title":      h.page.Title,
		"CoverURL":   h.page.CoverImageURL,
		"CSRFToken":  CSRFToken(c),
		"Media":      snap.Media,
		"Generation": snap.Generation,
	})
}

// Grid refreshes the album and renders the grid partial. With ?cached=true it
// renders the published snapshot instead; pages use that when a websocket
// notification arrives so notifications do not trigger further refreshes.
func (h *GalleryHandler) Grid(c echo.Context) error {
	var snap *services.Snapshot
	if c.QueryParam("cached") == "true" {
		snap = h.album.Current()
	} else {
		snap = h.album.Refresh(c.Request().Context())
	}

	return c.Render(http.StatusOK, "media_grid", map[string]interface{}{
		"Media":      snap.Media,
		"Generation": snap.Generation,
	})
}

// ListMedia refreshes the album and returns it as JSON
func (h *GalleryHandler) ListMedia(c echo.Context) error {
	snap := h.album.Refresh(c.Request().Context())

	resp := MediaResponse{
		Generation: snap.Generation,
		FetchedAt:  snap.FetchedAt,
		Media:      make([]MediaItem, 0, len(snap.Media)),
		Warnings:   make([]string, 0, len(snap.Warnings)),
	}
	for _, m := range snap.Media {
		resp.Media = append(resp.Media, MediaItem{
			Path:   m.Entry.Key(),
			Name:   m.Entry.Name,
			URL:    m.URL,
			Kind:   m.Kind,
			Size:   m.Entry.Size,
			Signed: m.Signed,
		})
	}
	for _, w := range snap.Warnings {
		resp.Warnings = append(resp.Warnings, w.String())
	}
	return c.JSON(http.StatusOK, resp)
}

// Upload stores every file in the "files" field and reports each outcome.
// Successful files are merged into the gallery right away, then the album is
// refreshed from the bucket.
func (h *GalleryHandler) Upload(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid upload")
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "No files uploaded")
	}

	files := make([]models.LocalFile, 0, len(headers))
	for _, fh := range headers {
		file, closeFn := openUpload(fh)
		defer closeFn()
		files = append(files, file)
	}

	ctx := c.Request().Context()
	results := h.uploader.Upload(ctx, files)

	resp := UploadResponse{Results: make([]UploadResultItem, 0, len(results))}
	var stored []string
	for _, r := range results {
		item := UploadResultItem{Name: r.Name, OK: r.OK()}
		if r.OK() {
			item.Path = r.Path
			stored = append(stored, r.Path)
		} else {
			item.Error = UploadErrorMessage(r.Err)
		}
		resp.Results = append(resp.Results, item)
	}

	snap := h.album.Current()
	if len(stored) > 0 {
		h.album.MergeUploaded(ctx, stored)
		snap = h.album.Refresh(ctx)
	}
	resp.Generation = snap.Generation

	return c.JSON(http.StatusOK, resp)
}

func openUpload(fh *multipart.FileHeader) (models.LocalFile, func()) {
	file := models.LocalFile{
		Name:        fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
	}
	src, err := fh.Open()
	if err != nil {
		file.Reader = failedReader{err: err}
		return file, func() {}
	}
	file.Reader = src
	return file, func() { _ = src.Close() }
}

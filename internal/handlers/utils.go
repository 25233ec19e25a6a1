package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/damacus/wedding-album/internal/services"
	"github.com/damacus/wedding-album/internal/utils"
)

// CSRFToken returns the token set by the CSRF middleware, or "" when it is not installed
func CSRFToken(c echo.Context) string {
	token, _ := c.Get(utils.ContextKeyCSRF).(string)
	return token
}

// UploadErrorMessage turns an upload failure into something a guest can read
func UploadErrorMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, services.ErrUnsupportedMedia):
		return "Only images and MP4 videos can be uploaded"
	case errors.Is(err, services.ErrFileTooLarge):
		return "File is too large"
	case errors.Is(err, services.ErrEmptyName):
		return "File has no name"
	}
	var uploadErr *services.UploadError
	if errors.As(err, &uploadErr) {
		return "Storage rejected the file"
	}
	return http.StatusText(http.StatusInternalServerError)
}

// failedReader stands in for a multipart file that could not be opened so the
// failure is reported with the rest of the batch
type failedReader struct {
	err error
}

func (r failedReader) Read([]byte) (int, error) {
	return 0, r.err
}

var _ io.Reader = failedReader{}

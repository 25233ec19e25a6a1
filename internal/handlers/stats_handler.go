package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/damacus/wedding-album/internal/services"
)

type StatsHandler struct {
	usage *services.UsageReporter
}

func NewStatsHandler(usage *services.UsageReporter) *StatsHandler {
	return &StatsHandler{usage: usage}
}

// GetStats returns the album size and media counts
func (h *StatsHandler) GetStats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.usage.Usage(c.Request().Context()))
}

package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/roster-import-api/internal/service"
	"github.com/rs/zerolog"
)

// ReportHandler serves the error reports of finished imports
type ReportHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(services *service.Services, log zerolog.Logger) *ReportHandler {
	return &ReportHandler{
		services: services,
		log:      log.With().Str("handler", "report").Logger(),
	}
}

// GetImportErrors handles GET /v1/imports/:run_id/errors?format=json|csv
// Streams every error of the run
func (h *ReportHandler) GetImportErrors(c *gin.Context) {
	ctx := c.Request.Context()
	runID := c.Param("run_id")
	format := c.DefaultQuery("format", "json")

	err := h.services.Export.StreamErrors(ctx, c.Writer, runID, format)
	switch {
	case err == nil:
		return
	case errors.Is(err, service.ErrUnsupportedFormat):
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be one of: json, csv"})
	case errors.Is(err, service.ErrRunNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "import run not found"})
	case c.Writer.Written():
		// Can't return error JSON after streaming has started
		h.log.Error().Err(err).Str("run_id", runID).Msg("Error report interrupted")
	default:
		h.log.Error().Err(err).Str("run_id", runID).Msg("Failed to stream error report")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get errors"})
	}
}

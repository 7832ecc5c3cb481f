package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/roster-import-api/internal/config"
	"github.com/roster-import-api/internal/csverror"
	"github.com/roster-import-api/internal/csvreader"
	"github.com/roster-import-api/internal/models"
	"github.com/roster-import-api/internal/service"
	"github.com/rs/zerolog"
)

// userHeader carries the acting user. Verifying who sent it is left to the
// gateway in front of the service.
const userHeader = "X-User-ID"

// ImportHandler handles import endpoints
type ImportHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *ImportHandler {
	return &ImportHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "import").Logger(),
	}
}

// ListEntities handles GET /v1/entities
func (h *ImportHandler) ListEntities(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"entities": h.services.Import.Entities()})
}

// CreateImport handles POST /v1/imports/:entity
// Accepts a multipart upload in the "file" field; dry_run=true validates
// without committing.
func (h *ImportHandler) CreateImport(c *gin.Context) {
	entity := c.Param("entity")

	userID := c.GetHeader(userHeader)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": userHeader + " header is required"})
		return
	}

	dryRun := false
	if raw := c.DefaultPostForm("dry_run", c.Query("dry_run")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "dry_run must be true or false"})
			return
		}
		dryRun = v
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file upload is required"})
		return
	}

	encoding := header.Header.Get("Content-Transfer-Encoding")
	if encoding == "" {
		encoding = "7bit"
	}
	upload := csvreader.Upload{
		Filename: header.Filename,
		Mimetype: header.Header.Get("Content-Type"),
		Encoding: encoding,
		Open: func() (io.ReadCloser, error) {
			return header.Open()
		},
	}

	ctx, cancel := contextWithTimeout(c, h.cfg.Server.WriteTimeout)
	defer cancel()

	run, err := h.services.Import.Import(ctx, &service.ImportRequest{
		Entity:       entity,
		Upload:       upload,
		DryRun:       dryRun,
		ActingUserID: userID,
	})
	if err != nil {
		h.writeImportError(c, entity, run, err)
		return
	}

	h.log.Info().
		Str("run_id", run.ID).
		Str("entity", entity).
		Str("file", header.Filename).
		Int64("size_bytes", header.Size).
		Bool("dry_run", dryRun).
		Msg("Import accepted")

	c.JSON(http.StatusOK, run)
}

// writeImportError maps an import failure onto a response
func (h *ImportHandler) writeImportError(c *gin.Context, entity string, run *models.ImportRun, err error) {
	runID := ""
	if run != nil {
		runID = run.ID
	}

	if errors.Is(err, service.ErrUnknownEntity) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":    "unknown entity: " + entity,
			"entities": h.services.Import.Entities(),
		})
		return
	}

	if agg, ok := csverror.AsAggregate(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"message": agg.Error(),
			"run_id":  runID,
			"errors":  agg.Errors,
		})
		return
	}

	var fileErr *csvreader.FileError
	if errors.As(err, &fileErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  fileErr.Message,
			"run_id": runID,
		})
		return
	}

	h.log.Error().Err(err).Str("entity", entity).Str("run_id", runID).Msg("Import failed")
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":  "import failed",
		"run_id": runID,
	})
}

// GetImportStatus handles GET /v1/imports/:run_id
func (h *ImportHandler) GetImportStatus(c *gin.Context) {
	ctx := c.Request.Context()
	runID := c.Param("run_id")

	run, err := h.services.Runs.GetRun(ctx, runID)
	if errors.Is(err, service.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "import run not found"})
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("run_id", runID).Msg("Failed to get import run")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get import run"})
		return
	}

	c.JSON(http.StatusOK, run)
}

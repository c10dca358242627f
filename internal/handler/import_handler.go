package handler

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/crc-dev/volreg-api/internal/service"
	"github.com/crc-dev/volreg-api/pkg/config"
	appErrors "github.com/crc-dev/volreg-api/pkg/errors"
	"github.com/crc-dev/volreg-api/pkg/response"
	"github.com/crc-dev/volreg-api/pkg/spreadsheet"
)

// ImportHandler accepts xlsx uploads of volunteer rosters.
type ImportHandler struct {
	imports   *service.ImportService
	dashboard *service.DashboardService
	cfg       config.ImportConfig
}

// NewImportHandler constructs ImportHandler.
func NewImportHandler(imports *service.ImportService, dashboard *service.DashboardService, cfg config.ImportConfig) *ImportHandler {
	return &ImportHandler{imports: imports, dashboard: dashboard, cfg: cfg}
}

// Upload godoc
// @Summary Import volunteers from an xlsx workbook
// @Description Processes rows best-effort and reports per-line errors
// @Tags Imports
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Workbook (.xlsx)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /imports/volunteers [post]
func (h *ImportHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file field is required"))
		return
	}
	if ext := strings.ToLower(filepath.Ext(fileHeader.Filename)); ext != ".xlsx" {
		response.Error(c, appErrors.FieldError("file", "only .xlsx workbooks are accepted"))
		return
	}
	if h.cfg.MaxFileSizeBytes > 0 && fileHeader.Size > h.cfg.MaxFileSizeBytes {
		response.Error(c, appErrors.FieldError("file", "file exceeds the size limit"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open upload"))
		return
	}
	defer file.Close()

	rows, err := spreadsheet.ReadVolunteers(file, h.cfg.MaxRows)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "could not read workbook"))
		return
	}

	result, err := h.imports.Import(c.Request.Context(), rows, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.dashboard.Invalidate(c.Request.Context())
	response.JSON(c, http.StatusOK, result, nil)
}

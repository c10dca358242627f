package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/crc-dev/volreg-api/internal/models"
	"github.com/crc-dev/volreg-api/internal/service"
	appErrors "github.com/crc-dev/volreg-api/pkg/errors"
	"github.com/crc-dev/volreg-api/pkg/response"
)

// AuditHandler exposes the read-only change history. No mutating
// routes exist; RejectMutation backs the explicit 405 on the rest.
type AuditHandler struct {
	audits *service.AuditService
}

// NewAuditHandler constructs AuditHandler.
func NewAuditHandler(audits *service.AuditService) *AuditHandler {
	return &AuditHandler{audits: audits}
}

// List godoc
// @Summary List audit log entries
// @Tags Audit
// @Produce json
// @Param entity query string false "Filter by entity (Volunteer, Study, Participation)"
// @Param action query string false "Filter by action (CREATE, UPDATE, DELETE)"
// @Param user query string false "Filter by author user ID"
// @Param record query string false "Filter by record identifier"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /audit-logs [get]
func (h *AuditHandler) List(c *gin.Context) {
	var filter models.AuditLogFilter
	filter.Entity = c.Query("entity")
	filter.Action = c.Query("action")
	filter.UserID = c.Query("user")
	filter.RecordID = c.Query("record")
	if from := c.Query("from"); from != "" {
		if t, err := time.Parse("2006-01-02", from); err == nil {
			filter.From = &t
		}
	}
	if to := c.Query("to"); to != "" {
		if t, err := time.Parse("2006-01-02", to); err == nil {
			filter.To = &t
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortOrder = c.Query("order")

	logs, pagination, err := h.audits.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, pagination)
}

// Get godoc
// @Summary Get one audit log entry
// @Tags Audit
// @Produce json
// @Param id path string true "Audit log ID"
// @Success 200 {object} response.Envelope
// @Router /audit-logs/{id} [get]
func (h *AuditHandler) Get(c *gin.Context) {
	log, err := h.audits.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, log, nil)
}

// RejectMutation answers any write attempt against the audit trail.
func (h *AuditHandler) RejectMutation(c *gin.Context) {
	response.Error(c, appErrors.ErrImmutable)
}

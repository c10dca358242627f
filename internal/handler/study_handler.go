package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/crc-dev/volreg-api/internal/models"
	"github.com/crc-dev/volreg-api/internal/service"
	appErrors "github.com/crc-dev/volreg-api/pkg/errors"
	"github.com/crc-dev/volreg-api/pkg/response"
)

// StudyHandler exposes study endpoints.
type StudyHandler struct {
	studies   *service.StudyService
	dashboard *service.DashboardService
}

// NewStudyHandler constructs StudyHandler.
func NewStudyHandler(studies *service.StudyService, dashboard *service.DashboardService) *StudyHandler {
	return &StudyHandler{studies: studies, dashboard: dashboard}
}

// List godoc
// @Summary List studies
// @Tags Studies
// @Produce json
// @Param search query string false "Search by name"
// @Param active query bool false "Filter by active state"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /studies [get]
func (h *StudyHandler) List(c *gin.Context) {
	var filter models.StudyFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	if active := c.Query("active"); active != "" {
		if active == "true" {
			v := true
			filter.Active = &v
		} else if active == "false" {
			v := false
			filter.Active = &v
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	studies, pagination, err := h.studies.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, studies, pagination)
}

// Get godoc
// @Summary Get study
// @Tags Studies
// @Produce json
// @Param id path string true "Study ID"
// @Success 200 {object} response.Envelope
// @Router /studies/{id} [get]
func (h *StudyHandler) Get(c *gin.Context) {
	study, err := h.studies.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, study, nil)
}

// Create godoc
// @Summary Create study
// @Tags Studies
// @Accept json
// @Produce json
// @Param payload body service.CreateStudyRequest true "Study payload"
// @Success 201 {object} response.Envelope
// @Router /studies [post]
func (h *StudyHandler) Create(c *gin.Context) {
	var req service.CreateStudyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	study, err := h.studies.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.dashboard.Invalidate(c.Request.Context())
	response.Created(c, study)
}

// Update godoc
// @Summary Update study with mandatory justification
// @Tags Studies
// @Accept json
// @Produce json
// @Param id path string true "Study ID"
// @Param payload body service.UpdateStudyRequest true "Study payload"
// @Success 200 {object} response.Envelope
// @Router /studies/{id} [patch]
func (h *StudyHandler) Update(c *gin.Context) {
	var req service.UpdateStudyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	study, err := h.studies.Update(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.dashboard.Invalidate(c.Request.Context())
	response.JSON(c, http.StatusOK, study, nil)
}

// Delete godoc
// @Summary Delete study with mandatory justification
// @Tags Studies
// @Accept json
// @Produce json
// @Param id path string true "Study ID"
// @Param payload body deleteRequest true "Justification"
// @Success 204
// @Router /studies/{id} [delete]
func (h *StudyHandler) Delete(c *gin.Context) {
	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.studies.Delete(c.Request.Context(), c.Param("id"), req.Justification, claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	h.dashboard.Invalidate(c.Request.Context())
	response.NoContent(c)
}

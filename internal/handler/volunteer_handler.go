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

// VolunteerHandler exposes volunteer endpoints.
type VolunteerHandler struct {
	volunteers     *service.VolunteerService
	participations *service.ParticipationService
	dashboard      *service.DashboardService
}

// NewVolunteerHandler constructs VolunteerHandler.
func NewVolunteerHandler(volunteers *service.VolunteerService, participations *service.ParticipationService, dashboard *service.DashboardService) *VolunteerHandler {
	return &VolunteerHandler{volunteers: volunteers, participations: participations, dashboard: dashboard}
}

// List godoc
// @Summary List volunteers
// @Tags Volunteers
// @Produce json
// @Param search query string false "Search by name, code or CURP"
// @Param status query string false "Filter by derived status"
// @Param sex query string false "Filter by sex (M or F)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /volunteers [get]
func (h *VolunteerHandler) List(c *gin.Context) {
	var filter models.VolunteerFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Sex = c.Query("sex")
	filter.Status = models.Status(c.Query("status"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	volunteers, pagination, err := h.volunteers.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, volunteers, pagination)
}

// Get godoc
// @Summary Get volunteer detail with derived status
// @Tags Volunteers
// @Produce json
// @Param id path string true "Volunteer ID"
// @Success 200 {object} response.Envelope
// @Router /volunteers/{id} [get]
func (h *VolunteerHandler) Get(c *gin.Context) {
	volunteer, err := h.volunteers.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, volunteer, nil)
}

// Create godoc
// @Summary Register volunteer
// @Tags Volunteers
// @Accept json
// @Produce json
// @Param payload body service.CreateVolunteerRequest true "Volunteer payload"
// @Success 201 {object} response.Envelope
// @Router /volunteers [post]
func (h *VolunteerHandler) Create(c *gin.Context) {
	var req service.CreateVolunteerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	volunteer, err := h.volunteers.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.dashboard.Invalidate(c.Request.Context())
	response.Created(c, volunteer)
}

// Update godoc
// @Summary Update volunteer with mandatory justification
// @Tags Volunteers
// @Accept json
// @Produce json
// @Param id path string true "Volunteer ID"
// @Param payload body service.UpdateVolunteerRequest true "Volunteer payload"
// @Success 200 {object} response.Envelope
// @Router /volunteers/{id} [patch]
func (h *VolunteerHandler) Update(c *gin.Context) {
	var req service.UpdateVolunteerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	volunteer, err := h.volunteers.Update(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.dashboard.Invalidate(c.Request.Context())
	response.JSON(c, http.StatusOK, volunteer, nil)
}

type deleteRequest struct {
	Justification string `json:"justification"`
}

// Delete godoc
// @Summary Delete volunteer with mandatory justification
// @Tags Volunteers
// @Accept json
// @Produce json
// @Param id path string true "Volunteer ID"
// @Param payload body deleteRequest true "Justification"
// @Success 204
// @Router /volunteers/{id} [delete]
func (h *VolunteerHandler) Delete(c *gin.Context) {
	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.volunteers.Delete(c.Request.Context(), c.Param("id"), req.Justification, claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	h.dashboard.Invalidate(c.Request.Context())
	response.NoContent(c)
}

// ListParticipations godoc
// @Summary List a volunteer's enrollment history
// @Tags Volunteers
// @Produce json
// @Param id path string true "Volunteer ID"
// @Success 200 {object} response.Envelope
// @Router /volunteers/{id}/participations [get]
func (h *VolunteerHandler) ListParticipations(c *gin.Context) {
	parts, err := h.participations.ListByVolunteer(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, parts, nil)
}

// AddParticipation godoc
// @Summary Enroll a volunteer into a study
// @Tags Volunteers
// @Accept json
// @Produce json
// @Param id path string true "Volunteer ID"
// @Param payload body service.AddParticipationRequest true "Participation payload"
// @Success 201 {object} response.Envelope
// @Router /volunteers/{id}/participations [post]
func (h *VolunteerHandler) AddParticipation(c *gin.Context) {
	var req service.AddParticipationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	participation, err := h.participations.Create(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.dashboard.Invalidate(c.Request.Context())
	response.Created(c, participation)
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crc-dev/volreg-api/internal/service"
	appErrors "github.com/crc-dev/volreg-api/pkg/errors"
	"github.com/crc-dev/volreg-api/pkg/response"
)

// ParticipationHandler exposes participation close-out endpoints.
type ParticipationHandler struct {
	participations *service.ParticipationService
	dashboard      *service.DashboardService
}

// NewParticipationHandler constructs ParticipationHandler.
func NewParticipationHandler(participations *service.ParticipationService, dashboard *service.DashboardService) *ParticipationHandler {
	return &ParticipationHandler{participations: participations, dashboard: dashboard}
}

// Update godoc
// @Summary Close out or correct a participation
// @Tags Participations
// @Accept json
// @Produce json
// @Param id path string true "Participation ID"
// @Param payload body service.UpdateParticipationRequest true "Participation payload"
// @Success 200 {object} response.Envelope
// @Router /participations/{id} [patch]
func (h *ParticipationHandler) Update(c *gin.Context) {
	var req service.UpdateParticipationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	participation, err := h.participations.Update(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.dashboard.Invalidate(c.Request.Context())
	response.JSON(c, http.StatusOK, participation, nil)
}

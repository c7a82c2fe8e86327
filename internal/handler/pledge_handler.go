package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pledgecam/pledgecam-api/internal/service"
	"github.com/pledgecam/pledgecam-api/pkg/response"
)

// PledgeHandler exposes pledge lookup endpoints.
type PledgeHandler struct {
	pledges *service.PledgeService
}

// NewPledgeHandler constructs PledgeHandler.
func NewPledgeHandler(pledges *service.PledgeService) *PledgeHandler {
	return &PledgeHandler{pledges: pledges}
}

// GetByCode godoc
// @Summary Get pledge text by code
// @Tags Pledges
// @Produce json
// @Param code path string true "Pledge code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /pledges/{code} [get]
func (h *PledgeHandler) GetByCode(c *gin.Context) {
	pledge, err := h.pledges.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pledge, nil)
}

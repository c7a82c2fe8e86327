package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pledgecam/pledgecam-api/internal/models"
	"github.com/pledgecam/pledgecam-api/internal/service"
	"github.com/pledgecam/pledgecam-api/pkg/response"
)

// StudentHandler exposes the not-yet-submitted roster endpoints.
type StudentHandler struct {
	roster *service.RosterService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(roster *service.RosterService) *StudentHandler {
	return &StudentHandler{roster: roster}
}

// List godoc
// @Summary List students without a submitted video
// @Tags Students
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /users [get]
func (h *StudentHandler) List(c *gin.Context) {
	students, err := h.roster.ListNotSubmitted(c.Request.Context(), "")
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// ListByGrade godoc
// @Summary List students in a grade without a submitted video
// @Tags Students
// @Produce json
// @Param grade path string true "Grade label"
// @Success 200 {object} response.Envelope
// @Router /users/grade/{grade} [get]
func (h *StudentHandler) ListByGrade(c *gin.Context) {
	grade := models.Grade(c.Param("grade"))
	students, err := h.roster.ListNotSubmitted(c.Request.Context(), grade)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pledgecam/pledgecam-api/internal/service"
	"github.com/pledgecam/pledgecam-api/pkg/response"
)

// ReportHandler exposes the staff submissions report.
type ReportHandler struct {
	exports *service.ExportService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(exports *service.ExportService) *ReportHandler {
	return &ReportHandler{exports: exports}
}

// Submissions godoc
// @Summary Download the submissions report
// @Tags Reports
// @Produce json
// @Param format query string false "csv or pdf" default(csv)
// @Success 200
// @Router /admin/reports/submissions [get]
func (h *ReportHandler) Submissions(c *gin.Context) {
	format := service.ParseExportFormat(c.Query("format"))
	ctx, cancel := contextWithTimeout(c, 30*time.Second)
	defer cancel()
	file, err := h.exports.SubmissionsReport(ctx, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(200, file.ContentType, file.Data)
}

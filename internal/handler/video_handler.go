package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pledgecam/pledgecam-api/internal/models"
	"github.com/pledgecam/pledgecam-api/internal/service"
	appErrors "github.com/pledgecam/pledgecam-api/pkg/errors"
	"github.com/pledgecam/pledgecam-api/pkg/response"
)

// VideoHandler accepts recorded pledge videos at the HTTP boundary.
type VideoHandler struct {
	submissions *service.SubmissionService
	metrics     *service.MetricsService
	maxBytes    int64
}

// NewVideoHandler constructs VideoHandler.
func NewVideoHandler(submissions *service.SubmissionService, metrics *service.MetricsService, maxBytes int64) *VideoHandler {
	if maxBytes <= 0 {
		maxBytes = 50 * 1024 * 1024
	}
	return &VideoHandler{submissions: submissions, metrics: metrics, maxBytes: maxBytes}
}

// Upload godoc
// @Summary Submit a recorded pledge video
// @Tags Videos
// @Accept multipart/form-data
// @Produce json
// @Param video formData file true "Recorded video"
// @Param studentId formData string true "Student id"
// @Param name formData string true "Student name"
// @Param grade formData string true "Grade label"
// @Param celebrity formData string true "Nominated celebrity"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 415 {object} response.Envelope
// @Router /videos [post]
func (h *VideoHandler) Upload(c *gin.Context) {
	// Bound the multipart read before any parsing happens.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)

	file, err := c.FormFile("video")
	if err != nil {
		h.metrics.ObserveUpload(false, 0)
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "no video file uploaded"))
		return
	}

	req := service.SubmitVideoRequest{
		StudentID: strings.TrimSpace(c.PostForm("studentId")),
		Name:      strings.TrimSpace(c.PostForm("name")),
		Grade:     models.Grade(strings.TrimSpace(c.PostForm("grade"))),
		Celebrity: strings.TrimSpace(c.PostForm("celebrity")),
	}

	src, err := file.Open()
	if err != nil {
		h.metrics.ObserveUpload(false, file.Size)
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read uploaded file"))
		return
	}
	defer src.Close() //nolint:errcheck

	upload := service.Upload{
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Size:        file.Size,
		Body:        src,
	}

	result, err := h.submissions.Submit(c.Request.Context(), req, upload)
	if err != nil {
		h.metrics.ObserveUpload(false, file.Size)
		response.Error(c, err)
		return
	}

	h.metrics.ObserveUpload(true, file.Size)
	response.Created(c, result)
}

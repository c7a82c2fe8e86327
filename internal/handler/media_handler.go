package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pledgecam/pledgecam-api/internal/repository"
	appErrors "github.com/pledgecam/pledgecam-api/pkg/errors"
	"github.com/pledgecam/pledgecam-api/pkg/response"
	"github.com/pledgecam/pledgecam-api/pkg/storage"
)

// MediaHandler serves stored videos through HMAC signed links.
type MediaHandler struct {
	students *repository.StudentRepository
	store    *storage.LocalStorage
	signer   *storage.SignedURLSigner
}

// NewMediaHandler constructs MediaHandler.
func NewMediaHandler(students *repository.StudentRepository, store *storage.LocalStorage, signer *storage.SignedURLSigner) *MediaHandler {
	return &MediaHandler{students: students, store: store, signer: signer}
}

// Link godoc
// @Summary Mint a signed download link for a student's submitted video
// @Tags Media
// @Produce json
// @Param id path string true "Student id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/videos/{id}/link [post]
func (h *MediaHandler) Link(c *gin.Context) {
	student, err := h.students.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "student not found"))
			return
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student"))
		return
	}
	if !student.VideoSubmitted || student.URL == nil || *student.URL == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "student has no submitted video"))
		return
	}

	token, expiresAt, err := h.signer.Generate(student.ID, *student.URL)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link"))
		return
	}

	response.JSON(c, http.StatusOK, gin.H{
		"url":        "/api/media/" + token,
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
	}, nil)
}

// Download godoc
// @Summary Stream a stored video referenced by a signed token
// @Tags Media
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200
// @Failure 404 {object} response.Envelope
// @Router /media/{token} [get]
func (h *MediaHandler) Download(c *gin.Context) {
	_, relPath, _, err := h.signer.Parse(c.Param("token"), false)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "invalid or expired link"))
		return
	}

	file, err := h.store.Open(relPath)
	if err != nil {
		if os.IsNotExist(err) {
			response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "video not found"))
			return
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open video"))
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat video"))
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+relPath+`"`)
	http.ServeContent(c.Writer, c.Request, relPath, info.ModTime(), file)
}

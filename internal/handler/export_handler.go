package handler

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/enginow/enginow-api/internal/service"
	appErrors "github.com/enginow/enginow-api/pkg/errors"
	"github.com/enginow/enginow-api/pkg/response"
)

// ExportHandler exposes admin export endpoints.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Request godoc
// @Summary Queue an enrollment export
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body service.ExportRequest true "Export request"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/exports [post]
func (h *ExportHandler) Request(c *gin.Context) {
	var req service.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrBadRequest.Code, http.StatusBadRequest, "invalid request body"))
		return
	}
	job, err := h.exports.Request(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, job)
}

// Status godoc
// @Summary Export job status
// @Tags Admin
// @Produce json
// @Param id query string true "Export job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/exports [get]
func (h *ExportHandler) Status(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "id query parameter is required"))
		return
	}
	job, err := h.exports.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Download godoc
// @Summary Download a finished export via signed token
// @Tags Admin
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /admin/exports/download [get]
func (h *ExportHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token query parameter is required"))
		return
	}
	file, name, err := h.exports.OpenSigned(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "could not read export file"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(name)))
	c.DataFromReader(http.StatusOK, info.Size(), contentTypeFor(name), file, nil)
}

func contentTypeFor(name string) string {
	switch filepath.Ext(name) {
	case ".csv":
		return "text/csv"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

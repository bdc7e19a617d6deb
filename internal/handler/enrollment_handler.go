package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/enginow/enginow-api/internal/models"
	"github.com/enginow/enginow-api/internal/service"
	appErrors "github.com/enginow/enginow-api/pkg/errors"
	"github.com/enginow/enginow-api/pkg/response"
)

// EnrollmentHandler exposes the public enrollment endpoints.
type EnrollmentHandler struct {
	enrollments *service.EnrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// Submit godoc
// @Summary Submit an enrollment
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.SubmitEnrollmentRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Submit(c *gin.Context) {
	var req service.SubmitEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrBadRequest.Code, http.StatusBadRequest, "invalid request body"))
		return
	}
	enrollment, err := h.enrollments.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// List godoc
// @Summary List enrollments
// @Tags Enrollments
// @Produce json
// @Param email query string false "Filter by email (case-insensitive)"
// @Param programId query string false "Filter by program"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	var filter models.EnrollmentFilter
	filter.Email = strings.TrimSpace(c.Query("email"))
	filter.ProgramID = c.Query("programId")
	filter.Status = models.EnrollmentStatus(c.Query("status"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.Limit = limit
	}

	enrollments, pagination, err := h.enrollments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, pagination)
}

// Get godoc
// @Summary Get one enrollment
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollments/{id} [get]
func (h *EnrollmentHandler) Get(c *gin.Context) {
	enrollment, err := h.enrollments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Update godoc
// @Summary Update enrollment status fields
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id query string true "Enrollment ID"
// @Param payload body models.EnrollmentPatch true "Fields to update"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollments [patch]
func (h *EnrollmentHandler) Update(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "id query parameter is required"))
		return
	}
	var patch models.EnrollmentPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrBadRequest.Code, http.StatusBadRequest, "invalid request body"))
		return
	}
	enrollment, err := h.enrollments.Update(c.Request.Context(), id, patch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Delete godoc
// @Summary Delete an enrollment
// @Tags Enrollments
// @Produce json
// @Param id query string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollments [delete]
func (h *EnrollmentHandler) Delete(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "id query parameter is required"))
		return
	}
	if err := h.enrollments.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"deleted": true}, nil)
}

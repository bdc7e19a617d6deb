package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/enginow/enginow-api/internal/service"
	"github.com/enginow/enginow-api/pkg/response"
)

// ProgramHandler exposes the training program catalog.
type ProgramHandler struct {
	programs *service.ProgramService
}

// NewProgramHandler constructs ProgramHandler.
func NewProgramHandler(programs *service.ProgramService) *ProgramHandler {
	return &ProgramHandler{programs: programs}
}

// List godoc
// @Summary List active training programs
// @Tags Programs
// @Produce json
// @Param category query string false "Filter by category"
// @Success 200 {object} response.Envelope
// @Router /training/programs [get]
func (h *ProgramHandler) List(c *gin.Context) {
	programs, err := h.programs.ListActive(c.Request.Context(), c.Query("category"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, programs, nil)
}

// Get godoc
// @Summary Get one training program
// @Tags Programs
// @Produce json
// @Param id path string true "Program ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /training/programs/{id} [get]
func (h *ProgramHandler) Get(c *gin.Context) {
	program, err := h.programs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, program, nil)
}

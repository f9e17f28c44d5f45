package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/internal/catalog"
	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/internal/dto"
	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/internal/service"
	appErrors "github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/pkg/errors"
	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/pkg/export"
	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/pkg/response"
)

type optimizer interface {
	Run(ctx context.Context, req dto.OptimizationRequest) (*dto.OptimizationResponse, error)
	Submit(ctx context.Context, req dto.OptimizationRequest) (*dto.OptimizationJobResponse, error)
	Get(ctx context.Context, id string) (*dto.OptimizationResponse, error)
	Export(ctx context.Context, id string, format export.Format) (*service.ExportFile, error)
	SaveProblem(ctx context.Context, name string, file catalog.ProblemFile) (string, error)
}

// OptimizationHandler exposes timetable optimisation endpoints.
type OptimizationHandler struct {
	service optimizer
}

// NewOptimizationHandler constructs the handler.
func NewOptimizationHandler(svc *service.OptimizationService) *OptimizationHandler {
	return &OptimizationHandler{service: svc}
}

// Run godoc
// @Summary Run the optimiser synchronously
// @Description Generates or loads a problem, runs the swarm and returns the best schedule with its fitness history.
// @Tags Optimizations
// @Accept json
// @Produce json
// @Param payload body dto.OptimizationRequest true "Optimisation parameters"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /optimizations [post]
func (h *OptimizationHandler) Run(c *gin.Context) {
	req, ok := bindOptimization(c)
	if !ok {
		return
	}
	result, err := h.service.Run(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Submit godoc
// @Summary Queue an optimisation run
// @Tags Optimizations
// @Accept json
// @Produce json
// @Param payload body dto.OptimizationRequest true "Optimisation parameters"
// @Success 202 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /optimizations/jobs [post]
func (h *OptimizationHandler) Submit(c *gin.Context) {
	req, ok := bindOptimization(c)
	if !ok {
		return
	}
	job, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, job)
}

// Get godoc
// @Summary Get an optimisation run
// @Tags Optimizations
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /optimizations/{id} [get]
func (h *OptimizationHandler) Get(c *gin.Context) {
	result, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Export godoc
// @Summary Download the best schedule of a finished run
// @Tags Optimizations
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Run ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 412 {object} response.Envelope
// @Router /optimizations/{id}/export [get]
func (h *OptimizationHandler) Export(c *gin.Context) {
	format := export.Format(strings.ToLower(c.DefaultQuery("format", string(export.FormatCSV))))
	file, err := h.service.Export(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Body)
}

// SaveProblem godoc
// @Summary Store a problem instance
// @Description Accepts JSON {name, problem} or a raw YAML problem file with the name in the query string.
// @Tags Problems
// @Accept json
// @Accept application/x-yaml
// @Produce json
// @Param payload body dto.ProblemRequest true "Problem"
// @Param name query string false "Problem name for YAML uploads"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /problems [post]
func (h *OptimizationHandler) SaveProblem(c *gin.Context) {
	var req dto.ProblemRequest
	if strings.Contains(c.ContentType(), "yaml") {
		problem, err := catalog.Decode(c.Request.Body, catalog.FormatYAML)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, err.Error()))
			return
		}
		req.Name = c.Query("name")
		req.Problem = catalog.FromProblem(problem)
	} else if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid problem payload"))
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "name required"))
		return
	}

	id, err := h.service.SaveProblem(c.Request.Context(), req.Name, req.Problem)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.ProblemResponse{
		ID:      id,
		Name:    req.Name,
		Courses: len(req.Problem.Courses),
		Horizon: req.Problem.Horizon,
	})
}

// bindOptimization accepts an empty body as "all defaults".
func bindOptimization(c *gin.Context) (dto.OptimizationRequest, bool) {
	var req dto.OptimizationRequest
	if c.Request.ContentLength == 0 {
		return req, true
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid optimization payload"))
		return req, false
	}
	return req, true
}

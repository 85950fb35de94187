package handler

import (
	"strings"

	"commissioning-backend/internal/apperr"
	"commissioning-backend/internal/middleware"
	"commissioning-backend/internal/models"
	"commissioning-backend/internal/service"
	"commissioning-backend/pkg/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ProjectHandler struct {
	projectService *service.ProjectService
	logger         *zap.Logger
}

func NewProjectHandler(projectService *service.ProjectService, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
		logger:         logger,
	}
}

type CreateProjectRequest struct {
	Name     string `json:"name" binding:"required"`
	Address  string `json:"address" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type VerifyPasswordRequest struct {
	ID       string `json:"id" binding:"required"`
	Password string `json:"password"`
}

type DeleteProjectRequest struct {
	ID string `json:"id" binding:"required"`
}

// ListProjects returns every project
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	projects, err := h.projectService.ListProjects(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.SuccessResponse(c, projects)
}

// GetProject returns one project
func (h *ProjectHandler) GetProject(c *gin.Context) {
	project, err := h.projectService.GetProject(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.SuccessResponse(c, project)
}

// CreateProject creates a project
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "name, address and password are required")
		return
	}

	project, err := h.projectService.CreateProject(c.Request.Context(),
		strings.TrimSpace(req.Name), strings.TrimSpace(req.Address), req.Password, middleware.Actor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.CreatedResponse(c, project)
}

// UpdateProject applies a partial update. Absent fields are left alone.
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	var patch models.ProjectPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		patch.Name = &name
	}
	if patch.Address != nil {
		address := strings.TrimSpace(*patch.Address)
		patch.Address = &address
	}

	project, err := h.projectService.UpdateProject(c.Request.Context(), c.Param("projectId"), patch, middleware.Actor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.SuccessResponse(c, project)
}

// VerifyPassword checks a project password
func (h *ProjectHandler) VerifyPassword(c *gin.Context) {
	var req VerifyPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "id is required")
		return
	}

	ok, err := h.projectService.VerifyProjectPassword(c.Request.Context(), req.ID, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if !ok {
		respondError(c, h.logger, apperr.New(apperr.KindUnauthorized, "incorrect project password"))
		return
	}
	utils.SuccessResponse(c, gin.H{"verified": true})
}

// DeleteProject removes a project and everything under it
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	var req DeleteProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "id is required")
		return
	}

	if err := h.projectService.DeleteProject(c.Request.Context(), req.ID, middleware.Actor(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.MessageResponse(c, "Project deleted successfully")
}

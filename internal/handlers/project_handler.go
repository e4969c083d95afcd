package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/subatomicERROR/codenano-sub000/internal/models"
	"github.com/subatomicERROR/codenano-sub000/internal/repositories"
	"gorm.io/gorm"
)

// ProjectHandler handles HTTP requests related to playground projects
type ProjectHandler struct {
	projectRepository repositories.ProjectRepository
}

// NewProjectHandler creates a new ProjectHandler
func NewProjectHandler(projectRepo repositories.ProjectRepository) *ProjectHandler {
	return &ProjectHandler{projectRepository: projectRepo}
}

// RegisterProjectRoutes registers project-related routes
func (h *ProjectHandler) RegisterProjectRoutes(g *echo.Group) {
	g.POST("/projects", h.CreateProject)
	g.GET("/projects", h.GetProjects)
	g.GET("/projects/:id", h.GetProject)
	g.PUT("/projects/:id", h.UpdateProject)
	g.DELETE("/projects/:id", h.DeleteProject)
	g.GET("/projects/search", h.SearchProjects)
	g.GET("/templates", h.GetTemplates)
	g.GET("/templates/:kind", h.GetTemplate)
}

// CreateProject saves a new project. The title is required and at least one
// source buffer must be non-empty; both checks run before any persistence
// call.
func (h *ProjectHandler) CreateProject(c echo.Context) error {
	userID := getUserIDFromContext(c)
	if userID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.CreateProjectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if !req.HasSource() {
		return echo.NewHTTPError(http.StatusBadRequest, "At least one of html, css or js must be non-empty")
	}

	kind := req.Kind
	if kind == "" {
		kind = "html"
	}

	project := &models.Project{
		Title:       req.Title,
		Description: req.Description,
		Kind:        kind,
		HTML:        req.HTML,
		CSS:         req.CSS,
		JS:          req.JS,
		Thumbnail:   req.Thumbnail,
		IsPublic:    req.IsPublic,
		UserID:      userID,
	}

	if err := h.projectRepository.CreateProject(project); err != nil {
		return mapPersistenceError(err)
	}

	return c.JSON(http.StatusCreated, project)
}

// GetProject retrieves one project. Private projects are only visible to
// their owner.
func (h *ProjectHandler) GetProject(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid project ID")
	}

	project, err := h.projectRepository.GetProjectByID(uint(id))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Project not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if !project.IsPublic && project.UserID != getUserIDFromContext(c) {
		return echo.NewHTTPError(http.StatusForbidden, "This project is private")
	}

	return c.JSON(http.StatusOK, project)
}

// GetProjects lists projects: the caller's own by default, or another user's
// public projects via the user_id query param.
func (h *ProjectHandler) GetProjects(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit == 0 {
		limit = 20 // Default limit
	}

	var projects []models.Project
	var err error

	if target := c.QueryParam("user_id"); target != "" {
		targetID, perr := strconv.ParseUint(target, 10, 32)
		if perr != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
		}
		if uint(targetID) == currentUserID {
			projects, err = h.projectRepository.GetProjectsByUserID(currentUserID, offset, limit)
		} else {
			projects, err = h.projectRepository.GetPublicProjectsByUserID(uint(targetID), offset, limit)
		}
	} else {
		projects, err = h.projectRepository.GetProjectsByUserID(currentUserID, offset, limit)
	}

	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, projects)
}

// UpdateProject updates an existing project. The id and title are required;
// ownership is enforced on user_id. When the request carries an updated_at
// precondition and the stored row has moved on, the save is rejected with a
// 409 instead of silently overwriting the newer write.
func (h *ProjectHandler) UpdateProject(c echo.Context) error {
	userID := getUserIDFromContext(c)
	if userID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid project ID")
	}

	var req models.UpdateProjectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	existing, err := h.projectRepository.GetProjectByID(uint(id))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Project not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	// Ensure the user updating the project is the owner
	if existing.UserID != userID {
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to update this project")
	}

	existing.Title = req.Title
	if req.Description != "" {
		existing.Description = req.Description
	}
	if req.HTML != nil {
		existing.HTML = *req.HTML
	}
	if req.CSS != nil {
		existing.CSS = *req.CSS
	}
	if req.JS != nil {
		existing.JS = *req.JS
	}
	if req.Thumbnail != "" {
		existing.Thumbnail = req.Thumbnail
	}
	if req.IsPublic != nil {
		existing.IsPublic = *req.IsPublic
	}

	if req.UpdatedAt != nil {
		err = h.projectRepository.UpdateProjectGuarded(existing, *req.UpdatedAt)
		if errors.Is(err, repositories.ErrStaleWrite) {
			return echo.NewHTTPError(http.StatusConflict, "Project was modified by another save, reload and retry")
		}
	} else {
		err = h.projectRepository.UpdateProject(existing)
	}
	if err != nil {
		return mapPersistenceError(err)
	}

	return c.JSON(http.StatusOK, existing)
}

// DeleteProject deletes a project owned by the caller
func (h *ProjectHandler) DeleteProject(c echo.Context) error {
	userID := getUserIDFromContext(c)
	if userID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid project ID")
	}

	if err := h.projectRepository.DeleteProject(uint(id), userID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Project not found or not yours")
		}
		return mapPersistenceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// SearchProjects searches public projects by title or description
func (h *ProjectHandler) SearchProjects(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing search query")
	}
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit == 0 {
		limit = 20
	}

	projects, err := h.projectRepository.SearchPublicProjects(query, offset, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, projects)
}

// GetTemplates lists the built-in starter templates
func (h *ProjectHandler) GetTemplates(c echo.Context) error {
	out := make([]models.Template, 0, len(models.Templates))
	for _, t := range models.Templates {
		out = append(out, t)
	}
	return c.JSON(http.StatusOK, out)
}

// GetTemplate returns one starter template by project kind
func (h *ProjectHandler) GetTemplate(c echo.Context) error {
	t, ok := models.Templates[c.Param("kind")]
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Unknown template kind")
	}
	return c.JSON(http.StatusOK, t)
}

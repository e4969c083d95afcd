package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/subatomicERROR/codenano-sub000/internal/models"
	"github.com/subatomicERROR/codenano-sub000/internal/repositories"
	"gorm.io/gorm"
)

// SavedProjectHandler handles project bookmark HTTP requests
type SavedProjectHandler struct {
	savedProjectRepository repositories.SavedProjectRepository
	projectRepository      repositories.ProjectRepository
}

// NewSavedProjectHandler creates a new SavedProjectHandler
func NewSavedProjectHandler(savedRepo repositories.SavedProjectRepository, projectRepo repositories.ProjectRepository) *SavedProjectHandler {
	return &SavedProjectHandler{
		savedProjectRepository: savedRepo,
		projectRepository:      projectRepo,
	}
}

// RegisterSavedProjectRoutes registers bookmark routes
func (h *SavedProjectHandler) RegisterSavedProjectRoutes(g *echo.Group) {
	g.POST("/projects/:id/save", h.SaveProject)
	g.DELETE("/projects/:id/save", h.UnsaveProject)
	g.GET("/saved-projects", h.GetSavedProjects)
}

// SaveProject bookmarks a project
func (h *SavedProjectHandler) SaveProject(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	projectID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid project ID")
	}

	// Verify project exists and is visible to the caller
	project, err := h.projectRepository.GetProjectByID(uint(projectID))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Project not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !project.IsPublic && project.UserID != currentUserID {
		return echo.NewHTTPError(http.StatusForbidden, "This project is private")
	}

	// Check if already saved
	isSaved, _ := h.savedProjectRepository.IsProjectSaved(currentUserID, uint(projectID))
	if isSaved {
		return echo.NewHTTPError(http.StatusConflict, "Project already saved")
	}

	saved := &models.SavedProject{
		UserID:    currentUserID,
		ProjectID: uint(projectID),
	}

	if err := h.savedProjectRepository.SaveProject(saved); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"saved": true}})
}

// UnsaveProject removes a project bookmark
func (h *SavedProjectHandler) UnsaveProject(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	projectID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid project ID")
	}

	if err := h.savedProjectRepository.UnsaveProject(currentUserID, uint(projectID)); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"saved": false}})
}

// GetSavedProjects lists the caller's bookmarked projects
func (h *SavedProjectHandler) GetSavedProjects(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	saved, err := h.savedProjectRepository.GetSavedProjectsByUser(currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	projects := make([]models.Project, 0, len(saved))
	for _, s := range saved {
		project, err := h.projectRepository.GetProjectByID(s.ProjectID)
		if err != nil {
			continue // Stale bookmark, project was deleted
		}
		projects = append(projects, *project)
	}

	return c.JSON(http.StatusOK, projects)
}

package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/subatomicERROR/codenano-sub000/internal/models"
	"github.com/subatomicERROR/codenano-sub000/internal/repositories"
)

// ReelHandler handles reel-related HTTP requests. Reels are short preview
// recordings published as ephemeral feed entries.
type ReelHandler struct {
	reelRepository repositories.ReelRepository
	userRepository repositories.UserRepository
}

// NewReelHandler creates a new ReelHandler
func NewReelHandler(reelRepo repositories.ReelRepository, userRepo repositories.UserRepository) *ReelHandler {
	return &ReelHandler{
		reelRepository: reelRepo,
		userRepository: userRepo,
	}
}

// RegisterReelRoutes registers reel-related routes
func (h *ReelHandler) RegisterReelRoutes(g *echo.Group) {
	g.GET("/reels", h.GetReels)
	g.GET("/reels/:id", h.GetReel)
	g.POST("/reels", h.CreateReel)
	g.POST("/reels/:id/seen", h.MarkAsSeen)
	g.DELETE("/reels/:id", h.DeleteReel)
}

// ReelResponse is the enriched reel response
type ReelResponse struct {
	ID         string             `json:"id"`
	Author     models.UserCompact `json:"author"`
	ProjectID  uint               `json:"project_id,omitempty"`
	Caption    string             `json:"caption"`
	VideoURL   string             `json:"video_url"`
	MimeType   string             `json:"mime_type"`
	Duration   float64            `json:"duration_seconds,omitempty"`
	ViewsCount int                `json:"views_count"`
	HasSeen    bool               `json:"has_seen"`
	ExpiresAt  string             `json:"expires_at"`
}

// GetReels returns active reels, the caller's own reel split out from the rest
func (h *ReelHandler) GetReels(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)

	reels, err := h.reelRepository.GetActiveReels(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	// Build author map
	userMap := make(map[uint]models.UserCompact)
	for _, r := range reels {
		if _, ok := userMap[r.UserID]; !ok {
			user, err := h.userRepository.GetUserByID(r.UserID)
			if err == nil {
				userMap[r.UserID] = user.ToCompact()
			}
		}
	}

	var currentUserReels []ReelResponse
	otherReels := make([]ReelResponse, 0, len(reels))

	for _, r := range reels {
		hasSeen := false
		if currentUserID > 0 {
			hasSeen, _ = h.reelRepository.HasViewed(r.ID.Hex(), currentUserID)
		}
		resp := ReelResponse{
			ID:         r.ID.Hex(),
			Author:     userMap[r.UserID],
			ProjectID:  r.ProjectID,
			Caption:    r.Caption,
			VideoURL:   r.VideoURL,
			MimeType:   r.MimeType,
			Duration:   r.Duration,
			ViewsCount: r.ViewsCount,
			HasSeen:    hasSeen,
			ExpiresAt:  r.ExpiresAt.Format(time.RFC3339),
		}

		if currentUserID > 0 && r.UserID == currentUserID {
			currentUserReels = append(currentUserReels, resp)
			continue
		}
		otherReels = append(otherReels, resp)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"reels":            otherReels,
			"currentUserReels": currentUserReels,
		},
	})
}

// GetReel returns a single reel
func (h *ReelHandler) GetReel(c echo.Context) error {
	reelID := c.Param("id")

	reel, err := h.reelRepository.GetReelByID(c.Request().Context(), reelID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Reel not found")
	}

	var author models.UserCompact
	if user, err := h.userRepository.GetUserByID(reel.UserID); err == nil {
		author = user.ToCompact()
	}

	resp := ReelResponse{
		ID:         reel.ID.Hex(),
		Author:     author,
		ProjectID:  reel.ProjectID,
		Caption:    reel.Caption,
		VideoURL:   reel.VideoURL,
		MimeType:   reel.MimeType,
		Duration:   reel.Duration,
		ViewsCount: reel.ViewsCount,
		ExpiresAt:  reel.ExpiresAt.Format(time.RFC3339),
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"reel": resp}})
}

// CreateReel publishes a new reel from a capture artifact URL
func (h *ReelHandler) CreateReel(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.CreateReelRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	mime := req.MimeType
	if mime == "" {
		mime = "video/webm"
	}

	reel := &models.Reel{
		UserID:    currentUserID,
		ProjectID: req.ProjectID,
		Caption:   req.Caption,
		VideoURL:  req.VideoURL,
		MimeType:  mime,
		Duration:  req.Duration,
	}

	if err := h.reelRepository.CreateReel(c.Request().Context(), reel); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": echo.Map{"reel": reel}})
}

// MarkAsSeen marks a reel as viewed by the caller and bumps its view count
func (h *ReelHandler) MarkAsSeen(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	reelID := c.Param("id")

	// Check if already seen
	hasSeen, _ := h.reelRepository.HasViewed(reelID, currentUserID)
	if hasSeen {
		return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"success": true}})
	}

	view := &models.ReelView{
		ReelID: reelID,
		UserID: currentUserID,
	}

	if err := h.reelRepository.MarkViewed(view); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	go h.reelRepository.IncrementViewsCount(c.Request().Context(), reelID)

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"success": true}})
}

// DeleteReel removes a reel owned by the caller
func (h *ReelHandler) DeleteReel(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	reelID := c.Param("id")

	reel, err := h.reelRepository.GetReelByID(c.Request().Context(), reelID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Reel not found")
	}
	if reel.UserID != currentUserID {
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to delete this reel")
	}

	if err := h.reelRepository.DeleteReel(c.Request().Context(), reelID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.NoContent(http.StatusNoContent)
}

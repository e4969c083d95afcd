package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/subatomicERROR/codenano-sub000/internal/models"
	"github.com/subatomicERROR/codenano-sub000/internal/repositories"
)

// FeedHandler handles feed-related HTTP requests
type FeedHandler struct {
	postRepository         repositories.PostRepository
	projectRepository      repositories.ProjectRepository
	userRepository         repositories.UserRepository
	followRepository       repositories.FollowRepository
	likeRepository         repositories.LikeRepository
	savedProjectRepository repositories.SavedProjectRepository
}

// NewFeedHandler creates a new FeedHandler
func NewFeedHandler(
	postRepo repositories.PostRepository,
	projectRepo repositories.ProjectRepository,
	userRepo repositories.UserRepository,
	followRepo repositories.FollowRepository,
	likeRepo repositories.LikeRepository,
	savedRepo repositories.SavedProjectRepository,
) *FeedHandler {
	return &FeedHandler{
		postRepository:         postRepo,
		projectRepository:      projectRepo,
		userRepository:         userRepo,
		followRepository:       followRepo,
		likeRepository:         likeRepo,
		savedProjectRepository: savedRepo,
	}
}

// RegisterFeedRoutes registers feed-related routes
func (h *FeedHandler) RegisterFeedRoutes(g *echo.Group) {
	g.GET("/feed", h.GetFeed)
	g.GET("/explore", h.GetExplore)
}

// EnrichedPost is a post with author info and user-specific flags
type EnrichedPost struct {
	models.Post
	Author  models.UserCompact `json:"author"`
	IsLiked bool               `json:"is_liked"`
}

// EnrichedProject is a public project with the caller's bookmark flag
type EnrichedProject struct {
	models.Project
	IsSaved bool `json:"is_saved"`
}

// GetFeed returns posts from followed users plus the caller's own posts
func (h *FeedHandler) GetFeed(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 10
	}
	skip := int64((page - 1) * limit)

	followingIDs, err := h.followRepository.GetFollowingIDs(currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	authorIDs := append(followingIDs, currentUserID)

	posts, err := h.postRepository.GetPostsByUserIDs(c.Request().Context(), authorIDs, skip, int64(limit))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"posts": h.enrichPosts(posts, currentUserID),
		},
		"meta": echo.Map{
			"currentPage":  page,
			"itemsPerPage": limit,
			"hasNextPage":  len(posts) == limit,
		},
	})
}

// GetExplore returns recent posts from everyone alongside trending public
// projects, for users with an empty follow graph.
func (h *FeedHandler) GetExplore(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)

	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 10
	}
	skip := int64((page - 1) * limit)

	posts, err := h.postRepository.GetAllPosts(c.Request().Context(), skip, int64(limit))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	projects, err := h.projectRepository.GetPublicProjects((page-1)*limit, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	enrichedProjects := make([]EnrichedProject, len(projects))
	for i, p := range projects {
		isSaved := false
		if currentUserID > 0 {
			isSaved, _ = h.savedProjectRepository.IsProjectSaved(currentUserID, p.ID)
		}
		enrichedProjects[i] = EnrichedProject{Project: p, IsSaved: isSaved}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"posts":    h.enrichPosts(posts, currentUserID),
			"projects": enrichedProjects,
		},
		"meta": echo.Map{
			"currentPage":  page,
			"itemsPerPage": limit,
			"hasNextPage":  len(posts) == limit || len(projects) == limit,
		},
	})
}

func (h *FeedHandler) enrichPosts(posts []models.Post, currentUserID uint) []EnrichedPost {
	userMap := make(map[uint]models.UserCompact)

	enriched := make([]EnrichedPost, len(posts))
	for i, p := range posts {
		if _, ok := userMap[p.UserID]; !ok {
			if user, err := h.userRepository.GetUserByID(p.UserID); err == nil {
				userMap[p.UserID] = user.ToCompact()
			}
		}

		isLiked := false
		if currentUserID > 0 {
			isLiked, _ = h.likeRepository.HasUserLikedPost(p.ID.Hex(), currentUserID)
		}

		enriched[i] = EnrichedPost{
			Post:    p,
			Author:  userMap[p.UserID],
			IsLiked: isLiked,
		}
	}
	return enriched
}

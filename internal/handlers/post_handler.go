package handlers

import (
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ripplefeed/backend/internal/engagement"
	"github.com/ripplefeed/backend/internal/models"
	"github.com/ripplefeed/backend/internal/repositories"
	"github.com/ripplefeed/backend/pkg/cache"
)

const (
	defaultPageSize  = 10
	maxPageSize      = 50
	profileCacheTTL  = 5 * time.Minute
	profileKeyPrefix = "profile:"
)

// PostHandler handles HTTP requests related to posts and the feed
type PostHandler struct {
	postRepository repositories.PostRepository
	userRepository repositories.UserRepository
	ledger         *engagement.Ledger
	cache          *cache.Client
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(postRepo repositories.PostRepository, userRepo repositories.UserRepository, ledger *engagement.Ledger, cacheClient *cache.Client) *PostHandler {
	return &PostHandler{
		postRepository: postRepo,
		userRepository: userRepo,
		ledger:         ledger,
		cache:          cacheClient,
	}
}

// RegisterPostRoutes registers the authenticated post routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.POST("/posts", h.CreatePost)
	g.PUT("/posts/:id", h.UpdatePost)
	g.DELETE("/posts/:id", h.DeletePost)
}

// RegisterPostReadRoutes registers the post read routes, which accept
// anonymous callers.
func (h *PostHandler) RegisterPostReadRoutes(g *echo.Group) {
	g.GET("/posts", h.GetFeed)
	g.GET("/posts/:id", h.GetPost)
	g.GET("/users/:id/posts", h.GetUserPosts)
}

// PostView is a post enriched with its author profile and engagement counts.
type PostView struct {
	models.Post
	Author *models.UserProfile `json:"author,omitempty"`
	engagement.Counts
}

// CreatePost creates a new post
func (h *PostHandler) CreatePost(c echo.Context) error {
	callerID := callerDocumentID(c)

	var req models.CreatePostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	post := &models.Post{
		AuthorID:  callerID,
		Content:   req.Content,
		ImageURLs: req.ImageURLs,
		VideoURLs: req.VideoURLs,
		MediaKeys: req.MediaKeys,
	}
	if err := h.postRepository.CreatePost(c.Request().Context(), post); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create post")
	}

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": post})
}

// GetPost retrieves a post by ID together with its full engagement state
func (h *PostHandler) GetPost(c echo.Context) error {
	postID := c.Param("id")
	callerID := callerDocumentID(c)

	post, err := h.postRepository.GetPostByID(c.Request().Context(), postID)
	if err != nil {
		return postHTTPError(err)
	}

	state, err := h.ledger.EngagementState(c.Request().Context(), postID, callerID)
	if err != nil {
		return engagementHTTPError(err)
	}

	view := PostView{Post: *post}
	if profile, ok := h.authorProfiles([]models.Post{*post})[post.AuthorID]; ok {
		view.Author = &profile
	}
	view.Counts = engagement.Counts{
		LikeCount:     state.LikeCount,
		CommentCount:  state.CommentCount,
		LikedByCaller: state.LikedByCaller,
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"post":       view,
			"engagement": state,
		},
	})
}

// GetFeed returns the global feed, newest first, enriched with engagement
// counts and author profiles
func (h *PostHandler) GetFeed(c echo.Context) error {
	page, limit := paginationParams(c)
	skip := int64(page-1) * int64(limit)

	posts, err := h.postRepository.GetAllPosts(c.Request().Context(), skip, int64(limit))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load feed")
	}
	total, err := h.postRepository.CountPosts(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load feed")
	}

	return h.renderFeedPage(c, posts, page, limit, total)
}

// GetUserPosts returns one author's posts in the same shape as the feed
func (h *PostHandler) GetUserPosts(c echo.Context) error {
	authorID := c.Param("id")
	if _, err := strconv.ParseUint(authorID, 10, 32); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}

	page, limit := paginationParams(c)
	skip := int64(page-1) * int64(limit)

	posts, err := h.postRepository.GetPostsByAuthorID(c.Request().Context(), authorID, skip, int64(limit))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load posts")
	}
	total, err := h.postRepository.CountPostsByAuthorID(c.Request().Context(), authorID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load posts")
	}

	return h.renderFeedPage(c, posts, page, limit, total)
}

func (h *PostHandler) renderFeedPage(c echo.Context, posts []models.Post, page, limit int, total int64) error {
	callerID := callerDocumentID(c)

	postIDs := make([]string, len(posts))
	for i, p := range posts {
		postIDs[i] = p.ID.Hex()
	}
	counts, err := h.ledger.CountsFor(c.Request().Context(), postIDs, callerID)
	if err != nil {
		return engagementHTTPError(err)
	}
	profiles := h.authorProfiles(posts)

	views := make([]PostView, len(posts))
	for i, p := range posts {
		views[i] = PostView{Post: p, Counts: counts[p.ID.Hex()]}
		if profile, ok := profiles[p.AuthorID]; ok {
			views[i].Author = &profile
		}
	}

	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"posts": views},
		"meta": echo.Map{
			"currentPage":     page,
			"totalPages":      totalPages,
			"totalItems":      total,
			"itemsPerPage":    limit,
			"hasNextPage":     page < totalPages,
			"hasPreviousPage": page > 1,
		},
	})
}

// authorProfiles resolves the public profiles for a page of posts, going to
// memcache first and falling back to one batched Postgres read. Only
// profiles are cached; engagement state never is.
func (h *PostHandler) authorProfiles(posts []models.Post) map[string]models.UserProfile {
	profiles := make(map[string]models.UserProfile)
	var missing []uint
	seen := make(map[string]bool)

	for _, p := range posts {
		if seen[p.AuthorID] {
			continue
		}
		seen[p.AuthorID] = true

		var cached models.UserProfile
		if h.cache.GetJSON(profileKeyPrefix+p.AuthorID, &cached) {
			profiles[p.AuthorID] = cached
			continue
		}
		id, err := strconv.ParseUint(p.AuthorID, 10, 32)
		if err != nil {
			continue
		}
		missing = append(missing, uint(id))
	}

	if len(missing) == 0 {
		return profiles
	}
	users, err := h.userRepository.GetUsersByIDs(missing)
	if err != nil {
		log.Printf("Unable to load author profiles: %v", err)
		return profiles
	}
	for _, u := range users {
		profile := u.Profile()
		profiles[u.DocumentID()] = profile
		h.cache.SetJSON(profileKeyPrefix+u.DocumentID(), profile, profileCacheTTL)
	}
	return profiles
}

// UpdatePost edits a post's content. Author only.
func (h *PostHandler) UpdatePost(c echo.Context) error {
	callerID := callerDocumentID(c)
	postID := c.Param("id")

	var req models.UpdatePostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	existingPost, err := h.postRepository.GetPostByID(c.Request().Context(), postID)
	if err != nil {
		return postHTTPError(err)
	}
	if existingPost.AuthorID != callerID {
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to update this post")
	}

	if err := h.postRepository.UpdatePostContent(c.Request().Context(), postID, req.Content); err != nil {
		return postHTTPError(err)
	}

	existingPost.Content = req.Content
	existingPost.UpdatedAt = time.Now()
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": existingPost})
}

// DeletePost soft-deletes a post. Author only. Engagement operations on the
// post fail with 404 from this point on; the retention job hard-deletes
// later.
func (h *PostHandler) DeletePost(c echo.Context) error {
	callerID := callerDocumentID(c)
	postID := c.Param("id")

	existingPost, err := h.postRepository.GetPostByID(c.Request().Context(), postID)
	if err != nil {
		return postHTTPError(err)
	}
	if existingPost.AuthorID != callerID {
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to delete this post")
	}

	if err := h.postRepository.SoftDeletePost(c.Request().Context(), postID); err != nil {
		return postHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func paginationParams(c echo.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}
	return page, limit
}

func postHTTPError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, repositories.ErrInvalidPostID):
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid post ID")
	case errors.Is(err, repositories.ErrPostNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Post not found")
	default:
		log.Printf("Post storage error: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Storage error")
	}
}

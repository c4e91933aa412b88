package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ripplefeed/backend/internal/engagement"
	"github.com/ripplefeed/backend/internal/models"
	"github.com/ripplefeed/backend/internal/repositories"
	"github.com/ripplefeed/backend/pkg/events"
	"github.com/ripplefeed/backend/pkg/metrics"
)

// EngagementHandler exposes the like/comment operations of the ledger. It
// only translates between HTTP and the ledger; every consistency rule lives
// in the ledger and its store.
type EngagementHandler struct {
	ledger                 *engagement.Ledger
	postRepository         repositories.PostRepository
	notificationRepository repositories.NotificationRepository
	publisher              *events.Publisher
}

// NewEngagementHandler creates a new EngagementHandler
func NewEngagementHandler(ledger *engagement.Ledger, postRepo repositories.PostRepository, notifRepo repositories.NotificationRepository, publisher *events.Publisher) *EngagementHandler {
	return &EngagementHandler{
		ledger:                 ledger,
		postRepository:         postRepo,
		notificationRepository: notifRepo,
		publisher:              publisher,
	}
}

// RegisterEngagementRoutes registers the authenticated engagement routes
func (h *EngagementHandler) RegisterEngagementRoutes(g *echo.Group) {
	g.PATCH("/posts/:id/like", h.ToggleLike)
	g.POST("/posts/:id/comments", h.AddComment)
	g.DELETE("/posts/:id/comments/:commentId", h.DeleteComment)
}

// RegisterEngagementReadRoutes registers the engagement read routes, which
// accept anonymous callers.
func (h *EngagementHandler) RegisterEngagementReadRoutes(g *echo.Group) {
	g.GET("/posts/:id/comments", h.GetComments)
}

// ToggleLike flips the caller's like on a post
func (h *EngagementHandler) ToggleLike(c echo.Context) error {
	callerID := callerDocumentID(c)
	postID := c.Param("id")

	result, err := h.ledger.ToggleLike(c.Request().Context(), postID, callerID)
	if err != nil {
		metrics.ObserveEngagementOp("toggle_like", outcomeLabel(err))
		return engagementHTTPError(err)
	}
	metrics.ObserveEngagementOp("toggle_like", "ok")

	if result.Liked {
		go h.notifyPostAuthor(models.NotificationPostLike, callerID, postID, "")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": result})
}

// AddComment appends a comment to a post
func (h *EngagementHandler) AddComment(c echo.Context) error {
	callerID := callerDocumentID(c)
	postID := c.Param("id")

	var req models.CreateCommentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	result, err := h.ledger.AddComment(c.Request().Context(), postID, callerID, req.Content)
	if err != nil {
		metrics.ObserveEngagementOp("add_comment", outcomeLabel(err))
		return engagementHTTPError(err)
	}
	metrics.ObserveEngagementOp("add_comment", "ok")

	go h.notifyPostAuthor(models.NotificationPostComment, callerID, postID, result.Comment.ID.Hex())

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": result})
}

// DeleteComment removes a single comment. The ledger enforces that only the
// comment author or the post author may delete.
func (h *EngagementHandler) DeleteComment(c echo.Context) error {
	callerID := callerDocumentID(c)
	postID := c.Param("id")
	commentID := c.Param("commentId")

	result, err := h.ledger.DeleteComment(c.Request().Context(), postID, commentID, callerID)
	if err != nil {
		metrics.ObserveEngagementOp("delete_comment", outcomeLabel(err))
		return engagementHTTPError(err)
	}
	metrics.ObserveEngagementOp("delete_comment", "ok")

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": result})
}

// GetComments returns the post's engagement projection, anonymous callers
// included.
func (h *EngagementHandler) GetComments(c echo.Context) error {
	state, err := h.ledger.EngagementState(c.Request().Context(), c.Param("id"), callerDocumentID(c))
	if err != nil {
		return engagementHTTPError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": state})
}

// notifyPostAuthor records a notification row and publishes the matching
// event. Best-effort: runs detached from the request and never fails it.
// Self-engagement produces no notification.
func (h *EngagementHandler) notifyPostAuthor(notifType, actorID, postID, commentID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	post, err := h.postRepository.GetPostByID(ctx, postID)
	if err != nil {
		log.Printf("Unable to resolve post %s for notification: %v", postID, err)
		return
	}
	if post.AuthorID == actorID {
		return
	}

	recipientID, err := strconv.ParseUint(post.AuthorID, 10, 32)
	if err != nil {
		log.Printf("Post %s has a malformed author ID %q", postID, post.AuthorID)
		return
	}
	actorUintID, err := strconv.ParseUint(actorID, 10, 32)
	if err != nil {
		return
	}

	message := "liked your post"
	if notifType == models.NotificationPostComment {
		message = "commented on your post"
	}

	notification := &models.Notification{
		Type:        notifType,
		ActorID:     uint(actorUintID),
		RecipientID: uint(recipientID),
		PostID:      postID,
		CommentID:   commentID,
		Message:     message,
	}
	if err := h.notificationRepository.CreateNotification(notification); err != nil {
		log.Printf("Unable to create %s notification for post %s: %v", notifType, postID, err)
	}

	h.publisher.Publish(events.NotificationSubject(post.AuthorID), events.Message{
		Type:      notifType,
		From:      actorID,
		To:        post.AuthorID,
		PostID:    postID,
		CommentID: commentID,
	})
}

// engagementHTTPError maps the ledger error taxonomy onto HTTP statuses.
func engagementHTTPError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, engagement.ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, engagement.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Post or comment not found")
	case errors.Is(err, engagement.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to delete this comment")
	default:
		log.Printf("Engagement storage error: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Storage error")
	}
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, engagement.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, engagement.ErrNotFound):
		return "not_found"
	case errors.Is(err, engagement.ErrForbidden):
		return "forbidden"
	default:
		return "storage"
	}
}

package engagement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ripplefeed/backend/internal/models"
)

// MaxCommentLength is the upper bound on a comment's trimmed rune count.
const MaxCommentLength = 500

// PostRef is the slice of a post the ledger needs: identity and author.
// Stores never return refs for soft-deleted posts.
type PostRef struct {
	ID       string
	AuthorID string
}

// LikeDelta reports the outcome of a guarded like-set mutation. Applied is
// false when the guard missed, meaning membership was already in the target
// state and nothing changed.
type LikeDelta struct {
	Count   int64
	Applied bool
}

// Counts is the per-post engagement summary used for feed assembly.
type Counts struct {
	LikeCount     int64 `json:"likeCount"`
	CommentCount  int64 `json:"commentCount"`
	LikedByCaller bool  `json:"likedByCaller"`
}

// Store is the document-store surface the ledger runs on. Every mutation is
// a single conditional update applied atomically by the store; membership
// checks and counter moves happen inside the same update, never as a
// read-modify-write cycle in application code.
//
// Implementations return ErrNotFound and ErrInvalidInput where the method
// contract names them; any other error is treated as a storage failure.
type Store interface {
	// FindPost resolves a post for engagement purposes. Soft-deleted posts
	// are reported as ErrNotFound; malformed IDs as ErrInvalidInput.
	FindPost(ctx context.Context, postID string) (*PostRef, error)

	// AddLike inserts userID into the post's like set unless already present.
	AddLike(ctx context.Context, postID, userID string) (LikeDelta, error)

	// RemoveLike removes userID from the post's like set if present.
	RemoveLike(ctx context.Context, postID, userID string) (LikeDelta, error)

	// LikeState reports the current like count and whether userID is a
	// member. An empty userID reads the count only and reports false.
	LikeState(ctx context.Context, postID, userID string) (int64, bool, error)

	// AppendComment appends a new comment to the end of the post's list,
	// assigning its ID and timestamp, and returns it with the updated count.
	AppendComment(ctx context.Context, postID, authorID, content string) (*models.Comment, int64, error)

	// FindComment returns the comment with commentID, or ErrNotFound.
	FindComment(ctx context.Context, postID, commentID string) (*models.Comment, error)

	// RemoveComment removes exactly the comment with commentID and returns
	// the updated count. ErrNotFound if no such comment exists.
	RemoveComment(ctx context.Context, postID, commentID string) (int64, error)

	// Comments returns the post's comments in insertion order with the count.
	Comments(ctx context.Context, postID string) ([]models.Comment, int64, error)

	// EngagementCounts returns counts and callerID membership for each post
	// in postIDs. Posts without aggregates read as zeros. Callers pass IDs
	// of posts already known to be visible.
	EngagementCounts(ctx context.Context, postIDs []string, callerID string) (map[string]Counts, error)
}

// ToggleResult is the post-mutation state returned by ToggleLike.
type ToggleResult struct {
	Count int64 `json:"count"`
	Liked bool  `json:"likedByCaller"`
}

// CommentResult carries a newly appended comment and the updated count.
type CommentResult struct {
	Comment *models.Comment `json:"comment"`
	Count   int64           `json:"commentCount"`
}

// DeleteResult is returned by DeleteComment.
type DeleteResult struct {
	RemainingCount int64 `json:"remainingCount"`
}

// State is the read-only engagement projection for a single post.
type State struct {
	LikeCount     int64            `json:"likeCount"`
	LikedByCaller bool             `json:"likedByCaller"`
	CommentCount  int64            `json:"commentCount"`
	Comments      []models.Comment `json:"comments"`
}

// Ledger owns like membership and comment lists for posts. It validates and
// authorizes before touching the store, so failed calls never leave partial
// state behind.
type Ledger struct {
	store Store
}

// NewLedger creates a Ledger over the given store.
func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

// ToggleLike flips userID's membership in the post's like set. Repeated
// calls alternate state; the returned count and membership reflect the state
// after the mutation. Concurrent toggles by distinct users are both
// recorded; concurrent toggles by the same user resolve last-write-wins.
func (l *Ledger) ToggleLike(ctx context.Context, postID, userID string) (*ToggleResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if _, err := l.store.FindPost(ctx, postID); err != nil {
		return nil, l.classify(err)
	}

	added, err := l.store.AddLike(ctx, postID, userID)
	if err != nil {
		return nil, l.classify(err)
	}
	if added.Applied {
		return &ToggleResult{Count: added.Count, Liked: true}, nil
	}

	removed, err := l.store.RemoveLike(ctx, postID, userID)
	if err != nil {
		return nil, l.classify(err)
	}
	if removed.Applied {
		return &ToggleResult{Count: removed.Count, Liked: false}, nil
	}

	// Both guards missed: another toggle by the same user landed between
	// them. Last write wins; report whatever state stands now.
	count, liked, err := l.store.LikeState(ctx, postID, userID)
	if err != nil {
		return nil, l.classify(err)
	}
	return &ToggleResult{Count: count, Liked: liked}, nil
}

// AddComment appends a comment to the post's list and returns it together
// with the updated count.
func (l *Ledger) AddComment(ctx context.Context, postID, userID, content string) (*CommentResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: comment content is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(content) > MaxCommentLength {
		return nil, fmt.Errorf("%w: comment content exceeds %d characters", ErrInvalidInput, MaxCommentLength)
	}
	if _, err := l.store.FindPost(ctx, postID); err != nil {
		return nil, l.classify(err)
	}

	comment, count, err := l.store.AppendComment(ctx, postID, userID, content)
	if err != nil {
		return nil, l.classify(err)
	}
	return &CommentResult{Comment: comment, Count: count}, nil
}

// DeleteComment removes one comment by ID. The caller must be the comment's
// author or the post's author. Deleting a comment that no longer exists
// fails with ErrNotFound rather than reporting success twice.
func (l *Ledger) DeleteComment(ctx context.Context, postID, commentID, callerID string) (*DeleteResult, error) {
	if strings.TrimSpace(callerID) == "" {
		return nil, fmt.Errorf("%w: caller id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(commentID) == "" {
		return nil, fmt.Errorf("%w: comment id is required", ErrInvalidInput)
	}
	post, err := l.store.FindPost(ctx, postID)
	if err != nil {
		return nil, l.classify(err)
	}
	comment, err := l.store.FindComment(ctx, postID, commentID)
	if err != nil {
		return nil, l.classify(err)
	}
	if callerID != comment.AuthorID && callerID != post.AuthorID {
		return nil, fmt.Errorf("%w: only the comment author or the post author may delete a comment", ErrForbidden)
	}

	remaining, err := l.store.RemoveComment(ctx, postID, commentID)
	if err != nil {
		return nil, l.classify(err)
	}
	return &DeleteResult{RemainingCount: remaining}, nil
}

// EngagementState returns the read-only like/comment projection for a post.
// callerID may be empty for anonymous reads, in which case LikedByCaller is
// always false. Never mutates state.
func (l *Ledger) EngagementState(ctx context.Context, postID, callerID string) (*State, error) {
	if _, err := l.store.FindPost(ctx, postID); err != nil {
		return nil, l.classify(err)
	}
	likeCount, liked, err := l.store.LikeState(ctx, postID, callerID)
	if err != nil {
		return nil, l.classify(err)
	}
	comments, commentCount, err := l.store.Comments(ctx, postID)
	if err != nil {
		return nil, l.classify(err)
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	return &State{
		LikeCount:     likeCount,
		LikedByCaller: liked && callerID != "",
		CommentCount:  commentCount,
		Comments:      comments,
	}, nil
}

// CountsFor returns engagement counts for a page of posts in one batch.
func (l *Ledger) CountsFor(ctx context.Context, postIDs []string, callerID string) (map[string]Counts, error) {
	if len(postIDs) == 0 {
		return map[string]Counts{}, nil
	}
	counts, err := l.store.EngagementCounts(ctx, postIDs, callerID)
	if err != nil {
		return nil, l.classify(err)
	}
	return counts, nil
}

// classify folds any non-taxonomy error into ErrStorage so callers only ever
// see the four ledger errors.
func (l *Ledger) classify(err error) error {
	if errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrForbidden) || errors.Is(err, ErrStorage) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStorage, err)
}

package models

import "time"

// Notification types emitted by the engagement handlers.
const (
	NotificationPostLike    = "post_like"
	NotificationPostComment = "post_comment"
)

// Notification represents a user notification (PostgreSQL)
type Notification struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Type        string    `json:"type" gorm:"size:30;index"` // post_like, post_comment
	ActorID     uint      `json:"actor_id" gorm:"index"`
	RecipientID uint      `json:"recipient_id" gorm:"index"`
	PostID      string    `json:"post_id"`               // MongoDB ObjectID as string
	CommentID   string    `json:"comment_id,omitempty"`  // set for post_comment only
	Message     string    `json:"message"`
	IsRead      bool      `json:"is_read" gorm:"default:false;index"`
	CreatedAt   time.Time `json:"created_at" gorm:"index"`
}

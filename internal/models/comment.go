package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Comment is a single entry inside a post's CommentList. Comments are
// immutable after creation; they are only ever appended or removed.
type Comment struct {
	ID        primitive.ObjectID `json:"id" bson:"id"`
	AuthorID  string             `json:"author_id" bson:"author_id"` // decimal string of the Postgres user ID
	Content   string             `json:"content" bson:"content"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}

// CommentList holds the ordered comments for a single post, stored in
// MongoDB one-to-one with the post. Insertion order is chronological and
// Count always equals len(Comments).
type CommentList struct {
	ID       primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	PostID   primitive.ObjectID `json:"post_id" bson:"post_id"`
	Comments []Comment          `json:"comments" bson:"comments"`
	Count    int64              `json:"count" bson:"count"`
}

// CreateCommentRequest defines the request body for commenting on a post
type CreateCommentRequest struct {
	Content string `json:"content" validate:"required,max=500"`
}

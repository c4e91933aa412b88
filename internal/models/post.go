package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post represents a social media post stored in MongoDB
type Post struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	AuthorID  string             `json:"author_id" bson:"author_id"` // decimal string of the Postgres user ID
	Content   string             `json:"content" bson:"content"`
	ImageURLs []string           `json:"image_urls,omitempty" bson:"image_urls,omitempty"`
	VideoURLs []string           `json:"video_urls,omitempty" bson:"video_urls,omitempty"`
	MediaKeys []string           `json:"media_keys,omitempty" bson:"media_keys,omitempty"` // object storage keys owned by this post
	IsDeleted bool               `json:"-" bson:"is_deleted"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

// CreatePostRequest defines the request body for creating a new post
type CreatePostRequest struct {
	Content   string   `json:"content" validate:"required,min=1,max=500"`
	ImageURLs []string `json:"image_urls,omitempty" validate:"omitempty,dive,url"`
	VideoURLs []string `json:"video_urls,omitempty" validate:"omitempty,dive,url"`
	MediaKeys []string `json:"media_keys,omitempty" validate:"omitempty,dive,min=1"`
}

// UpdatePostRequest defines the request body for updating an existing post
type UpdatePostRequest struct {
	Content string `json:"content" validate:"required,min=1,max=500"`
}

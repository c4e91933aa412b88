package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LikeSet holds the like membership for a single post, stored in MongoDB
// one-to-one with the post. Users is a set (no duplicates) and Count always
// equals len(Users); both move together inside a single atomic update.
type LikeSet struct {
	ID        primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	PostID    primitive.ObjectID `json:"post_id" bson:"post_id"`
	Users     []string           `json:"users" bson:"users"` // user IDs, decimal strings
	Count     int64              `json:"count" bson:"count"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

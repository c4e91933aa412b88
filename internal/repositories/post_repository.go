package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/ripplefeed/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PostRepository defines the interface for post data operations. Posts are
// soft-deleted: every read filters deleted documents out, and only the
// retention purger ever removes them physically.
type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPostByID(ctx context.Context, id string) (*models.Post, error)
	GetPostsByAuthorID(ctx context.Context, authorID string, skip, limit int64) ([]models.Post, error)
	GetAllPosts(ctx context.Context, skip, limit int64) ([]models.Post, error)
	CountPosts(ctx context.Context) (int64, error)
	CountPostsByAuthorID(ctx context.Context, authorID string) (int64, error)
	UpdatePostContent(ctx context.Context, id, content string) error
	SoftDeletePost(ctx context.Context, id string) error
	ListExpiredDeleted(ctx context.Context, before time.Time, limit int64) ([]models.Post, error)
	HardDeletePost(ctx context.Context, id string) error
}

// MongoPostRepository implements PostRepository for MongoDB
type MongoPostRepository struct {
	collection *mongo.Collection
}

// NewMongoPostRepository creates a new MongoPostRepository
func NewMongoPostRepository(db *mongo.Database) *MongoPostRepository {
	return &MongoPostRepository{collection: db.Collection("posts")}
}

// notDeleted is the base filter every read path starts from.
func notDeleted() bson.M {
	return bson.M{"is_deleted": false}
}

// CreatePost creates a new post in MongoDB
func (r *MongoPostRepository) CreatePost(ctx context.Context, post *models.Post) error {
	post.ID = primitive.NewObjectID()
	post.IsDeleted = false
	post.CreatedAt = time.Now()
	post.UpdatedAt = time.Now()
	_, err := r.collection.InsertOne(ctx, post)
	return err
}

// GetPostByID retrieves a non-deleted post by ID from MongoDB
func (r *MongoPostRepository) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPostID, err)
	}

	filter := notDeleted()
	filter["_id"] = objID

	var post models.Post
	err = r.collection.FindOne(ctx, filter).Decode(&post)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &post, nil
}

// GetPostsByAuthorID retrieves posts by a specific author from MongoDB
func (r *MongoPostRepository) GetPostsByAuthorID(ctx context.Context, authorID string, skip, limit int64) ([]models.Post, error) {
	filter := notDeleted()
	filter["author_id"] = authorID
	return r.findPosts(ctx, filter, skip, limit)
}

// GetAllPosts retrieves all posts from MongoDB with pagination
func (r *MongoPostRepository) GetAllPosts(ctx context.Context, skip, limit int64) ([]models.Post, error) {
	return r.findPosts(ctx, notDeleted(), skip, limit)
}

func (r *MongoPostRepository) findPosts(ctx context.Context, filter bson.M, skip, limit int64) ([]models.Post, error) {
	var posts []models.Post
	findOptions := options.Find().SetSkip(skip).SetLimit(limit).SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// CountPosts counts all non-deleted posts
func (r *MongoPostRepository) CountPosts(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, notDeleted())
}

// CountPostsByAuthorID counts non-deleted posts by a specific author
func (r *MongoPostRepository) CountPostsByAuthorID(ctx context.Context, authorID string) (int64, error) {
	filter := notDeleted()
	filter["author_id"] = authorID
	return r.collection.CountDocuments(ctx, filter)
}

// UpdatePostContent updates the content of an existing post in MongoDB
func (r *MongoPostRepository) UpdatePostContent(ctx context.Context, id, content string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPostID, err)
	}

	filter := notDeleted()
	filter["_id"] = objID
	update := bson.M{
		"$set": bson.M{
			"content":    content,
			"updated_at": time.Now(),
		},
	}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrPostNotFound
	}
	return nil
}

// SoftDeletePost flags a post as deleted without removing the document
func (r *MongoPostRepository) SoftDeletePost(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPostID, err)
	}

	filter := notDeleted()
	filter["_id"] = objID
	update := bson.M{
		"$set": bson.M{
			"is_deleted": true,
			"updated_at": time.Now(),
		},
	}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrPostNotFound
	}
	return nil
}

// ListExpiredDeleted returns soft-deleted posts whose last update is older
// than the given cutoff, for the retention purger.
func (r *MongoPostRepository) ListExpiredDeleted(ctx context.Context, before time.Time, limit int64) ([]models.Post, error) {
	var posts []models.Post
	filter := bson.M{
		"is_deleted": true,
		"updated_at": bson.M{"$lt": before},
	}
	findOptions := options.Find().SetLimit(limit).SetSort(bson.D{{Key: "updated_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// HardDeletePost physically removes a post document. Only the retention
// purger calls this, after the post's aggregates and media are gone.
func (r *MongoPostRepository) HardDeletePost(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPostID, err)
	}

	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrPostNotFound
	}
	return nil
}

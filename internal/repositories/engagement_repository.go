package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/ripplefeed/backend/internal/engagement"
	"github.com/ripplefeed/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoEngagementRepository implements engagement.Store over the post_likes
// and post_comments collections. Each post owns one aggregate document per
// collection; membership and count always move inside the same guarded
// update, so they cannot drift apart under concurrent writers.
type MongoEngagementRepository struct {
	posts    *mongo.Collection
	likes    *mongo.Collection
	comments *mongo.Collection
}

// NewMongoEngagementRepository creates a new MongoEngagementRepository
func NewMongoEngagementRepository(db *mongo.Database) *MongoEngagementRepository {
	return &MongoEngagementRepository{
		posts:    db.Collection("posts"),
		likes:    db.Collection("post_likes"),
		comments: db.Collection("post_comments"),
	}
}

// EnsureIndexes creates the unique post_id indexes the aggregate collections
// rely on. Called once at startup.
func (r *MongoEngagementRepository) EnsureIndexes(ctx context.Context) error {
	model := mongo.IndexModel{
		Keys:    bson.D{{Key: "post_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := r.likes.Indexes().CreateOne(ctx, model); err != nil {
		return fmt.Errorf("post_likes index: %w", err)
	}
	if _, err := r.comments.Indexes().CreateOne(ctx, model); err != nil {
		return fmt.Errorf("post_comments index: %w", err)
	}
	return nil
}

// FindPost resolves a post for engagement purposes, excluding soft-deleted
// documents.
func (r *MongoEngagementRepository) FindPost(ctx context.Context, postID string) (*engagement.PostRef, error) {
	objID, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid post ID format", engagement.ErrInvalidInput)
	}

	var doc struct {
		AuthorID string `bson:"author_id"`
	}
	opts := options.FindOne().SetProjection(bson.M{"author_id": 1})
	err = r.posts.FindOne(ctx, bson.M{"_id": objID, "is_deleted": false}, opts).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, engagement.ErrNotFound
		}
		return nil, err
	}
	return &engagement.PostRef{ID: postID, AuthorID: doc.AuthorID}, nil
}

// AddLike inserts userID into the post's like set unless already present.
// The users guard and the count increment ride the same update.
func (r *MongoEngagementRepository) AddLike(ctx context.Context, postID, userID string) (engagement.LikeDelta, error) {
	objID, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return engagement.LikeDelta{}, fmt.Errorf("%w: invalid post ID format", engagement.ErrInvalidInput)
	}
	if err := r.ensureLikeSet(ctx, objID); err != nil {
		return engagement.LikeDelta{}, err
	}

	filter := bson.M{"post_id": objID, "users": bson.M{"$ne": userID}}
	update := bson.M{
		"$push": bson.M{"users": userID},
		"$inc":  bson.M{"count": 1},
		"$set":  bson.M{"updated_at": time.Now()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var set models.LikeSet
	err = r.likes.FindOneAndUpdate(ctx, filter, update, opts).Decode(&set)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			// Guard missed: the user is already a member.
			count, err := r.currentLikeCount(ctx, objID)
			return engagement.LikeDelta{Count: count, Applied: false}, err
		}
		return engagement.LikeDelta{}, err
	}
	return engagement.LikeDelta{Count: set.Count, Applied: true}, nil
}

// RemoveLike removes userID from the post's like set if present.
func (r *MongoEngagementRepository) RemoveLike(ctx context.Context, postID, userID string) (engagement.LikeDelta, error) {
	objID, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return engagement.LikeDelta{}, fmt.Errorf("%w: invalid post ID format", engagement.ErrInvalidInput)
	}

	filter := bson.M{"post_id": objID, "users": userID}
	update := bson.M{
		"$pull": bson.M{"users": userID},
		"$inc":  bson.M{"count": -1},
		"$set":  bson.M{"updated_at": time.Now()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var set models.LikeSet
	err = r.likes.FindOneAndUpdate(ctx, filter, update, opts).Decode(&set)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			// Guard missed: the user was not a member.
			count, err := r.currentLikeCount(ctx, objID)
			return engagement.LikeDelta{Count: count, Applied: false}, err
		}
		return engagement.LikeDelta{}, err
	}
	return engagement.LikeDelta{Count: set.Count, Applied: true}, nil
}

// ensureLikeSet lazily creates the post's like document. Safe to call
// concurrently: the upsert inserts at most once under the unique index.
func (r *MongoEngagementRepository) ensureLikeSet(ctx context.Context, postID primitive.ObjectID) error {
	update := bson.M{
		"$setOnInsert": bson.M{
			"users":      []string{},
			"count":      int64(0),
			"updated_at": time.Now(),
		},
	}
	_, err := r.likes.UpdateOne(ctx, bson.M{"post_id": postID}, update, options.Update().SetUpsert(true))
	if err != nil && mongo.IsDuplicateKeyError(err) {
		// A concurrent upsert won the insert; the document exists.
		return nil
	}
	return err
}

func (r *MongoEngagementRepository) currentLikeCount(ctx context.Context, postID primitive.ObjectID) (int64, error) {
	var set models.LikeSet
	opts := options.FindOne().SetProjection(bson.M{"count": 1})
	err := r.likes.FindOne(ctx, bson.M{"post_id": postID}, opts).Decode(&set)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return 0, nil
		}
		return 0, err
	}
	return set.Count, nil
}

// LikeState reports the like count and whether userID is a member. A missing
// aggregate reads as zero: lazy creation means absence is "no likes yet".
func (r *MongoEngagementRepository) LikeState(ctx context.Context, postID, userID string) (int64, bool, error) {
	objID, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return 0, false, fmt.Errorf("%w: invalid post ID format", engagement.ErrInvalidInput)
	}

	var set models.LikeSet
	err = r.likes.FindOne(ctx, bson.M{"post_id": objID}).Decode(&set)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return 0, false, nil
		}
		return 0, false, err
	}

	liked := false
	if userID != "" {
		for _, u := range set.Users {
			if u == userID {
				liked = true
				break
			}
		}
	}
	return set.Count, liked, nil
}

// AppendComment appends a new comment with a generated ID and server-assigned
// timestamp, incrementing the count in the same update.
func (r *MongoEngagementRepository) AppendComment(ctx context.Context, postID, authorID, content string) (*models.Comment, int64, error) {
	objID, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: invalid post ID format", engagement.ErrInvalidInput)
	}
	if err := r.ensureCommentList(ctx, objID); err != nil {
		return nil, 0, err
	}

	comment := models.Comment{
		ID:        primitive.NewObjectID(),
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: time.Now(),
	}
	update := bson.M{
		"$push": bson.M{"comments": comment},
		"$inc":  bson.M{"count": 1},
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"count": 1})

	var list models.CommentList
	if err := r.comments.FindOneAndUpdate(ctx, bson.M{"post_id": objID}, update, opts).Decode(&list); err != nil {
		return nil, 0, err
	}
	return &comment, list.Count, nil
}

// ensureCommentList lazily creates the post's comment document.
func (r *MongoEngagementRepository) ensureCommentList(ctx context.Context, postID primitive.ObjectID) error {
	update := bson.M{
		"$setOnInsert": bson.M{
			"comments": []models.Comment{},
			"count":    int64(0),
		},
	}
	_, err := r.comments.UpdateOne(ctx, bson.M{"post_id": postID}, update, options.Update().SetUpsert(true))
	if err != nil && mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}

// FindComment returns a single comment by ID using an $elemMatch projection.
func (r *MongoEngagementRepository) FindComment(ctx context.Context, postID, commentID string) (*models.Comment, error) {
	objID, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid post ID format", engagement.ErrInvalidInput)
	}
	commentOID, err := primitive.ObjectIDFromHex(commentID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid comment ID format", engagement.ErrInvalidInput)
	}

	filter := bson.M{"post_id": objID, "comments.id": commentOID}
	opts := options.FindOne().SetProjection(bson.M{
		"comments": bson.M{"$elemMatch": bson.M{"id": commentOID}},
	})

	var doc struct {
		Comments []models.Comment `bson:"comments"`
	}
	err = r.comments.FindOne(ctx, filter, opts).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, engagement.ErrNotFound
		}
		return nil, err
	}
	if len(doc.Comments) == 0 {
		return nil, engagement.ErrNotFound
	}
	return &doc.Comments[0], nil
}

// RemoveComment removes exactly the comment with commentID. The comments.id
// filter makes a missing comment a miss, not a silent success.
func (r *MongoEngagementRepository) RemoveComment(ctx context.Context, postID, commentID string) (int64, error) {
	objID, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid post ID format", engagement.ErrInvalidInput)
	}
	commentOID, err := primitive.ObjectIDFromHex(commentID)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid comment ID format", engagement.ErrInvalidInput)
	}

	filter := bson.M{"post_id": objID, "comments.id": commentOID}
	update := bson.M{
		"$pull": bson.M{"comments": bson.M{"id": commentOID}},
		"$inc":  bson.M{"count": -1},
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"count": 1})

	var list models.CommentList
	err = r.comments.FindOneAndUpdate(ctx, filter, update, opts).Decode(&list)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return 0, engagement.ErrNotFound
		}
		return 0, err
	}
	return list.Count, nil
}

// Comments returns the post's comments in insertion order.
func (r *MongoEngagementRepository) Comments(ctx context.Context, postID string) ([]models.Comment, int64, error) {
	objID, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: invalid post ID format", engagement.ErrInvalidInput)
	}

	var list models.CommentList
	err = r.comments.FindOne(ctx, bson.M{"post_id": objID}).Decode(&list)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return []models.Comment{}, 0, nil
		}
		return nil, 0, err
	}
	return list.Comments, list.Count, nil
}

// EngagementCounts batch-reads counts for a page of posts with two $in
// queries. Caller membership is projected with $elemMatch so the full users
// arrays never leave the database.
func (r *MongoEngagementRepository) EngagementCounts(ctx context.Context, postIDs []string, callerID string) (map[string]engagement.Counts, error) {
	out := make(map[string]engagement.Counts, len(postIDs))
	byOID := make(map[primitive.ObjectID]string, len(postIDs))
	ids := make([]primitive.ObjectID, 0, len(postIDs))
	for _, id := range postIDs {
		objID, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid post ID format", engagement.ErrInvalidInput)
		}
		ids = append(ids, objID)
		byOID[objID] = id
		out[id] = engagement.Counts{}
	}

	likeProjection := bson.M{"post_id": 1, "count": 1}
	if callerID != "" {
		likeProjection["users"] = bson.M{"$elemMatch": bson.M{"$eq": callerID}}
	}
	cursor, err := r.likes.Find(ctx, bson.M{"post_id": bson.M{"$in": ids}}, options.Find().SetProjection(likeProjection))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	for cursor.Next(ctx) {
		var set models.LikeSet
		if err := cursor.Decode(&set); err != nil {
			return nil, err
		}
		key, ok := byOID[set.PostID]
		if !ok {
			continue
		}
		c := out[key]
		c.LikeCount = set.Count
		c.LikedByCaller = len(set.Users) > 0
		out[key] = c
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	commentOpts := options.Find().SetProjection(bson.M{"post_id": 1, "count": 1})
	cursor, err = r.comments.Find(ctx, bson.M{"post_id": bson.M{"$in": ids}}, commentOpts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	for cursor.Next(ctx) {
		var list models.CommentList
		if err := cursor.Decode(&list); err != nil {
			return nil, err
		}
		key, ok := byOID[list.PostID]
		if !ok {
			continue
		}
		c := out[key]
		c.CommentCount = list.Count
		out[key] = c
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteAggregates removes a post's like and comment documents. Only the
// retention purger calls this, after the post itself is gone from reads.
func (r *MongoEngagementRepository) DeleteAggregates(ctx context.Context, postID string) error {
	objID, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return fmt.Errorf("%w: invalid post ID format", engagement.ErrInvalidInput)
	}
	if _, err := r.likes.DeleteOne(ctx, bson.M{"post_id": objID}); err != nil {
		return fmt.Errorf("delete like set: %w", err)
	}
	if _, err := r.comments.DeleteOne(ctx, bson.M{"post_id": objID}); err != nil {
		return fmt.Errorf("delete comment list: %w", err)
	}
	return nil
}

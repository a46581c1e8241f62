package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/cinematch/cinematch/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ActivityRepository struct {
	col *mongo.Collection
}

func NewActivityRepository(col *mongo.Collection) *ActivityRepository {
	return &ActivityRepository{col: col}
}

func (r *ActivityRepository) Insert(ctx context.Context, activity *models.Activity) error {
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now()
	}
	res, err := r.col.InsertOne(ctx, activity)
	if err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		activity.ID = id
	}
	return nil
}

func (r *ActivityRepository) find(ctx context.Context, filter bson.M, offset, limit int64) ([]models.Activity, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(offset).
		SetLimit(limit)

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find activities: %w", err)
	}
	defer cur.Close(ctx)

	activities := []models.Activity{}
	if err := cur.All(ctx, &activities); err != nil {
		return nil, fmt.Errorf("failed to decode activities: %w", err)
	}
	return activities, nil
}

func (r *ActivityRepository) Recent(ctx context.Context, limit int64) ([]models.Activity, error) {
	return r.find(ctx, bson.M{}, 0, limit)
}

// Feed pages through activities performed by any of actorIDs.
func (r *ActivityRepository) Feed(ctx context.Context, actorIDs []int64, offset, limit int64) ([]models.Activity, int64, error) {
	filter := bson.M{"actorId": bson.M{"$in": actorIDs}}
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count feed: %w", err)
	}
	activities, err := r.find(ctx, filter, offset, limit)
	return activities, total, err
}

func (r *ActivityRepository) Notifications(ctx context.Context, userID int64, unreadOnly bool, offset, limit int64) ([]models.Activity, int64, error) {
	filter := bson.M{"targetUserId": userID}
	if unreadOnly {
		filter["read"] = false
	}
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	activities, err := r.find(ctx, filter, offset, limit)
	return activities, total, err
}

// MarkRead flags one notification of userID as read and reports whether it
// matched.
func (r *ActivityRepository) MarkRead(ctx context.Context, id primitive.ObjectID, userID int64) (bool, error) {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "targetUserId": userID},
		bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return false, fmt.Errorf("failed to mark activity read: %w", err)
	}
	return res.MatchedCount > 0, nil
}

func (r *ActivityRepository) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	res, err := r.col.UpdateMany(ctx,
		bson.M{"targetUserId": userID, "read": false},
		bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return 0, fmt.Errorf("failed to mark activities read: %w", err)
	}
	return res.ModifiedCount, nil
}

// DeleteMatching removes activities produced by an action that was undone.
func (r *ActivityRepository) DeleteMatching(ctx context.Context, activityType models.ActivityType, actorID, targetUserID, movieID, logID int64) error {
	filter := bson.M{"type": activityType, "actorId": actorID}
	if targetUserID != 0 {
		filter["targetUserId"] = targetUserID
	}
	if movieID != 0 {
		filter["movieId"] = movieID
	}
	if logID != 0 {
		filter["logId"] = logID
	}
	if _, err := r.col.DeleteMany(ctx, filter); err != nil {
		return fmt.Errorf("failed to delete activities: %w", err)
	}
	return nil
}

// DeleteByUser removes everything a user did or was notified about.
func (r *ActivityRepository) DeleteByUser(ctx context.Context, userID int64) error {
	filter := bson.M{"$or": bson.A{bson.M{"actorId": userID}, bson.M{"targetUserId": userID}}}
	if _, err := r.col.DeleteMany(ctx, filter); err != nil {
		return fmt.Errorf("failed to delete user activities: %w", err)
	}
	return nil
}

// Watch opens a change stream over inserts and deletes, starting after
// resumeAfter when it is non-nil.
func (r *ActivityRepository) Watch(ctx context.Context, resumeAfter bson.Raw) (*mongo.ChangeStream, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"operationType": bson.M{"$in": bson.A{"insert", "delete"}}}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	if resumeAfter != nil {
		opts.SetResumeAfter(resumeAfter)
	}
	stream, err := r.col.Watch(ctx, pipeline, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to watch activities: %w", err)
	}
	return stream, nil
}

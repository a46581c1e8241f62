package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ActivityType string

const (
	ActivityWatched   ActivityType = "watched"
	ActivityWatchlist ActivityType = "watchlist"
	ActivityFollow    ActivityType = "follow"
	ActivityLike      ActivityType = "like"
)

// Activity is a feed event. Events with a TargetUserID double as that
// user's notifications.
type Activity struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Type          ActivityType       `bson:"type" json:"type"`
	ActorID       int64              `bson:"actorId" json:"actor_id"`
	ActorUsername string             `bson:"actorUsername" json:"actor_username"`
	TargetUserID  int64              `bson:"targetUserId,omitempty" json:"target_user_id,omitempty"`
	MovieID       int64              `bson:"movieId,omitempty" json:"movie_id,omitempty"`
	MovieTitle    string             `bson:"movieTitle,omitempty" json:"movie_title,omitempty"`
	LogID         int64              `bson:"logId,omitempty" json:"log_id,omitempty"`
	Rating        *float64           `bson:"rating,omitempty" json:"rating,omitempty"`
	Read          bool               `bson:"read" json:"read"`
	CreatedAt     time.Time          `bson:"createdAt" json:"created_at"`
}

type Recommendation struct {
	UserID          int64   `bson:"userId" json:"user_id"`
	Recommendations []int64 `bson:"recommendations" json:"recommendations"`
}

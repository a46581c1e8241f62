package services

import (
	"context"
	"time"

	"github.com/cinematch/cinematch/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// The interfaces below are the slices of the repositories each service
// uses. The concrete implementations live in internal/repository and
// pkg/cache.

type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	GetDel(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Incr(ctx context.Context, key string) (int64, error)
	Exists(ctx context.Context, keys ...string) (int64, error)
	Expire(ctx context.Context, key string, expiration time.Duration) error
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
}

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Taken(ctx context.Context, username, email string) (bool, error)
	Activate(ctx context.Context, username string) (bool, error)
	UpdatePassword(ctx context.Context, userID int64, hash string) error
	UpdateProfile(ctx context.Context, userID int64, fields map[string]interface{}) error
	Delete(ctx context.Context, userID int64) error
	List(ctx context.Context, offset, limit int) ([]models.User, int64, error)
	Search(ctx context.Context, query string, offset, limit int) ([]models.User, int64, error)
}

type FollowStore interface {
	Create(ctx context.Context, follow *models.Follow) error
	Delete(ctx context.Context, followerID, followedID int64) error
	IsFollowing(ctx context.Context, followerID, followedID int64) (bool, error)
	GetFollowers(ctx context.Context, userID int64) ([]models.User, error)
	GetFollowing(ctx context.Context, userID int64) ([]models.User, error)
	FollowedIDs(ctx context.Context, userID int64) ([]int64, error)
	Counts(ctx context.Context, userID int64) (int64, int64, error)
}

type LikeStore interface {
	Create(ctx context.Context, like *models.ReviewLike) error
	Delete(ctx context.Context, userID, reviewID int64) error
	IsLiked(ctx context.Context, userID, reviewID int64) (bool, error)
	Likers(ctx context.Context, reviewID int64) ([]models.User, error)
}

type MovieStore interface {
	ListRows(ctx context.Context, filter models.MovieFilter) ([]models.MovieRow, error)
	GetByID(ctx context.Context, id int64) (*models.Movie, error)
	Exists(ctx context.Context, id int64) (bool, error)
	Random(ctx context.Context, count int) ([]models.MovieRow, error)
	Similar(ctx context.Context, id int64, limit int) ([]models.MovieRow, error)
}

type MovieDocStore interface {
	Summaries(ctx context.Context, ids []int64) (map[int64]models.MovieDoc, error)
	Get(ctx context.Context, id int64) (*models.MovieDoc, error)
	SearchTitle(ctx context.Context, q string, limit int64) ([]models.MovieDoc, error)
}

type WatchLogStore interface {
	CreateConsumingWatchlist(ctx context.Context, log *models.WatchLog) error
	GetByID(ctx context.Context, id int64) (*models.WatchLog, error)
	GetEntry(ctx context.Context, id int64) (*models.LogEntry, error)
	Update(ctx context.Context, id int64, update models.LogUpdate) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, offset, limit int) ([]models.LogEntry, int64, error)
	ListByMovie(ctx context.Context, movieID int64, offset, limit int) ([]models.LogEntry, int64, error)
	ReviewsByMovie(ctx context.Context, movieID int64) ([]models.LogEntry, error)
	ReviewsByUser(ctx context.Context, userID int64, offset, limit int) ([]models.LogEntry, int64, error)
	WatchedByUser(ctx context.Context, userID int64, offset, limit int) ([]models.WatchLog, int64, error)
	CountDistinctMovies(ctx context.Context, userID int64) (int64, error)
	MovieStats(ctx context.Context, movieID int64) (*models.MovieLogStats, error)
	RatedByUser(ctx context.Context, userID int64) ([]models.WatchLog, error)
}

type FavoriteStore interface {
	AddCapped(ctx context.Context, fav *models.Favorite, limit int) error
	Delete(ctx context.Context, userID, movieID int64) error
	MovieIDs(ctx context.Context, userID int64) ([]int64, error)
	List(ctx context.Context) ([]models.Favorite, error)
}

type WatchlistStore interface {
	Add(ctx context.Context, entry *models.WatchlistEntry) error
	Delete(ctx context.Context, userID, movieID int64) error
	Contains(ctx context.Context, userID, movieID int64) (bool, error)
	MovieIDs(ctx context.Context, userID int64) ([]int64, error)
}

type ListStore interface {
	Create(ctx context.Context, list *models.MovieList) error
	GetByID(ctx context.Context, listID int64) (*models.MovieList, error)
	ListByUser(ctx context.Context, userID int64) ([]models.MovieList, error)
	Delete(ctx context.Context, listID int64) error
	AddItem(ctx context.Context, item *models.ListItem) error
	RemoveItem(ctx context.Context, listID, movieID int64) error
	MovieIDs(ctx context.Context, listID int64) ([]int64, error)
}

type ActivityStore interface {
	Insert(ctx context.Context, activity *models.Activity) error
	Recent(ctx context.Context, limit int64) ([]models.Activity, error)
	Feed(ctx context.Context, actorIDs []int64, offset, limit int64) ([]models.Activity, int64, error)
	Notifications(ctx context.Context, userID int64, unreadOnly bool, offset, limit int64) ([]models.Activity, int64, error)
	MarkRead(ctx context.Context, id primitive.ObjectID, userID int64) (bool, error)
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
	DeleteMatching(ctx context.Context, activityType models.ActivityType, actorID, targetUserID, movieID, logID int64) error
	DeleteByUser(ctx context.Context, userID int64) error
}

type RecommendationStore interface {
	AddAll(ctx context.Context, userID int64, movieIDs []int64) error
	Get(ctx context.Context, userID int64) ([]int64, error)
}

// MovieSummarizer merges catalog rows for a set of ids; MovieService
// implements it.
type MovieSummarizer interface {
	Summaries(ctx context.Context, ids []int64) ([]models.MovieSummary, error)
}

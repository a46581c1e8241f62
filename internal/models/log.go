package models

import (
	"time"
)

type WatchLog struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	MovieID   int64     `json:"movie_id" gorm:"not null;index"`
	UserID    int64     `json:"user_id" gorm:"not null;index"`
	WatchedOn time.Time `json:"watched_on" gorm:"type:date;not null"`
	Rating    *float64  `json:"rating" gorm:"type:numeric(2,1)"`
	Review    *string   `json:"review"`
	CreatedAt time.Time `json:"created_at"`

	User  *User  `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Movie *Movie `json:"-" gorm:"foreignKey:MovieID;constraint:OnDelete:CASCADE"`
}

func (WatchLog) TableName() string {
	return "logs"
}

// LogEntry is a watch log joined with its author and movie title.
type LogEntry struct {
	WatchLog
	Username       string `json:"username"`
	ProfilePicture string `json:"profile_picture"`
	Title          string `json:"title"`
	LikesCount     int64  `json:"likes_count"`
}

// LogUpdate carries the only mutable fields of a log. Nil means unchanged.
type LogUpdate struct {
	WatchedOn *time.Time
	Rating    *float64
	Review    *string
}

// MovieLogStats is the aggregated activity for a single movie.
type MovieLogStats struct {
	MovieID        int64    `json:"movie_id"`
	WatchlistUsers int64    `json:"total_watchlist_users"`
	Logs           int64    `json:"total_logs"`
	Reviews        int64    `json:"total_reviews"`
	Ratings        int64    `json:"total_ratings"`
	AverageRating  *float64 `json:"average_rating"`
	MaxRating      *float64 `json:"max_rating"`
	MinRating      *float64 `json:"min_rating"`
}

// UserWatchSummary reports how many distinct movies a user has logged and
// the most recent ones.
type UserWatchSummary struct {
	UniqueMovies int64          `json:"unique_movies_watched"`
	Recent       []MovieSummary `json:"last_four"`
}

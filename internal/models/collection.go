package models

import (
	"time"
)

const MaxFavorites = 4

type Favorite struct {
	UserID    int64     `json:"user_id" gorm:"primaryKey;autoIncrement:false"`
	MovieID   int64     `json:"movie_id" gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time `json:"created_at"`

	User  *User  `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Movie *Movie `json:"-" gorm:"foreignKey:MovieID;constraint:OnDelete:CASCADE"`
}

type WatchlistEntry struct {
	UserID    int64     `json:"user_id" gorm:"primaryKey;autoIncrement:false"`
	MovieID   int64     `json:"movie_id" gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt time.Time `json:"created_at"`

	User  *User  `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Movie *Movie `json:"-" gorm:"foreignKey:MovieID;constraint:OnDelete:CASCADE"`
}

type MovieList struct {
	ID          int64     `json:"id" gorm:"primaryKey"`
	UserID      int64     `json:"user_id" gorm:"not null;index"`
	ListName    string    `json:"list_name" gorm:"not null"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`

	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

type ListItem struct {
	ListID  int64     `json:"list_id" gorm:"primaryKey;autoIncrement:false"`
	MovieID int64     `json:"movie_id" gorm:"primaryKey;autoIncrement:false"`
	AddedAt time.Time `json:"added_at" gorm:"autoCreateTime"`

	List  *MovieList `json:"-" gorm:"foreignKey:ListID;constraint:OnDelete:CASCADE"`
	Movie *Movie     `json:"-" gorm:"foreignKey:MovieID;constraint:OnDelete:CASCADE"`
}

func (Favorite) TableName() string {
	return "favorites"
}

func (WatchlistEntry) TableName() string {
	return "watchlists"
}

func (MovieList) TableName() string {
	return "user_movie_lists"
}

func (ListItem) TableName() string {
	return "movie_list_items"
}

// ListWithMovies is a list plus the merged movies it contains.
type ListWithMovies struct {
	MovieList
	Movies []MovieSummary `json:"movies"`
}

package models

import (
	"time"
)

type Movie struct {
	ID               int64      `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Title            string     `json:"title" gorm:"not null;index"`
	OriginalTitle    string     `json:"original_title"`
	Overview         string     `json:"overview"`
	BackdropPath     string     `json:"backdrop_path"`
	ReleaseDate      *time.Time `json:"release_date" gorm:"type:date;index"`
	OriginalLanguage string     `json:"original_language"`
	Runtime          int        `json:"runtime"`
	Budget           int64      `json:"budget"`
	Revenue          int64      `json:"revenue"`
	Status           string     `json:"status"`
	Genres           []Genre    `json:"genres,omitempty" gorm:"many2many:movie_genres;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type Genre struct {
	ID   int64  `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Name string `json:"name" gorm:"uniqueIndex;not null"`
}

func (Movie) TableName() string {
	return "movies"
}

func (Genre) TableName() string {
	return "genres"
}

// MovieRow is the relational half of a movie as read by list queries.
type MovieRow struct {
	ID          int64
	Title       string
	Overview    string
	ReleaseDate *time.Time
	Genres      []string
	// Overlap is the number of genres shared with a reference movie, set
	// only by similarity queries.
	Overlap int
}

// MovieDoc holds the volatile catalog fields kept in the document store.
type MovieDoc struct {
	ID          int64        `bson:"id" json:"id"`
	Title       string       `bson:"title" json:"title"`
	Popularity  float64      `bson:"popularity" json:"popularity"`
	VoteAverage float64      `bson:"voteAverage" json:"vote_average"`
	VoteCount   int64        `bson:"voteCount" json:"vote_count"`
	PosterPath  string       `bson:"posterPath" json:"poster_path"`
	Cast        []CastMember `bson:"cast,omitempty" json:"cast,omitempty"`
	UpdatedAt   time.Time    `bson:"updatedAt" json:"updated_at"`
}

type CastMember struct {
	ID          int64  `bson:"id" json:"id"`
	Name        string `bson:"name" json:"name"`
	Character   string `bson:"character" json:"character"`
	ProfilePath string `bson:"profilePath" json:"profile_path"`
	Order       int    `bson:"order" json:"order"`
}

// MovieSummary is a movie row merged with its enrichment fields.
type MovieSummary struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Overview    string     `json:"overview"`
	ReleaseDate *time.Time `json:"release_date"`
	Genres      []string   `json:"genres"`
	Popularity  float64    `json:"popularity"`
	VoteAverage float64    `json:"vote_average"`
	VoteCount   int64      `json:"vote_count"`
	PosterPath  string     `json:"poster_path"`
}

type MovieDetail struct {
	Movie
	Genres      []string     `json:"genres"`
	Popularity  float64      `json:"popularity"`
	VoteAverage float64      `json:"vote_average"`
	VoteCount   int64        `json:"vote_count"`
	PosterPath  string       `json:"poster_path"`
	Cast        []CastMember `json:"cast"`
}

// MovieFilter narrows list queries. Zero values mean no constraint.
type MovieFilter struct {
	DecadeStart int
	Genre       string
	IDs         []int64
}

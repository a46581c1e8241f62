package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cinematch/cinematch/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MovieRepository struct {
	db *gorm.DB
}

func NewMovieRepository(db *gorm.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

type movieRowScan struct {
	ID          int64
	Title       string
	Overview    string
	ReleaseDate *time.Time
	GenreNames  string
	Overlap     int
}

func (s movieRowScan) toRow() models.MovieRow {
	row := models.MovieRow{
		ID:          s.ID,
		Title:       s.Title,
		Overview:    s.Overview,
		ReleaseDate: s.ReleaseDate,
		Genres:      []string{},
		Overlap:     s.Overlap,
	}
	if s.GenreNames != "" {
		row.Genres = strings.Split(s.GenreNames, ",")
	}
	return row
}

func (r *MovieRepository) rowQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("movies").
		Select("movies.id, movies.title, movies.overview, movies.release_date, " +
			"COALESCE(string_agg(genres.name, ',' ORDER BY genres.name), '') AS genre_names").
		Joins("LEFT JOIN movie_genres ON movie_genres.movie_id = movies.id").
		Joins("LEFT JOIN genres ON genres.id = movie_genres.genre_id").
		Group("movies.id")
}

func scanRows(db *gorm.DB) ([]models.MovieRow, error) {
	var scanned []movieRowScan
	if err := db.Scan(&scanned).Error; err != nil {
		return nil, err
	}
	rows := make([]models.MovieRow, len(scanned))
	for i, s := range scanned {
		rows[i] = s.toRow()
	}
	return rows, nil
}

// ListRows returns every movie matching filter with its genre names.
func (r *MovieRepository) ListRows(ctx context.Context, filter models.MovieFilter) ([]models.MovieRow, error) {
	db := r.rowQuery(ctx)

	if filter.DecadeStart > 0 {
		from := time.Date(filter.DecadeStart, time.January, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(filter.DecadeStart+9, time.December, 31, 0, 0, 0, 0, time.UTC)
		db = db.Where("movies.release_date BETWEEN ? AND ?", from, to)
	}

	if filter.Genre != "" {
		sub := r.db.Table("movie_genres").
			Select("movie_genres.movie_id").
			Joins("JOIN genres g ON g.id = movie_genres.genre_id").
			Where("g.name = ?", filter.Genre)
		db = db.Where("movies.id IN (?)", sub)
	}

	if filter.IDs != nil {
		db = db.Where("movies.id IN ?", filter.IDs)
	}

	rows, err := scanRows(db)
	if err != nil {
		return nil, fmt.Errorf("failed to list movies: %w", err)
	}
	return rows, nil
}

func (r *MovieRepository) GetByID(ctx context.Context, id int64) (*models.Movie, error) {
	var movie models.Movie
	if err := r.db.WithContext(ctx).Preload("Genres").First(&movie, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get movie: %w", err)
	}
	return &movie, nil
}

func (r *MovieRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Movie{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check movie: %w", err)
	}
	return count > 0, nil
}

func (r *MovieRepository) Random(ctx context.Context, count int) ([]models.MovieRow, error) {
	rows, err := scanRows(r.rowQuery(ctx).Order("random()").Limit(count))
	if err != nil {
		return nil, fmt.Errorf("failed to sample movies: %w", err)
	}
	return rows, nil
}

// Similar returns movies sharing at least one genre with id, ordered by the
// number of shared genres.
func (r *MovieRepository) Similar(ctx context.Context, id int64, limit int) ([]models.MovieRow, error) {
	db := r.rowQuery(ctx).
		Select("movies.id, movies.title, movies.overview, movies.release_date, "+
			"COALESCE(string_agg(genres.name, ',' ORDER BY genres.name), '') AS genre_names, "+
			"COUNT(genres.id) FILTER (WHERE genres.id IN (SELECT genre_id FROM movie_genres WHERE movie_id = ?)) AS overlap", id).
		Where("movies.id <> ?", id).
		Having("COUNT(genres.id) FILTER (WHERE genres.id IN (SELECT genre_id FROM movie_genres WHERE movie_id = ?)) > 0", id).
		Order("overlap DESC").
		Limit(limit)

	rows, err := scanRows(db)
	if err != nil {
		return nil, fmt.Errorf("failed to get similar movies: %w", err)
	}
	return rows, nil
}

// Upsert writes a movie and its genres in one transaction.
func (r *MovieRepository) Upsert(ctx context.Context, movie *models.Movie) error {
	genres := movie.Genres
	movie.Genres = nil

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title", "original_title", "overview", "backdrop_path", "release_date",
				"original_language", "runtime", "budget", "revenue", "status", "updated_at",
			}),
		}).Create(movie).Error; err != nil {
			return err
		}

		if len(genres) == 0 {
			return nil
		}

		// Genre rows are shared across concurrent upserts and are always
		// locked in id order.
		sorted := append([]models.Genre(nil), genres...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&sorted).Error; err != nil {
			return err
		}

		links := make([]map[string]interface{}, len(genres))
		for i, g := range genres {
			links[i] = map[string]interface{}{"movie_id": movie.ID, "genre_id": g.ID}
		}
		return tx.Table("movie_genres").Clauses(clause.OnConflict{DoNothing: true}).Create(links).Error
	})
	movie.Genres = genres
	if err != nil {
		return fmt.Errorf("failed to upsert movie %d: %w", movie.ID, err)
	}
	return nil
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/cinematch/cinematch/internal/models"
	"gorm.io/gorm"
)

const logEntryColumns = "logs.*, users.username, users.profile_picture, movies.title, " +
	"(SELECT COUNT(*) FROM review_likes WHERE review_likes.review_id = logs.id) AS likes_count"

const hasReview = "logs.review IS NOT NULL AND logs.review <> ''"

type WatchLogRepository struct {
	db *gorm.DB
}

func NewWatchLogRepository(db *gorm.DB) *WatchLogRepository {
	return &WatchLogRepository{db: db}
}

// CreateConsumingWatchlist inserts log and removes the matching watchlist
// entry in one transaction.
func (r *WatchLogRepository) CreateConsumingWatchlist(ctx context.Context, log *models.WatchLog) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(log).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ? AND movie_id = ?", log.UserID, log.MovieID).
			Delete(&models.WatchlistEntry{}).Error
	})
	if err != nil {
		return fmt.Errorf("failed to create log: %w", err)
	}
	return nil
}

func (r *WatchLogRepository) GetByID(ctx context.Context, id int64) (*models.WatchLog, error) {
	var log models.WatchLog
	if err := r.db.WithContext(ctx).First(&log, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get log: %w", err)
	}
	return &log, nil
}

func (r *WatchLogRepository) GetEntry(ctx context.Context, id int64) (*models.LogEntry, error) {
	var entries []models.LogEntry
	if err := r.entries(ctx).Where("logs.id = ?", id).Limit(1).Scan(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to get log: %w", err)
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

func (r *WatchLogRepository) Update(ctx context.Context, id int64, update models.LogUpdate) error {
	fields := map[string]interface{}{}
	if update.WatchedOn != nil {
		fields["watched_on"] = *update.WatchedOn
	}
	if update.Rating != nil {
		fields["rating"] = *update.Rating
	}
	if update.Review != nil {
		fields["review"] = *update.Review
	}
	if len(fields) == 0 {
		return nil
	}

	if err := r.db.WithContext(ctx).Model(&models.WatchLog{}).Where("id = ?", id).Updates(fields).Error; err != nil {
		return fmt.Errorf("failed to update log: %w", err)
	}
	return nil
}

func (r *WatchLogRepository) Delete(ctx context.Context, id int64) error {
	if err := r.db.WithContext(ctx).Delete(&models.WatchLog{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete log: %w", err)
	}
	return nil
}

func (r *WatchLogRepository) joined(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("logs").
		Joins("JOIN users ON users.id = logs.user_id").
		Joins("JOIN movies ON movies.id = logs.movie_id")
}

func (r *WatchLogRepository) entries(ctx context.Context) *gorm.DB {
	return r.joined(ctx).Select(logEntryColumns)
}

func (r *WatchLogRepository) pageEntries(db *gorm.DB, offset, limit int) ([]models.LogEntry, int64, error) {
	db = db.Session(&gorm.Session{})

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.LogEntry
	if err := db.Select(logEntryColumns).
		Order("logs.watched_on DESC, logs.id DESC").
		Offset(offset).Limit(limit).
		Scan(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *WatchLogRepository) List(ctx context.Context, offset, limit int) ([]models.LogEntry, int64, error) {
	entries, total, err := r.pageEntries(r.joined(ctx), offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list logs: %w", err)
	}
	return entries, total, nil
}

func (r *WatchLogRepository) ListByMovie(ctx context.Context, movieID int64, offset, limit int) ([]models.LogEntry, int64, error) {
	entries, total, err := r.pageEntries(r.joined(ctx).Where("logs.movie_id = ?", movieID), offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list logs for movie: %w", err)
	}
	return entries, total, nil
}

func (r *WatchLogRepository) ReviewsByMovie(ctx context.Context, movieID int64) ([]models.LogEntry, error) {
	var entries []models.LogEntry
	if err := r.entries(ctx).
		Where("logs.movie_id = ?", movieID).
		Where(hasReview).
		Order("logs.created_at DESC").
		Scan(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return entries, nil
}

func (r *WatchLogRepository) ReviewsByUser(ctx context.Context, userID int64, offset, limit int) ([]models.LogEntry, int64, error) {
	db := r.joined(ctx).Where("logs.user_id = ?", userID).Where(hasReview)
	entries, total, err := r.pageEntries(db, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list user reviews: %w", err)
	}
	return entries, total, nil
}

// WatchedByUser returns the latest log per distinct movie, newest first.
func (r *WatchLogRepository) WatchedByUser(ctx context.Context, userID int64, offset, limit int) ([]models.WatchLog, int64, error) {
	total, err := r.CountDistinctMovies(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	var logs []models.WatchLog
	if err := r.db.WithContext(ctx).Raw(`
		SELECT * FROM (
			SELECT DISTINCT ON (movie_id) * FROM logs
			WHERE user_id = ?
			ORDER BY movie_id, watched_on DESC, id DESC
		) latest
		ORDER BY watched_on DESC, id DESC
		LIMIT ? OFFSET ?`, userID, limit, offset).Scan(&logs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list watched movies: %w", err)
	}
	return logs, total, nil
}

func (r *WatchLogRepository) CountDistinctMovies(ctx context.Context, userID int64) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.WatchLog{}).
		Where("user_id = ?", userID).
		Distinct("movie_id").
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count watched movies: %w", err)
	}
	return count, nil
}

// MovieStats aggregates the watch activity of one movie.
func (r *WatchLogRepository) MovieStats(ctx context.Context, movieID int64) (*models.MovieLogStats, error) {
	stats := models.MovieLogStats{MovieID: movieID}
	if err := r.db.WithContext(ctx).Raw(`
		SELECT
			(SELECT COUNT(*) FROM watchlists WHERE movie_id = @id) AS watchlist_users,
			COUNT(*) AS logs,
			COUNT(*) FILTER (WHERE review IS NOT NULL AND review <> '') AS reviews,
			COUNT(rating) AS ratings,
			AVG(rating)::float8 AS average_rating,
			MAX(rating)::float8 AS max_rating,
			MIN(rating)::float8 AS min_rating
		FROM logs WHERE movie_id = @id`,
		map[string]interface{}{"id": movieID}).Scan(&stats).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate movie logs: %w", err)
	}
	stats.MovieID = movieID
	return &stats, nil
}

// RatedByUser returns every rated log of a user.
func (r *WatchLogRepository) RatedByUser(ctx context.Context, userID int64) ([]models.WatchLog, error) {
	var logs []models.WatchLog
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND rating IS NOT NULL", userID).
		Order("watched_on DESC").
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to list rated logs: %w", err)
	}
	return logs, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/cinematch/cinematch/internal/models"
	"github.com/cinematch/cinematch/pkg/apperror"
	"github.com/cinematch/cinematch/pkg/cache"
	"github.com/cinematch/cinematch/pkg/logger"
	"github.com/cinematch/cinematch/pkg/queue"
)

const (
	recentWatchedLimit = 4
	dateLayout         = "2006-01-02"
)

// MovieStatsKey is the cache key of a movie's aggregated log stats.
func MovieStatsKey(movieID int64) string {
	return "logs:stats:" + strconv.FormatInt(movieID, 10)
}

type LogService struct {
	logs      WatchLogStore
	users     UserStore
	movies    MovieStore
	summaries MovieSummarizer
	activity  *ActivityService
	cache     Cache
	events    EventPublisher
	statsTTL  time.Duration
	logger    *logger.Logger
}

func NewLogService(logs WatchLogStore, users UserStore, movies MovieStore, summaries MovieSummarizer, activity *ActivityService, cache Cache, events EventPublisher, statsTTL time.Duration, logger *logger.Logger) *LogService {
	return &LogService{
		logs:      logs,
		users:     users,
		movies:    movies,
		summaries: summaries,
		activity:  activity,
		cache:     cache,
		events:    events,
		statsTTL:  statsTTL,
		logger:    logger,
	}
}

type CreateLogRequest struct {
	MovieID   int64    `json:"movie_id" binding:"required"`
	WatchedOn string   `json:"watched_on"`
	Rating    *float64 `json:"rating"`
	Review    *string  `json:"review"`
}

type UpdateLogRequest struct {
	WatchedOn *string  `json:"watched_on"`
	Rating    *float64 `json:"rating"`
	Review    *string  `json:"review"`
}

// ValidRating accepts 0.5 to 5.0 in half-point steps.
func ValidRating(r float64) bool {
	if r < 0.5 || r > 5 {
		return false
	}
	doubled := r * 2
	return doubled == math.Trunc(doubled)
}

func parseWatchedOn(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now().UTC().Truncate(24 * time.Hour), nil
	}
	date, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, apperror.BadRequest("watched_on must be a YYYY-MM-DD date")
	}
	return date, nil
}

// Create records a watch. The matching watchlist entry, if any, is removed
// in the same transaction.
func (s *LogService) Create(ctx context.Context, userID int64, req *CreateLogRequest) (*models.WatchLog, error) {
	if req.Rating != nil && !ValidRating(*req.Rating) {
		return nil, apperror.BadRequest("Rating must be between 0.5 and 5 in steps of 0.5")
	}
	watchedOn, err := parseWatchedOn(req.WatchedOn)
	if err != nil {
		return nil, err
	}

	movie, err := s.movies.GetByID(ctx, req.MovieID)
	if err != nil {
		return nil, fmt.Errorf("failed to get movie: %w", err)
	}
	if movie == nil {
		return nil, apperror.NotFound("Movie not found")
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, apperror.NotFound("User not found")
	}

	log := &models.WatchLog{
		MovieID:   req.MovieID,
		UserID:    userID,
		WatchedOn: watchedOn,
		Rating:    req.Rating,
		Review:    req.Review,
	}
	if err := s.logs.CreateConsumingWatchlist(ctx, log); err != nil {
		return nil, err
	}

	s.activity.Record(ctx, &models.Activity{
		Type:          models.ActivityWatched,
		ActorID:       userID,
		ActorUsername: user.Username,
		MovieID:       movie.ID,
		MovieTitle:    movie.Title,
		LogID:         log.ID,
		Rating:        log.Rating,
		CreatedAt:     time.Now(),
	})
	publishEvent(ctx, s.events, s.logger, queue.EventLogCreated, userID, queue.LogEventData{
		LogID:   log.ID,
		UserID:  userID,
		MovieID: log.MovieID,
	})

	s.logger.WithFields(map[string]interface{}{
		"log_id":   log.ID,
		"user_id":  userID,
		"movie_id": log.MovieID,
	}).Info("Watch log created")
	return log, nil
}

func (s *LogService) Get(ctx context.Context, id int64) (*models.LogEntry, error) {
	entry, err := s.logs.GetEntry(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get log: %w", err)
	}
	if entry == nil {
		return nil, apperror.NotFound("Log not found")
	}
	return entry, nil
}

func (s *LogService) List(ctx context.Context, page, limit int) (*models.Page[models.LogEntry], error) {
	if err := validatePage(page, limit); err != nil {
		return nil, err
	}
	entries, total, err := s.logs.List(ctx, models.Offset(page, limit), limit)
	if err != nil {
		return nil, err
	}
	return entryPage(entries, page, limit, total), nil
}

func (s *LogService) ListByMovie(ctx context.Context, movieID int64, page, limit int) (*models.Page[models.LogEntry], error) {
	if err := validatePage(page, limit); err != nil {
		return nil, err
	}
	entries, total, err := s.logs.ListByMovie(ctx, movieID, models.Offset(page, limit), limit)
	if err != nil {
		return nil, err
	}
	return entryPage(entries, page, limit, total), nil
}

func (s *LogService) ReviewsByMovie(ctx context.Context, movieID int64) ([]models.LogEntry, error) {
	entries, err := s.logs.ReviewsByMovie(ctx, movieID)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.LogEntry{}
	}
	return entries, nil
}

func (s *LogService) ReviewsByUser(ctx context.Context, userID int64, page, limit int) (*models.Page[models.LogEntry], error) {
	if err := validatePage(page, limit); err != nil {
		return nil, err
	}
	entries, total, err := s.logs.ReviewsByUser(ctx, userID, models.Offset(page, limit), limit)
	if err != nil {
		return nil, err
	}
	return entryPage(entries, page, limit, total), nil
}

// Watched pages through the latest log of each movie the user has seen.
func (s *LogService) Watched(ctx context.Context, userID int64, page, limit int) (*models.Page[models.WatchLog], error) {
	if err := validatePage(page, limit); err != nil {
		return nil, err
	}
	logs, total, err := s.logs.WatchedByUser(ctx, userID, models.Offset(page, limit), limit)
	if err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []models.WatchLog{}
	}
	return &models.Page[models.WatchLog]{Data: logs, Pagination: models.NewPagination(page, limit, total)}, nil
}

// UserSummary counts the distinct movies a user has logged and returns the
// most recent ones with their posters.
func (s *LogService) UserSummary(ctx context.Context, userID int64) (*models.UserWatchSummary, error) {
	latest, total, err := s.logs.WatchedByUser(ctx, userID, 0, recentWatchedLimit)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(latest))
	for i, l := range latest {
		ids[i] = l.MovieID
	}
	recent, err := s.summaries.Summaries(ctx, ids)
	if err != nil {
		return nil, err
	}
	return &models.UserWatchSummary{UniqueMovies: total, Recent: recent}, nil
}

// MovieStats is served from cache; the event worker drops the key whenever
// a log of the movie changes.
func (s *LogService) MovieStats(ctx context.Context, movieID int64) (*models.MovieLogStats, error) {
	key := MovieStatsKey(movieID)

	var cached models.MovieLogStats
	if err := s.cache.GetJSON(ctx, key, &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.WithError(err).Warn("Failed to read movie stats cache")
	}

	stats, err := s.logs.MovieStats(ctx, movieID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetJSON(ctx, key, stats, s.statsTTL); err != nil {
		s.logger.WithError(err).Warn("Failed to write movie stats cache")
	}
	return stats, nil
}

// Update changes the date, rating or review of the caller's own log.
func (s *LogService) Update(ctx context.Context, userID, logID int64, req *UpdateLogRequest) (*models.LogEntry, error) {
	log, err := s.owned(ctx, userID, logID)
	if err != nil {
		return nil, err
	}

	update := models.LogUpdate{Rating: req.Rating, Review: req.Review}
	if req.Rating != nil && !ValidRating(*req.Rating) {
		return nil, apperror.BadRequest("Rating must be between 0.5 and 5 in steps of 0.5")
	}
	if req.WatchedOn != nil {
		date, err := parseWatchedOn(*req.WatchedOn)
		if err != nil {
			return nil, err
		}
		update.WatchedOn = &date
	}
	if update.WatchedOn == nil && update.Rating == nil && update.Review == nil {
		return nil, apperror.BadRequest("No fields to update")
	}

	if err := s.logs.Update(ctx, logID, update); err != nil {
		return nil, err
	}
	publishEvent(ctx, s.events, s.logger, queue.EventLogUpdated, userID, queue.LogEventData{
		LogID:   logID,
		UserID:  userID,
		MovieID: log.MovieID,
	})
	return s.Get(ctx, logID)
}

func (s *LogService) Delete(ctx context.Context, userID, logID int64) error {
	log, err := s.owned(ctx, userID, logID)
	if err != nil {
		return err
	}
	if err := s.logs.Delete(ctx, logID); err != nil {
		return err
	}

	s.activity.Retract(ctx, models.ActivityWatched, userID, 0, log.MovieID, logID)
	publishEvent(ctx, s.events, s.logger, queue.EventLogDeleted, userID, queue.LogEventData{
		LogID:   logID,
		UserID:  userID,
		MovieID: log.MovieID,
	})
	return nil
}

func (s *LogService) owned(ctx context.Context, userID, logID int64) (*models.WatchLog, error) {
	log, err := s.logs.GetByID(ctx, logID)
	if err != nil {
		return nil, fmt.Errorf("failed to get log: %w", err)
	}
	if log == nil {
		return nil, apperror.NotFound("Log not found")
	}
	if log.UserID != userID {
		return nil, apperror.Forbidden("You can only modify your own logs")
	}
	return log, nil
}

func entryPage(entries []models.LogEntry, page, limit int, total int64) *models.Page[models.LogEntry] {
	if entries == nil {
		entries = []models.LogEntry{}
	}
	return &models.Page[models.LogEntry]{Data: entries, Pagination: models.NewPagination(page, limit, total)}
}

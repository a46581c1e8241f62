package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cinematch/cinematch/internal/models"
	"github.com/cinematch/cinematch/internal/repository"
	"github.com/cinematch/cinematch/pkg/apperror"
	"github.com/cinematch/cinematch/pkg/logger"
	"github.com/cinematch/cinematch/pkg/queue"
)

type FavoriteRequest struct {
	UserID  int64 `json:"userId" binding:"required"`
	MovieID int64 `json:"movieId" binding:"required"`
}

type WatchlistRequest struct {
	MovieID int64 `json:"movieId" binding:"required"`
}

type CreateListRequest struct {
	ListName    string `json:"listName" binding:"required,max=100"`
	Description string `json:"description" binding:"max=1000"`
}

type ListItemRequest struct {
	MovieID int64 `json:"movieId" binding:"required"`
}

func requireMovie(ctx context.Context, movies MovieStore, movieID int64) error {
	exists, err := movies.Exists(ctx, movieID)
	if err != nil {
		return fmt.Errorf("failed to get movie: %w", err)
	}
	if !exists {
		return apperror.NotFound("Movie not found")
	}
	return nil
}

type FavoriteService struct {
	favorites FavoriteStore
	movies    MovieStore
	summaries MovieSummarizer
	logger    *logger.Logger
}

func NewFavoriteService(favorites FavoriteStore, movies MovieStore, summaries MovieSummarizer, logger *logger.Logger) *FavoriteService {
	return &FavoriteService{
		favorites: favorites,
		movies:    movies,
		summaries: summaries,
		logger:    logger,
	}
}

func (s *FavoriteService) All(ctx context.Context) ([]models.Favorite, error) {
	favorites, err := s.favorites.List(ctx)
	if err != nil {
		return nil, err
	}
	if favorites == nil {
		favorites = []models.Favorite{}
	}
	return favorites, nil
}

func (s *FavoriteService) ForUser(ctx context.Context, userID int64) ([]models.MovieSummary, error) {
	ids, err := s.favorites.MovieIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.summaries.Summaries(ctx, ids)
}

// Add enforces the favorites cap. A rejected add leaves the set unchanged.
func (s *FavoriteService) Add(ctx context.Context, req *FavoriteRequest) error {
	if err := requireMovie(ctx, s.movies, req.MovieID); err != nil {
		return err
	}

	err := s.favorites.AddCapped(ctx, &models.Favorite{UserID: req.UserID, MovieID: req.MovieID}, models.MaxFavorites)
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return apperror.BadRequest("This movie is already in your favorites.")
	case errors.Is(err, repository.ErrLimitReached):
		return apperror.BadRequest("You can only have up to four favorites.")
	case errors.Is(err, repository.ErrNotFound):
		return apperror.NotFound("User not found")
	case err != nil:
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id":  req.UserID,
		"movie_id": req.MovieID,
	}).Info("Favorite added")
	return nil
}

func (s *FavoriteService) Remove(ctx context.Context, userID, movieID int64) error {
	if err := s.favorites.Delete(ctx, userID, movieID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NotFound("Favorite not found")
		}
		return err
	}
	return nil
}

type WatchlistService struct {
	watchlists WatchlistStore
	movies     MovieStore
	users      UserStore
	summaries  MovieSummarizer
	activity   *ActivityService
	events     EventPublisher
	logger     *logger.Logger
}

func NewWatchlistService(watchlists WatchlistStore, movies MovieStore, users UserStore, summaries MovieSummarizer, activity *ActivityService, events EventPublisher, logger *logger.Logger) *WatchlistService {
	return &WatchlistService{
		watchlists: watchlists,
		movies:     movies,
		users:      users,
		summaries:  summaries,
		activity:   activity,
		events:     events,
		logger:     logger,
	}
}

func (s *WatchlistService) Movies(ctx context.Context, userID int64) ([]models.MovieSummary, error) {
	ids, err := s.watchlists.MovieIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.summaries.Summaries(ctx, ids)
}

func (s *WatchlistService) Contains(ctx context.Context, userID, movieID int64) (bool, error) {
	return s.watchlists.Contains(ctx, userID, movieID)
}

func (s *WatchlistService) Add(ctx context.Context, userID, movieID int64) error {
	movie, err := s.movies.GetByID(ctx, movieID)
	if err != nil {
		return fmt.Errorf("failed to get movie: %w", err)
	}
	if movie == nil {
		return apperror.NotFound("Movie not found")
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return apperror.NotFound("User not found")
	}

	if err := s.watchlists.Add(ctx, &models.WatchlistEntry{UserID: userID, MovieID: movieID}); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return apperror.BadRequest("This movie is already in your watchlist.")
		}
		return err
	}

	s.activity.Record(ctx, &models.Activity{
		Type:          models.ActivityWatchlist,
		ActorID:       userID,
		ActorUsername: user.Username,
		MovieID:       movie.ID,
		MovieTitle:    movie.Title,
		CreatedAt:     time.Now(),
	})
	publishEvent(ctx, s.events, s.logger, queue.EventWatchlistAdded, userID, queue.WatchlistEventData{
		UserID:  userID,
		MovieID: movieID,
	})
	return nil
}

func (s *WatchlistService) Remove(ctx context.Context, userID, movieID int64) error {
	if err := s.watchlists.Delete(ctx, userID, movieID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NotFound("Movie not in watchlist")
		}
		return err
	}
	s.activity.Retract(ctx, models.ActivityWatchlist, userID, 0, movieID, 0)
	publishEvent(ctx, s.events, s.logger, queue.EventWatchlistRemoved, userID, queue.WatchlistEventData{
		UserID:  userID,
		MovieID: movieID,
	})
	return nil
}

type ListService struct {
	lists     ListStore
	movies    MovieStore
	summaries MovieSummarizer
	logger    *logger.Logger
}

func NewListService(lists ListStore, movies MovieStore, summaries MovieSummarizer, logger *logger.Logger) *ListService {
	return &ListService{
		lists:     lists,
		movies:    movies,
		summaries: summaries,
		logger:    logger,
	}
}

func (s *ListService) ByUser(ctx context.Context, userID int64) ([]models.MovieList, error) {
	lists, err := s.lists.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if lists == nil {
		lists = []models.MovieList{}
	}
	return lists, nil
}

func (s *ListService) Get(ctx context.Context, userID, listID int64) (*models.ListWithMovies, error) {
	list, err := s.owned(ctx, userID, listID)
	if err != nil {
		return nil, err
	}
	ids, err := s.lists.MovieIDs(ctx, listID)
	if err != nil {
		return nil, err
	}
	movies, err := s.summaries.Summaries(ctx, ids)
	if err != nil {
		return nil, err
	}
	return &models.ListWithMovies{MovieList: *list, Movies: movies}, nil
}

func (s *ListService) Create(ctx context.Context, userID int64, req *CreateListRequest) (*models.MovieList, error) {
	list := &models.MovieList{
		UserID:      userID,
		ListName:    req.ListName,
		Description: req.Description,
	}
	if err := s.lists.Create(ctx, list); err != nil {
		return nil, err
	}
	s.logger.WithFields(map[string]interface{}{
		"user_id": userID,
		"list_id": list.ID,
	}).Info("List created")
	return list, nil
}

func (s *ListService) AddMovie(ctx context.Context, userID, listID, movieID int64) error {
	if _, err := s.owned(ctx, userID, listID); err != nil {
		return err
	}
	if err := requireMovie(ctx, s.movies, movieID); err != nil {
		return err
	}
	if err := s.lists.AddItem(ctx, &models.ListItem{ListID: listID, MovieID: movieID}); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return apperror.BadRequest("This movie is already in the list.")
		}
		return err
	}
	return nil
}

func (s *ListService) RemoveMovie(ctx context.Context, userID, listID, movieID int64) error {
	if _, err := s.owned(ctx, userID, listID); err != nil {
		return err
	}
	return s.lists.RemoveItem(ctx, listID, movieID)
}

func (s *ListService) Delete(ctx context.Context, userID, listID int64) error {
	if _, err := s.owned(ctx, userID, listID); err != nil {
		return err
	}
	return s.lists.Delete(ctx, listID)
}

// owned hides lists of other users behind a 404.
func (s *ListService) owned(ctx context.Context, userID, listID int64) (*models.MovieList, error) {
	list, err := s.lists.GetByID(ctx, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to get list: %w", err)
	}
	if list == nil || list.UserID != userID {
		return nil, apperror.NotFound("List not found")
	}
	return list, nil
}

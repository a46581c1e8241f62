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

type LikeService struct {
	likes    LikeStore
	logs     WatchLogStore
	users    UserStore
	activity *ActivityService
	events   EventPublisher
	logger   *logger.Logger
}

func NewLikeService(likes LikeStore, logs WatchLogStore, users UserStore, activity *ActivityService, events EventPublisher, logger *logger.Logger) *LikeService {
	return &LikeService{
		likes:    likes,
		logs:     logs,
		users:    users,
		activity: activity,
		events:   events,
		logger:   logger,
	}
}

type LikeRequest struct {
	UserID   int64 `json:"userId" binding:"required"`
	ReviewID int64 `json:"reviewId" binding:"required"`
}

// Like records a like on a watch log and notifies its author.
func (s *LikeService) Like(ctx context.Context, req *LikeRequest) error {
	user, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return apperror.NotFound("User not found")
	}

	review, err := s.logs.GetByID(ctx, req.ReviewID)
	if err != nil {
		return fmt.Errorf("failed to get review: %w", err)
	}
	if review == nil {
		return apperror.NotFound("Review not found")
	}

	if err := s.likes.Create(ctx, &models.ReviewLike{UserID: req.UserID, ReviewID: req.ReviewID}); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return apperror.BadRequest("You have already liked this review.")
		}
		return err
	}

	activity := &models.Activity{
		Type:          models.ActivityLike,
		ActorID:       user.ID,
		ActorUsername: user.Username,
		MovieID:       review.MovieID,
		LogID:         review.ID,
		CreatedAt:     time.Now(),
	}
	if review.UserID != user.ID {
		activity.TargetUserID = review.UserID
	}
	s.activity.Record(ctx, activity)

	publishEvent(ctx, s.events, s.logger, queue.EventLikeCreated, user.ID, queue.LikeEventData{
		UserID:   user.ID,
		ReviewID: review.ID,
	})
	return nil
}

func (s *LikeService) Unlike(ctx context.Context, userID, reviewID int64) error {
	if err := s.likes.Delete(ctx, userID, reviewID); err != nil {
		return err
	}
	s.activity.Retract(ctx, models.ActivityLike, userID, 0, 0, reviewID)
	publishEvent(ctx, s.events, s.logger, queue.EventLikeDeleted, userID, queue.LikeEventData{
		UserID:   userID,
		ReviewID: reviewID,
	})
	return nil
}

func (s *LikeService) IsLiked(ctx context.Context, userID, reviewID int64) (bool, error) {
	return s.likes.IsLiked(ctx, userID, reviewID)
}

func (s *LikeService) Likers(ctx context.Context, reviewID int64) ([]models.User, error) {
	users, err := s.likes.Likers(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

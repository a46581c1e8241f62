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

type FollowService struct {
	follows  FollowStore
	users    UserStore
	activity *ActivityService
	events   EventPublisher
	logger   *logger.Logger
}

func NewFollowService(follows FollowStore, users UserStore, activity *ActivityService, events EventPublisher, logger *logger.Logger) *FollowService {
	return &FollowService{
		follows:  follows,
		users:    users,
		activity: activity,
		events:   events,
		logger:   logger,
	}
}

type FollowRequest struct {
	FollowerID int64 `json:"followerId" binding:"required"`
	FollowedID int64 `json:"followedId" binding:"required"`
}

func (s *FollowService) Follow(ctx context.Context, req *FollowRequest) error {
	if req.FollowerID == req.FollowedID {
		return apperror.BadRequest("You cannot follow yourself.")
	}

	follower, err := s.users.GetByID(ctx, req.FollowerID)
	if err != nil {
		return fmt.Errorf("failed to get follower: %w", err)
	}
	if follower == nil {
		return apperror.NotFound("User not found")
	}
	followed, err := s.users.GetByID(ctx, req.FollowedID)
	if err != nil {
		return fmt.Errorf("failed to get followed user: %w", err)
	}
	if followed == nil {
		return apperror.NotFound("User not found")
	}

	if err := s.follows.Create(ctx, &models.Follow{FollowerID: req.FollowerID, FollowedID: req.FollowedID}); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return apperror.BadRequest("You are already following this user.")
		}
		return err
	}

	s.activity.Record(ctx, &models.Activity{
		Type:          models.ActivityFollow,
		ActorID:       follower.ID,
		ActorUsername: follower.Username,
		TargetUserID:  followed.ID,
		CreatedAt:     time.Now(),
	})
	publishEvent(ctx, s.events, s.logger, queue.EventFollowCreated, follower.ID, queue.FollowEventData{
		FollowerID: follower.ID,
		FollowedID: followed.ID,
	})

	s.logger.WithFields(map[string]interface{}{
		"follower_id": follower.ID,
		"followed_id": followed.ID,
	}).Info("User followed")
	return nil
}

func (s *FollowService) Unfollow(ctx context.Context, followerID, followedID int64) error {
	if err := s.follows.Delete(ctx, followerID, followedID); err != nil {
		return err
	}
	s.activity.Retract(ctx, models.ActivityFollow, followerID, followedID, 0, 0)
	publishEvent(ctx, s.events, s.logger, queue.EventFollowDeleted, followerID, queue.FollowEventData{
		FollowerID: followerID,
		FollowedID: followedID,
	})
	return nil
}

func (s *FollowService) IsFollowing(ctx context.Context, followerID, followedID int64) (bool, error) {
	return s.follows.IsFollowing(ctx, followerID, followedID)
}

func (s *FollowService) Followers(ctx context.Context, userID int64) ([]models.User, error) {
	users, err := s.follows.GetFollowers(ctx, userID)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

func (s *FollowService) Following(ctx context.Context, userID int64) ([]models.User, error) {
	users, err := s.follows.GetFollowing(ctx, userID)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

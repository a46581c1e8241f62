package services

import (
	"context"
	"fmt"

	"github.com/cinematch/cinematch/internal/models"
	"github.com/cinematch/cinematch/pkg/apperror"
	"github.com/cinematch/cinematch/pkg/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const recentActivitiesLimit = 10

type ActivityService struct {
	activities ActivityStore
	follows    FollowStore
	logger     *logger.Logger
}

func NewActivityService(activities ActivityStore, follows FollowStore, logger *logger.Logger) *ActivityService {
	return &ActivityService{
		activities: activities,
		follows:    follows,
		logger:     logger,
	}
}

// Record writes an activity. Failures are logged, never returned: the action
// that produced the activity has already been committed.
func (s *ActivityService) Record(ctx context.Context, activity *models.Activity) {
	if err := s.activities.Insert(ctx, activity); err != nil {
		s.logger.WithError(err).WithFields(map[string]interface{}{
			"type":     activity.Type,
			"actor_id": activity.ActorID,
		}).Error("Failed to record activity")
	}
}

// Retract removes the activities of an undone action, logging failures.
func (s *ActivityService) Retract(ctx context.Context, activityType models.ActivityType, actorID, targetUserID, movieID, logID int64) {
	if err := s.activities.DeleteMatching(ctx, activityType, actorID, targetUserID, movieID, logID); err != nil {
		s.logger.WithError(err).WithFields(map[string]interface{}{
			"type":     activityType,
			"actor_id": actorID,
		}).Error("Failed to retract activity")
	}
}

func (s *ActivityService) Recent(ctx context.Context) ([]models.Activity, error) {
	activities, err := s.activities.Recent(ctx, recentActivitiesLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent activities: %w", err)
	}
	return activities, nil
}

// Feed pages through what the users followed by userID have done.
func (s *ActivityService) Feed(ctx context.Context, userID int64, page, limit int) (*models.Page[models.Activity], error) {
	if err := validatePage(page, limit); err != nil {
		return nil, err
	}

	followed, err := s.follows.FollowedIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get followed users: %w", err)
	}
	if len(followed) == 0 {
		return &models.Page[models.Activity]{
			Data:       []models.Activity{},
			Pagination: models.NewPagination(page, limit, 0),
		}, nil
	}

	activities, total, err := s.activities.Feed(ctx, followed, int64(models.Offset(page, limit)), int64(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}
	return &models.Page[models.Activity]{
		Data:       activities,
		Pagination: models.NewPagination(page, limit, total),
	}, nil
}

func (s *ActivityService) Notifications(ctx context.Context, userID int64, unreadOnly bool, page, limit int) (*models.Page[models.Activity], error) {
	if err := validatePage(page, limit); err != nil {
		return nil, err
	}

	activities, total, err := s.activities.Notifications(ctx, userID, unreadOnly, int64(models.Offset(page, limit)), int64(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to get notifications: %w", err)
	}
	return &models.Page[models.Activity]{
		Data:       activities,
		Pagination: models.NewPagination(page, limit, total),
	}, nil
}

func (s *ActivityService) MarkRead(ctx context.Context, userID int64, activityID string) error {
	id, err := primitive.ObjectIDFromHex(activityID)
	if err != nil {
		return apperror.BadRequest("Invalid activity id")
	}

	matched, err := s.activities.MarkRead(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if !matched {
		return apperror.NotFound("Notification not found")
	}
	return nil
}

func (s *ActivityService) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	n, err := s.activities.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return n, nil
}

// RemoveUser deletes every activity a user took part in.
func (s *ActivityService) RemoveUser(ctx context.Context, userID int64) error {
	return s.activities.DeleteByUser(ctx, userID)
}

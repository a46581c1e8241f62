package repository

import (
	"context"
	"fmt"

	"github.com/cinematch/cinematch/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LikeRepository struct {
	db *gorm.DB
}

func NewLikeRepository(db *gorm.DB) *LikeRepository {
	return &LikeRepository{db: db}
}

func (r *LikeRepository) Create(ctx context.Context, like *models.ReviewLike) error {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(like)
	if result.Error != nil {
		return fmt.Errorf("failed to create like: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrDuplicate
	}
	return nil
}

func (r *LikeRepository) Delete(ctx context.Context, userID, reviewID int64) error {
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND review_id = ?", userID, reviewID).
		Delete(&models.ReviewLike{}).Error; err != nil {
		return fmt.Errorf("failed to delete like: %w", err)
	}
	return nil
}

func (r *LikeRepository) IsLiked(ctx context.Context, userID, reviewID int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ReviewLike{}).
		Where("user_id = ? AND review_id = ?", userID, reviewID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check like status: %w", err)
	}
	return count > 0, nil
}

// Likers returns the users who liked a review, most recent first.
func (r *LikeRepository) Likers(ctx context.Context, reviewID int64) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).
		Joins("JOIN review_likes ON review_likes.user_id = users.id").
		Where("review_likes.review_id = ?", reviewID).
		Order("review_likes.created_at DESC").
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to get likers: %w", err)
	}
	return users, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/cinematch/cinematch/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FavoriteRepository struct {
	db *gorm.DB
}

func NewFavoriteRepository(db *gorm.DB) *FavoriteRepository {
	return &FavoriteRepository{db: db}
}

// AddCapped inserts fav unless it already exists or the user holds limit
// favorites. The user row is locked so concurrent adds cannot both pass the
// cap check.
func (r *FavoriteRepository) AddCapped(ctx context.Context, fav *models.Favorite, limit int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owner models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			First(&owner, "id = ?", fav.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to lock user: %w", err)
		}

		var favorites []models.Favorite
		if err := tx.Where("user_id = ?", fav.UserID).Find(&favorites).Error; err != nil {
			return fmt.Errorf("failed to load favorites: %w", err)
		}
		for _, f := range favorites {
			if f.MovieID == fav.MovieID {
				return ErrDuplicate
			}
		}
		if len(favorites) >= limit {
			return ErrLimitReached
		}

		if err := tx.Create(fav).Error; err != nil {
			return fmt.Errorf("failed to add favorite: %w", err)
		}
		return nil
	})
}

func (r *FavoriteRepository) Delete(ctx context.Context, userID, movieID int64) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND movie_id = ?", userID, movieID).
		Delete(&models.Favorite{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete favorite: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *FavoriteRepository) MovieIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	if err := r.db.WithContext(ctx).
		Model(&models.Favorite{}).
		Where("user_id = ?", userID).
		Order("created_at").
		Pluck("movie_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	return ids, nil
}

func (r *FavoriteRepository) List(ctx context.Context) ([]models.Favorite, error) {
	var favorites []models.Favorite
	if err := r.db.WithContext(ctx).Order("user_id, created_at").Find(&favorites).Error; err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	return favorites, nil
}

type WatchlistRepository struct {
	db *gorm.DB
}

func NewWatchlistRepository(db *gorm.DB) *WatchlistRepository {
	return &WatchlistRepository{db: db}
}

func (r *WatchlistRepository) Add(ctx context.Context, entry *models.WatchlistEntry) error {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(entry)
	if result.Error != nil {
		return fmt.Errorf("failed to add to watchlist: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrDuplicate
	}
	return nil
}

func (r *WatchlistRepository) Delete(ctx context.Context, userID, movieID int64) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND movie_id = ?", userID, movieID).
		Delete(&models.WatchlistEntry{})
	if result.Error != nil {
		return fmt.Errorf("failed to remove from watchlist: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *WatchlistRepository) Contains(ctx context.Context, userID, movieID int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.WatchlistEntry{}).
		Where("user_id = ? AND movie_id = ?", userID, movieID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check watchlist: %w", err)
	}
	return count > 0, nil
}

func (r *WatchlistRepository) MovieIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	if err := r.db.WithContext(ctx).
		Model(&models.WatchlistEntry{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Pluck("movie_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list watchlist: %w", err)
	}
	return ids, nil
}

type ListRepository struct {
	db *gorm.DB
}

func NewListRepository(db *gorm.DB) *ListRepository {
	return &ListRepository{db: db}
}

func (r *ListRepository) Create(ctx context.Context, list *models.MovieList) error {
	if err := r.db.WithContext(ctx).Create(list).Error; err != nil {
		return fmt.Errorf("failed to create list: %w", err)
	}
	return nil
}

func (r *ListRepository) GetByID(ctx context.Context, listID int64) (*models.MovieList, error) {
	var list models.MovieList
	if err := r.db.WithContext(ctx).First(&list, "id = ?", listID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get list: %w", err)
	}
	return &list, nil
}

func (r *ListRepository) ListByUser(ctx context.Context, userID int64) ([]models.MovieList, error) {
	var lists []models.MovieList
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&lists).Error; err != nil {
		return nil, fmt.Errorf("failed to list lists: %w", err)
	}
	return lists, nil
}

func (r *ListRepository) Delete(ctx context.Context, listID int64) error {
	if err := r.db.WithContext(ctx).Delete(&models.MovieList{}, listID).Error; err != nil {
		return fmt.Errorf("failed to delete list: %w", err)
	}
	return nil
}

func (r *ListRepository) AddItem(ctx context.Context, item *models.ListItem) error {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(item)
	if result.Error != nil {
		return fmt.Errorf("failed to add list item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrDuplicate
	}
	return nil
}

func (r *ListRepository) RemoveItem(ctx context.Context, listID, movieID int64) error {
	if err := r.db.WithContext(ctx).
		Where("list_id = ? AND movie_id = ?", listID, movieID).
		Delete(&models.ListItem{}).Error; err != nil {
		return fmt.Errorf("failed to remove list item: %w", err)
	}
	return nil
}

func (r *ListRepository) MovieIDs(ctx context.Context, listID int64) ([]int64, error) {
	var ids []int64
	if err := r.db.WithContext(ctx).
		Model(&models.ListItem{}).
		Where("list_id = ?", listID).
		Order("added_at").
		Pluck("movie_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return ids, nil
}

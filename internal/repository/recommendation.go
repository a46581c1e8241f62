package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/cinematch/cinematch/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type RecommendationRepository struct {
	col *mongo.Collection
}

func NewRecommendationRepository(col *mongo.Collection) *RecommendationRepository {
	return &RecommendationRepository{col: col}
}

// AddAll merges movieIDs into the user's set, creating the document on first
// use.
func (r *RecommendationRepository) AddAll(ctx context.Context, userID int64, movieIDs []int64) error {
	if len(movieIDs) == 0 {
		return nil
	}
	update := bson.M{"$addToSet": bson.M{"recommendations": bson.M{"$each": movieIDs}}}
	if _, err := r.col.UpdateOne(ctx, bson.M{"userId": userID}, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("failed to store recommendations: %w", err)
	}
	return nil
}

func (r *RecommendationRepository) Get(ctx context.Context, userID int64) ([]int64, error) {
	var rec models.Recommendation
	if err := r.col.FindOne(ctx, bson.M{"userId": userID}).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return []int64{}, nil
		}
		return nil, fmt.Errorf("failed to get recommendations: %w", err)
	}
	if rec.Recommendations == nil {
		return []int64{}, nil
	}
	return rec.Recommendations, nil
}

package services

import (
	"context"
	"fmt"

	"github.com/cinematch/cinematch/pkg/logger"
	"github.com/cinematch/cinematch/pkg/recommender"
)

type Recommender interface {
	Recommend(ctx context.Context, in recommender.Request) (*recommender.Response, error)
}

type RecommendationService struct {
	recommender     Recommender
	recommendations RecommendationStore
	logs            WatchLogStore
	logger          *logger.Logger
}

func NewRecommendationService(rec Recommender, recommendations RecommendationStore, logs WatchLogStore, logger *logger.Logger) *RecommendationService {
	return &RecommendationService{
		recommender:     rec,
		recommendations: recommendations,
		logs:            logs,
		logger:          logger,
	}
}

type RecommendRequest struct {
	UserID      int64                `json:"user_id" binding:"required"`
	UserRatings []recommender.Rating `json:"user_ratings"`
}

// Request asks the recommender for titles and appends them to the user's
// stored recommendations. Without explicit ratings the user's rated logs
// are sent instead.
func (s *RecommendationService) Request(ctx context.Context, req *RecommendRequest) (*recommender.Response, error) {
	ratings := req.UserRatings
	if len(ratings) == 0 {
		logs, err := s.logs.RatedByUser(ctx, req.UserID)
		if err != nil {
			return nil, err
		}
		for _, l := range logs {
			ratings = append(ratings, recommender.Rating{MovieID: l.MovieID, Rating: *l.Rating})
		}
	}

	resp, err := s.recommender.Recommend(ctx, recommender.Request{UserID: req.UserID, UserRatings: ratings})
	if err != nil {
		return nil, fmt.Errorf("failed to get recommendations: %w", err)
	}

	if len(resp.Recommendations) > 0 {
		if err := s.recommendations.AddAll(ctx, req.UserID, resp.Recommendations); err != nil {
			return nil, err
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id": req.UserID,
		"count":   len(resp.Recommendations),
	}).Info("Recommendations stored")
	return resp, nil
}

func (s *RecommendationService) Get(ctx context.Context, userID int64) ([]int64, error) {
	return s.recommendations.Get(ctx, userID)
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/cinematch/cinematch/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MovieDocRepository struct {
	col *mongo.Collection
}

func NewMovieDocRepository(col *mongo.Collection) *MovieDocRepository {
	return &MovieDocRepository{col: col}
}

var summaryProjection = bson.M{"cast": 0}

// Summaries returns enrichment docs keyed by movie id, without cast. A nil
// ids slice means every document.
func (r *MovieDocRepository) Summaries(ctx context.Context, ids []int64) (map[int64]models.MovieDoc, error) {
	filter := bson.M{}
	if ids != nil {
		filter["id"] = bson.M{"$in": ids}
	}

	cur, err := r.col.Find(ctx, filter, options.Find().SetProjection(summaryProjection))
	if err != nil {
		return nil, fmt.Errorf("failed to find movie docs: %w", err)
	}
	defer cur.Close(ctx)

	out := make(map[int64]models.MovieDoc)
	for cur.Next(ctx) {
		var doc models.MovieDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode movie doc: %w", err)
		}
		out[doc.ID] = doc
	}
	return out, cur.Err()
}

func (r *MovieDocRepository) Get(ctx context.Context, id int64) (*models.MovieDoc, error) {
	var doc models.MovieDoc
	if err := r.col.FindOne(ctx, bson.M{"id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get movie doc: %w", err)
	}
	return &doc, nil
}

// SearchTitle matches titles case-insensitively, treating q as a literal.
func (r *MovieDocRepository) SearchTitle(ctx context.Context, q string, limit int64) ([]models.MovieDoc, error) {
	filter := bson.M{"title": bson.M{"$regex": regexp.QuoteMeta(q), "$options": "i"}}
	opts := options.Find().
		SetProjection(summaryProjection).
		SetSort(bson.D{{Key: "popularity", Value: -1}}).
		SetLimit(limit)

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to search movie docs: %w", err)
	}
	defer cur.Close(ctx)

	var docs []models.MovieDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode movie docs: %w", err)
	}
	return docs, nil
}

func (r *MovieDocRepository) Upsert(ctx context.Context, doc *models.MovieDoc) error {
	doc.UpdatedAt = time.Now()
	_, err := r.col.ReplaceOne(ctx, bson.M{"id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert movie doc %d: %w", doc.ID, err)
	}
	return nil
}

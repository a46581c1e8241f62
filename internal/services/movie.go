package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/cinematch/cinematch/internal/models"
	"github.com/cinematch/cinematch/pkg/apperror"
	"github.com/cinematch/cinematch/pkg/cache"
	"github.com/cinematch/cinematch/pkg/logger"
	"github.com/sourcegraph/conc/pool"
)

const (
	movieCacheVersionKey = "movies:version"
	maxRandomMovies      = 20
	similarMoviesLimit   = 20
	searchCandidateLimit = 500
)

type MovieService struct {
	movies    MovieStore
	docs      MovieDocStore
	cache     Cache
	allowList map[int64]struct{}
	cacheTTL  time.Duration
	logger    *logger.Logger
}

func NewMovieService(movies MovieStore, docs MovieDocStore, cache Cache, allowList map[int64]struct{}, cacheTTL time.Duration, logger *logger.Logger) *MovieService {
	return &MovieService{
		movies:    movies,
		docs:      docs,
		cache:     cache,
		allowList: allowList,
		cacheTTL:  cacheTTL,
		logger:    logger,
	}
}

// List returns one page of the merged catalog, served from cache when the
// catalog version has not moved.
func (s *MovieService) List(ctx context.Context, q MovieQuery) (*models.Page[models.MovieSummary], error) {
	if err := q.validate(); err != nil {
		return nil, err
	}

	key := s.cacheKey(ctx, q)
	var cached models.Page[models.MovieSummary]
	if err := s.cache.GetJSON(ctx, key, &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.WithError(err).Warn("Failed to read movie page cache")
	}

	merged, err := s.load(ctx, q.filter(), nil)
	if err != nil {
		return nil, err
	}

	page, err := BuildMoviePage(merged, q)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetJSON(ctx, key, page, s.cacheTTL); err != nil {
		s.logger.WithError(err).Warn("Failed to write movie page cache")
	}
	return page, nil
}

func (s *MovieService) Popular(ctx context.Context, q MovieQuery) (*models.Page[models.MovieSummary], error) {
	q.SortByPopularity = true
	return s.List(ctx, q)
}

// Recommendable lists only movies the recommender knows about.
func (s *MovieService) Recommendable(ctx context.Context, q MovieQuery) (*models.Page[models.MovieSummary], error) {
	q.AllowList = s.allowList
	if q.AllowList == nil {
		q.AllowList = map[int64]struct{}{}
	}
	return s.List(ctx, q)
}

// load reads relational rows and enrichment docs concurrently and merges
// them. docIDs narrows the document read; nil reads every document.
func (s *MovieService) load(ctx context.Context, filter models.MovieFilter, docIDs []int64) ([]models.MovieSummary, error) {
	var (
		rows []models.MovieRow
		docs map[int64]models.MovieDoc
	)

	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		var err error
		rows, err = s.movies.ListRows(ctx, filter)
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		docs, err = s.docs.Summaries(ctx, docIDs)
		return err
	})
	if err := p.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load movies: %w", err)
	}

	return MergeMovies(rows, docs), nil
}

func (s *MovieService) Search(ctx context.Context, text string, page, limit int) (*models.Page[models.MovieSummary], error) {
	if text == "" {
		return nil, apperror.BadRequest("Missing search query")
	}

	docs, err := s.docs.SearchTitle(ctx, text, searchCandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search movies: %w", err)
	}

	q := MovieQuery{Page: page, Limit: limit, SortByPopularity: true}
	if len(docs) == 0 {
		return BuildMoviePage(nil, q)
	}

	ids := make([]int64, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}

	merged, err := s.load(ctx, models.MovieFilter{IDs: ids}, ids)
	if err != nil {
		return nil, err
	}

	return BuildMoviePage(merged, q)
}

func (s *MovieService) Get(ctx context.Context, id int64) (*models.MovieDetail, error) {
	movie, err := s.movies.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get movie: %w", err)
	}
	if movie == nil {
		return nil, apperror.NotFound("Movie not found")
	}

	doc, err := s.docs.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get movie details: %w", err)
	}

	detail := &models.MovieDetail{
		Movie:  *movie,
		Genres: make([]string, 0, len(movie.Genres)),
		Cast:   []models.CastMember{},
	}
	for _, g := range movie.Genres {
		detail.Genres = append(detail.Genres, g.Name)
	}
	if doc != nil {
		detail.Popularity = doc.Popularity
		detail.VoteAverage = doc.VoteAverage
		detail.VoteCount = doc.VoteCount
		detail.PosterPath = doc.PosterPath
		if doc.Cast != nil {
			detail.Cast = doc.Cast
		}
	}
	return detail, nil
}

// Similar ranks movies by shared genres, then popularity.
func (s *MovieService) Similar(ctx context.Context, id int64) ([]models.MovieSummary, error) {
	exists, err := s.movies.Exists(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get movie: %w", err)
	}
	if !exists {
		return nil, apperror.NotFound("Movie not found")
	}

	rows, err := s.movies.Similar(ctx, id, similarMoviesLimit*5)
	if err != nil {
		return nil, fmt.Errorf("failed to get similar movies: %w", err)
	}
	merged, err := s.enrich(ctx, rows)
	if err != nil {
		return nil, err
	}

	overlap := make(map[int64]int, len(rows))
	for _, r := range rows {
		overlap[r.ID] = r.Overlap
	}
	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if overlap[a.ID] != overlap[b.ID] {
			return overlap[a.ID] > overlap[b.ID]
		}
		return a.Popularity > b.Popularity
	})

	if len(merged) > similarMoviesLimit {
		merged = merged[:similarMoviesLimit]
	}
	return merged, nil
}

func (s *MovieService) Random(ctx context.Context, count int) ([]models.MovieSummary, error) {
	if count < 1 || count > maxRandomMovies {
		return nil, apperror.BadRequest(fmt.Sprintf("count must be between 1 and %d", maxRandomMovies))
	}
	rows, err := s.movies.Random(ctx, count)
	if err != nil {
		return nil, fmt.Errorf("failed to sample movies: %w", err)
	}
	return s.enrich(ctx, rows)
}

// Summaries merges the given movies, preserving the order of ids and
// skipping ids that are not in the catalog.
func (s *MovieService) Summaries(ctx context.Context, ids []int64) ([]models.MovieSummary, error) {
	if len(ids) == 0 {
		return []models.MovieSummary{}, nil
	}

	merged, err := s.load(ctx, models.MovieFilter{IDs: ids}, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]models.MovieSummary, len(merged))
	for _, m := range merged {
		byID[m.ID] = m
	}
	ordered := make([]models.MovieSummary, 0, len(ids))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			ordered = append(ordered, m)
		}
	}
	return ordered, nil
}

func (s *MovieService) enrich(ctx context.Context, rows []models.MovieRow) ([]models.MovieSummary, error) {
	if len(rows) == 0 {
		return []models.MovieSummary{}, nil
	}
	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	docs, err := s.docs.Summaries(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load movie details: %w", err)
	}
	return MergeMovies(rows, docs), nil
}

// InvalidateCache retires every cached movie page by bumping the version.
func (s *MovieService) InvalidateCache(ctx context.Context) error {
	if _, err := s.cache.Incr(ctx, movieCacheVersionKey); err != nil {
		return fmt.Errorf("failed to bump movie cache version: %w", err)
	}
	return nil
}

func (s *MovieService) cacheKey(ctx context.Context, q MovieQuery) string {
	version := int64(0)
	if raw, err := s.cache.Get(ctx, movieCacheVersionKey); err == nil {
		version, _ = strconv.ParseInt(raw, 10, 64)
	}
	return fmt.Sprintf("movies:v%d:p%d:l%d:pop%t:y%d:g%s:allow%t",
		version, q.Page, q.Limit, q.SortByPopularity, q.DecadeStart, q.Genre, q.AllowList != nil)
}

package workers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/cinematch/cinematch/internal/models"
	"github.com/cinematch/cinematch/pkg/cache"
	"github.com/cinematch/cinematch/pkg/logger"
	"github.com/cinematch/cinematch/pkg/queue"
	"github.com/cinematch/cinematch/pkg/tmdb"
	"github.com/sourcegraph/conc/pool"
)

const (
	ingestCursorKey  = "ingest:cursor"
	maxCastMembers   = 20
	windowDateLayout = "2006-01-02"
)

type Catalog interface {
	DiscoverWindow(ctx context.Context, from, to time.Time, page int) (*tmdb.DiscoverResponse, error)
	MovieDetail(ctx context.Context, id int64) (*tmdb.MovieDetail, error)
	MovieCredits(ctx context.Context, id int64) (*tmdb.Credits, error)
}

type MovieWriter interface {
	Upsert(ctx context.Context, movie *models.Movie) error
}

type MovieDocWriter interface {
	Upsert(ctx context.Context, doc *models.MovieDoc) error
}

type CursorStore interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

type Publisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
}

type IngestionConfig struct {
	Interval     time.Duration
	PagesPerTick int
	FloorYear    int
	StartDate    string
	Concurrency  int
}

// Cursor is the position of the ingestion walk. It moves backwards one
// calendar month at a time and is persisted between ticks and restarts.
type Cursor struct {
	Window string `json:"window"`
	Page   int    `json:"page"`
	Done   bool   `json:"done"`
}

func (c Cursor) bounds() (time.Time, time.Time, error) {
	start, err := time.Parse(windowDateLayout, c.Window)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid cursor window %q: %w", c.Window, err)
	}
	start = time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, -1), nil
}

// previous moves to page 1 of the preceding month, or marks the walk done
// once that month would fall before January of floorYear.
func (c Cursor) previous(floorYear int) Cursor {
	start, _, err := c.bounds()
	if err != nil {
		return Cursor{Window: c.Window, Page: 1, Done: true}
	}
	prev := start.AddDate(0, -1, 0)
	if prev.Before(time.Date(floorYear, 1, 1, 0, 0, 0, 0, time.UTC)) {
		return Cursor{Window: c.Window, Page: c.Page, Done: true}
	}
	return Cursor{Window: prev.Format(windowDateLayout), Page: 1}
}

// IngestionWorker pulls movies from the external catalog into the relational
// and document stores.
type IngestionWorker struct {
	catalog   Catalog
	movies    MovieWriter
	docs      MovieDocWriter
	cursors   CursorStore
	publisher Publisher
	config    IngestionConfig
	logger    *logger.Logger
}

func NewIngestionWorker(catalog Catalog, movies MovieWriter, docs MovieDocWriter, cursors CursorStore, publisher Publisher, config IngestionConfig, logger *logger.Logger) *IngestionWorker {
	if config.Concurrency < 1 {
		config.Concurrency = 8
	}
	return &IngestionWorker{
		catalog:   catalog,
		movies:    movies,
		docs:      docs,
		cursors:   cursors,
		publisher: publisher,
		config:    config,
		logger:    logger,
	}
}

// Start runs a tick immediately and then every interval until ctx ends.
func (w *IngestionWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting ingestion worker...")

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		if err := w.Tick(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.WithError(err).Error("Ingestion tick failed")
		}

		select {
		case <-ctx.Done():
			w.logger.Info("Ingestion worker stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Tick ingests up to PagesPerTick discover pages, saving the cursor after
// every page.
func (w *IngestionWorker) Tick(ctx context.Context) error {
	cursor, err := w.loadCursor(ctx)
	if err != nil {
		return err
	}

	ingested := 0
	for i := 0; i < w.config.PagesPerTick && !cursor.Done; i++ {
		from, to, err := cursor.bounds()
		if err != nil {
			return err
		}

		resp, err := w.catalog.DiscoverWindow(ctx, from, to, cursor.Page)
		if err != nil {
			return err
		}
		ingested += w.ingestPage(ctx, resp.Results)

		if len(resp.Results) == 0 || cursor.Page >= resp.TotalPages {
			cursor = cursor.previous(w.config.FloorYear)
		} else {
			cursor.Page++
		}
		if err := w.cursors.SetJSON(ctx, ingestCursorKey, cursor, 0); err != nil {
			return fmt.Errorf("failed to save ingestion cursor: %w", err)
		}
	}

	if cursor.Done {
		w.logger.WithField("window", cursor.Window).Debug("Ingestion reached the floor year")
	}
	if ingested > 0 {
		w.publishRefresh(ctx, ingested)
	}

	w.logger.WithFields(map[string]interface{}{
		"window":   cursor.Window,
		"page":     cursor.Page,
		"ingested": ingested,
	}).Info("Ingestion tick finished")
	return nil
}

func (w *IngestionWorker) loadCursor(ctx context.Context) (Cursor, error) {
	var cursor Cursor
	err := w.cursors.GetJSON(ctx, ingestCursorKey, &cursor)
	if err == nil {
		return cursor, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		return Cursor{}, fmt.Errorf("failed to load ingestion cursor: %w", err)
	}

	start, err := time.Parse(windowDateLayout, w.config.StartDate)
	if err != nil {
		return Cursor{}, fmt.Errorf("invalid ingestion start date: %w", err)
	}
	return Cursor{Window: start.Format(windowDateLayout), Page: 1}, nil
}

// ingestPage fetches and stores every movie of a page concurrently and
// returns how many were stored. Failed movies are logged and skipped.
func (w *IngestionWorker) ingestPage(ctx context.Context, items []tmdb.DiscoverItem) int {
	var stored int64

	p := pool.New().WithMaxGoroutines(w.config.Concurrency).WithContext(ctx)
	for _, item := range items {
		id := item.ID
		p.Go(func(ctx context.Context) error {
			if err := w.ingestMovie(ctx, id); err != nil {
				w.logger.WithError(err).WithField("movie_id", id).Warn("Failed to ingest movie")
				return nil
			}
			atomic.AddInt64(&stored, 1)
			return nil
		})
	}
	_ = p.Wait()

	return int(stored)
}

func (w *IngestionWorker) ingestMovie(ctx context.Context, id int64) error {
	detail, err := w.catalog.MovieDetail(ctx, id)
	if err != nil {
		return err
	}
	credits, err := w.catalog.MovieCredits(ctx, id)
	if err != nil {
		return err
	}

	if err := w.movies.Upsert(ctx, movieFromDetail(detail)); err != nil {
		return err
	}
	return w.docs.Upsert(ctx, docFromDetail(detail, credits))
}

func (w *IngestionWorker) publishRefresh(ctx context.Context, ingested int) {
	event, err := queue.NewEvent(queue.EventCatalogRefreshed, map[string]int{"ingested": ingested})
	if err != nil {
		w.logger.WithError(err).Error("Failed to build catalog refreshed event")
		return
	}
	if err := w.publisher.Publish(ctx, "catalog", event); err != nil {
		w.logger.WithError(err).Error("Failed to publish catalog refreshed event")
	}
}

func movieFromDetail(d *tmdb.MovieDetail) *models.Movie {
	movie := &models.Movie{
		ID:               d.ID,
		Title:            d.Title,
		OriginalTitle:    d.OriginalTitle,
		Overview:         d.Overview,
		BackdropPath:     d.BackdropPath,
		OriginalLanguage: d.OriginalLanguage,
		Runtime:          d.Runtime,
		Budget:           d.Budget,
		Revenue:          d.Revenue,
		Status:           d.Status,
	}
	if release, err := time.Parse(windowDateLayout, d.ReleaseDate); err == nil {
		movie.ReleaseDate = &release
	}
	for _, g := range d.Genres {
		movie.Genres = append(movie.Genres, models.Genre{ID: g.ID, Name: g.Name})
	}
	return movie
}

func docFromDetail(d *tmdb.MovieDetail, credits *tmdb.Credits) *models.MovieDoc {
	doc := &models.MovieDoc{
		ID:          d.ID,
		Title:       d.Title,
		Popularity:  d.Popularity,
		VoteAverage: d.VoteAverage,
		VoteCount:   d.VoteCount,
		PosterPath:  d.PosterPath,
		UpdatedAt:   time.Now(),
	}

	cast := append([]tmdb.CastMember(nil), credits.Cast...)
	sort.SliceStable(cast, func(i, j int) bool { return cast[i].Order < cast[j].Order })
	if len(cast) > maxCastMembers {
		cast = cast[:maxCastMembers]
	}
	for _, m := range cast {
		doc.Cast = append(doc.Cast, models.CastMember{
			ID:          m.ID,
			Name:        m.Name,
			Character:   m.Character,
			ProfilePath: m.ProfilePath,
			Order:       m.Order,
		})
	}
	return doc
}

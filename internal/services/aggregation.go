package services

import (
	"sort"

	"github.com/cinematch/cinematch/internal/models"
	"github.com/cinematch/cinematch/pkg/apperror"
)

// MovieQuery describes one page of the merged movie listing.
type MovieQuery struct {
	Page             int
	Limit            int
	SortByPopularity bool
	DecadeStart      int
	Genre            string
	// AllowList restricts results to these ids when non-nil.
	AllowList map[int64]struct{}
}

func (q MovieQuery) filter() models.MovieFilter {
	return models.MovieFilter{DecadeStart: q.DecadeStart, Genre: q.Genre}
}

func (q MovieQuery) validate() error {
	return validatePage(q.Page, q.Limit)
}

func validatePage(page, limit int) error {
	if page < 1 {
		return apperror.BadRequest("page must be at least 1")
	}
	if limit < 1 {
		return apperror.BadRequest("limit must be greater than 0")
	}
	return nil
}

// MergeMovies joins relational rows with their enrichment docs by id. A row
// without a doc keeps zero popularity, zero votes and an empty poster.
func MergeMovies(rows []models.MovieRow, docs map[int64]models.MovieDoc) []models.MovieSummary {
	merged := make([]models.MovieSummary, 0, len(rows))
	for _, row := range rows {
		summary := models.MovieSummary{
			ID:          row.ID,
			Title:       row.Title,
			Overview:    row.Overview,
			ReleaseDate: row.ReleaseDate,
			Genres:      row.Genres,
		}
		if summary.Genres == nil {
			summary.Genres = []string{}
		}
		if doc, ok := docs[row.ID]; ok {
			summary.Popularity = doc.Popularity
			summary.VoteAverage = doc.VoteAverage
			summary.VoteCount = doc.VoteCount
			summary.PosterPath = doc.PosterPath
		}
		merged = append(merged, summary)
	}
	return merged
}

// BuildMoviePage sorts, filters and slices merged movies. The total used for
// pagination is the size of the allow-list filtered set.
func BuildMoviePage(movies []models.MovieSummary, q MovieQuery) (*models.Page[models.MovieSummary], error) {
	if err := q.validate(); err != nil {
		return nil, err
	}

	selected := make([]models.MovieSummary, 0, len(movies))
	for _, m := range movies {
		if q.AllowList != nil {
			if _, ok := q.AllowList[m.ID]; !ok {
				continue
			}
		}
		selected = append(selected, m)
	}

	if q.SortByPopularity {
		sort.SliceStable(selected, func(i, j int) bool {
			return selected[i].Popularity > selected[j].Popularity
		})
	}

	total := len(selected)
	data := []models.MovieSummary{}
	if q.Page-1 < models.TotalPages(int64(total), q.Limit) {
		start := (q.Page - 1) * q.Limit
		data = selected[start:min(start+q.Limit, total)]
	}

	return &models.Page[models.MovieSummary]{
		Data:       data,
		Pagination: models.NewPagination(q.Page, q.Limit, int64(total)),
	}, nil
}

package tmdb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverWindowSendsWindowAndKey(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"page":2,"total_pages":7,"results":[{"id":603,"title":"The Matrix","popularity":80.5}]}`))
	}))
	defer srv.Close()

	client := NewClient("secret", srv.URL, 1000)
	from := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	resp, err := client.DiscoverWindow(context.Background(), from, to, 2)
	require.NoError(t, err)

	assert.Equal(t, "/discover/movie", got.URL.Path)
	q := got.URL.Query()
	assert.Equal(t, "secret", q.Get("api_key"))
	assert.Equal(t, "2024-04-01", q.Get("primary_release_date.gte"))
	assert.Equal(t, "2024-05-01", q.Get("primary_release_date.lte"))
	assert.Equal(t, "popularity.desc", q.Get("sort_by"))
	assert.Equal(t, "false", q.Get("include_adult"))
	assert.Equal(t, "2", q.Get("page"))

	assert.Equal(t, 7, resp.TotalPages)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, int64(603), resp.Results[0].ID)
}

func TestMovieDetailAndCredits(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/movie/603", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":603,"title":"The Matrix","release_date":"1999-03-30","vote_average":8.2,"vote_count":24000,"genres":[{"id":28,"name":"Action"}]}`))
	})
	mux.HandleFunc("/movie/603/credits", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":603,"cast":[{"id":6384,"name":"Keanu Reeves","character":"Neo","order":0}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient("k", srv.URL, 1000)

	detail, err := client.MovieDetail(context.Background(), 603)
	require.NoError(t, err)
	assert.Equal(t, "The Matrix", detail.Title)
	assert.Equal(t, []Genre{{ID: 28, Name: "Action"}}, detail.Genres)

	credits, err := client.MovieCredits(context.Background(), 603)
	require.NoError(t, err)
	require.Len(t, credits.Cast, 1)
	assert.Equal(t, "Neo", credits.Cast[0].Character)
}

func TestNonOKStatusIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status_message":"Invalid API key"}`))
	}))
	defer srv.Close()

	_, err := NewClient("bad", srv.URL, 1000).MovieDetail(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// Client talks to the TMDB v3 API, paced by a token bucket shared across
// goroutines.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

func NewClient(apiKey, baseURL string, requestsPerSecond float64) *Client {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 40
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

type DiscoverResponse struct {
	Page         int            `json:"page"`
	Results      []DiscoverItem `json:"results"`
	TotalPages   int            `json:"total_pages"`
	TotalResults int            `json:"total_results"`
}

type DiscoverItem struct {
	ID         int64   `json:"id"`
	Title      string  `json:"title"`
	Popularity float64 `json:"popularity"`
}

type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type MovieDetail struct {
	ID               int64   `json:"id"`
	Title            string  `json:"title"`
	OriginalTitle    string  `json:"original_title"`
	Overview         string  `json:"overview"`
	BackdropPath     string  `json:"backdrop_path"`
	PosterPath       string  `json:"poster_path"`
	ReleaseDate      string  `json:"release_date"`
	OriginalLanguage string  `json:"original_language"`
	Runtime          int     `json:"runtime"`
	Budget           int64   `json:"budget"`
	Revenue          int64   `json:"revenue"`
	Status           string  `json:"status"`
	Popularity       float64 `json:"popularity"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int64   `json:"vote_count"`
	Genres           []Genre `json:"genres"`
}

type CastMember struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character"`
	ProfilePath string `json:"profile_path"`
	Order       int    `json:"order"`
}

type Credits struct {
	ID   int64        `json:"id"`
	Cast []CastMember `json:"cast"`
}

// DiscoverWindow lists movies released in [from, to], most popular first.
func (c *Client) DiscoverWindow(ctx context.Context, from, to time.Time, page int) (*DiscoverResponse, error) {
	query := url.Values{}
	query.Set("include_adult", "false")
	query.Set("include_video", "false")
	query.Set("language", "en-US")
	query.Set("sort_by", "popularity.desc")
	query.Set("page", strconv.Itoa(page))
	query.Set("primary_release_date.gte", from.Format("2006-01-02"))
	query.Set("primary_release_date.lte", to.Format("2006-01-02"))

	var result DiscoverResponse
	if err := c.get(ctx, "/discover/movie", query, &result); err != nil {
		return nil, fmt.Errorf("failed to discover movies: %w", err)
	}
	return &result, nil
}

func (c *Client) MovieDetail(ctx context.Context, id int64) (*MovieDetail, error) {
	var result MovieDetail
	if err := c.get(ctx, fmt.Sprintf("/movie/%d", id), nil, &result); err != nil {
		return nil, fmt.Errorf("failed to fetch movie %d: %w", id, err)
	}
	return &result, nil
}

func (c *Client) MovieCredits(ctx context.Context, id int64) (*Credits, error) {
	var result Credits
	if err := c.get(ctx, fmt.Sprintf("/movie/%d/credits", id), nil, &result); err != nil {
		return nil, fmt.Errorf("failed to fetch credits for movie %d: %w", id, err)
	}
	return &result, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, dest interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	if query == nil {
		query = url.Values{}
	}
	query.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("TMDB API returned status %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(dest)
}

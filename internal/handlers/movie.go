package handlers

import (
	"net/http"

	"github.com/cinematch/cinematch/internal/services"
	"github.com/gin-gonic/gin"
)

type MovieHandler struct {
	movieService *services.MovieService
}

func NewMovieHandler(movieService *services.MovieService) *MovieHandler {
	return &MovieHandler{movieService: movieService}
}

func (h *MovieHandler) RegisterRoutes(r *gin.RouterGroup) {
	movies := r.Group("/movies")
	{
		movies.GET("", h.List)
		movies.GET("/popular", h.Popular)
		movies.GET("/search", h.Search)
		movies.GET("/recommender", h.Recommendable)
		movies.GET("/random", h.Random)
		movies.GET("/:id", h.Get)
		movies.GET("/:id/similar", h.Similar)
	}
}

func movieQuery(c *gin.Context) (services.MovieQuery, bool) {
	page, limit, ok := pageParams(c)
	if !ok {
		return services.MovieQuery{}, false
	}
	year, ok := queryInt(c, "year", 0)
	if !ok {
		return services.MovieQuery{}, false
	}
	return services.MovieQuery{
		Page:        page,
		Limit:       limit,
		DecadeStart: year,
		Genre:       c.Query("genre"),
	}, true
}

func (h *MovieHandler) List(c *gin.Context) {
	q, ok := movieQuery(c)
	if !ok {
		return
	}
	page, err := h.movieService.List(c.Request.Context(), q)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *MovieHandler) Popular(c *gin.Context) {
	q, ok := movieQuery(c)
	if !ok {
		return
	}
	page, err := h.movieService.Popular(c.Request.Context(), q)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *MovieHandler) Recommendable(c *gin.Context) {
	q, ok := movieQuery(c)
	if !ok {
		return
	}
	page, err := h.movieService.Recommendable(c.Request.Context(), q)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *MovieHandler) Search(c *gin.Context) {
	page, limit, ok := pageParams(c)
	if !ok {
		return
	}
	result, err := h.movieService.Search(c.Request.Context(), c.Query("q"), page, limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *MovieHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	movie, err := h.movieService.Get(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	respondOK(c, movie)
}

func (h *MovieHandler) Similar(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	movies, err := h.movieService.Similar(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	respondOK(c, movies)
}

func (h *MovieHandler) Random(c *gin.Context) {
	count, ok := queryInt(c, "count", 1)
	if !ok {
		return
	}
	movies, err := h.movieService.Random(c.Request.Context(), count)
	if err != nil {
		_ = c.Error(err)
		return
	}
	respondOK(c, movies)
}

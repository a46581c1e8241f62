package handlers

import (
	"net/http"

	"github.com/cinematch/cinematch/internal/middleware"
	"github.com/cinematch/cinematch/internal/services"
	"github.com/gin-gonic/gin"
)

type LogHandler struct {
	logService *services.LogService
}

func NewLogHandler(logService *services.LogService) *LogHandler {
	return &LogHandler{logService: logService}
}

func (h *LogHandler) RegisterRoutes(r *gin.RouterGroup) {
	logs := r.Group("/logs")
	{
		logs.GET("", h.List)
		logs.POST("", h.Create)
		logs.GET("/:id", h.Get)
		logs.PATCH("/:id", h.Update)
		logs.DELETE("/:id", h.Delete)
		logs.GET("/movie/:movie_id", h.ListByMovie)
		logs.GET("/movie/:movie_id/aggregated", h.MovieStats)
		logs.GET("/reviews/:movie_id", h.ReviewsByMovie)
		logs.GET("/user/:user_id", h.UserSummary)
		logs.GET("/user/:user_id/watched", h.Watched)
		logs.GET("/user/:user_id/reviews", h.ReviewsByUser)
	}
}

func (h *LogHandler) Create(c *gin.Context) {
	var req services.CreateLogRequest
	if !bindJSON(c, &req) {
		return
	}

	log, err := h.logService.Create(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	respond(c, http.StatusCreated, log)
}

func (h *LogHandler) List(c *gin.Context) {
	page, limit, ok := pageParams(c)
	if !ok {
		return
	}
	result, err := h.logService.List(c.Request.Context(), page, limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *LogHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	entry, err := h.logService.Get(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	respondOK(c, entry)
}

func (h *LogHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.UpdateLogRequest
	if !bindJSON(c, &req) {
		return
	}

	entry, err := h.logService.Update(c.Request.Context(), middleware.GetUserID(c), id, &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	respondOK(c, entry)
}

func (h *LogHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.logService.Delete(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		_ = c.Error(err)
		return
	}
	respondOK(c, "Log deleted")
}

func (h *LogHandler) ListByMovie(c *gin.Context) {
	movieID, ok := paramID(c, "movie_id")
	if !ok {
		return
	}
	page, limit, ok := pageParams(c)
	if !ok {
		return
	}
	result, err := h.logService.ListByMovie(c.Request.Context(), movieID, page, limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *LogHandler) MovieStats(c *gin.Context) {
	movieID, ok := paramID(c, "movie_id")
	if !ok {
		return
	}
	stats, err := h.logService.MovieStats(c.Request.Context(), movieID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	respondOK(c, stats)
}

func (h *LogHandler) ReviewsByMovie(c *gin.Context) {
	movieID, ok := paramID(c, "movie_id")
	if !ok {
		return
	}
	reviews, err := h.logService.ReviewsByMovie(c.Request.Context(), movieID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	respondOK(c, reviews)
}

func (h *LogHandler) UserSummary(c *gin.Context) {
	userID, ok := paramID(c, "user_id")
	if !ok {
		return
	}
	summary, err := h.logService.UserSummary(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	respondOK(c, summary)
}

func (h *LogHandler) Watched(c *gin.Context) {
	userID, ok := paramID(c, "user_id")
	if !ok {
		return
	}
	page, limit, ok := pageParams(c)
	if !ok {
		return
	}
	result, err := h.logService.Watched(c.Request.Context(), userID, page, limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *LogHandler) ReviewsByUser(c *gin.Context) {
	userID, ok := paramID(c, "user_id")
	if !ok {
		return
	}
	page, limit, ok := pageParams(c)
	if !ok {
		return
	}
	result, err := h.logService.ReviewsByUser(c.Request.Context(), userID, page, limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

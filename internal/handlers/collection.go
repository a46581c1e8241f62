package handlers

import (
	"net/http"

	"github.com/cinematch/cinematch/internal/services"
	"github.com/gin-gonic/gin"
)

type FavoriteHandler struct {
	favoriteService *services.FavoriteService
}

func NewFavoriteHandler(favoriteService *services.FavoriteService) *FavoriteHandler {
	return &FavoriteHandler{favoriteService: favoriteService}
}

func (h *FavoriteHandler) RegisterRoutes(r *gin.RouterGroup) {
	favorites := r.Group("/favorites")
	{
		favorites.GET("", h.All)
		favorites.POST("", h.Add)
		favorites.GET("/:user_id", h.ForUser)
		favorites.DELETE("/:user_id/:movie_id", h.Remove)
	}
}

func (h *FavoriteHandler) All(c *gin.Context) {
	favorites, err := h.favoriteService.All(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	respondOK(c, favorites)
}

func (h *FavoriteHandler) ForUser(c *gin.Context) {
	userID, ok := paramID(c, "user_id")
	if !ok {
		return
	}
	movies, err := h.favoriteService.ForUser(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	respondOK(c, movies)
}

func (h *FavoriteHandler) Add(c *gin.Context) {
	var req services.FavoriteRequest
	if !bindJSON(c, &req) {
		return
	}
	if !requireSelf(c, req.UserID) {
		return
	}

	if err := h.favoriteService.Add(c.Request.Context(), &req); err != nil {
		_ = c.Error(err)
		return
	}
	respond(c, http.StatusCreated, "Favorite added")
}

func (h *FavoriteHandler) Remove(c *gin.Context) {
	userID, ok := pathUser(c, "user_id")
	if !ok {
		return
	}
	movieID, ok := paramID(c, "movie_id")
	if !ok {
		return
	}
	if err := h.favoriteService.Remove(c.Request.Context(), userID, movieID); err != nil {
		_ = c.Error(err)
		return
	}
	respondOK(c, "Favorite removed")
}

type WatchlistHandler struct {
	watchlistService *services.WatchlistService
}

func NewWatchlistHandler(watchlistService *services.WatchlistService) *WatchlistHandler {
	return &WatchlistHandler{watchlistService: watchlistService}
}

func (h *WatchlistHandler) RegisterRoutes(r *gin.RouterGroup) {
	watchlists := r.Group("/watchlists")
	{
		watchlists.GET("/:user_id", h.Movies)
		watchlists.GET("/:user_id/:movie_id", h.Contains)
		watchlists.POST("/:user_id", h.Add)
		watchlists.DELETE("/:user_id/:movie_id", h.Remove)
	}
}

func (h *WatchlistHandler) Movies(c *gin.Context) {
	userID, ok := paramID(c, "user_id")
	if !ok {
		return
	}
	movies, err := h.watchlistService.Movies(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	respondOK(c, movies)
}

func (h *WatchlistHandler) Contains(c *gin.Context) {
	userID, ok := paramID(c, "user_id")
	if !ok {
		return
	}
	movieID, ok := paramID(c, "movie_id")
	if !ok {
		return
	}
	found, err := h.watchlistService.Contains(c.Request.Context(), userID, movieID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	respondOK(c, found)
}

func (h *WatchlistHandler) Add(c *gin.Context) {
	userID, ok := pathUser(c, "user_id")
	if !ok {
		return
	}
	var req services.WatchlistRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.watchlistService.Add(c.Request.Context(), userID, req.MovieID); err != nil {
		_ = c.Error(err)
		return
	}
	respond(c, http.StatusCreated, "Movie added to watchlist")
}

func (h *WatchlistHandler) Remove(c *gin.Context) {
	userID, ok := pathUser(c, "user_id")
	if !ok {
		return
	}
	movieID, ok := paramID(c, "movie_id")
	if !ok {
		return
	}
	if err := h.watchlistService.Remove(c.Request.Context(), userID, movieID); err != nil {
		_ = c.Error(err)
		return
	}
	respondOK(c, "Movie removed from watchlist")
}

type ListHandler struct {
	listService *services.ListService
}

func NewListHandler(listService *services.ListService) *ListHandler {
	return &ListHandler{listService: listService}
}

func (h *ListHandler) RegisterRoutes(r *gin.RouterGroup) {
	lists := r.Group("/lists")
	{
		lists.GET("/:user_id", h.ByUser)
		lists.POST("/:user_id", h.Create)
		lists.GET("/:user_id/:list_id", h.Get)
		lists.POST("/:user_id/:list_id", h.AddMovie)
		lists.DELETE("/:user_id/:list_id", h.Delete)
		lists.DELETE("/:user_id/:list_id/:movie_id", h.RemoveMovie)
	}
}

func (h *ListHandler) ByUser(c *gin.Context) {
	userID, ok := paramID(c, "user_id")
	if !ok {
		return
	}
	lists, err := h.listService.ByUser(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	respondOK(c, lists)
}

func (h *ListHandler) Get(c *gin.Context) {
	userID, ok := paramID(c, "user_id")
	if !ok {
		return
	}
	listID, ok := paramID(c, "list_id")
	if !ok {
		return
	}
	list, err := h.listService.Get(c.Request.Context(), userID, listID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	respondOK(c, list)
}

func (h *ListHandler) Create(c *gin.Context) {
	userID, ok := pathUser(c, "user_id")
	if !ok {
		return
	}
	var req services.CreateListRequest
	if !bindJSON(c, &req) {
		return
	}

	list, err := h.listService.Create(c.Request.Context(), userID, &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	respond(c, http.StatusCreated, list)
}

func (h *ListHandler) AddMovie(c *gin.Context) {
	userID, ok := pathUser(c, "user_id")
	if !ok {
		return
	}
	listID, ok := paramID(c, "list_id")
	if !ok {
		return
	}
	var req services.ListItemRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.listService.AddMovie(c.Request.Context(), userID, listID, req.MovieID); err != nil {
		_ = c.Error(err)
		return
	}
	respond(c, http.StatusCreated, "Movie added to list")
}

func (h *ListHandler) Delete(c *gin.Context) {
	userID, ok := pathUser(c, "user_id")
	if !ok {
		return
	}
	listID, ok := paramID(c, "list_id")
	if !ok {
		return
	}
	if err := h.listService.Delete(c.Request.Context(), userID, listID); err != nil {
		_ = c.Error(err)
		return
	}
	respondOK(c, "List deleted")
}

func (h *ListHandler) RemoveMovie(c *gin.Context) {
	userID, ok := pathUser(c, "user_id")
	if !ok {
		return
	}
	listID, ok := paramID(c, "list_id")
	if !ok {
		return
	}
	movieID, ok := paramID(c, "movie_id")
	if !ok {
		return
	}
	if err := h.listService.RemoveMovie(c.Request.Context(), userID, listID, movieID); err != nil {
		_ = c.Error(err)
		return
	}
	respondOK(c, "Movie removed from list")
}

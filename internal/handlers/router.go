package handlers

import (
	"net/http"
	"time"

	"github.com/cinematch/cinematch/internal/config"
	"github.com/cinematch/cinematch/internal/middleware"
	"github.com/cinematch/cinematch/pkg/logger"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Auth           *AuthHandler
	Movie          *MovieHandler
	Log            *LogHandler
	User           *UserHandler
	Favorite       *FavoriteHandler
	Watchlist      *WatchlistHandler
	List           *ListHandler
	Follow         *FollowHandler
	Like           *LikeHandler
	Activity       *ActivityHandler
	Recommendation *RecommendationHandler
	WebSocket      *WebSocketHandler
}

type RouterConfig struct {
	JWT         *middleware.JWTConfig
	Limiter     middleware.WindowCounter
	RateLimit   config.RateLimitConfig
	FrontendURL string
	UploadDir   string
	Logger      *logger.Logger
}

func NewRouter(h Handlers, cfg RouterConfig) *gin.Engine {
	middleware.UseJSONFieldNames()

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(cfg.Logger),
		middleware.ErrorHandler(cfg.Logger),
		middleware.CORS(cfg.FrontendURL),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})
	if cfg.UploadDir != "" {
		router.Static("/uploads/images", cfg.UploadDir)
	}
	if h.WebSocket != nil {
		h.WebSocket.RegisterRoutes(router)
	}

	api := router.Group("/api")
	api.Use(middleware.RateLimit(cfg.Limiter, "global", cfg.RateLimit.MaxRequests, cfg.RateLimit.Window, cfg.Logger))

	strict := middleware.RateLimit(cfg.Limiter, "auth", cfg.RateLimit.AuthMaxRequests, cfg.RateLimit.Window, cfg.Logger)
	h.Auth.RegisterRoutes(api, strict)

	protected := api.Group("")
	protected.Use(middleware.NewJWTAuth(cfg.JWT))
	{
		h.Auth.RegisterProtectedRoutes(protected)
		h.Movie.RegisterRoutes(protected)
		h.Log.RegisterRoutes(protected)
		h.User.RegisterRoutes(protected)
		h.Favorite.RegisterRoutes(protected)
		h.Watchlist.RegisterRoutes(protected)
		h.List.RegisterRoutes(protected)
		h.Follow.RegisterRoutes(protected)
		h.Like.RegisterRoutes(protected)
		h.Activity.RegisterRoutes(protected)
		h.Recommendation.RegisterRoutes(protected)
	}

	return router
}

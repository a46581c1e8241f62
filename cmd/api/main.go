package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cinematch/cinematch/internal/config"
	"github.com/cinematch/cinematch/internal/handlers"
	"github.com/cinematch/cinematch/internal/middleware"
	"github.com/cinematch/cinematch/internal/repository"
	"github.com/cinematch/cinematch/internal/services"
	"github.com/cinematch/cinematch/internal/workers"
	"github.com/cinematch/cinematch/pkg/cache"
	"github.com/cinematch/cinematch/pkg/docstore"
	"github.com/cinematch/cinematch/pkg/logger"
	"github.com/cinematch/cinematch/pkg/mail"
	"github.com/cinematch/cinematch/pkg/queue"
	"github.com/cinematch/cinematch/pkg/realtime"
	"github.com/cinematch/cinematch/pkg/recommender"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logger.New(logger.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	logger.Info("Starting Cinematch API server...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := repository.NewDatabase(&cfg.Database)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		logger.WithError(err).Fatal("Failed to migrate database")
	}

	store, err := docstore.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer store.Close(context.Background())

	if err := store.EnsureIndexes(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to create MongoDB indexes")
	}

	redisClient := cache.NewRedisClient(
		cfg.Redis.Addr(),
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.Redis.PoolSize,
		cfg.Redis.MinIdleConns,
	)
	defer redisClient.Close()

	if err := redisClient.Ping(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}

	eventsProducer := queue.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics.DomainEvents)
	defer eventsProducer.Close()

	mailProducer := queue.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics.Mail)
	defer mailProducer.Close()

	allowList, err := services.LoadLinks(cfg.Recommender.LinksPath)
	if err != nil {
		logger.WithError(err).Warn("Failed to load recommender links, recommender listing will be empty")
		allowList = map[int64]struct{}{}
	}

	userRepo := repository.NewUserRepository(db.DB)
	followRepo := repository.NewFollowRepository(db.DB)
	likeRepo := repository.NewLikeRepository(db.DB)
	movieRepo := repository.NewMovieRepository(db.DB)
	logRepo := repository.NewWatchLogRepository(db.DB)
	favoriteRepo := repository.NewFavoriteRepository(db.DB)
	watchlistRepo := repository.NewWatchlistRepository(db.DB)
	listRepo := repository.NewListRepository(db.DB)
	movieDocRepo := repository.NewMovieDocRepository(store.Collection(docstore.MoviesCollection))
	activityRepo := repository.NewActivityRepository(store.Collection(docstore.ActivitiesCollection))
	recommendationRepo := repository.NewRecommendationRepository(store.Collection(docstore.RecommendationsCollection))

	jwtConfig := &middleware.JWTConfig{
		Secret:        cfg.JWT.Secret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		AccessTTL:     cfg.JWT.AccessTTL,
		RememberTTL:   cfg.JWT.RememberTTL,
	}
	mailer := mail.NewOutbox(mailProducer)
	composer := mail.NewComposer(cfg.Mail.Domain, cfg.Mail.AdminEmail, cfg.Server.FrontendURL)

	movieService := services.NewMovieService(movieRepo, movieDocRepo, redisClient, allowList, cfg.Cache.MoviesTTL, logger)
	activityService := services.NewActivityService(activityRepo, followRepo, logger)
	authService := services.NewAuthService(userRepo, followRepo, redisClient, jwtConfig, mailer, composer, eventsProducer, services.AuthConfig{
		ActivationTTL: cfg.Tokens.ActivationTTL,
		ResetTTL:      cfg.Tokens.ResetTTL,
		AccessTTL:     cfg.JWT.AccessTTL,
		RememberTTL:   cfg.JWT.RememberTTL,
	}, logger)
	userService := services.NewUserService(userRepo, followRepo, activityRepo, eventsProducer, cfg.Server.UploadDir, cfg.Server.MaxUploadMB<<20, logger)
	logService := services.NewLogService(logRepo, userRepo, movieRepo, movieService, activityService, redisClient, eventsProducer, cfg.Cache.StatsTTL, logger)
	favoriteService := services.NewFavoriteService(favoriteRepo, movieRepo, movieService, logger)
	watchlistService := services.NewWatchlistService(watchlistRepo, movieRepo, userRepo, movieService, activityService, eventsProducer, logger)
	listService := services.NewListService(listRepo, movieRepo, movieService, logger)
	followService := services.NewFollowService(followRepo, userRepo, activityService, eventsProducer, logger)
	likeService := services.NewLikeService(likeRepo, logRepo, userRepo, activityService, eventsProducer, logger)
	recommendationService := services.NewRecommendationService(
		recommender.NewClient(cfg.Recommender.URL, cfg.Recommender.Timeout),
		recommendationRepo,
		logRepo,
		logger,
	)
	contactService := services.NewContactService(mailer, composer, logger)

	hub := realtime.NewHub(logger)
	go hub.Run(ctx)

	activityStream := workers.NewActivityStream(activityRepo, hub, logger)
	go activityStream.Run(ctx)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := handlers.NewRouter(handlers.Handlers{
		Auth:           handlers.NewAuthHandler(authService),
		Movie:          handlers.NewMovieHandler(movieService),
		Log:            handlers.NewLogHandler(logService),
		User:           handlers.NewUserHandler(userService, cfg.Server.MaxUploadMB<<20),
		Favorite:       handlers.NewFavoriteHandler(favoriteService),
		Watchlist:      handlers.NewWatchlistHandler(watchlistService),
		List:           handlers.NewListHandler(listService),
		Follow:         handlers.NewFollowHandler(followService),
		Like:           handlers.NewLikeHandler(likeService),
		Activity:       handlers.NewActivityHandler(activityService),
		Recommendation: handlers.NewRecommendationHandler(recommendationService, contactService),
		WebSocket:      handlers.NewWebSocketHandler(hub, jwtConfig, cfg.Server.FrontendURL, logger),
	}, handlers.RouterConfig{
		JWT:         jwtConfig,
		Limiter:     redisClient,
		RateLimit:   cfg.RateLimit,
		FrontendURL: cfg.Server.FrontendURL,
		UploadDir:   cfg.Server.UploadDir,
		Logger:      logger,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start HTTP server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
	cancel()

	logger.Info("Server exited")
}

func init() {
	dirs := []string{"logs", "uploads/images", "configs"}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Printf("Failed to create directory %s: %v", dir, err)
		}
	}
}

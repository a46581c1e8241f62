package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/cinematch/cinematch/internal/config"
	"github.com/cinematch/cinematch/internal/repository"
	"github.com/cinematch/cinematch/internal/services"
	"github.com/cinematch/cinematch/internal/workers"
	"github.com/cinematch/cinematch/pkg/cache"
	"github.com/cinematch/cinematch/pkg/docstore"
	"github.com/cinematch/cinematch/pkg/logger"
	"github.com/cinematch/cinematch/pkg/mail"
	"github.com/cinematch/cinematch/pkg/queue"
	"github.com/cinematch/cinematch/pkg/tmdb"
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
	logger.Info("Starting Cinematch worker...")

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

	eventsConsumer := queue.NewKafkaConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.DomainEvents, cfg.Kafka.GroupID+"-events")
	mailConsumer := queue.NewKafkaConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.Mail, cfg.Kafka.GroupID+"-mail")

	movieRepo := repository.NewMovieRepository(db.DB)
	movieDocRepo := repository.NewMovieDocRepository(store.Collection(docstore.MoviesCollection))
	movieService := services.NewMovieService(movieRepo, movieDocRepo, redisClient, nil, cfg.Cache.MoviesTTL, logger)

	ingestionWorker := workers.NewIngestionWorker(
		tmdb.NewClient(cfg.TMDB.APIKey, cfg.TMDB.BaseURL, cfg.TMDB.RequestsPerSecond),
		movieRepo,
		movieDocRepo,
		redisClient,
		eventsProducer,
		workers.IngestionConfig{
			Interval:     cfg.TMDB.Interval,
			PagesPerTick: cfg.TMDB.PagesPerTick,
			FloorYear:    cfg.TMDB.FloorYear,
			StartDate:    cfg.TMDB.StartDate,
		},
		logger,
	)
	eventWorker := workers.NewEventWorker(eventsConsumer, redisClient, movieService, logger)
	mailWorker := workers.NewMailWorker(mailConsumer, mail.NewResendClient(cfg.Mail.ProviderKey, cfg.Mail.APIURL), logger)

	var wg sync.WaitGroup
	run := func(name string, start func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := start(ctx); err != nil && ctx.Err() == nil {
				logger.WithError(err).WithField("worker", name).Error("Worker stopped with error")
			}
		}()
	}

	if cfg.TMDB.APIKey != "" {
		run("ingestion", ingestionWorker.Start)
	} else {
		logger.Warn("TMDB api key not set, catalog ingestion disabled")
	}
	run("events", eventWorker.Start)
	run("mail", mailWorker.Start)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	cancel()

	if err := eventWorker.Stop(); err != nil {
		logger.WithError(err).Error("Failed to stop event worker")
	}
	if err := mailWorker.Stop(); err != nil {
		logger.WithError(err).Error("Failed to stop mail worker")
	}
	wg.Wait()

	logger.Info("Worker exited")
}

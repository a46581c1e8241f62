package workers

import (
	"context"
	"fmt"

	"github.com/cinematch/cinematch/internal/services"
	"github.com/cinematch/cinematch/pkg/logger"
	"github.com/cinematch/cinematch/pkg/queue"
)

type Consumer interface {
	Subscribe(ctx context.Context, handler func(queue.Message) error, onError func(queue.Message, error)) error
	Close() error
}

type KeyDeleter interface {
	Delete(ctx context.Context, keys ...string) error
}

type CatalogCache interface {
	InvalidateCache(ctx context.Context) error
}

// EventWorker keeps derived caches in step with domain events.
type EventWorker struct {
	consumer Consumer
	cache    KeyDeleter
	catalog  CatalogCache
	logger   *logger.Logger
}

func NewEventWorker(consumer Consumer, cache KeyDeleter, catalog CatalogCache, logger *logger.Logger) *EventWorker {
	return &EventWorker{
		consumer: consumer,
		cache:    cache,
		catalog:  catalog,
		logger:   logger,
	}
}

func (w *EventWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting event worker...")

	return w.consumer.Subscribe(ctx, func(msg queue.Message) error {
		return w.Handle(ctx, msg)
	}, func(msg queue.Message, err error) {
		w.logger.WithError(err).WithField("key", msg.Key).Error("Failed to handle domain event")
	})
}

func (w *EventWorker) Handle(ctx context.Context, msg queue.Message) error {
	event, err := msg.Decode()
	if err != nil {
		return err
	}

	w.logger.WithFields(map[string]interface{}{
		"event_type": event.Type,
		"timestamp":  event.Timestamp,
	}).Debug("Processing event")

	switch event.Type {
	case queue.EventLogCreated, queue.EventLogUpdated, queue.EventLogDeleted:
		var data queue.LogEventData
		if err := event.Into(&data); err != nil {
			return fmt.Errorf("invalid %s event data: %w", event.Type, err)
		}
		return w.dropMovieStats(ctx, data.MovieID)
	case queue.EventWatchlistAdded, queue.EventWatchlistRemoved:
		var data queue.WatchlistEventData
		if err := event.Into(&data); err != nil {
			return fmt.Errorf("invalid %s event data: %w", event.Type, err)
		}
		return w.dropMovieStats(ctx, data.MovieID)
	case queue.EventCatalogRefreshed:
		return w.catalog.InvalidateCache(ctx)
	case queue.EventUserCreated, queue.EventUserDeleted,
		queue.EventFollowCreated, queue.EventFollowDeleted,
		queue.EventLikeCreated, queue.EventLikeDeleted:
		w.logger.WithFields(map[string]interface{}{
			"event_type": event.Type,
			"key":        msg.Key,
		}).Info("Domain event received")
		return nil
	default:
		w.logger.WithField("event_type", event.Type).Warn("Unknown event type")
		return nil
	}
}

func (w *EventWorker) dropMovieStats(ctx context.Context, movieID int64) error {
	if movieID == 0 {
		return nil
	}
	if err := w.cache.Delete(ctx, services.MovieStatsKey(movieID)); err != nil {
		return fmt.Errorf("failed to invalidate movie stats: %w", err)
	}
	return nil
}

func (w *EventWorker) Stop() error {
	w.logger.Info("Stopping event worker...")
	return w.consumer.Close()
}

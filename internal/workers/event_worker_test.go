package workers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/cinematch/cinematch/internal/services"
	"github.com/cinematch/cinematch/pkg/logger"
	"github.com/cinematch/cinematch/pkg/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type deletedKeys struct {
	keys []string
	err  error
}

func (d *deletedKeys) Delete(ctx context.Context, keys ...string) error {
	if d.err != nil {
		return d.err
	}
	d.keys = append(d.keys, keys...)
	return nil
}

type catalogCache struct{ invalidations int }

func (c *catalogCache) InvalidateCache(ctx context.Context) error {
	c.invalidations++
	return nil
}

type idleConsumer struct{ closed bool }

func (c *idleConsumer) Subscribe(ctx context.Context, handler func(queue.Message) error, onError func(queue.Message, error)) error {
	<-ctx.Done()
	return nil
}

func (c *idleConsumer) Close() error {
	c.closed = true
	return nil
}

func eventMessage(t *testing.T, eventType queue.EventType, data interface{}) queue.Message {
	t.Helper()
	event, err := queue.NewEvent(eventType, data)
	require.NoError(t, err)
	value, err := json.Marshal(event)
	require.NoError(t, err)
	return queue.Message{Key: "k", Value: value}
}

func TestEventWorkerDropsMovieStats(t *testing.T) {
	ctx := context.Background()
	cache := &deletedKeys{}
	worker := NewEventWorker(&idleConsumer{}, cache, &catalogCache{}, logger.Discard())

	require.NoError(t, worker.Handle(ctx, eventMessage(t, queue.EventLogCreated, queue.LogEventData{LogID: 1, UserID: 2, MovieID: 603})))
	require.NoError(t, worker.Handle(ctx, eventMessage(t, queue.EventWatchlistRemoved, queue.WatchlistEventData{UserID: 2, MovieID: 11})))
	require.NoError(t, worker.Handle(ctx, eventMessage(t, queue.EventLogDeleted, queue.LogEventData{LogID: 1})))

	assert.Equal(t, []string{services.MovieStatsKey(603), services.MovieStatsKey(11)}, cache.keys)
}

func TestEventWorkerInvalidatesCatalog(t *testing.T) {
	catalog := &catalogCache{}
	worker := NewEventWorker(&idleConsumer{}, &deletedKeys{}, catalog, logger.Discard())

	require.NoError(t, worker.Handle(context.Background(), eventMessage(t, queue.EventCatalogRefreshed, map[string]int{"ingested": 3})))
	assert.Equal(t, 1, catalog.invalidations)
}

func TestEventWorkerErrors(t *testing.T) {
	ctx := context.Background()
	cache := &deletedKeys{err: errors.New("redis down")}
	worker := NewEventWorker(&idleConsumer{}, cache, &catalogCache{}, logger.Discard())

	err := worker.Handle(ctx, eventMessage(t, queue.EventLogUpdated, queue.LogEventData{MovieID: 5}))
	assert.ErrorContains(t, err, "redis down")

	err = worker.Handle(ctx, queue.Message{Value: []byte("{")})
	assert.Error(t, err)

	assert.NoError(t, worker.Handle(ctx, eventMessage(t, queue.EventFollowCreated, queue.FollowEventData{FollowerID: 1, FollowedID: 2})))
	assert.NoError(t, worker.Handle(ctx, eventMessage(t, "something_else", nil)))
}

func TestEventWorkerStopClosesConsumer(t *testing.T) {
	consumer := &idleConsumer{}
	worker := NewEventWorker(consumer, &deletedKeys{}, &catalogCache{}, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Start(ctx) }()
	cancel()

	require.NoError(t, <-done)
	require.NoError(t, worker.Stop())
	assert.True(t, consumer.closed)
}

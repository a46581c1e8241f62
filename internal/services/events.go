package services

import (
	"context"
	"strconv"

	"github.com/cinematch/cinematch/pkg/logger"
	"github.com/cinematch/cinematch/pkg/queue"
)

// publishEvent emits a domain event keyed by the acting user. A nil
// publisher disables events; publish failures are only logged.
func publishEvent(ctx context.Context, publisher EventPublisher, log *logger.Logger, eventType queue.EventType, userID int64, data interface{}) {
	if publisher == nil {
		return
	}

	event, err := queue.NewEvent(eventType, data)
	if err != nil {
		log.WithError(err).WithField("event_type", eventType).Error("Failed to build event")
		return
	}
	if err := publisher.Publish(ctx, strconv.FormatInt(userID, 10), event); err != nil {
		log.WithError(err).WithField("event_type", eventType).Error("Failed to publish event")
	}
}

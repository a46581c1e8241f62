package workers

import (
	"context"
	"time"

	"github.com/cinematch/cinematch/internal/models"
	"github.com/cinematch/cinematch/pkg/logger"
	"github.com/cinematch/cinematch/pkg/realtime"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const streamRetryDelay = 5 * time.Second

// ActivityWatcher opens a change stream, resuming after the given token
// when it is non-nil.
type ActivityWatcher interface {
	Watch(ctx context.Context, resumeAfter bson.Raw) (*mongo.ChangeStream, error)
}

// changeStream is the part of *mongo.ChangeStream the consumer uses.
type changeStream interface {
	Next(ctx context.Context) bool
	Decode(val interface{}) error
	ResumeToken() bson.Raw
	Err() error
	Close(ctx context.Context) error
}

type Pusher interface {
	Broadcast(message realtime.Message)
	SendToUser(userID int64, message realtime.Message)
}

// ActivityChange is the subset of a change stream event the stream reads.
type ActivityChange struct {
	OperationType string           `bson:"operationType"`
	FullDocument  *models.Activity `bson:"fullDocument"`
	DocumentKey   struct {
		ID primitive.ObjectID `bson:"_id"`
	} `bson:"documentKey"`
}

// ActivityStream relays activity inserts and deletes to websocket clients.
type ActivityStream struct {
	source ActivityWatcher
	pusher Pusher
	logger *logger.Logger
	// resumeToken marks the last event handled so a reopened stream
	// continues after it.
	resumeToken bson.Raw
}

func NewActivityStream(source ActivityWatcher, pusher Pusher, logger *logger.Logger) *ActivityStream {
	return &ActivityStream{
		source: source,
		pusher: pusher,
		logger: logger,
	}
}

// Run watches until ctx is cancelled, reopening the stream after failures.
func (s *ActivityStream) Run(ctx context.Context) {
	s.logger.Info("Starting activity stream...")

	for {
		stream, err := s.source.Watch(ctx, s.resumeToken)
		if err != nil {
			s.logger.WithError(err).Error("Failed to open activity change stream")
			if s.resumeToken != nil {
				// The token may have fallen off the oplog; start fresh next time.
				s.logger.Warn("Dropping activity stream resume token")
				s.resumeToken = nil
			}
		} else {
			s.consume(ctx, stream)
		}

		select {
		case <-ctx.Done():
			s.logger.Info("Activity stream stopped")
			return
		case <-time.After(streamRetryDelay):
		}
	}
}

func (s *ActivityStream) consume(ctx context.Context, stream changeStream) {
	defer stream.Close(context.Background())

	for stream.Next(ctx) {
		var change ActivityChange
		if err := stream.Decode(&change); err != nil {
			s.logger.WithError(err).Warn("Failed to decode activity change")
		} else {
			s.Dispatch(change)
		}
		s.saveResumeToken(stream)
	}
	s.saveResumeToken(stream)
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		s.logger.WithError(err).Error("Activity change stream failed")
	}
}

func (s *ActivityStream) saveResumeToken(stream changeStream) {
	if token := stream.ResumeToken(); token != nil {
		s.resumeToken = append(bson.Raw(nil), token...)
	}
}

// Dispatch pushes one change. Follows and likes also notify their target.
func (s *ActivityStream) Dispatch(change ActivityChange) {
	switch change.OperationType {
	case "insert":
		activity := change.FullDocument
		if activity == nil {
			return
		}
		if activity.TargetUserID != 0 && (activity.Type == models.ActivityFollow || activity.Type == models.ActivityLike) {
			s.pusher.SendToUser(activity.TargetUserID, realtime.Message{
				Type: realtime.MessageTypeNotification,
				Data: activity,
			})
		}
		s.pusher.Broadcast(realtime.Message{
			Type: realtime.MessageTypeFeedUpdate,
			Data: activity,
		})
	case "delete":
		s.pusher.Broadcast(realtime.Message{
			Type: realtime.MessageTypeActivityDeleted,
			Data: map[string]string{"id": change.DocumentKey.ID.Hex()},
		})
	}
}

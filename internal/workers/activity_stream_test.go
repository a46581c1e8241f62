package workers

import (
	"context"
	"errors"
	"testing"

	"github.com/cinematch/cinematch/internal/models"
	"github.com/cinematch/cinematch/pkg/logger"
	"github.com/cinematch/cinematch/pkg/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type pushed struct {
	userID  int64
	message realtime.Message
}

type recordingPusher struct {
	broadcasts []realtime.Message
	direct     []pushed
}

func (p *recordingPusher) Broadcast(message realtime.Message) {
	p.broadcasts = append(p.broadcasts, message)
}

func (p *recordingPusher) SendToUser(userID int64, message realtime.Message) {
	p.direct = append(p.direct, pushed{userID: userID, message: message})
}

func TestDispatchFollowNotifiesTarget(t *testing.T) {
	pusher := &recordingPusher{}
	stream := NewActivityStream(nil, pusher, logger.Discard())

	stream.Dispatch(ActivityChange{
		OperationType: "insert",
		FullDocument:  &models.Activity{Type: models.ActivityFollow, ActorID: 1, TargetUserID: 2},
	})

	require.Len(t, pusher.direct, 1)
	assert.Equal(t, int64(2), pusher.direct[0].userID)
	assert.Equal(t, realtime.MessageTypeNotification, pusher.direct[0].message.Type)
	require.Len(t, pusher.broadcasts, 1)
	assert.Equal(t, realtime.MessageTypeFeedUpdate, pusher.broadcasts[0].Type)
}

func TestDispatchWatchedOnlyBroadcasts(t *testing.T) {
	pusher := &recordingPusher{}
	stream := NewActivityStream(nil, pusher, logger.Discard())

	stream.Dispatch(ActivityChange{
		OperationType: "insert",
		FullDocument:  &models.Activity{Type: models.ActivityWatched, ActorID: 1, MovieID: 603},
	})
	stream.Dispatch(ActivityChange{OperationType: "insert"})
	stream.Dispatch(ActivityChange{OperationType: "update"})

	assert.Empty(t, pusher.direct)
	assert.Len(t, pusher.broadcasts, 1)
}

func TestDispatchDeleteBroadcastsID(t *testing.T) {
	pusher := &recordingPusher{}
	stream := NewActivityStream(nil, pusher, logger.Discard())

	change := ActivityChange{OperationType: "delete"}
	change.DocumentKey.ID = primitive.NewObjectID()
	stream.Dispatch(change)

	require.Len(t, pusher.broadcasts, 1)
	assert.Equal(t, realtime.MessageTypeActivityDeleted, pusher.broadcasts[0].Type)
	assert.Equal(t, map[string]string{"id": change.DocumentKey.ID.Hex()}, pusher.broadcasts[0].Data)
}

// scriptedStream replays events, each paired with the resume token the
// server would report after it. A nil event fails to decode.
type scriptedStream struct {
	events []interface{}
	tokens []bson.Raw
	pos    int
	closed bool
}

func (s *scriptedStream) Next(ctx context.Context) bool {
	if s.pos >= len(s.events) {
		return false
	}
	s.pos++
	return true
}

func (s *scriptedStream) Decode(val interface{}) error {
	event := s.events[s.pos-1]
	if event == nil {
		return errors.New("corrupt event")
	}
	raw, err := bson.Marshal(event)
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, val)
}

func (s *scriptedStream) ResumeToken() bson.Raw {
	if s.pos == 0 {
		return nil
	}
	return s.tokens[s.pos-1]
}

func (s *scriptedStream) Err() error { return nil }

func (s *scriptedStream) Close(ctx context.Context) error {
	s.closed = true
	return nil
}

func resumeToken(t *testing.T, data string) bson.Raw {
	t.Helper()
	raw, err := bson.Marshal(bson.M{"_data": data})
	require.NoError(t, err)
	return raw
}

type tokenWatcher struct {
	cancel context.CancelFunc
	seen   []bson.Raw
}

func (w *tokenWatcher) Watch(ctx context.Context, resumeAfter bson.Raw) (*mongo.ChangeStream, error) {
	w.seen = append(w.seen, resumeAfter)
	w.cancel()
	return nil, errors.New("replica set unavailable")
}

func TestStreamReopensAfterLastToken(t *testing.T) {
	pusher := &recordingPusher{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watcher := &tokenWatcher{cancel: cancel}
	stream := NewActivityStream(watcher, pusher, logger.Discard())

	scripted := &scriptedStream{
		events: []interface{}{
			bson.M{"operationType": "insert", "fullDocument": bson.M{"type": "watched", "actorId": 1, "movieId": 603}},
			nil,
		},
		tokens: []bson.Raw{resumeToken(t, "first"), resumeToken(t, "second")},
	}
	stream.consume(context.Background(), scripted)

	assert.True(t, scripted.closed)
	assert.Len(t, pusher.broadcasts, 1)
	assert.Equal(t, resumeToken(t, "second"), stream.resumeToken)

	stream.Run(ctx)

	require.Len(t, watcher.seen, 1)
	assert.Equal(t, resumeToken(t, "second"), watcher.seen[0])
	assert.Nil(t, stream.resumeToken)
}

package workers

import (
	"context"
	"errors"
	"testing"

	"github.com/cinematch/cinematch/pkg/logger"
	"github.com/cinematch/cinematch/pkg/mail"
	"github.com/cinematch/cinematch/pkg/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSender struct {
	sent []mail.Message
	err  error
}

func (s *stubSender) Send(ctx context.Context, msg mail.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func TestMailWorkerDelivers(t *testing.T) {
	sender := &stubSender{}
	worker := NewMailWorker(&idleConsumer{}, sender, logger.Discard())

	msg := mail.Message{From: "admin@example.com", To: "ana@example.com", Subject: "Activate your account", HTML: "<p>hi</p>"}
	require.NoError(t, worker.Handle(context.Background(), eventMessage(t, queue.EventMailRequested, msg)))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, msg, sender.sent[0])
}

func TestMailWorkerIgnoresOtherEvents(t *testing.T) {
	sender := &stubSender{}
	worker := NewMailWorker(&idleConsumer{}, sender, logger.Discard())

	require.NoError(t, worker.Handle(context.Background(), eventMessage(t, queue.EventUserCreated, queue.UserEventData{UserID: 1})))
	assert.Empty(t, sender.sent)
}

func TestMailWorkerSurfacesSendFailure(t *testing.T) {
	sender := &stubSender{err: errors.New("provider rejected")}
	worker := NewMailWorker(&idleConsumer{}, sender, logger.Discard())

	err := worker.Handle(context.Background(), eventMessage(t, queue.EventMailRequested, mail.Message{To: "ana@example.com"}))
	assert.ErrorContains(t, err, "provider rejected")
}

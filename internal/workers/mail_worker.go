package workers

import (
	"context"
	"fmt"

	"github.com/cinematch/cinematch/pkg/logger"
	"github.com/cinematch/cinematch/pkg/mail"
	"github.com/cinematch/cinematch/pkg/queue"
)

// MailWorker drains the mail outbox topic into the mail provider.
type MailWorker struct {
	consumer Consumer
	sender   mail.Sender
	logger   *logger.Logger
}

func NewMailWorker(consumer Consumer, sender mail.Sender, logger *logger.Logger) *MailWorker {
	return &MailWorker{
		consumer: consumer,
		sender:   sender,
		logger:   logger,
	}
}

func (w *MailWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting mail worker...")

	return w.consumer.Subscribe(ctx, func(msg queue.Message) error {
		return w.Handle(ctx, msg)
	}, func(msg queue.Message, err error) {
		w.logger.WithError(err).WithField("key", msg.Key).Error("Failed to deliver mail")
	})
}

func (w *MailWorker) Handle(ctx context.Context, msg queue.Message) error {
	event, err := msg.Decode()
	if err != nil {
		return err
	}
	if event.Type != queue.EventMailRequested {
		w.logger.WithField("event_type", event.Type).Warn("Unexpected event on mail topic")
		return nil
	}

	var message mail.Message
	if err := event.Into(&message); err != nil {
		return fmt.Errorf("invalid mail event data: %w", err)
	}
	if err := w.sender.Send(ctx, message); err != nil {
		return err
	}

	w.logger.WithFields(map[string]interface{}{
		"to":      message.To,
		"subject": message.Subject,
	}).Info("Mail delivered")
	return nil
}

func (w *MailWorker) Stop() error {
	w.logger.Info("Stopping mail worker...")
	return w.consumer.Close()
}

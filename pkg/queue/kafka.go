package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

type KafkaProducer struct {
	writer *kafka.Writer
}

type KafkaConsumer struct {
	reader *kafka.Reader
}

func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		Async:                  false,
		AllowAutoTopicCreation: true,
	}

	return &KafkaProducer{writer: writer}
}

func NewKafkaConsumer(brokers []string, topic, groupID string) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		CommitInterval: 1 * time.Second,
		StartOffset:    kafka.FirstOffset,
	})

	return &KafkaConsumer{reader: reader}
}

func (p *KafkaProducer) Publish(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}

	return p.writer.WriteMessages(ctx, message)
}

// Subscribe blocks, handing each message's raw payload to handler until ctx
// is cancelled. Handler errors are reported through onError and the message
// is skipped.
func (c *KafkaConsumer) Subscribe(ctx context.Context, handler func(Message) error, onError func(Message, error)) error {
	for {
		message, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to read message: %w", err)
		}

		msg := Message{
			Key:   string(message.Key),
			Value: message.Value,
			Topic: message.Topic,
		}

		if err := handler(msg); err != nil && onError != nil {
			onError(msg, err)
		}
	}
}

func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

type Message struct {
	Key   string
	Value []byte
	Topic string
}

// Decode unmarshals the message payload into an Event envelope.
func (m Message) Decode() (*Event, error) {
	var event Event
	if err := json.Unmarshal(m.Value, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return &event, nil
}

type EventType string

const (
	EventUserCreated      EventType = "user_created"
	EventUserDeleted      EventType = "user_deleted"
	EventLogCreated       EventType = "log_created"
	EventLogUpdated       EventType = "log_updated"
	EventLogDeleted       EventType = "log_deleted"
	EventFollowCreated    EventType = "follow_created"
	EventFollowDeleted    EventType = "follow_deleted"
	EventLikeCreated      EventType = "like_created"
	EventLikeDeleted      EventType = "like_deleted"
	EventWatchlistAdded   EventType = "watchlist_added"
	EventWatchlistRemoved EventType = "watchlist_removed"
	EventMailRequested    EventType = "mail_requested"
	EventCatalogRefreshed EventType = "catalog_refreshed"
)

type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewEvent wraps data in an envelope stamped with the current time.
func NewEvent(eventType EventType, data interface{}) (*Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event data: %w", err)
	}
	return &Event{Type: eventType, Timestamp: time.Now(), Data: raw}, nil
}

// Into decodes the event payload into dest.
func (e *Event) Into(dest interface{}) error {
	return json.Unmarshal(e.Data, dest)
}

type LogEventData struct {
	LogID   int64 `json:"log_id"`
	UserID  int64 `json:"user_id"`
	MovieID int64 `json:"movie_id"`
}

type FollowEventData struct {
	FollowerID int64 `json:"follower_id"`
	FollowedID int64 `json:"followed_id"`
}

type LikeEventData struct {
	UserID   int64 `json:"user_id"`
	ReviewID int64 `json:"review_id"`
}

type WatchlistEventData struct {
	UserID  int64 `json:"user_id"`
	MovieID int64 `json:"movie_id"`
}

type UserEventData struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

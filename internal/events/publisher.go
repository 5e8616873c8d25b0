package events

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/segmentio/kafka-go"
)

// Event is one mail lifecycle transition published out-of-band, letting
// consumers observe awaiting, sent, retrying and failed hops without
// polling the mails table.
type Event struct {
	EventID string    `json:"event_id"`
	MailID  string    `json:"mail_id"`
	Status  string    `json:"status"`
	Trials  int16     `json:"trials"`
	Error   string    `json:"error,omitempty"`
	At      time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NewID generates a time-ordered ULID for an event.
func NewID() string {
	t := time.Now()
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// KafkaPublisher writes events to a single topic, keyed by mail id so all
// hops of one mail land in one partition, in order.
type KafkaPublisher struct {
	w *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	if e.EventID == "" {
		e.EventID = NewID()
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.MailID),
		Value: payload,
	})
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }

// NopPublisher is used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

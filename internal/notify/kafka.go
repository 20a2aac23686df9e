package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// MessageWriter is the part of *kafka.Writer the forwarder needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewKafkaWriter(topic string, brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{}, // session_id keeps one session's events ordered
		AllowAutoTopicCreation: true,
	}
}

// KafkaForwarder republishes bus events to Kafka for consumers outside the
// storefront process. Publishing happens on its own goroutine so the bus never
// waits on the broker; events are dropped when the buffer is full.
type KafkaForwarder struct {
	writer  MessageWriter
	events  chan Event
	timeout time.Duration
	log     logrus.FieldLogger
}

func NewKafkaForwarder(writer MessageWriter, buffer int, log logrus.FieldLogger) *KafkaForwarder {
	return &KafkaForwarder{
		writer:  writer,
		events:  make(chan Event, buffer),
		timeout: 5 * time.Second,
		log:     log.WithField("component", "kafka-forwarder"),
	}
}

// Handle is the bus subscriber.
func (f *KafkaForwarder) Handle(e Event) {
	select {
	case f.events <- e:
	default:
		f.log.WithField("event", e.Type).Warn("forwarder buffer full, dropping event")
	}
}

func (f *KafkaForwarder) Run(ctx context.Context) {
	for {
		select {
		case e := <-f.events:
			if err := f.publish(ctx, e); err != nil {
				f.log.WithError(err).WithField("event", e.Type).Warn("failed to publish event")
			}
		case <-ctx.Done():
			return
		}
	}
}

func (f *KafkaForwarder) Close() {
	if err := f.writer.Close(); err != nil {
		f.log.WithError(err).Warn("error closing kafka writer")
	}
}

func (f *KafkaForwarder) publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(e.SessionID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
		},
	}
	return f.writer.WriteMessages(ctx, msg)
}

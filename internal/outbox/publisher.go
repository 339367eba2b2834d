package outbox

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/dshills/shopadmin/internal/logging"
)

// Message is one event ready for publication
type Message struct {
	Topic     string
	Key       string
	EventID   string
	EventType string
	Value     []byte
	Time      time.Time
}

// Publisher delivers messages to a broker
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// ErrNoBrokers is returned when a Kafka publisher is built without brokers
var ErrNoBrokers = errors.New("kafka: no brokers configured")

// ParseBrokers splits a comma-separated broker list, dropping blanks
func ParseBrokers(csv string) []string {
	brokers := []string{}
	for _, b := range strings.Split(csv, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// messageWriter is the part of *kafka.Writer the publisher uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes messages with kafka-go. The topic is taken from each message.
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher returns a publisher for brokers
func NewKafkaPublisher(brokers []string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}}, nil
}

// Publish writes msg keyed by its Key
func (p *KafkaPublisher) Publish(ctx context.Context, msg Message) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: msg.Topic,
		Key:   []byte(msg.Key),
		Value: msg.Value,
		Time:  msg.Time,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(msg.EventID)},
			{Key: "event_type", Value: []byte(msg.EventType)},
		},
	})
}

// Close flushes and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher writes each message to the log instead of a broker
type LogPublisher struct {
	logger *logging.Logger
}

// NewLogPublisher returns a publisher that only logs
func NewLogPublisher(logger *logging.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs msg and always succeeds
func (p *LogPublisher) Publish(_ context.Context, msg Message) error {
	p.logger.Log(logging.Fields{
		Op:      "outbox.publish",
		OrderID: msg.Key,
		EventID: msg.EventID,
		Status:  "logged",
		Message: msg.EventType + " -> " + msg.Topic,
	})
	return nil
}

// Close is a no-op
func (p *LogPublisher) Close() error {
	return nil
}

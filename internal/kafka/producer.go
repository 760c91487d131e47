package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"ms-booking/internal/config"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	Writer messageWriter
	Topics config.TopicConfig
	Logger *logger.Logger
}

func NewProducer(brokers []string, topics config.TopicConfig, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return &Producer{Writer: writer, Topics: topics, Logger: log}
}

// Publish writes one message to topic.
func (p *Producer) Publish(ctx context.Context, topic, key string, value []byte) error {
	return p.Writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	})
}

// PublishTicketEvent streams a ticket state change, keyed by ticket id so
// events of one ticket stay ordered.
func (p *Producer) PublishTicketEvent(ctx context.Context, event models.TicketEvent) error {
	topic, err := p.topicFor(event.Type)
	if err != nil {
		return err
	}

	msgBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := p.Publish(ctx, topic, event.TicketID, msgBytes); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	p.Logger.LogKafka("PUBLISH", topic, event.TicketID)
	return nil
}

func (p *Producer) topicFor(eventType string) (string, error) {
	switch eventType {
	case models.TicketEventBooked:
		return p.Topics.TicketBooked, nil
	case models.TicketEventCheckedIn:
		return p.Topics.TicketCheckedIn, nil
	case models.TicketEventCancelled:
		return p.Topics.TicketCancelled, nil
	}
	return "", fmt.Errorf("no topic for event type %q", eventType)
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}

// NoopProducer stands in when Kafka is disabled.
type NoopProducer struct {
	Logger *logger.Logger
}

func (n NoopProducer) PublishTicketEvent(_ context.Context, event models.TicketEvent) error {
	n.Logger.Debug("KAFKA", fmt.Sprintf("Kafka disabled, dropping %s for %s", event.Type, event.TicketID))
	return nil
}

package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"ms-booking/internal/logger"
)

const topicSetupTimeout = 10 * time.Second

// EnsureTopicsExist creates the ticket event topics. Topics that already
// exist are left alone; a failure on one topic does not stop the others.
func EnsureTopicsExist(ctx context.Context, brokers, topics []string, log *logger.Logger) error {
	if len(brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}

	ctx, cancel := context.WithTimeout(ctx, topicSetupTimeout)
	defer cancel()

	configs := make([]kafka.TopicConfig, 0, len(topics))
	for _, t := range topics {
		configs = append(configs, kafka.TopicConfig{Topic: t, NumPartitions: 1, ReplicationFactor: 1})
	}

	client := &kafka.Client{Addr: kafka.TCP(brokers...), Timeout: topicSetupTimeout}
	resp, err := client.CreateTopics(ctx, &kafka.CreateTopicsRequest{Topics: configs})
	if err != nil {
		return fmt.Errorf("create topics: %w", err)
	}

	var failed []string
	for _, t := range topics {
		switch terr := resp.Errors[t]; {
		case terr == nil:
			log.LogKafka("TOPIC", t, "created")
		case errors.Is(terr, kafka.TopicAlreadyExists):
			log.LogKafka("TOPIC", t, "already exists")
		default:
			log.Error("KAFKA", fmt.Sprintf("Error creating topic %s: %v", t, terr))
			failed = append(failed, t)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("topics not created: %v", failed)
	}
	return nil
}

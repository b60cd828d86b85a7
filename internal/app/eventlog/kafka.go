package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/rs/zerolog"

	"quicktalk/internal/app/message"
	"quicktalk/internal/pkg/logx"
)

const (
	// DefaultTopic receives one record per persisted message.
	DefaultTopic = "quicktalk.messages"

	flushTimeoutMs = 5000
)

// KafkaRecorder produces persisted messages to a Kafka topic keyed by conversation, so one
// conversation stays ordered within a partition.
type KafkaRecorder struct {
	producer *kafka.Producer
	topic    string
	doneCh   chan struct{}
	logger   zerolog.Logger
}

// NewKafkaRecorder connects a producer to brokers (comma separated) and ensures topic exists.
func NewKafkaRecorder(brokers, topic string, partitions int) (*KafkaRecorder, error) {
	if topic == "" {
		topic = DefaultTopic
	}
	logger := logx.Component("kafka_recorder")

	if err := ensureTopic(brokers, topic, partitions); err != nil {
		logger.Warn().Err(err).Str("topic", topic).Msg("Failed to ensure topic (may already exist).")
	}

	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
		"acks":              "1",
		"linger.ms":         5,
		"compression.type":  "snappy",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	r := &KafkaRecorder{
		producer: p,
		topic:    topic,
		doneCh:   make(chan struct{}),
		logger:   logger,
	}

	go r.deliveryReportHandler()

	return r, nil
}

func ensureTopic(brokers, topic string, partitions int) error {
	if partitions <= 0 {
		partitions = 1
	}

	admin, err := kafka.NewAdminClient(&kafka.ConfigMap{"bootstrap.servers": brokers})
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer admin.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results, err := admin.CreateTopics(ctx, []kafka.TopicSpecification{{
		Topic:             topic,
		NumPartitions:     partitions,
		ReplicationFactor: 1,
	}})
	if err != nil {
		return err
	}

	for _, result := range results {
		if code := result.Error.Code(); code != kafka.ErrNoError && code != kafka.ErrTopicAlreadyExists {
			return fmt.Errorf("failed to create topic %s: %v", result.Topic, result.Error)
		}
	}
	return nil
}

func (r *KafkaRecorder) deliveryReportHandler() {
	for e := range r.producer.Events() {
		if m, ok := e.(*kafka.Message); ok && m.TopicPartition.Error != nil {
			r.logger.Warn().Err(m.TopicPartition.Error).Msg("Kafka delivery failed.")
		}
	}
	close(r.doneCh)
}

// ConversationKey is the partition key of m: the two participant ids in sorted order.
func ConversationKey(m message.Message) string {
	a, b := m.SenderID, m.ReceiverID
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}

func (r *KafkaRecorder) Record(_ context.Context, m message.Message) error {
	value, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	err = r.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &r.topic, Partition: kafka.PartitionAny},
		Key:            []byte(ConversationKey(m)),
		Value:          value,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}
	return nil
}

// Close flushes outstanding records and stops the producer.
func (r *KafkaRecorder) Close() error {
	if left := r.producer.Flush(flushTimeoutMs); left > 0 {
		r.logger.Warn().Int("unflushed", left).Msg("Closing producer with undelivered records.")
	}
	r.producer.Close()
	<-r.doneCh
	return nil
}

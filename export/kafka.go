package export

import (
	"context"

	"github.com/IBM/sarama"
)

// KafkaSink produces snapshots to a Kafka topic.
//
// Example:
//
//	cfg := sarama.NewConfig()
//	cfg.Producer.Return.Successes = true
//	producer, _ := sarama.NewSyncProducer([]string{"localhost:9092"}, cfg)
//	sink := export.NewKafkaSink(producer, "probe-snapshots")
type KafkaSink struct {
	producer sarama.SyncProducer
	topic    string
	key      string
}

// KafkaOption configures a KafkaSink.
type KafkaOption func(*KafkaSink)

// WithKafkaKey sets the message key so all snapshots of one session land on
// one partition.
func WithKafkaKey(key string) KafkaOption {
	return func(s *KafkaSink) {
		s.key = key
	}
}

// NewKafkaSink creates a sink producing to topic.
func NewKafkaSink(producer sarama.SyncProducer, topic string, opts ...KafkaOption) *KafkaSink {
	s := &KafkaSink{producer: producer, topic: topic}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Write implements Sink.
func (s *KafkaSink) Write(ctx context.Context, payload []byte) error {
	msg := &sarama.ProducerMessage{
		Topic: s.topic,
		Value: sarama.ByteEncoder(payload),
	}
	if s.key != "" {
		msg.Key = sarama.StringEncoder(s.key)
	}
	_, _, err := s.producer.SendMessage(msg)
	return err
}

// Close implements Sink.
func (s *KafkaSink) Close() error {
	return s.producer.Close()
}

var _ Sink = (*KafkaSink)(nil)

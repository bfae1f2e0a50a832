package kafka

import (
	"context"
	"log/slog"

	"github.com/IBM/sarama"
)

// Producer publishes outbox records to Kafka synchronously. The relay marks
// a record SENT only after Publish returns, so delivery waits for the full
// ISR and is configured idempotent; a record is either acknowledged by the
// cluster or retried through the outbox backoff ladder.
type Producer struct {
	sync   sarama.SyncProducer
	logger *slog.Logger
}

func NewProducer(brokers []string, logger *slog.Logger) (*Producer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Idempotent = true
	cfg.Producer.Return.Successes = true
	// Idempotent production requires at most one in-flight request per broker.
	cfg.Net.MaxOpenRequests = 1

	sync, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return &Producer{sync: sync, logger: logger}, nil
}

func (p *Producer) Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error {
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(payload),
	}
	for k, v := range headers {
		msg.Headers = append(msg.Headers, sarama.RecordHeader{Key: []byte(k), Value: []byte(v)})
	}
	partition, offset, err := p.sync.SendMessage(msg)
	if err != nil {
		return err
	}
	if p.logger != nil {
		p.logger.Debug("event published", "topic", topic, "key", key, "partition", partition, "offset", offset)
	}
	return nil
}

func (p *Producer) Close() error {
	if p.sync == nil {
		return nil
	}
	return p.sync.Close()
}

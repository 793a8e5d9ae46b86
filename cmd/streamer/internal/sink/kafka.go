package sink

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/sikandarmalik/fintech-trading-dashboard/pkg/models"
)

// KafkaWriter abstracts the producer for testing.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink mirrors every published update to a Kafka topic for downstream
// consumers. Messages are keyed by ticker so per-instrument ordering is
// preserved within a partition. Write failures are logged and dropped;
// the broadcast path never depends on Kafka being up.
type KafkaSink struct {
	logger *zap.Logger
	writer KafkaWriter
}

func NewKafkaSink(logger *zap.Logger, writer KafkaWriter) *KafkaSink {
	return &KafkaSink{logger: logger, writer: writer}
}

// Publish is registered as a listener on the update publisher.
func (s *KafkaSink) Publish(update models.PriceUpdate) {
	payload, err := json.Marshal(update)
	if err != nil {
		s.logger.Error("JSON Marshal Error", zap.Error(err))
		return
	}

	err = s.writer.WriteMessages(context.Background(), kafka.Message{
		Key:   []byte(update.Ticker), // Key ensures partition ordering
		Value: payload,
	})
	if err != nil {
		s.logger.Error("Kafka Write Error", zap.String("ticker", update.Ticker), zap.Error(err))
	}
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}

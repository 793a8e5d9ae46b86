package sink_test

import (
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/sikandarmalik/fintech-trading-dashboard/cmd/streamer/internal/sink"
	"github.com/sikandarmalik/fintech-trading-dashboard/cmd/streamer/internal/testutils"
	"github.com/sikandarmalik/fintech-trading-dashboard/pkg/models"
)

func TestKafkaSink_PublishKeyedByTicker(t *testing.T) {
	writer := &testutils.MockKafkaWriter{}
	s := sink.NewKafkaSink(zap.NewNop(), writer)

	update := models.PriceUpdate{Ticker: "AAPL", Close: 150.5, Change: 0.5}
	s.Publish(update)

	writer.Mu.Lock()
	defer writer.Mu.Unlock()

	if len(writer.Messages) != 1 {
		t.Fatalf("Expected one message, got %d", len(writer.Messages))
	}
	if string(writer.Messages[0].Key) != "AAPL" {
		t.Errorf("Message must be keyed by ticker for partition ordering, got %s", writer.Messages[0].Key)
	}

	var got models.PriceUpdate
	if err := json.Unmarshal(writer.Messages[0].Value, &got); err != nil {
		t.Fatalf("Sink produced invalid JSON: %v", err)
	}
	if got.Close != 150.5 {
		t.Errorf("Expected close 150.5, got %v", got.Close)
	}
}

func TestKafkaSink_WriteErrorIsSwallowed(t *testing.T) {
	writer := &testutils.MockKafkaWriter{Err: errors.New("broker down")}
	s := sink.NewKafkaSink(zap.NewNop(), writer)

	// Must not panic; broadcast path never depends on Kafka being up
	s.Publish(models.PriceUpdate{Ticker: "AAPL"})
}

package testutils

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/sikandarmalik/fintech-trading-dashboard/cmd/streamer/internal/protocol"
	"github.com/sikandarmalik/fintech-trading-dashboard/cmd/streamer/internal/storage"
	"github.com/sikandarmalik/fintech-trading-dashboard/pkg/models"
)

// MockClient simulates a connected websocket client
type MockClient struct {
	IDVal    string
	Messages []protocol.WSResponse // Stores decoded JSON messages
	RawBytes []string              // Stores raw broadcast frames
	Closed   bool
	Mu       sync.Mutex
}

func NewMockClient(id string) *MockClient {
	return &MockClient{IDVal: id, Messages: make([]protocol.WSResponse, 0)}
}

func (m *MockClient) ID() string { return m.IDVal }

func (m *MockClient) Close() {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Closed = true
}

func (m *MockClient) SendJSON(v interface{}) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if resp, ok := v.(protocol.WSResponse); ok {
		m.Messages = append(m.Messages, resp)
	}
}

func (m *MockClient) SendBytes(b []byte) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.RawBytes = append(m.RawBytes, string(b))
}

func (m *MockClient) LastMsgType() string {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if len(m.Messages) == 0 {
		return ""
	}
	return m.Messages[len(m.Messages)-1].Type
}

func (m *MockClient) LastMsg() protocol.WSResponse {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if len(m.Messages) == 0 {
		return protocol.WSResponse{}
	}
	return m.Messages[len(m.Messages)-1]
}

func (m *MockClient) RawCount() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return len(m.RawBytes)
}

// MockBarStore simulates the persistence collaborator
type MockBarStore struct {
	Instruments []models.Instrument
	Closes      map[string]float64 // ticker -> latest persisted close
	SaveErrs    map[string]error   // ticker -> forced Save failure
	Saved       []models.PriceBar
	Mu          sync.Mutex
}

var _ storage.BarStore = (*MockBarStore)(nil)

func NewMockBarStore(instruments ...models.Instrument) *MockBarStore {
	return &MockBarStore{
		Instruments: instruments,
		Closes:      make(map[string]float64),
		SaveErrs:    make(map[string]error),
	}
}

func (m *MockBarStore) Save(ctx context.Context, bar models.PriceBar) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if err, ok := m.SaveErrs[bar.Ticker]; ok {
		return err
	}
	m.Saved = append(m.Saved, bar)
	return nil
}

func (m *MockBarStore) LatestClose(ctx context.Context, ticker string) (float64, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if close, ok := m.Closes[ticker]; ok {
		return close, nil
	}
	return 0, storage.ErrNoPriorClose
}

func (m *MockBarStore) ListTrackedInstruments(ctx context.Context) ([]models.Instrument, error) {
	return m.Instruments, nil
}

func (m *MockBarStore) SavedCount() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return len(m.Saved)
}

// MockSnapshotCache simulates the Redis snapshot cache
type MockSnapshotCache struct {
	Snapshots map[string]string
	Mu        sync.Mutex
}

var _ storage.SnapshotCache = (*MockSnapshotCache)(nil)

func NewMockSnapshotCache() *MockSnapshotCache {
	return &MockSnapshotCache{Snapshots: make(map[string]string)}
}

func (m *MockSnapshotCache) SetSnapshot(ctx context.Context, ticker string, payload []byte) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Snapshots[ticker] = string(payload)
	return nil
}

func (m *MockSnapshotCache) GetSnapshots(ctx context.Context, tickers []string) ([]string, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	var out []string
	for _, t := range tickers {
		if snap, ok := m.Snapshots[t]; ok {
			out = append(out, snap)
		}
	}
	return out, nil
}

func (m *MockSnapshotCache) Close() error { return nil }

// MockRand returns fixed values for deterministic generator tests
type MockRand struct {
	ValFloat float64
	ValInt64 int64
}

func (m *MockRand) Float64() float64 { return m.ValFloat }

func (m *MockRand) Int63n(n int64) int64 {
	if m.ValInt64 >= n {
		return n - 1
	}
	return m.ValInt64
}

// MockClock returns a fixed point in time
type MockClock struct {
	CurrentTime time.Time
}

func (m *MockClock) Now() time.Time { return m.CurrentTime }

// MockKafkaWriter records produced messages
type MockKafkaWriter struct {
	Messages []kafka.Message
	Err      error
	Mu       sync.Mutex
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Messages = append(m.Messages, msgs...)
	return nil
}

func (m *MockKafkaWriter) Close() error { return nil }

package hub_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/sikandarmalik/fintech-trading-dashboard/cmd/streamer/internal/hub"
	"github.com/sikandarmalik/fintech-trading-dashboard/cmd/streamer/internal/protocol"
	"github.com/sikandarmalik/fintech-trading-dashboard/cmd/streamer/internal/testutils"
	"github.com/sikandarmalik/fintech-trading-dashboard/pkg/models"
)

var validTickers = map[string]bool{"AAPL": true, "TSLA": true, "GOOG": true}

func setup() (*hub.Hub, *testutils.MockSnapshotCache) {
	cache := testutils.NewMockSnapshotCache()
	return hub.NewHub(cache, zap.NewNop(), validTickers), cache
}

func subscribe(h *hub.Hub, c hub.ClientInterface, id string, symbols ...string) {
	h.HandleCommand(c, protocol.WSRequest{
		Action:  protocol.ActionSubscribe,
		Payload: protocol.RequestPayload{Symbols: symbols},
		ID:      id,
	})
}

func TestHub_Register_SendsConnectionAck(t *testing.T) {
	h, _ := setup()
	client := testutils.NewMockClient("c1")

	h.Register(client)

	if client.LastMsgType() != protocol.TypeConnAck {
		t.Errorf("Expected connection_ack, got %s", client.LastMsgType())
	}
}

func TestHub_Subscribe_AckCarriesFullSet(t *testing.T) {
	h, _ := setup()
	client := testutils.NewMockClient("c1")
	h.Register(client)

	subscribe(h, client, "req-1", "AAPL")
	subscribe(h, client, "req-2", "TSLA")

	last := client.LastMsg()
	if last.Type != protocol.TypeAck {
		t.Fatalf("Expected ack, got %s", last.Type)
	}
	set, ok := last.Data.([]string)
	if !ok {
		t.Fatalf("Expected []string ack data, got %T", last.Data)
	}
	if len(set) != 2 || set[0] != "AAPL" || set[1] != "TSLA" {
		t.Errorf("Expected full resulting set [AAPL TSLA], got %v", set)
	}
}

func TestHub_Subscribe_FiltersInvalidTickers(t *testing.T) {
	h, _ := setup()
	client := testutils.NewMockClient("c1")
	h.Register(client)

	subscribe(h, client, "req-1", "AAPL", "BOGUS")

	last := client.LastMsg()
	if last.Status != "success" {
		t.Errorf("Expected success for partially valid subscription")
	}
	set := last.Data.([]string)
	if len(set) != 1 || set[0] != "AAPL" {
		t.Errorf("Expected only AAPL accepted, got %v", set)
	}
}

func TestHub_Subscribe_AllInvalid(t *testing.T) {
	h, _ := setup()
	client := testutils.NewMockClient("c1")
	h.Register(client)

	subscribe(h, client, "req-1", "BOGUS")

	if client.LastMsgType() != protocol.TypeError {
		t.Errorf("Expected error for all-invalid subscription, got %s", client.LastMsgType())
	}
}

func TestHub_Subscribe_Idempotent(t *testing.T) {
	h, _ := setup()
	client := testutils.NewMockClient("c1")
	h.Register(client)

	subscribe(h, client, "req-1", "AAPL")
	subscribe(h, client, "req-2", "AAPL")

	subs := h.Subscriptions(client)
	if len(subs) != 1 {
		t.Errorf("Set semantics: duplicate subscribe must not grow the set, got %v", subs)
	}
}

func TestHub_SubscribeUnsubscribe_RoundTrip(t *testing.T) {
	h, _ := setup()
	client := testutils.NewMockClient("c1")
	h.Register(client)

	subscribe(h, client, "req-1", "AAPL", "TSLA")
	h.HandleCommand(client, protocol.WSRequest{
		Action:  protocol.ActionUnsubscribe,
		Payload: protocol.RequestPayload{Symbols: []string{"AAPL", "TSLA"}},
	})

	if subs := h.Subscriptions(client); len(subs) != 0 {
		t.Errorf("Expected empty set after round trip, got %v", subs)
	}
}

func TestHub_Unsubscribe_NotSubscribed_IsNoOp(t *testing.T) {
	h, _ := setup()
	client := testutils.NewMockClient("c1")
	h.Register(client)
	subscribe(h, client, "req-1", "AAPL")

	h.HandleCommand(client, protocol.WSRequest{
		Action:  protocol.ActionUnsubscribe,
		Payload: protocol.RequestPayload{Symbols: []string{"GOOG"}},
		ID:      "req-2",
	})

	last := client.LastMsg()
	if last.Type != protocol.TypeAck {
		t.Errorf("Unsubscribing a never-subscribed ticker must ack, got %s", last.Type)
	}
	set := last.Data.([]string)
	if len(set) != 1 || set[0] != "AAPL" {
		t.Errorf("Set must be unchanged, got %v", set)
	}
}

func TestHub_UnsubscribeAll(t *testing.T) {
	h, _ := setup()
	client := testutils.NewMockClient("c1")
	h.Register(client)
	subscribe(h, client, "req-1", "AAPL", "TSLA")

	h.HandleCommand(client, protocol.WSRequest{Action: protocol.ActionUnsubscribeAll})

	if subs := h.Subscriptions(client); len(subs) != 0 {
		t.Errorf("Expected empty set after unsubscribe_all, got %v", subs)
	}
}

func TestHub_Route_OnlySubscriberReceives(t *testing.T) {
	h, _ := setup()
	a := testutils.NewMockClient("a")
	b := testutils.NewMockClient("b")
	c := testutils.NewMockClient("c")
	for _, cl := range []*testutils.MockClient{a, b, c} {
		h.Register(cl)
	}
	subscribe(h, a, "req-1", "AAPL")
	subscribe(h, b, "req-2", "TSLA")

	h.Route(models.PriceUpdate{Ticker: "AAPL", Close: 150.5})

	if a.RawCount() != 1 {
		t.Errorf("Subscriber A must receive exactly one frame, got %d", a.RawCount())
	}
	if b.RawCount() != 0 || c.RawCount() != 0 {
		t.Errorf("Non-subscribers must receive nothing, got b=%d c=%d", b.RawCount(), c.RawCount())
	}
}

func TestHub_Route_NoSubscribers(t *testing.T) {
	h, _ := setup()
	// Zero subscribers is normal, not an error
	h.Route(models.PriceUpdate{Ticker: "AAPL"})
}

func TestHub_DisconnectCleanup(t *testing.T) {
	h, _ := setup()
	a := testutils.NewMockClient("a")
	b := testutils.NewMockClient("b")
	h.Register(a)
	h.Register(b)
	subscribe(h, a, "req-1", "AAPL")
	subscribe(h, b, "req-2", "AAPL")

	h.Unregister(a)
	h.Route(models.PriceUpdate{Ticker: "AAPL"})

	if a.RawCount() != 0 {
		t.Errorf("Disconnected client must never be routed to, got %d frames", a.RawCount())
	}
	if !a.Closed {
		t.Error("Unregister must close the client")
	}
	if b.RawCount() != 1 {
		t.Errorf("Other subscribers must be unaffected, got %d", b.RawCount())
	}
}

func TestHub_Unregister_UnknownClient(t *testing.T) {
	h, _ := setup()
	// Safe even if the connection was never registered
	h.Unregister(testutils.NewMockClient("ghost"))
}

func TestHub_Register_Twice_ResetsSet(t *testing.T) {
	h, _ := setup()
	client := testutils.NewMockClient("c1")
	h.Register(client)
	subscribe(h, client, "req-1", "AAPL")

	h.Register(client)

	if subs := h.Subscriptions(client); len(subs) != 0 {
		t.Errorf("Re-register must overwrite with an empty set, got %v", subs)
	}
	h.Route(models.PriceUpdate{Ticker: "AAPL"})
	if client.RawCount() != 0 {
		t.Error("Stale inverse-index entry survived re-register")
	}
}

func TestHub_SnapshotOnSubscribe(t *testing.T) {
	h, cache := setup()
	frame, _ := protocol.EncodeTicker(models.PriceUpdate{Ticker: "AAPL", Close: 150.5})
	cache.SetSnapshot(context.Background(), "AAPL", frame)

	client := testutils.NewMockClient("c1")
	h.Register(client)
	subscribe(h, client, "req-1", "AAPL")

	// Snapshot delivery is async
	deadline := time.Now().Add(time.Second)
	for client.RawCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if client.RawCount() != 1 {
		t.Fatalf("Expected cached snapshot on subscribe, got %d frames", client.RawCount())
	}
}

func TestHub_RaceCondition(t *testing.T) {
	// Run with `go test -race ./...`
	h, _ := setup()
	client := testutils.NewMockClient("c1")
	h.Register(client)

	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		subscribe(h, client, "r1", "AAPL")
	}()
	go func() {
		defer wg.Done()
		h.HandleCommand(client, protocol.WSRequest{
			Action:  protocol.ActionUnsubscribe,
			Payload: protocol.RequestPayload{Symbols: []string{"AAPL"}},
		})
	}()
	go func() {
		defer wg.Done()
		h.Route(models.PriceUpdate{Ticker: "AAPL"})
	}()
	go func() {
		defer wg.Done()
		h.Unregister(client)
	}()
	wg.Wait()
}

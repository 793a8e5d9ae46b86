package hub

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/sikandarmalik/fintech-trading-dashboard/cmd/streamer/internal/protocol"
	"github.com/sikandarmalik/fintech-trading-dashboard/cmd/streamer/internal/storage"
	"github.com/sikandarmalik/fintech-trading-dashboard/pkg/models"
)

type ClientInterface interface {
	ID() string
	SendJSON(v interface{})
	SendBytes(b []byte)
	Close()
}

// Hub is the subscription registry: a forward index (client -> tickers)
// and the inverse index (ticker -> clients) used for fan-out, both guarded
// by one RWMutex so Route always sees a consistent snapshot of a
// connection's set.
type Hub struct {
	subscribers map[string]map[ClientInterface]bool
	clientSubs  map[ClientInterface]map[string]bool

	cache        storage.SnapshotCache
	logger       *zap.Logger
	mu           sync.RWMutex
	validTickers map[string]bool
}

func NewHub(cache storage.SnapshotCache, logger *zap.Logger, validTickers map[string]bool) *Hub {
	return &Hub{
		subscribers:  make(map[string]map[ClientInterface]bool),
		clientSubs:   make(map[ClientInterface]map[string]bool),
		cache:        cache,
		logger:       logger,
		validTickers: validTickers,
	}
}

// Register creates an empty subscription set for the client. Registering
// an already-known client resets its set to empty.
func (h *Hub) Register(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.clientSubs[client]; ok {
		for sym := range subs {
			delete(h.subscribers[sym], client)
		}
	}
	h.clientSubs[client] = make(map[string]bool)

	client.SendJSON(protocol.WSResponse{Type: protocol.TypeConnAck, Status: "success"})
}

func (h *Hub) HandleCommand(client ClientInterface, req protocol.WSRequest) {
	switch req.Action {
	case protocol.ActionSubscribe:
		h.handleSubscribe(client, req)
	case protocol.ActionUnsubscribe:
		h.handleUnsubscribe(client, req)
	case protocol.ActionUnsubscribeAll:
		h.handleUnsubscribeAll(client, req)
	default:
		h.sendError(client, req.ID, "Unknown action: "+req.Action)
	}
}

func (h *Hub) handleSubscribe(client ClientInterface, req protocol.WSRequest) {
	h.mu.Lock()

	var accepted []string
	for _, s := range req.Payload.Symbols {
		if h.validTickers[s] {
			accepted = append(accepted, s)
		}
	}

	if len(accepted) == 0 {
		h.mu.Unlock()
		h.sendError(client, req.ID, fmt.Sprintf("No valid symbols in %v", req.Payload.Symbols))
		return
	}

	if h.clientSubs[client] == nil {
		h.clientSubs[client] = make(map[string]bool)
	}

	for _, sym := range accepted {
		// Duplicate subscribes are no-ops: set semantics
		h.clientSubs[client][sym] = true
		if h.subscribers[sym] == nil {
			h.subscribers[sym] = make(map[ClientInterface]bool)
		}
		h.subscribers[sym][client] = true
	}

	subscribed := h.subscriptionsOf(client)
	h.mu.Unlock()

	h.sendAck(client, req.ID, "Subscribed", subscribed)

	// Send cached snapshots so the client does not wait a full cycle for
	// its first frame. Async to avoid holding anything while Redis is slow.
	go func(targets []string) {
		snapshots, err := h.cache.GetSnapshots(context.Background(), targets)
		if err != nil {
			h.logger.Warn("Failed to fetch snapshots", zap.Error(err))
			return
		}
		for _, snap := range snapshots {
			client.SendBytes([]byte(snap))
		}
	}(accepted)
}

func (h *Hub) handleUnsubscribe(client ClientInterface, req protocol.WSRequest) {
	h.mu.Lock()

	// Unsubscribing from a ticker that was never subscribed is a no-op,
	// not an error.
	if subs, ok := h.clientSubs[client]; ok {
		for _, sym := range req.Payload.Symbols {
			if subs[sym] {
				delete(subs, sym)
				h.dropSubscriber(sym, client)
			}
		}
	}

	subscribed := h.subscriptionsOf(client)
	h.mu.Unlock()

	h.sendAck(client, req.ID, "Unsubscribed", subscribed)
}

func (h *Hub) handleUnsubscribeAll(client ClientInterface, req protocol.WSRequest) {
	h.mu.Lock()
	if subs, ok := h.clientSubs[client]; ok {
		for sym := range subs {
			h.dropSubscriber(sym, client)
		}
		// Clear the map but keep the client registered
		h.clientSubs[client] = make(map[string]bool)
	}
	h.mu.Unlock()

	h.sendAck(client, req.ID, "Unsubscribed from all symbols", []string{})
}

// Unregister discards the client's entire subscription set and removes it
// from every ticker's inverse index. Safe for clients that never registered.
func (h *Hub) Unregister(client ClientInterface) {
	h.mu.Lock()
	if subs, ok := h.clientSubs[client]; ok {
		for sym := range subs {
			h.dropSubscriber(sym, client)
		}
		delete(h.clientSubs, client)
	}
	h.mu.Unlock()

	client.Close()
}

// Route delivers an update to every client subscribed to its ticker,
// exactly once each. Zero subscribers is normal: the frame is dropped.
// Delivery goes through each client's bounded send buffer, so a slow
// connection never blocks the generation path.
func (h *Hub) Route(update models.PriceUpdate) {
	frame, err := protocol.EncodeTicker(update)
	if err != nil {
		h.logger.Error("Failed to encode ticker frame", zap.String("ticker", update.Ticker), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if clients, ok := h.subscribers[update.Ticker]; ok {
		for client := range clients {
			client.SendBytes(frame)
		}
	}
}

// Subscriptions reports the client's current set, sorted for stable acks.
func (h *Hub) Subscriptions(client ClientInterface) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.subscriptionsOf(client)
}

// subscriptionsOf must be called with h.mu held.
func (h *Hub) subscriptionsOf(client ClientInterface) []string {
	subs := h.clientSubs[client]
	out := make([]string, 0, len(subs))
	for sym := range subs {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// dropSubscriber must be called with h.mu held.
func (h *Hub) dropSubscriber(sym string, client ClientInterface) {
	delete(h.subscribers[sym], client)
	if len(h.subscribers[sym]) == 0 {
		delete(h.subscribers, sym)
	}
}

func (h *Hub) sendAck(c ClientInterface, id, msg string, subscribed []string) {
	c.SendJSON(protocol.WSResponse{Type: protocol.TypeAck, ID: id, Status: "success", Message: msg, Data: subscribed})
}

func (h *Hub) sendError(c ClientInterface, id, msg string) {
	c.SendJSON(protocol.WSResponse{Type: protocol.TypeError, ID: id, Message: msg})
}

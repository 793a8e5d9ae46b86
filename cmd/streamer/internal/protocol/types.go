package protocol

import (
	"encoding/json"

	"github.com/sikandarmalik/fintech-trading-dashboard/pkg/models"
)

const (
	ActionSubscribe      = "subscribe"
	ActionUnsubscribe    = "unsubscribe"
	ActionUnsubscribeAll = "unsubscribe_all"
)

const (
	TypeAck     = "ack"
	TypeError   = "error"
	TypeTicker  = "ticker"
	TypeConnAck = "connection_ack"
)

type WSRequest struct {
	Action  string         `json:"action"`
	Payload RequestPayload `json:"payload"`
	ID      string         `json:"id,omitempty"`
}

type RequestPayload struct {
	Symbols []string `json:"symbols"`
}

type WSResponse struct {
	Type    string      `json:"type"`             // "ack", "error", "ticker", "connection_ack"
	ID      string      `json:"id,omitempty"`     // Matches request ID
	Status  string      `json:"status,omitempty"` // "success", "error"
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// TickerFrame is the broadcast envelope for one price update.
type TickerFrame struct {
	Type string             `json:"type"`
	Data models.PriceUpdate `json:"data"`
}

// EncodeTicker marshals the broadcast frame for an update. The same bytes
// are routed to live subscribers and written to the snapshot cache.
func EncodeTicker(update models.PriceUpdate) ([]byte, error) {
	return json.Marshal(TickerFrame{Type: TypeTicker, Data: update})
}

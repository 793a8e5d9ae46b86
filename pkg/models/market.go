package models

import "time"

// Instrument is one tracked symbol. ID correlates with persisted rows,
// Ticker is the stable routing key used for subscriptions.
type Instrument struct {
	ID     string `json:"id"`
	Ticker string `json:"ticker"`
}

// PriceBar is a single OHLCV observation produced by one generation cycle.
// Price fields are rounded to 2 decimals at creation and never mutated after.
type PriceBar struct {
	InstrumentID string    `json:"instrument_id"`
	Ticker       string    `json:"ticker"`
	Timestamp    time.Time `json:"timestamp"`
	Open         float64   `json:"open"`
	High         float64   `json:"high"`
	Low          float64   `json:"low"`
	Close        float64   `json:"close"`
	Volume       int64     `json:"volume"`
}

// PriceUpdate is the message fanned out to subscribers: a PriceBar plus
// change fields relative to the instrument's previousClose baseline.
type PriceUpdate struct {
	Ticker        string    `json:"ticker"`
	Timestamp     time.Time `json:"timestamp"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Close         float64   `json:"close"`
	Volume        int64     `json:"volume"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"changePercent"`
}

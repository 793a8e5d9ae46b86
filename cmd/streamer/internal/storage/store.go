package storage

import (
	"context"
	"errors"

	"github.com/sikandarmalik/fintech-trading-dashboard/pkg/models"
)

// ErrNoPriorClose is returned by LatestClose when an instrument has no
// persisted bars yet; callers fall back to a random seed price.
var ErrNoPriorClose = errors.New("no prior close for instrument")

// BarStore persists generated bars and answers the two queries the
// simulator needs at startup. Failures are never retried by the core.
type BarStore interface {
	Save(ctx context.Context, bar models.PriceBar) error
	LatestClose(ctx context.Context, ticker string) (float64, error)
	ListTrackedInstruments(ctx context.Context) ([]models.Instrument, error)
}

// SnapshotCache holds the most recent broadcast frame per ticker so a
// freshly subscribed client gets a price immediately instead of waiting
// out a full generation cycle.
type SnapshotCache interface {
	SetSnapshot(ctx context.Context, ticker string, payload []byte) error
	GetSnapshots(ctx context.Context, tickers []string) ([]string, error)
	Close() error
}

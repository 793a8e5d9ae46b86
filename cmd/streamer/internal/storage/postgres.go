package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sikandarmalik/fintech-trading-dashboard/pkg/models"
)

// Compile-time check to ensure PostgresStore implements BarStore
var _ BarStore = (*PostgresStore)(nil)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the schema if it does not exist yet. Idempotent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS instruments (
			id     UUID PRIMARY KEY,
			ticker TEXT NOT NULL UNIQUE
		);
		CREATE TABLE IF NOT EXISTS price_ticks (
			id            BIGSERIAL PRIMARY KEY,
			instrument_id UUID NOT NULL REFERENCES instruments(id),
			ts            TIMESTAMPTZ NOT NULL,
			open          NUMERIC(18,2) NOT NULL,
			high          NUMERIC(18,2) NOT NULL,
			low           NUMERIC(18,2) NOT NULL,
			close         NUMERIC(18,2) NOT NULL,
			volume        BIGINT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_price_ticks_instrument_ts
			ON price_ticks (instrument_id, ts DESC);
	`)
	if err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// EnsureInstrument registers a ticker in the catalog, returning the existing
// row when the ticker is already tracked.
func (s *PostgresStore) EnsureInstrument(ctx context.Context, ticker string) (models.Instrument, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO instruments (id, ticker) VALUES ($1, $2)
		ON CONFLICT (ticker) DO UPDATE SET ticker = EXCLUDED.ticker
		RETURNING id, ticker
	`, uuid.NewString(), ticker)

	var inst models.Instrument
	if err := row.Scan(&inst.ID, &inst.Ticker); err != nil {
		return models.Instrument{}, fmt.Errorf("ensure instrument %s: %w", ticker, err)
	}
	return inst, nil
}

func (s *PostgresStore) Save(ctx context.Context, bar models.PriceBar) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO price_ticks (instrument_id, ts, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, bar.InstrumentID, bar.Timestamp, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)
	if err != nil {
		return fmt.Errorf("insert price tick for %s: %w", bar.Ticker, err)
	}
	return nil
}

func (s *PostgresStore) LatestClose(ctx context.Context, ticker string) (float64, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT t.close
		FROM price_ticks t
		JOIN instruments i ON i.id = t.instrument_id
		WHERE i.ticker = $1
		ORDER BY t.ts DESC
		LIMIT 1
	`, ticker)

	var close float64
	if err := row.Scan(&close); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNoPriorClose
		}
		return 0, fmt.Errorf("query latest close for %s: %w", ticker, err)
	}
	return close, nil
}

func (s *PostgresStore) ListTrackedInstruments(ctx context.Context) ([]models.Instrument, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, ticker FROM instruments ORDER BY ticker`)
	if err != nil {
		return nil, fmt.Errorf("list instruments: %w", err)
	}
	defer rows.Close()

	var instruments []models.Instrument
	for rows.Next() {
		var inst models.Instrument
		if err := rows.Scan(&inst.ID, &inst.Ticker); err != nil {
			return nil, fmt.Errorf("scan instrument: %w", err)
		}
		instruments = append(instruments, inst)
	}
	return instruments, rows.Err()
}

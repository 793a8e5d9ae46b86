package simulator

import (
	"math"

	"github.com/sikandarmalik/fintech-trading-dashboard/pkg/models"
)

// priceFloor keeps the walk strictly positive; close never rounds below it.
const priceFloor = 0.01

// TickGenerator produces one synthetic OHLCV bar per call from a bounded
// random walk. It is pure with respect to the injected Rand and Clock:
// no hidden I/O, so it is testable without the simulator loop.
type TickGenerator struct {
	params Params
	rand   Rand
	clock  Clock
}

func NewTickGenerator(params Params, rnd Rand, clock Clock) *TickGenerator {
	return &TickGenerator{
		params: params,
		rand:   rnd,
		clock:  clock,
	}
}

// Generate computes the next bar for the given state:
// close drifts from open by at most ±volatility/2, high and low bracket the
// open/close body by at most the wick fraction, and all prices are rounded
// to cents. Guarantees high >= max(open, close), low <= min(open, close),
// close >= 0.01 and volume in [VolumeMin, VolumeMax).
func (g *TickGenerator) Generate(state InstrumentState) models.PriceBar {
	open := state.LastPrice

	priceChange := open * g.params.Volatility * (g.rand.Float64() - 0.5)
	close := math.Max(priceFloor, open+priceChange)

	high := math.Max(open, close) * (1 + g.rand.Float64()*g.params.Wick)
	low := math.Min(open, close) * (1 - g.rand.Float64()*g.params.Wick)

	volume := g.params.VolumeMin + g.rand.Int63n(g.params.VolumeMax-g.params.VolumeMin)

	return models.PriceBar{
		InstrumentID: state.ID,
		Ticker:       state.Ticker,
		Timestamp:    g.clock.Now(),
		Open:         round2(open),
		High:         round2(high),
		Low:          round2(low),
		Close:        round2(close),
		Volume:       volume,
	}
}

// seedPrice draws the fallback starting price for an instrument with no
// persisted history, uniform over [SeedPriceMin, SeedPriceMax).
func (g *TickGenerator) seedPrice() float64 {
	span := g.params.SeedPriceMax - g.params.SeedPriceMin
	return round2(g.params.SeedPriceMin + g.rand.Float64()*span)
}

// round2 rounds to 2 decimals, half away from zero.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

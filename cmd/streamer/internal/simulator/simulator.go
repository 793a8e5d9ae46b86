package simulator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sikandarmalik/fintech-trading-dashboard/cmd/streamer/internal/storage"
	"github.com/sikandarmalik/fintech-trading-dashboard/pkg/models"
)

// ErrInvalidInterval is returned by Start before any timer is armed.
var ErrInvalidInterval = errors.New("simulation interval must be positive")

// Simulator owns the generation cycle: a fixed-period clock that, per
// tracked instrument, generates a bar, persists it, and publishes the
// derived PriceUpdate. Exactly one cycle is in flight at a time because a
// single goroutine runs cycles synchronously off its ticker.
type Simulator struct {
	logger *zap.Logger
	store  storage.BarStore
	states *InstrumentStore
	gen    *TickGenerator
	pub    *Publisher

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

func New(logger *zap.Logger, store storage.BarStore, pub *Publisher, gen *TickGenerator) *Simulator {
	return &Simulator{
		logger: logger,
		store:  store,
		states: NewInstrumentStore(),
		gen:    gen,
		pub:    pub,
	}
}

// Initialize seeds one state entry per tracked instrument, preferring the
// most recent persisted close and falling back to a random seed price.
func (s *Simulator) Initialize(ctx context.Context) error {
	instruments, err := s.store.ListTrackedInstruments(ctx)
	if err != nil {
		return fmt.Errorf("list tracked instruments: %w", err)
	}

	for _, inst := range instruments {
		price, err := s.store.LatestClose(ctx, inst.Ticker)
		if err != nil {
			if !errors.Is(err, storage.ErrNoPriorClose) {
				s.logger.Warn("Failed to load latest close, using seed price",
					zap.String("ticker", inst.Ticker), zap.Error(err))
			}
			price = s.gen.seedPrice()
		}
		s.states.Seed(inst.ID, inst.Ticker, price)
	}

	s.logger.Info("Initialized instruments for simulation", zap.Int("count", s.states.Len()))
	return nil
}

// AddInstrument starts tracking a new instrument mid-session with a fresh
// seed price. Re-adding an existing ticker resets its state.
func (s *Simulator) AddInstrument(inst models.Instrument) {
	s.states.Seed(inst.ID, inst.Ticker, s.gen.seedPrice())
}

// Tickers lists the currently tracked tickers.
func (s *Simulator) Tickers() []string {
	return s.states.Tickers()
}

// Start arms the cycle timer. Idempotent: starting while already running
// does not create a second timer. A non-positive interval fails fast
// before any timer is armed.
func (s *Simulator) Start(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidInterval, interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.running = true
	go s.run(interval, s.stop, s.done)

	s.logger.Info("Market data simulation started", zap.Duration("interval", interval))
	return nil
}

// Stop disarms the timer. No further cycle starts after Stop returns; an
// in-flight cycle completes its remaining instruments first. Idempotent.
func (s *Simulator) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	close(s.stop)
	// Hold the mutex across the drain: a Start racing with Stop must not
	// arm a second run goroutine while the old cycle is still finishing.
	// The run goroutine never takes the mutex, so this cannot deadlock.
	<-s.done
	s.running = false
	s.logger.Info("Market data simulation stopped")
}

func (s *Simulator) run(interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.RunCycle(context.Background())
		}
	}
}

// RunCycle processes every tracked instrument once: generate, persist,
// publish. A failure for one instrument drops that instrument's update for
// this cycle and does not abort the rest. Exported so callers and tests can
// step the simulation without the timer.
func (s *Simulator) RunCycle(ctx context.Context) {
	for _, ticker := range s.states.Tickers() {
		state, ok := s.states.Get(ticker)
		if !ok {
			continue
		}

		bar := s.gen.Generate(state)

		if err := s.store.Save(ctx, bar); err != nil {
			s.logger.Error("Failed to persist bar, dropping update for this cycle",
				zap.String("ticker", ticker), zap.Error(err))
			continue
		}

		s.states.SetLastPrice(ticker, bar.Close)

		s.pub.Publish(models.PriceUpdate{
			Ticker:        bar.Ticker,
			Timestamp:     bar.Timestamp,
			Open:          bar.Open,
			High:          bar.High,
			Low:           bar.Low,
			Close:         bar.Close,
			Volume:        bar.Volume,
			Change:        bar.Close - state.PreviousClose,
			ChangePercent: (bar.Close - state.PreviousClose) / state.PreviousClose * 100,
		})
	}
}

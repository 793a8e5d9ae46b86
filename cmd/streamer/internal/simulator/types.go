package simulator

import (
	"math/rand"
	"sync"
	"time"
)

// for deterministic testing
type Clock interface {
	Now() time.Time
}

// for deterministic values
type Rand interface {
	Float64() float64
	Int63n(n int64) int64
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// RealRand serializes draws from a shared math/rand source: the cycle
// goroutine and mid-session AddInstrument calls both draw from it.
type RealRand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewRealRand(seed int64) *RealRand {
	return &RealRand{rnd: rand.New(rand.NewSource(seed))}
}

func (r *RealRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Float64()
}

func (r *RealRand) Int63n(n int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Int63n(n)
}

// Params are the policy constants of the random walk. They come from
// config in production and from fixed values in tests.
type Params struct {
	Volatility   float64 // max symmetric single-step drift, e.g. 0.02 for ±2%
	Wick         float64 // max extra high/low wick beyond the open/close body
	SeedPriceMin float64 // fallback seed price range when no close is persisted
	SeedPriceMax float64
	VolumeMin    int64 // volume drawn uniformly from [VolumeMin, VolumeMax)
	VolumeMax    int64
}

func DefaultParams() Params {
	return Params{
		Volatility:   0.02,
		Wick:         0.005,
		SeedPriceMin: 10,
		SeedPriceMax: 200,
		VolumeMin:    1000,
		VolumeMax:    100000,
	}
}

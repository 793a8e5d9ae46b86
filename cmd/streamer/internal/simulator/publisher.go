package simulator

import (
	"sync"

	"go.uber.org/zap"

	"github.com/sikandarmalik/fintech-trading-dashboard/pkg/models"
)

// Listener receives every published update. Listeners must treat the
// update as read-only.
type Listener func(update models.PriceUpdate)

// Publisher is an ordered observer registry decoupling tick generation
// from delivery. Publish snapshots the registry before iterating, so
// unsubscribing during an in-flight Publish does not change the set of
// listeners that call sees.
type Publisher struct {
	logger *zap.Logger

	mu        sync.Mutex
	nextID    uint64
	order     []uint64
	listeners map[uint64]Listener
}

func NewPublisher(logger *zap.Logger) *Publisher {
	return &Publisher{
		logger:    logger,
		listeners: make(map[uint64]Listener),
	}
}

// Subscribe registers a listener and returns its unsubscribe function.
// Calling the returned function more than once is a no-op.
func (p *Publisher) Subscribe(fn Listener) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.order = append(p.order, id)

	return func() { p.remove(id) }
}

func (p *Publisher) remove(id uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.listeners[id]; !ok {
		return
	}
	delete(p.listeners, id)
	for i, v := range p.order {
		if v == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

// Publish invokes every registered listener synchronously, in registration
// order. A panicking listener is logged and does not stop the rest.
func (p *Publisher) Publish(update models.PriceUpdate) {
	p.mu.Lock()
	snapshot := make([]Listener, 0, len(p.order))
	for _, id := range p.order {
		snapshot = append(snapshot, p.listeners[id])
	}
	p.mu.Unlock()

	for _, fn := range snapshot {
		p.invoke(fn, update)
	}
}

func (p *Publisher) invoke(fn Listener, update models.PriceUpdate) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Listener panicked during publish",
				zap.String("ticker", update.Ticker), zap.Any("panic", r))
		}
	}()
	fn(update)
}

// Len reports the number of registered listeners.
func (p *Publisher) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.listeners)
}

// Package signal carries the global "session rejected by server" signal from
// the transport to whoever owns the session.
package signal

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/99minutos/session-client/internal/api/metrics"
	"github.com/99minutos/session-client/internal/core/domain"
)

const defaultBuffer = 16

// Bus delivers invalidation signals to subscribers on a single background
// worker, in publish order. Publishing never blocks the request path.
type Bus struct {
	events chan domain.Invalidation
	log    zerolog.Logger

	mu       sync.RWMutex
	handlers map[int]func(domain.Invalidation)
	nextID   int
}

// NewBus creates a Bus with the given buffer size. If buffer <= 0,
// defaultBuffer is used.
func NewBus(buffer int, log zerolog.Logger) *Bus {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Bus{
		events:   make(chan domain.Invalidation, buffer),
		log:      log,
		handlers: make(map[int]func(domain.Invalidation)),
	}
}

// Start launches the delivery worker. It stops when ctx is cancelled.
func (b *Bus) Start(ctx context.Context) {
	go b.run(ctx)
}

// Publish enqueues inv. When the buffer is full the signal is dropped: a
// pending signal already forces the logout.
func (b *Bus) Publish(inv domain.Invalidation) {
	select {
	case b.events <- inv:
	default:
		metrics.SignalsDroppedTotal.Inc()
		b.log.Warn().Str("path", inv.Path).Msg("invalidation buffer full, signal dropped")
	}
}

// Subscribe registers handler for every future signal.
func (b *Bus) Subscribe(handler func(domain.Invalidation)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = handler
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}
}

func (b *Bus) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case inv := <-b.events:
			b.deliver(inv)
		}
	}
}

func (b *Bus) deliver(inv domain.Invalidation) {
	b.mu.RLock()
	handlers := make([]func(domain.Invalidation), 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.safeCall(h, inv)
	}
}

func (b *Bus) safeCall(h func(domain.Invalidation), inv domain.Invalidation) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Interface("panic", r).Msg("invalidation handler panicked")
		}
	}()
	h(inv)
}

package events

import (
	"context"
	"sync"

	"github.com/mansoorceksport/learnify/internal/domain"
)

// Handler receives change events. Handlers must not block.
type Handler func(event domain.ChangeEvent)

// Bus is an in-process domain.ChangePublisher that fans events out to
// subscribed handlers synchronously
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

// NewBus creates an empty event bus
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler for every future event
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish delivers the event to all handlers
func (b *Bus) Publish(ctx context.Context, event domain.ChangeEvent) error {
	b.mu.RLock()
	handlers := b.handlers
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
	return nil
}

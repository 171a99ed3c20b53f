// Package notifications fans catalog and install-state change events out to
// subscribers. Delivery is best effort: a subscriber with a full buffer
// misses the event rather than blocking the emitter.
package notifications

import (
	"context"
	"sync"

	"kalitools/internal/domain"
)

const defaultChangeBuffer = 4

type Hub struct {
	mu   sync.RWMutex
	subs map[domain.ChangeKind]map[chan domain.ChangeEvent]struct{}
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[domain.ChangeKind]map[chan domain.ChangeEvent]struct{}),
	}
}

func (h *Hub) Emit(event domain.ChangeEvent) {
	if h == nil {
		return
	}
	h.mu.RLock()
	subs := h.subs[event.Kind]
	h.mu.RUnlock()
	for ch := range subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe returns a channel receiving events of the given kind until ctx
// is canceled, at which point the channel is closed.
func (h *Hub) Subscribe(ctx context.Context, kind domain.ChangeKind) <-chan domain.ChangeEvent {
	ch := make(chan domain.ChangeEvent, defaultChangeBuffer)
	if h == nil {
		close(ch)
		return ch
	}

	h.mu.Lock()
	if h.subs[kind] == nil {
		h.subs[kind] = make(map[chan domain.ChangeEvent]struct{})
	}
	h.subs[kind][ch] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		if h.subs[kind] != nil {
			delete(h.subs[kind], ch)
		}
		close(ch)
		h.mu.Unlock()
	}()

	return ch
}

var _ domain.ChangeEmitter = (*Hub)(nil)

package realtime

import (
	"context"
	"sync"

	"sharelist/api/internal/store"
)

// LocalHub delivers messages within a single process. It backs the stream
// when Redis is not configured.
type LocalHub struct {
	mu   sync.RWMutex
	subs map[int64]map[chan Message]struct{}
}

func NewLocalHub() *LocalHub {
	return &LocalHub{subs: make(map[int64]map[chan Message]struct{})}
}

func (h *LocalHub) Publish(_ context.Context, entry store.ActivityEntry) error {
	messages, err := Messages(entry)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, msg := range messages {
		for ch := range h.subs[msg.ListID] {
			select {
			case ch <- msg:
			default:
			}
		}
	}
	return nil
}

func (h *LocalHub) Subscribe(_ context.Context, listID int64) (*Subscription, error) {
	ch := make(chan Message, subscriberBuffer)

	h.mu.Lock()
	if h.subs[listID] == nil {
		h.subs[listID] = make(map[chan Message]struct{})
	}
	h.subs[listID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return &Subscription{C: ch, close: func() error {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[listID], ch)
			if len(h.subs[listID]) == 0 {
				delete(h.subs, listID)
			}
			h.mu.Unlock()
			close(ch)
		})
		return nil
	}}, nil
}

package realtime

import (
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/mentorship-api/internal/models"
)

// Subscription receives events addressed to a single principal until closed.
type Subscription struct {
	C <-chan models.Event

	ch     chan models.Event
	userID string
	hub    *Hub
	once   sync.Once
}

// Close detaches the subscription from its hub. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

// Hub fans events out to in-process subscribers keyed by recipient.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	buffer int
	logger *zap.Logger
}

// NewHub constructs a hub whose subscriber channels hold buffer events.
func NewHub(buffer int, logger *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{subs: make(map[string]map[*Subscription]struct{}), buffer: buffer, logger: logger}
}

// Subscribe registers a subscriber for the given principal.
func (h *Hub) Subscribe(userID string) *Subscription {
	ch := make(chan models.Event, h.buffer)
	sub := &Subscription{C: ch, ch: ch, userID: userID, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*Subscription]struct{})
	}
	h.subs[userID][sub] = struct{}{}
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[sub.userID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, sub.userID)
		}
	}
	close(sub.ch)
}

// Dispatch delivers the event to every subscriber of its recipient. Delivery
// is best effort: a subscriber whose buffer is full misses the event.
func (h *Hub) Dispatch(evt models.Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for sub := range h.subs[evt.RecipientID] {
		select {
		case sub.ch <- evt:
			delivered++
		default:
			h.logger.Warn("realtime subscriber buffer full, dropping event",
				zap.String("recipient_id", evt.RecipientID),
				zap.String("type", string(evt.Type)))
		}
	}
	return delivered
}

// Subscribers returns the number of open subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, set := range h.subs {
		total += len(set)
	}
	return total
}

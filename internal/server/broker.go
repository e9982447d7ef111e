package server

import (
	"encoding/json"
	"sync"

	"github.com/cozyartz/michiganspots/internal/spots"
)

const feedBuffer = 16

// Broker fans engine notifications out to a user's open event streams.
// Delivery is best effort: nothing is persisted, and a stream that falls
// feedBuffer notifications behind misses the rest until it drains.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan []byte]struct{}),
	}
}

// Subscribe opens a buffered notification feed for userID. Each value is
// one JSON-encoded spots.Event.
func (b *Broker) Subscribe(userID string) chan []byte {
	ch := make(chan []byte, feedBuffer)
	b.mu.Lock()
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[chan []byte]struct{})
	}
	b.subs[userID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe stops delivery to ch. The channel is left open.
func (b *Broker) Unsubscribe(userID string, ch chan []byte) {
	b.mu.Lock()
	delete(b.subs[userID], ch)
	if len(b.subs[userID]) == 0 {
		delete(b.subs, userID)
	}
	b.mu.Unlock()
}

// Publish implements engine.Publisher. It never blocks the decision path.
func (b *Broker) Publish(userID string, event spots.Event) {
	data, _ := json.Marshal(event)
	b.mu.RLock()
	for ch := range b.subs[userID] {
		select {
		case ch <- data:
		default:
			// full
		}
	}
	b.mu.RUnlock()
}

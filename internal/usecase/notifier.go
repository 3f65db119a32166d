package usecase

import (
	"sync"

	"MarketPulse/internal/domain/models"
)

// Subscriber receives engine notifications. Callbacks run synchronously on the
// emitting goroutine and must not block.
type Subscriber func(ev *models.Event)

// Notifier is an explicit observer registry for engine events.
type Notifier struct {
	mu   sync.RWMutex
	next int
	subs map[int]Subscriber
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]Subscriber)}
}

// Subscribe registers a subscriber and returns its id for Unsubscribe.
func (n *Notifier) Subscribe(fn Subscriber) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.next++
	id := n.next
	n.subs[id] = fn
	return id
}

// Unsubscribe removes a subscriber. Unknown ids are ignored.
func (n *Notifier) Unsubscribe(id int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.subs, id)
}

// Clear detaches all subscribers.
func (n *Notifier) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subs = make(map[int]Subscriber)
}

// Len returns the number of attached subscribers.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs)
}

// Publish delivers the event to every subscriber.
func (n *Notifier) Publish(ev *models.Event) {
	n.mu.RLock()
	subs := make([]Subscriber, 0, len(n.subs))
	for _, fn := range n.subs {
		subs = append(subs, fn)
	}
	n.mu.RUnlock()

	for _, fn := range subs {
		fn(ev)
	}
}

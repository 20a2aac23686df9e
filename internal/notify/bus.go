package notify

import (
	"sync"
	"time"

	"github.com/ikramzafar0343/style-sathi/internal/domain"
)

type EventType string

const (
	EventOrderPlaced    EventType = "order-placed"
	EventOrderConfirmed EventType = "order-confirmed"
	EventError          EventType = "error"
	EventProfileUpdated EventType = "profile-updated"
	EventPhoneVerified  EventType = "phone-verified"
	EventCartSynced     EventType = "cart-synced"
)

// OrderStatusEvent returns the "order-<status>" event type announcing that an
// order moved to s.
func OrderStatusEvent(s domain.ClientStatus) EventType {
	return EventType("order-" + string(s))
}

type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
	Title     string    `json:"title,omitempty"`
	Message   string    `json:"message,omitempty"`
	OrderID   string    `json:"order_id,omitempty"`
	At        time.Time `json:"at"`
}

type Handler func(Event)

type subscription struct {
	id int
	fn Handler
}

// Bus delivers events synchronously to every subscriber in registration
// order. Handlers run on the publisher's goroutine and must not block.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscription
	nextID int
	now    func() time.Time
}

func NewBus() *Bus {
	return &Bus{now: time.Now}
}

// Subscribe registers fn and returns a function removing it.
func (b *Bus) Subscribe(fn Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

func (b *Bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = b.now()
	}

	// Snapshot so handlers may subscribe or unsubscribe while being called.
	b.mu.RLock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		s.fn(e)
	}
}

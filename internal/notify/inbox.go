package notify

import "sync"

// Inbox keeps the most recent events of every session until they are drained,
// so a client can poll for the notifications it has not shown yet.
type Inbox struct {
	limit int

	mu     sync.Mutex
	events map[string][]Event
}

func NewInbox(limit int) *Inbox {
	if limit < 1 {
		limit = 1
	}
	return &Inbox{limit: limit, events: make(map[string][]Event)}
}

// Handle is a bus Handler. Events without a session are ignored and the oldest
// event is dropped once a session holds limit events.
func (in *Inbox) Handle(e Event) {
	if e.SessionID == "" {
		return
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	q := append(in.events[e.SessionID], e)
	if len(q) > in.limit {
		q = q[len(q)-in.limit:]
	}
	in.events[e.SessionID] = q
}

// Drain returns and forgets the pending events of sessionID, oldest first.
func (in *Inbox) Drain(sessionID string) []Event {
	in.mu.Lock()
	defer in.mu.Unlock()
	q := in.events[sessionID]
	delete(in.events, sessionID)
	if q == nil {
		return []Event{}
	}
	return q
}

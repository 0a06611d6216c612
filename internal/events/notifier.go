package events

import "sync"

// Notifier is the in-process side of the row-change feed. Subscribers
// register per table and receive the table name with no further
// payload; any delivery means "invalidate and recompute". Slow
// subscribers are never blocked on: a signal already queued is enough.
type Notifier struct {
	mu   sync.Mutex
	subs map[string][]chan string
}

func NewNotifier() *Notifier {
	return &Notifier{subs: map[string][]chan string{}}
}

// Subscribe returns a channel delivering change signals for the named
// tables. Cancel releases the subscription.
func (n *Notifier) Subscribe(tables ...string) (<-chan string, func()) {
	ch := make(chan string, 8)
	n.mu.Lock()
	for _, table := range tables {
		n.subs[table] = append(n.subs[table], ch)
	}
	n.mu.Unlock()
	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		for _, table := range tables {
			kept := n.subs[table][:0]
			for _, c := range n.subs[table] {
				if c != ch {
					kept = append(kept, c)
				}
			}
			n.subs[table] = kept
		}
	}
	return ch, cancel
}

// Notify signals a row change on a table. Called after the owning
// transaction commits.
func (n *Notifier) Notify(table string) {
	n.mu.Lock()
	targets := append([]chan string(nil), n.subs[table]...)
	n.mu.Unlock()
	for _, ch := range targets {
		select {
		case ch <- table:
		default:
		}
	}
}

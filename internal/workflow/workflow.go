// Package workflow implements the one-item-at-a-time justification
// flow shown to a manager when they have pending items. A Session is
// per-user and lives only as long as the user's session; dismissals
// are never persisted, so a fresh session re-surfaces the same items.
package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

var (
	// ErrEmptyJustification rejects blank or whitespace-only text.
	ErrEmptyJustification = errors.New("justification text is required")
	// ErrStaleItem rejects a submission against an item that left the
	// pending set (e.g. justified elsewhere).
	ErrStaleItem = errors.New("item is no longer pending")
	// ErrNothingShown rejects a submission when no item is presented.
	ErrNothingShown = errors.New("no item is currently shown")
)

// ItemKind distinguishes the two pending item sources.
type ItemKind string

const (
	ItemTask     ItemKind = "task"
	ItemTracking ItemKind = "tracking"
)

// Item is one pending entry surfaced for justification.
type Item struct {
	ID    string   `json:"id"`
	Kind  ItemKind `json:"kind" enum:"task,tracking"`
	Title string   `json:"title"`
}

func (i Item) key() string { return string(i.Kind) + ":" + i.ID }

// PersistFunc writes the justification to the owning row. It must
// stamp justification and justification_at atomically and return
// ErrStaleItem when the row is no longer pending.
type PersistFunc func(ctx context.Context, item Item, text string, at time.Time) error

// Session is the per-user presentation state machine. Safe for
// concurrent use from HTTP handlers.
type Session struct {
	mu           sync.Mutex
	pending      []Item
	current      *Item
	handled      map[string]bool // justified or dismissed this session
	readyAt      time.Time
	advanceDelay time.Duration
	now          func() time.Time
}

// NewSession creates an idle session. advanceDelay is the pause before
// the next item is surfaced after a justify/dismiss; any positive
// value satisfies the contract.
func NewSession(advanceDelay time.Duration, now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	if advanceDelay <= 0 {
		advanceDelay = 500 * time.Millisecond
	}
	return &Session{
		handled:      map[string]bool{},
		advanceDelay: advanceDelay,
		now:          now,
	}
}

// Sync replaces the pending set with a fresh snapshot, preserving its
// order. If the currently shown item is no longer pending it is
// dropped in favor of the next one.
func (s *Session) Sync(pending []Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append([]Item(nil), pending...)
	if s.current != nil && !s.contains(s.current.key()) {
		s.current = nil
	}
}

// Current returns the item being shown, surfacing the next pending one
// if nothing is shown and the advance delay has elapsed. The second
// return is false when the session is idle.
func (s *Session) Current() (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		return *s.current, true
	}
	if s.now().Before(s.readyAt) {
		return Item{}, false
	}
	for _, item := range s.pending {
		if s.handled[item.key()] {
			continue
		}
		it := item
		s.current = &it
		return it, true
	}
	return Item{}, false
}

// Justify records a justification for the shown item via persist. On
// success the item is closed out for this session and the next one
// becomes eligible after the advance delay. ErrStaleItem from persist
// drops the item and advances immediately.
func (s *Session) Justify(ctx context.Context, text string, persist PersistFunc) error {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return ErrNothingShown
	}
	if strings.TrimSpace(text) == "" {
		// Stay in Showing; the user retries with real text.
		s.mu.Unlock()
		return ErrEmptyJustification
	}
	item := *s.current
	now := s.now()
	s.mu.Unlock()

	err := persist(ctx, item, text, now)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		if errors.Is(err, ErrStaleItem) {
			s.dropLocked(item)
		}
		return err
	}
	s.closeOutLocked(item)
	return nil
}

// Dismiss suppresses the shown item for the rest of this session
// without filing a justification.
func (s *Session) Dismiss() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ErrNothingShown
	}
	s.closeOutLocked(*s.current)
	return nil
}

// Remaining reports how many pending items are not yet handled in this
// session.
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, item := range s.pending {
		if !s.handled[item.key()] {
			n++
		}
	}
	return n
}

func (s *Session) closeOutLocked(item Item) {
	s.handled[item.key()] = true
	s.current = nil
	s.readyAt = s.now().Add(s.advanceDelay)
}

// dropLocked removes a stale item without marking it handled: if it
// re-enters the pending set later it should surface again.
func (s *Session) dropLocked(item Item) {
	if s.current != nil && s.current.key() == item.key() {
		s.current = nil
	}
	kept := s.pending[:0]
	for _, it := range s.pending {
		if it.key() != item.key() {
			kept = append(kept, it)
		}
	}
	s.pending = kept
}

func (s *Session) contains(key string) bool {
	for _, item := range s.pending {
		if item.key() == key {
			return true
		}
	}
	return false
}

package auth

import (
	"sync"

	authmodel "github.com/minhhieu-178/AI-Tutor-App/internal/model/auth"
)

// StateEvent is one auth-state notification. A nil Principal means signed out,
// which is a normal state, not a failure.
type StateEvent struct {
	Principal *authmodel.Session
}

// StateSubscription is the handle returned by WatchState. Auth state is
// level-triggered, so only the latest event matters: a slow consumer has any
// undrained event replaced rather than queued, and deliveries are versioned
// in broadcast order so a stale event never overwrites a newer pending one.
type StateSubscription struct {
	mu      sync.Mutex
	closed  bool
	version uint64
	events  chan StateEvent
	remove  func()
}

// Events returns the notification channel. It is closed by Close.
func (s *StateSubscription) Events() <-chan StateEvent {
	return s.events
}

// Close unregisters the subscription. Safe to call more than once.
func (s *StateSubscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.events)
	s.mu.Unlock()

	s.remove()
}

func (s *StateSubscription) deliver(version uint64, ev StateEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || version < s.version {
		return
	}
	s.version = version

	for {
		select {
		case s.events <- ev:
			return
		default:
		}
		select {
		case <-s.events:
		default:
		}
	}
}

// stateHub fans auth-state events out to per-session watchers.
type stateHub struct {
	mu   sync.Mutex
	seq  uint64                                     // bumped per broadcast, orders deliveries
	subs map[string]map[*StateSubscription]struct{} // keyed by session ID
}

func newStateHub() *stateHub {
	return &stateHub{subs: make(map[string]map[*StateSubscription]struct{})}
}

// Subscribe registers a watcher for the given session ID and returns it with
// the broadcast version current at registration time.
func (h *stateHub) Subscribe(sessionID string) (*StateSubscription, uint64) {
	sub := &StateSubscription{events: make(chan StateEvent, 1)}
	sub.remove = func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if set, ok := h.subs[sessionID]; ok {
			delete(set, sub)
			if len(set) == 0 {
				delete(h.subs, sessionID)
			}
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[sessionID]
	if !ok {
		set = make(map[*StateSubscription]struct{})
		h.subs[sessionID] = set
	}
	set[sub] = struct{}{}

	return sub, h.seq
}

// Broadcast delivers an event to every watcher of the session.
func (h *stateHub) Broadcast(sessionID string, ev StateEvent) {
	h.mu.Lock()
	h.seq++
	version := h.seq
	subs := make([]*StateSubscription, 0, len(h.subs[sessionID]))
	for sub := range h.subs[sessionID] {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.deliver(version, ev)
	}
}

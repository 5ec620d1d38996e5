package chat

import (
	"sync"

	chatmodel "github.com/minhhieu-178/AI-Tutor-App/internal/model/chat"
)

// Subscription is a live feed handle. Each delivery is the complete ordered
// history for the owner at that instant, never a delta. A slow consumer only
// loses intermediate snapshots: the channel holds the latest one and stale
// pending deliveries are replaced, which is safe because every snapshot
// supersedes the previous one entirely.
type Subscription struct {
	mu        sync.Mutex
	closed    bool
	version   uint64 // version of the pending or last accepted snapshot
	snapshots chan []chatmodel.Message
	remove    func()
}

// Snapshots returns the delivery channel. It is closed by Close.
func (s *Subscription) Snapshots() <-chan []chatmodel.Message {
	return s.snapshots
}

// Close unregisters the subscription and closes the channel. Safe to call
// more than once.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.snapshots)
	s.mu.Unlock()

	s.remove()
}

// deliver replaces any undrained snapshot with the new one. Versions follow
// commit order, so an older snapshot that lost the race to a newer delivery
// is dropped rather than clobbering it.
func (s *Subscription) deliver(version uint64, snapshot []chatmodel.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || version < s.version {
		return
	}
	s.version = version

	for {
		select {
		case s.snapshots <- snapshot:
			return
		default:
		}
		select {
		case <-s.snapshots:
		default:
		}
	}
}

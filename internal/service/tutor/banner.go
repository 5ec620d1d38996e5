package tutor

import "sync"

// BannerSubscription delivers banner text changes for one owner. An empty
// string means the banner was cleared. Stale pending values are replaced
// rather than queued.
type BannerSubscription struct {
	mu      sync.Mutex
	closed  bool
	changes chan string
	remove  func()
}

// Changes returns the delivery channel. It is closed by Close.
func (s *BannerSubscription) Changes() <-chan string {
	return s.changes
}

// Close unregisters the subscription. Safe to call more than once.
func (s *BannerSubscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.changes)
	s.mu.Unlock()

	s.remove()
}

func (s *BannerSubscription) deliver(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	for {
		select {
		case s.changes <- text:
			return
		default:
		}
		select {
		case <-s.changes:
		default:
		}
	}
}

// bannerBoard keeps the per-owner error banner and its watchers. The banner
// is orthogonal to feed state: setting or clearing it never touches the
// message history.
type bannerBoard struct {
	mu      sync.Mutex
	current map[string]string
	subs    map[string]map[*BannerSubscription]struct{}
}

func newBannerBoard() *bannerBoard {
	return &bannerBoard{
		current: make(map[string]string),
		subs:    make(map[string]map[*BannerSubscription]struct{}),
	}
}

func (b *bannerBoard) Get(ownerID string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current[ownerID]
}

func (b *bannerBoard) Set(ownerID, text string) {
	b.mu.Lock()
	b.current[ownerID] = text
	targets := b.watchersLocked(ownerID)
	b.mu.Unlock()

	for _, sub := range targets {
		sub.deliver(text)
	}
}

func (b *bannerBoard) Clear(ownerID string) {
	b.mu.Lock()
	_, had := b.current[ownerID]
	delete(b.current, ownerID)
	targets := b.watchersLocked(ownerID)
	b.mu.Unlock()

	if !had {
		return
	}
	for _, sub := range targets {
		sub.deliver("")
	}
}

func (b *bannerBoard) Watch(ownerID string) *BannerSubscription {
	sub := &BannerSubscription{changes: make(chan string, 1)}
	sub.remove = func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if set, ok := b.subs[ownerID]; ok {
			delete(set, sub)
			if len(set) == 0 {
				delete(b.subs, ownerID)
			}
		}
	}

	b.mu.Lock()
	set, ok := b.subs[ownerID]
	if !ok {
		set = make(map[*BannerSubscription]struct{})
		b.subs[ownerID] = set
	}
	set[sub] = struct{}{}
	b.mu.Unlock()

	return sub
}

func (b *bannerBoard) watchersLocked(ownerID string) []*BannerSubscription {
	targets := make([]*BannerSubscription, 0, len(b.subs[ownerID]))
	for sub := range b.subs[ownerID] {
		targets = append(targets, sub)
	}
	return targets
}

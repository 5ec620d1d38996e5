// Package chat is the message store facade: append-only persistence plus a
// live per-owner feed of whole-history snapshots.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	chatmodel "github.com/minhhieu-178/AI-Tutor-App/internal/model/chat"
	"github.com/minhhieu-178/AI-Tutor-App/internal/repository"
)

var (
	ErrOwnerRequired = errors.New("owner id is required")
	ErrBadSender     = errors.New("sender must be user or bot")
)

// Service encapsulates conversation persistence and feed fan-out.
type Service struct {
	repo repository.MessageRepository

	mu   sync.Mutex
	seq  uint64                                // bumped per publish, orders snapshot deliveries
	subs map[string]map[*Subscription]struct{} // keyed by owner ID
}

// NewService builds the chat service on top of a message repository.
func NewService(repo repository.MessageRepository) *Service {
	return &Service{
		repo: repo,
		subs: make(map[string]map[*Subscription]struct{}),
	}
}

// Append persists a message and pushes a fresh snapshot to the owner's feed
// subscribers. The stored message, with its canonical ID and server-assigned
// timestamp, is written back through msg.
func (s *Service) Append(ctx context.Context, msg *chatmodel.Message) error {
	if msg.OwnerID == "" {
		return ErrOwnerRequired
	}
	if msg.Sender != chatmodel.SenderUser && msg.Sender != chatmodel.SenderBot {
		return ErrBadSender
	}

	if err := s.repo.Append(ctx, msg); err != nil {
		return err
	}

	s.publish(ctx, msg.OwnerID)
	return nil
}

// Snapshot returns the owner's complete ordered history.
func (s *Service) Snapshot(ctx context.Context, ownerID string) ([]chatmodel.Message, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

// Subscribe opens a live feed for one owner. The current snapshot is
// delivered immediately; every subsequent append to that owner's history
// triggers another whole-state snapshot. Callers must Close the subscription.
func (s *Service) Subscribe(ctx context.Context, ownerID string) (*Subscription, error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}

	sub, since := s.register(ownerID)

	snapshot, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		sub.Close()
		return nil, err
	}

	// The initial snapshot carries the version seen at registration. If an
	// append published a fresher snapshot while we were reading, this older
	// delivery is dropped instead of replacing it.
	sub.deliver(since, snapshot)
	return sub, nil
}

// register adds the subscription and returns it with the publish version
// current at registration time.
func (s *Service) register(ownerID string) (*Subscription, uint64) {
	sub := &Subscription{snapshots: make(chan []chatmodel.Message, 1)}
	sub.remove = func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if set, ok := s.subs[ownerID]; ok {
			delete(set, sub)
			if len(set) == 0 {
				delete(s.subs, ownerID)
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.subs[ownerID]
	if !ok {
		set = make(map[*Subscription]struct{})
		s.subs[ownerID] = set
	}
	set[sub] = struct{}{}

	return sub, s.seq
}

// publish re-reads the owner's history and fans it out. Snapshots are read
// back from the store rather than patched in memory so subscribers always see
// commit order.
func (s *Service) publish(ctx context.Context, ownerID string) {
	s.mu.Lock()
	s.seq++
	version := s.seq
	targets := make([]*Subscription, 0, len(s.subs[ownerID]))
	for sub := range s.subs[ownerID] {
		targets = append(targets, sub)
	}
	s.mu.Unlock()

	if len(targets) == 0 {
		return
	}

	snapshot, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		slog.Error("failed to build feed snapshot",
			slog.String("owner_id", ownerID),
			slog.String("error", err.Error()),
		)
		return
	}

	for _, sub := range targets {
		sub.deliver(version, snapshot)
	}
}

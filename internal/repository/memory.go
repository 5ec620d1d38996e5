package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/minhhieu-178/AI-Tutor-App/internal/model/auth"
	"github.com/minhhieu-178/AI-Tutor-App/internal/model/chat"
)

// MemoryStore keeps users, sessions, and messages in process memory. It backs
// local development runs without a DATABASE_URL and the test suite.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]auth.User // keyed by user ID
	sessions map[string]auth.Session
	messages map[string][]chat.Message // keyed by owner ID, append order
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]auth.User),
		sessions: make(map[string]auth.Session),
		messages: make(map[string][]chat.Message),
	}
}

// Users returns the store's UserRepository view.
func (s *MemoryStore) Users() UserRepository { return (*memoryUserRepo)(s) }

// Sessions returns the store's SessionRepository view.
func (s *MemoryStore) Sessions() SessionRepository { return (*memorySessionRepo)(s) }

// Messages returns the store's MessageRepository view.
func (s *MemoryStore) Messages() MessageRepository { return (*memoryMessageRepo)(s) }

type memoryUserRepo MemoryStore

func (r *memoryUserRepo) Create(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = *user
	return nil
}

func (r *memoryUserRepo) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if user.Email == email {
			copied := user
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memoryUserRepo) FindByID(_ context.Context, id string) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	copied := user
	return &copied, nil
}

type memorySessionRepo MemoryStore

func (r *memorySessionRepo) Create(_ context.Context, session *auth.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = *session
	return nil
}

func (r *memorySessionRepo) FindByID(_ context.Context, id string) (*auth.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[id]
	if !ok || session.Expired(time.Now()) {
		return nil, nil
	}
	copied := session
	return &copied, nil
}

func (r *memorySessionRepo) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *memorySessionRepo) DeleteByUserID(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, session := range r.sessions {
		if session.UserID == userID {
			delete(r.sessions, id)
		}
	}
	return nil
}

type memoryMessageRepo MemoryStore

func (r *memoryMessageRepo) Append(_ context.Context, msg *chat.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg.ID = uuid.NewString()
	msg.CreatedAt = time.Now().UTC()
	r.messages[msg.OwnerID] = append(r.messages[msg.OwnerID], *msg)
	return nil
}

func (r *memoryMessageRepo) ListByOwner(_ context.Context, ownerID string) ([]chat.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	messages := r.messages[ownerID]
	copied := make([]chat.Message, len(messages))
	copy(copied, messages)
	return copied, nil
}

// compile-time interface checks
var (
	_ UserRepository    = (*memoryUserRepo)(nil)
	_ SessionRepository = (*memorySessionRepo)(nil)
	_ MessageRepository = (*memoryMessageRepo)(nil)
)

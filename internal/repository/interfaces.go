// Package repository defines persistence interfaces and their Postgres and
// in-memory implementations.
package repository

import (
	"context"

	"github.com/minhhieu-178/AI-Tutor-App/internal/model/auth"
	"github.com/minhhieu-178/AI-Tutor-App/internal/model/chat"
)

// UserRepository persists registered accounts.
// Find methods return (nil, nil) when no row matches.
type UserRepository interface {
	Create(ctx context.Context, user *auth.User) error
	FindByEmail(ctx context.Context, email string) (*auth.User, error)
	FindByID(ctx context.Context, id string) (*auth.User, error)
}

// SessionRepository persists sign-in sessions. FindByID treats an expired
// session the same as a missing one and returns (nil, nil).
type SessionRepository interface {
	Create(ctx context.Context, session *auth.Session) error
	FindByID(ctx context.Context, id string) (*auth.Session, error)
	DeleteByID(ctx context.Context, id string) error
	DeleteByUserID(ctx context.Context, userID string) error
}

// MessageRepository persists conversation turns. Append assigns the canonical
// message ID and the server-side creation timestamp, overwriting whatever the
// caller put there. ListByOwner returns the owner's full history ordered by
// creation time ascending.
type MessageRepository interface {
	Append(ctx context.Context, msg *chat.Message) error
	ListByOwner(ctx context.Context, ownerID string) ([]chat.Message, error)
}

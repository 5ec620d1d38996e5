// Package auth implements the identity service: account creation, sign-in,
// session lifecycle, and auth-state change notifications.
package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	authmodel "github.com/minhhieu-178/AI-Tutor-App/internal/model/auth"
	"github.com/minhhieu-178/AI-Tutor-App/internal/repository"
)

// ErrNoSession is returned when a session ID resolves to nothing.
var ErrNoSession = errors.New("session not found")

// Password length floor enforced on account creation.
const minPasswordLen = 6

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Config carries the service's tunables.
type Config struct {
	SessionTTL           time.Duration
	SignInAttemptsPerMin int
	SignInBurst          int
}

// Service is the identity provider. Sign-in and account creation fail with
// *authmodel.AuthError carrying one of the closed set of provider codes.
type Service struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	ttl      time.Duration
	limiter  *attemptLimiter
	watchers *stateHub
}

// NewService wires the identity service against its repositories.
func NewService(users repository.UserRepository, sessions repository.SessionRepository, cfg Config) *Service {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &Service{
		users:    users,
		sessions: sessions,
		ttl:      ttl,
		limiter:  newAttemptLimiter(cfg.SignInAttemptsPerMin, cfg.SignInBurst),
		watchers: newStateHub(),
	}
}

// Close releases background resources.
func (s *Service) Close() {
	s.limiter.Stop()
}

// CreateAccount registers a new user and signs them in.
func (s *Service) CreateAccount(ctx context.Context, email, password string) (*authmodel.Session, error) {
	if !emailPattern.MatchString(email) {
		return nil, authmodel.NewAuthError(authmodel.CodeInvalidEmail, "malformed email address")
	}
	if len(password) < minPasswordLen {
		return nil, authmodel.NewAuthError(authmodel.CodeWeakPassword, "password must be at least %d characters", minPasswordLen)
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}
	if existing != nil {
		return nil, authmodel.NewAuthError(authmodel.CodeEmailInUse, "email is already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &authmodel.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.openSession(ctx, user)
}

// SignIn authenticates an existing user and opens a session.
func (s *Service) SignIn(ctx context.Context, email, password string) (*authmodel.Session, error) {
	if !s.limiter.Allow(email) {
		return nil, authmodel.NewAuthError(authmodel.CodeTooManyRequests, "too many sign-in attempts")
	}
	if !emailPattern.MatchString(email) {
		return nil, authmodel.NewAuthError(authmodel.CodeInvalidEmail, "malformed email address")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}
	if user == nil {
		return nil, authmodel.NewAuthError(authmodel.CodeUserNotFound, "no account for %s", email)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, authmodel.NewAuthError(authmodel.CodeWrongPassword, "password mismatch")
	}

	return s.openSession(ctx, user)
}

// SignOut destroys the session and notifies its watchers.
func (s *Service) SignOut(ctx context.Context, sessionID string) error {
	if err := s.sessions.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	s.watchers.Broadcast(sessionID, StateEvent{})
	return nil
}

// FindSession resolves a session ID to a live session.
func (s *Service) FindSession(ctx context.Context, sessionID string) (*authmodel.Session, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, ErrNoSession
	}
	return session, nil
}

// WatchState subscribes to auth-state changes for one session. The current
// state is delivered immediately; a signed-out event follows whenever the
// session is destroyed. Callers must Close the subscription.
func (s *Service) WatchState(ctx context.Context, sessionID string) (*StateSubscription, error) {
	sub, since := s.watchers.Subscribe(sessionID)

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		sub.Close()
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}

	// Initial delivery mirrors how the change listener fires once on attach.
	// It carries the version seen at registration: if a sign-out broadcast
	// fired while the session was being resolved, the now-stale signed-in
	// state is dropped instead of shadowing it.
	sub.deliver(since, StateEvent{Principal: session})
	return sub, nil
}

func (s *Service) openSession(ctx context.Context, user *authmodel.User) (*authmodel.Session, error) {
	now := time.Now().UTC()
	session := &authmodel.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Email:     user.Email,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

package auth_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	authmodel "github.com/minhhieu-178/AI-Tutor-App/internal/model/auth"
	"github.com/minhhieu-178/AI-Tutor-App/internal/repository"
	auth "github.com/minhhieu-178/AI-Tutor-App/internal/service/auth"
)

func newTestService(t *testing.T, cfg auth.Config) *auth.Service {
	t.Helper()
	store := repository.NewMemoryStore()
	svc := auth.NewService(store.Users(), store.Sessions(), cfg)
	t.Cleanup(svc.Close)
	return svc
}

func mustCode(t *testing.T, err error, want string) {
	t.Helper()
	var authErr *authmodel.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if authErr.Code != want {
		t.Fatalf("unexpected code: got %s want %s", authErr.Code, want)
	}
}

func TestCreateAccountAndSignIn(t *testing.T) {
	svc := newTestService(t, auth.Config{})
	ctx := context.Background()

	session, err := svc.CreateAccount(ctx, "student@example.com", "secret123")
	if err != nil {
		t.Fatalf("CreateAccount err: %v", err)
	}
	if session.ID == "" || session.UserID == "" {
		t.Fatal("expected session and user IDs to be assigned")
	}
	if session.Email != "student@example.com" {
		t.Fatalf("unexpected session email: %s", session.Email)
	}

	again, err := svc.SignIn(ctx, "student@example.com", "secret123")
	if err != nil {
		t.Fatalf("SignIn err: %v", err)
	}
	if again.UserID != session.UserID {
		t.Fatalf("sign-in resolved a different user: got %s want %s", again.UserID, session.UserID)
	}
	if again.ID == session.ID {
		t.Fatal("expected a fresh session per sign-in")
	}
}

func TestCreateAccountRejectsMalformedEmail(t *testing.T) {
	svc := newTestService(t, auth.Config{})
	_, err := svc.CreateAccount(context.Background(), "not-an-email", "secret123")
	mustCode(t, err, authmodel.CodeInvalidEmail)
}

func TestCreateAccountRejectsShortPassword(t *testing.T) {
	svc := newTestService(t, auth.Config{})
	_, err := svc.CreateAccount(context.Background(), "student@example.com", "short")
	mustCode(t, err, authmodel.CodeWeakPassword)
}

func TestCreateAccountRejectsDuplicateEmail(t *testing.T) {
	svc := newTestService(t, auth.Config{})
	ctx := context.Background()

	if _, err := svc.CreateAccount(ctx, "student@example.com", "secret123"); err != nil {
		t.Fatalf("first CreateAccount err: %v", err)
	}
	_, err := svc.CreateAccount(ctx, "student@example.com", "another-secret")
	mustCode(t, err, authmodel.CodeEmailInUse)
}

func TestSignInUnknownAccount(t *testing.T) {
	svc := newTestService(t, auth.Config{})
	_, err := svc.SignIn(context.Background(), "nobody@example.com", "secret123")
	mustCode(t, err, authmodel.CodeUserNotFound)
}

func TestSignInWrongPassword(t *testing.T) {
	svc := newTestService(t, auth.Config{})
	ctx := context.Background()

	if _, err := svc.CreateAccount(ctx, "student@example.com", "secret123"); err != nil {
		t.Fatalf("CreateAccount err: %v", err)
	}
	_, err := svc.SignIn(ctx, "student@example.com", "wrong-password")
	mustCode(t, err, authmodel.CodeWrongPassword)
}

func TestSignInThrottled(t *testing.T) {
	svc := newTestService(t, auth.Config{SignInAttemptsPerMin: 1, SignInBurst: 2})
	ctx := context.Background()

	// Burn the burst with failed attempts; the throttle counts those too.
	for i := 0; i < 2; i++ {
		_, err := svc.SignIn(ctx, "nobody@example.com", "secret123")
		mustCode(t, err, authmodel.CodeUserNotFound)
	}

	_, err := svc.SignIn(ctx, "nobody@example.com", "secret123")
	mustCode(t, err, authmodel.CodeTooManyRequests)
}

func TestThrottleIsPerEmail(t *testing.T) {
	svc := newTestService(t, auth.Config{SignInAttemptsPerMin: 1, SignInBurst: 1})
	ctx := context.Background()

	_, err := svc.SignIn(ctx, "first@example.com", "secret123")
	mustCode(t, err, authmodel.CodeUserNotFound)
	_, err = svc.SignIn(ctx, "first@example.com", "secret123")
	mustCode(t, err, authmodel.CodeTooManyRequests)

	_, err = svc.SignIn(ctx, "second@example.com", "secret123")
	mustCode(t, err, authmodel.CodeUserNotFound)
}

func TestSignOutDestroysSession(t *testing.T) {
	svc := newTestService(t, auth.Config{})
	ctx := context.Background()

	session, err := svc.CreateAccount(ctx, "student@example.com", "secret123")
	if err != nil {
		t.Fatalf("CreateAccount err: %v", err)
	}

	if err := svc.SignOut(ctx, session.ID); err != nil {
		t.Fatalf("SignOut err: %v", err)
	}

	if _, err := svc.FindSession(ctx, session.ID); !errors.Is(err, auth.ErrNoSession) {
		t.Fatalf("expected ErrNoSession after sign-out, got %v", err)
	}
}

func TestFindSessionExpired(t *testing.T) {
	svc := newTestService(t, auth.Config{SessionTTL: time.Nanosecond})
	ctx := context.Background()

	session, err := svc.CreateAccount(ctx, "student@example.com", "secret123")
	if err != nil {
		t.Fatalf("CreateAccount err: %v", err)
	}

	time.Sleep(time.Millisecond)
	if _, err := svc.FindSession(ctx, session.ID); !errors.Is(err, auth.ErrNoSession) {
		t.Fatalf("expected ErrNoSession for expired session, got %v", err)
	}
}

func TestWatchStateDeliversInitialAndSignOut(t *testing.T) {
	svc := newTestService(t, auth.Config{})
	ctx := context.Background()

	session, err := svc.CreateAccount(ctx, "student@example.com", "secret123")
	if err != nil {
		t.Fatalf("CreateAccount err: %v", err)
	}

	sub, err := svc.WatchState(ctx, session.ID)
	if err != nil {
		t.Fatalf("WatchState err: %v", err)
	}
	defer sub.Close()

	select {
	case ev := <-sub.Events():
		if ev.Principal == nil || ev.Principal.ID != session.ID {
			t.Fatalf("expected initial signed-in state, got %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for initial state")
	}

	if err := svc.SignOut(ctx, session.ID); err != nil {
		t.Fatalf("SignOut err: %v", err)
	}

	select {
	case ev := <-sub.Events():
		if ev.Principal != nil {
			t.Fatalf("expected signed-out state, got principal %+v", ev.Principal)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for sign-out state")
	}
}

func TestWatchStateUnknownSessionIsSignedOut(t *testing.T) {
	svc := newTestService(t, auth.Config{})

	sub, err := svc.WatchState(context.Background(), "no-such-session")
	if err != nil {
		t.Fatalf("WatchState err: %v", err)
	}
	defer sub.Close()

	select {
	case ev := <-sub.Events():
		if ev.Principal != nil {
			t.Fatalf("expected signed-out initial state, got %+v", ev.Principal)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for initial state")
	}
}

// gatedSessionRepo stalls the first FindByID after reading its result,
// holding WatchState between registration and the initial delivery until
// the test releases it.
type gatedSessionRepo struct {
	repository.SessionRepository
	stalled atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func newGatedSessionRepo(inner repository.SessionRepository) *gatedSessionRepo {
	return &gatedSessionRepo{
		SessionRepository: inner,
		entered:           make(chan struct{}),
		release:           make(chan struct{}),
	}
}

func (g *gatedSessionRepo) FindByID(ctx context.Context, id string) (*authmodel.Session, error) {
	session, err := g.SessionRepository.FindByID(ctx, id)
	if g.stalled.CompareAndSwap(false, true) {
		close(g.entered)
		<-g.release
	}
	return session, err
}

func TestWatchStateDuringSignOutEndsSignedOut(t *testing.T) {
	store := repository.NewMemoryStore()
	sessions := newGatedSessionRepo(store.Sessions())
	svc := auth.NewService(store.Users(), sessions, auth.Config{})
	t.Cleanup(svc.Close)
	ctx := context.Background()

	session, err := svc.CreateAccount(ctx, "student@example.com", "secret123")
	if err != nil {
		t.Fatalf("CreateAccount err: %v", err)
	}

	type result struct {
		sub *auth.StateSubscription
		err error
	}
	done := make(chan result, 1)
	go func() {
		sub, err := svc.WatchState(ctx, session.ID)
		done <- result{sub, err}
	}()

	// The watcher has resolved a live session but not yet delivered it. The
	// sign-out broadcast lands first; the stale signed-in state must not
	// follow it.
	<-sessions.entered
	if err := svc.SignOut(ctx, session.ID); err != nil {
		t.Fatalf("SignOut err: %v", err)
	}
	close(sessions.release)

	res := <-done
	if res.err != nil {
		t.Fatalf("WatchState err: %v", res.err)
	}
	defer res.sub.Close()

	var last *authmodel.Session
	seen := 0
collect:
	for {
		select {
		case ev := <-res.sub.Events():
			last = ev.Principal
			seen++
		case <-time.After(500 * time.Millisecond):
			break collect
		}
	}
	if seen == 0 {
		t.Fatal("expected at least one state event")
	}
	if last != nil {
		t.Fatalf("expected the final state to be signed-out, got principal %+v", last)
	}
}

func TestStateSubscriptionCloseIsIdempotent(t *testing.T) {
	svc := newTestService(t, auth.Config{})

	sub, err := svc.WatchState(context.Background(), "no-such-session")
	if err != nil {
		t.Fatalf("WatchState err: %v", err)
	}
	sub.Close()
	sub.Close()
}

package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestGateSignedOutInitialState(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/state", func(w http.ResponseWriter, r *http.Request) {
		sseHeaders(w)
		writeSSE(w, "state", map[string]any{"principal": nil})
		<-r.Context().Done()
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	gate, err := New(server.URL).WatchAuthState(context.Background(), nil)
	if err != nil {
		t.Fatalf("WatchAuthState err: %v", err)
	}
	defer gate.Close()

	waitFor(t, "initial state", func() bool { _, seen := gate.State(); return seen })

	state, _ := gate.State()
	if state.Principal != nil {
		t.Fatalf("expected signed-out, got %+v", state.Principal)
	}
	if gate.Err() != nil {
		t.Fatalf("unexpected gate error: %v", gate.Err())
	}
}

func TestGateObservesSignOut(t *testing.T) {
	events := make(chan *Session, 2)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/state", func(w http.ResponseWriter, r *http.Request) {
		sseHeaders(w)
		for {
			select {
			case principal := <-events:
				writeSSE(w, "state", map[string]any{"principal": principal})
			case <-r.Context().Done():
				return
			}
		}
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	var mu sync.Mutex
	var seen []*Session
	onState := func(state AuthState) {
		mu.Lock()
		seen = append(seen, state.Principal)
		mu.Unlock()
	}

	gate, err := New(server.URL).WatchAuthState(context.Background(), onState)
	if err != nil {
		t.Fatalf("WatchAuthState err: %v", err)
	}
	defer gate.Close()

	events <- &Session{ID: "s-1", UserID: "u-1", Email: "student@example.com"}
	waitFor(t, "signed-in state", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1
	})

	events <- nil
	waitFor(t, "signed-out state", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2
	})

	mu.Lock()
	defer mu.Unlock()
	if seen[0] == nil || seen[0].ID != "s-1" {
		t.Fatalf("unexpected first state: %+v", seen[0])
	}
	if seen[1] != nil {
		t.Fatalf("expected signed-out second state, got %+v", seen[1])
	}
}

func TestGateSendsBearerToken(t *testing.T) {
	got := make(chan string, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/state", func(w http.ResponseWriter, r *http.Request) {
		got <- r.Header.Get("Authorization")
		sseHeaders(w)
		writeSSE(w, "state", map[string]any{"principal": nil})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := New(server.URL)
	c.setToken("s-1")

	gate, err := c.WatchAuthState(context.Background(), nil)
	if err != nil {
		t.Fatalf("WatchAuthState err: %v", err)
	}
	defer gate.Close()

	select {
	case header := <-got:
		if header != "Bearer s-1" {
			t.Fatalf("unexpected authorization header: %q", header)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw the request")
	}
}

func TestGateCloseStopsWatch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/state", func(w http.ResponseWriter, r *http.Request) {
		sseHeaders(w)
		writeSSE(w, "state", map[string]any{"principal": nil})
		<-r.Context().Done()
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	gate, err := New(server.URL).WatchAuthState(context.Background(), nil)
	if err != nil {
		t.Fatalf("WatchAuthState err: %v", err)
	}

	gate.Close()
	gate.Close()

	select {
	case <-gate.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("gate goroutine did not exit after Close")
	}
}

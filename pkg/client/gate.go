package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

// AuthState is one observation of the session gate: Principal is nil when
// signed out. Signed-out is an ordinary state, never an error.
type AuthState struct {
	Principal *Session `json:"principal"`
}

// Gate follows the auth-state stream so the app can route between the
// credential screens and the chat screen. Close releases the stream; it is
// safe to call more than once.
type Gate struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.RWMutex
	current AuthState
	seen    bool
	err     error

	closeOnce sync.Once
}

// WatchAuthState attaches to the backend's auth-state stream. onState is
// invoked from the watch goroutine for the immediate initial state and every
// change after it, until the gate is closed or ctx ends.
func (c *Client) WatchAuthState(ctx context.Context, onState func(AuthState)) (*Gate, error) {
	ctx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/auth/state", nil)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	c.authorize(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("auth state stream rejected: http %d", resp.StatusCode)
	}

	g := &Gate{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(g.done)
		defer resp.Body.Close()

		readErr := readSSEStream(resp.Body, func(event, data string) {
			if event != "state" {
				return
			}
			var state AuthState
			if err := json.Unmarshal([]byte(data), &state); err != nil {
				return
			}
			g.mu.Lock()
			g.current = state
			g.seen = true
			g.mu.Unlock()
			if onState != nil {
				onState(state)
			}
		})

		if readErr != nil && ctx.Err() == nil {
			g.mu.Lock()
			g.err = readErr
			g.mu.Unlock()
		}
	}()

	return g, nil
}

// State returns the last observed auth state and whether any state has been
// seen yet.
func (g *Gate) State() (AuthState, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.current, g.seen
}

// Err returns the transport error that ended the stream, if any.
func (g *Gate) Err() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.err
}

// Done is closed once the watch goroutine has exited.
func (g *Gate) Done() <-chan struct{} { return g.done }

// Close detaches from the stream.
func (g *Gate) Close() {
	g.closeOnce.Do(g.cancel)
}

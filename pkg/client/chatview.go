package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
)

// Sender roles as rendered by the chat view.
const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// ErrUnauthenticated means the backend rejected the stream because no valid
// session accompanied the request. The app should route back through the gate.
var ErrUnauthenticated = errors.New("client: not signed in")

// ViewState is the loading lifecycle of the chat view.
type ViewState int

const (
	// StateLoading holds from open until the first snapshot or feed error.
	StateLoading ViewState = iota
	// StateReady means the view has content to render, possibly empty.
	StateReady
)

// ChatView is the chat screen's model: a whole-history message list, a
// loading state that flips to ready exactly once, and an error banner that is
// orthogonal to the list. All methods are safe for concurrent use.
type ChatView struct {
	client *Client
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.RWMutex
	state    ViewState
	messages []Message
	banner   string

	closeOnce sync.Once
}

// OpenChatView attaches to the live message feed. The view starts in
// StateLoading and becomes StateReady on the first snapshot; a feed failure
// also leaves loading, with the failure in the banner, so the screen never
// spins forever. The view lives until Close or until ctx ends.
func (c *Client) OpenChatView(ctx context.Context) (*ChatView, error) {
	ctx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/chat/stream", nil)
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
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		cancel()
		return nil, ErrUnauthenticated
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("chat stream rejected: http %d", resp.StatusCode)
	}

	v := &ChatView{client: c, cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(v.done)
		defer resp.Body.Close()

		readErr := readSSEStream(resp.Body, v.handleEvent)

		if readErr != nil && ctx.Err() == nil {
			v.mu.Lock()
			v.banner = "Không thể tải lịch sử chat: " + readErr.Error()
			v.state = StateReady
			v.mu.Unlock()
		}
	}()

	return v, nil
}

func (v *ChatView) handleEvent(event, data string) {
	switch event {
	case "snapshot":
		var payload struct {
			Messages []Message `json:"messages"`
		}
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			return
		}
		if payload.Messages == nil {
			payload.Messages = []Message{}
		}
		v.mu.Lock()
		v.messages = payload.Messages
		v.state = StateReady
		v.mu.Unlock()
	case "error":
		var payload struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			return
		}
		v.mu.Lock()
		v.banner = payload.Message
		v.state = StateReady
		v.mu.Unlock()
	}
}

// State returns the loading state of the view.
func (v *ChatView) State() ViewState {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}

// Messages returns a copy of the current whole-history snapshot, oldest first.
func (v *ChatView) Messages() []Message {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]Message, len(v.messages))
	copy(out, v.messages)
	return out
}

// Err returns the current error banner, empty when clear. The banner is
// independent of the message list: a failed send reports here while the list
// keeps whatever the feed last delivered.
func (v *ChatView) Err() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.banner
}

// Done is closed once the feed goroutine has exited.
func (v *ChatView) Done() <-chan struct{} { return v.done }

// Close detaches from the feed. Idempotent.
func (v *ChatView) Close() {
	v.closeOnce.Do(v.cancel)
}

// Send submits one user message. Whitespace-only input is dropped without a
// request. The persisted turns arrive through the feed; the returned outcome
// additionally carries them for callers that want optimistic rendering. A
// transport failure or a server-reported banner lands in Err without
// disturbing the message list.
func (v *ChatView) Send(ctx context.Context, text string) (*Outcome, error) {
	if strings.TrimSpace(text) == "" {
		return &Outcome{Ignored: true}, nil
	}

	var outcome Outcome
	if _, err := v.client.postJSON(ctx, "/api/chat/messages", map[string]string{"text": text}, &outcome); err != nil {
		v.mu.Lock()
		v.banner = "Có lỗi xảy ra khi gửi tin nhắn: " + err.Error()
		v.mu.Unlock()
		return nil, err
	}

	if outcome.Banner != "" {
		v.mu.Lock()
		v.banner = outcome.Banner
		v.mu.Unlock()
	}
	return &outcome, nil
}

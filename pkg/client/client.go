// Package client is the Go client for the AI tutor backend. It carries the
// screen-level flows of the mobile app: credential submission with local
// validation and localized provider-error mapping, an auth-state gate, and a
// live chat view fed by whole-history snapshots.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Session identifies the signed-in principal.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Message is one conversation turn as rendered by the chat view.
type Message struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Outcome reports what one send did on the server.
type Outcome struct {
	Ignored     bool     `json:"ignored,omitempty"`
	UserMessage *Message `json:"userMessage,omitempty"`
	Reply       *Message `json:"reply,omitempty"`
	Banner      string   `json:"banner,omitempty"`
}

// Client talks to one backend instance. It is safe for concurrent use.
type Client struct {
	baseURL string
	httpc   *http.Client

	mu    sync.RWMutex
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

// New creates a client for the backend at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the current session token, empty when signed out.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 && out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp, fmt.Errorf("failed to decode response: %w", err)
		}
		return resp, nil
	}

	if resp.StatusCode >= 300 {
		return resp, decodeAPIError(resp)
	}
	return resp, nil
}

func (c *Client) authorize(req *http.Request) {
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// apiError is the backend's JSON failure shape.
type apiError struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var payload apiError
	if err := json.Unmarshal(raw, &payload); err != nil || (payload.Code == "" && payload.Error == "") {
		return &ProviderError{Raw: fmt.Sprintf("http %d", resp.StatusCode)}
	}
	return &ProviderError{Code: payload.Code, Raw: payload.Error}
}

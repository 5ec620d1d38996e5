package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/minhhieu-178/AI-Tutor-App/internal/middleware"
	authmodel "github.com/minhhieu-178/AI-Tutor-App/internal/model/auth"
	"github.com/minhhieu-178/AI-Tutor-App/internal/repository"
	authservice "github.com/minhhieu-178/AI-Tutor-App/internal/service/auth"
)

func setupRouter(t *testing.T) (*chi.Mux, *authservice.Service) {
	t.Helper()
	store := repository.NewMemoryStore()
	svc := authservice.NewService(store.Users(), store.Sessions(), authservice.Config{})
	t.Cleanup(svc.Close)

	r := chi.NewRouter()
	New(svc, nil, false).RegisterRoutes(r)
	return r, svc
}

func postCredentials(t *testing.T, r http.Handler, path, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	payload, _ := json.Marshal(map[string]string{"email": email, "password": password})
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestRegisterCreatesSessionAndCookie(t *testing.T) {
	r, _ := setupRouter(t)

	resp := postCredentials(t, r, "/auth/register", "student@example.com", "secret123")
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var session authmodel.Session
	if err := json.Unmarshal(resp.Body.Bytes(), &session); err != nil {
		t.Fatalf("failed to decode session: %v", err)
	}
	if session.ID == "" || session.Email != "student@example.com" {
		t.Fatalf("unexpected session: %+v", session)
	}

	var cookie *http.Cookie
	for _, c := range resp.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value != session.ID {
		t.Fatalf("expected session cookie carrying %s, got %+v", session.ID, cookie)
	}
	if !cookie.HttpOnly {
		t.Fatal("session cookie must be HttpOnly")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	r, _ := setupRouter(t)

	if resp := postCredentials(t, r, "/auth/register", "student@example.com", "secret123"); resp.Code != http.StatusCreated {
		t.Fatalf("first register: expected 201, got %d", resp.Code)
	}

	resp := postCredentials(t, r, "/auth/register", "student@example.com", "another-secret")
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}

	var payload map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	if payload["code"] != authmodel.CodeEmailInUse {
		t.Fatalf("unexpected code: %s", payload["code"])
	}
}

func TestLoginErrorStatusCodes(t *testing.T) {
	r, _ := setupRouter(t)
	if resp := postCredentials(t, r, "/auth/register", "student@example.com", "secret123"); resp.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", resp.Code)
	}

	cases := []struct {
		name       string
		email      string
		password   string
		wantStatus int
		wantCode   string
	}{
		{"unknown account", "nobody@example.com", "secret123", http.StatusNotFound, authmodel.CodeUserNotFound},
		{"wrong password", "student@example.com", "wrong-password", http.StatusUnauthorized, authmodel.CodeWrongPassword},
		{"malformed email", "not-an-email", "secret123", http.StatusBadRequest, authmodel.CodeInvalidEmail},
	}
	for _, tc := range cases {
		resp := postCredentials(t, r, "/auth/login", tc.email, tc.password)
		if resp.Code != tc.wantStatus {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.wantStatus, resp.Code)
		}
		var payload map[string]string
		if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
			t.Fatalf("%s: failed to decode error: %v", tc.name, err)
		}
		if payload["code"] != tc.wantCode {
			t.Fatalf("%s: unexpected code %s", tc.name, payload["code"])
		}
	}
}

func TestLoginMissingFields(t *testing.T) {
	r, _ := setupRouter(t)
	resp := postCredentials(t, r, "/auth/login", "", "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestLogoutWithoutSession(t *testing.T) {
	r, _ := setupRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestLogoutDestroysSession(t *testing.T) {
	r, svc := setupRouter(t)

	reg := postCredentials(t, r, "/auth/register", "student@example.com", "secret123")
	var session authmodel.Session
	if err := json.Unmarshal(reg.Body.Bytes(), &session); err != nil {
		t.Fatalf("failed to decode session: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+session.ID)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	if _, err := svc.FindSession(context.Background(), session.ID); err == nil {
		t.Fatal("session should be destroyed after logout")
	}
}

func TestStateWithoutCredentialsReportsSignedOut(t *testing.T) {
	r, _ := setupRouter(t)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/auth/state", nil).WithContext(ctx)
	resp := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.ServeHTTP(resp, req)
	}()

	// The signed-out state is written immediately; the handler then holds the
	// stream open until the request ends.
	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler did not return after cancel")
	}

	body := resp.Body.String()
	if !strings.Contains(body, "event: state") {
		t.Fatalf("expected a state event, got %q", body)
	}
	if !strings.Contains(body, `"principal":null`) {
		t.Fatalf("expected a signed-out principal, got %q", body)
	}
}

func TestStateWithoutCredentialsSendsHeartbeats(t *testing.T) {
	r, _ := setupRouter(t)

	saved := heartbeatInterval
	heartbeatInterval = 10 * time.Millisecond
	t.Cleanup(func() { heartbeatInterval = saved })

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/auth/state", nil).WithContext(ctx)
	resp := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.ServeHTTP(resp, req)
	}()

	// A credential-less stream stays open indefinitely, so it must carry
	// heartbeats too or idle proxies will cut it.
	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler did not return after cancel")
	}

	body := resp.Body.String()
	if !strings.Contains(body, "event: state") {
		t.Fatalf("expected a state event, got %q", body)
	}
	if !strings.Contains(body, "event: heartbeat") {
		t.Fatalf("expected heartbeat events, got %q", body)
	}
}

func TestStateWithSessionReportsPrincipal(t *testing.T) {
	r, _ := setupRouter(t)

	reg := postCredentials(t, r, "/auth/register", "student@example.com", "secret123")
	var session authmodel.Session
	if err := json.Unmarshal(reg.Body.Bytes(), &session); err != nil {
		t.Fatalf("failed to decode session: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/auth/state", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+session.ID)
	resp := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.ServeHTTP(resp, req)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler did not return after cancel")
	}

	body := resp.Body.String()
	if !strings.Contains(body, "event: state") {
		t.Fatalf("expected a state event, got %q", body)
	}
	if !strings.Contains(body, session.ID) {
		t.Fatalf("expected the principal's session in the body, got %q", body)
	}
}

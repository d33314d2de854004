package postman

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jaredboynton/postman-probe-sub001/internal/infrastructure/config"
)

// newTestClient points a Client at a stub API server with a generous
// rate limit so tests never block on the limiter.
func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return New(config.PostmanConfig{
		APIKey:         "PMAK-test1234test1234test1234",
		BaseURL:        server.URL,
		TimeoutSeconds: 5,
		RateLimit:      config.RateLimitConfig{RequestsPerMinute: 6000},
	})
}

func TestClient_ListWorkspaces(t *testing.T) {
	var gotKey string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/workspaces" {
			t.Errorf("path = %q, want /workspaces", r.URL.Path)
		}
		gotKey = r.Header.Get("X-Api-Key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"workspaces":[
			{"id":"ws-1","name":"Platform APIs","type":"team"},
			{"id":"ws-2","name":"scratch","type":"personal"}
		]}`))
	}))

	workspaces, err := client.ListWorkspaces(context.Background())
	if err != nil {
		t.Fatalf("ListWorkspaces() error = %v", err)
	}

	if len(workspaces) != 2 {
		t.Fatalf("got %d workspaces, want 2", len(workspaces))
	}
	if workspaces[0].ID != "ws-1" || workspaces[0].Name != "Platform APIs" {
		t.Errorf("unexpected first workspace: %+v", workspaces[0])
	}
	if gotKey != "PMAK-test1234test1234test1234" {
		t.Errorf("X-Api-Key = %q, want configured key", gotKey)
	}
}

func TestClient_GetWorkspace(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/workspaces/ws-1" {
			t.Errorf("path = %q, want /workspaces/ws-1", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"workspace":{
			"id":"ws-1","name":"Platform APIs","type":"team",
			"collections":[{"id":"col-1","name":"Orders API","uid":"u1-col-1"}]
		}}`))
	}))

	ws, err := client.GetWorkspace(context.Background(), "ws-1")
	if err != nil {
		t.Fatalf("GetWorkspace() error = %v", err)
	}
	if len(ws.Collections) != 1 || ws.Collections[0].UID != "u1-col-1" {
		t.Errorf("unexpected collections: %+v", ws.Collections)
	}
}

func TestClient_GetWorkspace_EmptyID(t *testing.T) {
	client := newTestClient(t, http.NotFoundHandler())
	if _, err := client.GetWorkspace(context.Background(), ""); err == nil {
		t.Error("expected error for empty workspace id")
	}
}

func TestClient_GetCollection(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"collection":{"info":{
			"_postman_id":"col-1",
			"name":"Orders API",
			"description":"Order lifecycle endpoints",
			"tags":["orders","v2"]
		}}}`))
	}))

	col, err := client.GetCollection(context.Background(), "u1-col-1")
	if err != nil {
		t.Fatalf("GetCollection() error = %v", err)
	}
	if col.Info.Name != "Orders API" {
		t.Errorf("Info.Name = %q", col.Info.Name)
	}
	if len(col.Info.Tags) != 2 {
		t.Errorf("Info.Tags = %v, want 2 tags", col.Info.Tags)
	}
}

func TestClient_ListUsers(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"users":[{"id":"u-1","username":"alice","role":"admin"}]}`))
	}))

	users, err := client.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(users) != 1 || users[0].Username != "alice" {
		t.Errorf("unexpected users: %+v", users)
	}
}

func TestClient_StatusErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		sentinel error
	}{
		{"unauthorised", http.StatusUnauthorized, ErrUnauthorized},
		{"forbidden", http.StatusForbidden, ErrUnauthorized},
		{"not found", http.StatusNotFound, ErrNotFound},
		{"rate limited", http.StatusTooManyRequests, ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))

			_, err := client.ListWorkspaces(context.Background())
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("error = %v, want %v", err, tt.sentinel)
			}
		})
	}
}

func TestClient_ServerError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := client.ListCollections(context.Background())
	if err == nil {
		t.Fatal("expected error for HTTP 500")
	}
	for _, sentinel := range []error{ErrUnauthorized, ErrNotFound, ErrRateLimited} {
		if errors.Is(err, sentinel) {
			t.Errorf("HTTP 500 must not map to %v", sentinel)
		}
	}
}

func TestClient_ContextCancellation(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"workspaces":[]}`))
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.ListWorkspaces(ctx); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestNew_Defaults(t *testing.T) {
	client := New(config.PostmanConfig{APIKey: "k"})

	if client.baseURL != defaultBaseURL {
		t.Errorf("baseURL = %q, want default", client.baseURL)
	}
	if client.httpClient.Timeout != defaultRequestTimeout {
		t.Errorf("timeout = %v, want default", client.httpClient.Timeout)
	}
}

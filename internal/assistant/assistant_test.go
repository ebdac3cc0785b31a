package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewClientUnknownProvider(t *testing.T) {
	client, err := NewClient("unknown", "key", "some-model")
	if err == nil {
		t.Fatalf("expected error for unknown provider, got nil")
	}
	if client != nil {
		t.Fatalf("expected nil client, got %#v", client)
	}
	if !strings.Contains(err.Error(), "unknown assistant provider") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewClientPeeraRequiresURL(t *testing.T) {
	if _, err := NewClient("peera", "key", ""); err == nil {
		t.Fatal("expected error without a backend URL")
	}
}

func TestHTTPClientDispatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s, want POST", r.Method)
		}

		var req struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Text != "schedule a meeting tomorrow" {
			t.Fatalf("text = %q", req.Text)
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"response": "Meeting scheduled for tomorrow.",
			"action":   "create_event",
			"data":     map[string]any{"date": "tomorrow"},
		})
	}))
	defer server.Close()

	client, err := NewClient("peera", "", "", WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	resp, err := client.Dispatch(context.Background(), "schedule a meeting tomorrow")
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if resp.Text != "Meeting scheduled for tomorrow." {
		t.Fatalf("text = %q", resp.Text)
	}
	if resp.Action != "create_event" {
		t.Fatalf("action = %q", resp.Action)
	}
	if resp.Data["date"] != "tomorrow" {
		t.Fatalf("data = %#v", resp.Data)
	}
}

func TestHTTPClientDispatchErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	client, err := newHTTPClient(server.URL, "")
	if err != nil {
		t.Fatalf("newHTTPClient failed: %v", err)
	}

	if _, err := client.Dispatch(context.Background(), "hello"); err == nil {
		t.Fatal("expected error for 502 response")
	}
}

func TestHTTPClientDispatchEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"response": ""})
	}))
	defer server.Close()

	client, err := newHTTPClient(server.URL, "")
	if err != nil {
		t.Fatalf("newHTTPClient failed: %v", err)
	}

	if _, err := client.Dispatch(context.Background(), "hello"); err == nil {
		t.Fatal("expected error for empty response text")
	}
}

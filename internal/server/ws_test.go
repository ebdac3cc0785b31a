package server

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/JeffCorp/peera-voice/internal/voice"
)

func TestWSGreetingCarriesPipelineState(t *testing.T) {
	hub := NewHub()
	handler := Handler(hub, emptyStoreStub(), ControlHooks{
		State: func() voice.State { return voice.StateRecording },
	})

	srv := httptest.NewServer(handler)
	defer srv.Close()

	wsURL := strings.Replace(srv.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read greeting: %v", err)
	}

	var greeting ConnectionEvent
	if err := json.Unmarshal(msg, &greeting); err != nil {
		t.Fatalf("unmarshal greeting: %v", err)
	}
	if greeting.Type != "connection" || !greeting.Connected {
		t.Fatalf("unexpected greeting: %s", string(msg))
	}
	if greeting.State != string(voice.StateRecording) {
		t.Fatalf("greeting state = %q, want %q", greeting.State, voice.StateRecording)
	}
}

func TestWSGreetingDefaultsToIdle(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(Handler(hub, emptyStoreStub(), ControlHooks{}))
	defer srv.Close()

	wsURL := strings.Replace(srv.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read greeting: %v", err)
	}

	var greeting ConnectionEvent
	if err := json.Unmarshal(msg, &greeting); err != nil {
		t.Fatalf("unmarshal greeting: %v", err)
	}
	if greeting.State != string(voice.StateIdle) {
		t.Fatalf("greeting state = %q, want idle", greeting.State)
	}
}

func TestWSBroadcastEventShape(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	hub.BroadcastStateChanged("idle", "recording")

	select {
	case msg := <-ch:
		var payload map[string]any
		if err := json.Unmarshal(msg, &payload); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		if payload["type"] != "state_changed" {
			t.Fatalf("expected event type state_changed, got %#v", payload["type"])
		}
		if payload["from"] != "idle" || payload["to"] != "recording" {
			t.Fatalf("unexpected transition payload: %s", string(msg))
		}
		if payload["version"] == nil {
			t.Fatalf("expected version field in payload: %s", string(msg))
		}
		if payload["timestamp"] == nil {
			t.Fatalf("expected timestamp field in payload: %s", string(msg))
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for websocket broadcast")
	}
}

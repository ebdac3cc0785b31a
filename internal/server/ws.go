package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/JeffCorp/peera-voice/internal/voice"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// registerWSRoute upgrades /ws connections and streams hub events. The
// greeting carries the current pipeline state so a client reconnecting in
// the middle of an interaction can resync without waiting for the next
// transition.
func registerWSRoute(mux *http.ServeMux, hub *Hub, state func() voice.State) {
	mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("ws upgrade error: %v", err)
			return
		}
		defer func() { _ = conn.Close() }()

		greeting := ConnectionEvent{
			Event:     newEvent("connection", time.Now().UTC()),
			Connected: true,
			State:     string(currentState(state)),
		}
		if payload, err := json.Marshal(greeting); err == nil {
			_ = conn.WriteMessage(websocket.TextMessage, payload)
		}

		ch := hub.Subscribe()
		defer hub.Unsubscribe(ch)

		for msg := range ch {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	})
}

func currentState(state func() voice.State) voice.State {
	if state == nil {
		return voice.StateIdle
	}
	return state()
}

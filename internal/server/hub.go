package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

type Hub struct {
	mu      sync.RWMutex
	clients map[chan []byte]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[chan []byte]struct{})}
}

func (h *Hub) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan []byte) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
	close(ch)
}

func (h *Hub) Broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
		}
	}
}

func (h *Hub) BroadcastStateChanged(from, to string) {
	h.broadcastEvent(StateChangedEvent{
		Event: newEvent("state_changed", time.Now().UTC()),
		From:  from,
		To:    to,
	})
}

func (h *Hub) BroadcastTranscription(text string, confidence float64, language string) {
	h.broadcastEvent(TranscriptionEvent{
		Event:      newEvent("transcription", time.Now().UTC()),
		Text:       text,
		Confidence: confidence,
		Language:   language,
	})
}

func (h *Hub) BroadcastAssistantResponse(text, action string) {
	h.broadcastEvent(AssistantResponseEvent{
		Event:  newEvent("assistant_response", time.Now().UTC()),
		Text:   text,
		Action: action,
	})
}

func (h *Hub) BroadcastPipelineError(reason, message string) {
	h.broadcastEvent(PipelineErrorEvent{
		Event:   newEvent("pipeline_error", time.Now().UTC()),
		Reason:  reason,
		Message: message,
	})
}

func (h *Hub) BroadcastSpeech(text, priority string) {
	h.broadcastEvent(SpeechEvent{
		Event:    newEvent("speech", time.Now().UTC()),
		Text:     text,
		Priority: priority,
	})
}

func (h *Hub) broadcastEvent(event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("event marshal error: %v", err)
		return
	}
	h.Broadcast(payload)
}

package server

import "time"

const EventVersion = 1

type Event struct {
	Type      string `json:"type"`
	Version   int    `json:"version"`
	Timestamp string `json:"timestamp"`
}

type StateChangedEvent struct {
	Event
	From string `json:"from"`
	To   string `json:"to"`
}

type TranscriptionEvent struct {
	Event
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Language   string  `json:"language"`
}

type AssistantResponseEvent struct {
	Event
	Text   string `json:"text"`
	Action string `json:"action,omitempty"`
}

type PipelineErrorEvent struct {
	Event
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type SpeechEvent struct {
	Event
	Text     string `json:"text"`
	Priority string `json:"priority"`
}

// ConnectionEvent greets a new websocket subscriber with the pipeline state
// at connect time, so a reconnect mid-interaction starts from the truth
// instead of assuming idle.
type ConnectionEvent struct {
	Event
	Connected bool   `json:"connected"`
	State     string `json:"state"`
}

func newEvent(eventType string, now time.Time) Event {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return Event{
		Type:      eventType,
		Version:   EventVersion,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
	}
}

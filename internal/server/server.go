package server

import (
	"log"
	"net/http"

	"github.com/JeffCorp/peera-voice/internal/voice"
)

// ControlHooks connects the HTTP surface to the voice pipeline without the
// server importing its wiring. StartInteraction returns voice.ErrBusy while
// a run is in flight.
type ControlHooks struct {
	StartInteraction func() error
	StopRecording    func() error
	Cancel           func()
	State            func() voice.State
	Warnings         func() []string
}

func Handler(hub *Hub, store InteractionStore, controls ControlHooks) http.Handler {
	mux := http.NewServeMux()

	registerWSRoute(mux, hub, controls.State)
	registerAPIRoutes(mux, store, controls)

	return mux
}

func Serve(addr string, hub *Hub, store InteractionStore, controls ControlHooks) error {
	log.Printf("voice API at http://%s", addr)
	return http.ListenAndServe(addr, Handler(hub, store, controls))
}

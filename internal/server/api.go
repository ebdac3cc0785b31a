package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/JeffCorp/peera-voice/internal/storage"
	"github.com/JeffCorp/peera-voice/internal/voice"
)

var interactionIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

type InteractionStore interface {
	GetInteractionsByDate(date string) ([]storage.Interaction, error)
	GetInteraction(id string) (storage.Interaction, error)
	GetDates() ([]string, error)
}

func registerAPIRoutes(mux *http.ServeMux, store InteractionStore, controls ControlHooks) {
	mux.HandleFunc("POST /api/voice/start", func(w http.ResponseWriter, r *http.Request) {
		if controls.StartInteraction == nil {
			writeJSONError(w, http.StatusServiceUnavailable, "voice pipeline not available")
			return
		}
		if err := controls.StartInteraction(); err != nil {
			if errors.Is(err, voice.ErrBusy) {
				writeJSONError(w, http.StatusConflict, "interaction already in progress")
				return
			}
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("start interaction: %v", err))
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
	})

	mux.HandleFunc("POST /api/voice/stop", func(w http.ResponseWriter, r *http.Request) {
		if controls.StopRecording == nil {
			writeJSONError(w, http.StatusServiceUnavailable, "voice pipeline not available")
			return
		}
		if err := controls.StopRecording(); err != nil {
			if errors.Is(err, voice.ErrNoActiveRecording) {
				writeJSONError(w, http.StatusConflict, "no recording in progress")
				return
			}
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("stop recording: %v", err))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("POST /api/voice/cancel", func(w http.ResponseWriter, r *http.Request) {
		if controls.Cancel != nil {
			controls.Cancel()
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /api/status", func(w http.ResponseWriter, r *http.Request) {
		state := string(voice.StateIdle)
		if controls.State != nil {
			state = string(controls.State())
		}
		var warnings []string
		if controls.Warnings != nil {
			warnings = controls.Warnings()
		}
		if warnings == nil {
			warnings = []string{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"state": state, "warnings": warnings})
	})

	mux.HandleFunc("GET /api/interactions", func(w http.ResponseWriter, r *http.Request) {
		date := r.URL.Query().Get("date")
		if date == "" {
			date = time.Now().UTC().Format("2006-01-02")
		}

		interactions, err := store.GetInteractionsByDate(date)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("list interactions: %v", err))
			return
		}

		writeJSON(w, http.StatusOK, interactions)
	})

	mux.HandleFunc("GET /api/interactions/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if !validInteractionID(id) {
			writeJSONError(w, http.StatusForbidden, "invalid interaction id")
			return
		}

		rec, err := store.GetInteraction(id)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, sql.ErrNoRows) {
				status = http.StatusNotFound
			}
			writeJSONError(w, status, fmt.Sprintf("get interaction: %v", err))
			return
		}

		writeJSON(w, http.StatusOK, rec)
	})

	mux.HandleFunc("GET /api/dates", func(w http.ResponseWriter, r *http.Request) {
		dates, err := store.GetDates()
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("get dates: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, dates)
	})
}

func validInteractionID(id string) bool {
	return interactionIDPattern.MatchString(id)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

package transcribe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func writeTempAudio(t *testing.T, payload []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.wav")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return path
}

func TestHTTPClientTranscribe(t *testing.T) {
	audioPath := writeTempAudio(t, []byte("RIFFfakewav"))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer secret" {
			t.Errorf("authorization = %q", auth)
		}

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("language"); got != "en-US" {
			t.Errorf("language = %q, want en-US", got)
		}
		if got := r.FormValue("context"); got != "voice-command" {
			t.Errorf("context = %q, want voice-command", got)
		}
		file, header, err := r.FormFile("audio")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer func() { _ = file.Close() }()
		if header.Filename != "clip.wav" {
			t.Errorf("filename = %q", header.Filename)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"transcription":"schedule a meeting","confidence":0.93,"language":"en-US"}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(HTTPClientConfig{BaseURL: srv.URL, APIKey: "secret"})

	result, err := client.Transcribe(context.Background(), audioPath, "en-US", "voice-command")
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if result.Text != "schedule a meeting" {
		t.Errorf("text = %q", result.Text)
	}
	if result.Confidence != 0.93 {
		t.Errorf("confidence = %f", result.Confidence)
	}
	if result.Language != "en-US" {
		t.Errorf("language = %q", result.Language)
	}
}

func TestHTTPClientErrorStatus(t *testing.T) {
	audioPath := writeTempAudio(t, []byte("RIFF"))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewHTTPClient(HTTPClientConfig{BaseURL: srv.URL})
	if _, err := client.Transcribe(context.Background(), audioPath, "en-US", ""); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestCannedIsDeterministic(t *testing.T) {
	audioPath := writeTempAudio(t, make([]byte, 123))
	canned := NewCanned(nil, "en-US")

	first, err := canned.Transcribe(context.Background(), audioPath, "en-US", "")
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := canned.Transcribe(context.Background(), audioPath, "en-US", "")
		if err != nil {
			t.Fatalf("transcribe: %v", err)
		}
		if again != first {
			t.Fatalf("canned result changed: %+v vs %+v", again, first)
		}
	}
	if first.Confidence >= 1 {
		t.Fatal("canned transcription should not report full confidence")
	}
}

type failingTranscriber struct{ err error }

func (f failingTranscriber) Transcribe(context.Context, string, string, string) (Result, error) {
	return Result{}, f.err
}

func TestWithFallback(t *testing.T) {
	audioPath := writeTempAudio(t, make([]byte, 8))

	primary := failingTranscriber{err: errors.New("network down")}
	fallback := NewCanned([]string{"fallback phrase"}, "en-US")

	result, err := WithFallback(primary, fallback).Transcribe(context.Background(), audioPath, "en-US", "")
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if result.Text != "fallback phrase" {
		t.Fatalf("text = %q", result.Text)
	}
}

func TestWithFallbackSkipsOnCancel(t *testing.T) {
	audioPath := writeTempAudio(t, make([]byte, 8))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	primary := failingTranscriber{err: context.Canceled}
	fallback := NewCanned([]string{"should not be used"}, "en-US")

	if _, err := WithFallback(primary, fallback).Transcribe(ctx, audioPath, "en-US", ""); err == nil {
		t.Fatal("expected cancellation error to pass through")
	}
}

package speech

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

func TestModelSpeaksLanguage(t *testing.T) {
	tests := []struct {
		model    string
		language string
		want     bool
	}{
		{"aura-2-thalia-en", "en-US", true},
		{"aura-2-thalia-en", "en", true},
		{"aura-2-thalia-en", "", true}, // no preference, anything goes
		{"aura-2-thalia-en", "es-MX", false},
		{"aura-2-estrella-es", "es-MX", true},
		{"aura-2-estrella-es", "en-US", false},
	}

	for _, tt := range tests {
		if got := modelSpeaksLanguage(tt.model, tt.language); got != tt.want {
			t.Errorf("modelSpeaksLanguage(%q, %q) = %v, want %v", tt.model, tt.language, got, tt.want)
		}
	}
}

func TestDeepgramSynthesizeWritesClip(t *testing.T) {
	wav := []byte("RIFFfakeWAVEdata")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Token secret" {
			t.Errorf("authorization = %q", got)
		}
		q := r.URL.Query()
		if q.Get("model") != "aura-2-thalia-en" {
			t.Errorf("model = %q", q.Get("model"))
		}
		if q.Get("encoding") != "linear16" || q.Get("container") != "wav" {
			t.Errorf("unexpected audio params: %v", q)
		}
		_, _ = w.Write(wav)
	}))
	defer srv.Close()

	engine := NewDeepgramEngine(DeepgramEngineConfig{
		APIKey:   "secret",
		BaseURL:  srv.URL,
		AudioDir: t.TempDir(),
	})
	if err := engine.ConfigureRoute(); err != nil {
		t.Fatalf("configure route: %v", err)
	}

	clipPath, err := engine.synthesize(context.Background(), "hello there")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}

	data, err := os.ReadFile(clipPath)
	if err != nil {
		t.Fatalf("read clip: %v", err)
	}
	if string(data) != string(wav) {
		t.Fatalf("clip content = %q", data)
	}
}

func TestDeepgramSynthesizeErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	engine := NewDeepgramEngine(DeepgramEngineConfig{
		APIKey:   "wrong",
		BaseURL:  srv.URL,
		AudioDir: t.TempDir(),
	})

	if _, err := engine.synthesize(context.Background(), "hello"); err == nil {
		t.Fatal("expected error for 401 response")
	}
}

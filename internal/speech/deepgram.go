package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	defaultSpeakURL   = "https://api.deepgram.com/v1/speak"
	defaultSpeakModel = "aura-2-thalia-en"
)

// DeepgramEngine synthesizes speech through the Deepgram aura REST endpoint
// and plays the result through a local player binary (ffplay, then afplay,
// then aplay). Speak is fire-and-forget: synthesis and playback run in a
// background goroutine and Stop kills the player process.
type DeepgramEngine struct {
	apiKey   string
	baseURL  string
	model    string
	audioDir string
	httpc    *http.Client

	mu     sync.Mutex
	cancel context.CancelFunc
	cmd    *exec.Cmd
}

type DeepgramEngineConfig struct {
	APIKey   string
	BaseURL  string // optional, defaults to the Deepgram API
	Model    string // optional, defaults to aura-2-thalia-en
	AudioDir string // scratch directory for synthesized clips
}

func NewDeepgramEngine(cfg DeepgramEngineConfig) *DeepgramEngine {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultSpeakURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultSpeakModel
	}
	audioDir := cfg.AudioDir
	if audioDir == "" {
		audioDir = filepath.Join("data", "speech")
	}

	return &DeepgramEngine{
		apiKey:   cfg.APIKey,
		baseURL:  baseURL,
		model:    model,
		audioDir: audioDir,
		httpc:    &http.Client{Timeout: 30 * time.Second},
	}
}

// ConfigureRoute prepares the playback path: any lingering player process is
// stopped and the scratch directory is ensured. Called before every
// utterance.
func (e *DeepgramEngine) ConfigureRoute() error {
	e.stopPlayback()

	if err := os.MkdirAll(e.audioDir, 0o755); err != nil {
		return fmt.Errorf("create speech directory: %w", err)
	}
	return nil
}

// Speak synthesizes text with the configured aura model. Aura voices bake
// pitch and rate into the model name, so those VoiceParams fields cannot be
// varied per utterance; the requested language is cross-checked against the
// model's language suffix and a mismatch is logged.
func (e *DeepgramEngine) Speak(text string, voice VoiceParams) error {
	if e.apiKey == "" {
		return fmt.Errorf("deepgram: API key missing")
	}
	if text == "" {
		return nil
	}
	if !modelSpeaksLanguage(e.model, voice.Language) {
		log.Printf("warning: tts model %s does not cover requested language %s", e.model, voice.Language)
	}

	ctx, cancel := context.WithCancel(context.Background())

	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	e.cancel = cancel
	e.mu.Unlock()

	go func() {
		defer cancel()
		if err := e.synthesizeAndPlay(ctx, text); err != nil && ctx.Err() == nil {
			log.Printf("warning: speech playback failed: %v", err)
		}
	}()

	return nil
}

func (e *DeepgramEngine) Stop() error {
	e.mu.Lock()
	cancel := e.cancel
	e.cancel = nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	e.stopPlayback()
	return nil
}

// modelSpeaksLanguage reports whether an aura model name covers the given
// BCP 47 language tag; aura models end in the primary subtag, as in
// aura-2-thalia-en.
func modelSpeaksLanguage(model, language string) bool {
	if language == "" {
		return true
	}
	primary := strings.ToLower(strings.SplitN(language, "-", 2)[0])
	return strings.HasSuffix(strings.ToLower(model), "-"+primary)
}

func (e *DeepgramEngine) synthesizeAndPlay(ctx context.Context, text string) error {
	clipPath, err := e.synthesize(ctx, text)
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(clipPath) }()

	return e.play(ctx, clipPath)
}

func (e *DeepgramEngine) synthesize(ctx context.Context, text string) (string, error) {
	u, err := url.Parse(e.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse speak URL: %w", err)
	}
	q := u.Query()
	q.Set("model", e.model)
	q.Set("encoding", "linear16")
	q.Set("container", "wav")
	u.RawQuery = q.Encode()

	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", fmt.Errorf("marshal speak request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create speak request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+e.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("speak request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("speak API status %d: %s", resp.StatusCode, string(payload))
	}

	clip, err := os.CreateTemp(e.audioDir, "utterance-*.wav")
	if err != nil {
		return "", fmt.Errorf("create clip file: %w", err)
	}

	if _, err := io.Copy(clip, resp.Body); err != nil {
		_ = clip.Close()
		_ = os.Remove(clip.Name())
		return "", fmt.Errorf("write clip: %w", err)
	}
	if err := clip.Close(); err != nil {
		return "", fmt.Errorf("close clip: %w", err)
	}

	return clip.Name(), nil
}

func (e *DeepgramEngine) play(ctx context.Context, clipPath string) error {
	players := [][]string{
		{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet", clipPath},
		{"afplay", clipPath},
		{"aplay", "-q", clipPath},
	}

	var lastErr error
	for _, argv := range players {
		cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)

		e.mu.Lock()
		e.cmd = cmd
		e.mu.Unlock()

		err := cmd.Run()

		e.mu.Lock()
		e.cmd = nil
		e.mu.Unlock()

		if err == nil || ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err
	}

	return fmt.Errorf("no audio player available: %w", lastErr)
}

func (e *DeepgramEngine) stopPlayback() {
	e.mu.Lock()
	cmd := e.cmd
	e.mu.Unlock()

	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
}

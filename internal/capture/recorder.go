package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultSampleRate = 16000

// Clip describes the audio captured by one finished recording session.
type Clip struct {
	AudioPath string
	Duration  time.Duration
	Size      int64
}

// Recorder owns the lifecycle of one recording attempt at a time: start,
// stop, and retrieval of the captured audio. A second Start while a session
// is active fails with ErrDeviceBusy; silent replacement of a live session
// is the bug class this contract exists to prevent.
type Recorder struct {
	audioDir   string
	sampleRate int
	perms      Permissions
	openMic    func() (Mic, error)
	onPCM      func([]byte)

	mu     sync.Mutex
	active *activeRecording
}

type activeRecording struct {
	id         string
	rawPath    string
	rawFile    *os.File
	mic        Mic
	written    int64
	writtenMu  sync.Mutex
	streamDone chan struct{}
}

type RecorderConfig struct {
	AudioDir    string
	SampleRate  int
	Permissions Permissions
	OpenMic     func() (Mic, error)
	OnPCM       func([]byte) // optional tap, fed every captured chunk
}

func NewRecorder(cfg RecorderConfig) *Recorder {
	audioDir := cfg.AudioDir
	if audioDir == "" {
		audioDir = filepath.Join("data", "audio")
	}
	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = defaultSampleRate
	}

	return &Recorder{
		audioDir:   audioDir,
		sampleRate: sampleRate,
		perms:      cfg.Permissions,
		openMic:    cfg.OpenMic,
		onPCM:      cfg.OnPCM,
	}
}

// RequestPermission resolves the microphone permission, prompting if the
// platform requires it. Safe to call repeatedly.
func (r *Recorder) RequestPermission(ctx context.Context) bool {
	if r.perms == nil {
		return false
	}
	return r.perms.Request(ctx)
}

// Start begins a new recording session and returns its handle.
func (r *Recorder) Start(ctx context.Context) (string, error) {
	if r.perms == nil || !r.perms.Check() {
		return "", ErrPermissionDenied
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		return "", ErrDeviceBusy
	}

	if err := os.MkdirAll(r.audioDir, 0o755); err != nil {
		return "", fmt.Errorf("create audio directory: %w", err)
	}

	id := uuid.NewString()
	rawPath := filepath.Join(r.audioDir, id+".pcm")
	rawFile, err := os.OpenFile(rawPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("open raw pcm file: %w", err)
	}

	mic, err := r.openMic()
	if err != nil {
		_ = rawFile.Close()
		_ = os.Remove(rawPath)
		return "", fmt.Errorf("open microphone: %w", err)
	}
	if err := mic.Start(); err != nil {
		_ = rawFile.Close()
		_ = os.Remove(rawPath)
		return "", fmt.Errorf("start microphone: %w", err)
	}

	rec := &activeRecording{
		id:         id,
		rawPath:    rawPath,
		rawFile:    rawFile,
		mic:        mic,
		streamDone: make(chan struct{}),
	}
	r.active = rec

	go func() {
		defer close(rec.streamDone)
		// Stream returns when the mic is stopped; the terminal error is
		// expected then and carries no information.
		_ = mic.Stream(&recordingWriter{rec: rec, tap: r.onPCM})
	}()

	return id, nil
}

// Stop ends the session identified by id and returns the captured clip as a
// WAV file with duration and size metadata.
func (r *Recorder) Stop(id string) (Clip, error) {
	r.mu.Lock()
	rec := r.active
	if rec == nil || rec.id != id {
		r.mu.Unlock()
		return Clip{}, ErrNoActiveSession
	}
	r.active = nil
	r.mu.Unlock()

	_ = rec.mic.Stop()

	select {
	case <-rec.streamDone:
	case <-time.After(2 * time.Second):
	}

	if err := rec.rawFile.Close(); err != nil {
		return Clip{}, fmt.Errorf("close raw pcm file: %w", err)
	}

	wavPath := filepath.Join(r.audioDir, id+".wav")
	if err := pcmToWav(rec.rawPath, wavPath, r.sampleRate); err != nil {
		return Clip{}, fmt.Errorf("encode wav: %w", err)
	}
	_ = os.Remove(rec.rawPath)

	info, err := os.Stat(wavPath)
	if err != nil {
		return Clip{}, fmt.Errorf("stat wav file: %w", err)
	}

	rec.writtenMu.Lock()
	written := rec.written
	rec.writtenMu.Unlock()

	seconds := float64(written) / float64(r.sampleRate*2)
	return Clip{
		AudioPath: wavPath,
		Duration:  time.Duration(seconds * float64(time.Second)),
		Size:      info.Size(),
	}, nil
}

// Active reports whether a recording session is currently in progress.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active != nil
}

type recordingWriter struct {
	rec *activeRecording
	tap func([]byte)
}

func (w *recordingWriter) Write(p []byte) (int, error) {
	w.rec.writtenMu.Lock()
	n, err := w.rec.rawFile.Write(p)
	w.rec.written += int64(n)
	w.rec.writtenMu.Unlock()
	if err != nil {
		return n, fmt.Errorf("write raw pcm bytes: %w", err)
	}

	if w.tap != nil {
		w.tap(p[:n])
	}
	return n, nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/JeffCorp/peera-voice/internal/assistant"
	"github.com/JeffCorp/peera-voice/internal/backup"
	"github.com/JeffCorp/peera-voice/internal/capture"
	"github.com/JeffCorp/peera-voice/internal/config"
	"github.com/JeffCorp/peera-voice/internal/server"
	"github.com/JeffCorp/peera-voice/internal/speech"
	"github.com/JeffCorp/peera-voice/internal/storage"
	"github.com/JeffCorp/peera-voice/internal/transcribe"
	"github.com/JeffCorp/peera-voice/internal/voice"
)

// historyStore persists each finished interaction to sqlite and mirrors it
// into the daily markdown journal.
type historyStore struct {
	db      *storage.SQLiteStore
	journal *storage.Writer
}

func (h historyStore) SaveInteraction(rec storage.Interaction) error {
	if err := h.db.SaveInteraction(rec); err != nil {
		return err
	}
	if err := h.journal.Append(rec); err != nil {
		log.Printf("warning: journal append failed: %v", err)
	}
	return nil
}

func main() {
	log.Println("peera-voice: starting")

	cfg, warnings, err := config.Load(os.Getenv(config.EnvPrefix + "CONFIG"))
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	for _, w := range warnings {
		log.Printf("warning: %s", w)
	}

	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("storage init failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	journal := storage.NewWriter(cfg.JournalDir)
	hub := server.NewHub()

	engine := speech.NewDeepgramEngine(speech.DeepgramEngineConfig{
		APIKey:   cfg.DeepgramAPIKey,
		Model:    cfg.TTSModel,
		AudioDir: filepath.Join(cfg.AudioDir, "speech"),
	})
	speaker, err := speech.NewOutput(engine, cfg.ParsedSpeechBaseDelay(), cfg.ParsedSpeechPerCharCost())
	if err != nil {
		log.Fatalf("speech output init failed: %v", err)
	}

	if cfg.MicBackend == "deepgram" {
		capture.InitDeepgramAudio()
		defer capture.TeardownDeepgramAudio()
	} else {
		if err := portaudio.Initialize(); err != nil {
			log.Printf("warning: portaudio init failed, recording disabled: %v", err)
		} else {
			defer func() { _ = portaudio.Terminate() }()
		}
	}
	openMic := micFactory(cfg)

	var activity capture.ActivityDetector
	var onPCM func([]byte)
	if cfg.VADMode == "level" {
		analyzer := capture.NewLevelAnalyzer(float64(cfg.VADThreshold))
		activity = analyzer
		onPCM = analyzer.Feed
	} else {
		activity = capture.NewTimerStub(cfg.ParsedActivityTick())
	}

	// The OS permission prompt happens when the device is opened; the
	// in-process check just remembers the answer.
	perms := capture.NewStaticPermissions(true)
	recorder := capture.NewRecorder(capture.RecorderConfig{
		AudioDir:    cfg.AudioDir,
		SampleRate:  cfg.MicSampleRate,
		Permissions: perms,
		OpenMic:     openMic,
		OnPCM:       onPCM,
	})

	transcriber, err := buildTranscriber(cfg)
	if err != nil {
		log.Fatalf("transcriber init failed: %v", err)
	}

	var opts []assistant.Option
	if cfg.AssistantURL != "" {
		opts = append(opts, assistant.WithBaseURL(cfg.AssistantURL))
	}
	dispatcher, err := assistant.NewClient(cfg.AssistantProvider, cfg.AssistantAPIKey(), cfg.AssistantModel, opts...)
	if err != nil {
		log.Fatalf("assistant init failed: %v", err)
	}

	controller, err := voice.NewController(voice.Config{
		Capture:        recorder,
		Transcriber:    transcriber,
		Dispatcher:     dispatcher,
		Speaker:        speaker,
		Activity:       activity,
		Store:          historyStore{db: store, journal: journal},
		SilenceTimeout: cfg.ParsedSilenceTimeout(),
		Language:       cfg.Language,
		Voice: speech.VoiceParams{
			Pitch:    cfg.VoicePitch,
			Rate:     cfg.VoiceRate,
			Language: cfg.Language,
		},
	})
	if err != nil {
		log.Fatalf("voice controller init failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	obs := voice.Observer{
		OnState: func(from, to voice.State) {
			hub.BroadcastStateChanged(string(from), string(to))
		},
	}

	startInteraction := func() error {
		if controller.State() != voice.StateIdle {
			return voice.ErrBusy
		}
		go func() {
			result, err := controller.Run(ctx, obs)
			if err != nil {
				if !errors.Is(err, voice.ErrBusy) {
					log.Printf("interaction run error: %v", err)
				}
				return
			}
			if result.Failed() {
				hub.BroadcastPipelineError(string(result.Failure.Reason), result.Failure.Message)
				return
			}
			hub.BroadcastTranscription(result.Transcription.Text, result.Transcription.Confidence, result.Transcription.Language)
			hub.BroadcastAssistantResponse(result.Response.Text, result.Response.Action)
			hub.BroadcastSpeech(result.Response.Text, speech.PriorityImportant.String())
		}()
		return nil
	}

	handler := server.Handler(hub, store, server.ControlHooks{
		StartInteraction: startInteraction,
		StopRecording:    controller.StopRecording,
		Cancel:           controller.Cancel,
		State:            controller.State,
		Warnings:         func() []string { return warnings },
	})

	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: handler}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http server error: %v", err)
		}
	}()

	if cfg.GDriveFolderID != "" {
		syncer, syncErr := backup.NewSyncer(ctx, cfg.GoogleCredentialsFile, cfg.GDriveFolderID)
		if syncErr != nil {
			log.Printf("warning: gdrive backup disabled: %v", syncErr)
		} else {
			go func() {
				ticker := time.NewTicker(5 * time.Minute)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						if err := syncer.SyncJournal(cfg.JournalDir); err != nil {
							log.Printf("gdrive journal backup error: %v", err)
						}
						if err := syncer.SyncHistory(cfg.DBPath); err != nil {
							log.Printf("gdrive history backup error: %v", err)
						}
					}
				}
			}()
		}
	}

	log.Printf("peera-voice: API on http://%s", cfg.ListenAddr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("peera-voice: shutting down")
	controller.Cancel()
	cancel()
	speaker.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("warning: http shutdown failed: %v", err)
	}
}

func micFactory(cfg config.Config) func() (capture.Mic, error) {
	if cfg.MicBackend == "deepgram" {
		return func() (capture.Mic, error) {
			return capture.NewDeepgramMic(cfg.MicSampleRate)
		}
	}
	return func() (capture.Mic, error) {
		return capture.NewPortAudioMic(cfg.MicSampleRate, 1024)
	}
}

func buildTranscriber(cfg config.Config) (transcribe.Transcriber, error) {
	if cfg.TranscribeURL != "" {
		primary := transcribe.NewHTTPClient(transcribe.HTTPClientConfig{
			BaseURL: cfg.TranscribeURL,
			APIKey:  cfg.TranscribeAPIKey,
		})
		if cfg.TranscribeFallback {
			return transcribe.WithFallback(primary, transcribe.NewCanned(nil, cfg.Language)), nil
		}
		return primary, nil
	}
	if cfg.TranscribeFallback {
		return transcribe.NewCanned(nil, cfg.Language), nil
	}
	return nil, fmt.Errorf("no transcription service configured: set transcribe_url or enable transcribe_fallback")
}

package voice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JeffCorp/peera-voice/internal/assistant"
	"github.com/JeffCorp/peera-voice/internal/capture"
	"github.com/JeffCorp/peera-voice/internal/intent"
	"github.com/JeffCorp/peera-voice/internal/speech"
	"github.com/JeffCorp/peera-voice/internal/storage"
	"github.com/JeffCorp/peera-voice/internal/transcribe"
)

const (
	transcriptionFailureMessage = "Sorry, I couldn't understand that. Please try again."
	dispatchFailureMessage      = "Sorry, something went wrong handling your request."
	permissionDeniedMessage     = "microphone permission denied"
	transcribeContextTag        = "voice-command"
)

// Controller orchestrates one voice interaction at a time: permission,
// recording with silence-driven stop, transcription, dispatch, and spoken
// response. It is the only component with mutable cross-call state.
type Controller struct {
	capture     Capture
	transcriber transcribe.Transcriber
	dispatcher  assistant.Client
	speaker     Speaker
	extract     func(string) intent.Intent
	activity    capture.ActivityDetector
	store       Store

	silenceTimeout time.Duration
	language       string
	voiceParams    speech.VoiceParams

	mu      sync.Mutex
	state   State
	stopCh  chan struct{}
	stopped bool
	cancel  context.CancelFunc
}

type Config struct {
	Capture     Capture
	Transcriber transcribe.Transcriber
	Dispatcher  assistant.Client
	Speaker     Speaker
	Activity    capture.ActivityDetector
	Store       Store // optional

	SilenceTimeout time.Duration // defaults to 2s
	Language       string        // defaults to en-US
	Voice          speech.VoiceParams
}

func NewController(cfg Config) (*Controller, error) {
	if cfg.Capture == nil || cfg.Transcriber == nil || cfg.Dispatcher == nil || cfg.Speaker == nil || cfg.Activity == nil {
		return nil, errors.New("voice: capture, transcriber, dispatcher, speaker and activity are required")
	}

	silence := cfg.SilenceTimeout
	if silence <= 0 {
		silence = 2 * time.Second
	}
	language := cfg.Language
	if language == "" {
		language = "en-US"
	}

	return &Controller{
		capture:        cfg.Capture,
		transcriber:    cfg.Transcriber,
		dispatcher:     cfg.Dispatcher,
		speaker:        cfg.Speaker,
		extract:        intent.Extract,
		activity:       cfg.Activity,
		store:          cfg.Store,
		silenceTimeout: silence,
		language:       language,
		voiceParams:    cfg.Voice,
		state:          StateIdle,
	}, nil
}

// State returns the controller's current pipeline state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// StopRecording ends the capture phase early, exactly as the silence timer
// would. Outside the recording state it returns ErrNoActiveRecording.
func (c *Controller) StopRecording() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRecording || c.stopCh == nil {
		return ErrNoActiveRecording
	}
	if !c.stopped {
		c.stopped = true
		close(c.stopCh)
	}
	return nil
}

// Cancel aborts the in-flight run, if any. The run fails with
// ReasonCancelled and skips the spoken-error side effect.
func (c *Controller) Cancel() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Run executes one full pipeline run and blocks until it reaches idle
// again. While a run is in flight, further Run calls fail with ErrBusy and
// leave the in-flight run untouched; there is no queue. Failures during the
// run are reported in the Result, not as an error.
func (c *Controller) Run(ctx context.Context, obs Observer) (Result, error) {
	runCtx, cancel, err := c.begin(ctx, obs)
	if err != nil {
		return Result{}, err
	}

	startedAt := time.Now().UTC()
	result := c.pipeline(runCtx, obs)
	cancel()

	c.save(result, startedAt)
	c.setState(StateIdle, obs)
	return result, nil
}

func (c *Controller) begin(ctx context.Context, obs Observer) (context.Context, context.CancelFunc, error) {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return nil, nil, ErrBusy
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.stopCh = make(chan struct{})
	c.stopped = false
	from := c.state
	c.state = StateRequestingPermission
	c.mu.Unlock()

	notifyState(obs, from, StateRequestingPermission)
	return runCtx, cancel, nil
}

// pipeline walks the state machine for a single run. Every return path has
// already moved the controller to Failed (via fail) or Speaking; Run resets
// to Idle afterwards.
func (c *Controller) pipeline(ctx context.Context, obs Observer) Result {
	result := Result{InteractionID: uuid.NewString()}

	// Permission and device failures happen before anything was heard, so
	// they are reported synchronously and never spoken.
	if !c.capture.RequestPermission(ctx) {
		return c.fail(result, obs, Failure{
			Reason:  ReasonPermissionDenied,
			Message: permissionDeniedMessage,
			Err:     capture.ErrPermissionDenied,
		}, false)
	}

	sessionID, err := c.capture.Start(ctx)
	if err != nil {
		return c.fail(result, obs, captureFailure(err), false)
	}

	c.setState(StateRecording, obs)

	detector := newSilenceDetector(c.silenceTimeout, func() {
		_ = c.StopRecording()
	})
	detector.Arm()
	c.activity.Start(detector.OnActivity)

	cancelled := false
	select {
	case <-c.currentStopCh():
	case <-ctx.Done():
		cancelled = true
	}

	c.activity.Stop()
	detector.Disarm()

	c.setState(StateStopping, obs)
	clip, err := c.capture.Stop(sessionID)
	if cancelled {
		return c.fail(result, obs, Failure{
			Reason:  ReasonCancelled,
			Message: "interaction cancelled",
			Err:     ctx.Err(),
		}, false)
	}
	if err != nil {
		return c.fail(result, obs, captureFailure(err), false)
	}

	c.setState(StateTranscribing, obs)
	tr, err := c.transcriber.Transcribe(ctx, clip.AudioPath, c.language, transcribeContextTag)
	if err != nil {
		if ctx.Err() != nil {
			return c.fail(result, obs, cancelledFailure(ctx, err), false)
		}
		return c.fail(result, obs, Failure{
			Reason:  ReasonTranscriptionFailure,
			Message: transcriptionFailureMessage,
			Err:     err,
		}, true)
	}
	result.Transcription = tr
	result.Intent = c.extract(tr.Text)

	c.setState(StateDispatching, obs)
	resp, err := c.dispatcher.Dispatch(ctx, tr.Text)
	if err != nil {
		if ctx.Err() != nil {
			return c.fail(result, obs, cancelledFailure(ctx, err), false)
		}
		return c.fail(result, obs, Failure{
			Reason:  ReasonDispatchFailure,
			Message: dispatchFailureMessage,
			Err:     err,
		}, true)
	}
	result.Response = resp

	c.setState(StateSpeaking, obs)

	// The success callback fires alongside the spoken response, without
	// waiting for playback.
	if obs.OnTranscription != nil {
		obs.OnTranscription(tr.Text)
	}
	c.speak(ctx, resp.Text)

	return result
}

// fail records the failure, optionally speaks it, and notifies the error
// callback exactly once. Spoken and callback reporting are deliberately
// redundant: the user may not be looking at the screen.
func (c *Controller) fail(result Result, obs Observer, failure Failure, spoken bool) Result {
	result.Failure = &failure
	c.setState(StateFailed, obs)

	if spoken {
		c.speak(context.Background(), failure.Message)
	}
	// Cancellation is user-initiated, not an error the UI needs to surface.
	if failure.Reason != ReasonCancelled && obs.OnError != nil {
		obs.OnError(failure.Message)
	}
	return result
}

// speak plays text at Important priority and waits for the completion
// signal, bailing out if the run is cancelled mid-utterance.
func (c *Controller) speak(ctx context.Context, text string) {
	done := make(chan struct{})
	req := speech.Request{
		Text:     text,
		Priority: speech.PriorityImportant,
		Voice:    c.voiceParams,
		OnDone:   func() { close(done) },
	}

	if err := c.speaker.Speak(req); err != nil {
		log.Printf("warning: speech output failed: %v", err)
		return
	}

	select {
	case <-done:
	case <-ctx.Done():
		c.speaker.Stop()
	}
}

func (c *Controller) save(result Result, startedAt time.Time) {
	if c.store == nil {
		return
	}

	rec := storage.Interaction{
		ID:             result.InteractionID,
		StartedAt:      startedAt,
		EndedAt:        time.Now().UTC(),
		Outcome:        storage.OutcomeCompleted,
		Transcription:  result.Transcription.Text,
		Confidence:     result.Transcription.Confidence,
		Language:       result.Transcription.Language,
		IntentAction:   string(result.Intent.Action),
		ResponseText:   result.Response.Text,
		ResponseAction: result.Response.Action,
	}
	if result.Failure != nil {
		rec.Outcome = storage.OutcomeFailed
		rec.FailureReason = string(result.Failure.Reason)
	}
	if result.Intent.Action != "" {
		if slots, err := json.Marshal(result.Intent); err == nil {
			rec.IntentSlots = string(slots)
		}
	}

	if err := c.store.SaveInteraction(rec); err != nil {
		log.Printf("warning: save interaction %s failed: %v", rec.ID, err)
	}
}

func (c *Controller) setState(to State, obs Observer) {
	c.mu.Lock()
	from := c.state
	c.state = to
	if to == StateIdle {
		c.cancel = nil
		c.stopCh = nil
		c.stopped = false
	}
	c.mu.Unlock()

	if from != to {
		notifyState(obs, from, to)
	}
}

func (c *Controller) currentStopCh() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopCh
}

func notifyState(obs Observer, from, to State) {
	if obs.OnState != nil {
		obs.OnState(from, to)
	}
}

func captureFailure(err error) Failure {
	switch {
	case errors.Is(err, capture.ErrPermissionDenied):
		return Failure{Reason: ReasonPermissionDenied, Message: permissionDeniedMessage, Err: err}
	case errors.Is(err, capture.ErrDeviceBusy):
		return Failure{Reason: ReasonDeviceBusy, Message: "recording device busy", Err: err}
	default:
		return Failure{Reason: ReasonCaptureFailure, Message: fmt.Sprintf("audio capture failed: %v", err), Err: err}
	}
}

func cancelledFailure(ctx context.Context, err error) Failure {
	return Failure{Reason: ReasonCancelled, Message: "interaction cancelled", Err: errors.Join(ctx.Err(), err)}
}

package voice

import (
	"context"

	"github.com/JeffCorp/peera-voice/internal/assistant"
	"github.com/JeffCorp/peera-voice/internal/capture"
	"github.com/JeffCorp/peera-voice/internal/intent"
	"github.com/JeffCorp/peera-voice/internal/speech"
	"github.com/JeffCorp/peera-voice/internal/storage"
	"github.com/JeffCorp/peera-voice/internal/transcribe"
)

// State is the controller's position in the interaction pipeline. Exactly
// one interaction may be in a non-idle state at a time.
type State string

const (
	StateIdle                 State = "idle"
	StateRequestingPermission State = "requesting_permission"
	StateRecording            State = "recording"
	StateStopping             State = "stopping"
	StateTranscribing         State = "transcribing"
	StateDispatching          State = "dispatching"
	StateSpeaking             State = "speaking"
	StateFailed               State = "failed"
)

// Reason classifies why a pipeline run failed.
type Reason string

const (
	ReasonPermissionDenied     Reason = "permission_denied"
	ReasonDeviceBusy           Reason = "device_busy"
	ReasonCaptureFailure       Reason = "capture_failure"
	ReasonTranscriptionFailure Reason = "transcription_failure"
	ReasonDispatchFailure      Reason = "dispatch_failure"
	ReasonCancelled            Reason = "cancelled"
)

// Failure carries the reason and underlying error of a failed run.
type Failure struct {
	Reason  Reason
	Message string
	Err     error
}

// Result is the outcome of one pipeline run: either Failure is nil and the
// transcription/intent/response fields are populated, or Failure explains
// what went wrong.
type Result struct {
	InteractionID string
	Transcription transcribe.Result
	Intent        intent.Intent
	Response      assistant.Response
	Failure       *Failure
}

func (r Result) Failed() bool { return r.Failure != nil }

// Observer receives UI-facing notifications layered on top of the awaitable
// Run call. Each callback fires at most once per run; all fields are
// optional.
type Observer struct {
	OnTranscription func(text string)
	OnError         func(message string)
	OnState         func(from, to State)
}

// Capture is the recording boundary the controller drives.
type Capture interface {
	RequestPermission(ctx context.Context) bool
	Start(ctx context.Context) (string, error)
	Stop(id string) (capture.Clip, error)
}

// Speaker plays responses and error messages.
type Speaker interface {
	Speak(req speech.Request) error
	Stop()
}

// Store persists finished interactions; it may be nil to disable history.
type Store interface {
	SaveInteraction(rec storage.Interaction) error
}

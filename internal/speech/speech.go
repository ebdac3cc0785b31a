package speech

// Priority orders utterances. An Important request preempts an in-flight
// Normal one; a Normal request while anything is playing replaces the single
// pending Normal slot (queue of one).
type Priority int

const (
	PriorityNormal Priority = iota
	PriorityImportant
)

func (p Priority) String() string {
	if p == PriorityImportant {
		return "important"
	}
	return "normal"
}

// VoiceParams tune the synthesized voice.
type VoiceParams struct {
	Pitch    float64
	Rate     float64
	Language string
}

// Request is one utterance to speak. OnDone fires exactly once when the
// utterance finishes, is preempted, or is stopped; it may be nil.
type Request struct {
	Text     string
	Priority Priority
	Voice    VoiceParams
	OnDone   func()
}

// Engine is the platform text-to-speech boundary. Speak is fire-and-forget:
// the engine reports no completion event, so Output approximates completion
// with a timer sized to the text length.
type Engine interface {
	// ConfigureRoute switches the shared audio path to playback. It must be
	// called before every utterance, not once: the audio subsystem may have
	// been reconfigured for recording in between.
	ConfigureRoute() error
	Speak(text string, voice VoiceParams) error
	Stop() error
}

package capture

import (
	"io"

	microphone "github.com/deepgram/deepgram-go-sdk/v3/pkg/audio/microphone"
)

// DeepgramMic is the Deepgram SDK microphone backend. It handles device
// fallback internally and matches the Mic interface used by the recorder.
type DeepgramMic struct {
	mic *microphone.Microphone
}

// InitDeepgramAudio must be called once at process start before opening a
// DeepgramMic; TeardownDeepgramAudio releases the audio subsystem on exit.
func InitDeepgramAudio()     { microphone.Initialize() }
func TeardownDeepgramAudio() { microphone.Teardown() }

func NewDeepgramMic(sampleRate int) (*DeepgramMic, error) {
	mic, err := microphone.New(microphone.AudioConfig{
		InputChannels: 1,
		SamplingRate:  float32(sampleRate),
	})
	if err != nil {
		return nil, err
	}
	return &DeepgramMic{mic: mic}, nil
}

func (m *DeepgramMic) Start() error { return m.mic.Start() }
func (m *DeepgramMic) Stop() error  { return m.mic.Stop() }

func (m *DeepgramMic) Stream(w io.Writer) error { return m.mic.Stream(w) }

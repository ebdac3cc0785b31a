package capture

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/gordonklaus/portaudio"
)

// Mic is one microphone backend. Stream blocks, writing PCM16-LE mono to w
// until the stream is stopped or fails.
type Mic interface {
	Start() error
	Stop() error
	Stream(w io.Writer) error
}

// PortAudioMic captures from the default input device via PortAudio.
type PortAudioMic struct {
	stream *portaudio.Stream
	buf    []int16
}

// NewPortAudioMic opens a capture stream with the given sample rate and
// buffer size in frames. Call portaudio.Initialize first.
func NewPortAudioMic(sampleRate, framesPerBuffer int) (*PortAudioMic, error) {
	buf := make([]int16, framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), framesPerBuffer, buf)
	if err != nil {
		return nil, err
	}
	return &PortAudioMic{stream: stream, buf: buf}, nil
}

func (m *PortAudioMic) Start() error { return m.stream.Start() }
func (m *PortAudioMic) Stop() error  { return m.stream.Stop() }

func (m *PortAudioMic) Stream(w io.Writer) error {
	var out bytes.Buffer
	out.Grow(len(m.buf) * 2) // int16 = 2 bytes per sample
	for {
		if err := m.stream.Read(); err != nil {
			return err
		}
		out.Reset()
		if err := binary.Write(&out, binary.LittleEndian, m.buf); err != nil {
			return err
		}
		if _, err := w.Write(out.Bytes()); err != nil {
			return err
		}
	}
}

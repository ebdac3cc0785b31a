package voice

import "errors"

var (
	// ErrBusy is returned by Run while another interaction is anywhere
	// between recording and idle. There is no queue: a rejected start is
	// terminal for that call.
	ErrBusy = errors.New("voice interaction already in progress")

	// ErrNoActiveRecording is returned by StopRecording outside the
	// recording state.
	ErrNoActiveRecording = errors.New("no recording in progress")
)

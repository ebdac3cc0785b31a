package capture

import "errors"

var (
	// ErrPermissionDenied is returned by Start when microphone permission
	// was never granted.
	ErrPermissionDenied = errors.New("microphone permission denied")

	// ErrDeviceBusy is returned by Start while another capture session is
	// active. Start fails fast instead of silently replacing the old
	// session.
	ErrDeviceBusy = errors.New("capture device busy")

	// ErrNoActiveSession is returned by Stop without a matching Start.
	ErrNoActiveSession = errors.New("no active capture session")
)

package voice

import (
	"sync"
	"time"
)

// silenceDetector fires a callback when no voice activity has been reported
// for the configured interval. Arm starts the countdown, OnActivity re-arms
// it, Disarm cancels it. The callback fires at most once per Arm.
type silenceDetector struct {
	timeout   time.Duration
	mu        sync.Mutex
	timer     *time.Timer
	armed     bool
	onSilence func()
}

func newSilenceDetector(timeout time.Duration, onSilence func()) *silenceDetector {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &silenceDetector{timeout: timeout, onSilence: onSilence}
}

func (d *silenceDetector) Arm() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.armed = true
	d.resetLocked()
}

// OnActivity refreshes the countdown; a no-op unless armed.
func (d *silenceDetector) OnActivity() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.armed {
		return
	}
	d.resetLocked()
}

func (d *silenceDetector) Disarm() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.armed = false
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *silenceDetector) resetLocked() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.timeout, func() {
		d.mu.Lock()
		fire := d.armed
		d.armed = false
		d.timer = nil
		d.mu.Unlock()

		if fire && d.onSilence != nil {
			d.onSilence()
		}
	})
}

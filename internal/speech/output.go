package speech

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	defaultBaseDuration    = time.Second
	defaultPerCharDuration = 50 * time.Millisecond
)

var errNoEngine = errors.New("speech: engine is required")

// Output serializes utterances through an Engine. At most one utterance is
// active at a time; completion is approximated by a timer proportional to
// text length because the engine has no native completion event. Platforms
// with a real completion callback should signal it by calling Stop early.
type Output struct {
	engine  Engine
	base    time.Duration
	perChar time.Duration

	mu       sync.Mutex
	speaking bool
	pending  *Request // queue of one, Normal priority only
	timer    *time.Timer
	gen      uint64
	onDone   func()
}

func NewOutput(engine Engine, base, perChar time.Duration) (*Output, error) {
	if engine == nil {
		return nil, errNoEngine
	}
	if base <= 0 {
		base = defaultBaseDuration
	}
	if perChar <= 0 {
		perChar = defaultPerCharDuration
	}
	return &Output{engine: engine, base: base, perChar: perChar}, nil
}

// Speak requests an utterance. Important preempts whatever is in flight; a
// Normal request while busy replaces any pending Normal request and returns
// without error.
func (o *Output) Speak(req Request) error {
	o.mu.Lock()

	// Loop rather than branch: another Speak may slip in while the lock is
	// released for the engine stop, so re-check after reacquiring.
	for o.speaking {
		if req.Priority != PriorityImportant {
			replaced := o.pending
			o.pending = &req
			o.mu.Unlock()
			if replaced != nil {
				notifyDone(replaced)
			}
			return nil
		}

		// Preempt the in-flight utterance.
		o.cancelTimerLocked()
		o.speaking = false
		done := o.onDone
		o.onDone = nil
		o.mu.Unlock()

		// The preempted request is finished either way; its callback must
		// fire even if the engine refuses to stop.
		stopErr := o.engine.Stop()
		if done != nil {
			done()
		}
		if stopErr != nil {
			return fmt.Errorf("stop in-flight speech: %w", stopErr)
		}

		o.mu.Lock()
	}

	err := o.startLocked(req)
	o.mu.Unlock()
	return err
}

// Stop cancels any in-flight and pending speech. Idempotent.
func (o *Output) Stop() {
	o.mu.Lock()
	o.cancelTimerLocked()
	wasSpeaking := o.speaking
	o.speaking = false
	done := o.onDone
	o.onDone = nil
	pending := o.pending
	o.pending = nil
	o.mu.Unlock()

	if wasSpeaking {
		_ = o.engine.Stop()
	}
	if done != nil {
		done()
	}
	if pending != nil {
		notifyDone(pending)
	}
}

// Speaking reports whether an utterance is currently in flight.
func (o *Output) Speaking() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.speaking
}

// startLocked begins playback of req. Callers hold o.mu.
func (o *Output) startLocked(req Request) error {
	// The shared audio path may have been switched to recording since the
	// last utterance; reconfigure on every speak.
	if err := o.engine.ConfigureRoute(); err != nil {
		return fmt.Errorf("configure audio route: %w", err)
	}
	if err := o.engine.Speak(req.Text, req.Voice); err != nil {
		return fmt.Errorf("speak: %w", err)
	}

	o.speaking = true
	o.onDone = req.OnDone
	o.gen++
	gen := o.gen
	o.timer = time.AfterFunc(o.estimate(req.Text), func() {
		o.complete(gen)
	})
	return nil
}

// complete fires when the completion timer for generation gen elapses. A
// stale generation means the utterance was already stopped or preempted.
func (o *Output) complete(gen uint64) {
	o.mu.Lock()
	if !o.speaking || gen != o.gen {
		o.mu.Unlock()
		return
	}
	o.speaking = false
	done := o.onDone
	o.onDone = nil
	next := o.pending
	o.pending = nil
	o.mu.Unlock()

	if done != nil {
		done()
	}

	if next != nil {
		o.mu.Lock()
		if o.speaking {
			// A Speak beat the pending request to the engine; the pending
			// request loses its slot but still gets its callback.
			o.mu.Unlock()
			notifyDone(next)
			return
		}
		err := o.startLocked(*next)
		o.mu.Unlock()
		if err != nil {
			notifyDone(next)
		}
	}
}

func (o *Output) cancelTimerLocked() {
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
}

func (o *Output) estimate(text string) time.Duration {
	return o.base + time.Duration(len(text))*o.perChar
}

func notifyDone(req *Request) {
	if req.OnDone != nil {
		req.OnDone()
	}
}

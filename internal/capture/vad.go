package capture

import (
	"encoding/binary"
	"math"
	"sync"
	"time"
)

// ActivityDetector reports voice activity while a recording session runs.
// Start registers the notify callback and begins emitting activity ticks;
// Stop silences the detector. The silence-timeout logic lives in the
// interaction controller; detectors only say "the user is still talking".
type ActivityDetector interface {
	Start(notify func())
	Stop()
}

// TimerStub emits an activity tick on a fixed interval regardless of the
// actual audio. It is a placeholder for real voice-activity detection: with
// it armed, recording only ever stops via manual stop or the silence timeout
// after ticking ceases.
type TimerStub struct {
	interval time.Duration

	mu     sync.Mutex
	ticker *time.Ticker
	done   chan struct{}
}

func NewTimerStub(interval time.Duration) *TimerStub {
	if interval <= 0 {
		interval = time.Second
	}
	return &TimerStub{interval: interval}
}

func (t *TimerStub) Start(notify func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ticker != nil {
		return
	}

	t.ticker = time.NewTicker(t.interval)
	t.done = make(chan struct{})

	go func(ticker *time.Ticker, done chan struct{}) {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				notify()
			}
		}
	}(t.ticker, t.done)
}

func (t *TimerStub) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ticker == nil {
		return
	}
	t.ticker.Stop()
	close(t.done)
	t.ticker = nil
	t.done = nil
}

// LevelAnalyzer derives activity from the RMS energy of captured PCM16-LE
// frames. Feed it from the recorder's PCM tap.
type LevelAnalyzer struct {
	threshold float64

	mu     sync.Mutex
	notify func()
}

func NewLevelAnalyzer(threshold float64) *LevelAnalyzer {
	if threshold <= 0 {
		threshold = 300
	}
	return &LevelAnalyzer{threshold: threshold}
}

func (l *LevelAnalyzer) Start(notify func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notify = notify
}

func (l *LevelAnalyzer) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notify = nil
}

// Feed analyzes one chunk of PCM16-LE samples and emits an activity tick
// when the energy crosses the threshold.
func (l *LevelAnalyzer) Feed(pcm []byte) {
	if len(pcm) < 2 {
		return
	}

	l.mu.Lock()
	notify := l.notify
	l.mu.Unlock()
	if notify == nil {
		return
	}

	var sum float64
	samples := len(pcm) / 2
	for i := 0; i < samples; i++ {
		s := float64(int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2])))
		sum += s * s
	}
	rms := math.Sqrt(sum / float64(samples))

	if rms >= l.threshold {
		notify()
	}
}

package alarm

import (
	"fmt"
	"sync"
	"time"
)

// ToneSink is an audio output that accepts raw mono samples.
type ToneSink interface {
	Open(sampleRate int) error
	Write(samples []float32) error
	Close() error
}

// ToneSynthesizer beeps through a ToneSink on a fixed interval. It only works
// after Unlock.
type ToneSynthesizer struct {
	mu       sync.Mutex
	sink     ToneSink
	clock    Clock
	rate     int
	interval time.Duration
	pattern  []float32
	gate     func() bool

	unlocked bool
	running  bool
	stop     func()
}

// NewToneSynthesizer builds the fallback backend. gate is checked before every
// scheduled beep; a false result skips it.
func NewToneSynthesizer(sink ToneSink, clock Clock, sampleRate int, interval time.Duration, volume float64, gate func() bool) *ToneSynthesizer {
	if clock == nil {
		clock = SystemClock{}
	}
	return &ToneSynthesizer{
		sink:     sink,
		clock:    clock,
		rate:     sampleRate,
		interval: interval,
		pattern:  TonePattern(sampleRate, volume),
		gate:     gate,
	}
}

// Unlock opens the sink and primes it with silence. Later calls are no-ops.
func (t *ToneSynthesizer) Unlock() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.unlocked {
		return nil
	}
	if t.sink == nil {
		return ErrLocked
	}
	if err := t.sink.Open(t.rate); err != nil {
		return fmt.Errorf("cannot open tone sink: %w", err)
	}
	if err := t.sink.Write(Silence(t.rate)); err != nil {
		return fmt.Errorf("cannot prime tone sink: %w", err)
	}
	t.unlocked = true
	return nil
}

func (t *ToneSynthesizer) Unlocked() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.unlocked
}

func (t *ToneSynthesizer) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.unlocked {
		return ErrLocked
	}
	if t.running {
		return nil
	}
	t.running = true
	t.beep()
	t.stop = t.clock.Every(t.interval, t.tick)
	return nil
}

func (t *ToneSynthesizer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.halt()
}

func (t *ToneSynthesizer) halt() {
	t.running = false
	if t.stop != nil {
		t.stop()
		t.stop = nil
	}
}

// Close stops beeping and releases the sink.
func (t *ToneSynthesizer) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.halt()
	if !t.unlocked {
		return nil
	}
	t.unlocked = false
	return t.sink.Close()
}

func (t *ToneSynthesizer) tick() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return
	}
	if t.gate != nil && !t.gate() {
		return
	}
	t.beep()
}

func (t *ToneSynthesizer) beep() {
	// Write failures leave the next tick to try again.
	_ = t.sink.Write(t.pattern)
}

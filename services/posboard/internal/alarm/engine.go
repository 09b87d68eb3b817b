package alarm

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/aquamarinepk/aqm"
)

const (
	DefaultBeepInterval = 1500 * time.Millisecond
	DefaultSampleRate   = 22050
	DefaultVolume       = 0.7
)

type Config struct {
	ClipURL      string
	Volume       float64
	BeepInterval time.Duration
	SampleRate   int
}

func (c Config) withDefaults() Config {
	if c.Volume <= 0 || c.Volume > 1 {
		c.Volume = DefaultVolume
	}
	if c.BeepInterval <= 0 {
		c.BeepInterval = DefaultBeepInterval
	}
	if c.SampleRate <= 0 {
		c.SampleRate = DefaultSampleRate
	}
	return c
}

// State is the audio portion of a rendered board.
type State struct {
	Muted    bool   `json:"muted"`
	Unlocked bool   `json:"unlocked"`
	Active   bool   `json:"alarm_active"`
	Sounding bool   `json:"sounding"`
	Backend  string `json:"backend,omitempty"`
}

// Engine decides when the alarm sounds and through which backend. The alarm
// is active while it is wanted and not muted.
type Engine struct {
	mu     sync.Mutex
	file   *FilePlayer
	tone   *ToneSynthesizer
	logger aqm.Logger

	muted  atomic.Bool
	wanted bool
	active Backend
}

func NewEngine(media MediaSink, tones ToneSink, clock Clock, cfg Config, logger aqm.Logger) *Engine {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	cfg = cfg.withDefaults()

	e := &Engine{logger: logger}
	e.file = NewFilePlayer(media, cfg.ClipURL, cfg.Volume)
	e.tone = NewToneSynthesizer(tones, clock, cfg.SampleRate, cfg.BeepInterval, cfg.Volume, e.audible)
	return e
}

func (e *Engine) audible() bool {
	return !e.muted.Load()
}

// Start requests the alarm. Calling it while sounding changes nothing.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.wanted = true
	e.reconcile()
}

func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.wanted = false
	e.reconcile()
}

func (e *Engine) SetMuted(muted bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.muted.Store(muted)
	e.reconcile()
}

// Unlock fires the one-time gesture latch and starts a pending alarm.
func (e *Engine) Unlock() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.tone.Unlock(); err != nil {
		e.logger.Debug("audio unlock failed", "error", err)
		return err
	}
	e.reconcile()
	return nil
}

// FileRejected drops the file backend after the target refused to play it and
// moves a sounding alarm onto the tone backend.
func (e *Engine) FileRejected() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.file.Reject()
	if _, ok := e.active.(*FilePlayer); ok {
		e.active = nil
	}
	e.reconcile()
}

func (e *Engine) Sounding() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active != nil
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := State{
		Muted:    e.muted.Load(),
		Unlocked: e.tone.Unlocked(),
		Active:   e.wanted && !e.muted.Load(),
		Sounding: e.active != nil,
	}
	switch e.active.(type) {
	case *FilePlayer:
		s.Backend = "file"
	case *ToneSynthesizer:
		s.Backend = "tone"
	}
	return s
}

// Close silences the alarm and releases audio resources.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.wanted = false
	e.reconcile()
	return e.tone.Close()
}

func (e *Engine) reconcile() {
	if !e.wanted || e.muted.Load() {
		if e.active != nil {
			e.active.Stop()
			e.active = nil
		}
		return
	}
	if e.active != nil {
		return
	}

	b, err := startFirst(e.file, e.tone)
	if err != nil {
		e.logger.Debug("alarm pending", "error", err)
		return
	}
	e.active = b
}

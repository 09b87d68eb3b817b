package alarm

import (
	"sync"
	"time"
)

type mockMediaSink struct {
	PlayLoopFunc func(src string, volume float64) error
	plays        int
	pauses       int
}

func (m *mockMediaSink) PlayLoop(src string, volume float64) error {
	m.plays++
	if m.PlayLoopFunc != nil {
		return m.PlayLoopFunc(src, volume)
	}
	return nil
}

func (m *mockMediaSink) Pause() {
	m.pauses++
}

func blockedMedia() *mockMediaSink {
	return &mockMediaSink{
		PlayLoopFunc: func(string, float64) error { return ErrPlaybackBlocked },
	}
}

type mockToneSink struct {
	OpenFunc func(sampleRate int) error
	opened   bool
	closed   bool
	writes   [][]float32
}

func (m *mockToneSink) Open(sampleRate int) error {
	if m.OpenFunc != nil {
		if err := m.OpenFunc(sampleRate); err != nil {
			return err
		}
	}
	m.opened = true
	return nil
}

func (m *mockToneSink) Write(samples []float32) error {
	m.writes = append(m.writes, samples)
	return nil
}

func (m *mockToneSink) Close() error {
	m.closed = true
	return nil
}

// beeps counts writes after the priming silence.
func (m *mockToneSink) beeps() int {
	if len(m.writes) == 0 {
		return 0
	}
	return len(m.writes) - 1
}

type fakeClock struct {
	mu      sync.Mutex
	timers  map[int]func()
	nextID  int
	lastDur time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{timers: make(map[int]func())}
}

func (c *fakeClock) Every(d time.Duration, fn func()) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.timers[id] = fn
	c.lastDur = d
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.timers, id)
	}
}

// Tick fires every live timer once.
func (c *fakeClock) Tick() {
	c.mu.Lock()
	fns := make([]func(), 0, len(c.timers))
	for _, fn := range c.timers {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (c *fakeClock) Live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

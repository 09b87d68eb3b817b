package web

import (
	"encoding/base64"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/appetiteclub/posboard/services/posboard/internal/alarm"
	"github.com/appetiteclub/posboard/services/posboard/internal/session"
)

const (
	eventSession = "session"
	eventBoard   = "board"
	eventNotify  = "notify"
	eventAudio   = "audio"

	defaultQueueSize = 256
)

// Event is one SSE message for a display.
type Event struct {
	Name string
	Data []byte
}

type audioCommand struct {
	Cmd        string  `json:"cmd"`
	Src        string  `json:"src,omitempty"`
	Volume     float64 `json:"volume,omitempty"`
	Loop       bool    `json:"loop,omitempty"`
	SampleRate int     `json:"sample_rate,omitempty"`
	PCM        string  `json:"pcm,omitempty"`
}

// Bridge is the browser side of a board session. It renders views, plays
// audio and raises notifications by queueing SSE events; it never blocks the
// caller. Board renders coalesce to the latest view; other events queue in
// order and the oldest are dropped when the queue is full.
type Bridge struct {
	mu      sync.Mutex
	board   []byte
	queue   []Event
	max     int
	dropped int

	wake         chan struct{}
	mediaAllowed atomic.Bool
}

func NewBridge(queueSize int) *Bridge {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Bridge{
		max:  queueSize,
		wake: make(chan struct{}, 1),
	}
}

// Ready signals that events are waiting.
func (b *Bridge) Ready() <-chan struct{} {
	return b.wake
}

// Drain returns the queued events followed by the latest board view.
func (b *Bridge) Drain() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	events := b.queue
	b.queue = nil
	if b.board != nil {
		events = append(events, Event{Name: eventBoard, Data: b.board})
		b.board = nil
	}
	return events
}

// Dropped reports how many queued events were discarded.
func (b *Bridge) Dropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// SetMediaAllowed records whether the page may autoplay media.
func (b *Bridge) SetMediaAllowed(allowed bool) {
	b.mediaAllowed.Store(allowed)
}

func (b *Bridge) Render(v session.View) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	b.mu.Lock()
	b.board = data
	b.mu.Unlock()
	b.signal()
}

func (b *Bridge) Notify(n session.Notification) {
	b.push(eventNotify, n)
}

func (b *Bridge) PlayLoop(src string, volume float64) error {
	if !b.mediaAllowed.Load() {
		return alarm.ErrPlaybackBlocked
	}
	b.push(eventAudio, audioCommand{Cmd: "play", Src: src, Volume: volume, Loop: true})
	return nil
}

func (b *Bridge) Pause() {
	b.push(eventAudio, audioCommand{Cmd: "pause"})
}

func (b *Bridge) Open(sampleRate int) error {
	b.push(eventAudio, audioCommand{Cmd: "open", SampleRate: sampleRate})
	return nil
}

func (b *Bridge) Write(samples []float32) error {
	pcm := base64.StdEncoding.EncodeToString(alarm.PCM16(samples))
	b.push(eventAudio, audioCommand{Cmd: "pcm", PCM: pcm})
	return nil
}

func (b *Bridge) Close() error {
	b.push(eventAudio, audioCommand{Cmd: "close"})
	return nil
}

func (b *Bridge) push(name string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}

	b.mu.Lock()
	if len(b.queue) >= b.max {
		b.queue = b.queue[1:]
		b.dropped++
	}
	b.queue = append(b.queue, Event{Name: name, Data: data})
	b.mu.Unlock()
	b.signal()
}

func (b *Bridge) signal() {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

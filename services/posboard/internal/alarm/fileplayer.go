package alarm

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// MediaSink plays an audio clip in a loop. PlayLoop returns ErrPlaybackBlocked
// when the target refuses autoplay.
type MediaSink interface {
	PlayLoop(src string, volume float64) error
	Pause()
}

// FilePlayer loops the alert clip through a media sink.
type FilePlayer struct {
	mu      sync.Mutex
	sink    MediaSink
	src     string
	volume   float64
	playing  bool
	rejected bool
}

func NewFilePlayer(sink MediaSink, src string, volume float64) *FilePlayer {
	return &FilePlayer{sink: sink, src: src, volume: volume}
}

func (p *FilePlayer) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.playing {
		return nil
	}
	if p.sink == nil || p.rejected {
		return ErrPlaybackBlocked
	}
	if err := p.sink.PlayLoop(p.src, p.volume); err != nil {
		return fmt.Errorf("file player: %w", err)
	}
	p.playing = true
	return nil
}

func (p *FilePlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.playing {
		return
	}
	p.sink.Pause()
	p.playing = false
}

// Reject records that the target refused a play it had accepted. The player
// will not start again.
func (p *FilePlayer) Reject() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.rejected = true
	p.playing = false
}

// Clip is the alert sound served to displays.
type Clip struct {
	Name        string
	ContentType string
	Data        []byte
}

// LoadClip reads the clip at path, or synthesizes the default chime when path
// is empty.
func LoadClip(path string, sampleRate int) (Clip, error) {
	if path == "" {
		return Clip{
			Name:        "chime.wav",
			ContentType: "audio/wav",
			Data:        EncodeWAV(Chime(sampleRate), sampleRate),
		}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Clip{}, fmt.Errorf("cannot read alert sound: %w", err)
	}
	return Clip{
		Name:        filepath.Base(path),
		ContentType: contentTypeFor(path),
		Data:        data,
	}, nil
}

func contentTypeFor(path string) string {
	switch filepath.Ext(path) {
	case ".mp3":
		return "audio/mpeg"
	case ".ogg", ".oga":
		return "audio/ogg"
	case ".wav":
		return "audio/wav"
	default:
		return "application/octet-stream"
	}
}

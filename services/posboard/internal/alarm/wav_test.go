package alarm

import (
	"encoding/binary"
	"testing"
)

func TestTonePatternLayout(t *testing.T) {
	const rate = 8000
	p := TonePattern(rate, 1)

	if want := rate * 350 / 1000; len(p) != want {
		t.Fatalf("len = %d, want %d", len(p), want)
	}

	gapStart := rate * 160 / 1000
	gapEnd := rate * 200 / 1000
	for i := gapStart; i < gapEnd; i++ {
		if p[i] != 0 {
			t.Fatalf("sample %d = %v, want silence between bursts", i, p[i])
		}
	}

	var peak float32
	for _, s := range p {
		if s > peak {
			peak = s
		}
	}
	if peak <= 0.5 || peak > 1 {
		t.Errorf("peak = %v, want audible and unclipped", peak)
	}
}

func TestEncodeWAVHeader(t *testing.T) {
	samples := []float32{0, 1, -1, 0.5}
	wav := EncodeWAV(samples, 16000)

	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" || string(wav[36:40]) != "data" {
		t.Fatal("bad chunk markers")
	}
	if got := binary.LittleEndian.Uint32(wav[24:28]); got != 16000 {
		t.Errorf("sample rate = %d, want 16000", got)
	}
	if got := binary.LittleEndian.Uint32(wav[40:44]); got != 8 {
		t.Errorf("data size = %d, want 8", got)
	}
	if len(wav) != 44+8 {
		t.Errorf("len = %d, want 52", len(wav))
	}
	if got := int16(binary.LittleEndian.Uint16(wav[46:48])); got != 32767 {
		t.Errorf("full scale sample = %d, want 32767", got)
	}
}

func TestLoadClipDefaultsToChime(t *testing.T) {
	clip, err := LoadClip("", 8000)
	if err != nil {
		t.Fatalf("LoadClip() error = %v", err)
	}
	if clip.ContentType != "audio/wav" || len(clip.Data) <= 44 {
		t.Errorf("clip = %s %d bytes, want synthesized wav", clip.ContentType, len(clip.Data))
	}

	if _, err := LoadClip("/does/not/exist.mp3", 8000); err == nil {
		t.Error("LoadClip() on missing file should fail")
	}
}

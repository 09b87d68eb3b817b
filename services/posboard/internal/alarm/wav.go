package alarm

import (
	"bytes"
	"encoding/binary"
	"math"
)

const (
	firstToneHz  = 880.0
	secondToneHz = 660.0
	toneLength   = 150 // ms
	secondOffset = 200 // ms
	fadeLength   = 10  // ms
)

// TonePattern renders one alarm beep: a burst at 880 Hz and, 200 ms after it
// began, a burst at 660 Hz.
func TonePattern(sampleRate int, volume float64) []float32 {
	total := samplesFor(sampleRate, secondOffset+toneLength)
	buf := make([]float32, total)
	writeTone(buf, 0, sampleRate, firstToneHz, toneLength, volume)
	writeTone(buf, samplesFor(sampleRate, secondOffset), sampleRate, secondToneHz, toneLength, volume)
	return buf
}

// Chime renders the default looped clip: three falling notes and a pause.
func Chime(sampleRate int) []float32 {
	notes := []float64{988, 784, 659}
	const noteMs, gapMs = 220, 30
	buf := make([]float32, samplesFor(sampleRate, len(notes)*(noteMs+gapMs)+600))
	for i, hz := range notes {
		writeTone(buf, samplesFor(sampleRate, i*(noteMs+gapMs)), sampleRate, hz, noteMs, 0.8)
	}
	return buf
}

// Silence is the buffer written to prime an audio context.
func Silence(sampleRate int) []float32 {
	return make([]float32, samplesFor(sampleRate, 20))
}

func writeTone(buf []float32, offset, sampleRate int, hz float64, ms int, volume float64) {
	n := samplesFor(sampleRate, ms)
	fade := samplesFor(sampleRate, fadeLength)
	for i := 0; i < n && offset+i < len(buf); i++ {
		env := 1.0
		if i < fade {
			env = float64(i) / float64(fade)
		} else if n-i < fade {
			env = float64(n-i) / float64(fade)
		}
		t := float64(i) / float64(sampleRate)
		buf[offset+i] = float32(volume * env * math.Sin(2*math.Pi*hz*t))
	}
}

func samplesFor(sampleRate, ms int) int {
	return sampleRate * ms / 1000
}

// PCM16 encodes samples as little-endian signed 16-bit PCM.
func PCM16(samples []float32) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(toInt16(s)))
	}
	return out
}

func toInt16(s float32) int16 {
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	return int16(s * math.MaxInt16)
}

// EncodeWAV wraps mono samples in a 16-bit PCM RIFF container.
func EncodeWAV(samples []float32, sampleRate int) []byte {
	data := PCM16(samples)

	var b bytes.Buffer
	b.WriteString("RIFF")
	binary.Write(&b, binary.LittleEndian, uint32(36+len(data)))
	b.WriteString("WAVE")

	b.WriteString("fmt ")
	binary.Write(&b, binary.LittleEndian, uint32(16))
	binary.Write(&b, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&b, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&b, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&b, binary.LittleEndian, uint32(sampleRate*2))
	binary.Write(&b, binary.LittleEndian, uint16(2))
	binary.Write(&b, binary.LittleEndian, uint16(16))

	b.WriteString("data")
	binary.Write(&b, binary.LittleEndian, uint32(len(data)))
	b.Write(data)
	return b.Bytes()
}

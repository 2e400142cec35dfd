// Package tone synthesises short audio cues as 16-bit mono PCM WAV so kiosks need no audio assets.
package tone

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// Waveform selects the oscillator shape.
type Waveform string

const (
	Sine   Waveform = "sine"
	Square Waveform = "square"
)

// DefaultSampleRate is used when a Cue leaves SampleRate unset.
const DefaultSampleRate = 22050

// Cue is an oscillator with an exponential amplitude decay.
type Cue struct {
	Frequency  float64
	Waveform   Waveform
	Duration   time.Duration
	Decay      float64 // amplitude multiplier per second, 0 < Decay <= 1
	Volume     float64 // peak amplitude, 0..1
	SampleRate int
}

// Admit is the high-pitched, short cue played for an admitted member.
var Admit = Cue{Frequency: 880, Waveform: Sine, Duration: 150 * time.Millisecond, Decay: 0.001, Volume: 0.6}

// Deny is the low-pitched, longer cue played for a denied member.
var Deny = Cue{Frequency: 220, Waveform: Square, Duration: 400 * time.Millisecond, Decay: 0.1, Volume: 0.4}

// Samples renders the raw PCM samples for cue.
func Samples(cue Cue) ([]int16, error) {
	if cue.Frequency <= 0 {
		return nil, fmt.Errorf("tone: frequency must be positive, got %v", cue.Frequency)
	}
	if cue.Duration <= 0 {
		return nil, fmt.Errorf("tone: duration must be positive, got %v", cue.Duration)
	}
	rate := cue.SampleRate
	if rate <= 0 {
		rate = DefaultSampleRate
	}
	decay := cue.Decay
	if decay <= 0 || decay > 1 {
		decay = 1
	}
	volume := math.Max(0, math.Min(1, cue.Volume))

	n := int(cue.Duration.Seconds() * float64(rate))
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(rate)
		phase := math.Sin(2 * math.Pi * cue.Frequency * t)
		if cue.Waveform == Square {
			if phase >= 0 {
				phase = 1
			} else {
				phase = -1
			}
		}
		envelope := volume * math.Pow(decay, t)
		out[i] = int16(phase * envelope * math.MaxInt16)
	}
	return out, nil
}

// WAV renders cue as a complete RIFF/WAVE file.
func WAV(cue Cue) ([]byte, error) {
	samples, err := Samples(cue)
	if err != nil {
		return nil, err
	}
	rate := cue.SampleRate
	if rate <= 0 {
		rate = DefaultSampleRate
	}

	const (
		channels      = 1
		bitsPerSample = 16
	)
	dataSize := uint32(len(samples) * bitsPerSample / 8)
	buf := &bytes.Buffer{}
	buf.Grow(44 + int(dataSize))

	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, 36+dataSize)
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(buf, binary.LittleEndian, uint16(channels))
	_ = binary.Write(buf, binary.LittleEndian, uint32(rate))
	_ = binary.Write(buf, binary.LittleEndian, uint32(rate*channels*bitsPerSample/8))
	_ = binary.Write(buf, binary.LittleEndian, uint16(channels*bitsPerSample/8))
	_ = binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, dataSize)
	if err := binary.Write(buf, binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("tone: encode samples: %w", err)
	}
	return buf.Bytes(), nil
}

package tone

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWAVHeader(t *testing.T) {
	wav, err := WAV(Admit)
	require.NoError(t, err)

	samples := int(Admit.Duration.Seconds() * DefaultSampleRate)
	require.Len(t, wav, 44+samples*2)
	assert.Equal(t, "RIFF", string(wav[0:4]))
	assert.Equal(t, "WAVE", string(wav[8:12]))
	assert.Equal(t, uint32(DefaultSampleRate), binary.LittleEndian.Uint32(wav[24:28]))
	assert.Equal(t, uint32(samples*2), binary.LittleEndian.Uint32(wav[40:44]))
}

func TestDenyIsLowerAndLonger(t *testing.T) {
	assert.Less(t, Deny.Frequency, Admit.Frequency)
	assert.Greater(t, Deny.Duration, Admit.Duration)

	admit, err := Samples(Admit)
	require.NoError(t, err)
	deny, err := Samples(Deny)
	require.NoError(t, err)
	assert.Greater(t, len(deny), len(admit))
}

func TestSquareWaveIsBipolarAndDecays(t *testing.T) {
	samples, err := Samples(Cue{Frequency: 100, Waveform: Square, Duration: time.Second, Decay: 0.1, Volume: 1, SampleRate: 1000})
	require.NoError(t, err)
	require.Len(t, samples, 1000)

	first := math.Abs(float64(samples[1]))
	last := math.Abs(float64(samples[999]))
	assert.InDelta(t, math.MaxInt16, first, math.MaxInt16*0.01)
	assert.Less(t, last, first*0.11)
}

func TestSamplesRejectsInvalidSpec(t *testing.T) {
	_, err := Samples(Cue{Frequency: 0, Duration: time.Second})
	assert.Error(t, err)
	_, err = Samples(Cue{Frequency: 440})
	assert.Error(t, err)
}

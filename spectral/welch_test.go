package spectral

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sineRecording(nSamples, nChannels int, freq, sampleRate, amplitude, noiseStd float64, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	data := make([][]float64, nSamples)
	for t := 0; t < nSamples; t++ {
		row := make([]float64, nChannels)
		s := amplitude * math.Sin(2*math.Pi*freq*float64(t)/sampleRate)
		for ch := 0; ch < nChannels; ch++ {
			row[ch] = s + noiseStd*rng.NormFloat64()
		}
		data[t] = row
	}
	return data
}

func TestWelchLocalizesSinePeak(t *testing.T) {
	const (
		sampleRate = 250.0
		freq       = 50.0
		win        = 2500
	)

	data := sineRecording(25000, 1, freq, sampleRate, 1.0, 0.05, 1)

	analyzer := NewAnalyzer(sampleRate)
	spec, err := analyzer.Welch(data, win)
	require.NoError(t, err)

	assert.Equal(t, 1, spec.Channels())
	assert.Equal(t, win/2+1, spec.Bins())
	assert.InDelta(t, sampleRate/win, spec.Resolution, 1e-12)

	peakBin := 0
	for b, p := range spec.Power[0] {
		if p > spec.Power[0][peakBin] {
			peakBin = b
		}
	}
	assert.InDelta(t, freq, spec.Freqs[peakBin], spec.Resolution)
}

func TestWelchWindowExceedsData(t *testing.T) {
	data := sineRecording(100, 2, 10, 100, 1, 0, 2)

	analyzer := NewAnalyzer(100)
	_, err := analyzer.Welch(data, 101)
	assert.Error(t, err)

	_, err = analyzer.Welch(data, 0)
	assert.Error(t, err)

	_, err = analyzer.Welch(nil, 10)
	assert.Error(t, err)
}

func TestMeanLogAveragesChannels(t *testing.T) {
	spec := &Spectrum{
		Power: [][]float64{
			{1e-3, 1e-5},
			{1e-3, 1e-1},
		},
		Freqs:      []float64{0, 1},
		Resolution: 1,
	}

	meanLog := spec.MeanLog()
	require.Len(t, meanLog, 2)
	assert.InDelta(t, -30.0, meanLog[0], 1e-9)
	assert.InDelta(t, (-50.0+-10.0)/2, meanLog[1], 1e-9)
}

func TestBandIndices(t *testing.T) {
	spec := &Spectrum{
		Freqs:      []float64{0, 0.5, 1.0, 1.5, 2.0},
		Resolution: 0.5,
	}

	lo, hi := spec.BandIndices(0.5, 1.5)
	assert.Equal(t, 1, lo)
	assert.Equal(t, 4, hi)

	// Band narrower than a bin spacing can cover no bins
	lo, hi = spec.BandIndices(0.6, 0.9)
	assert.Equal(t, lo, hi)

	// Bounds are clamped to the spectrum
	lo, hi = spec.BandIndices(-1, 100)
	assert.Equal(t, 0, lo)
	assert.Equal(t, 5, hi)
}

func TestHannWindow(t *testing.T) {
	w := hannWindow(8)
	require.Len(t, w, 8)
	assert.InDelta(t, 0, w[0], 1e-12)
	assert.InDelta(t, 0, w[7], 1e-12)

	// Symmetric
	for i := 0; i < 4; i++ {
		assert.InDelta(t, w[i], w[7-i], 1e-12)
	}

	assert.Equal(t, []float64{1}, hannWindow(1))
}

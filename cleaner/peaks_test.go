package cleaner

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/linefilter/spectral"
)

// syntheticSpectrum builds a single-channel spectrum with a flat floor (in dB)
// and spikes at the given frequencies
func syntheticSpectrum(resolution, maxFreq, floorDB float64, spikes map[float64]float64) *spectral.Spectrum {
	bins := int(maxFreq/resolution) + 1
	power := make([]float64, bins)
	freqs := make([]float64, bins)

	for i := 0; i < bins; i++ {
		freqs[i] = float64(i) * resolution
		power[i] = math.Pow(10, floorDB/10)
	}
	for freq, db := range spikes {
		idx := int(math.Round(freq / resolution))
		power[idx] = math.Pow(10, db/10)
	}

	return &spectral.Spectrum{
		Power:      [][]float64{power},
		Freqs:      freqs,
		Resolution: resolution,
	}
}

func TestFindNextFreqDetectsPeak(t *testing.T) {
	c := New(DefaultConfig())
	spec := syntheticSpectrum(0.5, 125, -40, map[float64]float64{50: -20})

	peak := c.findNextFreq(spec, 0)
	require.True(t, peak.Found)
	assert.InDelta(t, 50, peak.Freq, 0.5)
	assert.Greater(t, peak.Threshold, -40.0)
}

func TestFindNextFreqRespectsBounds(t *testing.T) {
	cfg := DefaultConfig()
	c := New(cfg)

	// Spike below MinFreq and above MaxFreq must both be ignored
	spec := syntheticSpectrum(0.5, 125, -40, map[float64]float64{10: -10, 110: -10})
	peak := c.findNextFreq(spec, 0)
	assert.False(t, peak.Found)
}

func TestFindNextFreqNoneOnFlatSpectrum(t *testing.T) {
	c := New(DefaultConfig())
	spec := syntheticSpectrum(0.5, 125, -40, nil)

	peak := c.findNextFreq(spec, 0)
	assert.False(t, peak.Found)
}

func TestFindNextFreqTerminatesOverFinitePeaks(t *testing.T) {
	cfg := DefaultConfig()
	c := New(cfg)

	spec := syntheticSpectrum(0.5, 125, -40, map[float64]float64{50: -20, 60: -22, 75: -25})

	var found []float64
	floor := cfg.MinFreq
	for w := 0; w < 10; w++ {
		peak := c.findNextFreq(spec, floor)
		if !peak.Found {
			break
		}
		found = append(found, peak.Freq)
		floor = peak.Freq + cfg.DetailedFreqBoundsUpper[1]
	}

	require.Len(t, found, 3)
	assert.InDelta(t, 50, found[0], 0.5)
	assert.InDelta(t, 60, found[1], 0.5)
	assert.InDelta(t, 75, found[2], 0.5)
}

func TestCenterVariability(t *testing.T) {
	// Outer thirds flat at -40 dB, middle third contains the peak and must
	// not bias the baseline
	profile := []float64{-40, -40, -40, -10, -5, -10, -40, -40, -40}

	center, variability, err := centerVariability(profile)
	require.NoError(t, err)
	assert.InDelta(t, -40, center, 1e-9)
	assert.InDelta(t, -40, variability, 1e-9)

	_, _, err = centerVariability([]float64{-40, -40})
	assert.ErrorIs(t, err, ErrDegenerateSpectrum)
}

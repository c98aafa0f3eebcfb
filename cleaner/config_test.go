package cleaner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate(250))
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative fixed_nremove", func(c *Config) { c.FixedNRemove = -1 }},
		{"minfreq above maxfreq", func(c *Config) { c.MinFreq = 100; c.MaxFreq = 50 }},
		{"zero detection_winsize", func(c *Config) { c.DetectionWinsize = 0 }},
		{"zero freq_detect_mult_fine", func(c *Config) { c.FreqDetectMultFine = 0 }},
		{"unordered upper bounds", func(c *Config) { c.DetailedFreqBoundsUpper = [2]float64{0.05, -0.05} }},
		{"unordered lower bounds", func(c *Config) { c.DetailedFreqBoundsLower = [2]float64{0.1, -0.4} }},
		{"proportion above one", func(c *Config) { c.MaxProportionAboveUpper = 1.5 }},
		{"negative proportion", func(c *Config) { c.MaxProportionAboveLower = -0.1 }},
		{"minsigma above maxsigma", func(c *Config) { c.MinSigma = 5; c.MaxSigma = 4 }},
		{"starting sigma outside bounds", func(c *Config) { c.NoiseCompDetectSigma = 10 }},
		{"negative chunk_length", func(c *Config) { c.ChunkLength = -1 }},
		{"negative spectrum window", func(c *Config) { c.WinSizeCompleteSpectrum = -2 }},
		{"negative nkeep", func(c *Config) { c.NKeep = -1 }},
		{"noise freq above nyquist", func(c *Config) { c.NoiseFreqs = []float64{200} }},
		{"zero noise freq", func(c *Config) { c.NoiseFreqs = []float64{0} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate(250)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestValidateRejectsBadSampleRate(t *testing.T) {
	cfg := DefaultConfig()
	assert.ErrorIs(t, cfg.Validate(0), ErrInvalidInput)
	assert.ErrorIs(t, cfg.Validate(-100), ErrInvalidInput)
}

func TestSpectrumWindowSamples(t *testing.T) {
	cfg := DefaultConfig()

	// Derived default: whole recording when no chunking is configured
	win, err := cfg.spectrumWindowSamples(250, 10000)
	require.NoError(t, err)
	assert.Equal(t, 10000, win)

	// Derived default follows the chunk length
	cfg.ChunkLength = 10
	win, err = cfg.spectrumWindowSamples(250, 10000)
	require.NoError(t, err)
	assert.Equal(t, 2500, win)

	// Explicit window is honored
	cfg.WinSizeCompleteSpectrum = 4
	win, err = cfg.spectrumWindowSamples(250, 10000)
	require.NoError(t, err)
	assert.Equal(t, 1000, win)

	// Explicit window longer than the recording is degenerate
	cfg.WinSizeCompleteSpectrum = 60
	_, err = cfg.spectrumWindowSamples(250, 10000)
	assert.ErrorIs(t, err, ErrDegenerateSpectrum)
}

func TestConfigClone(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NoiseFreqs = []float64{50, 60}

	cp := cfg.clone()
	cp.NoiseFreqs[0] = 99

	assert.Equal(t, 50.0, cfg.NoiseFreqs[0])
}

package cleaner

import "fmt"

// Config holds all cleaning parameters. A Config returned inside a RunResult
// is fully populated (discovered frequencies included) and can be passed back
// to New to reproduce a run exactly.
type Config struct {
	// NoiseFreqs lists target frequencies in Hz. Empty enables automatic
	// noise-frequency discovery.
	NoiseFreqs []float64 `json:"noisefreqs"`

	// AdaptiveNRemove lets the removal primitive raise the removed-component
	// count above FixedNRemove based on component scores
	AdaptiveNRemove bool `json:"adaptive_nremove"`

	// FixedNRemove is the baseline number of components removed per chunk
	FixedNRemove int `json:"fixed_nremove"`

	// MinFreq and MaxFreq bound automatic noise-frequency discovery in Hz
	MinFreq float64 `json:"minfreq"`
	MaxFreq float64 `json:"maxfreq"`

	// DetectionWinsize is the width in Hz of the window centered on a
	// candidate frequency used for baseline and threshold estimation
	DetectionWinsize float64 `json:"detection_winsize"`

	// CoarseFreqDetectPowerDiff is the log-power distance above the spectrum
	// mean that flags a coarse peak
	CoarseFreqDetectPowerDiff float64 `json:"coarse_freq_detect_power_diff"`

	// CoarseFreqDetectLowerPowerDiff delimits where a detected coarse peak
	// ends, for subsequent searches starting past it
	CoarseFreqDetectLowerPowerDiff float64 `json:"coarse_freq_detect_lower_power_diff"`

	// SearchIndividualNoise enables per-chunk refinement of the nominal
	// noise frequency
	SearchIndividualNoise bool `json:"search_individual_noise"`

	// FreqDetectMultFine scales the center-minus-variability distance into
	// the fine detection and quality thresholds
	FreqDetectMultFine float64 `json:"freq_detect_mult_fine"`

	// DetailedFreqBoundsUpper is the frequency window relative to the target
	// used for fine peak refinement and the residual-noise check
	DetailedFreqBoundsUpper [2]float64 `json:"detailed_freq_bounds_upper"`

	// DetailedFreqBoundsLower is the wider window, skewed below the target,
	// used for the over-removal check
	DetailedFreqBoundsLower [2]float64 `json:"detailed_freq_bounds_lower"`

	// MaxProportionAboveUpper is the tolerated fraction of bins above the
	// upper threshold before a pass counts as too weak
	MaxProportionAboveUpper float64 `json:"max_proportion_above_upper"`

	// MaxProportionAboveLower is the tolerated fraction of bins below the
	// lower threshold before a pass counts as too strong
	MaxProportionAboveLower float64 `json:"max_proportion_above_lower"`

	// NoiseCompDetectSigma is the starting outlier-detection strictness
	// passed to the removal primitive
	NoiseCompDetectSigma float64 `json:"noise_comp_detect_sigma"`

	// AdaptiveSigma enables the convergence loop that tunes sigma between
	// MinSigma and MaxSigma. Disabled, every frequency gets exactly one pass.
	AdaptiveSigma bool `json:"adaptive_sigma"`

	MinSigma float64 `json:"minsigma"`
	MaxSigma float64 `json:"maxsigma"`

	// ChunkLength is the chunk duration in seconds. 0 processes the whole
	// recording as a single chunk.
	ChunkLength float64 `json:"chunk_length"`

	// WinSizeCompleteSpectrum is the Welch segment length in seconds for
	// spectra of the complete recording. 0 derives it from the chunk length.
	WinSizeCompleteSpectrum float64 `json:"win_size_complete_spectrum"`

	// NKeep caps the dimensionality entering the removal primitive
	// (0 = use all channels)
	NKeep int `json:"nkeep"`
}

// DefaultConfig returns the default cleaning parameters
func DefaultConfig() *Config {
	return &Config{
		NoiseFreqs:                     nil,
		AdaptiveNRemove:                true,
		FixedNRemove:                   1,
		MinFreq:                        17,
		MaxFreq:                        99,
		DetectionWinsize:               6,
		CoarseFreqDetectPowerDiff:      4,
		CoarseFreqDetectLowerPowerDiff: 1.76,
		SearchIndividualNoise:          true,
		FreqDetectMultFine:             2,
		DetailedFreqBoundsUpper:        [2]float64{-0.05, 0.05},
		DetailedFreqBoundsLower:        [2]float64{-0.4, 0.1},
		MaxProportionAboveUpper:        0.005,
		MaxProportionAboveLower:        0.005,
		NoiseCompDetectSigma:           3,
		AdaptiveSigma:                  true,
		MinSigma:                       2.5,
		MaxSigma:                       4,
		ChunkLength:                    0,
		WinSizeCompleteSpectrum:        0,
		NKeep:                          0,
	}
}

// Validate checks configuration values eagerly, before any processing
func (c *Config) Validate(sampleRate float64) error {
	if sampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be positive, got %g", ErrInvalidInput, sampleRate)
	}

	nyquist := sampleRate / 2
	for _, f := range c.NoiseFreqs {
		if f <= 0 || f >= nyquist {
			return fmt.Errorf("%w: noisefreqs entry %g Hz outside (0, %g)", ErrInvalidInput, f, nyquist)
		}
	}

	if c.FixedNRemove < 0 {
		return fmt.Errorf("%w: fixed_nremove must be >= 0, got %d", ErrInvalidInput, c.FixedNRemove)
	}
	if c.MinFreq <= 0 || c.MaxFreq <= c.MinFreq {
		return fmt.Errorf("%w: need 0 < minfreq < maxfreq, got [%g, %g]", ErrInvalidInput, c.MinFreq, c.MaxFreq)
	}
	if c.DetectionWinsize <= 0 {
		return fmt.Errorf("%w: detection_winsize must be positive, got %g", ErrInvalidInput, c.DetectionWinsize)
	}
	if c.FreqDetectMultFine <= 0 {
		return fmt.Errorf("%w: freq_detect_mult_fine must be positive, got %g", ErrInvalidInput, c.FreqDetectMultFine)
	}
	if c.DetailedFreqBoundsUpper[0] >= c.DetailedFreqBoundsUpper[1] {
		return fmt.Errorf("%w: detailed_freq_bounds_upper must be ordered, got %v", ErrInvalidInput, c.DetailedFreqBoundsUpper)
	}
	if c.DetailedFreqBoundsLower[0] >= c.DetailedFreqBoundsLower[1] {
		return fmt.Errorf("%w: detailed_freq_bounds_lower must be ordered, got %v", ErrInvalidInput, c.DetailedFreqBoundsLower)
	}
	if c.MaxProportionAboveUpper < 0 || c.MaxProportionAboveUpper > 1 {
		return fmt.Errorf("%w: max_proportion_above_upper must be in [0, 1], got %g", ErrInvalidInput, c.MaxProportionAboveUpper)
	}
	if c.MaxProportionAboveLower < 0 || c.MaxProportionAboveLower > 1 {
		return fmt.Errorf("%w: max_proportion_above_lower must be in [0, 1], got %g", ErrInvalidInput, c.MaxProportionAboveLower)
	}
	if c.MinSigma > c.MaxSigma {
		return fmt.Errorf("%w: minsigma %g exceeds maxsigma %g", ErrInvalidInput, c.MinSigma, c.MaxSigma)
	}
	if c.NoiseCompDetectSigma < c.MinSigma || c.NoiseCompDetectSigma > c.MaxSigma {
		return fmt.Errorf("%w: noise_comp_detect_sigma %g outside [%g, %g]", ErrInvalidInput, c.NoiseCompDetectSigma, c.MinSigma, c.MaxSigma)
	}
	if c.ChunkLength < 0 {
		return fmt.Errorf("%w: chunk_length must be >= 0, got %g", ErrInvalidInput, c.ChunkLength)
	}
	if c.WinSizeCompleteSpectrum < 0 {
		return fmt.Errorf("%w: win_size_complete_spectrum must be >= 0, got %g", ErrInvalidInput, c.WinSizeCompleteSpectrum)
	}
	if c.NKeep < 0 {
		return fmt.Errorf("%w: nkeep must be >= 0, got %d", ErrInvalidInput, c.NKeep)
	}

	return nil
}

// clone returns a deep copy of the configuration
func (c *Config) clone() Config {
	cp := *c
	cp.NoiseFreqs = append([]float64(nil), c.NoiseFreqs...)
	return cp
}

// spectrumWindowSamples resolves the Welch segment length for complete-
// recording spectra. An explicit window that exceeds the recording is a
// degenerate spectrum; the derived default is capped instead.
func (c *Config) spectrumWindowSamples(sampleRate float64, nSamples int) (int, error) {
	if c.WinSizeCompleteSpectrum > 0 {
		win := int(c.WinSizeCompleteSpectrum * sampleRate)
		if win > nSamples {
			return 0, fmt.Errorf("%w: win_size_complete_spectrum of %g s (%d samples) exceeds recording length %d",
				ErrDegenerateSpectrum, c.WinSizeCompleteSpectrum, win, nSamples)
		}
		if win < 2 {
			return 0, fmt.Errorf("%w: win_size_complete_spectrum of %g s resolves to %d samples",
				ErrDegenerateSpectrum, c.WinSizeCompleteSpectrum, win)
		}
		return win, nil
	}

	win := nSamples
	if c.ChunkLength > 0 {
		if derived := int(c.ChunkLength * sampleRate); derived < win {
			win = derived
		}
	}
	if win < 2 {
		return 0, fmt.Errorf("%w: recording of %d samples is too short", ErrDegenerateSpectrum, nSamples)
	}
	return win, nil
}

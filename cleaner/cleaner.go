package cleaner

import (
	"fmt"

	"github.com/RyanBlaney/linefilter/dss"
	"github.com/RyanBlaney/linefilter/logging"
	"github.com/RyanBlaney/linefilter/spectral"
)

// highSampleRateAdvisory is the sample rate above which a downsampling
// recommendation is logged. Processing proceeds regardless.
const highSampleRateAdvisory = 500.0

// Cleaner removes narrow-band periodic interference from multichannel
// recordings. Frequencies are processed strictly sequentially, each against
// the data already cleaned by all prior frequencies; within a frequency, an
// adaptive convergence loop tunes the removal strength until a quality band
// is satisfied or the sigma bounds are exhausted.
type Cleaner struct {
	cfg     *Config
	remover dss.Remover
	logger  logging.Logger
}

// New creates a Cleaner with the default removal primitive. A nil config uses
// DefaultConfig.
func New(cfg *Config) *Cleaner {
	return NewWithRemover(cfg, dss.NewDSSRemover())
}

// NewWithRemover creates a Cleaner with an injected removal primitive,
// allowing the control loop to be exercised against mocks
func NewWithRemover(cfg *Config, remover dss.Remover) *Cleaner {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	return &Cleaner{
		cfg:     cfg,
		remover: remover,
		logger: logging.WithFields(logging.Fields{
			"component": "cleaner",
		}),
	}
}

// Clean removes noise frequencies from data and returns the cleaned recording
// together with all per-frequency diagnostics. data is a 2-D matrix whose
// orientation (samples x channels or channels x samples) is auto-detected;
// the output matches the input orientation.
func (c *Cleaner) Clean(data [][]float64, sampleRate float64) (*RunResult, error) {
	if err := validateData(data); err != nil {
		return nil, err
	}
	if err := c.cfg.Validate(sampleRate); err != nil {
		return nil, err
	}

	// Samples are expected to outnumber channels; transpose if not
	transposed := false
	working := cloneMatrix(data)
	if len(working) < len(working[0]) {
		working = transpose(working)
		transposed = true
	}

	nSamples := len(working)
	nChannels := len(working[0])

	logger := c.logger.WithFields(logging.Fields{
		"function":    "Clean",
		"samples":     nSamples,
		"channels":    nChannels,
		"sample_rate": sampleRate,
		"transposed":  transposed,
	})
	logger.Debug("Starting cleaning run")

	if sampleRate > highSampleRateAdvisory {
		logger.Warn("Sample rate is high for narrow-band cleaning, consider downsampling", logging.Fields{
			"sample_rate": sampleRate,
		})
	}

	winSamples, err := c.cfg.spectrumWindowSamples(sampleRate, nSamples)
	if err != nil {
		return nil, err
	}

	chunks := buildChunks(nSamples, sampleRate, c.cfg.ChunkLength)
	analyzer := spectral.NewAnalyzer(sampleRate)

	autoDetect := len(c.cfg.NoiseFreqs) == 0
	freqs := append([]float64(nil), c.cfg.NoiseFreqs...)

	if autoDetect {
		spec, err := analyzer.Welch(working, winSamples)
		if err != nil {
			return nil, fmt.Errorf("initial spectrum: %w", err)
		}
		if peak := c.findNextFreq(spec, c.cfg.MinFreq); peak.Found {
			freqs = append(freqs, peak.Freq)
		}
	}

	result := &RunResult{
		Config: c.cfg.clone(),
	}

	if len(freqs) == 0 {
		// Not an error: the recording simply has nothing to clean
		logger.Info("No noise frequencies found, returning recording unmodified")
		result.Clean = cloneMatrix(data)
		result.NoiseFreqs = []float64{}
		result.Config.NoiseFreqs = []float64{}
		return result, nil
	}

	// The worklist may grow while iterating; index-based iteration keeps
	// appended frequencies in scope
	for i := 0; i < len(freqs); i++ {
		freq := freqs[i]
		logger.Info("Cleaning frequency", logging.Fields{
			"freq":     freq,
			"position": i + 1,
			"of":       len(freqs),
		})

		clean, freqResult, err := c.cleanFrequency(working, chunks, freq, sampleRate, winSamples)
		if err != nil {
			return nil, fmt.Errorf("frequency %g Hz: %w", freq, err)
		}

		working = clean
		result.Frequencies = append(result.Frequencies, *freqResult)

		if autoDetect {
			spec, err := analyzer.Welch(working, winSamples)
			if err != nil {
				return nil, fmt.Errorf("post-clean spectrum: %w", err)
			}
			// Resume the search strictly past the current peak's upper
			// detailed bound
			next := c.findNextFreq(spec, freq+c.cfg.DetailedFreqBoundsUpper[1])
			if next.Found {
				logger.Debug("Discovered additional noise frequency", logging.Fields{
					"freq": next.Freq,
				})
				freqs = append(freqs, next.Freq)
			}
		}
	}

	if transposed {
		working = transpose(working)
	}

	result.Clean = working
	result.NoiseFreqs = append([]float64(nil), freqs...)
	result.Config.NoiseFreqs = append([]float64(nil), freqs...)

	logger.Debug("Cleaning run completed", logging.Fields{
		"frequencies": len(freqs),
		"chunks":      len(chunks),
	})

	return result, nil
}

// validateData checks the input matrix shape eagerly
func validateData(data [][]float64) error {
	if len(data) == 0 || len(data[0]) == 0 {
		return fmt.Errorf("%w: data must be a non-empty 2-D matrix", ErrInvalidInput)
	}

	width := len(data[0])
	for i, row := range data {
		if len(row) != width {
			return fmt.Errorf("%w: data row %d has %d values, want %d", ErrInvalidInput, i, len(row), width)
		}
	}
	return nil
}

func transpose(m [][]float64) [][]float64 {
	rows := len(m)
	cols := len(m[0])

	out := make([][]float64, cols)
	for i := 0; i < cols; i++ {
		out[i] = make([]float64, rows)
		for j := 0; j < rows; j++ {
			out[i][j] = m[j][i]
		}
	}
	return out
}

func cloneMatrix(m [][]float64) [][]float64 {
	out := make([][]float64, len(m))
	for i, row := range m {
		out[i] = make([]float64, len(row))
		copy(out[i], row)
	}
	return out
}

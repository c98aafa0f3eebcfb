package cleaner

import (
	"fmt"

	"github.com/RyanBlaney/linefilter/logging"
	"github.com/RyanBlaney/linefilter/spectral"
)

// sigmaStep is the fixed sigma adjustment applied per convergence pass
const sigmaStep = 0.25

// maxConvergencePasses is a defensive cap on the convergence loop. The sigma
// bounds already guarantee termination; the cap guards reimplementation slips.
const maxConvergencePasses = 20

// CleaningState is the per-frequency mutable state of the convergence loop
type CleaningState struct {
	// Sigma is the current outlier-detection strictness, kept within
	// [MinSigma, MaxSigma]
	Sigma float64

	// FixedNRemove is the current minimum-removed-components floor, never
	// below the user-configured baseline
	FixedNRemove int

	// EverTooStrong latches once a pass over-removes. It never resets within
	// a frequency: strong-cleaning correction dominates weak-cleaning
	// correction, so loosening is forbidden from then on.
	EverTooStrong bool

	baseline int
}

func newCleaningState(cfg *Config) *CleaningState {
	return &CleaningState{
		Sigma:        cfg.NoiseCompDetectSigma,
		FixedNRemove: cfg.FixedNRemove,
		baseline:     cfg.FixedNRemove,
	}
}

// tighten reacts to an over-removing pass: raise sigma, lower the floor
func (s *CleaningState) tighten(cfg *Config) {
	s.EverTooStrong = true
	s.Sigma += sigmaStep
	if s.Sigma > cfg.MaxSigma {
		s.Sigma = cfg.MaxSigma
	}
	if s.FixedNRemove > s.baseline {
		s.FixedNRemove--
	}
}

// loosen reacts to an under-removing pass: lower sigma, raise the floor
func (s *CleaningState) loosen(cfg *Config) {
	s.Sigma -= sigmaStep
	if s.Sigma < cfg.MinSigma {
		s.Sigma = cfg.MinSigma
	}
	s.FixedNRemove++
}

// cleanFrequency runs the adaptive convergence loop for one target frequency:
// process all chunks, assess the aggregate cleaned spectrum, adjust sigma and
// the removal floor, and repeat until the quality band is satisfied or the
// sigma bounds are exhausted. Too-strong correction takes precedence over
// too-weak correction.
func (c *Cleaner) cleanFrequency(data [][]float64, chunks []chunkRange, freq float64, sampleRate float64, winSamples int) ([][]float64, *FrequencyResult, error) {
	logger := c.logger.WithFields(logging.Fields{
		"function": "cleanFrequency",
		"freq":     freq,
	})
	logger.Debug("Starting convergence loop")

	analyzer := spectral.NewAnalyzer(sampleRate)

	rawSpec, err := analyzer.Welch(data, winSamples)
	if err != nil {
		return nil, nil, fmt.Errorf("raw spectrum: %w", err)
	}

	state := newCleaningState(c.cfg)
	nSamples := len(data)
	nChannels := len(data[0])

	var (
		clean      [][]float64
		results    []ChunkResult
		qa         *QualityAssessment
		iterations int
	)

	for {
		results, err = c.processChunks(data, chunks, freq, state, sampleRate)
		if err != nil {
			return nil, nil, err
		}
		clean = assembleClean(chunks, results, nSamples, nChannels)

		cleanSpec, err := analyzer.Welch(clean, winSamples)
		if err != nil {
			return nil, nil, fmt.Errorf("cleaned spectrum: %w", err)
		}

		qa, err = c.assessQuality(cleanSpec, freq)
		if err != nil {
			return nil, nil, err
		}
		iterations++

		if !c.cfg.AdaptiveSigma {
			break
		}

		// Too-strong correction has precedence over too-weak correction
		if qa.TooStrong && state.Sigma < c.cfg.MaxSigma {
			state.tighten(c.cfg)
			logger.Debug("Cleaning too strong, raising sigma", logging.Fields{
				"sigma":         state.Sigma,
				"fixed_nremove": state.FixedNRemove,
				"iteration":     iterations,
			})
		} else if qa.TooWeak && !state.EverTooStrong && state.Sigma > c.cfg.MinSigma {
			state.loosen(c.cfg)
			logger.Debug("Cleaning too weak, lowering sigma", logging.Fields{
				"sigma":         state.Sigma,
				"fixed_nremove": state.FixedNRemove,
				"iteration":     iterations,
			})
		} else {
			break
		}

		if iterations >= maxConvergencePasses {
			logger.Warn("Convergence pass cap reached, keeping best-effort result", logging.Fields{
				"iterations": iterations,
				"sigma":      state.Sigma,
			})
			break
		}
	}

	if qa.TooWeak || qa.TooStrong {
		// Bound exhaustion is not fatal; report the best-effort result
		logger.Warn("Convergence ended outside the quality band", logging.Fields{
			"too_weak":   qa.TooWeak,
			"too_strong": qa.TooStrong,
			"sigma":      state.Sigma,
			"iterations": iterations,
		})
	}

	cleanSpec, err := analyzer.Welch(clean, winSamples)
	if err != nil {
		return nil, nil, fmt.Errorf("final spectrum: %w", err)
	}

	freqResult := &FrequencyResult{
		Frequency:            freq,
		NRemoveFinal:         make([]int, len(results)),
		Scores:               padScores(results),
		NoisePeaks:           make([]float64, len(results)),
		FoundNoise:           make([]bool, len(results)),
		SigmaFinal:           state.Sigma,
		Iterations:           iterations,
		ProportionAboveUpper: qa.ProportionAboveUpper,
		ProportionBelowLower: qa.ProportionBelowLower,
		TooWeak:              qa.TooWeak,
		TooStrong:            qa.TooStrong,
		ProportionRemoved:    c.proportionRemoved(rawSpec, cleanSpec, freq),
	}
	for i, r := range results {
		freqResult.NRemoveFinal[i] = r.NRemoved
		freqResult.NoisePeaks[i] = r.NoisePeak
		freqResult.FoundNoise[i] = r.FoundNoise
	}

	logger.Debug("Convergence loop finished", logging.Fields{
		"iterations":         iterations,
		"sigma_final":        state.Sigma,
		"proportion_removed": freqResult.ProportionRemoved,
	})

	return clean, freqResult, nil
}

// proportionRemoved reports the fraction of band power around freq that the
// pass removed, comparing raw and cleaned spectra
func (c *Cleaner) proportionRemoved(rawSpec, cleanSpec *spectral.Spectrum, freq float64) float64 {
	half := c.cfg.DetectionWinsize / 2
	raw := bandPower(rawSpec, freq-half, freq+half)
	cleaned := bandPower(cleanSpec, freq-half, freq+half)

	if raw <= 0 {
		return 0
	}
	p := 1 - cleaned/raw
	if p < 0 {
		p = 0
	}
	return p
}

func bandPower(spec *spectral.Spectrum, loFreq, hiFreq float64) float64 {
	lo, hi := spec.BandIndices(loFreq, hiFreq)
	total := 0.0
	for _, chPower := range spec.Power {
		for i := lo; i < hi; i++ {
			total += chPower[i]
		}
	}
	return total
}

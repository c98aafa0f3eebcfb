package cleaner

import (
	"fmt"

	"github.com/montanaflynn/stats"

	"github.com/RyanBlaney/linefilter/logging"
	"github.com/RyanBlaney/linefilter/spectral"
)

// variabilityQuantile is the lower quantile used for the spectral variability
// estimate. A lower quantile is used because upper-quantile estimates are
// contaminated by the very peak being searched for.
const variabilityQuantile = 5.0

// centerVariability derives the baseline statistics of a mean log-power
// profile centered on a candidate frequency. The profile is split into
// thirds; the center baseline is the mean of the two outer thirds (the middle
// third contains the peak itself and would bias its own baseline), and the
// variability is the mean of the lower-quantile values of each outer third.
func centerVariability(profile []float64) (center, variability float64, err error) {
	third := len(profile) / 3
	if third < 1 {
		return 0, 0, fmt.Errorf("%w: detection window resolves to %d bins, cannot form thirds", ErrDegenerateSpectrum, len(profile))
	}

	outer := make([]float64, 0, 2*third)
	outer = append(outer, profile[:third]...)
	outer = append(outer, profile[len(profile)-third:]...)

	center, err = stats.Mean(outer)
	if err != nil {
		return 0, 0, err
	}

	qFirst, err := stats.Percentile(profile[:third], variabilityQuantile)
	if err != nil {
		return 0, 0, err
	}
	qLast, err := stats.Percentile(profile[len(profile)-third:], variabilityQuantile)
	if err != nil {
		return 0, 0, err
	}

	variability = (qFirst + qLast) / 2
	return center, variability, nil
}

// detectFinePeak refines the nominal noise frequency into a chunk-local peak
// using a maximal-resolution spectrum of the chunk. It returns the refined
// frequency and whether a credible peak was found; on a miss the nominal
// frequency is returned unchanged.
func (c *Cleaner) detectFinePeak(chunk [][]float64, freq float64, sampleRate float64) (float64, bool, error) {
	analyzer := spectral.NewAnalyzer(sampleRate)

	// Single segment spanning the chunk: maximal frequency resolution
	spec, err := analyzer.Welch(chunk, len(chunk))
	if err != nil {
		return 0, false, fmt.Errorf("chunk spectrum: %w", err)
	}
	meanLog := spec.MeanLog()

	half := c.cfg.DetectionWinsize / 2
	lo, hi := spec.BandIndices(freq-half, freq+half)
	if hi <= lo {
		return 0, false, fmt.Errorf("%w: detection window [%g, %g] Hz covers no bins", ErrDegenerateSpectrum, freq-half, freq+half)
	}

	center, variability, err := centerVariability(meanLog[lo:hi])
	if err != nil {
		return 0, false, err
	}
	threshold := center + c.cfg.FreqDetectMultFine*(center-variability)

	dLo, dHi := spec.BandIndices(freq+c.cfg.DetailedFreqBoundsUpper[0], freq+c.cfg.DetailedFreqBoundsUpper[1])
	if dHi <= dLo {
		return 0, false, fmt.Errorf("%w: detailed window around %g Hz covers no bins", ErrDegenerateSpectrum, freq)
	}

	peakIdx := dLo
	for i := dLo; i < dHi; i++ {
		if meanLog[i] > meanLog[peakIdx] {
			peakIdx = i
		}
	}

	if meanLog[peakIdx] <= threshold {
		c.logger.Debug("No credible chunk-local peak", logging.Fields{
			"nominal_freq": freq,
			"threshold":    threshold,
			"max_power":    meanLog[peakIdx],
		})
		return freq, false, nil
	}

	return spec.Freqs[peakIdx], true, nil
}

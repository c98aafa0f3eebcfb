package cleaner

import (
	"gonum.org/v1/gonum/stat"

	"github.com/RyanBlaney/linefilter/logging"
	"github.com/RyanBlaney/linefilter/spectral"
)

// coarsePeak is the outcome of one coarse-detection scan
type coarsePeak struct {
	Freq      float64 // Peak frequency in Hz
	Threshold float64 // Detection threshold actually used, for diagnostics
	Found     bool
}

// findNextFreq scans the mean log-power spectrum for the next frequency band
// at or above floor whose power exceeds the spectrum mean plus the coarse
// detection offset. The extent of a detected peak is bounded by the detection
// window width and delimited by the lower threshold, and the returned
// frequency is the power maximum within that extent. Deterministic and
// re-callable on progressively cleaned spectra.
func (c *Cleaner) findNextFreq(spec *spectral.Spectrum, floor float64) coarsePeak {
	meanLog := spec.MeanLog()
	baseline := stat.Mean(meanLog, nil)

	threshold := baseline + c.cfg.CoarseFreqDetectPowerDiff
	lowerThreshold := baseline + c.cfg.CoarseFreqDetectLowerPowerDiff

	if floor < c.cfg.MinFreq {
		floor = c.cfg.MinFreq
	}
	ceiling := c.cfg.MaxFreq

	lo, hi := spec.BandIndices(floor, ceiling)
	winBins := int(c.cfg.DetectionWinsize / spec.Resolution)
	if winBins < 1 {
		winBins = 1
	}

	for i := lo; i < hi; i++ {
		if meanLog[i] <= threshold {
			continue
		}

		// Peak extent: bins above the lower threshold, capped at the
		// detection window width
		end := i
		for end < len(meanLog) && end < i+winBins && meanLog[end] > lowerThreshold {
			end++
		}

		peakIdx := i
		for j := i; j < end; j++ {
			if meanLog[j] > meanLog[peakIdx] {
				peakIdx = j
			}
		}

		peak := coarsePeak{
			Freq:      spec.Freqs[peakIdx],
			Threshold: threshold,
			Found:     true,
		}

		c.logger.Debug("Coarse noise peak detected", logging.Fields{
			"freq":      peak.Freq,
			"threshold": threshold,
			"floor":     floor,
			"power":     meanLog[peakIdx],
		})

		return peak
	}

	return coarsePeak{Threshold: threshold}
}

package cleaner

import (
	"fmt"

	"github.com/RyanBlaney/linefilter/logging"
	"github.com/RyanBlaney/linefilter/spectral"
)

// QualityAssessment classifies a cleaning pass from the aggregate cleaned
// spectrum around the target frequency
type QualityAssessment struct {
	TooWeak   bool `json:"too_weak"`
	TooStrong bool `json:"too_strong"`

	// ProportionAboveUpper is the fraction of upper-check-window bins above
	// the residual-noise threshold
	ProportionAboveUpper float64 `json:"proportion_above_upper"`

	// ProportionBelowLower is the fraction of lower-check-window bins below
	// the over-removal threshold
	ProportionBelowLower float64 `json:"proportion_below_lower"`

	ThresholdUpper float64 `json:"threshold_upper"`
	ThresholdLower float64 `json:"threshold_lower"`
}

// assessQuality computes post-hoc spectral proportions around the target
// frequency and classifies the pass as too weak, too strong, or acceptable.
// The lower-check window is wider and skewed below the target because removal
// creates a power dip there.
func (c *Cleaner) assessQuality(spec *spectral.Spectrum, freq float64) (*QualityAssessment, error) {
	meanLog := spec.MeanLog()

	half := c.cfg.DetectionWinsize / 2
	lo, hi := spec.BandIndices(freq-half, freq+half)
	if hi <= lo {
		return nil, fmt.Errorf("%w: detection window [%g, %g] Hz covers no bins", ErrDegenerateSpectrum, freq-half, freq+half)
	}

	center, variability, err := centerVariability(meanLog[lo:hi])
	if err != nil {
		return nil, err
	}

	spread := c.cfg.FreqDetectMultFine * (center - variability)
	qa := &QualityAssessment{
		ThresholdUpper: center + spread,
		ThresholdLower: center - spread,
	}

	upLo, upHi := spec.BandIndices(freq+c.cfg.DetailedFreqBoundsUpper[0], freq+c.cfg.DetailedFreqBoundsUpper[1])
	if upHi <= upLo {
		return nil, fmt.Errorf("%w: upper check window around %g Hz covers no bins", ErrDegenerateSpectrum, freq)
	}

	above := 0
	for i := upLo; i < upHi; i++ {
		if meanLog[i] > qa.ThresholdUpper {
			above++
		}
	}
	qa.ProportionAboveUpper = float64(above) / float64(upHi-upLo)
	qa.TooWeak = qa.ProportionAboveUpper > c.cfg.MaxProportionAboveUpper

	loLo, loHi := spec.BandIndices(freq+c.cfg.DetailedFreqBoundsLower[0], freq+c.cfg.DetailedFreqBoundsLower[1])
	if loHi <= loLo {
		return nil, fmt.Errorf("%w: lower check window around %g Hz covers no bins", ErrDegenerateSpectrum, freq)
	}

	below := 0
	for i := loLo; i < loHi; i++ {
		if meanLog[i] < qa.ThresholdLower {
			below++
		}
	}
	qa.ProportionBelowLower = float64(below) / float64(loHi-loLo)
	qa.TooStrong = qa.ProportionBelowLower > c.cfg.MaxProportionAboveLower

	c.logger.Debug("Quality assessment", logging.Fields{
		"freq":           freq,
		"prop_above":     qa.ProportionAboveUpper,
		"prop_below":     qa.ProportionBelowLower,
		"too_weak":       qa.TooWeak,
		"too_strong":     qa.TooStrong,
		"thresh_upper":   qa.ThresholdUpper,
		"thresh_lower":   qa.ThresholdLower,
		"center_power":   center,
		"variability":    variability,
	})

	return qa, nil
}

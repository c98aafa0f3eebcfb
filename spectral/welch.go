package spectral

import (
	"fmt"
	"math"
	"math/cmplx"
	"runtime"
	"sync"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/stat"

	"github.com/RyanBlaney/linefilter/logging"
)

// Analyzer computes power spectral density estimates for multichannel recordings
type Analyzer struct {
	sampleRate float64
	logger     logging.Logger
}

// Spectrum holds a per-channel power spectral density estimate
type Spectrum struct {
	Power      [][]float64 `json:"power"`       // Channel x frequency-bin power matrix
	Freqs      []float64   `json:"freqs"`       // Bin center frequencies in Hz
	SampleRate float64     `json:"sample_rate"` // Sample rate in Hz
	WindowSize int         `json:"window_size"` // Welch segment length in samples
	Resolution float64     `json:"resolution"`  // Frequency resolution (Hz/bin)
}

// NewAnalyzer creates a spectral analyzer for the given sample rate
func NewAnalyzer(sampleRate float64) *Analyzer {
	return &Analyzer{
		sampleRate: sampleRate,
		logger: logging.WithFields(logging.Fields{
			"component":   "spectral_analyzer",
			"sample_rate": sampleRate,
		}),
	}
}

// Welch estimates the power spectral density of data (samples x channels)
// using Welch's method: Hann-windowed segments of winSamples length with 50%
// overlap, averaged per channel. Channels are processed in parallel.
func (a *Analyzer) Welch(data [][]float64, winSamples int) (*Spectrum, error) {
	if len(data) == 0 || len(data[0]) == 0 {
		return nil, fmt.Errorf("empty data")
	}
	if winSamples <= 0 {
		return nil, fmt.Errorf("window size must be positive, got %d", winSamples)
	}

	nSamples := len(data)
	nChannels := len(data[0])

	if winSamples > nSamples {
		return nil, fmt.Errorf("window size %d exceeds available samples %d", winSamples, nSamples)
	}

	logger := a.logger.WithFields(logging.Fields{
		"function":    "Welch",
		"samples":     nSamples,
		"channels":    nChannels,
		"window_size": winSamples,
	})
	logger.Debug("Computing Welch power spectral density")

	hop := winSamples / 2
	if hop < 1 {
		hop = 1
	}
	nSegments := (nSamples-winSamples)/hop + 1

	window := hannWindow(winSamples)
	// One-sided PSD normalization: 1 / (fs * sum(w^2)), with interior bins doubled
	scale := 1.0 / (a.sampleRate * windowPowerSum(window))

	freqBins := winSamples/2 + 1
	power := make([][]float64, nChannels)

	numWorkers := min(runtime.NumCPU(), nChannels)

	jobs := make(chan int, nChannels)

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			segment := make([]float64, winSamples)

			for ch := range jobs {
				binPower := make([]float64, freqBins)

				for seg := 0; seg < nSegments; seg++ {
					start := seg * hop
					for i := 0; i < winSamples; i++ {
						segment[i] = data[start+i][ch] * window[i]
					}

					fftResult := fft.FFTReal(segment)
					for b := 0; b < freqBins; b++ {
						mag := cmplx.Abs(fftResult[b])
						p := mag * mag * scale
						if b > 0 && b < freqBins-1 {
							p *= 2
						}
						binPower[b] += p
					}
				}

				for b := 0; b < freqBins; b++ {
					binPower[b] /= float64(nSegments)
				}
				power[ch] = binPower
			}
		}()
	}

	go func() {
		defer close(jobs)
		for ch := 0; ch < nChannels; ch++ {
			jobs <- ch
		}
	}()

	wg.Wait()

	resolution := a.sampleRate / float64(winSamples)
	freqs := make([]float64, freqBins)
	for i := 0; i < freqBins; i++ {
		freqs[i] = float64(i) * resolution
	}

	result := &Spectrum{
		Power:      power,
		Freqs:      freqs,
		SampleRate: a.sampleRate,
		WindowSize: winSamples,
		Resolution: resolution,
	}

	logger.Debug("Welch computation completed", logging.Fields{
		"freq_bins":  freqBins,
		"segments":   nSegments,
		"resolution": resolution,
	})

	return result, nil
}

// Channels returns the number of channels in the spectrum
func (s *Spectrum) Channels() int {
	return len(s.Power)
}

// Bins returns the number of frequency bins
func (s *Spectrum) Bins() int {
	if len(s.Power) == 0 {
		return 0
	}
	return len(s.Power[0])
}

// logPowerFloor guards 10*log10 against zero power bins
const logPowerFloor = 1e-15

// LogPower returns the channel x bin log-power matrix in dB
func (s *Spectrum) LogPower() [][]float64 {
	logPower := make([][]float64, len(s.Power))
	for ch, chPower := range s.Power {
		logPower[ch] = make([]float64, len(chPower))
		for b, p := range chPower {
			if p < logPowerFloor {
				p = logPowerFloor
			}
			logPower[ch][b] = 10 * math.Log10(p)
		}
	}
	return logPower
}

// MeanLog reduces the log-power matrix to a per-bin mean across channels
func (s *Spectrum) MeanLog() []float64 {
	bins := s.Bins()
	meanLog := make([]float64, bins)
	column := make([]float64, len(s.Power))

	logPower := s.LogPower()
	for b := 0; b < bins; b++ {
		for ch := range logPower {
			column[ch] = logPower[ch][b]
		}
		meanLog[b] = stat.Mean(column, nil)
	}
	return meanLog
}

// BinIndex returns the index of the bin closest to freq
func (s *Spectrum) BinIndex(freq float64) int {
	idx := int(math.Round(freq / s.Resolution))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(s.Freqs) {
		idx = len(s.Freqs) - 1
	}
	return idx
}

// BandIndices returns the half-open bin range [lo, hi) covering frequencies in
// [loFreq, hiFreq]. The range may be empty if the band falls between bins.
func (s *Spectrum) BandIndices(loFreq, hiFreq float64) (int, int) {
	lo := int(math.Ceil(loFreq / s.Resolution))
	hi := int(math.Floor(hiFreq/s.Resolution)) + 1
	if lo < 0 {
		lo = 0
	}
	if hi > len(s.Freqs) {
		hi = len(s.Freqs)
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

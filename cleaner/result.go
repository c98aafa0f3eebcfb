package cleaner

// ChunkResult holds the outcome of cleaning one chunk at one frequency
type ChunkResult struct {
	Clean      [][]float64 `json:"-"`           // Cleaned samples x channels
	NRemoved   int         `json:"n_removed"`   // Components removed
	Scores     []float64   `json:"scores"`      // Per-component artifact scores
	NoisePeak  float64     `json:"noise_peak"`  // Chunk-local noise frequency in Hz
	FoundNoise bool        `json:"found_noise"` // Whether a credible chunk-local peak was found
}

// FrequencyResult aggregates chunk results for one target frequency
type FrequencyResult struct {
	Frequency    float64     `json:"frequency"`     // Nominal target frequency in Hz
	NRemoveFinal []int       `json:"nremove_final"` // Components removed, per chunk
	Scores       [][]float64 `json:"scores"`        // Chunk x component scores, NaN padded to a common width
	NoisePeaks   []float64   `json:"noise_peaks"`   // Chunk-local peak frequencies
	FoundNoise   []bool      `json:"found_noise"`   // Chunk-local detection flags
	SigmaFinal   float64     `json:"sigma_final"`   // Sigma after convergence
	Iterations   int         `json:"iterations"`    // Convergence passes used

	// Final quality assessment for the converged pass
	ProportionAboveUpper float64 `json:"proportion_above_upper"`
	ProportionBelowLower float64 `json:"proportion_below_lower"`
	TooWeak              bool    `json:"too_weak"`
	TooStrong            bool    `json:"too_strong"`

	// ProportionRemoved is the fraction of band power around the target
	// frequency removed by this pass
	ProportionRemoved float64 `json:"proportion_removed"`
}

// RunResult is the complete outcome of a cleaning run
type RunResult struct {
	// Clean is the cleaned recording in the same orientation as the input
	Clean [][]float64 `json:"-"`

	// Config captures all effective parameters plus the final frequency
	// list. Re-submitting it with the same input reproduces this run.
	Config Config `json:"config"`

	// NoiseFreqs is the final processed frequency list, discovery included
	NoiseFreqs []float64 `json:"noisefreqs"`

	// Frequencies holds the per-frequency aggregates in processing order
	Frequencies []FrequencyResult `json:"frequencies"`
}

// NRemoveMatrix returns the frequency x chunk matrix of removed-component counts
func (r *RunResult) NRemoveMatrix() [][]int {
	matrix := make([][]int, len(r.Frequencies))
	for i, fr := range r.Frequencies {
		matrix[i] = append([]int(nil), fr.NRemoveFinal...)
	}
	return matrix
}

// ScoresMatrix returns the frequency x chunk x component score tensor
func (r *RunResult) ScoresMatrix() [][][]float64 {
	matrix := make([][][]float64, len(r.Frequencies))
	for i, fr := range r.Frequencies {
		matrix[i] = make([][]float64, len(fr.Scores))
		for c, s := range fr.Scores {
			matrix[i][c] = append([]float64(nil), s...)
		}
	}
	return matrix
}

// NoisePeaksMatrix returns the frequency x chunk matrix of detected peaks
func (r *RunResult) NoisePeaksMatrix() [][]float64 {
	matrix := make([][]float64, len(r.Frequencies))
	for i, fr := range r.Frequencies {
		matrix[i] = append([]float64(nil), fr.NoisePeaks...)
	}
	return matrix
}

// FoundNoiseMatrix returns the frequency x chunk matrix of detection flags
func (r *RunResult) FoundNoiseMatrix() [][]bool {
	matrix := make([][]bool, len(r.Frequencies))
	for i, fr := range r.Frequencies {
		matrix[i] = append([]bool(nil), fr.FoundNoise...)
	}
	return matrix
}
